package bb84

import (
	"fmt"
	"sync"

	"github.com/alan-christopher/bb84sim/bb84/photon"
	"github.com/alan-christopher/bb84sim/bb84/rng"
)

// A TrialRecord captures everything that happened to a single qubit.
type TrialRecord struct {
	Index int

	SenderBit   photon.Bit
	SenderBasis photon.Basis

	// Intercepted is set iff an eavesdropper was present, in which case
	// EveBasis and EveBit describe its measurement.
	Intercepted bool
	EveBasis    photon.Basis
	EveBit      photon.Bit

	ReceiverBasis photon.Basis
	ReceiverBit   photon.Bit
}

// A trialer runs individual BB84 trials.
type trialer struct {
	eavesdropper bool
}

func (t trialer) trial(i int, src photon.Source) (TrialRecord, error) {
	rec := TrialRecord{Index: i}
	var err error
	if rec.SenderBit, err = src.Bit(); err != nil {
		return TrialRecord{}, fmt.Errorf("drawing sender bit: %w", err)
	}
	if rec.SenderBasis, err = src.Basis(); err != nil {
		return TrialRecord{}, fmt.Errorf("drawing sender basis: %w", err)
	}
	if err := photon.Check(rec.SenderBit, rec.SenderBasis); err != nil {
		return TrialRecord{}, fmt.Errorf("preparing: %w", err)
	}
	q := photon.Prepare(rec.SenderBit, rec.SenderBasis)

	if t.eavesdropper {
		var icpt photon.Interception
		if q, icpt, err = photon.Intercept(q, src); err != nil {
			return TrialRecord{}, err
		}
		rec.Intercepted = true
		rec.EveBasis, rec.EveBit = icpt.Basis, icpt.Bit
	}

	if rec.ReceiverBasis, err = src.Basis(); err != nil {
		return TrialRecord{}, fmt.Errorf("drawing receiver basis: %w", err)
	}
	if rec.ReceiverBit, err = q.Measure(rec.ReceiverBasis, src); err != nil {
		return TrialRecord{}, fmt.Errorf("receiving: %w", err)
	}
	return rec, nil
}

func (t trialer) runSequential(n int, src photon.Source) ([]TrialRecord, error) {
	records := make([]TrialRecord, 0, n)
	for i := 0; i < n; i++ {
		rec, err := t.trial(i, src)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// runSeeded executes n trials across the given number of workers, trial i
// drawing from rng.Derive(seed, i). Records land at their own index, so the
// outcome is independent of scheduling.
func (t trialer) runSeeded(n int, seed int64, workers int) ([]TrialRecord, error) {
	if workers > n {
		workers = n
	}
	records := make([]TrialRecord, n)
	errs := make([]error, n)

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				records[i], errs[i] = t.trial(i, rng.Derive(seed, i))
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
	}
	return records, nil
}
