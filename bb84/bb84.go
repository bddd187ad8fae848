// Package bb84 simulates the BB84 quantum key distribution protocol: a sender
// prepares randomly chosen bits in randomly chosen bases, an optional
// eavesdropper performs an intercept-resend attack, and a receiver measures in
// bases of its own. The two parties' records are then sifted down to the
// positions where their bases agree, and the resulting error rate is used to
// decide whether the channel was observed.
package bb84

import (
	"errors"
	"fmt"

	"github.com/alan-christopher/bb84sim/bb84/photon"
	"github.com/google/uuid"
)

var (
	// DefaultThreshold is the QBER above which eavesdropping is suspected.
	// An intercept-resend attacker on every qubit induces a QBER of 1/4.
	DefaultThreshold = 0.15
	// DefaultWorkers is the number of goroutines trials are spread across
	// when no Rand is injected.
	DefaultWorkers = 1
)

// ErrInvalidParameter is returned when a run is requested with nonsensical
// options. No trial is executed in that case.
var ErrInvalidParameter = errors.New("invalid parameter")

// A Detection is the verdict reached by comparing a QBER against a threshold.
type Detection int

const (
	// SecureLikely means the QBER did not exceed the threshold.
	SecureLikely Detection = iota
	// EavesdroppingSuspected means the QBER exceeded the threshold.
	EavesdroppingSuspected
)

func (d Detection) String() string {
	switch d {
	case SecureLikely:
		return "secure-likely"
	case EavesdroppingSuspected:
		return "eavesdropping-suspected"
	default:
		return fmt.Sprintf("Detection(%d)", int(d))
	}
}

// Opts packages together the arguments to Run. Qubits has no reasonable
// default; leaving it zero results in an error.
type Opts struct {
	// Qubits is the number of qubits to exchange. Must be positive.
	Qubits int

	// Eavesdropper routes every qubit through an intercept-resend attacker.
	Eavesdropper bool

	// Rand, if non-nil, supplies all randomness for the run. Trials are then
	// executed sequentially, each drawing in order: sender bit, sender basis,
	// eavesdropper basis and outcome (if any), receiver basis and outcome.
	Rand photon.Source

	// Seed is used when Rand is nil. Trial i then draws from an independent
	// stream derived from (Seed, i), see rng.Derive.
	Seed int64

	// Workers specifies how many goroutines execute trials when Rand is nil.
	// The result does not depend on it. Defaults to DefaultWorkers.
	Workers int

	// Threshold specifies the QBER above which eavesdropping is suspected. It
	// must lie in [0, 1]. Defaults to DefaultThreshold unless ExactThreshold
	// is set.
	Threshold float64
	// ExactThreshold makes Run use Threshold as given, so that a zero
	// threshold can be requested.
	ExactThreshold bool
}

// A Result is everything produced by a single run.
type Result struct {
	RunID        uuid.UUID
	Qubits       int
	Eavesdropper bool
	Threshold    float64
	// Seed is meaningful only if Seeded is set, i.e. no Rand was injected.
	Seed   int64
	Seeded bool

	// Records holds one entry per qubit, in trial order.
	Records   []TrialRecord
	Sifted    SiftedKey
	QBER      float64
	Detection Detection
}

// Run performs a full BB84 exchange of opts.Qubits qubits, sifts the result
// and classifies the observed error rate. A failure in any trial fails the
// whole run; no partial result is returned.
func Run(opts Opts) (*Result, error) {
	if opts.Qubits <= 0 {
		return nil, fmt.Errorf("%w: qubit count must be positive, got %d", ErrInvalidParameter, opts.Qubits)
	}
	threshold := opts.Threshold
	if threshold == 0 && !opts.ExactThreshold {
		threshold = DefaultThreshold
	}
	if !(threshold >= 0 && threshold <= 1) {
		return nil, fmt.Errorf("%w: threshold must lie in [0, 1], got %v", ErrInvalidParameter, threshold)
	}
	workers := opts.Workers
	if workers < 0 {
		return nil, fmt.Errorf("%w: worker count must not be negative, got %d", ErrInvalidParameter, workers)
	}
	if workers == 0 {
		workers = DefaultWorkers
	}

	t := trialer{eavesdropper: opts.Eavesdropper}
	var (
		records []TrialRecord
		err     error
	)
	if opts.Rand != nil {
		records, err = t.runSequential(opts.Qubits, opts.Rand)
	} else {
		records, err = t.runSeeded(opts.Qubits, opts.Seed, workers)
	}
	if err != nil {
		return nil, err
	}

	r := &Result{
		RunID:        uuid.New(),
		Qubits:       opts.Qubits,
		Eavesdropper: opts.Eavesdropper,
		Threshold:    threshold,
		Seed:         opts.Seed,
		Seeded:       opts.Rand == nil,
		Records:      records,
	}
	r.evaluate()
	return r, nil
}

// evaluate derives the sifted key, QBER and verdict from r.Records.
func (r *Result) evaluate() {
	r.Sifted = Sift(r.Records)
	r.QBER = QBER(r.Sifted)
	r.Detection = Classify(r.QBER, r.Threshold)
}
