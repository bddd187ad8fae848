package bb84

import (
	"testing"

	"github.com/alan-christopher/bb84sim/bb84/photon"
	"github.com/stretchr/testify/assert"
)

func record(i int, sBit photon.Bit, sBasis, rBasis photon.Basis, rBit photon.Bit) TrialRecord {
	return TrialRecord{
		Index:         i,
		SenderBit:     sBit,
		SenderBasis:   sBasis,
		ReceiverBasis: rBasis,
		ReceiverBit:   rBit,
	}
}

func TestSift(t *testing.T) {
	tcs := []struct {
		name      string
		records   []TrialRecord
		eIndices  []int
		eSender   []photon.Bit
		eReceiver []photon.Bit
	}{
		{
			name:      "empty",
			eSender:   []photon.Bit{},
			eReceiver: []photon.Bit{},
		}, {
			name: "all agree",
			records: []TrialRecord{
				record(0, 1, z, z, 1),
				record(1, 0, x, x, 0),
			},
			eIndices:  []int{0, 1},
			eSender:   []photon.Bit{1, 0},
			eReceiver: []photon.Bit{1, 0},
		}, {
			name: "none agree",
			records: []TrialRecord{
				record(0, 1, z, x, 0),
				record(1, 0, x, z, 1),
			},
			eSender:   []photon.Bit{},
			eReceiver: []photon.Bit{},
		}, {
			name: "mixed with errors",
			records: []TrialRecord{
				record(0, 1, z, z, 0),
				record(1, 0, x, z, 1),
				record(2, 1, x, x, 1),
				record(3, 0, z, x, 0),
				record(4, 0, z, z, 1),
			},
			eIndices:  []int{0, 2, 4},
			eSender:   []photon.Bit{1, 1, 0},
			eReceiver: []photon.Bit{0, 1, 1},
		}, {
			name: "eavesdropper basis ignored",
			records: []TrialRecord{
				{Index: 0, SenderBit: 1, SenderBasis: z, Intercepted: true, EveBasis: x, EveBit: 0, ReceiverBasis: z, ReceiverBit: 0},
				{Index: 1, SenderBit: 1, SenderBasis: z, Intercepted: true, EveBasis: z, EveBit: 1, ReceiverBasis: x, ReceiverBit: 1},
			},
			eIndices:  []int{0},
			eSender:   []photon.Bit{1},
			eReceiver: []photon.Bit{0},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			k := Sift(tc.records)
			assert.Equal(t, tc.eIndices, k.Indices)
			assert.Equal(t, tc.eSender, k.SenderBits())
			assert.Equal(t, tc.eReceiver, k.ReceiverBits())
			assert.Equal(t, len(tc.eSender), k.Len())
		})
	}
}

func TestQBER(t *testing.T) {
	tcs := []struct {
		name    string
		records []TrialRecord
		eErrors int
		eQBER   float64
	}{
		{"empty key", nil, 0, 0},
		{"all sifted away", []TrialRecord{record(0, 1, z, x, 0)}, 0, 0},
		{"clean", []TrialRecord{record(0, 1, z, z, 1), record(1, 0, x, x, 0)}, 0, 0},
		{"quarter", []TrialRecord{
			record(0, 1, z, z, 1),
			record(1, 0, x, x, 1),
			record(2, 1, x, x, 1),
			record(3, 0, z, z, 0),
		}, 1, 0.25},
		{"all wrong", []TrialRecord{record(0, 1, z, z, 0)}, 1, 1},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			k := Sift(tc.records)
			assert.Equal(t, tc.eErrors, k.Errors())
			assert.Equal(t, tc.eQBER, QBER(k))
		})
	}
}

func TestAgree(t *testing.T) {
	tcs := []struct {
		name    string
		records []TrialRecord
		eout    bool
	}{
		{"empty", nil, true},
		{"matching", []TrialRecord{record(0, 1, z, z, 1), record(1, 0, x, z, 1)}, true},
		{"mismatch", []TrialRecord{record(0, 1, z, z, 1), record(1, 0, x, x, 1)}, false},
	}
	for _, tc := range tcs {
		if got := Sift(tc.records).Agree(); got != tc.eout {
			t.Errorf("%s: Agree() == %v, want %v", tc.name, got, tc.eout)
		}
	}
}

func TestDiff(t *testing.T) {
	k := Sift([]TrialRecord{
		record(0, 1, z, z, 1),
		record(1, 0, x, x, 1),
		record(2, 1, x, z, 1),
		record(3, 0, z, z, 0),
	})
	assert.Equal(t, []photon.Bit{0, 1, 0}, k.Diff())
}

func TestClassify(t *testing.T) {
	tcs := []struct {
		qber      float64
		threshold float64
		eout      Detection
	}{
		{0.10, 0.15, SecureLikely},
		{0.20, 0.15, EavesdroppingSuspected},
		{0.15, 0.15, SecureLikely},
		{0, 0, SecureLikely},
		{0.01, 0, EavesdroppingSuspected},
		{1, 1, SecureLikely},
	}

	for _, tc := range tcs {
		if got := Classify(tc.qber, tc.threshold); got != tc.eout {
			t.Errorf("Classify(%v, %v) == %v, want %v", tc.qber, tc.threshold, got, tc.eout)
		}
	}
}

func TestDetectionString(t *testing.T) {
	assert.Equal(t, "secure-likely", SecureLikely.String())
	assert.Equal(t, "eavesdropping-suspected", EavesdroppingSuspected.String())
}

func TestSummarize(t *testing.T) {
	mk := func(qber float64, sifted int, d Detection) *Result {
		r := &Result{QBER: qber, Detection: d}
		for i := 0; i < sifted; i++ {
			r.Sifted.Sender.AppendBit(false)
			r.Sifted.Receiver.AppendBit(false)
		}
		return r
	}

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, Summary{}, Summarize(nil))
	})

	t.Run("single", func(t *testing.T) {
		s := Summarize([]*Result{mk(0.2, 10, EavesdroppingSuspected)})
		assert.Equal(t, 1, s.Runs)
		assert.Equal(t, 0.2, s.MeanQBER)
		assert.Zero(t, s.StdDevQBER)
		assert.Zero(t, s.QBERMargin)
		assert.Equal(t, 10.0, s.MeanSiftedLen)
		assert.Equal(t, 1, s.Detected)
		assert.Equal(t, 1.0, s.DetectionRate)
	})

	t.Run("several", func(t *testing.T) {
		s := Summarize([]*Result{
			mk(0.1, 10, SecureLikely),
			mk(0.2, 20, EavesdroppingSuspected),
			mk(0.3, 30, EavesdroppingSuspected),
			mk(0.4, 40, EavesdroppingSuspected),
		})
		assert.Equal(t, 4, s.Runs)
		assert.InDelta(t, 0.25, s.MeanQBER, 1e-12)
		// Sample standard deviation of {0.1, 0.2, 0.3, 0.4}.
		assert.InDelta(t, 0.1290994, s.StdDevQBER, 1e-6)
		assert.InDelta(t, 1.959964*0.1290994/2, s.QBERMargin, 1e-5)
		assert.Equal(t, 25.0, s.MeanSiftedLen)
		assert.Equal(t, 3, s.Detected)
		assert.Equal(t, 0.75, s.DetectionRate)
	})
}

func TestSummarizeEavesdropperRuns(t *testing.T) {
	var results []*Result
	for seed := int64(0); seed < 20; seed++ {
		r, err := Run(Opts{Qubits: 1000, Eavesdropper: true, Seed: seed, Workers: 2})
		if err != nil {
			t.Fatalf("run %d: %v", seed, err)
		}
		results = append(results, r)
	}
	s := Summarize(results)
	assert.InDelta(t, 0.25, s.MeanQBER, 0.02)
	assert.Less(t, s.QBERMargin, 0.02)
	assert.Equal(t, 20, s.Detected)
}
