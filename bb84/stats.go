package bb84

import (
	"math"

	"github.com/alan-christopher/bb84sim/bb84/bitmap"
	"github.com/alan-christopher/bb84sim/bb84/photon"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// A SiftedKey holds the sender's and receiver's bits at the positions where
// their bases agreed, in trial order.
type SiftedKey struct {
	Sender   bitmap.Dense
	Receiver bitmap.Dense
	// Indices holds the trial index each sifted position came from.
	Indices []int
}

// Len returns the number of sifted positions.
func (k SiftedKey) Len() int {
	return k.Sender.Size()
}

// SenderBits returns the sender's sifted key.
func (k SiftedKey) SenderBits() []photon.Bit {
	return unpack(k.Sender)
}

// ReceiverBits returns the receiver's sifted key.
func (k SiftedKey) ReceiverBits() []photon.Bit {
	return unpack(k.Receiver)
}

// Diff returns, for each sifted position, 1 if the two parties disagree and 0
// otherwise.
func (k SiftedKey) Diff() []photon.Bit {
	return unpack(bitmap.XOr(k.Sender, k.Receiver))
}

// Errors returns the number of sifted positions at which the two parties
// disagree.
func (k SiftedKey) Errors() int {
	return bitmap.CountOnes(bitmap.XOr(k.Sender, k.Receiver))
}

// Agree reports whether the two parties hold identical sifted keys.
func (k SiftedKey) Agree() bool {
	return bitmap.Equal(k.Sender, k.Receiver)
}

// Sift discards every trial in which the sender and receiver chose different
// bases. The eavesdropper's basis plays no part.
func Sift(records []TrialRecord) SiftedKey {
	var sBits, sBases, rBits, rBases bitmap.Dense
	for _, rec := range records {
		sBits.AppendBit(rec.SenderBit.Bool())
		sBases.AppendBit(rec.SenderBasis == photon.Diagonal)
		rBits.AppendBit(rec.ReceiverBit.Bool())
		rBases.AppendBit(rec.ReceiverBasis == photon.Diagonal)
	}
	siftMask := bitmap.XNor(sBases, rBases)
	var indices []int
	for _, pos := range bitmap.Indices(siftMask) {
		indices = append(indices, records[pos].Index)
	}
	return SiftedKey{
		Sender:   bitmap.Select(sBits, siftMask),
		Receiver: bitmap.Select(rBits, siftMask),
		Indices:  indices,
	}
}

// QBER returns the fraction of sifted positions at which the sender and
// receiver disagree, or 0 for an empty key.
func QBER(k SiftedKey) float64 {
	if k.Len() == 0 {
		return 0
	}
	return float64(k.Errors()) / float64(k.Len())
}

// Classify compares qber against threshold. The boundary is exclusive: a QBER
// equal to the threshold is still considered secure.
func Classify(qber, threshold float64) Detection {
	if qber > threshold {
		return EavesdroppingSuspected
	}
	return SecureLikely
}

// A Summary aggregates the outcomes of repeated runs with identical
// parameters.
type Summary struct {
	Runs       int
	MeanQBER   float64
	StdDevQBER float64
	// QBERMargin is the half-width of a 95% normal confidence interval on
	// MeanQBER.
	QBERMargin    float64
	MeanSiftedLen float64
	Detected      int
	DetectionRate float64
}

// Summarize aggregates results. An empty slice yields the zero Summary.
func Summarize(results []*Result) Summary {
	if len(results) == 0 {
		return Summary{}
	}
	qbers := make([]float64, len(results))
	lens := make([]float64, len(results))
	detected := 0
	for i, r := range results {
		qbers[i] = r.QBER
		lens[i] = float64(r.Sifted.Len())
		if r.Detection == EavesdroppingSuspected {
			detected++
		}
	}

	s := Summary{
		Runs:          len(results),
		MeanSiftedLen: stat.Mean(lens, nil),
		Detected:      detected,
		DetectionRate: float64(detected) / float64(len(results)),
	}
	if len(results) < 2 {
		s.MeanQBER = qbers[0]
		return s
	}
	s.MeanQBER, s.StdDevQBER = stat.MeanStdDev(qbers, nil)
	z := distuv.UnitNormal.Quantile(0.975)
	s.QBERMargin = z * s.StdDevQBER / math.Sqrt(float64(len(results)))
	return s
}

func unpack(d bitmap.Dense) []photon.Bit {
	r := make([]photon.Bit, d.Size())
	for i := range r {
		r[i] = photon.BitOf(d.Get(i))
	}
	return r
}
