package photon_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/alan-christopher/bb84sim/bb84/photon"
	"github.com/alan-christopher/bb84sim/bb84/rng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingSource fails every draw, proving that a code path consumed no
// randomness.
type failingSource struct{}

var errUnexpectedDraw = errors.New("unexpected draw")

func (failingSource) Bit() (photon.Bit, error)     { return 0, errUnexpectedDraw }
func (failingSource) Basis() (photon.Basis, error) { return 0, errUnexpectedDraw }

func TestMeasureMatchingBasis(t *testing.T) {
	tcs := []struct {
		bit   photon.Bit
		basis photon.Basis
	}{
		{0, photon.Rectilinear},
		{1, photon.Rectilinear},
		{0, photon.Diagonal},
		{1, photon.Diagonal},
	}

	for _, tc := range tcs {
		t.Run(tc.basis.String(), func(t *testing.T) {
			for i := 0; i < 100; i++ {
				q := photon.Prepare(tc.bit, tc.basis)
				got, err := q.Measure(tc.basis, failingSource{})
				require.NoError(t, err)
				assert.Equal(t, tc.bit, got)
			}
		})
	}
}

func TestMeasureConjugateBasis(t *testing.T) {
	const m = 10000
	src := rng.New(rand.New(rand.NewSource(42)))
	tcs := []struct {
		name    string
		bit     photon.Bit
		prepare photon.Basis
		measure photon.Basis
	}{
		{"Z0 in X", 0, photon.Rectilinear, photon.Diagonal},
		{"Z1 in X", 1, photon.Rectilinear, photon.Diagonal},
		{"X0 in Z", 0, photon.Diagonal, photon.Rectilinear},
		{"X1 in Z", 1, photon.Diagonal, photon.Rectilinear},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			ones := 0
			for i := 0; i < m; i++ {
				got, err := photon.Prepare(tc.bit, tc.prepare).Measure(tc.measure, src)
				require.NoError(t, err)
				ones += int(got)
			}
			assert.InDelta(t, 0.5, float64(ones)/m, 0.05)
		})
	}
}

func TestMeasureConsumes(t *testing.T) {
	q := photon.Prepare(1, photon.Diagonal)
	src := rng.NewReplay([]photon.Bit{0, 1}, nil)

	_, err := q.Measure(photon.Rectilinear, src)
	require.NoError(t, err)
	assert.True(t, q.Consumed())

	_, err = q.Measure(photon.Rectilinear, src)
	assert.ErrorIs(t, err, photon.ErrConsumed)
	bits, _ := src.Remaining()
	assert.Equal(t, 1, bits, "second measurement must not draw")
}

func TestMeasureInvalidBasis(t *testing.T) {
	q := photon.Prepare(0, photon.Rectilinear)
	_, err := q.Measure(photon.Basis(7), failingSource{})
	assert.ErrorIs(t, err, photon.ErrInvalidBasis)
	assert.False(t, q.Consumed())
}

func TestMeasurePropagatesSourceFailure(t *testing.T) {
	q := photon.Prepare(0, photon.Rectilinear)
	_, err := q.Measure(photon.Diagonal, rng.NewReplay(nil, nil))
	assert.ErrorIs(t, err, rng.ErrExhausted)
}

func TestIntercept(t *testing.T) {
	tcs := []struct {
		name  string
		qubit *photon.Qubit
		bits  []photon.Bit
		bases []photon.Basis
		eout  photon.Interception
	}{
		{
			name:  "matching basis",
			qubit: photon.Prepare(1, photon.Diagonal),
			bases: []photon.Basis{photon.Diagonal},
			eout:  photon.Interception{Basis: photon.Diagonal, Bit: 1},
		}, {
			name:  "conjugate basis",
			qubit: photon.Prepare(1, photon.Diagonal),
			bits:  []photon.Bit{0},
			bases: []photon.Basis{photon.Rectilinear},
			eout:  photon.Interception{Basis: photon.Rectilinear, Bit: 0},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			src := rng.NewReplay(tc.bits, tc.bases)
			fwd, icpt, err := photon.Intercept(tc.qubit, src)
			require.NoError(t, err)
			assert.Equal(t, tc.eout, icpt)
			assert.True(t, tc.qubit.Consumed())
			assert.False(t, fwd.Consumed())
			assert.Equal(t, tc.eout.Basis, fwd.Basis())
			assert.Equal(t, tc.eout.Bit, fwd.Bit())
			bits, bases := src.Remaining()
			assert.Zero(t, bits)
			assert.Zero(t, bases)
		})
	}
}

func TestInterceptDisturbance(t *testing.T) {
	// A receiver measuring in the preparation basis sees an error exactly
	// when the attacker guessed the wrong basis and then the conjugate
	// measurement came out wrong: 1/2 * 1/2.
	const m = 20000
	src := rng.New(rand.New(rand.NewSource(7)))
	errs := 0
	for i := 0; i < m; i++ {
		fwd, _, err := photon.Intercept(photon.Prepare(0, photon.Rectilinear), src)
		require.NoError(t, err)
		got, err := fwd.Measure(photon.Rectilinear, src)
		require.NoError(t, err)
		errs += int(got)
	}
	assert.InDelta(t, 0.25, float64(errs)/m, 0.02)
}

func TestInterceptExhausted(t *testing.T) {
	q := photon.Prepare(0, photon.Rectilinear)
	_, _, err := photon.Intercept(q, rng.NewReplay(nil, nil))
	assert.ErrorIs(t, err, rng.ErrExhausted)
	assert.False(t, q.Consumed())
}

// constSource returns the same bit and basis forever.
type constSource struct {
	bit   photon.Bit
	basis photon.Basis
}

func (c constSource) Bit() (photon.Bit, error)     { return c.bit, nil }
func (c constSource) Basis() (photon.Basis, error) { return c.basis, nil }

func TestMeasureRejectsOutOfRangeDraw(t *testing.T) {
	q := photon.Prepare(0, photon.Rectilinear)
	_, err := q.Measure(photon.Diagonal, constSource{bit: 2})
	assert.ErrorIs(t, err, photon.ErrInvalidBit)
}

func TestMeasureRejectsMalformedQubit(t *testing.T) {
	tcs := []struct {
		name string
		q    *photon.Qubit
		eErr error
	}{
		{"bit", photon.Prepare(3, photon.Rectilinear), photon.ErrInvalidBit},
		{"basis", photon.Prepare(0, photon.Basis(5)), photon.ErrInvalidBasis},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.q.Measure(photon.Rectilinear, failingSource{})
			assert.ErrorIs(t, err, tc.eErr)
			assert.False(t, tc.q.Consumed())
		})
	}
}

func TestInterceptRejectsOutOfRangeBasis(t *testing.T) {
	q := photon.Prepare(1, photon.Rectilinear)
	_, _, err := photon.Intercept(q, constSource{basis: photon.Basis(9)})
	assert.ErrorIs(t, err, photon.ErrInvalidBasis)
}
