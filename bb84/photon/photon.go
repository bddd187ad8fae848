// Package photon provides utilities for handling photon-encoded qubits: their
// preparation in one of the two BB84 bases, measurement, and interception by a
// third party.
package photon

import (
	"errors"
	"fmt"
)

var (
	// ErrConsumed is returned when measuring a qubit which has already been
	// measured. Measurement collapses the state, so there is nothing left to
	// observe.
	ErrConsumed = errors.New("qubit already measured")

	// ErrInvalidBasis is returned when parsing an unrecognized basis, or
	// when a Source yields one.
	ErrInvalidBasis = errors.New("invalid basis")

	// ErrInvalidBit is returned when a Source yields a bit other than 0 or 1.
	ErrInvalidBit = errors.New("invalid bit")
)

// A Basis specifies the polarization frame in which a qubit is prepared or
// measured.
type Basis uint8

const (
	// Rectilinear is the Z basis, encoding 0/1 as horizontal/vertical
	// polarization.
	Rectilinear Basis = iota
	// Diagonal is the X basis, encoding 0/1 as +45/-45 degree polarization.
	Diagonal
)

// Valid reports whether b is one of the two BB84 bases.
func (b Basis) Valid() bool {
	return b == Rectilinear || b == Diagonal
}

func (b Basis) String() string {
	switch b {
	case Rectilinear:
		return "Z"
	case Diagonal:
		return "X"
	default:
		return fmt.Sprintf("Basis(%d)", uint8(b))
	}
}

// ParseBasis converts "Z" or "X" to a Basis.
func ParseBasis(s string) (Basis, error) {
	switch s {
	case "Z", "z":
		return Rectilinear, nil
	case "X", "x":
		return Diagonal, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidBasis, s)
}

// A Bit is a single logical bit value, either 0 or 1.
type Bit uint8

// BitOf converts a boolean to a Bit, with true corresponding to 1.
func BitOf(v bool) Bit {
	if v {
		return 1
	}
	return 0
}

// Valid reports whether b is 0 or 1.
func (b Bit) Valid() bool {
	return b <= 1
}

// Bool returns true iff b is 1.
func (b Bit) Bool() bool {
	return b != 0
}

// A Source supplies the randomness consumed by a BB84 trial. Implementations
// must return uniformly distributed values, independent across calls, and
// must report exhaustion or failure as an error rather than substituting a
// default.
type Source interface {
	// Bit returns 0 or 1 with equal probability.
	Bit() (Bit, error)
	// Basis returns Rectilinear or Diagonal with equal probability.
	Basis() (Basis, error)
}

// A Qubit is a single simulated photon in transit. It is always described
// relative to the basis it was prepared in, which need not be the basis it
// will be measured in.
type Qubit struct {
	bit   Bit
	basis Basis

	consumed bool
}

// Prepare returns a new qubit encoding bit in basis. Prepare does not check its
// arguments; use Check on values that did not come from this package.
func Prepare(bit Bit, basis Basis) *Qubit {
	return &Qubit{bit: bit, basis: basis}
}

// Bit returns the bit value q was prepared to encode.
func (q *Qubit) Bit() Bit {
	return q.bit
}

// Basis returns the basis q was prepared in.
func (q *Qubit) Basis() Basis {
	return q.basis
}

// Consumed reports whether q has already been measured.
func (q *Qubit) Consumed() bool {
	return q.consumed
}

// Check returns an error wrapping ErrInvalidBit or ErrInvalidBasis if bit or
// basis lies outside its domain.
func Check(bit Bit, basis Basis) error {
	if !bit.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidBit, uint8(bit))
	}
	if !basis.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidBasis, basis)
	}
	return nil
}
