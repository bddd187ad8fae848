package photon

import "fmt"

// Measure observes q in the provided basis. If basis matches the preparation
// basis, the prepared bit is returned with certainty and src is not
// consulted. Otherwise the outcome is maximally random and is drawn from src.
//
// Measurement is destructive: once measured, q cannot be measured again and
// further calls return ErrConsumed.
func (q *Qubit) Measure(basis Basis, src Source) (Bit, error) {
	if q.consumed {
		return 0, ErrConsumed
	}
	if !basis.Valid() {
		return 0, fmt.Errorf("measuring in %v: %w", basis, ErrInvalidBasis)
	}
	if err := Check(q.bit, q.basis); err != nil {
		return 0, fmt.Errorf("measuring malformed qubit: %w", err)
	}
	q.consumed = true
	if basis == q.basis {
		return q.bit, nil
	}
	bit, err := src.Bit()
	if err != nil {
		return 0, fmt.Errorf("measuring in conjugate basis: %w", err)
	}
	if !bit.Valid() {
		return 0, fmt.Errorf("measuring in conjugate basis: %w: %d", ErrInvalidBit, uint8(bit))
	}
	return bit, nil
}

// An Interception describes what an eavesdropper did to a single qubit.
type Interception struct {
	Basis Basis
	Bit   Bit
}

// Intercept performs an intercept-resend attack on q: the attacker measures q
// in a randomly chosen basis, then prepares and forwards a fresh qubit
// encoding the measured bit in that same basis. q itself is
// consumed.
func Intercept(q *Qubit, src Source) (*Qubit, Interception, error) {
	basis, err := src.Basis()
	if err != nil {
		return nil, Interception{}, fmt.Errorf("choosing interception basis: %w", err)
	}
	bit, err := q.Measure(basis, src)
	if err != nil {
		return nil, Interception{}, fmt.Errorf("intercepting: %w", err)
	}
	return Prepare(bit, basis), Interception{Basis: basis, Bit: bit}, nil
}
