// Package rng provides sources of randomness for driving BB84 trials.
package rng

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	mrand "math/rand"

	"github.com/alan-christopher/bb84sim/bb84/photon"
	"golang.org/x/crypto/hkdf"
	xrand "golang.org/x/exp/rand"
)

// ErrExhausted is returned by bounded sources which have run out of values.
var ErrExhausted = errors.New("random source exhausted")

type intner interface {
	Intn(n int) int
}

// A Rand is a photon.Source backed by a pseudo-random generator. It never
// fails. A Rand is not safe for concurrent use.
type Rand struct {
	r intner
}

// New returns a Source drawing from r. This may use a seeded pRNG for
// experimentation and testing, but the resulting bits are of course
// unsuitable for anything requiring real secrecy.
func New(r *mrand.Rand) *Rand {
	return &Rand{r: r}
}

// Derive returns the independent stream for trial index of a run seeded with
// seed. The same (seed, index) pair always yields the same stream, so a run may
// be split across any number of goroutines without changing its outcome.
func Derive(seed int64, index int) *Rand {
	var ikm [8]byte
	binary.LittleEndian.PutUint64(ikm[:], uint64(seed))
	info := make([]byte, 0, 24)
	info = append(info, "bb84sim|trial|"...)
	info = binary.LittleEndian.AppendUint64(info, uint64(index))

	var pcgSeed [8]byte
	// Reading 8 bytes from an HKDF-SHA256 stream cannot fail.
	_, _ = io.ReadFull(hkdf.New(sha256.New, ikm[:], nil, info), pcgSeed[:])
	src := &xrand.PCGSource{}
	src.Seed(binary.LittleEndian.Uint64(pcgSeed[:]))
	return &Rand{r: xrand.New(src)}
}

// Bit implements photon.Source.
func (r *Rand) Bit() (photon.Bit, error) {
	return photon.Bit(r.r.Intn(2)), nil
}

// Basis implements photon.Source.
func (r *Rand) Basis() (photon.Basis, error) {
	return photon.Basis(r.r.Intn(2)), nil
}

// A Crypto is a photon.Source drawing from the operating system's
// cryptographically secure generator.
type Crypto struct{}

// Bit implements photon.Source.
func (Crypto) Bit() (photon.Bit, error) {
	b, err := cryptoByte()
	return photon.Bit(b & 1), err
}

// Basis implements photon.Source.
func (Crypto) Basis() (photon.Basis, error) {
	b, err := cryptoByte()
	return photon.Basis(b & 1), err
}

func cryptoByte() (byte, error) {
	var buf [1]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("reading system randomness: %w", err)
	}
	return buf[0], nil
}

// A Replay is a bounded photon.Source which plays back a fixed script. Bits
// and bases are drawn from separate queues, in order. Once a queue is empty,
// further draws from it return ErrExhausted.
type Replay struct {
	bits  []photon.Bit
	bases []photon.Basis
}

// NewReplay returns a Replay which will yield bits and bases in order. The
// slices are copied. NewReplay panics if the script holds a bit other than 0
// or 1, or an invalid basis, since no Source may yield either.
func NewReplay(bits []photon.Bit, bases []photon.Basis) *Replay {
	for i, b := range bits {
		if !b.Valid() {
			panic(fmt.Sprintf("rng: replay bit %d is %d, want 0 or 1", i, uint8(b)))
		}
	}
	for i, b := range bases {
		if !b.Valid() {
			panic(fmt.Sprintf("rng: replay basis %d is %v, want Z or X", i, b))
		}
	}
	return &Replay{
		bits:  append([]photon.Bit(nil), bits...),
		bases: append([]photon.Basis(nil), bases...),
	}
}

// Bit implements photon.Source.
func (r *Replay) Bit() (photon.Bit, error) {
	if len(r.bits) == 0 {
		return 0, fmt.Errorf("drawing bit: %w", ErrExhausted)
	}
	b := r.bits[0]
	r.bits = r.bits[1:]
	return b, nil
}

// Basis implements photon.Source.
func (r *Replay) Basis() (photon.Basis, error) {
	if len(r.bases) == 0 {
		return 0, fmt.Errorf("drawing basis: %w", ErrExhausted)
	}
	b := r.bases[0]
	r.bases = r.bases[1:]
	return b, nil
}

// Remaining returns the number of undrawn bits and bases.
func (r *Replay) Remaining() (bits, bases int) {
	return len(r.bits), len(r.bases)
}
