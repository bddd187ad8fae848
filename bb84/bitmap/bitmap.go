// Package bitmap provides utilities for operating on densely-packed arrays of
// booleans.
package bitmap

import (
	"fmt"
	"math/bits"
	"strings"
)

// TODO: this could be more efficient on many architectures if we used larger
//   blocks than 8-bit bytes.
const byteSize = 8

// Select selects a subset of bits from data, according to which bits are set in
// mask.
func Select(data, mask Dense) Dense {
	var d Dense
	for i := 0; i < data.Size(); i++ {
		if !mask.Get(i) {
			continue
		}
		d.AppendBit(data.Get(i))
	}
	return d
}

// Indices returns the positions of the set bits in d, in increasing order.
func Indices(d Dense) []int {
	var r []int
	for i := 0; i < d.Size(); i++ {
		if d.Get(i) {
			r = append(r, i)
		}
	}
	return r
}

// FromString converts a string of '1's and '0's to a Dense. Spaces are
// ignored.
func FromString(s string) (Dense, error) {
	d := Dense{}
	for _, c := range s {
		switch c {
		case '1':
			d.AppendBit(true)
		case '0':
			d.AppendBit(false)
		case ' ':
			continue
		default:
			return Dense{}, fmt.Errorf("invalid bitmap string rep: %s", s)
		}
	}
	return d, nil
}

// String renders d as a string of '0's and '1's, first bit first. It is the
// inverse of FromString.
func (d Dense) String() string {
	var sb strings.Builder
	sb.Grow(d.len)
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// CountOnes returns the total number of bits set in d. Bits past d.Size()
// are not counted.
func CountOnes(d Dense) int {
	var sum int
	for j := 0; j < d.SizeBytes() && j < len(d.bits); j++ {
		b := d.bits[j]
		if rem := d.len - j*byteSize; rem < byteSize {
			b &= 1<<rem - 1
		}
		sum += bits.OnesCount8(b)
	}
	return sum
}

// Equal returns true iff a and b contain the same bits.
func Equal(a, b Dense) bool {
	return a.len == b.len && CountOnes(XOr(a, b)) == 0
}

// BytesFor returns the number of bytes necessary to hold the provided number of
// bits.
func BytesFor(bits int) int {
	return (bits + byteSize - 1) / byteSize
}
