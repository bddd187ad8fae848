package bitmap

// A Dense is a bitmap where every bit is explicitly represented.
type Dense struct {
	bits []byte
	len  int

	negated bool
}

// Get returns the i-th bit in this bitmap.
func (d Dense) Get(i int) bool {
	if i >= d.len {
		return d.negated
	}
	j, pos := i/byteSize, i%byteSize
	if j >= len(d.bits) {
		return d.negated
	}
	block := d.bits[j]
	return 0 < block&(1<<pos)
}

// Size returns the number of bits in this bitmap, excluding implicit trailing
// zeros.
func (d Dense) Size() int {
	return d.len
}

// SizeBytes returns the number of bytes in this bitmap, excluding implicit
// trailing zeros.
func (d Dense) SizeBytes() int {
	return BytesFor(d.len)
}

// AppendBit adds a single bit to the end of d.
func (d *Dense) AppendBit(bit bool) {
	i, pos := d.len/byteSize, d.len%byteSize
	d.len += 1
	if pos == 0 {
		d.bits = append(d.bits, 0)
	}
	if bit {
		d.bits[i] |= 1 << pos
	} else {
		d.bits[i] &= ^(1 << pos)
	}
}
