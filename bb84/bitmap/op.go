package bitmap

// XOr returns the bitwise XOR of two bitmaps.
func XOr(a, b Dense) Dense {
	short, long := a, b
	if b.len < a.len {
		short, long = b, a
	}
	r := Dense{
		bits:    make([]byte, 0, BytesFor(long.len)),
		len:     long.len,
		negated: a.negated != b.negated,
	}
	for i := range short.bits {
		r.bits = append(r.bits, a.bits[i]^b.bits[i])
	}
	var trail byte
	if short.negated {
		trail = 0xFF
	}
	for i := len(short.bits); i < len(long.bits); i++ {
		r.bits = append(r.bits, trail^long.bits[i])
	}
	return r
}

// XNor returns the bitwise XNOR of two bitmaps, i.e. a mask of the positions at
// which a and b agree.
func XNor(a, b Dense) Dense {
	short, long := a, b
	if b.len < a.len {
		short, long = b, a
	}
	r := Dense{
		bits:    make([]byte, 0, BytesFor(long.len)),
		len:     long.len,
		negated: a.negated == b.negated,
	}
	for i := range short.bits {
		r.bits = append(r.bits, ^(a.bits[i] ^ b.bits[i]))
	}
	var trail byte
	if short.negated {
		trail = 0xFF
	}
	for i := len(short.bits); i < len(long.bits); i++ {
		r.bits = append(r.bits, ^(trail ^ long.bits[i]))
	}
	return r
}
