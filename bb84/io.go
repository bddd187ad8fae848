package bb84

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/alan-christopher/bb84sim/bb84/photon"
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// A transcript is a sequence of frames, each of which is trivial:
// payload-length | payload. The first frame is a header describing the run;
// every following frame holds one TrialRecord. Payloads are protobuf
// wire-format messages.

const (
	maxFrameBytes = 1 << 16
	// maxQubits bounds the qubit count a transcript header may declare.
	maxQubits = math.MaxInt32
	// Records are preallocated for at most this many trials; longer
	// transcripts grow as they are read.
	maxPrealloc = 1 << 12
)

// Header field numbers.
const (
	hdrRunID        protowire.Number = 1
	hdrQubits       protowire.Number = 2
	hdrEavesdropper protowire.Number = 3
	hdrThreshold    protowire.Number = 4
	hdrSeed         protowire.Number = 5
	hdrSeeded       protowire.Number = 6
)

// TrialRecord field numbers.
const (
	recIndex         protowire.Number = 1
	recSenderBit     protowire.Number = 2
	recSenderBasis   protowire.Number = 3
	recIntercepted   protowire.Number = 4
	recEveBasis      protowire.Number = 5
	recEveBit        protowire.Number = 6
	recReceiverBasis protowire.Number = 7
	recReceiverBit   protowire.Number = 8
)

// ErrMalformedTranscript is returned when reading a transcript which could not
// have been produced by WriteTranscript.
var ErrMalformedTranscript = errors.New("malformed transcript")

// WriteTranscript writes the parameters and trial records of r to w.
func WriteTranscript(w io.Writer, r *Result) error {
	if err := writeFrame(w, marshalHeader(r)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, rec := range r.Records {
		if err := writeFrame(w, marshalRecord(rec)); err != nil {
			return fmt.Errorf("writing trial %d: %w", rec.Index, err)
		}
	}
	return nil
}

// ReadTranscript reads a transcript written by WriteTranscript. The sifted
// key, QBER and detection verdict are recomputed from the trial records.
func ReadTranscript(rd io.Reader) (*Result, error) {
	buf, err := readFrame(rd)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	r := &Result{}
	if err := unmarshalHeader(buf, r); err != nil {
		return nil, err
	}
	if r.Qubits < 1 {
		return nil, fmt.Errorf("%w: header declares %d qubits", ErrMalformedTranscript, r.Qubits)
	}
	if !(r.Threshold >= 0 && r.Threshold <= 1) {
		return nil, fmt.Errorf("%w: threshold %v outside [0, 1]", ErrMalformedTranscript, r.Threshold)
	}
	r.Records = make([]TrialRecord, 0, min(r.Qubits, maxPrealloc))
	for {
		buf, err := readFrame(rd)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading trial %d: %w", len(r.Records), err)
		}
		rec, err := unmarshalRecord(buf)
		if err != nil {
			return nil, err
		}
		if rec.Index != len(r.Records) {
			return nil, fmt.Errorf("%w: trial %d out of order, want %d", ErrMalformedTranscript, rec.Index, len(r.Records))
		}
		r.Records = append(r.Records, rec)
	}
	if len(r.Records) != r.Qubits {
		return nil, fmt.Errorf("%w: %d trials recorded, header declares %d", ErrMalformedTranscript, len(r.Records), r.Qubits)
	}
	r.evaluate()
	return r, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame returns io.EOF only if rd is exhausted exactly at a frame
// boundary.
func readFrame(rd io.Reader) ([]byte, error) {
	var mLen int32
	if err := binary.Read(rd, binary.LittleEndian, &mLen); err != nil {
		return nil, err
	}
	if mLen < 0 || mLen > maxFrameBytes {
		return nil, fmt.Errorf("%w: frame length %d", ErrMalformedTranscript, mLen)
	}
	buf := make([]byte, mLen)
	if _, err := io.ReadFull(rd, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

func marshalHeader(r *Result) []byte {
	var b []byte
	b = protowire.AppendTag(b, hdrRunID, protowire.BytesType)
	b = protowire.AppendBytes(b, r.RunID[:])
	b = appendVarint(b, hdrQubits, uint64(r.Qubits))
	b = appendVarint(b, hdrEavesdropper, protowire.EncodeBool(r.Eavesdropper))
	b = protowire.AppendTag(b, hdrThreshold, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(r.Threshold))
	b = appendVarint(b, hdrSeed, protowire.EncodeZigZag(r.Seed))
	b = appendVarint(b, hdrSeeded, protowire.EncodeBool(r.Seeded))
	return b
}

func unmarshalHeader(b []byte, r *Result) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == hdrRunID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			id, err := uuid.FromBytes(v)
			if err != nil {
				return 0, fmt.Errorf("%w: run id: %v", ErrMalformedTranscript, err)
			}
			r.RunID = id
			return n, nil
		case num == hdrThreshold && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			r.Threshold = math.Float64frombits(v)
			return n, nil
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			switch num {
			case hdrQubits:
				if v > maxQubits {
					return 0, fmt.Errorf("%w: header declares %d qubits", ErrMalformedTranscript, v)
				}
				r.Qubits = int(v)
			case hdrEavesdropper:
				r.Eavesdropper = protowire.DecodeBool(v)
			case hdrSeed:
				r.Seed = protowire.DecodeZigZag(v)
			case hdrSeeded:
				r.Seeded = protowire.DecodeBool(v)
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

func marshalRecord(rec TrialRecord) []byte {
	var b []byte
	b = appendVarint(b, recIndex, uint64(rec.Index))
	b = appendVarint(b, recSenderBit, uint64(rec.SenderBit))
	b = appendVarint(b, recSenderBasis, uint64(rec.SenderBasis))
	if rec.Intercepted {
		b = appendVarint(b, recIntercepted, 1)
		b = appendVarint(b, recEveBasis, uint64(rec.EveBasis))
		b = appendVarint(b, recEveBit, uint64(rec.EveBit))
	}
	b = appendVarint(b, recReceiverBasis, uint64(rec.ReceiverBasis))
	b = appendVarint(b, recReceiverBit, uint64(rec.ReceiverBit))
	return b
}

func unmarshalRecord(b []byte) (TrialRecord, error) {
	var rec TrialRecord
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.VarintType {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return n, nil
		}
		if num != recIndex && num != recIntercepted && v > 1 {
			return 0, fmt.Errorf("%w: field %d out of range: %d", ErrMalformedTranscript, num, v)
		}
		switch num {
		case recIndex:
			rec.Index = int(v)
		case recSenderBit:
			rec.SenderBit = photon.Bit(v)
		case recSenderBasis:
			rec.SenderBasis = photon.Basis(v)
		case recIntercepted:
			rec.Intercepted = protowire.DecodeBool(v)
		case recEveBasis:
			rec.EveBasis = photon.Basis(v)
		case recEveBit:
			rec.EveBit = photon.Bit(v)
		case recReceiverBasis:
			rec.ReceiverBasis = photon.Basis(v)
		case recReceiverBit:
			rec.ReceiverBit = photon.Bit(v)
		}
		return n, nil
	})
	return rec, err
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// consumeFields walks the fields of a wire-format message, handing each value
// to f. f returns the number of bytes it consumed, negative on a wire error.
func consumeFields(b []byte, f func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedTranscript, protowire.ParseError(n))
		}
		b = b[n:]
		m, err := f(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedTranscript, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}
