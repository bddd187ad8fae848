package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/bb84/bitmap"
	"github.com/google/uuid"
)

func summaryToHash(s *RunSummary) map[string]interface{} {
	return map[string]interface{}{
		"id":            s.ID.String(),
		"created_at_ms": s.CreatedAt.UnixMilli(),
		"qubits":        s.Qubits,
		"eavesdropper":  strconv.FormatBool(s.Eavesdropper),
		"seed":          s.Seed,
		"seeded":        strconv.FormatBool(s.Seeded),
		"threshold":     strconv.FormatFloat(s.Threshold, 'g', -1, 64),
		"sifted_len":    s.SiftedLen,
		"errors":        s.Errors,
		"qber":          strconv.FormatFloat(s.QBER, 'g', -1, 64),
		"detection":     s.Detection.String(),
		"sender_key":    s.SenderKey.String(),
		"receiver_key":  s.ReceiverKey.String(),
	}
}

func hashToSummary(hash map[string]string) (*RunSummary, error) {
	p := hashParser{hash: hash}
	s := &RunSummary{
		CreatedAt:    time.UnixMilli(p.intField("created_at_ms")),
		Qubits:       int(p.intField("qubits")),
		Eavesdropper: p.boolField("eavesdropper"),
		Seed:         p.intField("seed"),
		Seeded:       p.boolField("seeded"),
		Threshold:    p.floatField("threshold"),
		SiftedLen:    int(p.intField("sifted_len")),
		Errors:       int(p.intField("errors")),
		QBER:         p.floatField("qber"),
	}
	if p.err != nil {
		return nil, p.err
	}

	id, err := uuid.Parse(hash["id"])
	if err != nil {
		return nil, fmt.Errorf("invalid id: %w", err)
	}
	s.ID = id

	switch d := hash["detection"]; d {
	case bb84.SecureLikely.String():
		s.Detection = bb84.SecureLikely
	case bb84.EavesdroppingSuspected.String():
		s.Detection = bb84.EavesdroppingSuspected
	default:
		return nil, fmt.Errorf("invalid detection: %q", d)
	}

	if s.SenderKey, err = bitmap.FromString(hash["sender_key"]); err != nil {
		return nil, fmt.Errorf("invalid sender_key: %w", err)
	}
	if s.ReceiverKey, err = bitmap.FromString(hash["receiver_key"]); err != nil {
		return nil, fmt.Errorf("invalid receiver_key: %w", err)
	}
	return s, nil
}

// hashParser remembers the first parse failure so that fields can be read
// without checking each one.
type hashParser struct {
	hash map[string]string
	err  error
}

func (p *hashParser) intField(field string) int64 {
	v, err := strconv.ParseInt(p.hash[field], 10, 64)
	p.note(field, err)
	return v
}

func (p *hashParser) floatField(field string) float64 {
	v, err := strconv.ParseFloat(p.hash[field], 64)
	p.note(field, err)
	return v
}

func (p *hashParser) boolField(field string) bool {
	v, err := strconv.ParseBool(p.hash[field])
	p.note(field, err)
	return v
}

func (p *hashParser) note(field string, err error) {
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", field, err)
	}
}
