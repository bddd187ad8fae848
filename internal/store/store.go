// Package store keeps a history of simulation runs in Redis.
//
// Each run is stored as a hash at {namespace}:run:{id} and indexed by creation
// time in the sorted set {namespace}:runs. Only the summary of a run is kept;
// full trial records belong in a transcript.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/bb84/bitmap"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every key written by a Client.
const DefaultNamespace = "bb84sim"

// A RunSummary is the stored form of a bb84.Result.
type RunSummary struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Qubits       int
	Eavesdropper bool
	Seed         int64
	Seeded       bool
	Threshold    float64
	SiftedLen    int
	Errors       int
	QBER         float64
	Detection    bb84.Detection

	SenderKey   bitmap.Dense
	ReceiverKey bitmap.Dense
}

// Summarize extracts the stored fields of r.
func Summarize(r *bb84.Result, createdAt time.Time) *RunSummary {
	return &RunSummary{
		ID:           r.RunID,
		CreatedAt:    createdAt,
		Qubits:       r.Qubits,
		Eavesdropper: r.Eavesdropper,
		Seed:         r.Seed,
		Seeded:       r.Seeded,
		Threshold:    r.Threshold,
		SiftedLen:    r.Sifted.Len(),
		Errors:       r.Sifted.Errors(),
		QBER:         r.QBER,
		Detection:    r.Detection,
		SenderKey:    r.Sifted.Sender,
		ReceiverKey:  r.Sifted.Receiver,
	}
}

// Client provides namespaced access to the run history. It is safe for
// concurrent use.
type Client struct {
	rdb       *redis.Client
	namespace string
	now       func() time.Time
}

// NewClient creates a client writing keys under namespace. An empty namespace
// means DefaultNamespace.
func NewClient(redisOpts *redis.Options, namespace string) *Client {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
		now:       time.Now,
	}
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SaveRun stores the summary of r and indexes it by the current time. Saving
// the same run twice overwrites the first copy.
func (c *Client) SaveRun(ctx context.Context, r *bb84.Result) (*RunSummary, error) {
	if r.RunID == uuid.Nil {
		return nil, fmt.Errorf("run has no id")
	}
	s := Summarize(r, c.now())
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.runKey(s.ID), summaryToHash(s))
		pipe.ZAdd(ctx, c.indexKey(), redis.Z{
			Score:  float64(s.CreatedAt.UnixMilli()),
			Member: s.ID.String(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write run to Redis: %w", err)
	}
	return s, nil
}

// GetRun retrieves a run summary by ID.
// Returns (nil, redis.Nil) if the run doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetRun(ctx context.Context, id uuid.UUID) (*RunSummary, error) {
	hash, err := c.rdb.HGetAll(ctx, c.runKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run from Redis: %w", err)
	}
	if len(hash) == 0 {
		return nil, redis.Nil
	}
	s, err := hashToSummary(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize run %s: %w", id, err)
	}
	return s, nil
}

// ListRuns returns up to limit run summaries, newest first. A limit <= 0
// returns every stored run.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]*RunSummary, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	ids, err := c.rdb.ZRevRange(ctx, c.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*RunSummary, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt run index entry %q: %w", raw, err)
		}
		s, err := c.GetRun(ctx, id)
		if IsNotFound(err) {
			// Hash removed out from under the index.
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, s)
	}
	return runs, nil
}

func (c *Client) runKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:run:%s", c.namespace, id)
}

func (c *Client) indexKey() string {
	return c.namespace + ":runs"
}

// IsNotFound checks if an error represents a not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
