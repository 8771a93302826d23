// Package session holds the transient "current prediction" slot that
// bridges the upload page and the results page. The slot is last-writer-wins
// and expires on its own; it is keyed by an anonymous session identifier.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/example/dermascan/internal/classifier"
)

// ErrEmpty indicates no current prediction is stored for the session.
var ErrEmpty = errors.New("no current prediction")

// Slot abstracts the storage behind the current-prediction handoff to make
// testing easier.
type Slot interface {
	SetCurrent(ctx context.Context, sessionID string, p *classifier.Prediction) error
	Current(ctx context.Context, sessionID string) (*classifier.Prediction, error)
	Clear(ctx context.Context, sessionID string) error
}

// DefaultTTL bounds how long a handed-off result stays readable.
const DefaultTTL = 30 * time.Minute

// RedisSlot is a concrete implementation backed by go-redis.
type RedisSlot struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlot constructs a Redis-backed slot adapter.
func NewRedisSlot(client *redis.Client, ttl time.Duration) *RedisSlot {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisSlot{client: client, ttl: ttl}
}

func slotKey(sessionID string) string {
	return fmt.Sprintf("current_prediction:%s", sessionID)
}

// SetCurrent overwrites the session's slot. Concurrent writers race by
// contract: the last write wins.
func (s *RedisSlot) SetCurrent(ctx context.Context, sessionID string, p *classifier.Prediction) error {
	serialized, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, slotKey(sessionID), serialized, s.ttl).Err()
}

// Current reads the session's slot, returning ErrEmpty when nothing is
// stored or the entry expired.
func (s *RedisSlot) Current(ctx context.Context, sessionID string) (*classifier.Prediction, error) {
	value, err := s.client.Get(ctx, slotKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	var p classifier.Prediction
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Clear removes the session's slot.
func (s *RedisSlot) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, slotKey(sessionID)).Err()
}
