package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisMirror stores the slot as a single Redis string key without expiry.
type RedisMirror struct {
	client redis.UniversalClient
	key    string
}

// NewRedisMirror returns a mirror over client using key as the slot.
func NewRedisMirror(client redis.UniversalClient, key string) *RedisMirror {
	if key == "" {
		key = DefaultSlot
	}
	return &RedisMirror{client: client, key: key}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("DialRedis %s: %w", addr, err)
	}
	return client, nil
}

// Load reads the slot. A missing key is an empty slot.
func (m *RedisMirror) Load(ctx context.Context) ([]domain.Record, error) {
	data, err := m.client.Get(ctx, m.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("RedisMirror.Load %s: %w", m.key, err)
	}
	return Decode(data), nil
}

// Save replaces the slot.
func (m *RedisMirror) Save(ctx context.Context, recs []domain.Record) error {
	data, err := Encode(recs)
	if err != nil {
		return fmt.Errorf("RedisMirror.Save: %w", err)
	}
	if err := m.client.Set(ctx, m.key, data, 0).Err(); err != nil {
		return fmt.Errorf("RedisMirror.Save %s: %w", m.key, err)
	}
	return nil
}
