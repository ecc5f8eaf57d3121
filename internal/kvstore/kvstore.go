// Package kvstore is a small key/value store for JSON documents with optional
// expiry and prefix scans.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a key is missing or expired
var ErrNotFound = errors.New("kvstore: key not found")

// Entry is a stored key and its raw JSON value
type Entry struct {
	Key   string
	Value []byte
}

// Store persists JSON values by key. A zero ttl means the key never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, prefix string) ([]Entry, error)
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	SweepExpired(ctx context.Context) (int64, error)
}

// GetJSON loads key into dst
func GetJSON(ctx context.Context, s Store, key string, dst interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SetJSON stores v under key
func SetJSON(ctx context.Context, s Store, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}
