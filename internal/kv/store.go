// Package kv defines the key-value abstraction the subscription core is
// built on, together with Redis, PostgreSQL and in-memory backends.
//
// Values are opaque bytes at the backend level; the JSON helpers in this
// file encode and decode structured values on top of them.
package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("kv: key not found")

	// ErrConflict is returned by Update when the optimistic retry budget is
	// exhausted because other writers kept modifying the key.
	ErrConflict = errors.New("kv: too many concurrent modifications")
)

// maxUpdateRetries bounds the optimistic read-modify-write loop in backends
// that implement Update with compare-and-set semantics.
const maxUpdateRetries = 10

// Store is an asynchronous map from string keys to opaque values.
//
// There are no cross-key transactions. Update and SetNX are atomic for the
// single key they touch.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetNX writes value only if key does not exist and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Update atomically replaces the value at key with fn(current).
	// current is nil when the key does not exist.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
}

// GetJSON loads key into a value of type T. The boolean is false when the
// key does not exist.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var v T
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return v, false, nil
		}
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return v, true, nil
}

// SetJSON encodes v and writes it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// SetNXJSON encodes v and writes it under key only if the key is absent.
func SetNXJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.SetNX(ctx, key, raw)
}

// UpdateJSON atomically applies fn to the decoded value at key. A missing
// key is presented to fn as the zero value of T.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(v *T) error) error {
	return s.Update(ctx, key, func(current []byte) ([]byte, error) {
		var v T
		if current != nil {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, fmt.Errorf("decoding %s: %w", key, err)
			}
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
}
