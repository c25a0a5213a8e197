package database

import (
	"context"
	"encoding/json"
	"fmt"
)

// Well-known keys
const (
	KeyWishlist  = "wishlist"
	KeyAuthToken = "authToken"
)

// KV is a small key/value store. Values are opaque bytes; most callers store JSON.
type KV interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
}

// Store is a KV backend owning a connection or file.
type Store interface {
	KV
	Close() error
	HealthCheck(ctx context.Context) error
}

// GetJSON decodes the value at key into v. It returns ErrNotFound for absent
// keys and a *CorruptValueError when the stored bytes do not decode.
func GetJSON(ctx context.Context, kv KV, key string, v interface{}) error {
	data, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &CorruptValueError{Key: key, Err: err}
	}
	return nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, kv KV, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return kv.Set(ctx, key, data)
}
