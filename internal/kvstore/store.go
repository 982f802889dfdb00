// Package kvstore is the persistence port for managerd state.
//
// Each collection (chat history, tasks, transactions, push recipient,
// authentication flag) is one named blob that callers overwrite wholesale on
// every mutation and read once at startup. Backends: in-memory, JSON files on
// disk, and a NATS JetStream key-value bucket.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Keys for the persisted collections.
const (
	KeyChatHistory   = "chat_history"
	KeyTasks         = "tasks"
	KeyTransactions  = "transactions"
	KeyPushRecipient = "push_recipient"
	KeyAuthenticated = "authenticated"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("key not found")

// ErrInvalidKey is returned for keys outside [a-z0-9_].
var ErrInvalidKey = errors.New("invalid key")

// Store reads and writes whole blobs by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var keyPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// LoadJSON decodes the blob at key into v. It reports false, with no error,
// when the key does not exist.
func LoadJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and overwrites the blob at key.
func SaveJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
