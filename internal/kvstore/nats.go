package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATS stores blobs in a JetStream key-value bucket. Only the latest
// revision of each key is kept since collections are overwritten wholesale.
type NATS struct {
	kv jetstream.KeyValue
	nc *nats.Conn // owned when created by ConnectNATS
}

var _ Store = (*NATS)(nil)

// NewNATS binds to bucket on js, creating it if it does not exist.
func NewNATS(ctx context.Context, js jetstream.JetStream, bucket string) (*NATS, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "managerd state",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("bind key-value bucket %s: %w", bucket, err)
	}
	return &NATS{kv: kv}, nil
}

// ConnectNATS dials url and binds bucket. Close releases the connection.
func ConnectNATS(ctx context.Context, url, bucket string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("managerd-kv"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	store, err := NewNATS(ctx, js, bucket)
	if err != nil {
		nc.Close()
		return nil, err
	}
	store.nc = nc
	return store, nil
}

func (n *NATS) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return entry.Value(), nil
}

func (n *NATS) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if _, err := n.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (n *NATS) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := n.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close drains the connection if this store owns it.
func (n *NATS) Close() error {
	if n.nc == nil {
		return nil
	}
	return n.nc.Drain()
}
