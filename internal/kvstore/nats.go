package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const defaultCASRetries = 8

// NATSConfig configures a JetStream KeyValue bucket.
type NATSConfig struct {
	Bucket   string
	Replicas int

	// TTL is the bucket max age. Zero keeps entries forever.
	TTL time.Duration

	// CASRetries bounds compare-and-swap attempts on index sets.
	CASRetries int
}

// NATS is a Store backed by a JetStream KeyValue bucket.
type NATS struct {
	kv      jetstream.KeyValue
	bucket  string
	retries int
}

// OpenNATS binds to the configured bucket, creating or updating it. The
// connection stays owned by the caller.
func OpenNATS(ctx context.Context, nc *nats.Conn, cfg NATSConfig) (*NATS, error) {
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	replicas := cfg.Replicas
	if replicas < 1 {
		replicas = 1
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:   cfg.Bucket,
		History:  1,
		TTL:      cfg.TTL,
		Storage:  jetstream.FileStorage,
		Replicas: replicas,
	})
	if err != nil {
		return nil, fmt.Errorf("bucket %s: %w", cfg.Bucket, err)
	}

	retries := cfg.CASRetries
	if retries <= 0 {
		retries = defaultCASRetries
	}
	return &NATS{kv: kv, bucket: cfg.Bucket, retries: retries}, nil
}

func (s *NATS) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.kv.Get(ctx, EncodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return entry.Value(), nil
}

func (s *NATS) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(ctx, EncodeKey(key), value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *NATS) Create(ctx context.Context, key string, value []byte) error {
	_, err := s.kv.Create(ctx, EncodeKey(key), value)
	if isRevisionConflict(err) {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	return nil
}

func (s *NATS) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, EncodeKey(key)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *NATS) SetAdd(ctx context.Context, key string, members ...string) error {
	return s.updateSet(ctx, key, func(set []string) ([]string, bool) {
		return addMembers(set, members)
	})
}

func (s *NATS) SetRemove(ctx context.Context, key string, members ...string) error {
	return s.updateSet(ctx, key, func(set []string) ([]string, bool) {
		return removeMembers(set, members)
	})
}

func (s *NATS) SetMembers(ctx context.Context, key string) ([]string, error) {
	set, _, err := s.readSet(ctx, key)
	if err != nil {
		return nil, err
	}
	if set == nil {
		set = []string{}
	}
	return set, nil
}

func (s *NATS) readSet(ctx context.Context, key string) ([]string, uint64, error) {
	entry, err := s.kv.Get(ctx, EncodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get set %s: %w", key, err)
	}
	set, err := decodeSet(key, entry.Value())
	if err != nil {
		return nil, 0, err
	}
	return set, entry.Revision(), nil
}

// updateSet applies fn with compare-and-swap on the set's revision,
// retrying when another writer got there first.
func (s *NATS) updateSet(ctx context.Context, key string, fn func([]string) ([]string, bool)) error {
	nk := EncodeKey(key)
	for attempt := 0; attempt < s.retries; attempt++ {
		set, rev, err := s.readSet(ctx, key)
		if err != nil {
			return err
		}

		next, changed := fn(set)
		if !changed {
			return nil
		}

		switch {
		case len(next) == 0:
			err = s.kv.Delete(ctx, nk, jetstream.LastRevision(rev))
		case rev == 0:
			var raw []byte
			if raw, err = json.Marshal(next); err == nil {
				_, err = s.kv.Create(ctx, nk, raw)
			}
		default:
			var raw []byte
			if raw, err = json.Marshal(next); err == nil {
				_, err = s.kv.Update(ctx, nk, raw, rev)
			}
		}
		if err == nil {
			return nil
		}
		if !isRevisionConflict(err) {
			return fmt.Errorf("update set %s: %w", key, err)
		}
		casConflicts.WithLabelValues(s.bucket).Inc()
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("update set %s after %d attempts: %w", key, s.retries, ErrConflict)
}

func isRevisionConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

func (s *NATS) Keys(ctx context.Context, prefix string) ([]string, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	keys := []string{}
	for nk := range lister.Keys() {
		key, err := DecodeKey(nk)
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Apply runs ops in order and stops at the first failure.
func (s *NATS) Apply(ctx context.Context, ops ...Op) error {
	if err := validateOps(ops); err != nil {
		return err
	}
	for i, op := range ops {
		var err error
		switch op.Kind {
		case OpPut:
			err = s.Put(ctx, op.Key, op.Value)
		case OpDelete:
			err = s.Delete(ctx, op.Key)
		case OpSetAdd:
			err = s.SetAdd(ctx, op.Key, op.Members...)
		case OpSetRemove:
			err = s.SetRemove(ctx, op.Key, op.Members...)
		}
		if err != nil {
			return fmt.Errorf("apply op %d of %d (%s): %w", i+1, len(ops), op.Kind, err)
		}
	}
	return nil
}

// Close is a no-op; the connection belongs to the caller.
func (s *NATS) Close() error {
	return nil
}
