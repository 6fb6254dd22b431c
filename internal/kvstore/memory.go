package kvstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store. Batches are applied atomically.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
	closed  bool
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithTTL expires entries ttl after their last write.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{entries: make(map[string]memEntry), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lookup returns the live entry at key. Callers hold mu.
func (m *Memory) lookup(key string) ([]byte, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

func (m *Memory) write(key string, value []byte) {
	e := memEntry{value: append([]byte(nil), value...)}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[key] = e
}

func (m *Memory) members(key string) ([]string, error) {
	raw, ok := m.lookup(key)
	if !ok {
		return nil, nil
	}
	return decodeSet(key, raw)
}

func (m *Memory) writeSet(key string, members []string) error {
	if len(members) == 0 {
		delete(m.entries, key)
		return nil
	}
	raw, err := json.Marshal(members)
	if err != nil {
		return err
	}
	m.write(key, raw)
	return nil
}

func (m *Memory) checkOpen() error {
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	v, ok := m.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	return m.Apply(ctx, PutOp(key, value))
}

func (m *Memory) Create(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return err
	}
	if _, ok := m.lookup(key); ok {
		return ErrExists
	}
	m.write(key, value)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	return m.Apply(ctx, DeleteOp(key))
}

func (m *Memory) SetAdd(ctx context.Context, key string, members ...string) error {
	return m.Apply(ctx, SetAddOp(key, members...))
}

func (m *Memory) SetRemove(ctx context.Context, key string, members ...string) error {
	return m.Apply(ctx, SetRemoveOp(key, members...))
}

func (m *Memory) SetMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	members, err := m.members(key)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []string{}
	}
	return members, nil
}

func (m *Memory) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	keys := []string{}
	for k := range m.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, ok := m.lookup(k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Apply runs ops against a copy of the affected entries and commits them
// only if every op succeeds.
func (m *Memory) Apply(ctx context.Context, ops ...Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateOps(ops); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return err
	}

	backup := make(map[string]*memEntry, len(ops))
	for _, op := range ops {
		if _, saved := backup[op.Key]; saved {
			continue
		}
		if e, ok := m.entries[op.Key]; ok {
			backup[op.Key] = &e
		} else {
			backup[op.Key] = nil
		}
	}

	if err := m.applyLocked(ops); err != nil {
		for k, e := range backup {
			if e == nil {
				delete(m.entries, k)
			} else {
				m.entries[k] = *e
			}
		}
		return err
	}
	return nil
}

func (m *Memory) applyLocked(ops []Op) error {
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			m.write(op.Key, op.Value)
		case OpDelete:
			delete(m.entries, op.Key)
		case OpSetAdd, OpSetRemove:
			set, err := m.members(op.Key)
			if err != nil {
				return err
			}
			var changed bool
			if op.Kind == OpSetAdd {
				set, changed = addMembers(set, op.Members)
			} else {
				set, changed = removeMembers(set, op.Members)
			}
			if !changed {
				continue
			}
			if err := m.writeSet(op.Key, set); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close marks the store closed. Later calls return ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
