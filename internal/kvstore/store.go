// Package kvstore is fitlog's key-value store adapter.
//
// A Store holds JSON records by string key plus index sets: JSON arrays of
// record ids kept under their own keys. Two backends implement Store: NATS
// JetStream KeyValue (production) and an in-memory map (tests and
// single-process development).
//
// Keys use ':' separated segments (see the keyspace package). Backends that
// cannot store ':' in keys translate them transparently.
//
// Expiring entries are modeled per store: a Store opened with a TTL expires
// every entry that long after its last write. Sessions live in their own
// store for this reason.
//
// Multi-key writes go through Apply. The memory backend applies a batch
// atomically; the NATS backend applies operations in order and stops at the
// first failure, so callers order their operations so that a partial batch
// leaves state that read repair can fix.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// ErrExists is returned by Create when the key already exists.
var ErrExists = errors.New("key already exists")

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("store closed")

// ErrConflict is returned when an index set could not be updated because of
// concurrent writers after all retries.
var ErrConflict = errors.New("concurrent update conflict")

// Store is a key-value store with index set support.
type Store interface {
	// Get returns the value at key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes value at key, replacing any existing value.
	Put(ctx context.Context, key string, value []byte) error

	// Create writes value at key only if key does not exist, returning
	// ErrExists otherwise.
	Create(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// SetAdd adds members to the set at key, creating it if needed.
	SetAdd(ctx context.Context, key string, members ...string) error

	// SetRemove removes members from the set at key. An emptied set is deleted.
	SetRemove(ctx context.Context, key string, members ...string) error

	// SetMembers returns the set's members in insertion order. A missing set
	// is empty.
	SetMembers(ctx context.Context, key string) ([]string, error)

	// Keys returns every key beginning with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Apply runs a batch of operations.
	Apply(ctx context.Context, ops ...Op) error

	// Close releases backend resources.
	Close() error
}

// OpKind is the type of a batched operation.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
	OpSetAdd
	OpSetRemove
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	case OpSetAdd:
		return "set_add"
	case OpSetRemove:
		return "set_remove"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is one operation in an Apply batch.
type Op struct {
	Kind    OpKind
	Key     string
	Value   []byte
	Members []string
}

// PutOp writes value at key.
func PutOp(key string, value []byte) Op {
	return Op{Kind: OpPut, Key: key, Value: value}
}

// DeleteOp removes key.
func DeleteOp(key string) Op {
	return Op{Kind: OpDelete, Key: key}
}

// SetAddOp adds members to the set at key.
func SetAddOp(key string, members ...string) Op {
	return Op{Kind: OpSetAdd, Key: key, Members: members}
}

// SetRemoveOp removes members from the set at key.
func SetRemoveOp(key string, members ...string) Op {
	return Op{Kind: OpSetRemove, Key: key, Members: members}
}

func validateOps(ops []Op) error {
	for i, op := range ops {
		if op.Key == "" {
			return fmt.Errorf("op %d (%s): empty key", i, op.Kind)
		}
		if op.Kind < OpPut || op.Kind > OpSetRemove {
			return fmt.Errorf("op %d: unknown kind %s", i, op.Kind)
		}
	}
	return nil
}

// addMembers appends members not already in set, preserving order.
func addMembers(set []string, members []string) ([]string, bool) {
	seen := make(map[string]bool, len(set))
	for _, m := range set {
		seen[m] = true
	}
	changed := false
	for _, m := range members {
		if !seen[m] {
			seen[m] = true
			set = append(set, m)
			changed = true
		}
	}
	return set, changed
}

// removeMembers drops members from set, preserving order.
func removeMembers(set []string, members []string) ([]string, bool) {
	drop := make(map[string]bool, len(members))
	for _, m := range members {
		drop[m] = true
	}
	out := make([]string, 0, len(set))
	for _, m := range set {
		if !drop[m] {
			out = append(out, m)
		}
	}
	return out, len(out) != len(set)
}
