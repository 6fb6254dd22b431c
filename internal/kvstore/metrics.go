package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal counts store calls.
	// Labels: store (bucket or memory name), op, result (ok, not_found, exists, error)
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitlog",
			Subsystem: "kvstore",
			Name:      "operations_total",
			Help:      "Total number of key-value store operations",
		},
		[]string{"store", "op", "result"},
	)

	// operationDuration tracks store call latency.
	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fitlog",
			Subsystem: "kvstore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of key-value store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"store", "op"},
	)

	// casConflicts counts index set revision conflicts that forced a retry.
	casConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitlog",
			Subsystem: "kvstore",
			Name:      "cas_conflicts_total",
			Help:      "Total number of index set compare-and-swap conflicts",
		},
		[]string{"store"},
	)
)

// Instrument wraps s so every call is counted and timed under name.
func Instrument(s Store, name string) Store {
	return &instrumented{Store: s, name: name}
}

type instrumented struct {
	Store
	name string
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrExists):
		result = "exists"
	case err != nil:
		result = "error"
	}
	operationsTotal.WithLabelValues(i.name, op, result).Inc()
	operationDuration.WithLabelValues(i.name, op).Observe(time.Since(start).Seconds())
}

func (i *instrumented) Get(ctx context.Context, key string) (v []byte, err error) {
	defer func(start time.Time) { i.observe("get", start, err) }(time.Now())
	return i.Store.Get(ctx, key)
}

func (i *instrumented) Put(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { i.observe("put", start, err) }(time.Now())
	return i.Store.Put(ctx, key, value)
}

func (i *instrumented) Create(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { i.observe("create", start, err) }(time.Now())
	return i.Store.Create(ctx, key, value)
}

func (i *instrumented) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { i.observe("delete", start, err) }(time.Now())
	return i.Store.Delete(ctx, key)
}

func (i *instrumented) SetAdd(ctx context.Context, key string, members ...string) (err error) {
	defer func(start time.Time) { i.observe("set_add", start, err) }(time.Now())
	return i.Store.SetAdd(ctx, key, members...)
}

func (i *instrumented) SetRemove(ctx context.Context, key string, members ...string) (err error) {
	defer func(start time.Time) { i.observe("set_remove", start, err) }(time.Now())
	return i.Store.SetRemove(ctx, key, members...)
}

func (i *instrumented) SetMembers(ctx context.Context, key string) (m []string, err error) {
	defer func(start time.Time) { i.observe("set_members", start, err) }(time.Now())
	return i.Store.SetMembers(ctx, key)
}

func (i *instrumented) Keys(ctx context.Context, prefix string) (k []string, err error) {
	defer func(start time.Time) { i.observe("keys", start, err) }(time.Now())
	return i.Store.Keys(ctx, prefix)
}

func (i *instrumented) Apply(ctx context.Context, ops ...Op) (err error) {
	defer func(start time.Time) { i.observe("apply", start, err) }(time.Now())
	return i.Store.Apply(ctx, ops...)
}
