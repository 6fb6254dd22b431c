package checkin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/fitlog/internal/keyspace"
	"github.com/fyrsmithlabs/fitlog/internal/kvstore"
)

func TestReconcile_RestoresDroppedIndexEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.create(t, "u1", "2024-03-15", "跑步")

	// Simulate a batch that stopped after the primary write.
	require.NoError(t, f.store.SetRemove(ctx, keyspace.UserCheckins("u1"), rec.ID))
	require.NoError(t, f.store.SetRemove(ctx, keyspace.DateCheckins("u1", "2024-03-15"), rec.ID))

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, &ReconcileReport{Scanned: 1, Added: 2}, report)

	recs, err := f.svc.ListByDate(ctx, "u1", rec.Date)
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, ids(recs))
	f.tel.AssertSpanExists(t, "checkin.reconcile")
}

func TestReconcile_PrunesStaleMemberships(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.create(t, "u1", "2024-03-15", "跑步")

	require.NoError(t, f.store.SetAdd(ctx, keyspace.UserCheckins("u1"), "ghost"))
	require.NoError(t, f.store.SetAdd(ctx, keyspace.DateCheckins("u1", "2024-03-16"), rec.ID))
	require.NoError(t, f.store.SetAdd(ctx, keyspace.UserCheckins("u2"), rec.ID))

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Pruned)
	assert.Zero(t, report.Added)

	members, err := f.store.SetMembers(ctx, keyspace.UserCheckins("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, members)

	keys, err := f.store.Keys(ctx, keyspace.DateCheckinsPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{keyspace.DateCheckins("u1", "2024-03-15")}, keys)
}

func TestReconcile_KeepsMalformedRecordsIndexed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Apply(ctx,
		kvstore.PutOp(keyspace.Checkin("bad"), []byte(`{"id":`)),
		kvstore.SetAddOp(keyspace.UserCheckins("u1"), "bad"),
	))

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Malformed)
	assert.Zero(t, report.Pruned)

	members, err := f.store.SetMembers(ctx, keyspace.UserCheckins("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bad"}, members)
}

func TestReconcile_ConsistentStoreIsUnchanged(t *testing.T) {
	f := newFixture(t)
	f.create(t, "u1", "2024-03-15", "跑步")
	f.create(t, "u1", "2024-04-01", "瑜伽")
	f.create(t, "u2", "2024-03-15", "游泳")

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ReconcileReport{Scanned: 3}, report)
}
