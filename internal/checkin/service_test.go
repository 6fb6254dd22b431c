package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/fitlog/internal/keyspace"
	"github.com/fyrsmithlabs/fitlog/internal/kvstore"
	"github.com/fyrsmithlabs/fitlog/internal/logging"
	"github.com/fyrsmithlabs/fitlog/internal/model"
	"github.com/fyrsmithlabs/fitlog/internal/telemetry"
)

type fixture struct {
	svc   Service
	store *kvstore.Memory
	logs  *logging.TestLogger
	tel   *telemetry.TestTelemetry
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: kvstore.NewMemory(),
		logs:  logging.NewTestLogger(),
		tel:   telemetry.NewTestTelemetry(),
		now:   time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time {
		f.now = f.now.Add(time.Minute)
		return f.now
	}
	svc, err := NewService(f.store, f.logs.Underlying(),
		WithClock(clock),
		WithTelemetry(f.tel.Tracer(instrumentationName), f.tel.Meter(instrumentationName)),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) create(t *testing.T, userID, date, exercise string) *model.CheckinRecord {
	t.Helper()
	d, err := model.ParseDate(date)
	require.NoError(t, err)
	rec, err := f.svc.Create(context.Background(), &CreateRequest{
		UserID:       userID,
		Date:         d,
		ExerciseType: exercise,
		Duration:     30,
	})
	require.NoError(t, err)
	return rec
}

func ids(recs []*model.CheckinRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, &CreateRequest{
		UserID:       "u1",
		Date:         model.NewDate(2024, time.March, 15),
		ExerciseType: " 跑步 ",
		Duration:     30,
		Note:         "easy pace",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "跑步", rec.ExerciseType)
	assert.Equal(t, "easy pace", rec.Note)
	assert.False(t, rec.CreatedAt.IsZero())

	raw, err := f.store.Get(ctx, keyspace.Checkin(rec.ID))
	require.NoError(t, err)
	stored, err := kvstore.Decode[model.CheckinRecord]("k", raw)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, stored.ID)
	assert.Equal(t, "2024-03-15", stored.Date.String())

	userSet, err := f.store.SetMembers(ctx, keyspace.UserCheckins("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, userSet)
	dateSet, err := f.store.SetMembers(ctx, keyspace.DateCheckins("u1", "2024-03-15"))
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, dateSet)

	f.tel.AssertSpanExists(t, "checkin.create")
	assert.Equal(t, int64(1), f.tel.CounterValue(t, "fitlog.checkin.created_total"))
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	date := model.NewDate(2024, time.March, 15)

	tests := map[string]*CreateRequest{
		"nil request":   nil,
		"no user":       {Date: date, ExerciseType: "跑步", Duration: 30},
		"no date":       {UserID: "u1", ExerciseType: "跑步", Duration: 30},
		"blank type":    {UserID: "u1", Date: date, ExerciseType: "  ", Duration: 30},
		"zero duration": {UserID: "u1", Date: date, ExerciseType: "跑步"},
		"negative":      {UserID: "u1", Date: date, ExerciseType: "跑步", Duration: -5},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	keys, err := f.store.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCreate_MultiplePerDay(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "u1", "2024-03-15", "跑步")
	b := f.create(t, "u1", "2024-03-15", "瑜伽")

	recs, err := f.svc.ListByDate(context.Background(), "u1", model.NewDate(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(recs))
}

func TestList_AppearsOnlyInItsMonthAndDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.create(t, "u1", "2024-03-15", "跑步")
	f.create(t, "u2", "2024-03-15", "跑步")

	march, err := f.svc.ListByMonth(ctx, "u1", 2024, time.March)
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, ids(march))

	for _, m := range []struct {
		year  int
		month time.Month
	}{{2024, time.February}, {2024, time.April}, {2023, time.March}} {
		other, err := f.svc.ListByMonth(ctx, "u1", m.year, m.month)
		require.NoError(t, err)
		assert.Empty(t, other)
	}

	day, err := f.svc.ListByDate(ctx, "u1", model.NewDate(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, ids(day))

	nextDay, err := f.svc.ListByDate(ctx, "u1", model.NewDate(2024, 3, 16))
	require.NoError(t, err)
	assert.Empty(t, nextDay)
}

func TestListByMonth_SortedByDateThenCreation(t *testing.T) {
	f := newFixture(t)
	late := f.create(t, "u1", "2024-03-20", "跑步")
	early1 := f.create(t, "u1", "2024-03-02", "跑步")
	mid := f.create(t, "u1", "2024-03-10", "游泳")
	early2 := f.create(t, "u1", "2024-03-02", "瑜伽")

	recs, err := f.svc.ListByMonth(context.Background(), "u1", 2024, time.March)
	require.NoError(t, err)
	assert.Equal(t, []string{early1.ID, early2.ID, mid.ID, late.ID}, ids(recs))

	for i := 1; i < len(recs); i++ {
		prev, cur := recs[i-1], recs[i]
		assert.True(t, prev.Date.Before(cur.Date) ||
			(prev.Date == cur.Date && !cur.CreatedAt.Before(prev.CreatedAt)))
	}
}

func TestList_EmptyForUnknownUser(t *testing.T) {
	f := newFixture(t)
	recs, err := f.svc.ListByMonth(context.Background(), "nobody", 2024, time.March)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestDelete_RemovesBothIndexesAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.create(t, "u1", "2024-03-15", "跑步")
	keep := f.create(t, "u1", "2024-03-15", "瑜伽")

	require.NoError(t, f.svc.Delete(ctx, rec.ID, "u1"))

	_, err := f.store.Get(ctx, keyspace.Checkin(rec.ID))
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	userSet, _ := f.store.SetMembers(ctx, keyspace.UserCheckins("u1"))
	assert.Equal(t, []string{keep.ID}, userSet)
	dateSet, _ := f.store.SetMembers(ctx, keyspace.DateCheckins("u1", "2024-03-15"))
	assert.Equal(t, []string{keep.ID}, dateSet)

	require.NoError(t, f.svc.Delete(ctx, rec.ID, "u1"), "second delete is a no-op")
	require.NoError(t, f.svc.Delete(ctx, "never-existed", "u1"))
	assert.Equal(t, int64(1), f.tel.CounterValue(t, "fitlog.checkin.deleted_total"))
}

func TestDelete_OtherUsersRecordIsUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.create(t, "u1", "2024-03-15", "跑步")

	require.NoError(t, f.svc.Delete(ctx, rec.ID, "intruder"))

	recs, err := f.svc.ListByDate(ctx, "u1", rec.Date)
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, ids(recs))
	f.logs.AssertLogged(t, zapcore.WarnLevel, "owned by another user")
}

func TestDelete_MalformedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Apply(ctx,
		kvstore.PutOp(keyspace.Checkin("bad"), []byte(`{"id":"bad"`)),
		kvstore.SetAddOp(keyspace.UserCheckins("u1"), "bad"),
	))

	require.NoError(t, f.svc.Delete(ctx, "bad", "u2"))
	_, err := f.store.Get(ctx, keyspace.Checkin("bad"))
	require.NoError(t, err, "not in u2's index, so not deleted")

	require.NoError(t, f.svc.Delete(ctx, "bad", "u1"))
	_, err = f.store.Get(ctx, keyspace.Checkin("bad"))
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestList_SkipsMalformedRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := f.create(t, "u1", "2024-03-15", "跑步")

	put := func(id, raw string) {
		require.NoError(t, f.store.Apply(ctx,
			kvstore.PutOp(keyspace.Checkin(id), []byte(raw)),
			kvstore.SetAddOp(keyspace.UserCheckins("u1"), id),
			kvstore.SetAddOp(keyspace.DateCheckins("u1", "2024-03-15"), id),
		))
	}
	put("broken", `{not json`)
	put("no-type", `{"id":"no-type","userId":"u1","date":"2024-03-15","duration":20}`)
	put("no-duration", `{"id":"no-duration","userId":"u1","date":"2024-03-15","exerciseType":"跑步"}`)
	put("foreign", `{"id":"foreign","userId":"u2","date":"2024-03-15","exerciseType":"跑步","duration":20}`)
	// A JSON string wrapping the record is a valid representation.
	put("wrapped", `"{\"id\":\"wrapped\",\"userId\":\"u1\",\"date\":\"2024-03-15\",\"exerciseType\":\"游泳\",\"duration\":40,\"createdAt\":\"2024-03-15T23:00:00Z\"}"`)

	recs, err := f.svc.ListByMonth(ctx, "u1", 2024, time.March)
	require.NoError(t, err)
	assert.Equal(t, []string{good.ID, "wrapped"}, ids(recs))

	recs, err = f.svc.ListByDate(ctx, "u1", good.Date)
	require.NoError(t, err)
	assert.Equal(t, []string{good.ID, "wrapped"}, ids(recs))

	f.logs.AssertLogged(t, zapcore.WarnLevel, "skipping malformed checkin")
	assert.Positive(t, f.tel.CounterValue(t, "fitlog.checkin.skipped_total", attribute.String("reason", "malformed")))
}

func TestList_PrunesDanglingIndexIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.create(t, "u1", "2024-03-15", "跑步")
	require.NoError(t, f.store.SetAdd(ctx, keyspace.UserCheckins("u1"), "ghost"))

	recs, err := f.svc.ListByMonth(ctx, "u1", 2024, time.March)
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, ids(recs))

	userSet, err := f.store.SetMembers(ctx, keyspace.UserCheckins("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, userSet)
}
