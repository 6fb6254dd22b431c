package checkin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fitlog/internal/keyspace"
	"github.com/fyrsmithlabs/fitlog/internal/kvstore"
	"github.com/fyrsmithlabs/fitlog/internal/model"
)

const instrumentationName = "github.com/fyrsmithlabs/fitlog/internal/checkin"

// ErrInvalidInput is returned when a check-in is missing a required field.
var ErrInvalidInput = errors.New("invalid check-in")

// Service manages check-ins.
type Service interface {
	// Create stores a new check-in.
	Create(ctx context.Context, req *CreateRequest) (*model.CheckinRecord, error)

	// ListByMonth returns a user's check-ins in a month, sorted by date then
	// creation time.
	ListByMonth(ctx context.Context, userID string, year int, month time.Month) ([]*model.CheckinRecord, error)

	// ListByDate returns a user's check-ins on one day, sorted by creation
	// time.
	ListByDate(ctx context.Context, userID string, date model.Date) ([]*model.CheckinRecord, error)

	// Delete removes a check-in. Missing records and records owned by other
	// users are ignored.
	Delete(ctx context.Context, id, userID string) error

	// Reconcile repairs index sets from the primary records.
	Reconcile(ctx context.Context) (*ReconcileReport, error)
}

// CreateRequest holds the fields of a new check-in.
type CreateRequest struct {
	UserID       string
	Date         model.Date
	ExerciseType string
	Duration     int // minutes
	Note         string
}

// Validate checks required fields.
func (r *CreateRequest) Validate() error {
	switch {
	case r.UserID == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	case r.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	case strings.TrimSpace(r.ExerciseType) == "":
		return fmt.Errorf("%w: exercise type is required", ErrInvalidInput)
	case r.Duration <= 0:
		return fmt.Errorf("%w: duration must be a positive number of minutes", ErrInvalidInput)
	}
	return nil
}

// Option configures the service.
type Option func(*service)

// WithClock overrides time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithTelemetry sets the tracer and meter instead of the global providers.
func WithTelemetry(tracer trace.Tracer, meter metric.Meter) Option {
	return func(s *service) {
		s.tracer = tracer
		s.meter = meter
	}
}

type service struct {
	store  kvstore.Store
	logger *zap.Logger
	now    func() time.Time

	tracer         trace.Tracer
	meter          metric.Meter
	createdCounter metric.Int64Counter
	deletedCounter metric.Int64Counter
	skippedCounter metric.Int64Counter
	repairCounter  metric.Int64Counter
}

// NewService creates a check-in service over store.
func NewService(store kvstore.Store, logger *zap.Logger, opts ...Option) (Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &service{
		store:  store,
		logger: logger,
		now:    time.Now,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.initMetrics()
	return s, nil
}

func (s *service) initMetrics() {
	var err error

	s.createdCounter, err = s.meter.Int64Counter(
		"fitlog.checkin.created_total",
		metric.WithDescription("Total number of check-ins created"),
		metric.WithUnit("{checkin}"),
	)
	if err != nil {
		s.logger.Warn("failed to create created counter", zap.Error(err))
	}

	s.deletedCounter, err = s.meter.Int64Counter(
		"fitlog.checkin.deleted_total",
		metric.WithDescription("Total number of check-ins deleted"),
		metric.WithUnit("{checkin}"),
	)
	if err != nil {
		s.logger.Warn("failed to create deleted counter", zap.Error(err))
	}

	s.skippedCounter, err = s.meter.Int64Counter(
		"fitlog.checkin.skipped_total",
		metric.WithDescription("Stored check-ins skipped while listing, by reason"),
		metric.WithUnit("{checkin}"),
	)
	if err != nil {
		s.logger.Warn("failed to create skipped counter", zap.Error(err))
	}

	s.repairCounter, err = s.meter.Int64Counter(
		"fitlog.checkin.index_repairs_total",
		metric.WithDescription("Index memberships added or pruned by repair"),
		metric.WithUnit("{membership}"),
	)
	if err != nil {
		s.logger.Warn("failed to create repair counter", zap.Error(err))
	}
}

func (s *service) count(ctx context.Context, c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if c != nil && n > 0 {
		c.Add(ctx, n, metric.WithAttributes(attrs...))
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *service) Create(ctx context.Context, req *CreateRequest) (*model.CheckinRecord, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.create")
	defer span.End()

	if req == nil {
		return nil, fail(span, fmt.Errorf("%w: request is required", ErrInvalidInput))
	}
	if err := req.Validate(); err != nil {
		return nil, fail(span, err)
	}

	rec := &model.CheckinRecord{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		Date:         req.Date,
		ExerciseType: strings.TrimSpace(req.ExerciseType),
		Duration:     req.Duration,
		Note:         req.Note,
		CreatedAt:    s.now().UTC(),
	}
	span.SetAttributes(
		attribute.String("checkin.id", rec.ID),
		attribute.String("checkin.date", rec.Date.String()),
	)

	raw, err := kvstore.Encode(rec)
	if err != nil {
		return nil, fail(span, err)
	}

	// Primary first: a partial batch leaves only a missing index entry,
	// which Reconcile restores.
	err = s.store.Apply(ctx,
		kvstore.PutOp(keyspace.Checkin(rec.ID), raw),
		kvstore.SetAddOp(keyspace.UserCheckins(rec.UserID), rec.ID),
		kvstore.SetAddOp(keyspace.DateCheckins(rec.UserID, rec.Date.String()), rec.ID),
	)
	if err != nil {
		return nil, fail(span, fmt.Errorf("storing check-in: %w", err))
	}

	s.count(ctx, s.createdCounter, 1)
	s.logger.Debug("checkin created",
		zap.String("checkin.id", rec.ID),
		zap.String("user.id", rec.UserID),
		zap.String("date", rec.Date.String()),
	)
	return rec, nil
}

func (s *service) ListByMonth(ctx context.Context, userID string, year int, month time.Month) ([]*model.CheckinRecord, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.list_month", trace.WithAttributes(
		attribute.Int("year", year),
		attribute.Int("month", int(month)),
	))
	defer span.End()

	recs, err := s.fetchIndex(ctx, userID, keyspace.UserCheckins(userID), func(r *model.CheckinRecord) bool {
		return r.Date.InMonth(year, month)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if c := recs[i].Date.Compare(recs[j].Date); c != 0 {
			return c < 0
		}
		return byCreation(recs[i], recs[j])
	})
	span.SetAttributes(attribute.Int("checkin.count", len(recs)))
	return recs, nil
}

func (s *service) ListByDate(ctx context.Context, userID string, date model.Date) ([]*model.CheckinRecord, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.list_date", trace.WithAttributes(
		attribute.String("checkin.date", date.String()),
	))
	defer span.End()

	recs, err := s.fetchIndex(ctx, userID, keyspace.DateCheckins(userID, date.String()), func(r *model.CheckinRecord) bool {
		return r.Date == date
	})
	if err != nil {
		return nil, fail(span, err)
	}

	sort.SliceStable(recs, func(i, j int) bool { return byCreation(recs[i], recs[j]) })
	span.SetAttributes(attribute.Int("checkin.count", len(recs)))
	return recs, nil
}

func byCreation(a, b *model.CheckinRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// fetchIndex loads every record in an index set that belongs to userID and
// passes keep. Index ids without a primary record are pruned from the set.
func (s *service) fetchIndex(ctx context.Context, userID, indexKey string, keep func(*model.CheckinRecord) bool) ([]*model.CheckinRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	ids, err := s.store.SetMembers(ctx, indexKey)
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", indexKey, err)
	}

	recs := make([]*model.CheckinRecord, 0, len(ids))
	var dangling []string
	for _, id := range ids {
		rec, err := s.load(ctx, id)
		switch {
		case errors.Is(err, kvstore.ErrNotFound):
			dangling = append(dangling, id)
			continue
		case err != nil:
			var decErr *kvstore.DecodeError
			if !errors.As(err, &decErr) {
				return nil, err
			}
			s.count(ctx, s.skippedCounter, 1, attribute.String("reason", "malformed"))
			s.logger.Warn("skipping malformed checkin",
				zap.String("checkin.id", id),
				zap.Error(err),
			)
			continue
		}

		if rec.UserID != userID {
			s.count(ctx, s.skippedCounter, 1, attribute.String("reason", "foreign"))
			s.logger.Warn("skipping checkin owned by another user",
				zap.String("checkin.id", id),
				zap.String("index", indexKey),
			)
			continue
		}
		if keep(rec) {
			recs = append(recs, rec)
		}
	}

	if len(dangling) > 0 {
		s.count(ctx, s.skippedCounter, int64(len(dangling)), attribute.String("reason", "dangling"))
		if err := s.store.SetRemove(ctx, indexKey, dangling...); err != nil {
			s.logger.Warn("failed to prune dangling index ids",
				zap.String("index", indexKey),
				zap.Int("count", len(dangling)),
				zap.Error(err),
			)
		} else {
			s.count(ctx, s.repairCounter, int64(len(dangling)), attribute.String("action", "pruned"))
		}
	}
	return recs, nil
}

func (s *service) load(ctx context.Context, id string) (*model.CheckinRecord, error) {
	key := keyspace.Checkin(id)
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return kvstore.Decode[model.CheckinRecord](key, raw)
}

func (s *service) Delete(ctx context.Context, id, userID string) error {
	ctx, span := s.tracer.Start(ctx, "checkin.delete", trace.WithAttributes(
		attribute.String("checkin.id", id),
	))
	defer span.End()

	if id == "" || userID == "" {
		return fail(span, fmt.Errorf("%w: id and user id are required", ErrInvalidInput))
	}

	key := keyspace.Checkin(id)
	rec, err := s.load(ctx, id)
	var decErr *kvstore.DecodeError
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		return nil
	case errors.As(err, &decErr):
		return s.deleteMalformed(ctx, span, id, userID)
	case err != nil:
		return fail(span, fmt.Errorf("loading check-in: %w", err))
	}

	if rec.UserID != userID {
		s.logger.Warn("refusing to delete checkin owned by another user",
			zap.String("checkin.id", id),
			zap.String("user.id", userID),
		)
		return nil
	}

	err = s.store.Apply(ctx,
		kvstore.DeleteOp(key),
		kvstore.SetRemoveOp(keyspace.UserCheckins(userID), id),
		kvstore.SetRemoveOp(keyspace.DateCheckins(userID, rec.Date.String()), id),
	)
	if err != nil {
		return fail(span, fmt.Errorf("deleting check-in: %w", err))
	}

	s.count(ctx, s.deletedCounter, 1)
	return nil
}

// deleteMalformed removes an undecodable record if the user's index lists
// it. Its date index entry is left for read repair.
func (s *service) deleteMalformed(ctx context.Context, span trace.Span, id, userID string) error {
	ids, err := s.store.SetMembers(ctx, keyspace.UserCheckins(userID))
	if err != nil {
		return fail(span, fmt.Errorf("reading index: %w", err))
	}
	owned := false
	for _, m := range ids {
		if m == id {
			owned = true
			break
		}
	}
	if !owned {
		return nil
	}

	err = s.store.Apply(ctx,
		kvstore.DeleteOp(keyspace.Checkin(id)),
		kvstore.SetRemoveOp(keyspace.UserCheckins(userID), id),
	)
	if err != nil {
		return fail(span, fmt.Errorf("deleting check-in: %w", err))
	}
	s.logger.Warn("deleted malformed checkin", zap.String("checkin.id", id))
	s.count(ctx, s.deletedCounter, 1)
	return nil
}
