package checkin

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fitlog/internal/keyspace"
	"github.com/fyrsmithlabs/fitlog/internal/kvstore"
	"github.com/fyrsmithlabs/fitlog/internal/model"
)

// ReconcileReport summarizes one Reconcile pass.
type ReconcileReport struct {
	Scanned   int `json:"scanned"`
	Malformed int `json:"malformed"`
	Added     int `json:"added"`
	Pruned    int `json:"pruned"`
}

func (s *service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.reconcile")
	defer span.End()

	report := &ReconcileReport{}

	keys, err := s.store.Keys(ctx, keyspace.CheckinPrefix)
	if err != nil {
		return nil, fail(span, fmt.Errorf("listing check-ins: %w", err))
	}

	// valid maps id to record; malformed ids are kept in their indexes.
	valid := make(map[string]*model.CheckinRecord, len(keys))
	malformed := make(map[string]bool)
	for _, key := range keys {
		id, ok := keyspace.CheckinID(key)
		if !ok {
			continue
		}
		report.Scanned++
		rec, err := s.load(ctx, id)
		var decErr *kvstore.DecodeError
		switch {
		case errors.Is(err, kvstore.ErrNotFound):
			continue
		case errors.As(err, &decErr):
			report.Malformed++
			malformed[id] = true
			continue
		case err != nil:
			return nil, fail(span, err)
		}
		valid[id] = rec
	}

	for _, rec := range valid {
		for _, idx := range []string{
			keyspace.UserCheckins(rec.UserID),
			keyspace.DateCheckins(rec.UserID, rec.Date.String()),
		} {
			added, err := s.ensureMember(ctx, idx, rec.ID)
			if err != nil {
				return nil, fail(span, err)
			}
			if added {
				report.Added++
			}
		}
	}

	pruned, err := s.pruneIndexes(ctx, valid, malformed)
	if err != nil {
		return nil, fail(span, err)
	}
	report.Pruned = pruned

	s.count(ctx, s.repairCounter, int64(report.Added), attribute.String("action", "added"))
	s.count(ctx, s.repairCounter, int64(report.Pruned), attribute.String("action", "pruned"))
	span.SetAttributes(
		attribute.Int("reconcile.scanned", report.Scanned),
		attribute.Int("reconcile.added", report.Added),
		attribute.Int("reconcile.pruned", report.Pruned),
	)

	if report.Added > 0 || report.Pruned > 0 || report.Malformed > 0 {
		s.logger.Info("checkin index reconciled",
			zap.Int("scanned", report.Scanned),
			zap.Int("malformed", report.Malformed),
			zap.Int("added", report.Added),
			zap.Int("pruned", report.Pruned),
		)
	}
	return report, nil
}

func (s *service) ensureMember(ctx context.Context, indexKey, id string) (bool, error) {
	members, err := s.store.SetMembers(ctx, indexKey)
	if err != nil {
		return false, fmt.Errorf("reading index %s: %w", indexKey, err)
	}
	for _, m := range members {
		if m == id {
			return false, nil
		}
	}
	if err := s.store.SetAdd(ctx, indexKey, id); err != nil {
		return false, fmt.Errorf("repairing index %s: %w", indexKey, err)
	}
	return true, nil
}

// pruneIndexes removes index ids that have no primary record or whose record
// belongs in a different index.
func (s *service) pruneIndexes(ctx context.Context, valid map[string]*model.CheckinRecord, malformed map[string]bool) (int, error) {
	pruned := 0
	for _, prefix := range []string{keyspace.UserCheckinsPrefix, keyspace.DateCheckinsPrefix} {
		indexes, err := s.store.Keys(ctx, prefix)
		if err != nil {
			return pruned, fmt.Errorf("listing indexes: %w", err)
		}
		for _, idx := range indexes {
			members, err := s.store.SetMembers(ctx, idx)
			if err != nil {
				var decErr *kvstore.DecodeError
				if errors.As(err, &decErr) {
					s.logger.Warn("skipping malformed index", zap.String("index", idx), zap.Error(err))
					continue
				}
				return pruned, err
			}

			var stale []string
			for _, id := range members {
				if malformed[id] {
					continue
				}
				rec, ok := valid[id]
				if ok && belongsTo(rec, idx) {
					continue
				}
				if !ok && s.createdSinceScan(ctx, id) {
					continue
				}
				stale = append(stale, id)
			}
			if len(stale) == 0 {
				continue
			}
			if err := s.store.SetRemove(ctx, idx, stale...); err != nil {
				return pruned, fmt.Errorf("pruning index %s: %w", idx, err)
			}
			pruned += len(stale)
		}
	}
	return pruned, nil
}

// createdSinceScan reports whether a primary record appeared after the
// primary scan, so concurrent creates are not pruned.
func (s *service) createdSinceScan(ctx context.Context, id string) bool {
	_, err := s.store.Get(ctx, keyspace.Checkin(id))
	return err == nil
}

func belongsTo(rec *model.CheckinRecord, indexKey string) bool {
	if userID, date, ok := keyspace.ParseDateCheckins(indexKey); ok {
		return rec.UserID == userID && rec.Date.String() == date
	}
	if userID, ok := keyspace.ParseUserCheckins(indexKey); ok {
		return rec.UserID == userID
	}
	return false
}
