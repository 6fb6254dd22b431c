// Package settings manages per-user preferences: the exercise type list and
// the weekly check-in goal.
package settings

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fitlog/internal/config"
	"github.com/fyrsmithlabs/fitlog/internal/keyspace"
	"github.com/fyrsmithlabs/fitlog/internal/kvstore"
	"github.com/fyrsmithlabs/fitlog/internal/model"
)

const instrumentationName = "github.com/fyrsmithlabs/fitlog/internal/settings"

// Service reads and writes user settings.
type Service interface {
	// Get returns the user's settings, or the defaults if none are stored.
	Get(ctx context.Context, userID string) (*model.UserSettings, error)

	// Update replaces the user's settings. Contents are not validated.
	Update(ctx context.Context, userID string, exerciseTypes []string, weeklyGoal int) error

	// Seed stores the defaults for a new user.
	Seed(ctx context.Context, userID string) error
}

// Config configures defaults.
type Config struct {
	DefaultExerciseTypes []string
	DefaultWeeklyGoal    int

	// PersistDefaultOnRead stores the defaults the first time Get finds
	// nothing.
	PersistDefaultOnRead bool
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultExerciseTypes: append([]string(nil), config.DefaultExerciseTypes...),
		DefaultWeeklyGoal:    config.DefaultWeeklyGoal,
	}
}

// FromAppConfig maps the settings section of the application config.
func FromAppConfig(app config.SettingsConfig) *Config {
	cfg := DefaultConfig()
	if app.DefaultExerciseTypes != nil {
		cfg.DefaultExerciseTypes = append([]string(nil), app.DefaultExerciseTypes...)
	}
	if app.DefaultWeeklyGoal != 0 {
		cfg.DefaultWeeklyGoal = app.DefaultWeeklyGoal
	}
	cfg.PersistDefaultOnRead = app.PersistDefaultOnRead
	return cfg
}

type service struct {
	config *Config
	store  kvstore.Store
	logger *zap.Logger
	tracer trace.Tracer
}

// NewService creates a settings service.
func NewService(cfg *Config, store kvstore.Store, logger *zap.Logger) (Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		config: cfg,
		store:  store,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}, nil
}

func (s *service) defaults(userID string) *model.UserSettings {
	return &model.UserSettings{
		UserID:        userID,
		ExerciseTypes: append([]string{}, s.config.DefaultExerciseTypes...),
		WeeklyGoal:    s.config.DefaultWeeklyGoal,
	}
}

func (s *service) Get(ctx context.Context, userID string) (*model.UserSettings, error) {
	ctx, span := s.tracer.Start(ctx, "settings.get")
	defer span.End()

	if userID == "" {
		return nil, errors.New("user id is required")
	}

	key := keyspace.Settings(userID)
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		span.SetAttributes(attribute.Bool("settings.default", true))
		def := s.defaults(userID)
		if s.config.PersistDefaultOnRead {
			if err := s.put(ctx, def); err != nil {
				s.logger.Warn("failed to persist default settings", zap.String("user.id", userID), zap.Error(err))
			}
		}
		return def, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	stored, err := kvstore.Decode[model.UserSettings](key, raw)
	if err != nil {
		s.logger.Warn("stored settings unreadable, using defaults",
			zap.String("user.id", userID),
			zap.Error(err),
		)
		span.SetAttributes(attribute.Bool("settings.default", true))
		return s.defaults(userID), nil
	}

	stored.UserID = userID
	if stored.ExerciseTypes == nil {
		stored.ExerciseTypes = []string{}
	}
	return stored, nil
}

func (s *service) Update(ctx context.Context, userID string, exerciseTypes []string, weeklyGoal int) error {
	ctx, span := s.tracer.Start(ctx, "settings.update")
	defer span.End()

	if userID == "" {
		return errors.New("user id is required")
	}
	if exerciseTypes == nil {
		exerciseTypes = []string{}
	}
	err := s.put(ctx, &model.UserSettings{
		UserID:        userID,
		ExerciseTypes: exerciseTypes,
		WeeklyGoal:    weeklyGoal,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *service) Seed(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	return s.put(ctx, s.defaults(userID))
}

func (s *service) put(ctx context.Context, st *model.UserSettings) error {
	raw, err := kvstore.Encode(st)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, keyspace.Settings(st.UserID), raw); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}
