// Package auth handles accounts and login sessions.
//
// Passwords are hashed with bcrypt. A session is an opaque random id stored
// in the session store, which expires entries after the session TTL. The id
// travels in an HttpOnly cookie; RequireSession resolves it on each request.
// Sessions are never renewed.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fyrsmithlabs/fitlog/internal/config"
	"github.com/fyrsmithlabs/fitlog/internal/keyspace"
	"github.com/fyrsmithlabs/fitlog/internal/kvstore"
	"github.com/fyrsmithlabs/fitlog/internal/model"
)

const instrumentationName = "github.com/fyrsmithlabs/fitlog/internal/auth"

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

var (
	ErrInvalidInput       = errors.New("invalid username or password format")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoSession          = errors.New("no active session")
)

// Config configures accounts and sessions.
type Config struct {
	BcryptCost     int
	SessionTTL     time.Duration
	MinUsernameLen int
	MinPasswordLen int
}

// DefaultConfig returns the standard account rules.
func DefaultConfig() *Config {
	return &Config{
		BcryptCost:     bcrypt.DefaultCost,
		SessionTTL:     30 * 24 * time.Hour,
		MinUsernameLen: 3,
		MinPasswordLen: 6,
	}
}

// FromAppConfig maps the auth section of the application config.
func FromAppConfig(app config.AuthConfig) *Config {
	cfg := DefaultConfig()
	if app.BcryptCost != 0 {
		cfg.BcryptCost = app.BcryptCost
	}
	if app.SessionTTL > 0 {
		cfg.SessionTTL = app.SessionTTL
	}
	if app.MinUsernameLen > 0 {
		cfg.MinUsernameLen = app.MinUsernameLen
	}
	if app.MinPasswordLen > 0 {
		cfg.MinPasswordLen = app.MinPasswordLen
	}
	return cfg
}

// SettingsSeeder stores default settings for a new account.
type SettingsSeeder interface {
	Seed(ctx context.Context, userID string) error
}

// Service manages accounts and sessions.
type Service interface {
	// Register creates an account and seeds its settings.
	Register(ctx context.Context, username, password string) (*model.User, error)

	// Authenticate verifies credentials.
	Authenticate(ctx context.Context, username, password string) (*model.User, error)

	// CreateSession starts a session for user and returns its id.
	CreateSession(ctx context.Context, user *model.User) (string, *model.Session, error)

	// ResolveSession returns the live session for id or ErrNoSession.
	ResolveSession(ctx context.Context, sessionID string) (*model.Session, error)

	// DeleteSession ends a session. Unknown ids are ignored.
	DeleteSession(ctx context.Context, sessionID string) error
}

// Option configures the service.
type Option func(*service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	config   *Config
	users    kvstore.Store
	sessions kvstore.Store
	seeder   SettingsSeeder
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	// dummyHash keeps unknown-user logins as slow as wrong passwords.
	dummyHash []byte
}

// NewService creates the account service. users holds user records;
// sessions must expire entries after cfg.SessionTTL.
func NewService(cfg *Config, users, sessions kvstore.Store, seeder SettingsSeeder, logger *zap.Logger, opts ...Option) (Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if users == nil || sessions == nil {
		return nil, errors.New("user and session stores are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("fitlog-dummy-password"), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt cost %d: %w", cfg.BcryptCost, err)
	}

	s := &service{
		config:    cfg,
		users:     users,
		sessions:  sessions,
		seeder:    seeder,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		now:       time.Now,
		dummyHash: dummy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) validate(username, password string) error {
	if utf8.RuneCountInString(username) < s.config.MinUsernameLen {
		return fmt.Errorf("%w: username must be at least %d characters", ErrInvalidInput, s.config.MinUsernameLen)
	}
	if strings.ContainsRune(username, ':') || strings.IndexFunc(username, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return fmt.Errorf("%w: username may not contain spaces, control characters or ':'", ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < s.config.MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, s.config.MinPasswordLen)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	return nil
}

func (s *service) Register(ctx context.Context, username, password string) (*model.User, error) {
	ctx, span := s.tracer.Start(ctx, "auth.register")
	defer span.End()

	if err := s.validate(username, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	raw, err := kvstore.Encode(user)
	if err != nil {
		return nil, err
	}

	err = s.users.Create(ctx, keyspace.User(username), raw)
	if errors.Is(err, kvstore.ErrExists) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("storing user: %w", err)
	}
	if err := s.users.Put(ctx, keyspace.UserByID(user.ID), raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("storing user by id: %w", err)
	}

	if s.seeder != nil {
		if err := s.seeder.Seed(ctx, user.ID); err != nil {
			s.logger.Warn("failed to seed default settings", zap.String("user.id", user.ID), zap.Error(err))
		}
	}

	s.logger.Info("user registered", zap.String("user.id", user.ID), zap.String("username", username))
	return user, nil
}

func (s *service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	ctx, span := s.tracer.Start(ctx, "auth.authenticate")
	defer span.End()

	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	key := keyspace.User(username)
	raw, err := s.users.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reading user: %w", err)
	}

	user, err := kvstore.Decode[model.User](key, raw)
	if err != nil {
		s.logger.Error("stored user unreadable", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *service) CreateSession(ctx context.Context, user *model.User) (string, *model.Session, error) {
	if user == nil || user.ID == "" {
		return "", nil, errors.New("user is required")
	}

	now := s.now().UTC()
	sess := &model.Session{
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.SessionTTL),
	}
	raw, err := kvstore.Encode(sess)
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	if err := s.sessions.Put(ctx, keyspace.Session(id), raw); err != nil {
		return "", nil, fmt.Errorf("storing session: %w", err)
	}
	return id, sess, nil
}

func (s *service) ResolveSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrNoSession
	}

	key := keyspace.Session(sessionID)
	raw, err := s.sessions.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	sess, err := kvstore.Decode[model.Session](key, raw)
	if err != nil {
		s.logger.Warn("stored session unreadable", zap.Error(err))
		return nil, ErrNoSession
	}
	if sess.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, ErrNoSession
	}
	return sess, nil
}

func (s *service) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, keyspace.Session(sessionID)); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
