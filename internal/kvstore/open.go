package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/fitlog/internal/config"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Stores holds the record store and the session store of one backend.
// Sessions expire after the TTL passed to Open.
type Stores struct {
	Data     Store
	Sessions Store

	conn   *nats.Conn
	server *server.Server
}

// Open builds both stores from configuration.
func Open(ctx context.Context, cfg config.StoreConfig, sessionTTL time.Duration, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case "memory":
		logger.Info("using in-memory store")
		return &Stores{
			Data:     Instrument(NewMemory(), "memory"),
			Sessions: Instrument(NewMemory(WithTTL(sessionTTL)), "memory_sessions"),
		}, nil
	case "nats":
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	st := &Stores{}
	url := cfg.URL
	if cfg.Embedded {
		srv, err := StartEmbedded(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		st.server = srv
		url = srv.ClientURL()
		logger.Info("started embedded NATS server",
			zap.String("url", url),
			zap.String("data_dir", cfg.DataDir),
		)
	}

	opts := []nats.Option{
		nats.Name("fitlogd"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.Token.IsSet() {
		opts = append(opts, nats.Token(cfg.Token.Value()))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	st.conn = nc
	logger.Info("connected to NATS", zap.String("url", url))

	data, err := OpenNATS(ctx, nc, NATSConfig{Bucket: cfg.Bucket, Replicas: cfg.Replicas})
	if err != nil {
		st.Close()
		return nil, err
	}
	sessions, err := OpenNATS(ctx, nc, NATSConfig{Bucket: cfg.SessionBucket, Replicas: cfg.Replicas, TTL: sessionTTL})
	if err != nil {
		st.Close()
		return nil, err
	}

	st.Data = Instrument(data, cfg.Bucket)
	st.Sessions = Instrument(sessions, cfg.SessionBucket)
	return st, nil
}

// Ping reports whether the backend is reachable.
func (s *Stores) Ping() error {
	if s.conn == nil {
		return nil
	}
	if !s.conn.IsConnected() {
		return errors.New("nats: not connected")
	}
	return nil
}

// Close closes both stores, the NATS connection and any embedded server.
func (s *Stores) Close() error {
	var errs []error
	for _, st := range []Store{s.Data, s.Sessions} {
		if st != nil {
			if err := st.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if s.conn != nil {
		s.conn.Close()
	}
	if s.server != nil {
		s.server.Shutdown()
		s.server.WaitForShutdown()
	}
	return errors.Join(errs...)
}
