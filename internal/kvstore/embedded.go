package kvstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// StartEmbedded runs an in-process NATS server with JetStream enabled,
// listening on a random loopback port. dataDir holds JetStream files.
func StartEmbedded(dataDir string) (*server.Server, error) {
	opts := &server.Options{
		ServerName: "fitlog-embedded",
		Host:       "127.0.0.1",
		Port:       -1,
		NoLog:      true,
		NoSigs:     true,
		JetStream:  true,
		StoreDir:   dataDir,
	}

	srv, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("embedded nats: %w", err)
	}
	go srv.Start()

	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		return nil, errors.New("embedded nats: server not ready after 5s")
	}
	return srv, nil
}
