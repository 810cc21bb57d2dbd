// Package syslogsink is a syslog-backed audit.Sink, an alternative to
// cassandrasink for deployments that already centralize logs through
// syslog rather than a Cassandra cluster.
package syslogsink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/RackSec/srslog"

	"github.com/ovis-hpc/ldms-registry/internal/audit"
)

// Sink writes audit events as JSON-encoded syslog messages.
type Sink struct {
	writer *srslog.Writer
}

// Config configures the syslog connection. Network/Address empty
// means "use the local syslog daemon".
type Config struct {
	Network string
	Address string
	Tag     string
}

// New dials the syslog destination described by cfg.
func New(cfg Config) (*Sink, error) {
	var w *srslog.Writer
	var err error
	if cfg.Network == "" && cfg.Address == "" {
		w, err = srslog.New(srslog.LOG_INFO|srslog.LOG_AUTH, cfg.Tag)
	} else {
		w, err = srslog.Dial(cfg.Network, cfg.Address, srslog.LOG_INFO|srslog.LOG_AUTH, cfg.Tag)
	}
	if err != nil {
		return nil, fmt.Errorf("syslogsink: dial: %w", err)
	}
	return &Sink{writer: w}, nil
}

// Write emits event as a JSON syslog record.
func (s *Sink) Write(_ context.Context, event audit.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("syslogsink: marshal: %w", err)
	}
	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("syslogsink: write: %w", err)
	}
	return nil
}

// Close closes the syslog connection.
func (s *Sink) Close() error {
	return s.writer.Close()
}
