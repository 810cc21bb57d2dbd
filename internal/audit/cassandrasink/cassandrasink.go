// Package cassandrasink is a Cassandra-backed audit.Sink: an
// append-only table suits Cassandra's write-heavy, no-update model
// far better than the teacher's use of Cassandra as primary relational
// storage (see DESIGN.md for the repurposing rationale).
package cassandrasink

import (
	"context"
	"fmt"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	"github.com/ovis-hpc/ldms-registry/internal/audit"
)

const insertStmt = `INSERT INTO audit_events
	(id, ts, event_type, user, client_ip, method, path, status_code, duration_ms, schema_id, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Sink writes audit events to a Cassandra keyspace.
type Sink struct {
	session *gocql.Session
}

// Config configures the Cassandra connection.
type Config struct {
	Hosts       []string
	Keyspace    string
	Consistency string
}

// New opens a session against the configured cluster.
func New(cfg Config) (*Sink, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = consistencyFromString(cfg.Consistency)

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("cassandrasink: connect: %w", err)
	}
	return &Sink{session: session}, nil
}

func consistencyFromString(s string) gocql.Consistency {
	switch s {
	case "one", "ONE":
		return gocql.One
	case "quorum", "QUORUM":
		return gocql.Quorum
	case "all", "ALL":
		return gocql.All
	case "local_quorum", "LOCAL_QUORUM", "":
		return gocql.LocalQuorum
	default:
		return gocql.LocalQuorum
	}
}

// Write appends event to the audit_events table.
func (s *Sink) Write(ctx context.Context, event audit.Event) error {
	id := gocql.TimeUUID()
	q := s.session.Query(insertStmt,
		id, event.Timestamp, string(event.EventType), event.User, event.ClientIP,
		event.Method, event.Path, event.StatusCode, event.Duration.Milliseconds(),
		event.SchemaID, event.Error,
	).WithContext(ctx)
	if err := q.Exec(); err != nil {
		return fmt.Errorf("cassandrasink: write: %w", err)
	}
	return nil
}

// Close closes the underlying session.
func (s *Sink) Close() error {
	s.session.Close()
	return nil
}
