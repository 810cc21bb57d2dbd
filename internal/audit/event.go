// Package audit provides an append-only log of schema lifecycle and
// authentication events, fanned out to a pluggable Sink (Cassandra or
// syslog), generalizing the teacher's internal/auth audit logger from
// HTTP-request auditing of a Confluent subject/version surface to the
// content-addressed registry's own operations (SPEC_FULL.md §2).
package audit

import "time"

// EventType names the kind of event recorded.
type EventType string

const (
	EventSchemaRegister EventType = "schema_register"
	EventSchemaDelete   EventType = "schema_delete"
	EventSchemaGet      EventType = "schema_get"
	EventPurgeDatabase  EventType = "purge_database"
	EventAuthSuccess    EventType = "auth_success"
	EventAuthFailure    EventType = "auth_failure"
	EventAuthForbidden  EventType = "auth_forbidden"
)

// Event is a single audit log entry.
type Event struct {
	Timestamp  time.Time
	EventType  EventType
	User       string
	ClientIP   string
	Method     string
	Path       string
	StatusCode int
	Duration   time.Duration
	SchemaID   string
	Error      string
}
