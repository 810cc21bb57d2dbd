package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Logger filters events against an enabled-set and fans surviving
// ones out to a Sink, falling back to structured logging alone if no
// Sink is configured. Grounded on the teacher's internal/auth
// AuditLogger, trimmed to the registry's own event set (no
// subject/config/mode events — those belong to the Confluent surface
// this registry doesn't have).
type Logger struct {
	sink    Sink
	log     *slog.Logger
	enabled map[EventType]bool
}

// defaultEnabled mirrors the teacher's "enable the security-relevant
// subset by default" choice: schema mutations and auth failures are
// always worth recording, plain reads are opt-in noise.
var defaultEnabled = map[EventType]bool{
	EventSchemaRegister: true,
	EventSchemaDelete:   true,
	EventPurgeDatabase:  true,
	EventAuthFailure:    true,
	EventAuthForbidden:  true,
}

// NewLogger builds a Logger. sink may be nil, in which case events
// are only written to logger. events, if non-empty, overrides the
// default enabled set.
func NewLogger(sink Sink, logger *slog.Logger, events []EventType) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	enabled := defaultEnabled
	if len(events) > 0 {
		enabled = make(map[EventType]bool, len(events))
		for _, e := range events {
			enabled[e] = true
		}
	}
	return &Logger{sink: sink, log: logger, enabled: enabled}
}

// Log records event if its type is enabled.
func (l *Logger) Log(ctx context.Context, event Event) {
	if !l.enabled[event.EventType] {
		return
	}
	l.log.Info("audit",
		"event_type", string(event.EventType),
		"user", event.User,
		"client_ip", event.ClientIP,
		"method", event.Method,
		"path", event.Path,
		"status_code", event.StatusCode,
		"duration_ms", event.Duration.Milliseconds(),
		"schema_id", event.SchemaID,
		"error", event.Error,
	)
	if l.sink == nil {
		return
	}
	if err := l.sink.Write(ctx, event); err != nil {
		l.log.Error("audit sink write failed", "error", err)
	}
}

// Close releases the underlying sink, if any.
func (l *Logger) Close() error {
	if l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

// Middleware wraps an http.Handler, recording one audit event per
// request based on method/path/status. contextUser extracts the
// authenticated username from the request, if any (supplied by
// internal/auth so this package does not depend on it).
func (l *Logger) Middleware(contextUser func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			eventType := classify(r.Method, r.URL.Path, rw.statusCode)
			if eventType == "" {
				return
			}
			user := ""
			if contextUser != nil {
				user = contextUser(r)
			}
			l.Log(r.Context(), Event{
				Timestamp:  start,
				EventType:  eventType,
				User:       user,
				ClientIP:   clientIP(r),
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: rw.statusCode,
				Duration:   time.Since(start),
				SchemaID:   schemaIDFromPath(r.URL.Path),
			})
		})
	}
}

func classify(method, path string, status int) EventType {
	if status == http.StatusUnauthorized {
		return EventAuthFailure
	}
	if status == http.StatusForbidden {
		return EventAuthForbidden
	}
	switch {
	case path == "/" && method == http.MethodPost:
		return EventSchemaRegister
	case strings.HasPrefix(path, "/schemas/ids/") && method == http.MethodDelete:
		return EventSchemaDelete
	case strings.HasPrefix(path, "/schemas/ids/") && method == http.MethodGet:
		return EventSchemaGet
	case path == "/purge" && method == http.MethodPost:
		return EventPurgeDatabase
	default:
		return ""
	}
}

func schemaIDFromPath(path string) string {
	const prefix = "/schemas/ids/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return fwd
	}
	return r.RemoteAddr
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
