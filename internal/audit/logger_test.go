package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
}

func (s *recordingSink) Write(_ context.Context, event Event) error {
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func TestLogSkipsDisabledEvent(t *testing.T) {
	sink := &recordingSink{}
	l := NewLogger(sink, nil, []EventType{EventSchemaRegister})

	l.Log(context.Background(), Event{EventType: EventSchemaGet})
	require.Empty(t, sink.events)

	l.Log(context.Background(), Event{EventType: EventSchemaRegister})
	require.Len(t, sink.events, 1)
}

func TestDefaultEnabledSetExcludesPlainReads(t *testing.T) {
	sink := &recordingSink{}
	l := NewLogger(sink, nil, nil)

	l.Log(context.Background(), Event{EventType: EventSchemaGet})
	require.Empty(t, sink.events)

	l.Log(context.Background(), Event{EventType: EventSchemaDelete})
	require.Len(t, sink.events, 1)
}

func TestMiddlewareRecordsSchemaRegister(t *testing.T) {
	sink := &recordingSink{}
	l := NewLogger(sink, nil, []EventType{EventSchemaRegister})

	handler := l.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Len(t, sink.events, 1)
	require.Equal(t, EventSchemaRegister, sink.events[0].EventType)
	require.Equal(t, http.StatusCreated, sink.events[0].StatusCode)
}

func TestMiddlewareRecordsAuthFailure(t *testing.T) {
	sink := &recordingSink{}
	l := NewLogger(sink, nil, nil)

	handler := l.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	req := httptest.NewRequest(http.MethodGet, "/names", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Len(t, sink.events, 1)
	require.Equal(t, EventAuthFailure, sink.events[0].EventType)
}

func TestSchemaIDFromPath(t *testing.T) {
	require.Equal(t, "meminfo-abcd", schemaIDFromPath("/schemas/ids/meminfo-abcd"))
	require.Equal(t, "", schemaIDFromPath("/names"))
}
