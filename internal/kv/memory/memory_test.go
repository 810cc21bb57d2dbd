package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ovis-hpc/ldms-registry/internal/kv"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "a", []byte("1")))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestPutIfAbsentRejectsDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.PutIfAbsent(ctx, "a", []byte("1")))
	err := s.PutIfAbsent(ctx, "a", []byte("2"))
	require.ErrorIs(t, err, kv.ErrAlreadyExists)
}

func TestListPrefix(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "names/a/1", []byte("x")))
	require.NoError(t, s.Put(ctx, "names/a/2", []byte("y")))
	require.NoError(t, s.Put(ctx, "names/b/1", []byte("z")))

	got, err := s.ListPrefix(ctx, "names/a/")
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestDeletePrefix(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "names/a/1", []byte("x")))
	require.NoError(t, s.Put(ctx, "names/b/1", []byte("z")))
	require.NoError(t, s.DeletePrefix(ctx, "names/a/"))

	_, err := s.Get(ctx, "names/a/1")
	require.ErrorIs(t, err, kv.ErrNotFound)
	_, err = s.Get(ctx, "names/b/1")
	require.NoError(t, err)
}

func TestRegisteredWithFactory(t *testing.T) {
	require.True(t, kv.IsSupported(kv.BackendMemory))
	backend, err := kv.Create(kv.BackendMemory, nil)
	require.NoError(t, err)
	require.NotNil(t, backend)
}
