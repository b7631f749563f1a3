package badgerq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()

	q, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestEnqueueDrainRoundtrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "spec-1", "room-a", []byte(`{"room":"a"}`)))
	require.NoError(t, q.Enqueue(ctx, "spec-1", "room-b", []byte(`{"room":"b"}`)))
	require.NoError(t, q.Enqueue(ctx, "spec-2", "room-c", []byte(`{"room":"c"}`)))

	payloads, err := q.DrainAndDelete(ctx, "spec-1")
	require.NoError(t, err)
	require.Len(t, payloads, 2)

	// Another specialist's entries are untouched.
	others, err := q.DrainAndDelete(ctx, "spec-2")
	require.NoError(t, err)
	require.Len(t, others, 1)
	require.Equal(t, []byte(`{"room":"c"}`), others[0])
}

func TestDrainIsolatesSeparatorBearingIDs(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	// Ids are opaque; one id being a prefix of another must not leak entries.
	require.NoError(t, q.Enqueue(ctx, "a", "room-a", []byte(`{"room":"a"}`)))
	require.NoError(t, q.Enqueue(ctx, "a:b", "room-b", []byte(`{"room":"b"}`)))

	payloads, err := q.DrainAndDelete(ctx, "a")
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	require.Equal(t, []byte(`{"room":"a"}`), payloads[0])

	remaining, err := q.DrainAndDelete(ctx, "a:b")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, []byte(`{"room":"b"}`), remaining[0])
}

func TestDrainIsExactlyOnce(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "spec-1", "room-a", []byte("payload")))

	first, err := q.DrainAndDelete(ctx, "spec-1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := q.DrainAndDelete(ctx, "spec-1")
	require.NoError(t, err)
	require.Empty(t, second, "drained entries must not be delivered twice")
}

func TestEnqueueSameKeyOverwrites(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "spec-1", "room-a", []byte("old")))
	require.NoError(t, q.Enqueue(ctx, "spec-1", "room-a", []byte("new")))

	payloads, err := q.DrainAndDelete(ctx, "spec-1")
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	require.Equal(t, []byte("new"), payloads[0])
}

func TestDrainEmptyIsNotAnError(t *testing.T) {
	q := newTestQueue(t)

	payloads, err := q.DrainAndDelete(context.Background(), "nobody")
	require.NoError(t, err)
	require.Empty(t, payloads)
}

func TestCanceledContextReportsExpiredIdentity(t *testing.T) {
	q := newTestQueue(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.DrainAndDelete(ctx, "spec-1")
	require.Error(t, err)
}
