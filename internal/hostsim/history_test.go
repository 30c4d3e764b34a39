package hostsim

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(filepath.Join(t.TempDir(), "db"))
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestHistory_RecentReturnsOldestFirst(t *testing.T) {
	db := openTestDB(t)
	h := NewHistory(db, zaptest.NewLogger(t), 0)

	h.Record(Event{Kind: EventKindKscan, Position: 1, Pressed: true, Timestamp: time.Now()})
	h.Record(Event{Kind: EventKindKscan, Position: 2, Pressed: true, Timestamp: time.Now()})
	h.Record(Event{Kind: EventKindKscan, Position: 3, Pressed: false, Timestamp: time.Now()})

	events, err := h.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, uint32(1), events[0].Position)
	require.Equal(t, uint32(2), events[1].Position)
	require.Equal(t, uint32(3), events[2].Position)
}

func TestHistory_PrunesBeyondLimit(t *testing.T) {
	db := openTestDB(t)
	h := NewHistory(db, zaptest.NewLogger(t), 3)

	for i := uint32(0); i < 5; i++ {
		h.Record(Event{Kind: EventKindKscan, Position: i, Timestamp: time.Now()})
	}

	events, err := h.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, uint32(2), events[0].Position)
	require.Equal(t, uint32(3), events[1].Position)
	require.Equal(t, uint32(4), events[2].Position)
}

func TestHistory_RecentRespectsN(t *testing.T) {
	db := openTestDB(t)
	h := NewHistory(db, zaptest.NewLogger(t), 0)

	for i := uint32(0); i < 5; i++ {
		h.Record(Event{Kind: EventKindKscan, Position: i, Timestamp: time.Now()})
	}

	events, err := h.Recent(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, uint32(3), events[0].Position)
	require.Equal(t, uint32(4), events[1].Position)
}

func TestHistory_SurvivesReopenAndContinuesSequence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	require.NoError(t, err)
	h := NewHistory(db, zaptest.NewLogger(t), 0)
	h.Record(Event{Kind: EventKindKscan, Position: 1, Timestamp: time.Now()})
	require.NoError(t, db.Close())

	db2, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db2.Close() })
	h2 := NewHistory(db2, zaptest.NewLogger(t), 0)
	h2.Record(Event{Kind: EventKindKscan, Position: 2, Timestamp: time.Now()})

	events, err := h2.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, uint32(1), events[0].Position)
	require.Equal(t, uint32(2), events[1].Position)
}
