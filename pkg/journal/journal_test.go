package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(context.Background(), Config{DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestNew(t *testing.T) {
	t.Run("empty dsn", func(t *testing.T) {
		_, err := New(context.Background(), Config{})
		require.Error(t, err)
	})

	t.Run("file database", func(t *testing.T) {
		dsn := t.TempDir() + "/journal.db"
		j, err := New(context.Background(), Config{DSN: dsn})
		require.NoError(t, err)
		require.NoError(t, j.Close())

		// reopen keeps schema
		j, err = New(context.Background(), Config{DSN: dsn})
		require.NoError(t, err)
		require.NoError(t, j.Close())
	})
}

func TestJournal_RecordAndList(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	base := time.Date(2025, 5, 8, 16, 0, 0, 0, time.UTC)
	first := &Entry{Candidate: "Marco Rossi", MeanScore: 6, Level: "high", ItemIDs: []string{"a::1", "b::2"},
		Message: "msg1", Sent: true, Recipients: 2, Delivered: 1, CreatedAt: base}
	second := &Entry{Candidate: "Luigi Bianchi", MeanScore: 1.5, Level: "low", Message: "msg2", CreatedAt: base.Add(time.Minute)}

	require.NoError(t, j.Record(ctx, first))
	require.NoError(t, j.Record(ctx, second))
	assert.NotZero(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	entries, err := j.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Luigi Bianchi", entries[0].Candidate)
	assert.False(t, entries[0].Sent)
	assert.Empty(t, entries[0].ItemIDs)

	got := entries[1]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "Marco Rossi", got.Candidate)
	assert.InDelta(t, 6.0, got.MeanScore, 0.0001)
	assert.Equal(t, "high", got.Level)
	assert.Equal(t, []string{"a::1", "b::2"}, got.ItemIDs)
	assert.Equal(t, "msg1", got.Message)
	assert.True(t, got.Sent)
	assert.Equal(t, 2, got.Recipients)
	assert.Equal(t, 1, got.Delivered)
	assert.True(t, base.Equal(got.CreatedAt))
}

func TestJournal_ListLimit(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, &Entry{Candidate: "c", Message: "m", CreatedAt: time.Unix(int64(i), 0)}))
	}

	entries, err := j.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, int64(4), entries[0].CreatedAt.Unix())

	entries, err = j.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestJournal_RecordSetsCreatedAt(t *testing.T) {
	j := setupTestJournal(t)
	e := &Entry{Candidate: "c", Message: "m"}
	require.NoError(t, j.Record(context.Background(), e))
	assert.WithinDuration(t, time.Now(), e.CreatedAt, time.Minute)
}

func TestJournal_RecordClosed(t *testing.T) {
	j, err := New(context.Background(), Config{DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	err = j.Record(context.Background(), &Entry{Candidate: "c", Message: "m"})
	require.Error(t, err)
}

func TestIsLockError(t *testing.T) {
	assert.False(t, isLockError(nil))
	assert.True(t, isLockError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, isLockError(errors.New("database table is locked")))
	assert.False(t, isLockError(errors.New("no such table")))
}
