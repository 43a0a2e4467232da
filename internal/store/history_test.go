package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(session, label string, at time.Time) *HistoryEntry {
	return &HistoryEntry{
		ID:         uuid.New().String(),
		SessionID:  session,
		Kind:       "label",
		Label:      label,
		Confidence: 0.93,
		Source:     "sequence",
		CreatedAt:  at,
	}
}

func TestHistoryRepository(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("list is newest first and limited", func(t *testing.T) {
		r := newTestStore(t).History()
		for i, label := range []string{"Hello", "Yes", "No", "Help"} {
			require.NoError(t, r.Create(entry("s1", label, base.Add(time.Duration(i)*time.Second))))
		}

		got, err := r.List(3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "Help", got[0].Label)
		assert.Equal(t, "No", got[1].Label)
		assert.Equal(t, "Yes", got[2].Label)
		assert.Equal(t, 0.93, got[0].Confidence)
		assert.Equal(t, "sequence", got[0].Source)
		assert.True(t, got[0].CreatedAt.Equal(base.Add(3*time.Second)))
	})

	t.Run("default limit", func(t *testing.T) {
		r := newTestStore(t).History()
		for i := 0; i < DefaultHistoryLimit+5; i++ {
			require.NoError(t, r.Create(entry("s1", "Hello", base.Add(time.Duration(i)*time.Millisecond))))
		}

		got, err := r.List(0)
		require.NoError(t, err)
		assert.Len(t, got, DefaultHistoryLimit)
	})

	t.Run("by session", func(t *testing.T) {
		r := newTestStore(t).History()
		require.NoError(t, r.Create(entry("s1", "Hello", base)))
		require.NoError(t, r.Create(entry("s2", "Sorry", base.Add(time.Second))))
		require.NoError(t, r.Create(entry("s1", "Peace", base.Add(2*time.Second))))

		got, err := r.ListBySession("s1", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Peace", got[0].Label)
		assert.Equal(t, "Hello", got[1].Label)
	})

	t.Run("create sets a timestamp", func(t *testing.T) {
		r := newTestStore(t).History()
		e := entry("s1", "Hello", time.Time{})
		require.NoError(t, r.Create(e))
		assert.False(t, e.CreatedAt.IsZero())
	})

	t.Run("delete", func(t *testing.T) {
		r := newTestStore(t).History()
		e := entry("s1", "Hello", base)
		require.NoError(t, r.Create(e))

		require.NoError(t, r.Delete(e.ID))
		assert.ErrorIs(t, r.Delete(e.ID), ErrNotFound)

		got, err := r.List(10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("prune", func(t *testing.T) {
		r := newTestStore(t).History()
		require.NoError(t, r.Create(entry("s1", "Old", base)))
		require.NoError(t, r.Create(entry("s1", "New", base.Add(time.Hour))))

		n, err := r.Prune(base.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := r.List(10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "New", got[0].Label)
	})
}
