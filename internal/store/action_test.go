package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionRepository(t *testing.T) {
	t.Run("create and fetch by label", func(t *testing.T) {
		r := newTestStore(t).Actions()
		a := &Action{
			ID:         "a1",
			Label:      "Hello",
			PluginName: "speak",
			ActionName: "say",
			Config:     json.RawMessage(`{"text":"hello there"}`),
			Enabled:    true,
		}
		require.NoError(t, r.Create(a))

		got, err := r.GetByLabel("Hello")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "a1", got.ID)
		assert.Equal(t, "speak", got.PluginName)
		assert.JSONEq(t, `{"text":"hello there"}`, string(got.Config))
		assert.True(t, got.Enabled)
	})

	t.Run("unbound label is nil without error", func(t *testing.T) {
		r := newTestStore(t).Actions()
		got, err := r.GetByLabel("Peace")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("labels are unique", func(t *testing.T) {
		r := newTestStore(t).Actions()
		require.NoError(t, r.Create(&Action{ID: "a1", Label: "Yes", PluginName: "speak", ActionName: "say"}))

		err := r.Create(&Action{ID: "a2", Label: "Yes", PluginName: "keyboard", ActionName: "type"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("default config", func(t *testing.T) {
		r := newTestStore(t).Actions()
		require.NoError(t, r.Create(&Action{ID: "a1", Label: "No", PluginName: "speak", ActionName: "say"}))

		got, err := r.GetByID("a1")
		require.NoError(t, err)
		assert.Equal(t, "{}", string(got.Config))
	})

	t.Run("update and delete", func(t *testing.T) {
		r := newTestStore(t).Actions()
		a := &Action{ID: "a1", Label: "Help", PluginName: "speak", ActionName: "say", Enabled: true}
		require.NoError(t, r.Create(a))

		a.Enabled = false
		a.ActionName = "shout"
		require.NoError(t, r.Update(a))

		got, err := r.GetByID("a1")
		require.NoError(t, err)
		assert.False(t, got.Enabled)
		assert.Equal(t, "shout", got.ActionName)

		require.NoError(t, r.Delete("a1"))
		_, err = r.GetByID("a1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, r.Delete("a1"), ErrNotFound)
		assert.ErrorIs(t, r.Update(a), ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		r := newTestStore(t).Actions()
		require.NoError(t, r.Create(&Action{ID: "a1", Label: "Yes", PluginName: "speak", ActionName: "say"}))
		require.NoError(t, r.Create(&Action{ID: "a2", Label: "No", PluginName: "speak", ActionName: "say"}))

		got, err := r.List()
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
