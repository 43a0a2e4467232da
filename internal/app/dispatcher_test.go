package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signspeak/internal/plugin"
	"github.com/ayusman/signspeak/internal/stabilizer"
	"github.com/ayusman/signspeak/internal/store"
)

type recorder struct {
	mu     sync.Mutex
	events []stabilizer.Event
	labels []string
}

func (r *recorder) BroadcastEvent(ev stabilizer.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) SetLastGesture(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = append(r.labels, label)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// installPlugin writes a shell plugin that saves its request to request.json.
func installPlugin(t *testing.T, root, name string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins are not supported on Windows")
	}

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))

	manifest, err := json.Marshal(plugin.Manifest{Name: name, Version: "1.0.0", Executable: "run.sh", Actions: []string{"speak"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.json"), manifest, 0644))

	script := "#!/bin/sh\ncat > request.json\necho '{\"success\":true}'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755))
	return dir
}

func labelEvent(label string) stabilizer.Event {
	return stabilizer.Event{Kind: stabilizer.EventLabel, Label: label, Confidence: 0.95, Source: "rules", At: time.Now()}
}

func TestDispatcher_Handle(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}

	d := NewDispatcher(DispatcherConfig{SessionID: "s1", Store: s, Hub: rec, Logger: zerolog.Nop()})
	d.AddSink(rec)

	d.Handle(labelEvent("Hello/Hi"))
	d.Handle(stabilizer.Event{Kind: stabilizer.EventCleared, At: time.Now()})
	d.Close()

	assert.Len(t, rec.events, 2)
	assert.Equal(t, []string{"Hello/Hi", ""}, rec.labels)

	entries, err := s.History().ListBySession("s1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var kinds []string
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	assert.ElementsMatch(t, []string{"label", "cleared"}, kinds)
}

func TestDispatcher_HandleSentence(t *testing.T) {
	s := newTestStore(t)
	d := NewDispatcher(DispatcherConfig{SessionID: "s1", Store: s, Logger: zerolog.Nop()})
	defer d.Close()

	d.HandleSentence("HI THERE")

	entries, err := s.History().ListBySession("s1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, store.KindSentence, entries[0].Kind)
	assert.Equal(t, "HI THERE", entries[0].Label)
	assert.Equal(t, "alphabet", entries[0].Source)

	t.Run("without store", func(t *testing.T) {
		bare := NewDispatcher(DispatcherConfig{Logger: zerolog.Nop()})
		defer bare.Close()
		assert.NotPanics(t, func() { bare.HandleSentence("A") })
	})
}

func TestDispatcher_RunsBoundPlugin(t *testing.T) {
	s := newTestStore(t)
	root := t.TempDir()
	dir := installPlugin(t, root, "speak")

	mgr := plugin.NewManager(root, zerolog.Nop())
	require.NoError(t, mgr.Discover())

	require.NoError(t, s.Actions().Create(&store.Action{
		ID:         "a1",
		Label:      "Hello/Hi",
		PluginName: "speak",
		ActionName: "speak",
		Config:     json.RawMessage(`{"voice":"en"}`),
		Enabled:    true,
	}))

	d := NewDispatcher(DispatcherConfig{
		SessionID: "s1",
		Store:     s,
		Plugins:   mgr,
		Executor:  plugin.NewExecutor(5 * time.Second),
		Logger:    zerolog.Nop(),
	})
	defer d.Close()

	t.Run("unbound label runs nothing", func(t *testing.T) {
		d.Handle(labelEvent("B"))
		d.Wait()
		_, err := os.Stat(filepath.Join(dir, "request.json"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("bound label runs its plugin", func(t *testing.T) {
		d.Handle(labelEvent("Hello/Hi"))
		d.Wait()

		data, err := os.ReadFile(filepath.Join(dir, "request.json"))
		require.NoError(t, err)

		var req plugin.Request
		require.NoError(t, json.Unmarshal(data, &req))
		assert.Equal(t, "speak", req.Action)
		assert.Equal(t, "Hello/Hi", req.Label)
		assert.Equal(t, 0.95, req.Confidence)
		assert.Equal(t, "s1", req.SessionID)
		assert.JSONEq(t, `{"voice":"en"}`, string(req.Config))
	})

	t.Run("disabled binding runs nothing", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(dir, "request.json")))

		a, err := s.Actions().GetByID("a1")
		require.NoError(t, err)
		a.Enabled = false
		require.NoError(t, s.Actions().Update(a))

		d.Handle(labelEvent("Hello/Hi"))
		d.Wait()
		_, err = os.Stat(filepath.Join(dir, "request.json"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestDispatcher_NoDependencies(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Logger: zerolog.Nop()})
	assert.NotPanics(t, func() {
		d.Handle(labelEvent("A"))
		d.Close()
	})
}
