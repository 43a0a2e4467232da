package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests expect the plugins to be built into their directories,
// e.g. go build -o plugins/speak/speak ./plugins/speak.

func TestPlugin_Speak_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	plug := builtPlugin(t, "speak")

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plug, &Request{
		Action: "dance",
		Label:  "Hello/Hi",
	})
	require.NoError(t, err)
	assert.False(t, resp.Success, "unknown action must be refused")
}

func TestPlugin_Keyboard_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	plug := builtPlugin(t, "keyboard")

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plug, &Request{
		Action: "keystroke",
		Params: json.RawMessage(`{"key": ""}`),
	})
	require.NoError(t, err)
	assert.False(t, resp.Success, "empty key and empty label must be refused")
}

func builtPlugin(t *testing.T, name string) *Plugin {
	t.Helper()
	dir := findPluginDir(name)
	if dir == "" {
		t.Skipf("%s plugin not found", name)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Skipf("%s plugin not built", name)
	}

	mgr := NewManager(filepath.Dir(dir), zerolog.Nop())
	require.NoError(t, mgr.Discover())

	plug, err := mgr.Get(name)
	require.NoError(t, err)
	return plug
}

func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, "plugin.json")); err == nil {
			return dir
		}
	}
	return ""
}
