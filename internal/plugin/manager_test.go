package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, root string, m Manifest) string {
	t.Helper()
	dir := filepath.Join(root, m.Name)
	require.NoError(t, os.MkdirAll(dir, 0755))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.json"), data, 0644))
	return dir
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, Manifest{
		Name:        "speak",
		Version:     "1.0.0",
		Description: "Speaks recognized labels",
		Executable:  "speak",
		Actions:     []string{"speak", "say"},
	})

	mgr := NewManager(root, zerolog.Nop())
	require.NoError(t, mgr.Discover())

	plugins := mgr.List()
	require.Len(t, plugins, 1)

	p := plugins[0]
	assert.Equal(t, "speak", p.Manifest.Name)
	assert.Equal(t, "1.0.0", p.Manifest.Version)
	assert.Equal(t, "Speaks recognized labels", p.Manifest.Description)
	assert.Len(t, p.Manifest.Actions, 2)
	assert.Equal(t, dir, p.Path)
	assert.Equal(t, filepath.Join(dir, "speak"), p.Executable)
}

func TestManager_Discover_MultiplePlugins(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"speak", "keyboard", "notify"} {
		writeManifest(t, root, Manifest{Name: name, Version: "1.0.0", Executable: name})
	}

	mgr := NewManager(root, zerolog.Nop())
	require.NoError(t, mgr.Discover())

	var names []string
	for _, p := range mgr.List() {
		names = append(names, p.Manifest.Name)
	}
	assert.Equal(t, []string{"keyboard", "notify", "speak"}, names)
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Manifest{Name: "speak", Executable: "speak"})
	writeManifest(t, root, Manifest{Name: "nameless-exec"})

	broken := filepath.Join(root, "broken")
	require.NoError(t, os.MkdirAll(broken, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, "plugin.json"), []byte("{not json"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "no-manifest"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("plugins"), 0644))

	mgr := NewManager(root, zerolog.Nop())
	require.NoError(t, mgr.Discover())

	plugins := mgr.List()
	require.Len(t, plugins, 1)
	assert.Equal(t, "speak", plugins[0].Manifest.Name)
}

func TestManager_Discover_MissingDir(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "absent"), zerolog.Nop())
	require.NoError(t, mgr.Discover())
	assert.Empty(t, mgr.List())
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, Manifest{Name: "speak", Executable: "speak"})

	mgr := NewManager(root, zerolog.Nop())
	require.NoError(t, mgr.Discover())
	require.Len(t, mgr.List(), 1)

	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, mgr.Discover())
	assert.Empty(t, mgr.List())
}

func TestManager_Get(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Manifest{Name: "keyboard", Executable: "keyboard"})

	mgr := NewManager(root, zerolog.Nop())
	require.NoError(t, mgr.Discover())

	p, err := mgr.Get("keyboard")
	require.NoError(t, err)
	assert.Equal(t, "keyboard", p.Manifest.Name)

	_, err = mgr.Get("missing")
	assert.ErrorIs(t, err, ErrPluginNotFound)

	assert.Equal(t, root, mgr.PluginDir())
}

func TestManifest_Supports(t *testing.T) {
	m := Manifest{Actions: []string{"speak", "say"}}
	assert.True(t, m.Supports("say"))
	assert.False(t, m.Supports("type"))
}
