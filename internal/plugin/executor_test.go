package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, name, body string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins are not supported on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))

	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name,
			Actions:    []string{"speak"},
		},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := writeScript(t, "hello-plugin.sh", `echo '{"success":true,"data":{"message":"hello world"}}'`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "speak"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)

	var data map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "hello world", data["message"])
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	plugin := writeScript(t, "echo-plugin.sh", `INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`)

	req := &Request{
		Action:     "speak",
		Label:      "Hello/Hi",
		Confidence: 0.92,
		Source:     "sequence",
		SessionID:  "abc",
		Config:     json.RawMessage(`{"voice":"default"}`),
		Params:     json.RawMessage(`{"rate":180}`),
	}

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, req)
	require.NoError(t, err)
	require.True(t, resp.Success)

	var data struct {
		Received Request `json:"received"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "speak", data.Received.Action)
	assert.Equal(t, "Hello/Hi", data.Received.Label)
	assert.Equal(t, 0.92, data.Received.Confidence)
	assert.Equal(t, "abc", data.Received.SessionID)
	assert.JSONEq(t, `{"rate":180}`, string(data.Received.Params))
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := writeScript(t, "slow-plugin.sh", `sleep 10
echo '{"success":true}'
`)

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), plugin, &Request{Action: "speak"})

	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecutor_ParentContextCancelled(t *testing.T) {
	plugin := writeScript(t, "slow-plugin.sh", `sleep 10`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(5*time.Second).Execute(ctx, plugin, &Request{Action: "speak"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestExecutor_PluginFailure(t *testing.T) {
	t.Run("non-zero exit includes stderr", func(t *testing.T) {
		plugin := writeScript(t, "failing-plugin.sh", `echo "speech engine missing" >&2
exit 1
`)

		_, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "speak"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "speech engine missing")
	})

	t.Run("invalid response", func(t *testing.T) {
		plugin := writeScript(t, "garbage-plugin.sh", `echo 'not json'`)

		_, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "speak"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse plugin response")
	})

	t.Run("reported failure is not an error", func(t *testing.T) {
		plugin := writeScript(t, "refusing-plugin.sh", `echo '{"success":false,"error":"unknown action"}'`)

		resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "dance"})
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, "unknown action", resp.Error)
	})
}

func TestNewExecutor_DefaultTimeout(t *testing.T) {
	assert.Equal(t, 5*time.Second, NewExecutor(0).timeout)
	assert.Equal(t, time.Second, NewExecutor(time.Second).timeout)
}
