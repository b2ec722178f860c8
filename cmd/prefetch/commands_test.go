package main

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"high", 1, true},
		{"1", 1, true},
		{"medium", 2, true},
		{"2", 2, true},
		{"idle", 3, true},
		{"3", 3, true},
		{"urgent", 0, false},
		{"0", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parsePriority(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriorityName(t *testing.T) {
	assert.Equal(t, "high", priorityName(1))
	assert.Equal(t, "medium", priorityName(2))
	assert.Equal(t, "idle", priorityName(3))
	assert.Equal(t, "unknown", priorityName(7))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "...ef.bin", truncate("https://abcdef.bin", 9))
	assert.Equal(t, "bin", truncate("abc.bin", 3))
}

func TestFormatTimeAgo(t *testing.T) {
	assert.Equal(t, "never", formatTimeAgo(time.Time{}))
	assert.Equal(t, "2 hours ago", formatTimeAgo(time.Now().Add(-2*time.Hour)))
}

func newAddCmd(priority string) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().StringP("priority", "p", "high", "")
	_ = cmd.Flags().Set("priority", priority)
	return cmd
}

func TestRunAddCmd_SendsPriority(t *testing.T) {
	var got map[string]any
	srv := newMockServer(t).
		ExpectPath("/api/v1/queue").
		ExpectPOST().
		Handler(func(w http.ResponseWriter, r *http.Request) {
			got = decodeBody(t, r)
			respondJSON(t, w, EnqueueResponse{Enqueued: true, ID: "https://cdn.example.com/a.bin", Priority: 3})
		}).
		Build()
	defer srv.Close()
	defer withServerURL(srv.URL)()

	require.NoError(t, runAddCmd(newAddCmd("idle"), []string{"https://cdn.example.com/a.bin"}))
	assert.InDelta(t, 3, got["priority"], 0)
}

func TestRunAddCmd_InvalidPriority(t *testing.T) {
	srv := newMockServer(t).
		Handler(func(_ http.ResponseWriter, _ *http.Request) {
			t.Error("no request expected")
		}).
		Build()
	defer srv.Close()
	defer withServerURL(srv.URL)()

	err := runAddCmd(newAddCmd("urgent"), []string{"https://cdn.example.com/a.bin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid priority")
}

func TestRunQueueCmd_ServerDown(t *testing.T) {
	srv := newMockServer(t).Build()
	srv.Close()
	defer withServerURL(srv.URL)()

	cmd := &cobra.Command{}
	cmd.Flags().StringP("status", "s", "", "")

	err := runQueueCmd(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch queue")
}

func TestRunQueueCmd_SingleTask(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/queue/task").
		RespondJSON(TaskResponse{ID: "https://cdn.example.com/a.bin", Priority: 3, Status: "pending"}).
		Build()
	defer srv.Close()
	defer withServerURL(srv.URL)()

	cmd := &cobra.Command{}
	cmd.Flags().StringP("status", "s", "", "")

	require.NoError(t, runQueueCmd(cmd, []string{"https://cdn.example.com/a.bin"}))
}

func TestRunStatusCmd(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/status").
		RespondJSON(StatusResponse{Status: "ok", Counts: map[string]int{"failed": 1}, Total: 1}).
		Build()
	defer srv.Close()
	defer withServerURL(srv.URL)()

	require.NoError(t, runStatusCmd(nil, nil))
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cmd := &cobra.Command{}
	cmd.Flags().Bool("force", false, "")

	require.NoError(t, runInit(cmd, []string{path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[catalog]")

	err = runInit(cmd, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, cmd.Flags().Set("force", "true"))
	require.NoError(t, runInit(cmd, []string{path}))
}

func TestRunConfigTest(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.toml")
	require.NoError(t, os.WriteFile(valid, []byte(`
[catalog]
url = "http://catalog.local/assets"
`), 0o644))
	require.NoError(t, runConfigTest(nil, []string{valid}))

	missing := filepath.Join(dir, "missing.toml")
	require.NoError(t, os.WriteFile(missing, []byte(`
[catalog]
url = "${PREFETCH_TEST_UNSET_CATALOG}"
`), 0o644))
	err := runConfigTest(nil, []string{missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration invalid")
}

func TestRunConfigTest_ValidationOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[catalog]
url = "ftp://catalog.local"
`), 0o644))

	err := runConfigTest(nil, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration invalid")
}

func TestRunConfigResolve(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PREFETCH_TEST_CATALOG", "http://catalog.local/assets")

	src := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(src, []byte(`
[catalog]
url = "${PREFETCH_TEST_CATALOG}"

[discovery]
batch_size = 25
`), 0o644))

	out := filepath.Join(dir, "out", "resolved.toml")
	require.NoError(t, runConfigResolve(nil, []string{src, out}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "http://catalog.local/assets")
	assert.Contains(t, string(data), "batch_size = 25")
	assert.NotContains(t, string(data), "${")
}
