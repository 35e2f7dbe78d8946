package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/enod/pkg/config"
)

type testEnv struct {
	dir        string
	configPath string
	dataDir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		dataDir:    filepath.Join(dir, "data"),
	}
}

// run executes one enod invocation and returns its stdout
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", e.configPath, "--data-dir", e.dataDir}, args...))

	err := root.Execute()
	return stdout.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "enod %s", strings.Join(args, " "))
	return out
}

func TestCreateAndHeader(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "temps.db")

	out := env.mustRun(t, "create", path, "--origin", "2024-01-01 00:00:00")
	assert.Contains(t, out, "origin 2024-01-01 00:00:00")

	out = env.mustRun(t, "header", path)
	assert.Contains(t, out, "Origin:  2024-01-01 00:00:00")
	assert.Contains(t, out, "Records: 0")
	assert.Contains(t, out, "Size:    15 bytes")

	_, err := env.run(t, "create", path)
	assert.Error(t, err, "existing file must not be overwritten without --force")

	env.mustRun(t, "create", path, "--force")
}

func TestAppendGetDump(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "temps.db")
	env.mustRun(t, "create", path, "--origin", "2024-01-01T00:00:00Z")

	out := env.mustRun(t, "append", path, "21", "--offset", "60")
	assert.Contains(t, out, "Appended record 0: offset=60 value=21")

	out = env.mustRun(t, "append", path, "22", "--at", "2024-01-01 00:02:00")
	assert.Contains(t, out, "Appended record 1: offset=120 value=22")

	out = env.mustRun(t, "get", path, "1")
	assert.Equal(t, "1\t2024-01-01 00:02:00\t120\t22\n", out)

	_, err := env.run(t, "get", path, "2")
	assert.Error(t, err)

	out = env.mustRun(t, "dump", path)
	assert.Contains(t, out, "INDEX")
	assert.Contains(t, out, "2024-01-01 00:01:00")

	out = env.mustRun(t, "dump", path, "--from", "1", "--json")
	var rows []dumpRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(1), rows[0].Index)
	assert.Equal(t, uint32(120), rows[0].TimeOffset)

	out = env.mustRun(t, "dump", path, "--limit", "1", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(0), rows[0].Index)
}

func TestAppendValidation(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "temps.db")
	env.mustRun(t, "create", path, "--origin", "2024-01-01T00:00:00Z")

	tests := []struct {
		name string
		args []string
	}{
		{"value out of range", []string{"append", path, "256", "--offset", "1"}},
		{"no time", []string{"append", path, "1"}},
		{"both times", []string{"append", path, "1", "--offset", "1", "--at", "2024-01-02T00:00:00Z"}},
		{"before origin", []string{"append", path, "1", "--at", "2023-01-01T00:00:00Z"}},
		{"unknown database", []string{"append", "nope", "1", "--offset", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestCheckAndRepair(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "temps.db")
	env.mustRun(t, "create", path, "--origin", "2024-01-01T00:00:00Z")

	out := env.mustRun(t, "check", path)
	assert.Equal(t, "OK\n", out)

	env.mustRun(t, "append", path, "1", "--offset", "20")
	env.mustRun(t, "append", path, "2", "--offset", "10")

	out, err := env.run(t, "check", path)
	assert.ErrorIs(t, err, errIssueFound)
	assert.Contains(t, out, "unordered_record at record 1")
	assert.Contains(t, out, "enod repair")

	out = env.mustRun(t, "repair", path)
	assert.Contains(t, out, "Fixed: unordered_record at record 1")

	out = env.mustRun(t, "repair", path)
	assert.Contains(t, out, "Nothing to repair")

	out = env.mustRun(t, "get", path, "0")
	assert.Equal(t, "0\t2024-01-01 00:00:10\t10\t2\n", out)
}

func TestRepairUnrepairable(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "temps.db")
	env.mustRun(t, "create", path, "--origin", "2024-01-01T00:00:00Z")

	// Day 0
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0}, 3)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := env.run(t, "check", path)
	assert.Error(t, err)
	assert.Contains(t, out, "origin_date_invalid")
	assert.NotContains(t, out, "enod repair")

	_, err = env.run(t, "repair", path)
	assert.Error(t, err)
}

func TestSeriesCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "series", "create", "temps", "--origin", "2024-01-01T00:00:00Z")
	assert.Contains(t, out, "Created series temps")

	_, err := env.run(t, "series", "create", "temps")
	assert.Error(t, err)

	env.mustRun(t, "append", "temps", "5", "--offset", "1")

	out = env.mustRun(t, "header", "temps")
	assert.Contains(t, out, "Records: 1")

	out = env.mustRun(t, "series", "list")
	assert.Contains(t, out, "temps")
	assert.Contains(t, out, "2024-01-01 00:00:00")

	out = env.mustRun(t, "series", "rm", "temps")
	assert.Contains(t, out, "Removed series temps")

	out = env.mustRun(t, "series", "ls")
	assert.NotContains(t, out, "temps")
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "config", "init", "--print-keys")
	assert.Contains(t, out, "Configuration created at "+env.configPath)
	assert.Contains(t, out, "API Key: ")

	cfg, err := config.LoadConfig(env.configPath)
	require.NoError(t, err)
	assert.Equal(t, env.dataDir, cfg.DataDir)
	assert.Len(t, cfg.Security.APIKey, 64)
	require.NoError(t, cfg.Validate())

	_, err = env.run(t, "config", "init")
	assert.Error(t, err)

	out = env.mustRun(t, "config", "show")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, cfg.Security.APIKey)

	out = env.mustRun(t, "config", "show", "--show-secrets")
	assert.Contains(t, out, cfg.Security.APIKey)
}

func TestServeRequiresAPIKey(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "serve")
	assert.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "--log-level", "loud", "series", "list")
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	for _, value := range []string{"2024-01-01T00:00:00Z", "2024-01-01 00:00:00"} {
		got, err := parseTime(value)
		require.NoError(t, err, value)
		assert.Equal(t, int64(1704067200), got.Unix(), value)
	}

	_, err := parseTime("yesterday")
	assert.Error(t, err)
}

func TestCheckTruncatedHeader(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "temps.db")
	env.mustRun(t, "create", path)
	require.NoError(t, os.Truncate(path, 10))

	out, err := env.run(t, "check", path)
	assert.ErrorIs(t, err, errIssueFound)
	assert.Contains(t, out, "Issue: header_corrupted")

	_, err = env.run(t, "repair", path)
	assert.Error(t, err)

	_, err = env.run(t, "header", path)
	assert.Error(t, err)
}

func TestCheckTruncatedSeries(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "series", "create", "temps")

	out := env.mustRun(t, "series", "list")
	var path string
	for _, field := range strings.Fields(out) {
		if strings.HasSuffix(field, ".db") {
			path = field
		}
	}
	require.NotEmpty(t, path)
	require.NoError(t, os.Truncate(path, 10))

	out, err := env.run(t, "check", "temps")
	assert.ErrorIs(t, err, errIssueFound)
	assert.Contains(t, out, "Issue: header_corrupted")
}
