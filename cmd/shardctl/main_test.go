package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/shardkit/assign"
	"github.com/ceyewan/shardkit/config"
	"github.com/ceyewan/shardkit/shardmap"
	"github.com/ceyewan/shardkit/xerrors"
)

const configTemplate = `
log:
  level: error
shards:
  shard_a:
    shard_group: users
    driver: sqlite
    sqlite:
      path: %[1]s/shard_a.db
  shard_a_replica:
    primary: shard_a
    shard_group: users
    driver: sqlite
    sqlite:
      path: %[1]s/shard_a_replica.db
  shard_c:
    shard_group: users
    driver: sqlite
    sqlite:
      path: %[1]s/shard_c.db
  mapping:
    driver: sqlite
    sqlite:
      path: %[1]s/mapping.db
database:
  silent_sql: true
%[2]s
`

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "shardctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(configTemplate, dir, extra)), 0o644))
	return path
}

func run(t *testing.T, configFile string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestShards(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := run(t, cfg, "shards")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "replica of shard_a")
	assert.Contains(t, out, "mapping")

	out, err = run(t, cfg, "shards", "--group", "users")
	require.NoError(t, err)
	assert.Equal(t, "shard_a\nshard_c\n", out)

	out, err = run(t, cfg, "shards", "--group", "nobody")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMigrateAndNextID(t *testing.T) {
	cfg := writeConfig(t, "mapping:\n  database: mapping\n")

	out, err := run(t, cfg, "migrate", "--namespace", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "mapping store migrated")
	assert.Contains(t, out, "counter orders ready on shard_a")
	assert.Contains(t, out, "counter orders ready on shard_c")
	assert.NotContains(t, out, "shard_a_replica")

	out, err = run(t, cfg, "next-id", "shard_a", "orders")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = run(t, cfg, "next-id", "shard_a", "orders")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = run(t, cfg, "next-id", "--sharded", "shard_c", "orders")
	require.NoError(t, err)
	assert.Equal(t, "shard_c:1\n", out)

	out, err = run(t, cfg, "clear-counter", "shard_a", "orders")
	require.NoError(t, err)
	assert.Equal(t, "removed 0 rows\n", out)

	_, err = run(t, cfg, "next-id", "shard_a", "orders; drop table x")
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestRecordAndLookup(t *testing.T) {
	cfg := writeConfig(t, "mapping:\n  database: mapping\n")
	_, err := run(t, cfg, "migrate")
	require.NoError(t, err)

	out, err := run(t, cfg, "record", "--group", "users", "alice", "shard_a")
	require.NoError(t, err)
	assert.Equal(t, "alice -> shard_a\n", out)

	out, err = run(t, cfg, "lookup", "alice")
	require.NoError(t, err)
	assert.Equal(t, "shard_a\n", out)

	_, err = run(t, cfg, "record", "alice", "shard_c")
	assert.ErrorIs(t, err, shardmap.ErrDuplicateKey)

	_, err = run(t, cfg, "record", "--group", "users", "bob", "shard_a_replica")
	assert.ErrorIs(t, err, shardmap.ErrInvalidShard)

	_, err = run(t, cfg, "lookup", "bob")
	assert.ErrorIs(t, err, shardmap.ErrNotFound)
}

func TestAssignPreview(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := run(t, cfg, "assign", "--group", "users", "alice", "bob")
	require.NoError(t, err)
	candidates := []string{"shard_a", "shard_c"}
	want := fmt.Sprintf("alice -> %s\nbob -> %s\n",
		candidates[assign.HashIndex("alice", 2)], candidates[assign.HashIndex("bob", 2)])
	assert.Equal(t, want, out)

	_, err = run(t, cfg, "assign", "--group", "nobody", "alice")
	assert.ErrorIs(t, err, assign.ErrNoCandidates)
}

func TestWithoutMappingStore(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := run(t, cfg, "lookup", "alice")
	assert.ErrorIs(t, err, errNotSupported)
	assert.ErrorIs(t, err, xerrors.ErrConfiguration)
}

func TestConfigErrors(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "absent.yaml"), "shards")
	assert.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))
	_, err = run(t, path, "shards")
	assert.ErrorIs(t, err, config.ErrValidationFailed)

	_, err = run(t, writeConfig(t, ""), "next-id", "shard_a")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "accepts 2 arg(s)"))
}
