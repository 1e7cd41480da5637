package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shardrun/internal/cli"
	"shardrun/internal/config"
	"shardrun/internal/storage"
)

const checkoutTest = `package com.example;

import org.junit.Test;

public class CheckoutTest {
    @Test
    public void addsItem() {}

    @Test
    public void removesItem() {}

    @Test
    public void paysByCard() {}
}
`

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newProject lays out a project with one instrumentation target and returns its config file
func newProject(t *testing.T) (string, string) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.apk"), "app")
	writeFile(t, filepath.Join(dir, "test.apk"), "test")
	writeFile(t, filepath.Join(dir, "src", "com", "example", "CheckoutTest.java"), checkoutTest)

	configFile := filepath.Join(dir, "shardrun.yml")
	writeFile(t, configFile, fmt.Sprintf(`
projectPath: %s
targets:
  - name: shop
    app: app.apk
    test: test.apk
    sourceDir: src
`, dir))
	return dir, configFile
}

func execute(t *testing.T, args ...string) error {
	rootCmd := &cobra.Command{Use: "shardrun", SilenceUsage: true, SilenceErrors: true}
	var flags cli.Flags
	NewCommands(&flags).Register(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestRun_DryRun(t *testing.T) {
	dir, configFile := newProject(t)

	require.NoError(t, execute(t, "run", "--config", configFile, "--dry-run", "--shards", "2", "--repeat", "2"))

	cfg := config.New()
	cfg.ProjectPath = dir
	output, err := storage.NewJSONStorage(cfg).Load()
	require.NoError(t, err)
	assert.Equal(t, 4, output.Meta.Matrices)
	assert.Equal(t, 2, output.Meta.Shards)
	assert.Equal(t, 2, output.Meta.RepeatTests)
	assert.Equal(t, 3, output.Meta.TestCases)
	assert.Len(t, output.Result.MatrixMap, 2)

	manifest, err := storage.LoadManifest(cfg.GetManifestPath())
	require.NoError(t, err)
	assert.Len(t, manifest, 2)
}

func TestRun_RequiresBackendOutsideDryRun(t *testing.T) {
	_, configFile := newProject(t)
	assert.Error(t, execute(t, "run", "--config", configFile))
}

func TestShards_WriteManifest(t *testing.T) {
	dir, configFile := newProject(t)

	require.NoError(t, execute(t, "shards", "--config", configFile, "--max-tests-per-shard", "1", "--write-manifest", "-t"))

	cfg := config.New()
	cfg.ProjectPath = dir
	manifest, err := storage.LoadManifest(cfg.GetManifestPath())
	require.NoError(t, err)
	require.Len(t, manifest, 3)
	assert.Equal(t, "shop", manifest[storage.ManifestKey(0)].Target)
	assert.Len(t, manifest[storage.ManifestKey(2)].Tests, 1)
}

func TestShards_InvalidFilter(t *testing.T) {
	_, configFile := newProject(t)
	assert.Error(t, execute(t, "shards", "--config", configFile, "--filter", "[a"))
}

func TestShards_FromManifest(t *testing.T) {
	dir, configFile := newProject(t)
	require.NoError(t, execute(t, "shards", "--config", configFile, "--shards", "2", "--write-manifest"))

	cfg := config.New()
	cfg.ProjectPath = dir
	assert.NoError(t, execute(t, "shards", "--from", cfg.GetManifestPath(), "-t"))
	assert.Error(t, execute(t, "shards", "--from", filepath.Join(dir, "missing.json")))
}

func TestContextsFromManifest(t *testing.T) {
	manifest := storage.Manifest{
		"matrix-10": {Target: "shop", Kind: "instrumentation", ShardIndex: 1, Tests: []string{"b"}},
		"matrix-2":  {Target: "shop", Kind: "instrumentation", ShardIndex: 0, Tests: []string{"a"}, Ignored: []string{"c"}},
		"other":     {Target: "x"},
	}

	contexts := contextsFromManifest(manifest)
	require.Len(t, contexts, 2)
	assert.Equal(t, 2, contexts[0].Index)
	assert.Equal(t, []string{"c"}, contexts[0].IgnoredTests)
	assert.Equal(t, 10, contexts[1].Index)
	assert.True(t, contexts[1].IsInstrumentation())
}
