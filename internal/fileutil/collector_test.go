package fileutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (relative slash paths) with the given contents under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// relFiles converts collected absolute paths back to root-relative slash paths.
func relFiles(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

type recordingLogger struct {
	specs   []string
	skipped []string
}

func (r *recordingLogger) LogIgnoreSpec(path string, rules int) { r.specs = append(r.specs, path) }
func (r *recordingLogger) LogFileSkipped(path, reason string) { r.skipped = append(r.skipped, path) }

func TestCollectDefaultAccept(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":         "package main",
		"pkg/util.go":     "package pkg",
		"docs/readme.md":  "# docs",
		".git/config":     "[core]",
		".git/HEAD":       "ref: refs/heads/main",
		"src/.git/ignore": "nested git dir",
	})

	result, err := Collect(context.Background(), root, CollectOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/readme.md", "main.go", "pkg/util.go"}, relFiles(t, root, result.Files))
	assert.Empty(t, result.IgnoreSpecs)
	assert.Zero(t, result.Ignored)
}

func TestCollectNegationOverride(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":            "build/\n",
		"build/keep/.gitignore": "!*.txt\n",
		"build/keep/a.txt":      "kept",
		"build/keep/b.bin":      "ignored by parent",
		"build/other/a.txt":     "ignored",
		"src/app.py":            "print()",
	})

	log := &recordingLogger{}
	result, err := Collect(context.Background(), root, CollectOptions{Logger: log})
	require.NoError(t, err)

	assert.Equal(t, []string{"build/keep/a.txt", "src/app.py"}, relFiles(t, root, result.Files))
	assert.Equal(t, 2, result.Ignored)
	assert.Len(t, result.IgnoreSpecs, 2)
	assert.Len(t, log.specs, 2)
	assert.Len(t, log.skipped, 2)
}

func TestCollectRankPrecedence(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":       "!*.log\n*.tmp\n",
		"app.log":          "accepted by root negation",
		"app.tmp":          "ignored by root",
		"child/.ignore":    "*.log\n!*.tmp\n",
		"child/trace.log":  "ignored by child",
		"child/cache.tmp":  "accepted by child",
		"child/deep/x.log": "ignored by child at depth",
	})

	result, err := Collect(context.Background(), root, CollectOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"app.log", "child/cache.tmp"}, relFiles(t, root, result.Files))
}

func TestCollectFallsThroughNoOpinion(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":         "*.min.js\n",
		"web/.ccignore":      "vendor/\n",
		"web/app.min.js":     "child has no opinion, root ignores",
		"web/vendor/lib.js":  "child ignores",
		"web/app.js":         "nobody has an opinion",
		"web/vendor2/lib.js": "nobody has an opinion",
	})

	result, err := Collect(context.Background(), root, CollectOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"web/app.js", "web/vendor2/lib.js"}, relFiles(t, root, result.Files))
}

func TestCollectDeterministic(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{".gitignore": "*.log\n"}
	for _, dir := range []string{"a", "b", "c", "a/x", "b/y"} {
		files[dir+"/one.go"] = "1"
		files[dir+"/two.log"] = "2"
	}
	writeTree(t, root, files)

	first, err := Collect(context.Background(), root, CollectOptions{EngineCacheSize: 1})
	require.NoError(t, err)
	second, err := Collect(context.Background(), root, CollectOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Files, second.Files)
	assert.Len(t, first.Files, 5)
}

func TestCollectCustomExcludeDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"node_modules/lib/index.js": "x",
		".git/config":               "x",
		"index.js":                  "x",
	})

	result, err := Collect(context.Background(), root, CollectOptions{ExcludeDirs: []string{"node_modules"}})
	require.NoError(t, err)

	assert.Equal(t, []string{".git/config", "index.js"}, relFiles(t, root, result.Files))
}

func TestCollectInaccessibleDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"open/a.go":   "a",
		"locked/b.go": "b",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	result, err := Collect(context.Background(), root, CollectOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"open/a.go"}, relFiles(t, root, result.Files))
	assert.NotEmpty(t, result.Errors)
}

func TestCollectErrors(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		_, err := Collect(context.Background(), filepath.Join(t.TempDir(), "missing"), CollectOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to access directory")
	})

	t.Run("root is a file", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"file.txt": "x"})
		_, err := Collect(context.Background(), filepath.Join(root, "file.txt"), CollectOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("cancelled context", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"a.go": "a"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Collect(ctx, root, CollectOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
