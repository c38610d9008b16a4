package fileutil

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/harrison/configcat-cli/internal/ignore"
)

// DefaultExcludeDirs are directory names never entered during collection.
var DefaultExcludeDirs = []string{".git"}

const defaultEngineCacheSize = 512

// Logger receives collection events. *logger.ConsoleLogger satisfies it.
type Logger interface {
	LogIgnoreSpec(path string, rules int)
	LogFileSkipped(path string, reason string)
}

// CollectOptions configures Collect.
type CollectOptions struct {
	// ExcludeDirs lists directory names to skip entirely. Nil means DefaultExcludeDirs.
	ExcludeDirs []string
	// EngineCacheSize bounds the per-directory cache of applicable ignore engines.
	EngineCacheSize int
	// Logger is optional.
	Logger Logger
}

// CollectResult contains the outcome of a collection.
type CollectResult struct {
	// Files holds the absolute paths of all scannable files, sorted.
	Files []string
	// IgnoreSpecs holds the absolute paths of the specifications that were loaded.
	IgnoreSpecs []string
	// Ignored counts candidate files excluded by a specification.
	Ignored int
	// Errors holds non-fatal errors for entries that were left out.
	Errors []error
}

// Collect walks root and returns the files eligible for scanning.
// Only a missing or non-directory root and context cancellation are fatal.
func Collect(ctx context.Context, root string, opts CollectOptions) (*CollectResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}

	excludeDirs := opts.ExcludeDirs
	if excludeDirs == nil {
		excludeDirs = DefaultExcludeDirs
	}
	excludeMap := make(map[string]bool, len(excludeDirs))
	for _, d := range excludeDirs {
		excludeMap[d] = true
	}

	result := &CollectResult{}
	var specFiles, candidates []string

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if walkErr != nil {
			// unreadable entries are left out, never fatal
			result.Errors = append(result.Errors, walkErr)
			if d != nil && d.IsDir() && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != absRoot && excludeMap[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ignore.IsSpecFile(d.Name()) {
			specFiles = append(specFiles, path)
		} else {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(specFiles)
	engines := make([]*ignore.Engine, 0, len(specFiles))
	for _, spec := range specFiles {
		engine, err := ignore.Load(spec, absRoot)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		if opts.Logger != nil {
			opts.Logger.LogIgnoreSpec(spec, len(engine.Rules))
		}
		result.IgnoreSpecs = append(result.IgnoreSpecs, spec)
		engines = append(engines, engine)
	}

	resolver, err := newResolver(engines, opts.EngineCacheSize)
	if err != nil {
		return nil, err
	}

	sort.Strings(candidates)
	result.Files = make([]string, 0, len(candidates))
	for _, file := range candidates {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("failed to filter files: %w", ctxErr)
		}
		accepted, by := resolver.accepts(file)
		if !accepted {
			result.Ignored++
			if opts.Logger != nil {
				opts.Logger.LogFileSkipped(file, "ignored by "+by)
			}
			continue
		}
		result.Files = append(result.Files, file)
	}

	return result, nil
}

// resolver applies ignore engines with nearest-directory precedence.
type resolver struct {
	engines []*ignore.Engine
	byDir   *lru.Cache[string, []*ignore.Engine]
}

func newResolver(engines []*ignore.Engine, cacheSize int) (*resolver, error) {
	if cacheSize <= 0 {
		cacheSize = defaultEngineCacheSize
	}
	cache, err := lru.New[string, []*ignore.Engine](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine cache: %w", err)
	}
	return &resolver{engines: engines, byDir: cache}, nil
}

// applicable returns the engines handling files in dir, deepest first.
// Files in the same directory always share the same applicable engines.
func (r *resolver) applicable(file string) []*ignore.Engine {
	dir := filepath.Dir(file)
	if cached, ok := r.byDir.Get(dir); ok {
		return cached
	}
	var handling []*ignore.Engine
	for _, e := range r.engines {
		if e.Handles(file) {
			handling = append(handling, e)
		}
	}
	slices.SortStableFunc(handling, func(a, b *ignore.Engine) int {
		return b.Rank - a.Rank
	})
	r.byDir.Add(dir, handling)
	return handling
}

// accepts reports whether file should be scanned, and which specification
// decided when it should not.
func (r *resolver) accepts(file string) (bool, string) {
	for _, e := range r.applicable(file) {
		switch e.Resolve(file) {
		case ignore.Accept:
			return true, e.File
		case ignore.Ignore:
			return false, e.File
		}
	}
	return true, ""
}
