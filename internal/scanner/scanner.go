// Package scanner searches source files for feature flag keys and aliases.
//
// The scan fans files out to a bounded pool of workers. Every file is handled by
// exactly one worker, start to finish, and produces an immutable per-file result
// stored in a slot reserved for that file, so workers never share mutable state.
// Once the pool drains, the slots are compacted in input order into a
// models.ScanReport whose per-file matches are sorted by line number. The same
// file list therefore yields the same report for any pool size.
//
// Matching is plain substring containment: a key that is part of a longer
// identifier is still reported.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/harrison/configcat-cli/internal/models"
)

// Context line bounds for Options.ContextLines.
const (
	DefaultContextLines = 4
	MinContextLines     = 1
	MaxContextLines     = 10
)

// ClampContext returns n when it lies in [MinContextLines, MaxContextLines]
// and DefaultContextLines otherwise.
func ClampContext(n int) int {
	if n < MinContextLines || n > MaxContextLines {
		return DefaultContextLines
	}
	return n
}

// Logger receives scan events. *logger.ConsoleLogger satisfies it.
type Logger interface {
	LogFileSkipped(path string, reason string)
	LogScanStart(files, targets, workers int)
	LogScanComplete(scanned, skipped, matches int, duration time.Duration)
}

// Options configures a Scanner.
type Options struct {
	// ContextLines is the number of lines captured before and after a match.
	// It is clamped with ClampContext.
	ContextLines int
	// Workers bounds the pool size. Zero or negative means DefaultWorkers().
	Workers int
	// Logger is optional.
	Logger Logger
}

// Scanner finds scan targets in files.
type Scanner struct {
	contextLines int
	workers      int
	logger       Logger
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Scanner{
		contextLines: ClampContext(opts.ContextLines),
		workers:      workers,
		logger:       opts.Logger,
	}
}

// ContextLines returns the effective number of context lines.
func (s *Scanner) ContextLines() int {
	return s.contextLines
}

// fileResult is the outcome of scanning one file.
type fileResult struct {
	done    bool
	skipped bool
	matches []models.Match
}

// Scan searches files for targets.
//
// When ctx is cancelled the report holds every file that finished before the
// cancellation, the file in flight is dropped, and the error is ctx.Err().
func (s *Scanner) Scan(ctx context.Context, files []string, targets []*models.ScanTarget) (*models.ScanReport, error) {
	start := time.Now()
	if s.logger != nil {
		s.logger.LogScanStart(len(files), len(targets), min(s.workers, len(files)))
	}

	results := make([]fileResult, len(files))
	poolErr := forEachFile(ctx, s.workers, len(files), func(idx int) {
		matches, err := s.scanFile(ctx, files[idx], targets)
		switch {
		case err == nil:
			results[idx] = fileResult{done: true, matches: matches}
		case ctx.Err() != nil:
			// partial result of the interrupted file is discarded
		default:
			if s.logger != nil {
				s.logger.LogFileSkipped(files[idx], err.Error())
			}
			results[idx] = fileResult{done: true, skipped: true}
		}
	})

	report := &models.ScanReport{}
	for idx, r := range results {
		if !r.done {
			continue
		}
		if r.skipped {
			report.FilesSkipped++
			continue
		}
		report.FilesScanned++
		if len(r.matches) > 0 {
			report.Groups = append(report.Groups, models.FileMatchGroup{File: files[idx], Matches: r.matches})
		}
	}

	if s.logger != nil {
		s.logger.LogScanComplete(report.FilesScanned, report.FilesSkipped, report.MatchCount(), time.Since(start))
	}

	if poolErr != nil {
		return report, fmt.Errorf("scan interrupted: %w", poolErr)
	}
	return report, nil
}

// scanFile reads one file and returns its matches sorted by line number.
func (s *Scanner) scanFile(ctx context.Context, path string, targets []*models.ScanTarget) ([]models.Match, error) {
	lines, err := readLines(path)
	if err != nil {
		if errors.Is(err, errNotText) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var matches []models.Match
	for i, text := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, target := range targets {
			matched, ok := findTarget(text, target)
			if !ok {
				continue
			}
			matches = append(matches, models.Match{
				File:        path,
				Target:      target,
				MatchedText: matched,
				Line:        models.Line{Number: i + 1, Text: text},
				PreLines:    contextLines(lines, i-s.contextLines, i),
				PostLines:   contextLines(lines, i+1, i+1+s.contextLines),
			})
		}
	}

	slices.SortStableFunc(matches, func(a, b models.Match) int {
		return a.Line.Number - b.Line.Number
	})
	return matches, nil
}

// findTarget returns the key or alias of target that occurs earliest in line.
// On a tie the key wins over aliases, and earlier aliases win over later ones.
func findTarget(line string, target *models.ScanTarget) (string, bool) {
	best, bestIdx := "", -1
	for _, text := range target.Texts() {
		if text == "" {
			continue
		}
		idx := strings.Index(line, text)
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx {
			best, bestIdx = text, idx
		}
	}
	return best, bestIdx >= 0
}

// contextLines returns lines[from:to] as numbered lines, clipped to the file.
func contextLines(lines []string, from, to int) []models.Line {
	from = max(from, 0)
	to = min(to, len(lines))
	if from >= to {
		return []models.Line{}
	}
	out := make([]models.Line, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, models.Line{Number: i + 1, Text: lines[i]})
	}
	return out
}
