// Package ignore evaluates directory-scoped ignore specifications
// (.gitignore, .ignore, .ccignore) for the code reference scanner.
//
// Each specification file is loaded into an Engine anchored at the directory that
// contains it. An Engine answers two questions about a candidate file: whether the
// file lives under its anchor (Handles) and what its rules say about it (Resolve).
// Rules are evaluated in file order and the first matching rule decides, so a
// Decision of NoOpinion is distinct from an explicit Accept.
//
// Glob matching follows the gitignore pattern syntax implemented by go-git:
//
//	*.log        any file or directory named *.log at any depth under the anchor
//	/build       only build directly under the anchor
//	docs/*.md    anchored, * does not cross "/"
//	**/gen       gen at any depth
//	build/       directories only; files match through the directory
//	!keep.txt    negation, resolves to Accept
package ignore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Decision is the outcome of evaluating a path against one specification.
type Decision int

const (
	// NoOpinion means no rule of the specification matched the path.
	NoOpinion Decision = iota
	// Accept means a negation rule matched first.
	Accept
	// Ignore means a plain rule matched first.
	Ignore
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Ignore:
		return "ignore"
	default:
		return "no-opinion"
	}
}

// ErrParse is returned (wrapped) when a specification file cannot be read.
var ErrParse = errors.New("ignore: cannot load specification")

const (
	commentPrefix  = "#"
	negationPrefix = "!"
)

var specFileNames = map[string]bool{
	".gitignore": true,
	".ignore":    true,
	".ccignore":  true,
}

// IsSpecFile reports whether a file name denotes an ignore specification.
func IsSpecFile(name string) bool {
	return specFileNames[name]
}

// Rule is a single pattern line of a specification.
type Rule struct {
	Pattern  string
	Negation bool
	Anchor   string
	Rank     int

	matcher gitignore.Pattern
}

// Engine holds the rules of one specification file. It is read-only after Load.
type Engine struct {
	File   string
	Anchor string
	Rank   int
	Rules  []Rule
}

// Load reads the specification at path. root is the scan root and is used to compute
// the rank of the specification (the depth of its directory below root).
func Load(path, root string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrParse, path, err)
	}
	anchor := filepath.Dir(path)
	e := Parse(data, anchor, Depth(root, anchor))
	e.File = path
	return e, nil
}

// Parse builds an Engine from specification content anchored at dir with the given rank.
func Parse(data []byte, anchor string, rank int) *Engine {
	e := &Engine{
		Anchor: filepath.Clean(anchor),
		Rank:   rank,
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		e.Rules = append(e.Rules, Rule{
			Pattern:  strings.TrimPrefix(line, negationPrefix),
			Negation: strings.HasPrefix(line, negationPrefix),
			Anchor:   e.Anchor,
			Rank:     rank,
			matcher:  gitignore.ParsePattern(line, nil),
		})
	}
	return e
}

// Handles reports whether path lies inside the anchor directory of the engine.
func (e *Engine) Handles(path string) bool {
	_, ok := e.relative(path)
	return ok
}

// Resolve evaluates the rules in file order against path. The first matching rule
// decides: a negation accepts, any other rule ignores.
func (e *Engine) Resolve(path string) Decision {
	segments, ok := e.relative(path)
	if !ok {
		return NoOpinion
	}
	for _, r := range e.Rules {
		switch r.matcher.Match(segments, false) {
		case gitignore.Include:
			return Accept
		case gitignore.Exclude:
			return Ignore
		}
	}
	return NoOpinion
}

func (e *Engine) relative(path string) ([]string, bool) {
	rel, err := filepath.Rel(e.Anchor, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, false
	}
	return strings.Split(filepath.ToSlash(rel), "/"), true
}

// Depth returns the number of path segments of dir below root. root itself has depth 0.
func Depth(root, dir string) int {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(dir))
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(filepath.ToSlash(rel), "/"))
}
