// Package reference turns scan results into console summaries and upload payloads.
package reference

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harrison/configcat-cli/internal/models"
)

// Partition splits groups by whether their matches point at deleted targets.
// A group with both kinds of matches appears in both results, each restricted to
// its own matches. Group order is preserved.
func Partition(groups []models.FileMatchGroup) (alive, deleted []models.FileMatchGroup) {
	for _, g := range groups {
		if a, ok := g.Filter(func(m models.Match) bool { return !m.Target.Deleted }); ok {
			alive = append(alive, a)
		}
		if d, ok := g.Filter(func(m models.Match) bool { return m.Target.Deleted }); ok {
			deleted = append(deleted, d)
		}
	}
	return alive, deleted
}

// Summary describes a set of groups for the console.
type Summary struct {
	References int
	Files      int
	Keys       []string
	// Paths lists the files in group order.
	Paths []string
}

// Summarize counts references and files and lists the distinct keys in the order
// they were first seen.
func Summarize(groups []models.FileMatchGroup) Summary {
	s := Summary{Files: len(groups), Keys: []string{}}
	seen := make(map[string]bool)
	for _, g := range groups {
		s.References += len(g.Matches)
		s.Paths = append(s.Paths, g.File)
		for _, m := range g.Matches {
			if !seen[m.Target.Key] {
				seen[m.Target.Key] = true
				s.Keys = append(s.Keys, m.Target.Key)
			}
		}
	}
	return s
}

// KeyList renders the keys as "[a, b]".
func (s Summary) KeyList() string {
	return "[" + strings.Join(s.Keys, ", ") + "]"
}

// UploadOptions carries the repository metadata of an upload.
type UploadOptions struct {
	// RepositoryRoot is the directory uploaded paths are made relative to.
	RepositoryRoot    string
	Repository        string
	Branch            string
	CommitHash        string
	FileURLTemplate   string
	CommitURLTemplate string
	ActiveBranches    []string
	ConfigID          string
	// Runner overrides the uploader name.
	Runner string
	// Version is used in the default uploader name.
	Version string
}

// Uploader returns the name recorded as the uploader of the references.
func (o UploadOptions) Uploader() string {
	if o.Runner != "" {
		return o.Runner
	}
	return fmt.Sprintf("ConfigCat CLI %s", o.Version)
}

// BuildRequest groups alive matches by flag and shapes the upload payload.
// Flags appear in the order their first reference was seen.
func BuildRequest(alive []models.FileMatchGroup, opts UploadOptions) *models.CodeReferenceRequest {
	req := &models.CodeReferenceRequest{
		FlagReferences: []models.FlagReference{},
		Repository:     opts.Repository,
		Branch:         opts.Branch,
		CommitHash:     opts.CommitHash,
		ActiveBranches: opts.ActiveBranches,
		ConfigID:       opts.ConfigID,
		Uploader:       opts.Uploader(),
	}
	if opts.CommitHash != "" && opts.CommitURLTemplate != "" {
		req.CommitURL = expand(opts.CommitURLTemplate, map[string]string{
			"commitHash": opts.CommitHash,
			"branch":     opts.Branch,
		})
	}

	index := make(map[*models.ScanTarget]int)
	for _, g := range alive {
		file := RelativePath(opts.RepositoryRoot, g.File)
		for _, m := range g.Matches {
			i, ok := index[m.Target]
			if !ok {
				i = len(req.FlagReferences)
				index[m.Target] = i
				req.FlagReferences = append(req.FlagReferences, models.FlagReference{SettingID: m.Target.SettingID})
			}

			ref := models.ReferenceLines{
				File:          file,
				PreLines:      m.PreLines,
				ReferenceLine: m.Line,
				PostLines:     m.PostLines,
			}
			if opts.CommitHash != "" && opts.FileURLTemplate != "" {
				ref.FileURL = expand(opts.FileURLTemplate, map[string]string{
					"branch":     opts.Branch,
					"commitHash": opts.CommitHash,
					"filePath":   file,
					"lineNumber": strconv.Itoa(m.Line.Number),
				})
			}
			req.FlagReferences[i].References = append(req.FlagReferences[i].References, ref)
		}
	}
	return req
}

// RelativePath strips root from path, ignoring case, and returns the rest with
// forward slashes and no leading or trailing slash. A path outside root is
// returned in full.
func RelativePath(root, path string) string {
	p := filepath.ToSlash(path)
	r := strings.TrimRight(filepath.ToSlash(root), "/")
	if r != "" && len(p) >= len(r) && strings.EqualFold(p[:len(r)], r) {
		rest := p[len(r):]
		if rest == "" || rest[0] == '/' {
			p = rest
		}
	}
	return strings.Trim(p, "/")
}

// expand replaces every {name} placeholder in template.
func expand(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for name, value := range values {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
