package models

// Line is a single 1-based line of a scanned file.
type Line struct {
	Number int    `json:"lineNumber"`
	Text   string `json:"lineText"`
}

// Match is one occurrence of a scan target on a line, with its surrounding context.
type Match struct {
	File        string
	Target      *ScanTarget
	MatchedText string
	Line        Line
	PreLines    []Line
	PostLines   []Line
}

// FileMatchGroup holds every match found in one file, ordered by line number.
type FileMatchGroup struct {
	File    string
	Matches []Match
}

// Filter returns a copy of the group restricted to matches accepted by keep.
// The second return value is false when no match survives.
func (g FileMatchGroup) Filter(keep func(Match) bool) (FileMatchGroup, bool) {
	out := FileMatchGroup{File: g.File}
	for _, m := range g.Matches {
		if keep(m) {
			out.Matches = append(out.Matches, m)
		}
	}
	return out, len(out.Matches) > 0
}

// ScanReport is the immutable outcome of a scan: one group per file with at least
// one match, in the order the files were handed to the scanner.
type ScanReport struct {
	Groups       []FileMatchGroup
	FilesScanned int
	FilesSkipped int
}

// MatchCount returns the number of matches across all groups.
func (r *ScanReport) MatchCount() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Matches)
	}
	return n
}
