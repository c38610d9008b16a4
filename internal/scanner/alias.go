package scanner

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/harrison/configcat-cli/internal/models"
)

// aliasPattern matches an identifier being assigned the quoted flag key, e.g.
//
//	const MY_FLAG = "my_flag"
//	myFlag: 'my_flag'
//	MyFlag := `my_flag`
//	[MyFlag] => @"my_flag"
const aliasPattern = `([A-Za-z_$][\w$]*)\s*(?::=|=>|=|:)\s*@?["'` + "`" + `]%s["'` + "`" + `]`

// DiscoverAliases finds identifiers that hold a flag key in any of files and
// returns copies of targets with those identifiers appended to their aliases.
// targets itself is not modified. Unreadable and non-text files are skipped.
func DiscoverAliases(ctx context.Context, files []string, targets []*models.ScanTarget, workers int) ([]*models.ScanTarget, error) {
	patterns := make([]*regexp.Regexp, len(targets))
	for i, t := range targets {
		patterns[i] = regexp.MustCompile(fmt.Sprintf(aliasPattern, regexp.QuoteMeta(t.Key)))
	}

	// found[file][target] holds the identifiers discovered in one file
	found := make([][][]string, len(files))
	err := forEachFile(ctx, workers, len(files), func(idx int) {
		lines, err := readLines(files[idx])
		if err != nil || len(lines) == 0 {
			return
		}
		content := strings.Join(lines, "\n")
		perTarget := make([][]string, len(targets))
		for i, t := range targets {
			if !strings.Contains(content, t.Key) {
				continue
			}
			for _, m := range patterns[i].FindAllStringSubmatch(content, -1) {
				if m[1] != t.Key {
					perTarget[i] = append(perTarget[i], m[1])
				}
			}
		}
		found[idx] = perTarget
	})
	if err != nil {
		return nil, fmt.Errorf("alias discovery interrupted: %w", err)
	}

	out := make([]*models.ScanTarget, len(targets))
	for i, t := range targets {
		var discovered []string
		for _, perTarget := range found {
			if perTarget != nil {
				discovered = append(discovered, perTarget[i]...)
			}
		}
		slices.Sort(discovered)

		copied := *t
		copied.Aliases = cleanAliases(t.Key, append(slices.Clone(t.Aliases), discovered...))
		out[i] = &copied
	}
	return out, nil
}
