package display

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/harrison/configcat-cli/internal/models"
)

// Flags writes flags as an aligned table.
func (p *Printer) Flags(flags []models.Flag) error {
	if len(flags) == 0 {
		p.Line("No feature flags / settings found.")
		return nil
	}

	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKEY\tNAME\tTYPE\tTAGS\tOWNER\tCONFIG")
	for _, f := range flags {
		tags := make([]string, 0, len(f.Tags))
		for _, t := range f.Tags {
			tags = append(tags, t.Name)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			f.SettingID, f.Key, f.Name, f.SettingType, dash(strings.Join(tags, ", ")), dash(f.OwnerName), dash(f.ConfigName))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
