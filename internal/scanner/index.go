package scanner

import "github.com/harrison/configcat-cli/internal/models"

// BuildTargets merges active and deleted flags into scan targets.
//
// A deleted flag whose key is also an active key is dropped (keys compare
// case-sensitively), as is any repeat of a deleted key. Active flags come first
// in source order, followed by the surviving deleted flags. Empty keys and
// aliases are left out because they would match every line.
func BuildTargets(active []models.Flag, deleted []models.DeletedFlag) []*models.ScanTarget {
	seen := make(map[string]bool, len(active)+len(deleted))
	targets := make([]*models.ScanTarget, 0, len(active)+len(deleted))

	for _, f := range active {
		if f.Key == "" || seen[f.Key] {
			continue
		}
		seen[f.Key] = true
		targets = append(targets, &models.ScanTarget{
			Key:       f.Key,
			Aliases:   cleanAliases(f.Key, f.Aliases),
			SettingID: f.SettingID,
		})
	}

	for _, f := range deleted {
		if f.Key == "" || seen[f.Key] {
			continue
		}
		seen[f.Key] = true
		targets = append(targets, &models.ScanTarget{
			Key:       f.Key,
			SettingID: f.SettingID,
			Deleted:   true,
		})
	}

	return targets
}

// cleanAliases drops empty aliases, duplicates and aliases equal to the key,
// keeping the original order.
func cleanAliases(key string, aliases []string) []string {
	if len(aliases) == 0 {
		return nil
	}
	seen := map[string]bool{key: true}
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
