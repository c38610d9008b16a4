package models

import "slices"

// Tag is a label attached to a feature flag.
type Tag struct {
	TagID int    `json:"tagId"`
	Name  string `json:"name"`
}

// Flag is an active feature flag or setting as returned by the flag source.
type Flag struct {
	SettingID   int      `json:"settingId"`
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Hint        string   `json:"hint"`
	SettingType string   `json:"settingType"`
	ConfigID    string   `json:"configId"`
	ConfigName  string   `json:"configName"`
	OwnerName   string   `json:"ownerUserFullName"`
	OwnerEmail  string   `json:"ownerUserEmail"`
	Tags        []Tag    `json:"tags"`
	Aliases     []string `json:"aliases,omitempty"`
}

// HasTag reports whether the flag carries a tag with the given name and a tag
// with the given id. The two may be different tags. An empty name or nil id is
// not used as a filter.
func (f Flag) HasTag(name string, id *int) bool {
	if name != "" && !slices.ContainsFunc(f.Tags, func(t Tag) bool { return t.Name == name }) {
		return false
	}
	if id != nil && !slices.ContainsFunc(f.Tags, func(t Tag) bool { return t.TagID == *id }) {
		return false
	}
	return true
}

// DeletedFlag is a recently deleted feature flag or setting.
type DeletedFlag struct {
	SettingID int    `json:"settingId"`
	Key       string `json:"key"`
	Name      string `json:"name"`
}

// ScanTarget is a flag key together with its aliases, searched for in source text.
// Targets are built once before scanning and never mutated afterwards.
type ScanTarget struct {
	Key       string
	Aliases   []string
	SettingID int
	Deleted   bool
}

// Texts returns the key followed by the aliases, in match priority order.
func (t *ScanTarget) Texts() []string {
	texts := make([]string, 0, len(t.Aliases)+1)
	texts = append(texts, t.Key)
	return append(texts, t.Aliases...)
}

// Product is a product of the organization.
type Product struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
}

// Config is a config of a product.
type Config struct {
	ConfigID string `json:"configId"`
	Name     string `json:"name"`
}
