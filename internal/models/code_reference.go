package models

// ReferenceLines is one uploaded code reference of a flag.
type ReferenceLines struct {
	File          string `json:"file"`
	FileURL       string `json:"fileUrl,omitempty"`
	PreLines      []Line `json:"preLines"`
	ReferenceLine Line   `json:"referenceLine"`
	PostLines     []Line `json:"postLines"`
}

// FlagReference groups every uploaded reference of a single flag.
type FlagReference struct {
	SettingID  int              `json:"settingId"`
	References []ReferenceLines `json:"references"`
}

// CodeReferenceRequest is the payload of a code reference upload.
type CodeReferenceRequest struct {
	FlagReferences []FlagReference `json:"flagReferences"`
	Repository     string          `json:"repository"`
	Branch         string          `json:"branch"`
	CommitHash     string          `json:"commitHash,omitempty"`
	CommitURL      string          `json:"commitUrl,omitempty"`
	ActiveBranches []string        `json:"activeBranches,omitempty"`
	ConfigID       string          `json:"configId"`
	Uploader       string          `json:"uploader"`
}
