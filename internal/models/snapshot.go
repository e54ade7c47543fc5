package models

// FileState records one in-scope file and its last modification time in
// Unix milliseconds. Staleness detection compares these directly; file
// contents are never hashed.
type FileState struct {
	Path  string `json:"path"`
	MTime int64  `json:"mtime"`
}

// Snapshot is the persisted fingerprint of a folder's file set, taken at
// the last successful summarize.
type Snapshot struct {
	Files []FileState `json:"files"`
}
