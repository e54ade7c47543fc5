package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/foldertalk/foldertalk/internal/logger"
	"github.com/foldertalk/foldertalk/internal/models"
	"github.com/foldertalk/foldertalk/internal/storage"
)

// Evaluation is the result of comparing the current file set against the
// stored snapshot.
type Evaluation struct {
	Exists  bool
	Changed bool
}

// Tracker fingerprints a folder's file set to detect context staleness.
// Comparison is by path-set equality and per-path modify-time equality;
// contents are never hashed, so a file touched without edits still counts
// as changed.
type Tracker struct {
	blobs storage.Store
	path  string
}

// NewTracker creates a tracker persisting its snapshot at the given path.
func NewTracker(blobs storage.Store, path string) *Tracker {
	return &Tracker{blobs: blobs, path: path}
}

// Evaluate compares current files against the stored snapshot. A missing or
// unparseable snapshot reports {Exists: false}, never an error.
func (t *Tracker) Evaluate(current []models.FileState) Evaluation {
	if !t.blobs.Exists(t.path) {
		return Evaluation{}
	}

	data, err := t.blobs.ReadBinary(t.path)
	if err != nil {
		logger.Warnf("snapshot unreadable, treating as absent: %v", err)
		return Evaluation{}
	}

	var stored models.Snapshot
	if err := json.Unmarshal(data, &stored); err != nil {
		logger.Warnf("snapshot corrupt, treating as absent: %v", err)
		return Evaluation{}
	}

	return Evaluation{Exists: true, Changed: differs(stored.Files, current)}
}

// Write replaces the stored snapshot with the current file set.
func (t *Tracker) Write(current []models.FileState) error {
	data, err := json.MarshalIndent(models.Snapshot{Files: current}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return t.blobs.Write(t.path, string(data))
}

// Archive renames each existing path to a timestamp-suffixed sibling. This
// runs before a fresh snapshot is written so stale chat logs and summaries
// are preserved instead of silently overwritten.
func (t *Tracker) Archive(paths []string, now time.Time) error {
	suffix := now.UTC().Format("20060102-150405")
	for _, path := range paths {
		if !t.blobs.Exists(path) {
			continue
		}
		archived := fmt.Sprintf("%s.%s", path, suffix)
		if err := t.blobs.Rename(path, archived); err != nil {
			return fmt.Errorf("failed to archive %s: %w", path, err)
		}
		logger.Infof("archived stale context file: %s -> %s", path, archived)
	}
	return nil
}

func differs(stored, current []models.FileState) bool {
	if len(stored) != len(current) {
		return true
	}
	byPath := make(map[string]int64, len(stored))
	for _, file := range stored {
		byPath[file.Path] = file.MTime
	}
	for _, file := range current {
		mtime, ok := byPath[file.Path]
		if !ok || mtime != file.MTime {
			return true
		}
	}
	return false
}
