package session

import (
	"fmt"
	"time"

	"github.com/foldertalk/foldertalk/internal/models"
	"github.com/foldertalk/foldertalk/internal/snapshot"
)

// PrepareFolder runs the folder-open staleness check. When the stored
// snapshot no longer matches the current file set, the prior context files
// are archived before a fresh snapshot is written, so earlier chat logs and
// summaries are preserved instead of silently overwritten.
func PrepareFolder(tracker *snapshot.Tracker, current []models.FileState, archivePaths []string) (snapshot.Evaluation, error) {
	eval := tracker.Evaluate(current)

	switch {
	case !eval.Exists:
		if err := tracker.Write(current); err != nil {
			return eval, fmt.Errorf("failed to write initial snapshot: %w", err)
		}
	case eval.Changed:
		if err := tracker.Archive(archivePaths, time.Now()); err != nil {
			return eval, err
		}
		if err := tracker.Write(current); err != nil {
			return eval, fmt.Errorf("failed to refresh snapshot: %w", err)
		}
	}

	return eval, nil
}
