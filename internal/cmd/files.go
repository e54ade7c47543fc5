package cmd

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/foldertalk/foldertalk/internal/models"
)

// contextDir holds foldertalk's own files inside the conversation folder.
const (
	contextDir   = ".foldertalk"
	chatLogFile  = contextDir + "/chat.md"
	snapshotFile = contextDir + "/snapshot.json"
	summaryFile  = contextDir + "/summary.md"
)

// scanFolder lists the in-scope files of a folder with their modification
// times. Hidden entries (including the context dir) are skipped.
func scanFolder(folder string) ([]models.FileState, error) {
	var files []models.FileState
	err := filepath.WalkDir(folder, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() {
			if path != folder && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		files = append(files, models.FileState{Path: filepath.ToSlash(rel), MTime: info.ModTime().UnixMilli()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
