package chatlog

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/foldertalk/foldertalk/internal/logger"
	"github.com/foldertalk/foldertalk/internal/models"
	"github.com/foldertalk/foldertalk/internal/storage"
)

// titleHeader is written once at the top of every new log file.
const titleHeader = "# Chat history"

var turnHeaderPattern = regexp.MustCompile(`^## \[(.*)\] (user|assistant)$`)

// Store reads and appends the durable markdown conversation log. Every read
// re-parses the file from scratch so an externally rewritten log is picked
// up; no parsed state is cached across calls.
type Store struct {
	blobs storage.Store
	path  string
}

// NewStore creates a log store for the given log file path.
func NewStore(blobs storage.Store, path string) *Store {
	return &Store{blobs: blobs, path: path}
}

// Path returns the log file path within the blob store.
func (s *Store) Path() string {
	return s.path
}

// Load parses the log into entries. A missing or unparseable file yields an
// empty history, never an error: the next successful append repairs it. A
// legacy JSON log is migrated to the markdown format on first read.
// Whitespace surrounding a turn's text is normalized away, so the role and
// content sequence round-trips but leading/trailing blank lines do not.
func (s *Store) Load() []models.ChatLogEntry {
	if !s.blobs.Exists(s.path) {
		return nil
	}

	content, err := s.blobs.Read(s.path)
	if err != nil {
		logger.Warnf("chat log unreadable, starting empty: %v", err)
		return nil
	}

	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if entries := parseLegacy(content); len(entries) > 0 {
			if err := s.rewrite(entries); err != nil {
				logger.Warnf("failed to migrate legacy chat log: %v", err)
			} else {
				logger.Infof("migrated legacy chat log: %s (%d entries)", s.path, len(entries))
			}
			return entries
		}
	}

	return parseMarkdown(content)
}

// Append writes one turn to the end of the log, creating the file with its
// title header first if needed.
func (s *Store) Append(entry models.ChatLogEntry) error {
	block := formatEntry(entry)
	if !s.blobs.Exists(s.path) {
		return s.blobs.Write(s.path, titleHeader+"\n\n"+block)
	}
	return s.blobs.Append(s.path, block)
}

// rewrite replaces the log file with the markdown rendering of entries.
func (s *Store) rewrite(entries []models.ChatLogEntry) error {
	var doc strings.Builder
	doc.WriteString(titleHeader + "\n\n")
	for _, entry := range entries {
		doc.WriteString(formatEntry(entry))
	}
	return s.blobs.Write(s.path, doc.String())
}

func formatEntry(entry models.ChatLogEntry) string {
	timestamp := ""
	if !entry.Timestamp.IsZero() {
		timestamp = entry.Timestamp.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("## [%s] %s\n%s\n\n", timestamp, entry.Role, entry.Content)
}

// parseMarkdown scans the line-oriented log format: a turn header starts a
// turn, following lines accumulate into its text, and the leading title
// line is ignored.
func parseMarkdown(content string) []models.ChatLogEntry {
	var entries []models.ChatLogEntry
	var current *models.ChatLogEntry
	var buffer []string

	flush := func() {
		if current == nil {
			return
		}
		text := strings.TrimSpace(strings.Join(buffer, "\n"))
		if text != "" {
			current.Content = text
			entries = append(entries, *current)
		}
		current = nil
		buffer = nil
	}

	for _, line := range strings.Split(content, "\n") {
		if match := turnHeaderPattern.FindStringSubmatch(line); match != nil {
			flush()
			entry := models.ChatLogEntry{Role: models.Role(match[2])}
			if ts, err := time.Parse(time.RFC3339, match[1]); err == nil {
				entry.Timestamp = ts
			}
			current = &entry
			continue
		}
		if current == nil {
			// Title line or stray text before the first turn.
			continue
		}
		buffer = append(buffer, line)
	}
	flush()

	return entries
}
