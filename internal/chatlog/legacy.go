package chatlog

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/foldertalk/foldertalk/internal/models"
)

var legacyListKeys = []string{"messages", "history", "items", "log"}
var legacyRoleKeys = []string{"role", "type", "author", "sender"}
var legacyTextKeys = []string{"content", "text", "message"}
var legacyTimeKeys = []string{"timestamp", "time", "created_at", "createdAt", "date", "ts"}

// epochMillisThreshold separates epoch seconds from epoch milliseconds in
// numeric legacy timestamps.
const epochMillisThreshold = 1e12

// parseLegacy attempts to read an older structured log format: either a raw
// JSON array of items or an object wrapping one under a known key. Items
// that cannot resolve a role and text are skipped; system turns are dropped
// since only user and assistant turns are persisted.
func parseLegacy(content string) []models.ChatLogEntry {
	var root interface{}
	if err := json.Unmarshal([]byte(content), &root); err != nil {
		return nil
	}

	var items []interface{}
	switch value := root.(type) {
	case []interface{}:
		items = value
	case map[string]interface{}:
		for _, key := range legacyListKeys {
			if list, ok := value[key].([]interface{}); ok {
				items = list
				break
			}
		}
	}

	var entries []models.ChatLogEntry
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		entry, ok := parseLegacyItem(obj)
		if !ok || entry.Role == models.RoleSystem {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func parseLegacyItem(obj map[string]interface{}) (models.ChatLogEntry, bool) {
	var entry models.ChatLogEntry

	for _, key := range legacyRoleKeys {
		if value, ok := obj[key].(string); ok {
			role := models.Role(strings.ToLower(strings.TrimSpace(value)))
			if role.Valid() {
				entry.Role = role
				break
			}
		}
	}
	if entry.Role == "" {
		return entry, false
	}

	for _, key := range legacyTextKeys {
		if value, ok := obj[key].(string); ok && value != "" {
			entry.Content = value
			break
		}
	}
	if strings.TrimSpace(entry.Content) == "" {
		return entry, false
	}

	for _, key := range legacyTimeKeys {
		value, present := obj[key]
		if !present {
			continue
		}
		if ts, ok := parseLegacyTimestamp(value); ok {
			entry.Timestamp = ts
		}
		// Unparseable timestamps are dropped, not defaulted to now.
		break
	}

	return entry, true
}

func parseLegacyTimestamp(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, v); err == nil {
				return ts, true
			}
		}
	case float64:
		if v <= 0 {
			return time.Time{}, false
		}
		if v >= epochMillisThreshold {
			return time.UnixMilli(int64(v)).UTC(), true
		}
		return time.Unix(int64(v), 0).UTC(), true
	}
	return time.Time{}, false
}
