package protocol

import (
	"regexp"
	"strings"
)

// artifactSectionMarker starts the artifact block in a finalized assistant
// message. The marker must match the whole trimmed line.
const artifactSectionMarker = "Артефакты:"

var artifactBulletPattern = regexp.MustCompile(`^- (/artifacts/\S+)$`)

// ExtractArtifactPaths scans a finalized assistant message for the artifact
// section and collects the referenced paths. The block ends at the first
// blank or non-matching line; a malformed bullet silently terminates the
// block rather than erroring. No marker means no artifacts.
func ExtractArtifactPaths(message string) []string {
	paths := []string{}
	inBlock := false

	for _, line := range strings.Split(message, "\n") {
		trimmed := strings.TrimSpace(line)

		if !inBlock {
			if trimmed == artifactSectionMarker {
				inBlock = true
			}
			continue
		}

		match := artifactBulletPattern.FindStringSubmatch(trimmed)
		if match == nil {
			break
		}
		paths = append(paths, match[1])
	}

	return paths
}
