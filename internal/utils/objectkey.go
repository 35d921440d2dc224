package utils

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeFilename makes a client-supplied filename safe for use as the
// final segment of an object key: any path prefix is dropped and
// whitespace runs become underscores.
func SanitizeFilename(name string) string {
	// Keep only the last path segment, whichever separator the client used.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "_")
	if name == "" {
		return "unnamed"
	}
	return name
}

// DeriveObjectKey builds the canonical storage path for a file:
//
//	<basePrefix>/datastore/<datastoreID>/session/<sessionID>/file/<fileID>/<sanitizedFilename>
//
// Empty segments are skipped. The function is pure: identical inputs always
// produce an identical key, and distinct file ids can never collide.
func DeriveObjectKey(basePrefix, datastoreID, sessionID, fileID, filename string) string {
	segments := []string{basePrefix}
	if datastoreID != "" {
		segments = append(segments, "datastore", datastoreID)
	}
	if sessionID != "" {
		segments = append(segments, "session", sessionID)
	}
	if fileID != "" {
		segments = append(segments, "file", fileID)
	}
	segments = append(segments, SanitizeFilename(filename))

	nonEmpty := segments[:0]
	for _, s := range segments {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "/")
}
