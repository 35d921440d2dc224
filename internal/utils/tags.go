package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeTags turns the lenient wire representation of tags into a plain
// string list. Accepted shapes: a JSON array of strings, a single string
// (split on commas), or any other scalar (kept verbatim as one tag).
// Leniency lives here, at the boundary; everything past the handlers sees
// an already-normalized []string.
func NormalizeTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimTags(list)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return trimTags(strings.Split(s, ","))
	}

	var scalar any
	if err := json.Unmarshal(raw, &scalar); err == nil && scalar != nil {
		return []string{fmt.Sprintf("%v", scalar)}
	}
	return []string{}
}

func trimTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
