package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Entity kinds used as identifier prefixes.
const (
	KindUploadSession = "UPLD"
	KindFile          = "FILE"
)

// NewID generates a kind-prefixed opaque identifier, e.g.
// "UPLD_9f8c2d4e1a0b4c6d8e2f4a6b8c0d2e4f". The prefix exists purely for
// debuggability; callers must treat the whole string as opaque.
func NewID(kind string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s_%s", kind, raw)
}
