// FILE: src/internal/record/path.go
package record

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPath    = errors.New("empty entity path")
	ErrEmptyPayload = errors.New("record payload missing or empty")
	ErrUnknownKind  = errors.New("unknown record kind")
)

// JoinPath concatenates entity path fragments with a single separator.
// Empty fragments are skipped, leading/trailing/duplicate slashes collapse.
func JoinPath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		for _, seg := range strings.Split(part, "/") {
			if seg != "" {
				segments = append(segments, seg)
			}
		}
	}
	return strings.Join(segments, "/")
}

// ValidatePath rejects paths that would break hierarchical addressing
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return fmt.Errorf("entity path %q contains empty segment", path)
		}
		if seg == "." || seg == ".." {
			return fmt.Errorf("entity path %q contains relative segment", path)
		}
		for _, r := range seg {
			if r < 0x20 || r == 0x7f {
				return fmt.Errorf("entity path %q contains control character", path)
			}
		}
	}

	return nil
}
