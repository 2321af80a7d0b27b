package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidatePath validates a dependency target path for safety, enforcing
// the PathEscape invariant: every path key in a DepsSpec must be a
// relative forward-slash path that, once absolutized against a base
// directory, remains within that base.
//
// Validation rules:
//   - path cannot be empty
//   - no null bytes or control characters
//   - no absolute paths (must be relative)
//   - no backslashes (Windows-style separators are rejected outright)
//   - no ".." segments, so the path cannot climb out of a base it is
//     later joined to (ResolveWithinBase also checks the joined result)
func ValidatePath(path string) error {
	if path == "" {
		return New(CodePathEscape, "path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(CodePathEscape, "path %q contains invalid control characters", path)
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(CodePathEscape, "path %q must be relative", path)
	}

	if strings.Contains(path, "\\") {
		return New(CodePathEscape, "path %q cannot contain backslashes", path)
	}

	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return New(CodePathEscape, "path %q cannot contain '..' segments", path)
		}
	}

	return nil
}

// ResolveWithinBase joins rel onto base and rejects the result if it
// escapes base. Used by the DEPS parser, the GN-args writer, and the
// planner's deletion-set resolution, all of which must reject any
// resolved path that climbs above the workspace root.
func ResolveWithinBase(base, rel string) (string, error) {
	if err := ValidatePath(rel); err != nil {
		return "", err
	}

	joined := filepath.Join(base, filepath.FromSlash(rel))
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", Wrap(CodeIO, err, "resolving base path %q", base)
	}
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", Wrap(CodeIO, err, "resolving path %q", joined)
	}

	rp, err := filepath.Rel(absBase, absJoined)
	if err != nil || rp == ".." || strings.HasPrefix(rp, ".."+string(filepath.Separator)) {
		return "", New(CodePathEscape, "path %q escapes workspace base %q", rel, base)
	}

	return absJoined, nil
}
