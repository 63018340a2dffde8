// Package itopath computes and validates paths under an Ito store root and
// parses canonical change identifiers.
package itopath

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// DirName is the conventional name of the Ito store root inside a git worktree.
const DirName = ".ito"

var changeIDPattern = regexp.MustCompile(`^(\d+)-(\d+)(?:_([a-z0-9][a-z0-9-]*))?$`)

// ChangeID is a parsed canonical change identifier: MMM-CC[_slug].
type ChangeID struct {
	Module string
	Number string
	Slug   string
}

// String renders the canonical MMM-CC[_slug] form.
func (c ChangeID) String() string {
	if c.Slug == "" {
		return c.Module + "-" + c.Number
	}
	return c.Module + "-" + c.Number + "_" + c.Slug
}

// IsSafeSegment reports whether id is safe to use as a single path segment:
// non-empty, at most 256 bytes, and free of '/', '\', and "..".
func IsSafeSegment(id string) bool {
	if id == "" || len(id) > 256 {
		return false
	}
	if strings.ContainsAny(id, `/\`) {
		return false
	}
	if strings.Contains(id, "..") {
		return false
	}
	return true
}

// ParseChangeID parses input as MMM-CC[_slug], normalizing the module id to
// 3 digits and the change number to at least 2 digits (left zero-padded).
// It returns ok=false for anything that doesn't match the shape.
func ParseChangeID(input string) (ChangeID, bool) {
	if !IsSafeSegment(input) {
		return ChangeID{}, false
	}
	m := changeIDPattern.FindStringSubmatch(input)
	if m == nil {
		return ChangeID{}, false
	}
	modNum, err := strconv.Atoi(m[1])
	if err != nil {
		return ChangeID{}, false
	}
	chNum, err := strconv.Atoi(m[2])
	if err != nil {
		return ChangeID{}, false
	}
	return ChangeID{
		Module: fmt.Sprintf("%03d", modNum),
		Number: fmt.Sprintf("%02d", chNum),
		Slug:   m[3],
	}, true
}

// ExtractModuleID returns the 3-digit module prefix of a canonical change id,
// or ok=false if id does not parse.
func ExtractModuleID(id string) (string, bool) {
	parsed, ok := ParseChangeID(id)
	if !ok {
		return "", false
	}
	return parsed.Module, true
}

// ChangesRoot returns <itoPath>/changes.
func ChangesRoot(itoPath string) string {
	return filepath.Join(itoPath, "changes")
}

// ArchiveDir returns <itoPath>/changes/archive.
func ArchiveDir(itoPath string) string {
	return filepath.Join(ChangesRoot(itoPath), "archive")
}

// ChangeDir returns <itoPath>/changes/<changeID>, rejecting unsafe change ids
// so callers never construct a path from untrusted input without this check.
func ChangeDir(itoPath, changeID string) (string, error) {
	if !IsSafeSegment(changeID) {
		return "", fmt.Errorf("change not found: %q", changeID)
	}
	return filepath.Join(ChangesRoot(itoPath), changeID), nil
}

// ArchivedChangeDir returns <itoPath>/changes/archive/<changeID>.
func ArchivedChangeDir(itoPath, changeID string) (string, error) {
	if !IsSafeSegment(changeID) {
		return "", fmt.Errorf("change not found: %q", changeID)
	}
	return filepath.Join(ArchiveDir(itoPath), changeID), nil
}

// TasksPath returns <itoPath>/changes/<changeID>/tasks.md.
func TasksPath(itoPath, changeID string) (string, error) {
	dir, err := ChangeDir(itoPath, changeID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tasks.md"), nil
}

// ChangeMetaPath returns <itoPath>/changes/<changeID>/.ito.yaml.
func ChangeMetaPath(itoPath, changeID string) (string, error) {
	dir, err := ChangeDir(itoPath, changeID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".ito.yaml"), nil
}

// ModuleDir returns <itoPath>/modules/<dirName>.
func ModuleDir(itoPath, dirName string) (string, error) {
	if !IsSafeSegment(dirName) {
		return "", fmt.Errorf("module not found: %q", dirName)
	}
	return filepath.Join(itoPath, "modules", dirName), nil
}

// StateDir returns <itoPath>/.state.
func StateDir(itoPath string) string {
	return filepath.Join(itoPath, ".state")
}

// AuditLogPath returns <itoPath>/.state/audit/events.jsonl.
func AuditLogPath(itoPath string) string {
	return filepath.Join(StateDir(itoPath), "audit", "events.jsonl")
}

// AuditSessionPath returns <itoPath>/.state/audit/.session.
func AuditSessionPath(itoPath string) string {
	return filepath.Join(StateDir(itoPath), "audit", ".session")
}

// RalphStateDir returns <itoPath>/.state/ralph/<changeID>, rejecting unsafe
// change ids.
func RalphStateDir(itoPath, changeID string) (string, error) {
	if !IsSafeSegment(changeID) {
		return "", fmt.Errorf("change not found: %q", changeID)
	}
	return filepath.Join(StateDir(itoPath), "ralph", changeID), nil
}

// RalphStatePath returns <itoPath>/.state/ralph/<changeID>/state.json.
func RalphStatePath(itoPath, changeID string) (string, error) {
	dir, err := RalphStateDir(itoPath, changeID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

// RalphContextPath returns <itoPath>/.state/ralph/<changeID>/context.md.
func RalphContextPath(itoPath, changeID string) (string, error) {
	dir, err := RalphStateDir(itoPath, changeID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "context.md"), nil
}

// ProjectSchemasDir returns <itoPath>/schemas.
func ProjectSchemasDir(itoPath string) string {
	return filepath.Join(itoPath, "schemas")
}

// UserGuidancePath returns <itoPath>/user-guidance.md.
func UserGuidancePath(itoPath string) string {
	return filepath.Join(itoPath, "user-guidance.md")
}

// IsSafeRelativePath reports whether p is safe to join onto a trusted base
// directory: non-empty, not absolute, and free of ".." segments.
func IsSafeRelativePath(p string) bool {
	if p == "" || filepath.IsAbs(p) {
		return false
	}
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return false
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}
