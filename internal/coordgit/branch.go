package coordgit

import "strings"

// DefaultBranch is the conventional coordination branch name, per spec.md
// §4.9.
const DefaultBranch = "ito/internal/changes"

var invalidChars = "~^:?*[\\"

// ValidBranchName reports whether name is a safe git ref name per the
// rules spec.md §4.9 lists: no empty segments, no leading/trailing slash,
// no leading "-", no "..", no "@{", no "//", no trailing "." or ".lock", no
// control characters or spaces, none of ~^:?*[\, and every "/"-separated
// segment non-empty, not starting with ".", and not ending in "." or
// ".lock".
func ValidBranchName(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return false
	}
	if strings.HasPrefix(name, "-") {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	if strings.Contains(name, "@{") {
		return false
	}
	if strings.Contains(name, "//") {
		return false
	}
	if strings.HasSuffix(name, ".") || strings.HasSuffix(name, ".lock") {
		return false
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f || r == ' ' {
			return false
		}
	}
	if strings.ContainsAny(name, invalidChars) {
		return false
	}

	for _, seg := range strings.Split(name, "/") {
		if seg == "" {
			return false
		}
		if strings.HasPrefix(seg, ".") {
			return false
		}
		if strings.HasSuffix(seg, ".") || strings.HasSuffix(seg, ".lock") {
			return false
		}
	}
	return true
}
