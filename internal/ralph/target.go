package ralph

import (
	"fmt"
	"os"
	"sort"

	"github.com/jamesonstone/ito/internal/itopath"
)

// ResolveTarget turns a user-supplied identifier into a concrete change id:
// if input parses as a change id and that change's directory exists, it is
// returned (normalized). Otherwise input is compared against each active
// change's 3-digit module id and full id, and the call succeeds only if
// exactly one active (non-archived) change matches.
// §4.7's target-resolution rule.
func ResolveTarget(itoPath, input string) (string, error) {
	if parsed, ok := itopath.ParseChangeID(input); ok {
		dir, err := itopath.ChangeDir(itoPath, parsed.String())
		if err == nil {
			if _, statErr := os.Stat(dir); statErr == nil {
				return parsed.String(), nil
			}
		}
	}

	changesRoot := itopath.ChangesRoot(itoPath)
	entries, err := os.ReadDir(changesRoot)
	if err != nil {
		return "", fmt.Errorf("read changes directory: %w", err)
	}

	var matches []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "archive" {
			continue
		}
		parsed, ok := itopath.ParseChangeID(e.Name())
		if !ok {
			continue
		}
		if parsed.Module == input || parsed.String() == input {
			matches = append(matches, parsed.String())
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no change found for %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q is ambiguous: matches changes %v, specify one explicitly", input, matches)
	}
}
