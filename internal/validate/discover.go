package validate

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// pointerPaths are the JSON pointers checked, in order, within each
// candidate config file, per spec.md §4.8 step 2.
var pointerPaths = []string{"/ralph/validationCommands", "/ralph/validation/commands"}

var makeCommandPattern = regexp.MustCompile(`\bmake\s+(check|test)\b`)

// DiscoverCommands resolves the project's validation commands, trying each
// source in order and returning the first that yields a non-empty list:
//
//  1. <repoRoot>/ito.json
//  2. <itoPath>/config.json
//  3. heuristic grep of AGENTS.md / CLAUDE.md for "make check" / "make test"
//
// An empty return means no source configured anything.
func DiscoverCommands(repoRoot, itoPath string) []string {
	for _, path := range []string{filepath.Join(repoRoot, "ito.json"), filepath.Join(itoPath, "config.json")} {
		if cmds := commandsFromJSONFile(path); len(cmds) > 0 {
			return cmds
		}
	}
	return commandsFromAgentsFiles(repoRoot)
}

func commandsFromJSONFile(path string) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	for _, ptr := range pointerPaths {
		if v, ok := jsonPointerGet(doc, ptr); ok {
			if cmds, ok := stringSlice(v); ok && len(cmds) > 0 {
				return cmds
			}
		}
	}
	return nil
}

// jsonPointerGet resolves an RFC 6901-style pointer ("/a/b") against a
// decoded JSON document (maps/slices/scalars from encoding/json).
func jsonPointerGet(doc any, pointer string) (any, bool) {
	if pointer == "" {
		return doc, true
	}
	segments := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	cur := doc
	for _, seg := range segments {
		seg = strings.ReplaceAll(seg, "~1", "/")
		seg = strings.ReplaceAll(seg, "~0", "~")
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func stringSlice(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// commandsFromAgentsFiles greps AGENTS.md / CLAUDE.md for the literal
// "make check" / "make test" invocations mentioned in prose, as a last
// resort when no structured config declares validation commands.
func commandsFromAgentsFiles(repoRoot string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range []string{"AGENTS.md", "CLAUDE.md"} {
		f, err := os.Open(filepath.Join(repoRoot, name))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			for _, m := range makeCommandPattern.FindAllString(scanner.Text(), -1) {
				if !seen[m] {
					seen[m] = true
					out = append(out, m)
				}
			}
		}
		f.Close()
	}
	return out
}
