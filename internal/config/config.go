// Package config loads the project configuration cascade described in
// spec.md §6: four optional JSON files merged into one document, with
// objects merged recursively, arrays replaced wholesale, and scalars simply
// overridden by whichever file has higher precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CandidatePaths returns the config file locations spec.md §6 names, in
// precedence order from lowest to highest: each later file in this list
// overrides keys the earlier ones set. The fourth source,
// "$PROJECT_DIR/config.json when set", is only included when the
// PROJECT_DIR environment variable is non-empty.
func CandidatePaths(repoRoot, itoPath string) []string {
	paths := []string{
		filepath.Join(repoRoot, "ito.json"),
		filepath.Join(repoRoot, ".ito.json"),
		filepath.Join(itoPath, "config.json"),
	}
	if projectDir := os.Getenv("PROJECT_DIR"); projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, "config.json"))
	}
	return paths
}

// Load reads every file CandidatePaths names that exists and merges them
// into a single document, lowest precedence first so each later source
// overrides the earlier ones. Missing files are skipped silently; a
// present-but-malformed file is an error.
func Load(repoRoot, itoPath string) (map[string]any, error) {
	merged := map[string]any{}
	for _, path := range CandidatePaths(repoRoot, itoPath) {
		doc, err := readJSONObject(path)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		delete(doc, "$schema")
		merged = mergeObjects(merged, doc)
	}
	return merged, nil
}

func readJSONObject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// mergeObjects recursively merges overlay onto base: nested objects merge
// key-by-key, arrays and scalars in overlay replace whatever base had for
// that key.
func mergeObjects(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if overlayObj, ok := v.(map[string]any); ok {
			if baseObj, ok := out[k].(map[string]any); ok {
				out[k] = mergeObjects(baseObj, overlayObj)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Pointer resolves an RFC 6901-style JSON pointer against doc, the
// document Load returns. validate's command discovery does not call it: it
// has its own pointer lookup over single files rather than the merged document.
func Pointer(doc map[string]any, pointer string) (any, bool) {
	var cur any = doc
	return pointerGet(cur, pointer)
}

func pointerGet(doc any, pointer string) (any, bool) {
	if pointer == "" || pointer == "/" {
		return doc, true
	}
	return pointerWalk(doc, splitPointer(pointer))
}

func splitPointer(pointer string) []string {
	if len(pointer) == 0 || pointer[0] != '/' {
		return nil
	}
	pointer = pointer[1:]
	var segments []string
	start := 0
	for i := 0; i < len(pointer); i++ {
		if pointer[i] == '/' {
			segments = append(segments, unescapeToken(pointer[start:i]))
			start = i + 1
		}
	}
	segments = append(segments, unescapeToken(pointer[start:]))
	return segments
}

func unescapeToken(tok string) string {
	out := make([]byte, 0, len(tok))
	for i := 0; i < len(tok); i++ {
		if tok[i] == '~' && i+1 < len(tok) {
			switch tok[i+1] {
			case '1':
				out = append(out, '/')
				i++
				continue
			case '0':
				out = append(out, '~')
				i++
				continue
			}
		}
		out = append(out, tok[i])
	}
	return string(out)
}

func pointerWalk(cur any, segments []string) (any, bool) {
	for _, seg := range segments {
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

// FindProjectRoot traverses upward from dir looking for a directory
// containing an .ito store, returning the first ancestor that has one.
func FindProjectRoot(dir, itoDirName string) (string, error) {
	for {
		candidate := filepath.Join(dir, itoDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found in %s or any parent directory", itoDirName, dir)
		}
		dir = parent
	}
}
