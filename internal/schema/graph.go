package schema

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BuildOrder computes a deterministic topological order of artifact ids
// using Kahn's algorithm: the initial queue is the sorted in-degree-0 set,
// and after popping an artifact, any dependents that reach in-degree 0 are
// added to the queue as a sorted batch. Schema semantics already guarantee
// acyclicity (validateSemantics rejects cycles at load time).
func BuildOrder(s Schema) []string {
	inDegree := make(map[string]int, len(s.Artifacts))
	dependents := make(map[string][]string, len(s.Artifacts))
	for _, a := range s.Artifacts {
		inDegree[a.ID] = len(a.Requires)
		if _, ok := dependents[a.ID]; !ok {
			dependents[a.ID] = nil
		}
	}
	for _, a := range s.Artifacts {
		for _, r := range a.Requires {
			dependents[r] = append(dependents[r], a.ID)
		}
	}

	var queue []string
	for _, a := range s.Artifacts {
		if inDegree[a.ID] == 0 {
			queue = append(queue, a.ID)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		var newlyReady []string
		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				newlyReady = append(newlyReady, dep)
			}
		}
		sort.Strings(newlyReady)
		queue = append(queue, newlyReady...)
	}
	return result
}

// ArtifactDone reports whether an artifact's generates pattern is satisfied
// under changeDir: a literal path must exist; a glob pattern
// (dir/**/*.ext, dir/*.ext, **/*.ext) is satisfied if any file under its
// base directory has the matching suffix.
func ArtifactDone(changeDir, generates string) bool {
	if !strings.Contains(generates, "*") {
		_, err := os.Stat(filepath.Join(changeDir, generates))
		return err == nil
	}
	base, suffix, ok := splitGlobPattern(generates)
	if !ok {
		return false
	}
	return dirContainsFilenameSuffix(filepath.Join(changeDir, base), suffix)
}

func splitGlobPattern(pattern string) (base, suffix string, ok bool) {
	pattern = strings.TrimPrefix(pattern, "./")

	dirPart, filePat := "", pattern
	if i := strings.LastIndex(pattern, "/"); i >= 0 {
		dirPart, filePat = pattern[:i], pattern[i+1:]
	}
	if !strings.HasPrefix(filePat, "*") {
		return "", "", false
	}
	suffix = filePat[1:]

	trimmed := strings.TrimSuffix(dirPart, "/**")
	trimmed = strings.TrimSuffix(trimmed, "**")
	if strings.Contains(trimmed, "*") {
		trimmed = ""
	}
	return trimmed, suffix, true
}

func dirContainsFilenameSuffix(dir, suffix string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			if dirContainsFilenameSuffix(filepath.Join(dir, e.Name()), suffix) {
				return true
			}
			continue
		}
		if strings.HasSuffix(e.Name(), suffix) {
			return true
		}
	}
	return false
}

func computeDoneByID(changeDir string, s Schema) map[string]bool {
	out := make(map[string]bool, len(s.Artifacts))
	for _, a := range s.Artifacts {
		out[a.ID] = ArtifactDone(changeDir, a.Generates)
	}
	return out
}

// ComputeChangeStatus computes the done/ready/blocked status of every
// artifact in s for the change rooted at changeDir, in build order.
func ComputeChangeStatus(changeName, changeDir string, r Resolved) ChangeStatus {
	s := r.Schema
	doneByID := computeDoneByID(changeDir, s)

	var out []ArtifactStatus
	doneCount := 0
	for _, id := range BuildOrder(s) {
		a, ok := s.ArtifactByID(id)
		if !ok {
			continue
		}
		done := doneByID[a.ID]
		var missing []string
		if !done {
			for _, req := range a.Requires {
				if !doneByID[req] {
					missing = append(missing, req)
				}
			}
		}
		status := "blocked"
		switch {
		case done:
			doneCount++
			status = "done"
		case len(missing) == 0:
			status = "ready"
		}
		out = append(out, ArtifactStatus{
			ID:          a.ID,
			OutputPath:  a.Generates,
			Status:      status,
			MissingDeps: missing,
		})
	}

	allIDs := make([]string, 0, len(s.Artifacts))
	for _, a := range s.Artifacts {
		allIDs = append(allIDs, a.ID)
	}
	applyRequires := allIDs
	if s.Apply != nil && s.Apply.Requires != nil {
		applyRequires = s.Apply.Requires
	}

	return ChangeStatus{
		ChangeName:    changeName,
		SchemaName:    s.Name,
		IsComplete:    doneCount == len(s.Artifacts),
		ApplyRequires: applyRequires,
		Artifacts:     out,
	}
}
