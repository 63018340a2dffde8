package tasks

import "strconv"

// validateRelational runs the pure relational checks over
// already-parsed tasks and waves: missing/self/cyclic references in both the
// wave graph and the task graph, and dependencies on shelved tasks.
func validateRelational(tasksList []Task, waves []Wave) []Diagnostic {
	var diags []Diagnostic

	waveByNum := make(map[int]Wave, len(waves))
	for _, w := range waves {
		waveByNum[w.Number] = w
	}
	for _, w := range waves {
		for _, dep := range w.DependsOn {
			if dep == w.Number {
				diags = append(diags, Diagnostic{
					Level:   Error,
					Message: "wave " + strconv.Itoa(w.Number) + " depends on itself",
					Line:    w.HeaderLine,
				})
				continue
			}
			if _, ok := waveByNum[dep]; !ok {
				diags = append(diags, Diagnostic{
					Level:   Error,
					Message: "wave " + strconv.Itoa(w.Number) + " depends on missing wave " + strconv.Itoa(dep),
					Line:    w.HeaderLine,
				})
			}
		}
	}
	if cyc := findWaveCycle(waves); cyc != "" {
		diags = append(diags, Diagnostic{Level: Error, Message: "wave dependency cycle detected: " + cyc})
	}

	byID := make(map[string]Task, len(tasksList))
	for _, t := range tasksList {
		byID[t.ID] = t
	}
	for _, t := range tasksList {
		for _, dep := range t.Dependencies {
			if dep == t.ID {
				diags = append(diags, Diagnostic{
					Level:   Error,
					Message: "task " + t.ID + " depends on itself",
					TaskID:  t.ID,
					Line:    t.LineIndex,
				})
				continue
			}
			dt, ok := byID[dep]
			if !ok {
				diags = append(diags, Diagnostic{
					Level:   Error,
					Message: "task " + t.ID + " depends on missing task " + dep,
					TaskID:  t.ID,
					Line:    t.LineIndex,
				})
				continue
			}
			if dt.Status == Shelved {
				diags = append(diags, Diagnostic{
					Level:   Error,
					Message: "task " + t.ID + " depends on shelved task " + dep,
					TaskID:  t.ID,
					Line:    t.LineIndex,
				})
			}
		}
	}
	if cyc := findTaskCycle(tasksList); cyc != "" {
		diags = append(diags, Diagnostic{Level: Error, Message: "task dependency cycle detected: " + cyc})
	}

	return diags
}

func findWaveCycle(waves []Wave) string {
	adj := make(map[int][]int, len(waves))
	for _, w := range waves {
		adj[w.Number] = w.DependsOn
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[int]int)
	var path []int
	var dfs func(n int) string
	dfs = func(n int) string {
		color[n] = gray
		path = append(path, n)
		for _, next := range adj[n] {
			switch color[next] {
			case gray:
				return cyclePath(path, next)
			case white:
				if c := dfs(next); c != "" {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return ""
	}
	for _, w := range waves {
		if color[w.Number] == white {
			if c := dfs(w.Number); c != "" {
				return c
			}
		}
	}
	return ""
}

func cyclePath(path []int, closing int) string {
	s := ""
	started := false
	for _, n := range path {
		if n == closing {
			started = true
		}
		if started {
			if s != "" {
				s += " -> "
			}
			s += strconv.Itoa(n)
		}
	}
	s += " -> " + strconv.Itoa(closing)
	return s
}

func findTaskCycle(tasksList []Task) string {
	adj := make(map[string][]string, len(tasksList))
	for _, t := range tasksList {
		adj[t.ID] = t.Dependencies
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var path []string
	var dfs func(n string) string
	dfs = func(n string) string {
		color[n] = gray
		path = append(path, n)
		for _, next := range adj[n] {
			if _, ok := adj[next]; !ok {
				continue
			}
			switch color[next] {
			case gray:
				return cyclePathStr(path, next)
			case white:
				if c := dfs(next); c != "" {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return ""
	}
	for _, t := range tasksList {
		if color[t.ID] == white {
			if c := dfs(t.ID); c != "" {
				return c
			}
		}
	}
	return ""
}

func cyclePathStr(path []string, closing string) string {
	s := ""
	started := false
	for _, n := range path {
		if n == closing {
			started = true
		}
		if started {
			if s != "" {
				s += " -> "
			}
			s += n
		}
	}
	s += " -> " + closing
	return s
}
