package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed meta_schema.json
var metaSchemaJSON string

const metaSchemaURL = "https://ito.dev/schema/workflow-schema.json"

var (
	compiledOnce sync.Once
	compiled     *jsonschema.Schema
	compileErr   error
)

func compiledMetaSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(metaSchemaJSON), &doc); err != nil {
			compileErr = fmt.Errorf("parse meta schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(metaSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add meta schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(metaSchemaURL)
	})
	return compiled, compileErr
}

// validateShape checks a raw decoded schema document against the workflow
// schema's JSON-Schema meta-description: required fields present, artifact
// entries well-formed. Semantic checks (duplicate ids, dangling requires,
// cycles) run separately in validateSemantics, since jsonschema/v6 cannot
// express cross-element uniqueness or graph acyclicity.
func validateShape(raw []byte) error {
	meta, err := compiledMetaSchema()
	if err != nil {
		return fmt.Errorf("compile meta schema: %w", err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode schema document: %w", err)
	}
	if err := meta.Validate(doc); err != nil {
		return &InvalidError{Reason: err.Error()}
	}
	return nil
}

// validateSemantics enforces the structural invariants required of a
// Schema: requires references existing artifact ids, and the artifact
// graph is acyclic.
func validateSemantics(s Schema) error {
	ids := make(map[string]bool, len(s.Artifacts))
	for _, a := range s.Artifacts {
		if ids[a.ID] {
			return &InvalidError{Reason: fmt.Sprintf("duplicate artifact id %q", a.ID)}
		}
		ids[a.ID] = true
	}
	for _, a := range s.Artifacts {
		for _, r := range a.Requires {
			if !ids[r] {
				return &InvalidError{Reason: fmt.Sprintf("artifact %q requires unknown artifact %q", a.ID, r)}
			}
		}
		if !isSafeRelativeTemplatePath(a.Template) {
			return &InvalidError{Reason: fmt.Sprintf("artifact %q has an unsafe template path %q", a.ID, a.Template)}
		}
	}
	if cyc := findArtifactCycle(s); cyc != "" {
		return &InvalidError{Reason: "artifact dependency cycle detected: " + cyc}
	}
	if s.Apply != nil {
		for _, r := range s.Apply.Requires {
			if !ids[r] {
				return &InvalidError{Reason: fmt.Sprintf("apply requires unknown artifact %q", r)}
			}
		}
	}
	return nil
}

func findArtifactCycle(s Schema) string {
	adj := make(map[string][]string, len(s.Artifacts))
	for _, a := range s.Artifacts {
		adj[a.ID] = a.Requires
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
			switch color[next] {
			case gray:
				return cycleString(path, next)
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
	for _, a := range s.Artifacts {
		if color[a.ID] == white {
			if c := dfs(a.ID); c != "" {
				return c
			}
		}
	}
	return ""
}

func cycleString(path []string, closing string) string {
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
	return s + " -> " + closing
}
