package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jamesonstone/ito/internal/itopath"
)

// DefaultName is the schema name used when a change does not specify one.
const DefaultName = "spec-driven"

// Resolve loads a schema by name through the precedence project -> user ->
// embedded -> package, taking the first layer whose schema.yaml exists. An
// empty name resolves DefaultName. Unsafe names fail with NotFoundError
// before any filesystem access.
func Resolve(name, itoPath, homeDir string) (Resolved, error) {
	if name == "" {
		name = DefaultName
	}
	if !IsSafeSchemaName(name) {
		return Resolved{}, &NotFoundError{Name: name}
	}

	if dir := itopath.ProjectSchemasDir(itoPath); dir != "" {
		candidate := filepath.Join(dir, name)
		if fileExists(filepath.Join(candidate, "schema.yaml")) {
			s, err := loadSchemaYAMLFile(filepath.Join(candidate, "schema.yaml"))
			if err != nil {
				return Resolved{}, err
			}
			return Resolved{Schema: s, Dir: candidate, Source: Project}, nil
		}
	}

	if dir := UserSchemasDir(homeDir); dir != "" {
		candidate := filepath.Join(dir, name)
		if fileExists(filepath.Join(candidate, "schema.yaml")) {
			s, err := loadSchemaYAMLFile(filepath.Join(candidate, "schema.yaml"))
			if err != nil {
				return Resolved{}, err
			}
			return Resolved{Schema: s, Dir: candidate, Source: User}, nil
		}
	}

	if raw, ok := loadEmbeddedSchemaYAML(name); ok {
		s, err := decodeSchemaYAML(raw)
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{Schema: s, Dir: "embedded://schemas/" + name, Source: Embedded}, nil
	}

	pkg := filepath.Join(PackageSchemasDir(), name)
	if fileExists(filepath.Join(pkg, "schema.yaml")) {
		s, err := loadSchemaYAMLFile(filepath.Join(pkg, "schema.yaml"))
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{Schema: s, Dir: pkg, Source: Package}, nil
	}

	return Resolved{}, &NotFoundError{Name: name}
}

// List returns the sorted, deduplicated set of schema names visible across
// all four layers for the given project/user roots.
func List(itoPath, homeDir string) []string {
	set := make(map[string]bool)

	for _, dir := range []string{itopath.ProjectSchemasDir(itoPath), UserSchemasDir(homeDir), PackageSchemasDir()} {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if fileExists(filepath.Join(dir, e.Name(), "schema.yaml")) {
				set[e.Name()] = true
			}
		}
	}
	for _, name := range embeddedSchemaNames() {
		set[name] = true
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadSchemaYAMLFile(path string) (Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeSchemaYAML(raw)
}

func decodeSchemaYAML(raw []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Schema{}, fmt.Errorf("parse schema.yaml: %w", err)
	}

	asJSON, err := yamlToJSON(raw)
	if err != nil {
		return Schema{}, fmt.Errorf("normalize schema.yaml for validation: %w", err)
	}
	if err := validateShape(asJSON); err != nil {
		return Schema{}, err
	}
	if err := validateSemantics(s); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// yamlToJSON round-trips YAML through the typed Schema struct to JSON so it
// can be validated by the jsonschema/v6 meta-schema, which only understands
// JSON's data model.
func yamlToJSON(raw []byte) ([]byte, error) {
	var s Schema
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// ResolveTemplate reads an artifact's template content from wherever the
// resolved schema lives.
func ResolveTemplate(r Resolved, a Artifact) (string, error) {
	if !isSafeRelativeTemplatePath(a.Template) {
		return "", fmt.Errorf("invalid template path: %q", a.Template)
	}
	if r.Source == Embedded {
		name := filepath.Base(r.Dir)
		return readEmbeddedTemplate(name, a.Template)
	}
	raw, err := os.ReadFile(filepath.Join(r.Dir, "templates", a.Template))
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", a.Template, err)
	}
	return string(raw), nil
}
