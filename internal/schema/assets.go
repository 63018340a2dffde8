package schema

import (
	"embed"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jamesonstone/ito/internal/itopath"
)

//go:embed embedded
var embeddedFS embed.FS

const embeddedRoot = "embedded"

var safeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// IsSafeSchemaName reports whether name is safe to use as a schema directory
// segment: non-empty, no traversal, no path separators.
func IsSafeSchemaName(name string) bool {
	if name == "" || !itopath.IsSafeSegment(name) {
		return false
	}
	return safeNamePattern.MatchString(name)
}

// PackageSchemasDir returns the directory the ito binary itself ships
// schemas under, relative to its working directory convention. Most
// deployments rely on the embedded layer instead; this is a last-resort
// filesystem layer for packaged installs that unpack schemas alongside the
// binary.
func PackageSchemasDir() string {
	return filepath.Join("share", "ito", "schemas")
}

// UserSchemasDir returns homeDir's ito schemas directory, or "" if homeDir
// is empty.
func UserSchemasDir(homeDir string) string {
	if homeDir == "" {
		return ""
	}
	return filepath.Join(homeDir, ".config", "ito", "schemas")
}

func embeddedSchemaNames() []string {
	entries, err := fs.ReadDir(embeddedFS, embeddedRoot)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(embeddedFS, filepath.Join(embeddedRoot, e.Name(), "schema.yaml")); err == nil {
			names = append(names, e.Name())
		}
	}
	return names
}

func loadEmbeddedSchemaYAML(name string) ([]byte, bool) {
	raw, err := embeddedFS.ReadFile(filepath.Join(embeddedRoot, name, "schema.yaml"))
	if err != nil {
		return nil, false
	}
	return raw, true
}

func readEmbeddedTemplate(schemaName, templateRelPath string) (string, error) {
	raw, err := embeddedFS.ReadFile(filepath.Join(embeddedRoot, schemaName, "templates", templateRelPath))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// isSafeRelativeTemplatePath reports whether p is safe to join onto a
// schema's templates directory.
func isSafeRelativeTemplatePath(p string) bool {
	return itopath.IsSafeRelativePath(p) && !strings.Contains(p, "\x00")
}
