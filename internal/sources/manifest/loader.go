package manifest

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of the asset manifest
type Loader struct {
	filePath string
}

// NewLoader creates a new manifest loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads, parses and validates the manifest file
func (l *Loader) Load() (Manifest, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a manifest document
func Parse(data []byte) (Manifest, error) {
	// Expand ${VAR} references so the version tag can come from the build
	data = expandVariables(data)

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest yaml: %w", err)
	}

	m.App = strings.TrimSpace(m.App)
	m.Version = strings.TrimSpace(m.Version)
	if m.Landing == "" {
		m.Landing = DefaultLanding
	}

	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks the fields every install depends on
func (m Manifest) Validate() error {
	var errs []error
	if m.App == "" {
		errs = append(errs, errors.New("manifest: app is required"))
	}
	if m.Version == "" {
		errs = append(errs, errors.New("manifest: version is required"))
	}
	if len(m.Resources) == 0 {
		errs = append(errs, errors.New("manifest: at least one resource is required"))
	}
	for i, r := range m.Resources {
		if strings.TrimSpace(r) == "" {
			errs = append(errs, fmt.Errorf("manifest: resource %d is empty", i))
		}
	}
	return errors.Join(errs...)
}

var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandVariables replaces ${VAR} with the environment value, or "" when unset
// Example: version: ${TRACKER_RELEASE} -> version: v3
func expandVariables(data []byte) []byte {
	return variablePattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := variablePattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}
