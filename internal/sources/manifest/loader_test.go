package manifest

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func TestLoaderLoad(t *testing.T) {
	tmpDir := t.TempDir()
	yamlPath := filepath.Join(tmpDir, "manifest.yaml")

	yamlContent := `---
app: vacation-tracker
version: v2
resources:
  - ./
  - ./index.html
  - ./app.js
  - ./styles.css
`

	err := os.WriteFile(yamlPath, []byte(yamlContent), 0o644)
	if err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	loader := NewLoader(yamlPath)
	m, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if m.Generation() != "vacation-tracker-v2" {
		t.Errorf("Generation() = %q, want vacation-tracker-v2", m.Generation())
	}
	if m.Landing != DefaultLanding {
		t.Errorf("Landing = %q, want %q", m.Landing, DefaultLanding)
	}
	if len(m.Resources) != 4 {
		t.Errorf("len(Resources) = %d, want 4", len(m.Resources))
	}
}

func TestLoaderLoadWithVariables(t *testing.T) {
	t.Setenv("TRACKER_RELEASE", "v7")

	m, err := Parse([]byte("app: joke-tracker\nversion: ${TRACKER_RELEASE}\nresources: [index.html]\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Generation() != "joke-tracker-v7" {
		t.Errorf("Generation() = %q, want joke-tracker-v7", m.Generation())
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	loader := NewLoader("/nonexistent/path/manifest.yaml")
	_, err := loader.Load()
	if err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing app", yaml: "version: v1\nresources: [index.html]\n"},
		{name: "missing version", yaml: "app: a\nresources: [index.html]\n"},
		{name: "no resources", yaml: "app: a\nversion: v1\n"},
		{name: "blank resource", yaml: "app: a\nversion: v1\nresources: ['  ']\n"},
		{name: "unset variable", yaml: "app: a\nversion: ${TRACKER_UNSET_FOR_TEST}\nresources: [index.html]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

func TestResolveResources(t *testing.T) {
	origin, _ := url.Parse("http://assets.local/app")
	m := Manifest{App: "a", Version: "v1", Resources: []string{"./", "./index.html", "/icons/icon.png", "app.js", "/"}}

	got, err := m.ResolveResources(origin)
	if err != nil {
		t.Fatalf("ResolveResources() error = %v", err)
	}

	want := []string{
		"http://assets.local/app/",
		"http://assets.local/app/index.html",
		"http://assets.local/app/icons/icon.png",
		"http://assets.local/app/app.js",
		"http://assets.local/app/",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("resource %d = %q, want %q", i, got[i], want[i])
		}
	}

	landing, err := m.LandingURL(origin)
	if err != nil || landing != "http://assets.local/app/index.html" {
		t.Errorf("LandingURL() = %q, %v", landing, err)
	}
}

func TestResolveRejectsForeignOrigins(t *testing.T) {
	origin, _ := url.Parse("http://assets.local/")
	if _, err := Resolve(origin, "https://cdn.example.com/lib.js"); err == nil {
		t.Error("Resolve() should reject absolute URLs")
	}
}
