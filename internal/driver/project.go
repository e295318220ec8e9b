package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"pascope/internal/project"
)

// OpenProject returns the manifest for path: a pascope.toml file, or a
// directory searched upwards for one. Without a manifest the directory
// itself becomes the project root with default settings.
func OpenProject(path string) (*project.Manifest, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return project.LoadManifest(abs)
	}
	manifest, ok, err := project.FindManifest(abs)
	if err != nil {
		return nil, fmt.Errorf("find manifest: %w", err)
	}
	if !ok {
		return project.DefaultManifest(abs), nil
	}
	return project.LoadManifest(manifest)
}
