package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Project holds auto-detected project settings.
type Project struct {
	// Name from package.json or the directory name.
	Name string
	// Version from package.json or "0.0.0".
	Version string
	// Root is the absolute project root.
	Root string
}

// Detect reads name and version from the project's package.json, falling
// back to the directory name and 0.0.0.
func Detect(rootDir string) *Project {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	p := &Project{Root: absRoot}
	if name, version, err := parsePackageJSON(filepath.Join(absRoot, "package.json")); err == nil {
		p.Name = name
		p.Version = version
	}

	if p.Name == "" {
		p.Name = filepath.Base(absRoot)
	}
	if p.Version == "" {
		p.Version = "0.0.0"
	}
	return p
}

func parsePackageJSON(path string) (name, version string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", "", err
	}
	return pkg.Name, pkg.Version, nil
}
