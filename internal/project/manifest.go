package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultUnitPattern selects unit model files when the manifest lists none.
const DefaultUnitPattern = "**/*.unit.toml"

var (
	// ErrProjectSectionMissing indicates that [project] is missing in pascope.toml.
	ErrProjectSectionMissing = errors.New("missing [project]")
	// ErrRootEscapes indicates a [project].root outside the manifest directory.
	ErrRootEscapes = errors.New("[project].root escapes the manifest directory")
)

// Manifest is the parsed pascope.toml.
type Manifest struct {
	Project  ProjectSection  `toml:"project"`
	Units    UnitsSection    `toml:"units"`
	Analysis AnalysisSection `toml:"analysis"`

	// Path is the manifest file; empty for an implicit manifest.
	Path string `toml:"-"`
	// Dir is the directory relative paths are resolved against.
	Dir string `toml:"-"`
}

type ProjectSection struct {
	Name string `toml:"name"`
	Root string `toml:"root"`
}

type UnitsSection struct {
	Files   []string `toml:"files"`
	Exclude []string `toml:"exclude"`
}

type AnalysisSection struct {
	MaxDiagnostics   int      `toml:"max_diagnostics"`
	Jobs             int      `toml:"jobs"`
	Cache            bool     `toml:"cache"`
	ReportUnresolved bool     `toml:"report_unresolved"`
	ImplicitUnits    []string `toml:"implicit_units"`
}

// DefaultManifest describes a project rooted at dir with no pascope.toml.
func DefaultManifest(dir string) *Manifest {
	return &Manifest{
		Project: ProjectSection{Name: filepath.Base(dir), Root: "."},
		Units:   UnitsSection{Files: []string{DefaultUnitPattern}},
		Analysis: AnalysisSection{
			ImplicitUnits: []string{"System"},
		},
		Dir: dir,
	}
}

// LoadManifest parses pascope.toml at path.
func LoadManifest(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m := DefaultManifest(filepath.Dir(abs))
	m.Units.Files = nil
	meta, err := toml.DecodeFile(abs, m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("project") {
		return nil, fmt.Errorf("%s: %w", path, ErrProjectSectionMissing)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	m.Path = abs
	m.Project.Name = strings.TrimSpace(m.Project.Name)
	if m.Project.Name == "" {
		m.Project.Name = filepath.Base(m.Dir)
	}
	if len(m.Units.Files) == 0 {
		m.Units.Files = []string{DefaultUnitPattern}
	}
	if m.Analysis.Jobs < 0 || m.Analysis.MaxDiagnostics < 0 {
		return nil, fmt.Errorf("%s: [analysis] jobs and max_diagnostics must not be negative", path)
	}
	if _, err := m.RootDir(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteManifest encodes m as TOML into path, refusing to overwrite.
func WriteManifest(path string, m *Manifest) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	enc := toml.NewEncoder(f)
	enc.Indent = ""
	if err := enc.Encode(m); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// RootDir returns the absolute directory unit patterns are matched in.
func (m *Manifest) RootDir() (string, error) {
	root := strings.TrimSpace(m.Project.Root)
	if root == "" || root == "." {
		return m.Dir, nil
	}
	if filepath.IsAbs(root) {
		return "", fmt.Errorf("invalid [project].root %q: must be relative", root)
	}
	dir := filepath.Join(m.Dir, filepath.FromSlash(root))
	if !pathWithin(m.Dir, dir) {
		return "", fmt.Errorf("invalid [project].root %q: %w", root, ErrRootEscapes)
	}
	return dir, nil
}

// UnitFiles expands the [units] patterns into sorted absolute paths.
// Patterns may use "**/" to match any number of directories.
func (m *Manifest) UnitFiles() ([]string, error) {
	root, err := m.RootDir()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !matchAny(m.Units.Files, rel) || matchAny(m.Units.Exclude, rel) {
			return nil
		}
		if _, dup := seen[path]; !dup {
			seen[path] = struct{}{}
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if MatchPattern(filepath.ToSlash(p), rel) {
			return true
		}
	}
	return false
}

// MatchPattern matches a slash-separated path against a glob that may
// contain "**" segments.
func MatchPattern(pattern, rel string) bool {
	pp := strings.Split(strings.TrimPrefix(pattern, "./"), "/")
	rp := strings.Split(rel, "/")
	return matchSegments(pp, rp)
}

func matchSegments(pp, rp []string) bool {
	for len(pp) > 0 {
		if pp[0] == "**" {
			for i := 0; i <= len(rp); i++ {
				if matchSegments(pp[1:], rp[i:]) {
					return true
				}
			}
			return false
		}
		if len(rp) == 0 {
			return false
		}
		ok, err := filepath.Match(pp[0], rp[0])
		if err != nil || !ok {
			return false
		}
		pp, rp = pp[1:], rp[1:]
	}
	return len(rp) == 0
}
