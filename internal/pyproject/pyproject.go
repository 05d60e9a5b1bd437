// Package pyproject reads formatter settings from a project's pyproject.toml.
package pyproject

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the file searched for.
const FileName = "pyproject.toml"

// Settings are the [tool.djangofmt] keys. Nil fields were not set.
type Settings struct {
	LineLength  *int    `toml:"line_length"`
	IndentWidth *int    `toml:"indent_width"`
	Profile     *string `toml:"profile"`

	// Path is the file the settings came from.
	Path string `toml:"-"`
}

type document struct {
	Tool struct {
		Djangofmt Settings `toml:"djangofmt"`
	} `toml:"tool"`
}

// Find walks up from dir looking for pyproject.toml. It returns "" when none
// is found before the filesystem root.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, FileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load parses the [tool.djangofmt] table of the file at path.
func Load(path string) (*Settings, error) {
	var doc document
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s := doc.Tool.Djangofmt
	s.Path = path
	return &s, nil
}

// Discover finds and loads the nearest pyproject.toml above dir. It returns
// nil settings when there is none.
func Discover(dir string) (*Settings, error) {
	path, err := Find(dir)
	if err != nil || path == "" {
		return nil, err
	}
	return Load(path)
}

// Empty reports whether no formatter keys were set.
func (s *Settings) Empty() bool {
	return s == nil || (s.LineLength == nil && s.IndentWidth == nil && s.Profile == nil)
}
