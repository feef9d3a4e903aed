// Package dotdir manages the .codescout/ and ~/.codescout directories
// that hold persistent configuration and working data (cloned repos,
// uploaded files, the optional sqlite-vec database).
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the codescout directory.
	dirName = ".codescout"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .codescout/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.codescout/ dir
//  3. Home ~/.codescout/ dir
//  4. If none found, attempt to create ~/.codescout/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating codescout directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// Subdir resolves (and creates if needed) a named subdirectory of the
// target .codescout/ directory, e.g. the repos or uploads directory.
func (m *Manager) Subdir(overrideDir string, name string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(target, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s directory: %w", name, err)
	}

	return dir, nil
}

// localDirExists checks whether a .codescout/ directory exists in the
// current working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
