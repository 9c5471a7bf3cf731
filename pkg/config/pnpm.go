package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PnpmWorkspaceFile names the pnpm workspace definition
const PnpmWorkspaceFile = "pnpm-workspace.yaml"

// PnpmWorkspace is the subset of pnpm-workspace.yaml depot reads
type PnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

// LoadPnpmWorkspace reads pnpm-workspace.yaml from root. It returns nil
// and no error when the file does not exist.
func LoadPnpmWorkspace(root string) (*PnpmWorkspace, error) {
	path := filepath.Join(root, PnpmWorkspaceFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", PnpmWorkspaceFile, err)
	}

	var ws PnpmWorkspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &ws, nil
}

// Includes returns the package globs that select workspace members
func (w *PnpmWorkspace) Includes() []string {
	var out []string
	for _, p := range w.Packages {
		if len(p) > 0 && p[0] != '!' {
			out = append(out, p)
		}
	}
	return out
}

// Excludes returns the negated package globs, without the leading "!"
func (w *PnpmWorkspace) Excludes() []string {
	var out []string
	for _, p := range w.Packages {
		if len(p) > 1 && p[0] == '!' {
			out = append(out, p[1:])
		}
	}
	return out
}
