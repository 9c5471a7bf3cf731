// Package git locates the enclosing git repository of a directory
package git

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotRepository indicates the directory is not inside a git work tree
var ErrNotRepository = errors.New("not a git repository")

// Root returns the absolute path of the git work tree containing dir.
// It returns ErrNotRepository when dir is outside any repository and an
// exec error when git is not installed.
func Root(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return "", fmt.Errorf("git not found in PATH: %w", err)
		}
		return "", ErrNotRepository
	}

	root := strings.TrimSpace(string(output))
	if root == "" {
		return "", ErrNotRepository
	}
	return filepath.Clean(root), nil
}

// RootOrEmpty is Root with every failure mapped to ""
func RootOrEmpty(dir string) string {
	root, err := Root(dir)
	if err != nil {
		return ""
	}
	return root
}
