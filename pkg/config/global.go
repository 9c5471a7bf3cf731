package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// HomeEnvVar overrides the global depot directory
const HomeEnvVar = "DEPOT_HOME"

var (
	// ErrHomeMissing indicates the global depot directory does not exist
	ErrHomeMissing = errors.New("depot home directory does not exist")

	// ErrPnpmNotFound indicates pnpm is neither installed by depot nor on PATH
	ErrPnpmNotFound = errors.New("pnpm is not installed")
)

// GlobalConfig describes the machine-wide depot installation
type GlobalConfig struct {
	Root     string
	PnpmPath string
}

// FindHome returns the global depot directory: $DEPOT_HOME, or
// $HOME/.local.
func FindHome() (string, error) {
	if dir := os.Getenv(HomeEnvVar); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find home directory: %w", err)
	}
	return filepath.Join(home, ".local"), nil
}

// BinDir is where depot installs tools such as pnpm
func (g *GlobalConfig) BinDir() string {
	return filepath.Join(g.Root, "bin")
}

// LoadGlobal locates the global depot directory and pnpm. pnpm installed
// under the depot home wins over one found on PATH.
func LoadGlobal() (*GlobalConfig, error) {
	root, err := FindHome()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrHomeMissing, root)
	}

	cfg := &GlobalConfig{Root: root}
	pnpm, err := FindPnpm(cfg.BinDir())
	if err != nil {
		return nil, err
	}
	cfg.PnpmPath = pnpm
	return cfg, nil
}

// FindPnpm looks for pnpm in binDir and then on PATH
func FindPnpm(binDir string) (string, error) {
	if binDir != "" {
		candidate := filepath.Join(binDir, "pnpm")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("pnpm")
	if err != nil {
		return "", ErrPnpmNotFound
	}
	return path, nil
}
