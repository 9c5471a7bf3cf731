package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/depot-build/depot/pkg/config"
	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/utils"
)

// PnpmVersion is the pnpm release installed by setup
const PnpmVersion = "9.1.1"

const pnpmReleaseURL = "https://github.com/pnpm/pnpm/releases/download"

// SetupArgs configure machine setup
type SetupArgs struct {
	// ConfigDir defaults to config.FindHome
	ConfigDir string
}

// SetupCommand prepares the global depot directory and installs pnpm.
// It runs outside any workspace.
type SetupCommand struct {
	Args    SetupArgs
	Console *logger.Console
	Logger  logger.Logger

	// Client and BaseURL are used for the pnpm download
	Client  *http.Client
	BaseURL string
	// MaxElapsed bounds download retries
	MaxElapsed time.Duration
}

// NewSetupCommand creates a setup command
func NewSetupCommand(args SetupArgs, console *logger.Console, log logger.Logger) *SetupCommand {
	return &SetupCommand{
		Args:       args,
		Console:    console,
		Logger:     orNop(log),
		Client:     &http.Client{Timeout: 5 * time.Minute},
		BaseURL:    pnpmReleaseURL,
		MaxElapsed: time.Minute,
	}
}

func (c *SetupCommand) Name() string { return "setup" }

// Run creates the config and bin directories and downloads pnpm unless
// it is already installed there
func (c *SetupCommand) Run(ctx context.Context) error {
	dir := c.Args.ConfigDir
	if dir == "" {
		var err error
		if dir, err = config.FindHome(); err != nil {
			return err
		}
	}

	global := &config.GlobalConfig{Root: dir}
	if err := utils.EnsureDirectory(global.BinDir()); err != nil {
		return fmt.Errorf("failed to create %s: %w", global.BinDir(), err)
	}

	pnpmPath := filepath.Join(global.BinDir(), "pnpm")
	if !utils.FileExists(pnpmPath) {
		c.Console.Info("Downloading pnpm from Github...")
		if err := c.downloadPnpm(ctx, pnpmPath); err != nil {
			return err
		}
	}

	c.Console.Success("Setup complete!")
	return nil
}

// PnpmURL returns the download location of the pnpm binary for goos and
// goarch
func PnpmURL(base, goos, goarch string) string {
	platform := "linuxstatic"
	switch goos {
	case "darwin", "ios":
		platform = "macos"
	case "windows":
		platform = "win"
	}
	arch := "x64"
	if goarch == "arm64" {
		arch = "arm64"
	}
	return fmt.Sprintf("%s/v%s/pnpm-%s-%s", base, PnpmVersion, platform, arch)
}

func (c *SetupCommand) downloadPnpm(ctx context.Context, dst string) error {
	url := PnpmURL(c.BaseURL, runtime.GOOS, runtime.GOARCH)
	tmp := dst + ".download"
	defer os.Remove(tmp)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = c.MaxElapsed

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		c.Logger.Debug("Downloading pnpm", logger.WithField("url", url), logger.WithField("attempt", attempt))
		return c.download(ctx, url, tmp)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return fmt.Errorf("could not download pnpm: %w", err)
	}

	if err := os.Chmod(tmp, 0o555); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func (c *SetupCommand) download(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("unexpected response: %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		return backoff.Permanent(fmt.Errorf("unexpected response: %s", resp.Status))
	}

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("could not save pnpm binary to file: %w", err))
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	c.Logger.Debug("Downloaded pnpm", logger.WithField("size", utils.FormatBytes(n)))
	return nil
}
