// Package utils provides file system and glob helpers
package utils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FileExists checks if a regular file exists at path
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DirectoryExists checks if a directory exists at path
func DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// EnsureDirectory creates path and its parents when missing
func EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0o755)
}

// CopyFile copies src to dst, creating parent directories and keeping
// the source permissions
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	if err := EnsureDirectory(filepath.Dir(dst)); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// CopyFiles copies each path relative to srcDir into the same relative
// location under dstDir
func CopyFiles(srcDir, dstDir string, relPaths []string) error {
	for _, rel := range relPaths {
		if err := CopyFile(filepath.Join(srcDir, rel), filepath.Join(dstDir, rel)); err != nil {
			return err
		}
	}
	return nil
}

// WriteFileAtomic writes data to a temp file and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	if err := EnsureDirectory(filepath.Dir(path)); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// RemoveAll removes path, treating a missing path as success
func RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// CollectFiles walks root and returns the sorted, slash-separated paths
// relative to root that match include and are not excluded. Excluded
// directories are not descended into. A missing root yields no files.
func CollectFiles(root string, include *PatternMatcher, exclude *ExclusionMatcher) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if exclude != nil && exclude.IsExcluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if include == nil || include.Match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// CollectDirs walks root and returns the sorted, slash-separated
// directory paths relative to root that match include. Excluded
// directories are skipped along with their contents.
func CollectDirs(root string, include *PatternMatcher, exclude *ExclusionMatcher) ([]string, error) {
	var dirs []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root || !d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if exclude != nil && exclude.IsExcluded(rel) {
			return filepath.SkipDir
		}
		if include.Match(rel) {
			dirs = append(dirs, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(dirs)
	return dirs, nil
}

// FormatBytes formats a byte count for humans
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
