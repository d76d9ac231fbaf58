// Package fsutil holds the path normalization and permission checks shared by
// the input parsers.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Normalize expands ~ and environment variables and returns an absolute,
// cleaned path. Relative paths are resolved against cwd when it is non-empty,
// otherwise against the process working directory.
func Normalize(path, cwd string) (string, error) {
	path = os.ExpandEnv(expandHome(path))
	if !filepath.IsAbs(path) && cwd != "" {
		path = filepath.Join(cwd, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Readable checks that path exists and can be read. Directories must also be
// searchable (execute permission).
func Readable(path string) error {
	if err := unix.Access(path, unix.R_OK); err != nil {
		return fmt.Errorf("'%s' does not exist or is not readable: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		if err := unix.Access(path, unix.X_OK); err != nil {
			return fmt.Errorf("'%s' does not have execute permissions: %w", path, err)
		}
	}
	return nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsAncestor reports whether dir is a strict ancestor of path. Both must be
// cleaned absolute paths.
func IsAncestor(dir, path string) bool {
	if dir == path {
		return false
	}
	if dir == string(filepath.Separator) {
		return strings.HasPrefix(path, dir)
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
