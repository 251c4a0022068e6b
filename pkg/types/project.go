package types

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Project describes an open project as supplied by the host
type Project struct {
	Root      string   // Absolute path of the project root
	ExtraDirs []string // Additional directories or glob patterns to scan
}

// Validate checks that the project has a root
func (p Project) Validate() error {
	if p.Root == "" {
		return ErrRootRequired
	}
	return nil
}

// ScanDirs returns the root followed by every resolved extra directory.
// Relative entries are resolved against the root, a leading "~" expands to
// the user's home directory and glob patterns expand to their matches.
func (p Project) ScanDirs() []string {
	dirs := []string{p.Root}
	for _, raw := range p.ExtraDirs {
		dir := strings.TrimSpace(raw)
		if dir == "" {
			continue
		}
		if strings.HasPrefix(dir, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
			}
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(p.Root, dir)
		}
		if strings.ContainsAny(dir, "*?[") {
			matches, err := filepath.Glob(dir)
			if err != nil {
				continue
			}
			dirs = append(dirs, matches...)
			continue
		}
		dirs = append(dirs, filepath.Clean(dir))
	}
	return dirs
}

// ScanWalkFunc is called by WalkScanDir for every entry. path lies under
// the directory as given; realPath is the same entry with the directory's
// symlinks resolved.
type ScanWalkFunc func(path, realPath string, d fs.DirEntry, err error) error

// WalkScanDir walks dir like filepath.WalkDir, except that dir itself is
// followed when it is a symlink to a directory. Symlinks below dir are
// reported but not followed.
func WalkScanDir(dir string, fn ScanWalkFunc) error {
	dir = filepath.Clean(dir)
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		// Let WalkDir report the failure on dir
		resolved = dir
	}

	return filepath.WalkDir(resolved, func(realPath string, d fs.DirEntry, err error) error {
		path := realPath
		if resolved != dir {
			rel, relErr := filepath.Rel(resolved, realPath)
			if relErr == nil {
				path = filepath.Join(dir, rel)
			}
		}
		return fn(path, realPath, d, err)
	})
}
