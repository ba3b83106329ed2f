// Package fsmerge copies and links synced content into the live server tree.
package fsmerge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"github.com/sirupsen/logrus"

	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
)

// Mode selects how MergeTree treats an existing target.
type Mode int

const (
	// Replace deletes the target before copying.
	Replace Mode = iota
	// Overlay copies into the target, overwriting same-named files and keeping the rest.
	Overlay
)

func (m Mode) String() string {
	if m == Overlay {
		return "overlay"
	}
	return "replace"
}

// DefaultProtectedDir is the mod directory that mixes operator state with synced files.
const DefaultProtectedDir = "BunWulfEducational"

// Merger copies directory trees. A directory named Protected anywhere in the origin
// path is always overlaid, never replaced.
type Merger struct {
	Protected string
}

// NewMerger creates a Merger protecting the given directory name.
func NewMerger(protected string) *Merger {
	return &Merger{Protected: protected}
}

// MergeTree copies origin to target. A missing or non-directory origin is a no-op.
func (m *Merger) MergeTree(origin, target string, mode Mode) error {
	info, err := os.Stat(origin)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", origin, err)
	}
	if !info.IsDir() {
		return nil
	}

	if mode == Replace && m.isProtected(origin) {
		mode = Overlay
	}

	if mode == Replace {
		if _, err := os.Lstat(target); err == nil {
			logger.WithField("path", target).Info("Removing")
			if err := RemoveAll(target); err != nil {
				return err
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"from": origin,
		"to":   target,
		"mode": mode.String(),
	}).Info("Copying")
	return CopyTree(origin, target)
}

func (m *Merger) isProtected(path string) bool {
	if m.Protected == "" {
		return false
	}
	for dir := filepath.Clean(path); ; dir = filepath.Dir(dir) {
		if filepath.Base(dir) == m.Protected {
			return true
		}
		if parent := filepath.Dir(dir); parent == dir {
			return false
		}
	}
}

// CopyTree recursively copies origin into target, merging with existing directories.
// Symlinks at mirrored paths in target are replaced, never written through.
func CopyTree(origin, target string) error {
	if err := unlinkMirrored(origin, target); err != nil {
		return err
	}
	opts := copy.Options{
		OnDirExists: func(_, _ string) copy.DirExistsAction {
			return copy.Merge
		},
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Deep
		},
		PermissionControl: copy.AddPermission(0o200),
	}
	if err := copy.Copy(origin, target, opts); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", origin, target, err)
	}
	return nil
}

// unlinkMirrored removes every symlink in target that sits where origin has an entry.
func unlinkMirrored(origin, target string) error {
	root, err := filepath.EvalSymlinks(origin)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", origin, err)
	}
	return filepath.WalkDir(root, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		dst := filepath.Join(target, rel)
		info, err := os.Lstat(dst)
		if err != nil || info.Mode()&fs.ModeSymlink == 0 {
			return nil //nolint:nilerr // nothing to unlink
		}
		logger.WithField("path", dst).Debug("Replacing link")
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("failed to remove link %s: %w", dst, err)
		}
		return nil
	})
}

// CopyFile replaces dst with a copy of src.
func CopyFile(src, dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", dst, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	if err := copy.Copy(src, dst, copy.Options{PermissionControl: copy.AddPermission(0o200)}); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return nil
}

// RemoveAll deletes path recursively, clearing write protection on anything that
// refuses to go. Git marks its object files read-only, which plain removal cannot
// delete on every platform.
func RemoveAll(path string) error {
	err := os.RemoveAll(path)
	if err == nil {
		return nil
	}

	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best effort, the retry reports the real failure
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // entry vanished
		}
		extra := fs.FileMode(0o200)
		if d.IsDir() {
			extra = 0o700
		}
		if info.Mode().Perm()&extra != extra {
			_ = os.Chmod(p, info.Mode().Perm()|extra) //nolint:errcheck // retried below
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to clear permissions under %s: %w", path, walkErr)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
