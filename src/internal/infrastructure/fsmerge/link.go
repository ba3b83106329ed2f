package fsmerge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
)

// DefaultLinkExtensions are the mod source files linked into the server.
var DefaultLinkExtensions = []string{".cs", ".unity3d"}

// isBuildDir reports whether name is a build output directory that is never linked.
func isBuildDir(name string) bool {
	return strings.EqualFold(name, "bin") || strings.EqualFold(name, "obj")
}

func hasBuildSegment(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if isBuildDir(seg) {
			return true
		}
	}
	return false
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}

// LinkTree mirrors every allow-listed file under originRoot into targetRoot as a symlink.
//
// Directories named bin or obj are skipped. Anything already at a mirrored path is
// replaced. Links under targetRoot that point into originRoot at files that no longer
// exist are removed.
func LinkTree(originRoot, targetRoot string, extensions []string) ([]entity.SymlinkEntry, error) {
	origin, err := filepath.Abs(originRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", originRoot, err)
	}
	if resolved, err := filepath.EvalSymlinks(origin); err == nil {
		origin = resolved
	}
	target, err := filepath.Abs(targetRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", targetRoot, err)
	}

	info, err := os.Stat(origin)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s does not exist", errs.ErrNotFound, origin)
	}

	allowed := extensionSet(extensions)
	var links []entity.SymlinkEntry

	err = filepath.WalkDir(origin, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != origin && isBuildDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !allowed[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		rel, err := filepath.Rel(origin, p)
		if err != nil {
			return err
		}
		dst := filepath.Join(target, rel)

		if err := removeLinkTarget(dst); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
		}
		if err := os.Symlink(p, dst); err != nil {
			return fmt.Errorf("failed to link %s: %w", dst, err)
		}

		entry := entity.SymlinkEntry{Source: p, Target: dst}
		logger.WithField("link", entry.String()).Info("Symlinking")
		links = append(links, entry)
		return nil
	})
	if err != nil {
		return links, err
	}

	if err := pruneStaleLinks(origin, target, allowed); err != nil {
		return links, err
	}
	return links, nil
}

func removeLinkTarget(dst string) error {
	info, err := os.Lstat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dst, err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot link over directory %s", dst)
	}
	if err := os.Remove(dst); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dst, err)
	}
	return nil
}

// pruneStaleLinks removes links under target that point into origin at files that
// are gone or no longer eligible.
func pruneStaleLinks(origin, target string, allowed map[string]bool) error {
	if _, err := os.Lstat(target); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return filepath.WalkDir(target, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		dest, err := os.Readlink(p)
		if err != nil {
			return fmt.Errorf("failed to read link %s: %w", p, err)
		}
		rel, err := filepath.Rel(origin, dest)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}

		stale := hasBuildSegment(rel) || !allowed[strings.ToLower(filepath.Ext(dest))]
		if _, statErr := os.Stat(dest); errors.Is(statErr, fs.ErrNotExist) {
			stale = true
		}
		if stale {
			logger.WithField("path", p).Info("Removing stale link")
			if err := os.Remove(p); err != nil {
				return fmt.Errorf("failed to remove %s: %w", p, err)
			}
		}
		return nil
	})
}
