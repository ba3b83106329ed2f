package fsmerge

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ZipTree writes root into a zip archive at dest. Entry names are prefixed with
// root's base name. skip receives slash-separated paths relative to root; returning
// true for a directory skips its whole subtree.
func ZipTree(root, dest string, skip func(rel string, isDir bool) bool) (count int, err error) {
	root = filepath.Clean(root)
	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", dest, cerr)
		}
	}()

	zw := zip.NewWriter(out)
	base := filepath.Base(root)
	destAbs, _ := filepath.Abs(dest)

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if skip != nil && skip(rel, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if abs, _ := filepath.Abs(p); abs == destAbs {
			return nil
		}

		if err := addZipEntry(zw, p, base+"/"+rel); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return count, fmt.Errorf("failed to archive %s: %w", root, err)
	}
	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("failed to finish archive %s: %w", dest, err)
	}
	return count, nil
}

func addZipEntry(zw *zip.Writer, path, name string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
