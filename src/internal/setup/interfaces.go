package setup

import (
	"fmt"
	"os"
)

// FileSystem interface for file operations (for testing).
type FileSystem interface {
	ReadDir(name string) ([]os.DirEntry, error)
	ReadFile(filename string) ([]byte, error)
	Stat(name string) (os.FileInfo, error)
	Chmod(name string, mode os.FileMode) error
}

// RealFileSystem implements FileSystem using actual OS operations.
type RealFileSystem struct{}

func (r RealFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	return entries, nil
}

func (r RealFileSystem) ReadFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (r RealFileSystem) Stat(name string) (os.FileInfo, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return info, nil
}

func (r RealFileSystem) Chmod(name string, mode os.FileMode) error {
	if err := os.Chmod(name, mode); err != nil {
		return fmt.Errorf("failed to change file permissions: %w", err)
	}
	return nil
}
