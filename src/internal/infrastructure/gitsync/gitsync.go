// Package gitsync materializes a remote repository into a staging directory.
package gitsync

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
	"github.com/kodflow/gameops/src/internal/infrastructure/fsmerge"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
	"github.com/kodflow/gameops/src/internal/infrastructure/system"
)

// Syncer clones repositories with the git binary.
type Syncer struct {
	runner system.Runner
	git    string
}

// NewSyncer creates a Syncer that runs git through runner.
func NewSyncer(runner system.Runner) *Syncer {
	return &Syncer{runner: runner, git: "git"}
}

// CloneCommand returns the shallow single-branch clone command for url at ref.
func CloneCommand(url, ref, dest string) command.Command {
	cmd := command.New("git", "clone", "--single-branch", "-v", "--depth", "1")
	if ref != "" {
		cmd = cmd.With(command.Arg{Value: "-b"}, command.Arg{Value: ref})
	}
	return cmd.With(command.Arg{Value: "--"}, command.Arg{Value: url}, command.Arg{Value: dest})
}

// Sync deletes dest and replaces it with a fresh shallow clone of url at ref
// (the remote default branch when ref is empty). With stripMetadata the .git
// directory is removed afterwards. A failed clone leaves whatever git wrote.
func (s *Syncer) Sync(ctx context.Context, url, ref, dest string, stripMetadata bool) (entity.ModBundle, error) {
	bundle := entity.ModBundle{SourceRepoURL: url, Branch: ref, LocalStagingPath: dest}
	if url == "" || dest == "" {
		return bundle, fmt.Errorf("%w: repository url and destination are required", errs.ErrConfiguration)
	}

	logger.WithFields(logrus.Fields{
		"repo": url,
		"ref":  ref,
		"dest": dest,
	}).Info("Syncing repository")

	if err := fsmerge.RemoveAll(dest); err != nil {
		return bundle, fmt.Errorf("%w: %w", errs.ErrSync, err)
	}

	cmd := CloneCommand(url, ref, dest)
	cmd.Name = s.git
	if _, err := s.runner.Run(ctx, cmd); err != nil {
		return bundle, fmt.Errorf("%w: clone of %s failed: %w", errs.ErrSync, url, err)
	}

	if stripMetadata {
		if err := fsmerge.RemoveAll(filepath.Join(dest, ".git")); err != nil {
			return bundle, fmt.Errorf("%w: %w", errs.ErrSync, err)
		}
	}
	return bundle, nil
}
