// Package gitinfo reads branch and commit metadata of the repository containing
// a scanned directory.
package gitinfo

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info describes the repository state at scan time.
type Info struct {
	// Branch is empty when HEAD is detached.
	Branch     string
	CommitHash string
	// WorkingDirectory is the worktree root with forward slashes.
	WorkingDirectory string
	// ActiveBranches are the remote-tracking branch names without the remote prefix.
	ActiveBranches []string
}

// Reader gathers Info with go-git.
type Reader struct{}

// Gather returns the Info of the repository containing path, searching parent
// directories for it. It returns nil and no error when path is not inside a
// repository.
func (Reader) Gather(path string) (*Info, error) {
	return Gather(path)
}

// Gather is the function form of Reader.Gather.
func Gather(path string) (*Info, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", path, err)
	}

	info := &Info{}

	if wt, err := repo.Worktree(); err == nil {
		info.WorkingDirectory = filepath.ToSlash(wt.Filesystem.Root())
	}

	head, err := repo.Head()
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// no commits yet
	case err != nil:
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	default:
		info.CommitHash = head.Hash().String()
		if head.Name().IsBranch() {
			info.Branch = head.Name().Short()
		}
	}

	branches, err := remoteBranches(repo)
	if err != nil {
		return nil, err
	}
	info.ActiveBranches = branches

	return info, nil
}

// remoteBranches lists remote-tracking branches without their remote name,
// deduplicated and sorted.
func remoteBranches(repo *git.Repository) ([]string, error) {
	refs, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to get references: %w", err)
	}

	var branches []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsRemote() {
			return nil
		}
		_, name, ok := strings.Cut(ref.Name().Short(), "/")
		if !ok || name == "" || name == "HEAD" {
			return nil
		}
		branches = append(branches, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}

	slices.Sort(branches)
	return slices.Compact(branches), nil
}
