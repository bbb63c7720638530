package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the error kinds of spec §7 that carry no extra data.
var (
	// ErrCrossRepository is returned when an operation receives commits (or
	// a commit and a branch) from different repositories.
	ErrCrossRepository = errors.New("dagvfs: commits belong to different repositories")
	// ErrFastForwardRequired is returned when finalize_commit is called on a
	// non-merge commit whose parent is not the target branch's current head.
	ErrFastForwardRequired = errors.New("dagvfs: commit's parent is not the target branch's current head")
	// ErrRepositoryNotFound, ErrBranchNotFound, ErrCommitNotFound report a
	// missing referenced entity.
	ErrRepositoryNotFound = errors.New("dagvfs: repository not found")
	ErrBranchNotFound     = errors.New("dagvfs: branch not found")
	ErrCommitNotFound     = errors.New("dagvfs: commit not found")
	// ErrDuplicateName is raised on a UNIQUE constraint breach for
	// repository names or (repository, branch) names.
	ErrDuplicateName = errors.New("dagvfs: name already in use")
	// ErrDuplicatePath is raised on a UNIQUE(commit_id, path) breach.
	ErrDuplicatePath = errors.New("dagvfs: path already recorded on this commit")
	// ErrTombstoneInvariant is raised when a tombstone entry carries content
	// or the symlink flag, or when a symlink entry has no target content.
	ErrTombstoneInvariant = errors.New("dagvfs: tombstone entries must have nil content and is_symlink=false")
	// ErrAncestryDepthExceeded is raised when an ancestry walk reaches a
	// commit config.Config.MaxAncestryDepth or more hops from its starting
	// commit. Defence in depth
	// against a pathologically long or corrupt DAG (spec §5/§9); the
	// append-only discipline should never produce one in practice.
	ErrAncestryDepthExceeded = errors.New("dagvfs: ancestry walk exceeded the configured maximum depth")
)

// InvalidCommitError reports InvalidCommit(side) from spec §7: the commit id
// referenced on the named side does not exist (or not in the expected repo).
type InvalidCommitError struct {
	Side string // "left", "right", or a caller-supplied label
	ID   ID
}

func (e *InvalidCommitError) Error() string {
	return fmt.Sprintf("dagvfs: invalid commit on %s side: %s", e.Side, e.ID)
}

func (e *InvalidCommitError) Is(target error) bool {
	return target == ErrCommitNotFound
}

// MergeRequiresResolutionsError reports the unresolved conflict paths a
// merge commit must carry before finalize_commit will advance the branch.
type MergeRequiresResolutionsError struct {
	Paths []string
}

func (e *MergeRequiresResolutionsError) Error() string {
	return fmt.Sprintf("dagvfs: merge requires resolutions for: %s", strings.Join(e.Paths, ", "))
}

// RebaseBlockedError reports the conflicting paths that prevented a rebase.
type RebaseBlockedError struct {
	Paths []string
}

func (e *RebaseBlockedError) Error() string {
	return fmt.Sprintf("dagvfs: rebase blocked by conflicts in: %s", strings.Join(e.Paths, ", "))
}
