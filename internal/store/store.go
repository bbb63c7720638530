// Package store implements the entity store (C2): plain CRUD over
// repositories, branches, commits, and file entries, plus the
// referential-integrity and invariant-enforcement rules of spec §3/§4.2.
//
// Two backends are provided: an in-memory Store (Memory) for tests and
// embedded use without a database, and a database/sql-backed Store
// (SQLStore) satisfying spec §2's "embedded SQL-like query layer" line.
// Both share the invariant-enforcement helper in this file
// (enforceFileInvariants) so that path/symlink normalisation behaves
// identically regardless of backend; default-branch and default-head
// wiring is implemented by each backend in its CreateRepository and
// CreateBranch — the spec's own design notes (§9) ask for this to be an
// explicit code layer rather than hidden database triggers.
package store

import (
	"context"
	"time"

	"dagvfs/internal/domain"
	"dagvfs/internal/pathutil"
)

// Store is the persistence substrate the commit DAG engine is built on.
// Every method is expected to run within a single serialisable transaction
// from the caller's point of view (see spec §5); the in-memory
// implementation achieves this with a single mutex, the SQL implementation
// with a real database transaction per call.
type Store interface {
	CreateRepository(ctx context.Context, name string) (*domain.Repository, error)
	GetRepository(ctx context.Context, id domain.ID) (*domain.Repository, error)

	CreateBranch(ctx context.Context, repositoryID domain.ID, name string, headCommitID domain.ID) (*domain.Branch, error)
	GetBranch(ctx context.Context, id domain.ID) (*domain.Branch, error)
	GetBranchByName(ctx context.Context, repositoryID domain.ID, name string) (*domain.Branch, error)

	// WithBranchLock runs fn while holding an exclusive, branch-scoped lock,
	// giving finalize/rebase read-after-write consistency between their
	// conflict check and their head advancement (spec §5).
	WithBranchLock(ctx context.Context, branchID domain.ID, fn func() error) error
	// SetBranchHead advances a branch's head pointer. Callers needing
	// atomicity with a preceding read must wrap the call in WithBranchLock.
	SetBranchHead(ctx context.Context, branchID domain.ID, commitID domain.ID) error

	CreateCommit(ctx context.Context, repositoryID, parentCommitID, mergedFromCommitID domain.ID, message string) (*domain.Commit, error)
	GetCommit(ctx context.Context, id domain.ID) (*domain.Commit, error)

	AddFileEntry(ctx context.Context, commitID domain.ID, path string, content *string, isDeleted, isSymlink bool) (*domain.FileEntry, error)
	ListFileEntries(ctx context.Context, commitID domain.ID) ([]domain.FileEntry, error)
	GetFileEntry(ctx context.Context, commitID domain.ID, normalizedPath string) (*domain.FileEntry, bool, error)
}

// enforceFileInvariants normalises path (and content, when isSymlink) and
// checks the tombstone/symlink invariants of spec §3 before a file entry is
// persisted by either backend.
func enforceFileInvariants(path string, content *string, isDeleted, isSymlink bool) (string, *string, error) {
	normPath, err := pathutil.Normalize(path)
	if err != nil {
		return "", nil, err
	}

	if isDeleted {
		if content != nil {
			return "", nil, domain.ErrTombstoneInvariant
		}
		if isSymlink {
			return "", nil, domain.ErrTombstoneInvariant
		}
		return normPath, nil, nil
	}

	if isSymlink {
		if content == nil {
			return "", nil, domain.ErrTombstoneInvariant
		}
		normTarget, err := pathutil.Normalize(*content)
		if err != nil {
			return "", nil, err
		}
		return normPath, &normTarget, nil
	}

	return normPath, content, nil
}

// now is overridable in tests that need deterministic timestamps; the
// engine itself never depends on wall-clock ordering (ancestry ordering
// comes from the DAG, not CreatedAt).
var now = func() time.Time { return time.Now().UTC() }
