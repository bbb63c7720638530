// Package dagvfs is the public facade of the commit DAG engine: a
// versioned virtual filesystem organised as a content-overlay DAG of
// commits. Engine wraps a Store and exposes every named operation of the
// underlying components (C1–C8) as a method.
package dagvfs

import (
	"context"
	"log"
	"time"

	"dagvfs/internal/conflict"
	"dagvfs/internal/dag"
	"dagvfs/internal/domain"
	"dagvfs/internal/finalize"
	"dagvfs/internal/mergebase"
	"dagvfs/internal/rebase"
	"dagvfs/internal/store"
)

// Re-exported types so callers never need to import internal packages.
type (
	ID                = domain.ID
	Repository        = domain.Repository
	Branch            = domain.Branch
	Commit            = domain.Commit
	FileEntry         = domain.FileEntry
	DeltaRow          = dag.DeltaRow
	SnapshotEntry     = dag.SnapshotEntry
	FileState         = dag.FileState
	HistoryEntry      = dag.HistoryEntry
	ConflictRow       = conflict.Row
	ConflictKind      = conflict.Kind
	FinalizeResult    = finalize.Result
	FinalizeOperation = finalize.Operation
	RebaseResult      = rebase.Result
	RebaseOperation   = rebase.Operation
)

// Conflict kind constants, re-exported for callers that switch on them.
const (
	KindAddAdd       = conflict.KindAddAdd
	KindModifyModify = conflict.KindModifyModify
	KindDeleteModify = conflict.KindDeleteModify
	KindModifyDelete = conflict.KindModifyDelete
)

// Engine is the commit DAG engine's public surface, backed by a Store (the
// in-memory implementation or the SQLite-backed one).
type Engine struct {
	store store.Store
}

// NewEngine wraps s in an Engine. The caller owns s's lifecycle (e.g.
// closing a SQLStore).
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// CreateRepository creates a repository with its auto-created main branch.
func (e *Engine) CreateRepository(ctx context.Context, name string) (*domain.Repository, error) {
	return e.store.CreateRepository(ctx, name)
}

// GetRepository fetches a repository by id.
func (e *Engine) GetRepository(ctx context.Context, id domain.ID) (*domain.Repository, error) {
	return e.store.GetRepository(ctx, id)
}

// CreateBranch creates a branch in repositoryID. A zero headCommitID
// defaults it to the repository's current default-branch head.
func (e *Engine) CreateBranch(ctx context.Context, repositoryID domain.ID, name string, headCommitID domain.ID) (*domain.Branch, error) {
	return e.store.CreateBranch(ctx, repositoryID, name, headCommitID)
}

// GetBranch fetches a branch by id.
func (e *Engine) GetBranch(ctx context.Context, id domain.ID) (*domain.Branch, error) {
	return e.store.GetBranch(ctx, id)
}

// GetBranchByName fetches a branch by its (repository, name) pair.
func (e *Engine) GetBranchByName(ctx context.Context, repositoryID domain.ID, name string) (*domain.Branch, error) {
	return e.store.GetBranchByName(ctx, repositoryID, name)
}

// CreateCommit records a new commit. mergedFromCommitID is non-empty only
// for merge commits.
func (e *Engine) CreateCommit(ctx context.Context, repositoryID, parentCommitID, mergedFromCommitID domain.ID, message string) (*domain.Commit, error) {
	return e.store.CreateCommit(ctx, repositoryID, parentCommitID, mergedFromCommitID, message)
}

// GetCommit fetches a commit by id.
func (e *Engine) GetCommit(ctx context.Context, id domain.ID) (*domain.Commit, error) {
	return e.store.GetCommit(ctx, id)
}

// AddFileEntry records a file-level change on commitID.
func (e *Engine) AddFileEntry(ctx context.Context, commitID domain.ID, path string, content *string, isDeleted, isSymlink bool) (*domain.FileEntry, error) {
	return e.store.AddFileEntry(ctx, commitID, path, content, isDeleted, isSymlink)
}

// GetCommitDelta returns the file entries literally recorded at commitID
// (C3, no ancestry walked).
func (e *Engine) GetCommitDelta(ctx context.Context, commitID domain.ID) ([]dag.DeltaRow, error) {
	return dag.GetCommitDelta(ctx, e.store, commitID)
}

// GetCommitSnapshot computes the effective file set visible at commitID (C3).
func (e *Engine) GetCommitSnapshot(ctx context.Context, commitID domain.ID) ([]dag.SnapshotEntry, error) {
	return dag.GetCommitSnapshot(ctx, e.store, commitID)
}

// ReadFile resolves path's effective content as of commitID (C4).
func (e *Engine) ReadFile(ctx context.Context, commitID domain.ID, path string) (dag.FileState, error) {
	return dag.ReadFile(ctx, e.store, commitID, path)
}

// GetFileHistory returns every entry recorded for path across commitID's
// ancestry (C4).
func (e *Engine) GetFileHistory(ctx context.Context, commitID domain.ID, path string) ([]dag.HistoryEntry, error) {
	return dag.GetFileHistory(ctx, e.store, commitID, path)
}

// GetMergeBase returns the lowest common ancestor of a and b, or an empty
// ID if their histories are disjoint (C5).
func (e *Engine) GetMergeBase(ctx context.Context, a, b domain.ID) (domain.ID, error) {
	return mergebase.GetMergeBase(ctx, e.store, a, b)
}

// GetConflicts computes the three-way conflict rows between left and
// right relative to their merge base (C6).
func (e *Engine) GetConflicts(ctx context.Context, left, right domain.ID) ([]conflict.Row, error) {
	return conflict.GetConflicts(ctx, e.store, left, right)
}

// FinalizeCommit validates and applies commitID to targetBranchID,
// advancing the branch head (C7).
func (e *Engine) FinalizeCommit(ctx context.Context, commitID, targetBranchID domain.ID) (finalize.Result, error) {
	start := time.Now()
	res, err := finalize.FinalizeCommit(ctx, e.store, commitID, targetBranchID)
	log.Printf("Engine.FinalizeCommit: commit=%s branch=%s took %v err=%v", commitID, targetBranchID, time.Since(start), err)
	return res, err
}

// RebaseBranch reparents branchID onto ontoBranchID's tip (C8).
func (e *Engine) RebaseBranch(ctx context.Context, branchID, ontoBranchID domain.ID, message string) (rebase.Result, error) {
	start := time.Now()
	res, err := rebase.RebaseBranch(ctx, e.store, branchID, ontoBranchID, message)
	log.Printf("Engine.RebaseBranch: branch=%s onto=%s took %v err=%v", branchID, ontoBranchID, time.Since(start), err)
	return res, err
}
