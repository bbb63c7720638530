// Package rebase implements the rebase engine (C8): reparenting a branch's
// tip linearly onto another branch's tip, collapsing the branch's own
// changes into a single new commit.
package rebase

import (
	"context"
	"log"

	"dagvfs/internal/ancestry"
	"dagvfs/internal/conflict"
	"dagvfs/internal/dag"
	"dagvfs/internal/domain"
	"dagvfs/internal/mergebase"
	"dagvfs/internal/store"
)

// Operation names the outcome of rebase_branch (spec §4.8).
type Operation string

const (
	OpAlreadyUpToDate Operation = "already_up_to_date"
	OpFastForward     Operation = "fast_forward"
	OpRebased         Operation = "rebased"
)

// Result is the return value of RebaseBranch.
type Result struct {
	Operation             Operation
	RebasedCommitID       domain.ID
	NewBranchHeadCommitID domain.ID
	AppliedFileCount      int
}

// RebaseBranch reparents branchID onto ontoBranchID's tip (spec §4.8).
func RebaseBranch(ctx context.Context, s store.Store, branchID, ontoBranchID domain.ID, message string) (Result, error) {
	var result Result
	err := s.WithBranchLock(ctx, branchID, func() error {
		branch, err := s.GetBranch(ctx, branchID)
		if err != nil {
			return err
		}
		onto, err := s.GetBranch(ctx, ontoBranchID)
		if err != nil {
			return err
		}
		if branch.RepositoryID != onto.RepositoryID {
			return domain.ErrCrossRepository
		}

		b := branch.HeadCommitID
		o := onto.HeadCommitID

		if o.Empty() || b == o {
			result = Result{Operation: OpAlreadyUpToDate, NewBranchHeadCommitID: b}
			return nil
		}

		if b.Empty() {
			// Branch has no commits of its own: trivially fast-forwards onto O.
			if err := s.SetBranchHead(ctx, branchID, o); err != nil {
				return err
			}
			result = Result{Operation: OpFastForward, NewBranchHeadCommitID: o}
			return nil
		}

		// Noop: O is an ancestor of B — walk up from B looking for O.
		bAncestry, err := ancestry.ParentChain(ctx, s, b)
		if err != nil {
			return err
		}
		for _, id := range bAncestry {
			if id == o {
				result = Result{Operation: OpAlreadyUpToDate, NewBranchHeadCommitID: b}
				return nil
			}
		}

		// Fast-forward: B is an ancestor of O — walk up from O looking for B.
		oAncestry, err := ancestry.ParentChain(ctx, s, o)
		if err != nil {
			return err
		}
		for _, id := range oAncestry {
			if id == b {
				if err := s.SetBranchHead(ctx, branchID, o); err != nil {
					return err
				}
				result = Result{Operation: OpFastForward, NewBranchHeadCommitID: o}
				log.Printf("rebase_branch: fast-forwarded %s to %s", branchID, o)
				return nil
			}
		}

		res, err := rebaseDiverged(ctx, s, branch, b, o, message)
		if err != nil {
			return err
		}
		result = res
		log.Printf("rebase_branch: rebased %s onto %s (new commit %s, applied=%d)",
			branchID, ontoBranchID, result.RebasedCommitID, result.AppliedFileCount)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func rebaseDiverged(ctx context.Context, s store.Store, branch *domain.Branch, b, o domain.ID, message string) (Result, error) {
	conflicts, err := conflict.GetConflicts(ctx, s, o, b)
	if err != nil {
		return Result{}, err
	}
	if len(conflicts) > 0 {
		paths := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			paths = append(paths, c.Path)
		}
		return Result{}, &domain.RebaseBlockedError{Paths: paths}
	}

	baseID, err := mergebase.GetMergeBase(ctx, s, b, o)
	if err != nil {
		return Result{}, err
	}
	baseSnapshot, err := snapshot(ctx, s, baseID)
	if err != nil {
		return Result{}, err
	}
	branchSnapshot, err := snapshot(ctx, s, b)
	if err != nil {
		return Result{}, err
	}

	paths := make(map[string]bool)
	for p := range baseSnapshot {
		paths[p] = true
	}
	for p := range branchSnapshot {
		paths[p] = true
	}

	newCommit, err := s.CreateCommit(ctx, branch.RepositoryID, o, "", message)
	if err != nil {
		return Result{}, err
	}

	applied := 0
	for path := range paths {
		baseEntry, inBase := baseSnapshot[path]
		branchEntry, inBranch := branchSnapshot[path]
		if inBase == inBranch && (!inBase || baseEntry.Equal(branchEntry)) {
			continue // unchanged by the branch relative to base
		}
		if !inBranch {
			if _, err := s.AddFileEntry(ctx, newCommit.ID, path, nil, true, false); err != nil {
				return Result{}, err
			}
		} else if _, err := s.AddFileEntry(ctx, newCommit.ID, path, branchEntry.Content, false, branchEntry.IsSymlink); err != nil {
			return Result{}, err
		}
		applied++
	}

	if err := s.SetBranchHead(ctx, branch.ID, newCommit.ID); err != nil {
		return Result{}, err
	}

	return Result{
		Operation:             OpRebased,
		RebasedCommitID:       newCommit.ID,
		NewBranchHeadCommitID: newCommit.ID,
		AppliedFileCount:      applied,
	}, nil
}

func snapshot(ctx context.Context, s store.Store, commitID domain.ID) (map[string]domain.FileEntry, error) {
	out := make(map[string]domain.FileEntry)
	if commitID.Empty() {
		return out, nil
	}
	entries, err := dag.GetCommitSnapshot(ctx, s, commitID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.Path] = domain.FileEntry{Path: e.Path, IsSymlink: e.IsSymlink, Content: e.Content}
	}
	return out, nil
}
