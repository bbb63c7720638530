// Package finalize implements the finaliser (C7): validating pre-declared
// merge resolutions and advancing a branch head for both ordinary commits
// and merge commits.
package finalize

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

// Operation names the outcome of finalize_commit (spec §4.7).
type Operation string

const (
	OpCommitted              Operation = "committed"
	OpAlreadyUpToDate        Operation = "already_up_to_date"
	OpMerged                 Operation = "merged"
	OpMergedWithResolutions  Operation = "merged_with_conflicts_resolved"
)

// Result is the return value of FinalizeCommit.
type Result struct {
	Operation             Operation
	MergeCommitID         domain.ID // equals commitID when commitID is a merge commit
	NewTargetHeadCommitID domain.ID
	AppliedFileCount      int
}

// FinalizeCommit validates and applies commitID to targetBranchID,
// following spec §4.7 exactly: fast-forward for non-merge commits,
// conflict-gated merge for merge commits.
func FinalizeCommit(ctx context.Context, s store.Store, commitID, targetBranchID domain.ID) (Result, error) {
	var result Result
	err := s.WithBranchLock(ctx, targetBranchID, func() error {
		branch, err := s.GetBranch(ctx, targetBranchID)
		if err != nil {
			return err
		}
		commit, err := s.GetCommit(ctx, commitID)
		if err != nil {
			return &domain.InvalidCommitError{Side: "commit_id", ID: commitID}
		}
		if commit.RepositoryID != branch.RepositoryID {
			return domain.ErrCrossRepository
		}

		if !commit.IsMerge() {
			if branch.HeadCommitID != commit.ParentCommitID {
				return domain.ErrFastForwardRequired
			}
			if err := s.SetBranchHead(ctx, targetBranchID, commitID); err != nil {
				return err
			}
			entries, err := s.ListFileEntries(ctx, commitID)
			if err != nil {
				return err
			}
			result = Result{
				Operation:             OpCommitted,
				NewTargetHeadCommitID: commitID,
				AppliedFileCount:      len(entries),
			}
			log.Printf("finalize_commit: committed %s onto branch %s", commitID, targetBranchID)
			return nil
		}

		res, err := finalizeMerge(ctx, s, commit, branch)
		if err != nil {
			return err
		}
		result = res
		log.Printf("finalize_commit: %s merge %s onto branch %s (applied=%d)",
			result.Operation, commitID, targetBranchID, result.AppliedFileCount)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func finalizeMerge(ctx context.Context, s store.Store, commit *domain.Commit, branch *domain.Branch) (Result, error) {
	source := commit.MergedFromCommitID
	preAdvanceHead := branch.HeadCommitID

	sourceChain, err := sourceIsAncestorOf(ctx, s, source, preAdvanceHead)
	if err != nil {
		return Result{}, err
	}
	if sourceChain {
		if err := s.SetBranchHead(ctx, branch.ID, commit.ID); err != nil {
			return Result{}, err
		}
		return Result{
			Operation:             OpAlreadyUpToDate,
			MergeCommitID:         commit.ID,
			NewTargetHeadCommitID: commit.ID,
			AppliedFileCount:      0,
		}, nil
	}

	target := commit.ParentCommitID
	conflicts, err := conflict.GetConflicts(ctx, s, target, source)
	if err != nil {
		return Result{}, err
	}

	resolutions := make(map[string]bool)
	existing, err := s.ListFileEntries(ctx, commit.ID)
	if err != nil {
		return Result{}, err
	}
	existingByPath := make(map[string]domain.FileEntry, len(existing))
	for _, e := range existing {
		existingByPath[e.Path] = e
		resolutions[e.Path] = true
	}

	var unresolved []string
	for _, c := range conflicts {
		if !resolutions[c.Path] {
			unresolved = append(unresolved, c.Path)
		}
	}
	if len(unresolved) > 0 {
		return Result{}, &domain.MergeRequiresResolutionsError{Paths: unresolved}
	}
	hadConflicts := len(conflicts) > 0

	baseID, err := mergebase.GetMergeBase(ctx, s, target, source)
	if err != nil {
		return Result{}, err
	}
	baseSnapshot, err := snapshotByPath(ctx, s, baseID)
	if err != nil {
		return Result{}, err
	}
	targetSnapshot, err := snapshotByPath(ctx, s, target)
	if err != nil {
		return Result{}, err
	}
	sourceSnapshot, err := snapshotByPath(ctx, s, source)
	if err != nil {
		return Result{}, err
	}

	paths := make(map[string]bool)
	for p := range baseSnapshot {
		paths[p] = true
	}
	for p := range targetSnapshot {
		paths[p] = true
	}
	for p := range sourceSnapshot {
		paths[p] = true
	}

	applied := 0
	for path := range paths {
		baseEntry, inBase := baseSnapshot[path]
		targetEntry, inTarget := targetSnapshot[path]
		sourceEntry, inSource := sourceSnapshot[path]

		sourceChanged := inBase != inSource || (inBase && inSource && !baseEntry.Equal(sourceEntry))
		targetChanged := inBase != inTarget || (inBase && inTarget && !baseEntry.Equal(targetEntry))
		if !sourceChanged || targetChanged {
			continue // unchanged by source, or target itself already changed (conflict path, handled above)
		}
		if _, overridden := existingByPath[path]; overridden {
			continue
		}

		if !inSource {
			if _, err := s.AddFileEntry(ctx, commit.ID, path, nil, true, false); err != nil {
				return Result{}, err
			}
		} else if _, err := s.AddFileEntry(ctx, commit.ID, path, sourceEntry.Content, false, sourceEntry.IsSymlink); err != nil {
			return Result{}, err
		}
		applied++
	}

	if err := s.SetBranchHead(ctx, branch.ID, commit.ID); err != nil {
		return Result{}, err
	}

	op := OpMerged
	if hadConflicts {
		op = OpMergedWithResolutions
	}
	return Result{
		Operation:             op,
		MergeCommitID:         commit.ID,
		NewTargetHeadCommitID: commit.ID,
		AppliedFileCount:      applied,
	}, nil
}

// sourceIsAncestorOf reports whether source is reachable from head by
// walking both parent_commit_id and merged_from_commit_id edges — the same
// "ancestor" notion spec §4.5/§9 uses for merge-base, applied here to
// detect a merge that has already been incorporated into the target.
func sourceIsAncestorOf(ctx context.Context, s store.Store, source, head domain.ID) (bool, error) {
	if head.Empty() {
		return false, nil
	}
	distances, err := ancestry.DualEdgeDistances(ctx, s, head)
	if err != nil {
		return false, err
	}
	_, ok := distances[source]
	return ok, nil
}

func snapshotByPath(ctx context.Context, s store.Store, commitID domain.ID) (map[string]domain.FileEntry, error) {
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
