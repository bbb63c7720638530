// Package mergebase implements the merge-base finder (C5): the lowest
// common ancestor of two commits over the dual-edge commit DAG.
package mergebase

import (
	"context"

	"dagvfs/internal/ancestry"
	"dagvfs/internal/domain"
	"dagvfs/internal/store"
)

// GetMergeBase returns the merge base of a and b, or an empty ID if their
// histories are disjoint (spec §4.5). Both commits must exist in the same
// repository.
func GetMergeBase(ctx context.Context, s store.Store, a, b domain.ID) (domain.ID, error) {
	ca, err := s.GetCommit(ctx, a)
	if err != nil {
		return "", &domain.InvalidCommitError{Side: "a", ID: a}
	}
	cb, err := s.GetCommit(ctx, b)
	if err != nil {
		return "", &domain.InvalidCommitError{Side: "b", ID: b}
	}
	if ca.RepositoryID != cb.RepositoryID {
		return "", domain.ErrCrossRepository
	}

	if a == b {
		return a, nil
	}

	distA, err := ancestry.DualEdgeDistances(ctx, s, a)
	if err != nil {
		return "", err
	}
	distB, err := ancestry.DualEdgeDistances(ctx, s, b)
	if err != nil {
		return "", err
	}

	var best domain.ID
	bestSum, bestFromA := -1, -1
	for id, da := range distA {
		db, ok := distB[id]
		if !ok {
			continue
		}
		sum := da + db
		better := best.Empty() ||
			sum < bestSum ||
			(sum == bestSum && da < bestFromA) ||
			(sum == bestSum && da == bestFromA && id < best)
		if better {
			best, bestSum, bestFromA = id, sum, da
		}
	}
	return best, nil
}
