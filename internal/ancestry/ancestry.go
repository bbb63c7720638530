// Package ancestry implements the commit-DAG walks shared by snapshot
// resolution (C3), history/reads (C4), merge-base (C5), and conflict
// detection (C6): spec §9 singles these out as "bounded by the size of the
// DAG" and asks for a visited-set guard as defence in depth against
// corrupt/cyclic data, even though the append-only discipline rules out
// real cycles.
package ancestry

import (
	"context"

	"dagvfs/internal/config"
	"dagvfs/internal/domain"
	"dagvfs/internal/store"
)

// ParentChain walks only parent_commit_id edges starting at commitID,
// returning commits nearest-first (commitID itself at distance 0). This is
// the walk snapshot resolution and history/read operations use: spec §9
// is explicit that incoming (merged_from) entries are never inherited
// transparently by these operations.
//
// The walk is bounded by config.Global.MaxAncestryDepth (zero means
// unbounded): spec §5 asks ancestry walks to be "protected against
// pathological cycles by a visited-set" as defence in depth, and a
// configurable depth cap is the same defence against a merely very long
// chain rather than an actual cycle.
func ParentChain(ctx context.Context, s store.Store, commitID domain.ID) ([]domain.ID, error) {
	var chain []domain.ID
	visited := make(map[domain.ID]bool)
	maxDepth := config.Global.MaxAncestryDepth

	cur := commitID
	for !cur.Empty() {
		if visited[cur] {
			break // corrupt-data guard; append-only discipline prevents real cycles
		}
		if maxDepth > 0 && len(chain) >= maxDepth {
			return nil, domain.ErrAncestryDepthExceeded
		}
		visited[cur] = true
		chain = append(chain, cur)

		c, err := s.GetCommit(ctx, cur)
		if err != nil {
			return nil, err
		}
		cur = c.ParentCommitID
	}
	return chain, nil
}

// DualEdgeDistances computes, for every commit reachable from commitID by
// walking parent_commit_id AND merged_from_commit_id edges, the minimum
// number of hops to reach it. Used by merge-base (C5) and conflict
// detection's ancestor sets (C6), where both edge kinds count.
func DualEdgeDistances(ctx context.Context, s store.Store, commitID domain.ID) (map[domain.ID]int, error) {
	distances := map[domain.ID]int{commitID: 0}
	queue := []domain.ID{commitID}
	maxDepth := config.Global.MaxAncestryDepth

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := distances[cur]
		if maxDepth > 0 && d >= maxDepth {
			return nil, domain.ErrAncestryDepthExceeded
		}

		c, err := s.GetCommit(ctx, cur)
		if err != nil {
			return nil, err
		}

		for _, next := range []domain.ID{c.ParentCommitID, c.MergedFromCommitID} {
			if next.Empty() {
				continue
			}
			if existing, seen := distances[next]; !seen || d+1 < existing {
				distances[next] = d + 1
				queue = append(queue, next)
			}
		}
	}
	return distances, nil
}
