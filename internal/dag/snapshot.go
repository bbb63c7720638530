// Package dag implements the snapshot resolver (C3) and the history/read
// projections (C4): computing a commit's effective file set and answering
// single-path queries by walking commit ancestry.
package dag

import (
	"context"
	"time"

	"dagvfs/internal/ancestry"
	"dagvfs/internal/domain"
	"dagvfs/internal/store"
)

// DeltaRow is one row of get_commit_delta: the file entries literally
// recorded at a commit, joined with the owning repository and commit for
// display, with no ancestry walked.
type DeltaRow struct {
	RepositoryID     domain.ID
	RepositoryName   string
	CommitID         domain.ID
	Path             string
	IsDeleted        bool
	IsSymlink        bool
	Content          *string
	CommitCreatedAt  time.Time
	CommitMessage    string
}

// GetCommitDelta returns exactly the file entries recorded at commitID,
// unordered, with no ancestry walked (spec §4.3).
func GetCommitDelta(ctx context.Context, s store.Store, commitID domain.ID) ([]DeltaRow, error) {
	c, err := s.GetCommit(ctx, commitID)
	if err != nil {
		return nil, err
	}
	repo, err := s.GetRepository(ctx, c.RepositoryID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ListFileEntries(ctx, commitID)
	if err != nil {
		return nil, err
	}

	rows := make([]DeltaRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, DeltaRow{
			RepositoryID:    repo.ID,
			RepositoryName:  repo.Name,
			CommitID:        commitID,
			Path:            e.Path,
			IsDeleted:       e.IsDeleted,
			IsSymlink:       e.IsSymlink,
			Content:         e.Content,
			CommitCreatedAt: c.CreatedAt,
			CommitMessage:   c.Message,
		})
	}
	return rows, nil
}

// SnapshotEntry is one row of get_commit_snapshot: a path's effective
// state at a commit.
type SnapshotEntry struct {
	Path      string
	IsSymlink bool
	Content   *string
}

// GetCommitSnapshot computes the effective file set visible at commitID by
// walking parent_commit_id ancestry (merged_from_commit_id edges are never
// followed here, per spec §9): at each path the nearest entry wins, and a
// tombstoned winner excludes the path from the result.
func GetCommitSnapshot(ctx context.Context, s store.Store, commitID domain.ID) ([]SnapshotEntry, error) {
	chain, err := ancestry.ParentChain(ctx, s, commitID)
	if err != nil {
		return nil, err
	}

	winners := make(map[string]domain.FileEntry)
	seen := make(map[string]bool)

	for _, cid := range chain {
		entries, err := s.ListFileEntries(ctx, cid)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if seen[e.Path] {
				continue // a nearer commit already won this path
			}
			seen[e.Path] = true
			winners[e.Path] = e
		}
	}

	out := make([]SnapshotEntry, 0, len(winners))
	for path, e := range winners {
		if e.IsDeleted {
			continue
		}
		out = append(out, SnapshotEntry{Path: path, IsSymlink: e.IsSymlink, Content: e.Content})
	}
	return out, nil
}
