package dag

import (
	"context"

	"dagvfs/internal/ancestry"
	"dagvfs/internal/domain"
	"dagvfs/internal/pathutil"
	"dagvfs/internal/store"
)

// FileState is a path's resolved state as seen by ReadFile: Found is false
// when the path was never recorded, or its nearest record is a tombstone.
type FileState struct {
	Found     bool
	IsSymlink bool
	Content   *string
}

// ReadFile resolves the effective content of path as of commitID by
// walking parent_commit_id ancestry and returning the nearest matching
// entry; if that entry is a tombstone the path is reported as not found
// (spec §4.4).
func ReadFile(ctx context.Context, s store.Store, commitID domain.ID, path string) (FileState, error) {
	norm, err := pathutil.Normalize(path)
	if err != nil {
		return FileState{}, err
	}

	chain, err := ancestry.ParentChain(ctx, s, commitID)
	if err != nil {
		return FileState{}, err
	}

	for _, cid := range chain {
		entry, ok, err := s.GetFileEntry(ctx, cid, norm)
		if err != nil {
			return FileState{}, err
		}
		if !ok {
			continue
		}
		if entry.IsDeleted {
			return FileState{Found: false}, nil
		}
		return FileState{Found: true, IsSymlink: entry.IsSymlink, Content: entry.Content}, nil
	}
	return FileState{Found: false}, nil
}

// HistoryEntry is one row of get_file_history: a single commit's recorded
// entry for a path, verbatim, including tombstones and symlinks.
type HistoryEntry struct {
	CommitID  domain.ID
	IsDeleted bool
	IsSymlink bool
	Content   *string
}

// GetFileHistory returns every entry recorded for path across commitID's
// parent_commit_id ancestry, nearest (most recent) first, skipping commits
// that never touched the path (spec §4.4).
func GetFileHistory(ctx context.Context, s store.Store, commitID domain.ID, path string) ([]HistoryEntry, error) {
	norm, err := pathutil.Normalize(path)
	if err != nil {
		return nil, err
	}

	chain, err := ancestry.ParentChain(ctx, s, commitID)
	if err != nil {
		return nil, err
	}

	var history []HistoryEntry
	for _, cid := range chain {
		entry, ok, err := s.GetFileEntry(ctx, cid, norm)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		history = append(history, HistoryEntry{
			CommitID:  cid,
			IsDeleted: entry.IsDeleted,
			IsSymlink: entry.IsSymlink,
			Content:   entry.Content,
		})
	}
	return history, nil
}
