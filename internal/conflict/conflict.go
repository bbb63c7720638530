// Package conflict implements the three-way conflict detector (C6):
// classifying divergent changes between two commits relative to their
// merge base.
package conflict

import (
	"context"

	"github.com/sergi/go-diff/diffmatchpatch"

	"dagvfs/internal/dag"
	"dagvfs/internal/domain"
	"dagvfs/internal/mergebase"
	"dagvfs/internal/store"
)

// Kind names the classification of a conflicting path (spec §4.6).
type Kind string

const (
	KindAddAdd       Kind = "add/add"
	KindModifyModify Kind = "modify/modify"
	KindDeleteModify Kind = "delete/modify"
	KindModifyDelete Kind = "modify/delete"
)

// Row is one row of get_conflicts.
type Row struct {
	MergeBaseCommitID domain.ID
	Path              string

	BaseExists    bool
	BaseContent   *string
	BaseIsSymlink bool

	LeftExists    bool
	LeftContent   *string
	LeftIsSymlink bool

	RightExists    bool
	RightContent   *string
	RightIsSymlink bool

	ConflictKind Kind
	// DiffHint is an optional line-level diff between left and right
	// content, provided for modify/modify rows with textual content only.
	DiffHint string
}

type side struct {
	exists    bool
	isSymlink bool
	content   *string
}

func toEntry(isSymlink bool, content *string) domain.FileEntry {
	return domain.FileEntry{IsSymlink: isSymlink, Content: content}
}

func sideEqual(a, b side) bool {
	if a.exists != b.exists {
		return false
	}
	if !a.exists {
		return true
	}
	return toEntry(a.isSymlink, a.content).Equal(toEntry(b.isSymlink, b.content))
}

// GetConflicts computes the three-way conflict rows between left and right
// (spec §4.6). Both commits must exist in the same repository.
func GetConflicts(ctx context.Context, s store.Store, left, right domain.ID) ([]Row, error) {
	cl, err := s.GetCommit(ctx, left)
	if err != nil {
		return nil, &domain.InvalidCommitError{Side: "left", ID: left}
	}
	cr, err := s.GetCommit(ctx, right)
	if err != nil {
		return nil, &domain.InvalidCommitError{Side: "right", ID: right}
	}
	if cl.RepositoryID != cr.RepositoryID {
		return nil, domain.ErrCrossRepository
	}

	baseID, err := mergebase.GetMergeBase(ctx, s, left, right)
	if err != nil {
		return nil, err
	}

	baseSides, err := snapshotSides(ctx, s, baseID)
	if err != nil {
		return nil, err
	}
	leftSides, err := snapshotSides(ctx, s, left)
	if err != nil {
		return nil, err
	}
	rightSides, err := snapshotSides(ctx, s, right)
	if err != nil {
		return nil, err
	}

	paths := make(map[string]bool)
	for p := range baseSides {
		paths[p] = true
	}
	for p := range leftSides {
		paths[p] = true
	}
	for p := range rightSides {
		paths[p] = true
	}

	var rows []Row
	for path := range paths {
		b, l, r := baseSides[path], leftSides[path], rightSides[path]

		leftChanged := !sideEqual(b, l)
		rightChanged := !sideEqual(b, r)
		if !leftChanged || !rightChanged {
			continue // one-sided (or no) change is never a conflict
		}
		if sideEqual(l, r) {
			continue // both sides made the identical change
		}

		kind, ok := classify(b, l, r)
		if !ok {
			continue
		}

		row := Row{
			MergeBaseCommitID: baseID,
			Path:              path,
			BaseExists:        b.exists, BaseContent: b.content, BaseIsSymlink: b.isSymlink,
			LeftExists: l.exists, LeftContent: l.content, LeftIsSymlink: l.isSymlink,
			RightExists: r.exists, RightContent: r.content, RightIsSymlink: r.isSymlink,
			ConflictKind: kind,
		}
		if kind == KindModifyModify && l.content != nil && r.content != nil {
			row.DiffHint = diffHint(*l.content, *r.content)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// classify maps a (base, left, right) triple to the table in spec §4.6.
// Callers have already established both sides changed and disagree.
func classify(b, l, r side) (Kind, bool) {
	switch {
	case !b.exists && l.exists && r.exists:
		return KindAddAdd, true
	case b.exists && !l.exists && r.exists:
		return KindDeleteModify, true
	case b.exists && l.exists && !r.exists:
		return KindModifyDelete, true
	case b.exists && l.exists && r.exists:
		return KindModifyModify, true
	default:
		return "", false
	}
}

// snapshotSides resolves commitID's effective file set into a lookup table
// keyed by path, for three-way comparison.
func snapshotSides(ctx context.Context, s store.Store, commitID domain.ID) (map[string]side, error) {
	out := make(map[string]side)
	if commitID.Empty() {
		return out, nil
	}
	entries, err := dag.GetCommitSnapshot(ctx, s, commitID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.Path] = side{exists: true, isSymlink: e.IsSymlink, content: e.Content}
	}
	return out, nil
}

// diffHint renders a short, line-level diff summary between two content
// strings, to help a caller decide a resolution. Purely advisory; the
// engine never auto-merges text (spec.md's Non-goals).
func diffHint(left, right string) string {
	dmp := diffmatchpatch.New()
	leftChars, rightChars, lines := dmp.DiffLinesToChars(left, right)
	diffs := dmp.DiffMain(leftChars, rightChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	return dmp.DiffPrettyText(diffs)
}
