package domain

import "time"

// Repository owns a set of branches and commits. It is immutable once
// created except for its DefaultBranchID pointer.
type Repository struct {
	ID              ID
	Name            string
	DefaultBranchID ID
	CreatedAt       time.Time
}

// Branch is a mutable pointer to a commit in the same repository. Creating a
// branch never creates a commit.
type Branch struct {
	ID           ID
	RepositoryID ID
	Name         string
	HeadCommitID ID // empty means null
	CreatedAt    time.Time
}

// Commit is an immutable (once referenced) node in the commit DAG. A commit
// with a non-empty MergedFromCommitID is a merge commit; its second parent
// must belong to the same repository.
type Commit struct {
	ID                 ID
	RepositoryID       ID
	ParentCommitID     ID // empty means null (root commit)
	MergedFromCommitID ID // empty means not a merge commit
	Message            string
	CreatedAt          time.Time
}

// IsMerge reports whether c is a merge commit.
func (c Commit) IsMerge() bool {
	return !c.MergedFromCommitID.Empty()
}

// FileEntry is a single file-level change recorded at a commit. Exactly one
// of "ordinary content", "tombstone", or "symlink" applies; the store's
// enforceFileInvariants checks this before an entry is persisted.
type FileEntry struct {
	ID        ID
	CommitID  ID
	Path      string
	Content   *string // nil for tombstones; symlink target for symlinks
	IsDeleted bool
	IsSymlink bool
	CreatedAt time.Time
}

// Equal compares the (IsSymlink, Content) tuple of two entries as described
// in the conflict-detection spec: two entries are equal iff both flags and
// the dereferenced content (nil treated as absent) agree.
func (f FileEntry) Equal(other FileEntry) bool {
	if f.IsSymlink != other.IsSymlink {
		return false
	}
	if (f.Content == nil) != (other.Content == nil) {
		return false
	}
	if f.Content == nil {
		return true
	}
	return *f.Content == *other.Content
}
