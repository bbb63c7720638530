// Package domain holds the entity model shared by every component of the
// commit DAG engine: repositories, branches, commits, and file entries.
package domain

import "github.com/google/uuid"

// ID is an opaque, stable identifier. The reference store mints
// UUID-shaped values; callers must never parse or derive meaning from one.
type ID string

// NewID mints a fresh opaque identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// Empty reports whether id is the zero value (used for nullable FK fields
// such as Commit.ParentCommitID).
func (id ID) Empty() bool {
	return id == ""
}
