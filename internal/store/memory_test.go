package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dagvfs/internal/domain"
)

func TestMemory_CreateRepository_AutoCreatesDefaultMainBranch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	repo, err := m.CreateRepository(ctx, "r1")
	require.NoError(t, err)
	assert.NotEmpty(t, repo.DefaultBranchID)

	branch, err := m.GetBranch(ctx, repo.DefaultBranchID)
	require.NoError(t, err)
	assert.Equal(t, "main", branch.Name)
	assert.True(t, branch.HeadCommitID.Empty())
}

func TestMemory_CreateRepository_DuplicateName(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.CreateRepository(ctx, "dup")
	require.NoError(t, err)
	_, err = m.CreateRepository(ctx, "dup")
	assert.ErrorIs(t, err, domain.ErrDuplicateName)
}

func TestMemory_CreateBranch_DefaultsToDefaultBranchHead(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	repo, err := m.CreateRepository(ctx, "r1")
	require.NoError(t, err)

	c1, err := m.CreateCommit(ctx, repo.ID, "", "", "init")
	require.NoError(t, err)

	require.NoError(t, m.SetBranchHead(ctx, repo.DefaultBranchID, c1.ID))

	feature, err := m.CreateBranch(ctx, repo.ID, "feature", "")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, feature.HeadCommitID)
}

func TestMemory_CreateBranch_DuplicateNameInRepository(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	repo, err := m.CreateRepository(ctx, "r1")
	require.NoError(t, err)

	_, err = m.CreateBranch(ctx, repo.ID, "main", "")
	assert.ErrorIs(t, err, domain.ErrDuplicateName)
}

func TestMemory_AddFileEntry_NormalisesPathAndSymlinkTarget(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	repo, err := m.CreateRepository(ctx, "r1")
	require.NoError(t, err)
	c1, err := m.CreateCommit(ctx, repo.ID, "", "", "init")
	require.NoError(t, err)

	content := "hello"
	entry, err := m.AddFileEntry(ctx, c1.ID, "//src//main.ts/", &content, false, false)
	require.NoError(t, err)
	assert.Equal(t, "/src/main.ts", entry.Path)

	target := "target.txt"
	link, err := m.AddFileEntry(ctx, c1.ID, "/link.txt", &target, false, true)
	require.NoError(t, err)
	assert.Equal(t, "/target.txt", *link.Content)
}

func TestMemory_AddFileEntry_TombstoneInvariant(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	repo, err := m.CreateRepository(ctx, "r1")
	require.NoError(t, err)
	c1, err := m.CreateCommit(ctx, repo.ID, "", "", "init")
	require.NoError(t, err)

	content := "oops"
	_, err = m.AddFileEntry(ctx, c1.ID, "/x", &content, true, false)
	assert.ErrorIs(t, err, domain.ErrTombstoneInvariant)
}

func TestMemory_AddFileEntry_UniquePathOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	repo, err := m.CreateRepository(ctx, "r1")
	require.NoError(t, err)
	c1, err := m.CreateCommit(ctx, repo.ID, "", "", "init")
	require.NoError(t, err)

	v1 := "v1"
	_, err = m.AddFileEntry(ctx, c1.ID, "/x", &v1, false, false)
	require.NoError(t, err)

	v2 := "v2"
	_, err = m.AddFileEntry(ctx, c1.ID, "/x", &v2, false, false)
	require.NoError(t, err)

	entries, err := m.ListFileEntries(ctx, c1.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "v2", *entries[0].Content)
}

func TestMemory_WithBranchLock_RunsFn(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	repo, err := m.CreateRepository(ctx, "r1")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_ = m.WithBranchLock(ctx, repo.DefaultBranchID, func() error {
			close(done)
			return nil
		})
	}()
	<-done
}
