package dagvfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dagvfs/internal/domain"
	"dagvfs/internal/store"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(store.NewMemory())
}

func write(t *testing.T, e *Engine, commitID domain.ID, path, content string) {
	t.Helper()
	_, err := e.AddFileEntry(context.Background(), commitID, path, &content, false, false)
	require.NoError(t, err)
}

// Scenario 1: basic write/read.
func TestScenario_BasicWriteRead(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	repo, err := e.CreateRepository(ctx, "r")
	require.NoError(t, err)

	c0, err := e.CreateCommit(ctx, repo.ID, "", "", "init")
	require.NoError(t, err)
	write(t, e, c0.ID, "/test.txt", "Hello World")

	state, err := e.ReadFile(ctx, c0.ID, "/test.txt")
	require.NoError(t, err)
	require.True(t, state.Found)
	assert.Equal(t, "Hello World", *state.Content)
}

// Scenario 2: cascade read.
func TestScenario_CascadeRead(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	repo, err := e.CreateRepository(ctx, "r")
	require.NoError(t, err)

	c1, err := e.CreateCommit(ctx, repo.ID, "", "", "c1")
	require.NoError(t, err)
	write(t, e, c1.ID, "/persistent.txt", "v1")

	c2, err := e.CreateCommit(ctx, repo.ID, c1.ID, "", "c2")
	require.NoError(t, err)

	s1, err := e.ReadFile(ctx, c1.ID, "/persistent.txt")
	require.NoError(t, err)
	s2, err := e.ReadFile(ctx, c2.ID, "/persistent.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1", *s1.Content)
	assert.Equal(t, "v1", *s2.Content)

	write(t, e, c2.ID, "/persistent.txt", "v2")

	s1again, err := e.ReadFile(ctx, c1.ID, "/persistent.txt")
	require.NoError(t, err)
	s2again, err := e.ReadFile(ctx, c2.ID, "/persistent.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1", *s1again.Content)
	assert.Equal(t, "v2", *s2again.Content)
}

// Scenario 3: tombstone.
func TestScenario_Tombstone(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	repo, err := e.CreateRepository(ctx, "r")
	require.NoError(t, err)

	c1, err := e.CreateCommit(ctx, repo.ID, "", "", "c1")
	require.NoError(t, err)
	write(t, e, c1.ID, "/x", "hello")

	c2, err := e.CreateCommit(ctx, repo.ID, c1.ID, "", "c2")
	require.NoError(t, err)
	_, err = e.AddFileEntry(ctx, c2.ID, "/x", nil, true, false)
	require.NoError(t, err)

	s1, err := e.ReadFile(ctx, c1.ID, "/x")
	require.NoError(t, err)
	assert.Equal(t, "hello", *s1.Content)

	s2, err := e.ReadFile(ctx, c2.ID, "/x")
	require.NoError(t, err)
	assert.False(t, s2.Found)

	snap, err := e.GetCommitSnapshot(ctx, c2.ID)
	require.NoError(t, err)
	for _, entry := range snap {
		assert.NotEqual(t, "/x", entry.Path)
	}

	history, err := e.GetFileHistory(ctx, c2.ID, "/x")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

// Scenario 4: path normalisation.
func TestScenario_PathNormalisation(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	repo, err := e.CreateRepository(ctx, "r")
	require.NoError(t, err)
	c1, err := e.CreateCommit(ctx, repo.ID, "", "", "c1")
	require.NoError(t, err)

	content := "x"
	entry, err := e.AddFileEntry(ctx, c1.ID, "//src//main.ts/", &content, false, false)
	require.NoError(t, err)
	assert.Equal(t, "/src/main.ts", entry.Path)

	target := "target.txt"
	link, err := e.AddFileEntry(ctx, c1.ID, "/link.txt", &target, false, true)
	require.NoError(t, err)
	assert.Equal(t, "/target.txt", *link.Content)
}

// Scenario 5: merge-base diverged.
func TestScenario_MergeBaseDiverged(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	repo, err := e.CreateRepository(ctx, "r")
	require.NoError(t, err)

	root, err := e.CreateCommit(ctx, repo.ID, "", "", "root")
	require.NoError(t, err)
	base, err := e.CreateCommit(ctx, repo.ID, root.ID, "", "base")
	require.NoError(t, err)
	m1, err := e.CreateCommit(ctx, repo.ID, base.ID, "", "m1")
	require.NoError(t, err)
	f1, err := e.CreateCommit(ctx, repo.ID, base.ID, "", "f1")
	require.NoError(t, err)

	mb, err := e.GetMergeBase(ctx, m1.ID, f1.ID)
	require.NoError(t, err)
	assert.Equal(t, base.ID, mb)
}

// Scenario 6: conflict classification.
func TestScenario_ConflictClassification(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	repo, err := e.CreateRepository(ctx, "r")
	require.NoError(t, err)

	base, err := e.CreateCommit(ctx, repo.ID, "", "", "base")
	require.NoError(t, err)
	write(t, e, base.ID, "/same.txt", "base")

	left, err := e.CreateCommit(ctx, repo.ID, base.ID, "", "left")
	require.NoError(t, err)
	write(t, e, left.ID, "/same.txt", "left")

	right, err := e.CreateCommit(ctx, repo.ID, base.ID, "", "right")
	require.NoError(t, err)
	write(t, e, right.ID, "/same.txt", "right")

	rows, err := e.GetConflicts(ctx, left.ID, right.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, KindModifyModify, rows[0].ConflictKind)
	assert.Equal(t, "base", *rows[0].BaseContent)
	assert.Equal(t, "left", *rows[0].LeftContent)
	assert.Equal(t, "right", *rows[0].RightContent)
}

// Scenario 7: merge finalisation.
func TestScenario_MergeFinalisation(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	repo, err := e.CreateRepository(ctx, "r")
	require.NoError(t, err)

	root, err := e.CreateCommit(ctx, repo.ID, "", "", "root")
	require.NoError(t, err)
	require.NoError(t, e.store.SetBranchHead(ctx, repo.DefaultBranchID, root.ID))

	left, err := e.CreateCommit(ctx, repo.ID, root.ID, "", "left")
	require.NoError(t, err)
	write(t, e, left.ID, "/main.txt", "m")
	require.NoError(t, e.store.SetBranchHead(ctx, repo.DefaultBranchID, left.ID))

	right, err := e.CreateCommit(ctx, repo.ID, root.ID, "", "right")
	require.NoError(t, err)
	write(t, e, right.ID, "/feature.txt", "f")

	merge, err := e.CreateCommit(ctx, repo.ID, left.ID, right.ID, "merge")
	require.NoError(t, err)

	res, err := e.FinalizeCommit(ctx, merge.ID, repo.DefaultBranchID)
	require.NoError(t, err)
	assert.Equal(t, FinalizeOperation("merged"), res.Operation)
	assert.Equal(t, 1, res.AppliedFileCount)

	branch, err := e.GetBranch(ctx, repo.DefaultBranchID)
	require.NoError(t, err)
	assert.Equal(t, merge.ID, branch.HeadCommitID)

	snap, err := e.GetCommitSnapshot(ctx, merge.ID)
	require.NoError(t, err)
	paths := map[string]bool{}
	for _, s := range snap {
		paths[s.Path] = true
	}
	assert.True(t, paths["/main.txt"])
	assert.True(t, paths["/feature.txt"])
}

// Scenario 8: merge blocked without resolution, then resolved.
func TestScenario_MergeBlockedThenResolved(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	repo, err := e.CreateRepository(ctx, "r")
	require.NoError(t, err)

	root, err := e.CreateCommit(ctx, repo.ID, "", "", "root")
	require.NoError(t, err)
	write(t, e, root.ID, "/same.txt", "base")
	require.NoError(t, e.store.SetBranchHead(ctx, repo.DefaultBranchID, root.ID))

	left, err := e.CreateCommit(ctx, repo.ID, root.ID, "", "left")
	require.NoError(t, err)
	write(t, e, left.ID, "/same.txt", "left-change")
	require.NoError(t, e.store.SetBranchHead(ctx, repo.DefaultBranchID, left.ID))

	right, err := e.CreateCommit(ctx, repo.ID, root.ID, "", "right")
	require.NoError(t, err)
	write(t, e, right.ID, "/same.txt", "right-change")

	merge, err := e.CreateCommit(ctx, repo.ID, left.ID, right.ID, "merge")
	require.NoError(t, err)

	_, err = e.FinalizeCommit(ctx, merge.ID, repo.DefaultBranchID)
	require.Error(t, err)

	branch, err := e.GetBranch(ctx, repo.DefaultBranchID)
	require.NoError(t, err)
	assert.Equal(t, left.ID, branch.HeadCommitID)

	write(t, e, merge.ID, "/same.txt", "resolved")
	res, err := e.FinalizeCommit(ctx, merge.ID, repo.DefaultBranchID)
	require.NoError(t, err)
	assert.Equal(t, FinalizeOperation("merged_with_conflicts_resolved"), res.Operation)

	state, err := e.ReadFile(ctx, merge.ID, "/same.txt")
	require.NoError(t, err)
	assert.Equal(t, "resolved", *state.Content)
}

// Scenario 9: fast-forward rebase.
func TestScenario_FastForwardRebase(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	repo, err := e.CreateRepository(ctx, "r")
	require.NoError(t, err)

	base, err := e.CreateCommit(ctx, repo.ID, "", "", "base")
	require.NoError(t, err)
	feature, err := e.CreateBranch(ctx, repo.ID, "feature", base.ID)
	require.NoError(t, err)

	m1, err := e.CreateCommit(ctx, repo.ID, base.ID, "", "m1")
	require.NoError(t, err)
	require.NoError(t, e.store.SetBranchHead(ctx, repo.DefaultBranchID, m1.ID))

	res, err := e.RebaseBranch(ctx, feature.ID, repo.DefaultBranchID, "")
	require.NoError(t, err)
	assert.Equal(t, RebaseOperation("fast_forward"), res.Operation)

	refreshed, err := e.GetBranch(ctx, feature.ID)
	require.NoError(t, err)
	assert.Equal(t, m1.ID, refreshed.HeadCommitID)
}

// Scenario 10: linear rebase diverged, no conflict.
func TestScenario_LinearRebaseDiverged(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	repo, err := e.CreateRepository(ctx, "r")
	require.NoError(t, err)

	base, err := e.CreateCommit(ctx, repo.ID, "", "", "base")
	require.NoError(t, err)
	feature, err := e.CreateBranch(ctx, repo.ID, "feature", base.ID)
	require.NoError(t, err)

	featureCommit, err := e.CreateCommit(ctx, repo.ID, base.ID, "", "feature")
	require.NoError(t, err)
	write(t, e, featureCommit.ID, "/feature.txt", "f")
	require.NoError(t, e.store.SetBranchHead(ctx, feature.ID, featureCommit.ID))

	mainCommit, err := e.CreateCommit(ctx, repo.ID, base.ID, "", "main")
	require.NoError(t, err)
	write(t, e, mainCommit.ID, "/main.txt", "m")
	require.NoError(t, e.store.SetBranchHead(ctx, repo.DefaultBranchID, mainCommit.ID))

	res, err := e.RebaseBranch(ctx, feature.ID, repo.DefaultBranchID, "rebase")
	require.NoError(t, err)
	assert.Equal(t, RebaseOperation("rebased"), res.Operation)
	assert.Equal(t, 1, res.AppliedFileCount)

	snap, err := e.GetCommitSnapshot(ctx, res.NewBranchHeadCommitID)
	require.NoError(t, err)
	paths := map[string]bool{}
	for _, s := range snap {
		paths[s.Path] = true
	}
	assert.True(t, paths["/feature.txt"])
	assert.True(t, paths["/main.txt"])
}

// Scenario 11: rebase conflict.
func TestScenario_RebaseConflict(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	repo, err := e.CreateRepository(ctx, "r")
	require.NoError(t, err)

	base, err := e.CreateCommit(ctx, repo.ID, "", "", "base")
	require.NoError(t, err)
	write(t, e, base.ID, "/same.txt", "base")
	feature, err := e.CreateBranch(ctx, repo.ID, "feature", base.ID)
	require.NoError(t, err)

	featureCommit, err := e.CreateCommit(ctx, repo.ID, base.ID, "", "feature")
	require.NoError(t, err)
	write(t, e, featureCommit.ID, "/same.txt", "feature-version")
	require.NoError(t, e.store.SetBranchHead(ctx, feature.ID, featureCommit.ID))

	mainCommit, err := e.CreateCommit(ctx, repo.ID, base.ID, "", "main")
	require.NoError(t, err)
	write(t, e, mainCommit.ID, "/same.txt", "main-version")
	require.NoError(t, e.store.SetBranchHead(ctx, repo.DefaultBranchID, mainCommit.ID))

	_, err = e.RebaseBranch(ctx, feature.ID, repo.DefaultBranchID, "rebase")
	require.Error(t, err)

	refreshed, err := e.GetBranch(ctx, feature.ID)
	require.NoError(t, err)
	assert.Equal(t, featureCommit.ID, refreshed.HeadCommitID)
}
