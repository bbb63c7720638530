// Package main demonstrates the dagvfs commit DAG engine.
//
// This example shows:
// - Writing files into commits and reading them back through ancestry
// - Tombstones masking ancestor content
// - Branching, a non-conflicting merge, and finalisation
// - A conflicting merge blocked until the caller supplies a resolution
// - A linear rebase of a diverged branch
//
// Run with: go run ./cmd/demo
package main

import (
	"context"
	"fmt"
	"log"

	"dagvfs"
	"dagvfs/internal/store"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	green  = "\033[32m"
	yellow = "\033[33m"
	red    = "\033[31m"
	cyan   = "\033[36m"
)

func main() {
	ctx := context.Background()
	engine := dagvfs.NewEngine(store.NewMemory())

	printHeader("dagvfs demo")

	repo, err := engine.CreateRepository(ctx, "docs")
	if err != nil {
		log.Fatalf("create repository: %v", err)
	}
	fmt.Printf("Created repository %s%s%s (default branch %s)\n\n", cyan, repo.Name, reset, repo.DefaultBranchID)

	printStep(1, "Write and read")
	c0, err := engine.CreateCommit(ctx, repo.ID, "", "", "init")
	if err != nil {
		log.Fatalf("create commit: %v", err)
	}
	mustWrite(ctx, engine, c0.ID, "/README.md", "hello")
	content := readOrFatal(ctx, engine, c0.ID, "/README.md")
	fmt.Printf("   read_file(c0, /README.md) = %s%s%s\n\n", green, content, reset)

	printStep(2, "Tombstone masking")
	c1, err := engine.CreateCommit(ctx, repo.ID, c0.ID, "", "remove readme")
	if err != nil {
		log.Fatalf("create commit: %v", err)
	}
	if _, err := engine.AddFileEntry(ctx, c1.ID, "/README.md", nil, true, false); err != nil {
		log.Fatalf("tombstone: %v", err)
	}
	state, err := engine.ReadFile(ctx, c1.ID, "/README.md")
	if err != nil {
		log.Fatalf("read_file: %v", err)
	}
	fmt.Printf("   read_file(c1, /README.md) found = %s%v%s\n\n", red, state.Found, reset)

	printStep(3, "Branch and non-conflicting merge")
	mainBranch, err := engine.GetBranch(ctx, repo.DefaultBranchID)
	if err != nil {
		log.Fatalf("get branch: %v", err)
	}
	if _, err := engine.FinalizeCommit(ctx, c0.ID, mainBranch.ID); err != nil {
		log.Fatalf("finalize_commit(c0): %v", err)
	}

	feature, err := engine.CreateBranch(ctx, repo.ID, "feature", c0.ID)
	if err != nil {
		log.Fatalf("create branch: %v", err)
	}

	mainTip, err := engine.CreateCommit(ctx, repo.ID, c0.ID, "", "main adds main.txt")
	if err != nil {
		log.Fatalf("create commit: %v", err)
	}
	mustWrite(ctx, engine, mainTip.ID, "/main.txt", "from main")

	featureTip, err := engine.CreateCommit(ctx, repo.ID, c0.ID, "", "feature adds feature.txt")
	if err != nil {
		log.Fatalf("create commit: %v", err)
	}
	mustWrite(ctx, engine, featureTip.ID, "/feature.txt", "from feature")

	if err := advanceBranchForDemo(ctx, engine, mainBranch.ID, mainTip.ID); err != nil {
		log.Fatalf("advance: %v", err)
	}
	if err := advanceBranchForDemo(ctx, engine, feature.ID, featureTip.ID); err != nil {
		log.Fatalf("advance: %v", err)
	}

	merge, err := engine.CreateCommit(ctx, repo.ID, mainTip.ID, featureTip.ID, "merge feature")
	if err != nil {
		log.Fatalf("create commit: %v", err)
	}
	result, err := engine.FinalizeCommit(ctx, merge.ID, mainBranch.ID)
	if err != nil {
		log.Fatalf("finalize_commit: %v", err)
	}
	fmt.Printf("   finalize_commit -> operation=%s%s%s applied_file_count=%d\n\n",
		yellow, result.Operation, reset, result.AppliedFileCount)

	printStep(4, "Conflicting merge blocked, then resolved")
	base, err := engine.CreateCommit(ctx, repo.ID, "", "", "conflict base")
	if err != nil {
		log.Fatalf("create commit: %v", err)
	}
	mustWrite(ctx, engine, base.ID, "/same.txt", "base")

	left, err := engine.CreateCommit(ctx, repo.ID, base.ID, "", "left change")
	if err != nil {
		log.Fatalf("create commit: %v", err)
	}
	mustWrite(ctx, engine, left.ID, "/same.txt", "left")

	right, err := engine.CreateCommit(ctx, repo.ID, base.ID, "", "right change")
	if err != nil {
		log.Fatalf("create commit: %v", err)
	}
	mustWrite(ctx, engine, right.ID, "/same.txt", "right")

	branch2, err := engine.CreateBranch(ctx, repo.ID, "conflict-demo", left.ID)
	if err != nil {
		log.Fatalf("create branch: %v", err)
	}
	conflictMerge, err := engine.CreateCommit(ctx, repo.ID, left.ID, right.ID, "merge with conflict")
	if err != nil {
		log.Fatalf("create commit: %v", err)
	}
	if _, err := engine.FinalizeCommit(ctx, conflictMerge.ID, branch2.ID); err != nil {
		fmt.Printf("   %sblocked%s: %v\n", red, reset, err)
	}
	mustWrite(ctx, engine, conflictMerge.ID, "/same.txt", "resolved")
	resolvedResult, err := engine.FinalizeCommit(ctx, conflictMerge.ID, branch2.ID)
	if err != nil {
		log.Fatalf("finalize_commit after resolution: %v", err)
	}
	fmt.Printf("   after resolution -> operation=%s%s%s\n\n", green, resolvedResult.Operation, reset)

	printStep(5, "Linear rebase")
	rebaseResult, err := engine.RebaseBranch(ctx, feature.ID, mainBranch.ID, "rebase feature onto main")
	if err != nil {
		log.Fatalf("rebase_branch: %v", err)
	}
	fmt.Printf("   rebase_branch -> operation=%s%s%s applied_file_count=%d\n",
		yellow, rebaseResult.Operation, reset, rebaseResult.AppliedFileCount)
}

func mustWrite(ctx context.Context, e *dagvfs.Engine, commitID dagvfs.ID, path, content string) {
	if _, err := e.AddFileEntry(ctx, commitID, path, &content, false, false); err != nil {
		log.Fatalf("add_file_entry(%s): %v", path, err)
	}
}

func readOrFatal(ctx context.Context, e *dagvfs.Engine, commitID dagvfs.ID, path string) string {
	state, err := e.ReadFile(ctx, commitID, path)
	if err != nil {
		log.Fatalf("read_file(%s): %v", path, err)
	}
	if !state.Found {
		return "<not found>"
	}
	return *state.Content
}

// advanceBranchForDemo is a thin convenience wrapper for this walkthrough;
// a real caller advances branch heads via finalize_commit/rebase_branch,
// but the demo needs to seed both branches before the merge step.
func advanceBranchForDemo(ctx context.Context, e *dagvfs.Engine, branchID, commitID dagvfs.ID) error {
	branch, err := e.GetBranch(ctx, branchID)
	if err != nil {
		return err
	}
	parent, err := e.GetCommit(ctx, commitID)
	if err != nil {
		return err
	}
	if branch.HeadCommitID != parent.ParentCommitID {
		return fmt.Errorf("demo setup assumption violated for branch %s", branchID)
	}
	_, err = e.FinalizeCommit(ctx, commitID, branchID)
	return err
}

func printHeader(title string) {
	fmt.Printf("%s%s%s\n\n", bold, title, reset)
}

func printStep(n int, title string) {
	fmt.Printf("%s%d. %s%s\n", bold, n, title, reset)
}
