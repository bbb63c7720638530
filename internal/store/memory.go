package store

import (
	"context"
	"sync"

	"dagvfs/internal/domain"
)

// Memory is an in-memory Store, guarded by a single mutex in the manner of
// the teacher's SessionManager: a handful of maps behind one RWMutex rather
// than per-entity locks. Each method holds that mutex only for its own
// call; finalize/rebase operations are serialised per branch by
// WithBranchLock, not across the whole engine.
type Memory struct {
	mu sync.RWMutex

	repositories map[domain.ID]*domain.Repository
	branches     map[domain.ID]*domain.Branch
	commits      map[domain.ID]*domain.Commit
	files        map[domain.ID]*domain.FileEntry
	// filesByCommit indexes files by (commit_id, path) for the UNIQUE
	// constraint and by commit_id alone for delta/history scans.
	filesByCommit map[domain.ID]map[string]domain.ID

	branchLocks map[domain.ID]*sync.Mutex
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		repositories:  make(map[domain.ID]*domain.Repository),
		branches:      make(map[domain.ID]*domain.Branch),
		commits:       make(map[domain.ID]*domain.Commit),
		files:         make(map[domain.ID]*domain.FileEntry),
		filesByCommit: make(map[domain.ID]map[string]domain.ID),
		branchLocks:   make(map[domain.ID]*sync.Mutex),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateRepository(ctx context.Context, name string) (*domain.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.repositories {
		if r.Name == name {
			return nil, domain.ErrDuplicateName
		}
	}

	repo := &domain.Repository{
		ID:        domain.NewID(),
		Name:      name,
		CreatedAt: now(),
	}
	branch := &domain.Branch{
		ID:           domain.NewID(),
		RepositoryID: repo.ID,
		Name:         "main",
		CreatedAt:    now(),
	}
	repo.DefaultBranchID = branch.ID

	m.repositories[repo.ID] = repo
	m.branches[branch.ID] = branch
	return cloneRepository(repo), nil
}

func (m *Memory) GetRepository(ctx context.Context, id domain.ID) (*domain.Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.repositories[id]
	if !ok {
		return nil, domain.ErrRepositoryNotFound
	}
	return cloneRepository(r), nil
}

func (m *Memory) CreateBranch(ctx context.Context, repositoryID domain.ID, name string, headCommitID domain.ID) (*domain.Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	repo, ok := m.repositories[repositoryID]
	if !ok {
		return nil, domain.ErrRepositoryNotFound
	}

	for _, b := range m.branches {
		if b.RepositoryID == repositoryID && b.Name == name {
			return nil, domain.ErrDuplicateName
		}
	}

	if !headCommitID.Empty() {
		c, ok := m.commits[headCommitID]
		if !ok || c.RepositoryID != repositoryID {
			return nil, domain.ErrCommitNotFound
		}
	} else if defBranch, ok := m.branches[repo.DefaultBranchID]; ok {
		// spec §4.2: a null head_commit_id defaults to the repository's
		// current default-branch head (which may itself be null).
		headCommitID = defBranch.HeadCommitID
	}

	branch := &domain.Branch{
		ID:           domain.NewID(),
		RepositoryID: repositoryID,
		Name:         name,
		HeadCommitID: headCommitID,
		CreatedAt:    now(),
	}
	m.branches[branch.ID] = branch
	m.branchLocks[branch.ID] = &sync.Mutex{}
	return cloneBranch(branch), nil
}

func (m *Memory) GetBranch(ctx context.Context, id domain.ID) (*domain.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.branches[id]
	if !ok {
		return nil, domain.ErrBranchNotFound
	}
	return cloneBranch(b), nil
}

func (m *Memory) GetBranchByName(ctx context.Context, repositoryID domain.ID, name string) (*domain.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.branches {
		if b.RepositoryID == repositoryID && b.Name == name {
			return cloneBranch(b), nil
		}
	}
	return nil, domain.ErrBranchNotFound
}

func (m *Memory) WithBranchLock(ctx context.Context, branchID domain.ID, fn func() error) error {
	m.mu.Lock()
	lock, ok := m.branchLocks[branchID]
	if !ok {
		lock = &sync.Mutex{}
		m.branchLocks[branchID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}

func (m *Memory) SetBranchHead(ctx context.Context, branchID domain.ID, commitID domain.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.branches[branchID]
	if !ok {
		return domain.ErrBranchNotFound
	}
	if !commitID.Empty() {
		c, ok := m.commits[commitID]
		if !ok || c.RepositoryID != b.RepositoryID {
			return domain.ErrCommitNotFound
		}
	}
	b.HeadCommitID = commitID
	return nil
}

func (m *Memory) CreateCommit(ctx context.Context, repositoryID, parentCommitID, mergedFromCommitID domain.ID, message string) (*domain.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.repositories[repositoryID]; !ok {
		return nil, domain.ErrRepositoryNotFound
	}
	if !parentCommitID.Empty() {
		p, ok := m.commits[parentCommitID]
		if !ok || p.RepositoryID != repositoryID {
			return nil, domain.ErrCommitNotFound
		}
	}
	if !mergedFromCommitID.Empty() {
		p, ok := m.commits[mergedFromCommitID]
		if !ok || p.RepositoryID != repositoryID {
			return nil, domain.ErrCommitNotFound
		}
	}

	c := &domain.Commit{
		ID:                 domain.NewID(),
		RepositoryID:       repositoryID,
		ParentCommitID:     parentCommitID,
		MergedFromCommitID: mergedFromCommitID,
		Message:            message,
		CreatedAt:          now(),
	}
	m.commits[c.ID] = c
	m.filesByCommit[c.ID] = make(map[string]domain.ID)
	return cloneCommit(c), nil
}

func (m *Memory) GetCommit(ctx context.Context, id domain.ID) (*domain.Commit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.commits[id]
	if !ok {
		return nil, domain.ErrCommitNotFound
	}
	return cloneCommit(c), nil
}

func (m *Memory) AddFileEntry(ctx context.Context, commitID domain.ID, path string, content *string, isDeleted, isSymlink bool) (*domain.FileEntry, error) {
	normPath, normContent, err := enforceFileInvariants(path, content, isDeleted, isSymlink)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.commits[commitID]; !ok {
		return nil, domain.ErrCommitNotFound
	}
	byPath, ok := m.filesByCommit[commitID]
	if !ok {
		byPath = make(map[string]domain.ID)
		m.filesByCommit[commitID] = byPath
	}

	entry := &domain.FileEntry{
		ID:        domain.NewID(),
		CommitID:  commitID,
		Path:      normPath,
		Content:   normContent,
		IsDeleted: isDeleted,
		IsSymlink: isSymlink,
		CreatedAt: now(),
	}

	if existingID, ok := byPath[normPath]; ok {
		// (commit_id, path) is unique: treat a repeat add as an update,
		// matching "file entries may continue to be added to a commit up
		// until finalisation" (spec §3).
		entry.ID = existingID
		m.files[existingID] = entry
		return cloneFileEntry(entry), nil
	}

	m.files[entry.ID] = entry
	byPath[normPath] = entry.ID
	return cloneFileEntry(entry), nil
}

func (m *Memory) ListFileEntries(ctx context.Context, commitID domain.ID) ([]domain.FileEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byPath, ok := m.filesByCommit[commitID]
	if !ok {
		if _, ok := m.commits[commitID]; !ok {
			return nil, domain.ErrCommitNotFound
		}
		return nil, nil
	}

	out := make([]domain.FileEntry, 0, len(byPath))
	for _, id := range byPath {
		out = append(out, *cloneFileEntry(m.files[id]))
	}
	return out, nil
}

func (m *Memory) GetFileEntry(ctx context.Context, commitID domain.ID, normalizedPath string) (*domain.FileEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byPath, ok := m.filesByCommit[commitID]
	if !ok {
		return nil, false, nil
	}
	id, ok := byPath[normalizedPath]
	if !ok {
		return nil, false, nil
	}
	return cloneFileEntry(m.files[id]), true, nil
}

func cloneRepository(r *domain.Repository) *domain.Repository {
	cp := *r
	return &cp
}

func cloneBranch(b *domain.Branch) *domain.Branch {
	cp := *b
	return &cp
}

func cloneCommit(c *domain.Commit) *domain.Commit {
	cp := *c
	return &cp
}

func cloneFileEntry(f *domain.FileEntry) *domain.FileEntry {
	cp := *f
	if f.Content != nil {
		content := *f.Content
		cp.Content = &content
	}
	return &cp
}
