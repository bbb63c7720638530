package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"dagvfs/internal/config"
	"dagvfs/internal/domain"
)

// SQLStore is a database/sql-backed Store, satisfying spec §2's "embedded
// SQL-like query layer" line with the pure-Go modernc.org/sqlite driver.
// Grounded on the repository idiom of arx-os-arxos's
// internal/infrastructure/postgis/branch_repo.go: parameterised queries,
// explicit sql.NullString scans, one *sql.DB shared across calls.
type SQLStore struct {
	db *sql.DB

	// branchLocks emulates spec §5's per-branch row lock: SQLite's default
	// single-writer transaction model already serialises writers, but a
	// distinct branch lock avoids blocking unrelated branches on each
	// other while a multi-statement finalize/rebase runs.
	mu          sync.Mutex
	branchLocks map[domain.ID]*sync.Mutex
}

// OpenSQLite opens (creating if absent) a SQLite-backed store at dsn, e.g.
// "file:dagvfs.db?_pragma=busy_timeout(5000)" or ":memory:".
func OpenSQLite(dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLStore{db: db, branchLocks: make(map[domain.ID]*sync.Mutex)}, nil
}

// OpenSQLiteFromConfig opens a SQLite-backed store using cfg's SQLiteDSN
// and SQLiteBusyTimeout (e.g. config.Global), appending a busy_timeout
// pragma so concurrent finalize/rebase calls block briefly on SQLite's
// single-writer lock instead of failing immediately with SQLITE_BUSY.
func OpenSQLiteFromConfig(cfg *config.Config) (*SQLStore, error) {
	dsn := cfg.SQLiteDSN
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn = fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dsn, sep, cfg.SQLiteBusyTimeout.Milliseconds())
	return OpenSQLite(dsn)
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) CreateRepository(ctx context.Context, name string) (*domain.Repository, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	repo := &domain.Repository{ID: domain.NewID(), Name: name, CreatedAt: now()}
	branch := &domain.Branch{ID: domain.NewID(), RepositoryID: repo.ID, Name: "main", CreatedAt: now()}
	repo.DefaultBranchID = branch.ID

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO repositories (id, name, default_branch_id, created_at) VALUES (?, ?, ?, ?)`,
		string(repo.ID), repo.Name, string(repo.DefaultBranchID), repo.CreatedAt); err != nil {
		return nil, wrapUniqueErr(err, domain.ErrDuplicateName)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO branches (id, repository_id, name, head_commit_id, created_at) VALUES (?, ?, ?, NULL, ?)`,
		string(branch.ID), string(branch.RepositoryID), branch.Name, branch.CreatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (s *SQLStore) GetRepository(ctx context.Context, id domain.ID) (*domain.Repository, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, default_branch_id, created_at FROM repositories WHERE id = ?`, string(id))
	repo := &domain.Repository{}
	var defBranch sql.NullString
	if err := row.Scan(&repo.ID, &repo.Name, &defBranch, &repo.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRepositoryNotFound
		}
		return nil, err
	}
	if defBranch.Valid {
		repo.DefaultBranchID = domain.ID(defBranch.String)
	}
	return repo, nil
}

func (s *SQLStore) CreateBranch(ctx context.Context, repositoryID domain.ID, name string, headCommitID domain.ID) (*domain.Branch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	repo, err := s.getRepositoryTx(ctx, tx, repositoryID)
	if err != nil {
		return nil, err
	}

	if headCommitID.Empty() && !repo.DefaultBranchID.Empty() {
		defHead, err := s.branchHeadTx(ctx, tx, repo.DefaultBranchID)
		if err != nil {
			return nil, err
		}
		headCommitID = defHead
	}

	branch := &domain.Branch{
		ID:           domain.NewID(),
		RepositoryID: repositoryID,
		Name:         name,
		HeadCommitID: headCommitID,
		CreatedAt:    now(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO branches (id, repository_id, name, head_commit_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(branch.ID), string(branch.RepositoryID), branch.Name, nullableID(branch.HeadCommitID), branch.CreatedAt); err != nil {
		return nil, wrapUniqueErr(err, domain.ErrDuplicateName)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return branch, nil
}

func (s *SQLStore) GetBranch(ctx context.Context, id domain.ID) (*domain.Branch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, repository_id, name, head_commit_id, created_at FROM branches WHERE id = ?`, string(id))
	return scanBranch(row)
}

func (s *SQLStore) GetBranchByName(ctx context.Context, repositoryID domain.ID, name string) (*domain.Branch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, repository_id, name, head_commit_id, created_at FROM branches WHERE repository_id = ? AND name = ?`,
		string(repositoryID), name)
	return scanBranch(row)
}

func (s *SQLStore) WithBranchLock(ctx context.Context, branchID domain.ID, fn func() error) error {
	s.mu.Lock()
	lock, ok := s.branchLocks[branchID]
	if !ok {
		lock = &sync.Mutex{}
		s.branchLocks[branchID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}

func (s *SQLStore) SetBranchHead(ctx context.Context, branchID domain.ID, commitID domain.ID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE branches SET head_commit_id = ? WHERE id = ?`,
		nullableID(commitID), string(branchID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrBranchNotFound
	}
	return nil
}

func (s *SQLStore) CreateCommit(ctx context.Context, repositoryID, parentCommitID, mergedFromCommitID domain.ID, message string) (*domain.Commit, error) {
	c := &domain.Commit{
		ID:                 domain.NewID(),
		RepositoryID:       repositoryID,
		ParentCommitID:     parentCommitID,
		MergedFromCommitID: mergedFromCommitID,
		Message:            message,
		CreatedAt:          now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commits (id, repository_id, parent_commit_id, merged_from_commit_id, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(c.ID), string(c.RepositoryID), nullableID(c.ParentCommitID), nullableID(c.MergedFromCommitID), c.Message, c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLStore) GetCommit(ctx context.Context, id domain.ID) (*domain.Commit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, repository_id, parent_commit_id, merged_from_commit_id, message, created_at FROM commits WHERE id = ?`,
		string(id))
	return scanCommit(row)
}

func (s *SQLStore) AddFileEntry(ctx context.Context, commitID domain.ID, path string, content *string, isDeleted, isSymlink bool) (*domain.FileEntry, error) {
	normPath, normContent, err := enforceFileInvariants(path, content, isDeleted, isSymlink)
	if err != nil {
		return nil, err
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO files (id, commit_id, path, content, is_deleted, is_symlink, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(commit_id, path) DO UPDATE SET
			content = excluded.content,
			is_deleted = excluded.is_deleted,
			is_symlink = excluded.is_symlink,
			created_at = excluded.created_at`,
		string(entry.ID), string(entry.CommitID), entry.Path, nullableContent(entry.Content), entry.IsDeleted, entry.IsSymlink, entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	return s.GetFileEntryExact(ctx, commitID, normPath)
}

// GetFileEntryExact re-reads an entry after an upsert, since an ON CONFLICT
// UPDATE keeps the original row id rather than entry.ID.
func (s *SQLStore) GetFileEntryExact(ctx context.Context, commitID domain.ID, path string) (*domain.FileEntry, error) {
	e, ok, err := s.GetFileEntry(ctx, commitID, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrCommitNotFound
	}
	return e, nil
}

func (s *SQLStore) ListFileEntries(ctx context.Context, commitID domain.ID) ([]domain.FileEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, commit_id, path, content, is_deleted, is_symlink, created_at FROM files WHERE commit_id = ?`,
		string(commitID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FileEntry
	for rows.Next() {
		e, err := scanFileEntryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetFileEntry(ctx context.Context, commitID domain.ID, normalizedPath string) (*domain.FileEntry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, commit_id, path, content, is_deleted, is_symlink, created_at FROM files WHERE commit_id = ? AND path = ?`,
		string(commitID), normalizedPath)
	e, err := scanFileEntryRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return e, true, nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranch(row rowScanner) (*domain.Branch, error) {
	b := &domain.Branch{}
	var head sql.NullString
	if err := row.Scan(&b.ID, &b.RepositoryID, &b.Name, &head, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBranchNotFound
		}
		return nil, err
	}
	if head.Valid {
		b.HeadCommitID = domain.ID(head.String)
	}
	return b, nil
}

func scanCommit(row rowScanner) (*domain.Commit, error) {
	c := &domain.Commit{}
	var parent, mergedFrom sql.NullString
	if err := row.Scan(&c.ID, &c.RepositoryID, &parent, &mergedFrom, &c.Message, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCommitNotFound
		}
		return nil, err
	}
	if parent.Valid {
		c.ParentCommitID = domain.ID(parent.String)
	}
	if mergedFrom.Valid {
		c.MergedFromCommitID = domain.ID(mergedFrom.String)
	}
	return c, nil
}

func scanFileEntryRow(row rowScanner) (*domain.FileEntry, error) {
	e := &domain.FileEntry{}
	var content sql.NullString
	if err := row.Scan(&e.ID, &e.CommitID, &e.Path, &content, &e.IsDeleted, &e.IsSymlink, &e.CreatedAt); err != nil {
		return nil, err
	}
	if content.Valid {
		v := content.String
		e.Content = &v
	}
	return e, nil
}

func (s *SQLStore) getRepositoryTx(ctx context.Context, tx *sql.Tx, id domain.ID) (*domain.Repository, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, name, default_branch_id, created_at FROM repositories WHERE id = ?`, string(id))
	repo := &domain.Repository{}
	var defBranch sql.NullString
	if err := row.Scan(&repo.ID, &repo.Name, &defBranch, &repo.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRepositoryNotFound
		}
		return nil, err
	}
	if defBranch.Valid {
		repo.DefaultBranchID = domain.ID(defBranch.String)
	}
	return repo, nil
}

func (s *SQLStore) branchHeadTx(ctx context.Context, tx *sql.Tx, branchID domain.ID) (domain.ID, error) {
	row := tx.QueryRowContext(ctx, `SELECT head_commit_id FROM branches WHERE id = ?`, string(branchID))
	var head sql.NullString
	if err := row.Scan(&head); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrBranchNotFound
		}
		return "", err
	}
	if head.Valid {
		return domain.ID(head.String), nil
	}
	return "", nil
}

func nullableID(id domain.ID) any {
	if id.Empty() {
		return nil
	}
	return string(id)
}

func nullableContent(content *string) any {
	if content == nil {
		return nil
	}
	return *content
}

func wrapUniqueErr(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	// modernc.org/sqlite surfaces constraint violations with "UNIQUE
	// constraint failed" in the error text rather than a typed error value.
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return sentinel
	}
	return err
}
