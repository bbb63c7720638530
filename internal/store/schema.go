package store

// schema declares the relational layout of spec §6: repositories,
// branches, commits, and files, with the referential and uniqueness
// constraints spec §3/§4.2 calls for. Modelled on the CREATE TABLE IF NOT
// EXISTS / UNIQUE(...) style of ishaan812-devlog's internal/db/schema.go
// and steveyegge-beads's sqlite schema.
//
// Normalisation and default-branch/default-head wiring are NOT expressed
// as SQL triggers here (SQLite's trigger dialect cannot host the
// host-language path normaliser); they are enforced by the Go layer in
// store.go and sqlite.go before a row is written, per spec §9's guidance.
const schema = `
CREATE TABLE IF NOT EXISTS repositories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	default_branch_id TEXT,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS branches (
	id TEXT PRIMARY KEY,
	repository_id TEXT NOT NULL REFERENCES repositories(id),
	name TEXT NOT NULL,
	head_commit_id TEXT,
	created_at DATETIME NOT NULL,
	UNIQUE(repository_id, name)
);

CREATE TABLE IF NOT EXISTS commits (
	id TEXT PRIMARY KEY,
	repository_id TEXT NOT NULL REFERENCES repositories(id),
	parent_commit_id TEXT REFERENCES commits(id),
	merged_from_commit_id TEXT REFERENCES commits(id),
	message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_commits_repository ON commits(repository_id);
CREATE INDEX IF NOT EXISTS idx_commits_parent ON commits(parent_commit_id);

CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	commit_id TEXT NOT NULL REFERENCES commits(id),
	path TEXT NOT NULL,
	content TEXT,
	is_deleted BOOLEAN NOT NULL DEFAULT 0,
	is_symlink BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	UNIQUE(commit_id, path)
);

CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
`
