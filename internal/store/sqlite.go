package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/mirrorwell/selftree/internal/model"
	"github.com/mirrorwell/selftree/pkg/apperr"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewID returns a fresh ULID. ULIDs are time-ordered, so sibling insertion
// order and id order agree.
func (s *SQLiteStore) NewID() string {
	return ulid.Make().String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id              TEXT PRIMARY KEY,
		status          TEXT NOT NULL,
		user_name       TEXT NOT NULL DEFAULT '',
		profile         TEXT,
		current_self    TEXT,
		active_branch   TEXT NOT NULL DEFAULT '',
		current_self_id TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nodes (
		id         TEXT NOT NULL,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		tree       TEXT NOT NULL,
		parent_id  TEXT,
		depth      INTEGER NOT NULL,
		payload    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (session_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(session_id, tree, parent_id);

	CREATE TABLE IF NOT EXISTS branches (
		session_id    TEXT NOT NULL REFERENCES sessions(id),
		name          TEXT NOT NULL,
		head_node_id  TEXT NOT NULL,
		parent_branch TEXT,
		created_at    TEXT NOT NULL,
		PRIMARY KEY (session_id, name)
	);

	CREATE TABLE IF NOT EXISTS transcript (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		turn       INTEGER NOT NULL,
		id         TEXT NOT NULL,
		phase      TEXT NOT NULL,
		role       TEXT NOT NULL,
		self_id    TEXT,
		self_name  TEXT,
		branch_name TEXT,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (session_id, turn)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so single operations and
// batches share the same write helpers.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *model.Session) error {
	return s.ApplyBatch(ctx, &Batch{NewSession: sess})
}

func createSession(ctx context.Context, q dbtx, sess *model.Session) error {
	profile, currentSelf, err := marshalSessionBlobs(sess)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO sessions (id, status, user_name, profile, current_self, active_branch, current_self_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Status, sess.UserName, profile, currentSelf,
		sess.ActiveBranch, sess.CurrentSelfID,
		formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, user_name, profile, current_self, active_branch, current_self_id, created_at, updated_at
		 FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("session %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, user_name, profile, current_self, active_branch, current_self_id, created_at, updated_at
		 FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

func updateSession(ctx context.Context, q dbtx, sess *model.Session) error {
	profile, currentSelf, err := marshalSessionBlobs(sess)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		`UPDATE sessions SET status = ?, user_name = ?, profile = ?, current_self = ?,
		        active_branch = ?, current_self_id = ?, updated_at = ?
		 WHERE id = ?`,
		sess.Status, sess.UserName, profile, currentSelf,
		sess.ActiveBranch, sess.CurrentSelfID, formatTime(sess.UpdatedAt), sess.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("session %q not found", sess.ID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Nodes (append-only)
// ---------------------------------------------------------------------------

func (s *SQLiteStore) PutNode(ctx context.Context, n *model.Node) error {
	return s.ApplyBatch(ctx, &Batch{Nodes: []*model.Node{n}})
}

func putNode(ctx context.Context, q dbtx, n *model.Node) error {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM nodes WHERE session_id = ? AND id = ?)`,
		n.SessionID, n.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return apperr.DuplicateID("node id %q already written", n.ID)
	}

	if n.ParentID != "" {
		var parentOK bool
		err := q.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM nodes WHERE session_id = ? AND tree = ? AND id = ?)`,
			n.SessionID, n.Tree, n.ParentID).Scan(&parentOK)
		if err != nil {
			return err
		}
		if !parentOK {
			return apperr.UnknownParent("parent node %q not found", n.ParentID)
		}
	}

	payload, err := marshalPayload(n)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO nodes (id, session_id, tree, parent_id, depth, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.SessionID, n.Tree, nullable(n.ParentID), n.Depth, payload, formatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert node: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetNode(ctx context.Context, sessionID, nodeID string) (*model.Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, tree, parent_id, depth, payload, created_at
		 FROM nodes WHERE session_id = ? AND id = ?`, sessionID, nodeID)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("node %q not found", nodeID)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *SQLiteStore) NodeExists(ctx context.Context, sessionID, nodeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM nodes WHERE session_id = ? AND id = ?)`,
		sessionID, nodeID).Scan(&exists)
	return exists, err
}

func (s *SQLiteStore) ChildrenOf(ctx context.Context, sessionID string, tree model.TreeKind, parentID string) ([]model.Node, error) {
	query := `SELECT id, session_id, tree, parent_id, depth, payload, created_at
	          FROM nodes WHERE session_id = ? AND tree = ? AND parent_id = ? ORDER BY rowid`
	args := []any{sessionID, tree, parentID}
	if parentID == "" {
		query = `SELECT id, session_id, tree, parent_id, depth, payload, created_at
		         FROM nodes WHERE session_id = ? AND tree = ? AND parent_id IS NULL ORDER BY rowid`
		args = []any{sessionID, tree}
	}
	return s.queryNodes(ctx, query, args...)
}

func (s *SQLiteStore) NodesForTree(ctx context.Context, sessionID string, tree model.TreeKind) ([]model.Node, error) {
	return s.queryNodes(ctx,
		`SELECT id, session_id, tree, parent_id, depth, payload, created_at
		 FROM nodes WHERE session_id = ? AND tree = ? ORDER BY rowid`, sessionID, tree)
}

func (s *SQLiteStore) queryNodes(ctx context.Context, query string, args ...any) ([]model.Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// ---------------------------------------------------------------------------
// Branches
// ---------------------------------------------------------------------------

func (s *SQLiteStore) CreateBranch(ctx context.Context, b *model.Branch) error {
	return s.ApplyBatch(ctx, &Batch{Branches: []*model.Branch{b}})
}

func createBranch(ctx context.Context, q dbtx, b *model.Branch) error {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM branches WHERE session_id = ? AND name = ?)`,
		b.SessionID, b.Name).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return apperr.BranchNameCollision("branch %q already exists", b.Name)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO branches (session_id, name, head_node_id, parent_branch, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		b.SessionID, b.Name, b.HeadNodeID, nullable(b.ParentBranch), formatTime(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert branch: %w", err)
	}
	return nil
}

func setBranchHead(ctx context.Context, q dbtx, h BranchHead) error {
	res, err := q.ExecContext(ctx,
		`UPDATE branches SET head_node_id = ? WHERE session_id = ? AND name = ?`,
		h.HeadNodeID, h.SessionID, h.Name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.UnknownBranch("branch %q not found", h.Name)
	}
	return nil
}

func (s *SQLiteStore) GetBranch(ctx context.Context, sessionID, name string) (*model.Branch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, name, head_node_id, parent_branch, created_at
		 FROM branches WHERE session_id = ? AND name = ?`, sessionID, name)
	b, err := scanBranch(row)
	if err == sql.ErrNoRows {
		return nil, apperr.UnknownBranch("branch %q not found", name)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *SQLiteStore) ListBranches(ctx context.Context, sessionID string) ([]model.Branch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, name, head_node_id, parent_branch, created_at
		 FROM branches WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []model.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, *b)
	}
	return branches, rows.Err()
}

// ---------------------------------------------------------------------------
// Transcript (linear, append-only)
// ---------------------------------------------------------------------------

func (s *SQLiteStore) AppendTranscript(ctx context.Context, sessionID string, entries []model.TranscriptEntry) ([]model.TranscriptEntry, error) {
	batch := &Batch{SessionID: sessionID, Transcript: entries}
	if err := s.applyBatchTo(ctx, sessionID, batch); err != nil {
		return nil, err
	}
	return batch.Transcript, nil
}

func appendTranscript(ctx context.Context, q dbtx, s *SQLiteStore, sessionID string, entries []model.TranscriptEntry) ([]model.TranscriptEntry, error) {
	var lastTurn int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(turn), 0) FROM transcript WHERE session_id = ?`, sessionID).Scan(&lastTurn)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		e := &entries[i]
		e.Turn = lastTurn + i + 1
		if e.ID == "" {
			e.ID = s.NewID()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO transcript (session_id, turn, id, phase, role, self_id, self_name, branch_name, content, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, e.Turn, e.ID, e.Phase, e.Role,
			nullable(e.SelfID), nullable(e.SelfName), nullable(e.BranchName),
			e.Content, formatTime(e.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("insert transcript entry: %w", err)
		}
	}
	return entries, nil
}

func (s *SQLiteStore) ListTranscript(ctx context.Context, sessionID string) ([]model.TranscriptEntry, error) {
	return s.queryTranscript(ctx,
		`SELECT id, turn, phase, role, self_id, self_name, branch_name, content, created_at
		 FROM transcript WHERE session_id = ? ORDER BY turn`, sessionID)
}

func (s *SQLiteStore) TailTranscript(ctx context.Context, sessionID string, n int) ([]model.TranscriptEntry, error) {
	entries, err := s.queryTranscript(ctx,
		`SELECT id, turn, phase, role, self_id, self_name, branch_name, content, created_at
		 FROM transcript WHERE session_id = ? ORDER BY turn DESC LIMIT ?`, sessionID, n)
	if err != nil {
		return nil, err
	}
	// reverse back to ascending turn order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *SQLiteStore) queryTranscript(ctx context.Context, query string, args ...any) ([]model.TranscriptEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.TranscriptEntry
	for rows.Next() {
		var e model.TranscriptEntry
		var selfID, selfName, branchName sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Turn, &e.Phase, &e.Role, &selfID, &selfName, &branchName, &e.Content, &createdAt); err != nil {
			return nil, err
		}
		e.SelfID = selfID.String
		e.SelfName = selfName.String
		e.BranchName = branchName.String
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ---------------------------------------------------------------------------
// Batches
// ---------------------------------------------------------------------------

// ApplyBatch applies all writes in one transaction.
func (s *SQLiteStore) ApplyBatch(ctx context.Context, batch *Batch) error {
	return s.applyBatchTo(ctx, batch.sessionID(), batch)
}

func (b *Batch) sessionID() string {
	switch {
	case b.SessionID != "":
		return b.SessionID
	case b.NewSession != nil:
		return b.NewSession.ID
	case len(b.Nodes) > 0:
		return b.Nodes[0].SessionID
	case len(b.Branches) > 0:
		return b.Branches[0].SessionID
	case len(b.BranchHeads) > 0:
		return b.BranchHeads[0].SessionID
	case b.Session != nil:
		return b.Session.ID
	}
	return ""
}

func (s *SQLiteStore) applyBatchTo(ctx context.Context, sessionID string, batch *Batch) error {
	if batch.Empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if batch.NewSession != nil {
		if err := createSession(ctx, tx, batch.NewSession); err != nil {
			return err
		}
	}
	for _, n := range batch.Nodes {
		if err := putNode(ctx, tx, n); err != nil {
			return err
		}
	}
	for _, b := range batch.Branches {
		if err := createBranch(ctx, tx, b); err != nil {
			return err
		}
	}
	for _, h := range batch.BranchHeads {
		if err := setBranchHead(ctx, tx, h); err != nil {
			return err
		}
	}
	if batch.Session != nil {
		if err := updateSession(ctx, tx, batch.Session); err != nil {
			return err
		}
	}
	if len(batch.Transcript) > 0 {
		entries, err := appendTranscript(ctx, tx, s, sessionID, batch.Transcript)
		if err != nil {
			return err
		}
		batch.Transcript = entries
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Scanning and serialization
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*model.Session, error) {
	var sess model.Session
	var profile, currentSelf sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&sess.ID, &sess.Status, &sess.UserName, &profile, &currentSelf,
		&sess.ActiveBranch, &sess.CurrentSelfID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if profile.Valid {
		var p model.UserProfile
		if err := json.Unmarshal([]byte(profile.String), &p); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		sess.Profile = &p
	}
	if currentSelf.Valid {
		var p model.Persona
		if err := json.Unmarshal([]byte(currentSelf.String), &p); err != nil {
			return nil, fmt.Errorf("decode current self: %w", err)
		}
		sess.CurrentSelf = &p
	}
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	return &sess, nil
}

func scanNode(row scanner) (*model.Node, error) {
	var n model.Node
	var parentID sql.NullString
	var payload, createdAt string

	err := row.Scan(&n.ID, &n.SessionID, &n.Tree, &parentID, &n.Depth, &payload, &createdAt)
	if err != nil {
		return nil, err
	}
	n.ParentID = parentID.String
	n.CreatedAt = parseTime(createdAt)

	switch n.Tree {
	case model.TreeMemory:
		var m model.MemoryPayload
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, fmt.Errorf("decode memory payload: %w", err)
		}
		n.Memory = &m
	case model.TreeExploration:
		var p model.Persona
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decode persona payload: %w", err)
		}
		n.Persona = &p
	}
	return &n, nil
}

func scanBranch(row scanner) (*model.Branch, error) {
	var b model.Branch
	var parentBranch sql.NullString
	var createdAt string

	err := row.Scan(&b.SessionID, &b.Name, &b.HeadNodeID, &parentBranch, &createdAt)
	if err != nil {
		return nil, err
	}
	b.ParentBranch = parentBranch.String
	b.CreatedAt = parseTime(createdAt)
	return &b, nil
}

func marshalPayload(n *model.Node) (string, error) {
	var v any
	switch n.Tree {
	case model.TreeMemory:
		if n.Memory == nil {
			return "", apperr.Validation("memory node %q has no payload", n.ID)
		}
		v = n.Memory
	case model.TreeExploration:
		if n.Persona == nil {
			return "", apperr.Validation("exploration node %q has no payload", n.ID)
		}
		v = n.Persona
	default:
		return "", apperr.Validation("unknown tree kind %q", n.Tree)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

func marshalSessionBlobs(sess *model.Session) (profile, currentSelf any, err error) {
	profile, currentSelf = nil, nil
	if sess.Profile != nil {
		b, err := json.Marshal(sess.Profile)
		if err != nil {
			return nil, nil, fmt.Errorf("encode profile: %w", err)
		}
		profile = string(b)
	}
	if sess.CurrentSelf != nil {
		b, err := json.Marshal(sess.CurrentSelf)
		if err != nil {
			return nil, nil, fmt.Errorf("encode current self: %w", err)
		}
		currentSelf = string(b)
	}
	return profile, currentSelf, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
