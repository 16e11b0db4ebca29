package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mirrorwell/selftree/internal/model"
	"github.com/mirrorwell/selftree/pkg/apperr"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestSession(t *testing.T, s *SQLiteStore) *model.Session {
	t.Helper()
	ctx := context.Background()
	sess := &model.Session{
		ID:        s.NewID(),
		Status:    model.StatusInterview,
		UserName:  "Ada",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func memNode(s *SQLiteStore, sessionID, parentID string, depth int, label string) *model.Node {
	return &model.Node{
		ID:        s.NewID(),
		SessionID: sessionID,
		Tree:      model.TreeMemory,
		ParentID:  parentID,
		Depth:     depth,
		CreatedAt: time.Now().UTC(),
		Memory: &model.MemoryPayload{
			BranchLabel: label,
			Facts:       []model.Fact{{ID: s.NewID(), Fact: "f", Source: "conversation"}},
		},
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := newTestSession(t, s)

	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.UserName != "Ada" || got.Status != model.StatusInterview {
		t.Errorf("unexpected session: %+v", got)
	}

	if _, err := s.GetSession(ctx, "missing"); !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestPutNodeParentChecks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := newTestSession(t, s)

	root := memNode(s, sess.ID, "", 0, "root")
	if err := s.PutNode(ctx, root); err != nil {
		t.Fatalf("put root: %v", err)
	}

	// Unknown parent rejected.
	bad := memNode(s, sess.ID, "nope", 1, "root")
	if err := s.PutNode(ctx, bad); !apperr.IsKind(err, apperr.KindUnknownParent) {
		t.Errorf("expected UnknownParent, got %v", err)
	}

	// Duplicate id rejected.
	dup := memNode(s, sess.ID, root.ID, 1, "root")
	dup.ID = root.ID
	if err := s.PutNode(ctx, dup); !apperr.IsKind(err, apperr.KindDuplicateID) {
		t.Errorf("expected DuplicateID, got %v", err)
	}

	child := memNode(s, sess.ID, root.ID, 1, "root")
	if err := s.PutNode(ctx, child); err != nil {
		t.Fatalf("put child: %v", err)
	}

	got, err := s.GetNode(ctx, sess.ID, child.ID)
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if got.ParentID != root.ID || got.Depth != 1 {
		t.Errorf("unexpected node: parent=%q depth=%d", got.ParentID, got.Depth)
	}
	if got.Memory == nil || got.Memory.BranchLabel != "root" {
		t.Errorf("payload not round-tripped: %+v", got.Memory)
	}
}

func TestNodesScopedToSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := newTestSession(t, s)
	b := newTestSession(t, s)

	na := memNode(s, a.ID, "", 0, "root")
	if err := s.PutNode(ctx, na); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := s.GetNode(ctx, b.ID, na.ID); !apperr.IsNotFound(err) {
		t.Errorf("node visible across sessions: %v", err)
	}

	nodes, err := s.NodesForTree(ctx, b.ID, model.TreeMemory)
	if err != nil {
		t.Fatalf("nodes for tree: %v", err)
	}
	if len(nodes) != 0 {
		t.Errorf("expected 0 nodes for other session, got %d", len(nodes))
	}
}

func TestBranchLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := newTestSession(t, s)

	root := memNode(s, sess.ID, "", 0, "root")
	if err := s.PutNode(ctx, root); err != nil {
		t.Fatalf("put root: %v", err)
	}

	br := &model.Branch{SessionID: sess.ID, Name: "root", HeadNodeID: root.ID, CreatedAt: time.Now().UTC()}
	if err := s.CreateBranch(ctx, br); err != nil {
		t.Fatalf("create branch: %v", err)
	}

	// Same name collides.
	if err := s.CreateBranch(ctx, br); !apperr.IsKind(err, apperr.KindBranchNameCollision) {
		t.Errorf("expected BranchNameCollision, got %v", err)
	}

	got, err := s.GetBranch(ctx, sess.ID, "root")
	if err != nil {
		t.Fatalf("get branch: %v", err)
	}
	if got.HeadNodeID != root.ID {
		t.Errorf("head = %q, want %q", got.HeadNodeID, root.ID)
	}

	if _, err := s.GetBranch(ctx, sess.ID, "missing"); !apperr.IsKind(err, apperr.KindUnknownBranch) {
		t.Errorf("expected UnknownBranch, got %v", err)
	}

	branches, err := s.ListBranches(ctx, sess.ID)
	if err != nil {
		t.Fatalf("list branches: %v", err)
	}
	if len(branches) != 1 {
		t.Errorf("expected 1 branch, got %d", len(branches))
	}
}

func TestTranscriptTurnsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := newTestSession(t, s)

	first, err := s.AppendTranscript(ctx, sess.ID, []model.TranscriptEntry{
		{Phase: model.PhaseInterview, Role: model.RoleSystem, Content: "a"},
		{Phase: model.PhaseInterview, Role: model.RoleUser, Content: "b"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first[0].Turn != 1 || first[1].Turn != 2 {
		t.Errorf("turns = %d,%d, want 1,2", first[0].Turn, first[1].Turn)
	}

	second, err := s.AppendTranscript(ctx, sess.ID, []model.TranscriptEntry{
		{Phase: model.PhaseConversation, Role: model.RoleUser, Content: "c"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if second[0].Turn != 3 {
		t.Errorf("turn = %d, want 3", second[0].Turn)
	}

	all, err := s.ListTranscript(ctx, sess.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	for i, e := range all {
		if e.Turn != i+1 {
			t.Errorf("entry %d has turn %d", i, e.Turn)
		}
		if e.ID == "" {
			t.Errorf("entry %d missing id", i)
		}
	}

	tail, err := s.TailTranscript(ctx, sess.ID, 2)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(tail) != 2 || tail[0].Content != "b" || tail[1].Content != "c" {
		t.Errorf("unexpected tail: %+v", tail)
	}
}

func TestApplyBatchAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := newTestSession(t, s)

	root := memNode(s, sess.ID, "", 0, "root")
	// Second node references a parent that is not in the batch and not in
	// the store, so the whole batch must fail.
	orphan := memNode(s, sess.ID, "missing-parent", 1, "root")

	batch := &Batch{
		SessionID: sess.ID,
		Nodes:     []*model.Node{root, orphan},
		Branches:  []*model.Branch{{SessionID: sess.ID, Name: "root", HeadNodeID: root.ID, CreatedAt: time.Now().UTC()}},
		Transcript: []model.TranscriptEntry{
			{Phase: model.PhaseInterview, Role: model.RoleSystem, Content: "boom"},
		},
	}
	if err := s.ApplyBatch(ctx, batch); !apperr.IsKind(err, apperr.KindUnknownParent) {
		t.Fatalf("expected UnknownParent, got %v", err)
	}

	// Nothing landed.
	nodes, _ := s.NodesForTree(ctx, sess.ID, model.TreeMemory)
	if len(nodes) != 0 {
		t.Errorf("expected 0 nodes after failed batch, got %d", len(nodes))
	}
	if _, err := s.GetBranch(ctx, sess.ID, "root"); !apperr.IsKind(err, apperr.KindUnknownBranch) {
		t.Errorf("branch should not exist: %v", err)
	}
	entries, _ := s.ListTranscript(ctx, sess.ID)
	if len(entries) != 0 {
		t.Errorf("expected empty transcript, got %d entries", len(entries))
	}

	// The same batch without the orphan succeeds as a unit.
	good := &Batch{
		SessionID:  sess.ID,
		Nodes:      []*model.Node{root},
		Branches:   batch.Branches,
		Transcript: batch.Transcript,
	}
	if err := s.ApplyBatch(ctx, good); err != nil {
		t.Fatalf("apply batch: %v", err)
	}
	nodes, _ = s.NodesForTree(ctx, sess.ID, model.TreeMemory)
	if len(nodes) != 1 {
		t.Errorf("expected 1 node, got %d", len(nodes))
	}
	if _, err := s.GetBranch(ctx, sess.ID, "root"); err != nil {
		t.Errorf("branch missing after batch: %v", err)
	}
}

func TestApplyBatchMovesHead(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := newTestSession(t, s)

	root := memNode(s, sess.ID, "", 0, "root")
	if err := s.PutNode(ctx, root); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.CreateBranch(ctx, &model.Branch{
		SessionID: sess.ID, Name: "root", HeadNodeID: root.ID, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create branch: %v", err)
	}

	child := memNode(s, sess.ID, root.ID, 1, "root")
	batch := &Batch{
		SessionID:   sess.ID,
		Nodes:       []*model.Node{child},
		BranchHeads: []BranchHead{{SessionID: sess.ID, Name: "root", HeadNodeID: child.ID}},
	}
	if err := s.ApplyBatch(ctx, batch); err != nil {
		t.Fatalf("apply: %v", err)
	}

	br, err := s.GetBranch(ctx, sess.ID, "root")
	if err != nil {
		t.Fatalf("get branch: %v", err)
	}
	if br.HeadNodeID != child.ID {
		t.Errorf("head = %q, want %q", br.HeadNodeID, child.ID)
	}

	// Moving the head of a branch that does not exist fails.
	bad := &Batch{
		SessionID:   sess.ID,
		BranchHeads: []BranchHead{{SessionID: sess.ID, Name: "nope", HeadNodeID: child.ID}},
	}
	if err := s.ApplyBatch(ctx, bad); !apperr.IsKind(err, apperr.KindUnknownBranch) {
		t.Errorf("expected UnknownBranch, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := newTestSession(t, s)

	root := memNode(s, sess.ID, "", 0, "root")
	if err := s.PutNode(ctx, root); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.CreateBranch(ctx, &model.Branch{
		SessionID: sess.ID, Name: "root", HeadNodeID: root.ID, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	if _, err := s.AppendTranscript(ctx, sess.ID, []model.TranscriptEntry{
		{Phase: model.PhaseInterview, Role: model.RoleSystem, Content: "hello"},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	exp, err := s.ExportSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exp.Memory) != 1 || len(exp.Branches) != 1 || len(exp.Transcript) != 1 {
		t.Fatalf("unexpected export: %d nodes, %d branches, %d entries",
			len(exp.Memory), len(exp.Branches), len(exp.Transcript))
	}

	// Import into a fresh store.
	other := newTestStore(t)
	if err := other.ImportSession(ctx, exp); err != nil {
		t.Fatalf("import: %v", err)
	}
	got, err := other.GetNode(ctx, sess.ID, root.ID)
	if err != nil {
		t.Fatalf("get imported node: %v", err)
	}
	if got.Memory.BranchLabel != "root" {
		t.Errorf("imported payload mangled: %+v", got.Memory)
	}
	entries, _ := other.ListTranscript(ctx, sess.ID)
	if len(entries) != 1 || entries[0].Content != "hello" {
		t.Errorf("imported transcript mangled: %+v", entries)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := newTestSession(t, s)

	root := memNode(s, sess.ID, "", 0, "root")
	if err := s.PutNode(ctx, root); err != nil {
		t.Fatalf("put: %v", err)
	}

	stats, err := s.Stats(ctx, "ignored")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSessions != 1 || stats.TotalNodes != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(stats.Sessions) != 1 || stats.Sessions[0].MemoryNodes != 1 {
		t.Errorf("unexpected per-session stats: %+v", stats.Sessions)
	}
}
