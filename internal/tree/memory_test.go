package tree

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mirrorwell/selftree/internal/model"
	"github.com/mirrorwell/selftree/internal/store"
	"github.com/mirrorwell/selftree/pkg/apperr"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestSession(t *testing.T, s *store.SQLiteStore) string {
	t.Helper()
	sess := &model.Session{
		ID:        s.NewID(),
		Status:    model.StatusInterview,
		UserName:  "Ada",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess.ID
}

func seedRoot(t *testing.T, s *store.SQLiteStore, m *MemoryTree, sessionID string) *model.Node {
	t.Helper()
	batch := &store.Batch{SessionID: sessionID}
	root := m.StageRoot(sessionID, &model.MemoryPayload{
		BranchLabel: RootBranch,
		Facts:       []model.Fact{{ID: s.NewID(), Fact: "dilemma: stay or go", Source: "interview"}},
		Notes:       []string{"root note"},
		Persona:     &model.Persona{ID: "self-0", Type: "current", Name: "Present Ada"},
	}, batch)
	if err := s.ApplyBatch(context.Background(), batch); err != nil {
		t.Fatalf("apply root: %v", err)
	}
	return root
}

func TestCheckpointExtendsHead(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := NewMemoryTree(s)
	sid := newTestSession(t, s)
	root := seedRoot(t, s, m, sid)

	n1, err := m.Checkpoint(ctx, sid, RootBranch,
		[]model.Fact{{ID: s.NewID(), Fact: "fears regret", Source: "conversation"}},
		[]string{"first note"})
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if n1.ParentID != root.ID || n1.Depth != 1 {
		t.Errorf("node parent=%q depth=%d, want parent=%q depth=1", n1.ParentID, n1.Depth, root.ID)
	}

	n2, err := m.Checkpoint(ctx, sid, RootBranch, nil, []string{"second note"})
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if n2.ParentID != n1.ID {
		t.Errorf("second checkpoint parent=%q, want %q", n2.ParentID, n1.ID)
	}

	br, err := s.GetBranch(ctx, sid, RootBranch)
	if err != nil {
		t.Fatalf("get branch: %v", err)
	}
	if br.HeadNodeID != n2.ID {
		t.Errorf("head=%q, want %q", br.HeadNodeID, n2.ID)
	}
}

func TestCheckpointUnknownBranch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := NewMemoryTree(s)
	sid := newTestSession(t, s)
	seedRoot(t, s, m, sid)

	_, err := m.Checkpoint(ctx, sid, "nope", nil, []string{"x"})
	if !apperr.IsKind(err, apperr.KindUnknownBranch) {
		t.Errorf("expected UnknownBranch, got %v", err)
	}
}

func TestForkAndIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := NewMemoryTree(s)
	sid := newTestSession(t, s)
	root := seedRoot(t, s, m, sid)

	if _, err := m.Fork(ctx, sid, root.ID, "the-founder", RootBranch); err != nil {
		t.Fatalf("fork: %v", err)
	}
	if _, err := m.Fork(ctx, sid, root.ID, "the-parent", RootBranch); err != nil {
		t.Fatalf("fork: %v", err)
	}

	// Forking onto a taken name collides.
	if _, err := m.Fork(ctx, sid, root.ID, "the-founder", RootBranch); !apperr.IsKind(err, apperr.KindBranchNameCollision) {
		t.Errorf("expected BranchNameCollision, got %v", err)
	}

	// Commits on one branch never appear on a sibling.
	if _, err := m.Checkpoint(ctx, sid, "the-founder",
		[]model.Fact{{ID: s.NewID(), Fact: "raised a round", Source: "conversation"}}, nil); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	founder, err := m.ResolveContext(ctx, sid, "the-founder")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	parent, err := m.ResolveContext(ctx, sid, "the-parent")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(founder.Facts) != 2 {
		t.Errorf("founder facts = %d, want 2 (root + commit)", len(founder.Facts))
	}
	if len(parent.Facts) != 1 {
		t.Errorf("parent facts = %d, want 1 (root only)", len(parent.Facts))
	}
	for _, f := range parent.Facts {
		if f.Fact == "raised a round" {
			t.Error("sibling branch leaked a fact")
		}
	}
}

func TestResolveContextRootFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := NewMemoryTree(s)
	sid := newTestSession(t, s)
	seedRoot(t, s, m, sid)

	if _, err := m.Checkpoint(ctx, sid, RootBranch, nil, []string{"later note"}); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	rc, err := m.ResolveContext(ctx, sid, RootBranch)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(rc.Notes) != 2 || rc.Notes[0] != "root note" || rc.Notes[1] != "later note" {
		t.Errorf("notes not root-first: %v", rc.Notes)
	}
	if rc.Persona == nil || rc.Persona.Name != "Present Ada" {
		t.Errorf("persona snapshot missing: %+v", rc.Persona)
	}
	if len(rc.PathNodeIDs) != 2 {
		t.Errorf("path length = %d, want 2", len(rc.PathNodeIDs))
	}

	// Resolving twice yields the same answer.
	rc2, err := m.ResolveContext(ctx, sid, RootBranch)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(rc2.Facts) != len(rc.Facts) || len(rc2.Notes) != len(rc.Notes) {
		t.Error("resolve is not repeatable")
	}
}

func TestBacktrackedBranchFrozen(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := NewMemoryTree(s)
	sid := newTestSession(t, s)
	root := seedRoot(t, s, m, sid)

	if _, err := m.Fork(ctx, sid, root.ID, "a", RootBranch); err != nil {
		t.Fatalf("fork: %v", err)
	}
	if _, err := m.Fork(ctx, sid, root.ID, "b", RootBranch); err != nil {
		t.Fatalf("fork: %v", err)
	}
	if _, err := m.Checkpoint(ctx, sid, "a", nil, []string{"went down a"}); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	before, _ := m.ResolveContext(ctx, sid, "a")

	// Working elsewhere leaves branch a untouched.
	if _, err := m.Checkpoint(ctx, sid, "b", nil, []string{"went down b"}); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	after, err := m.ResolveContext(ctx, sid, "a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(after.Notes) != len(before.Notes) || len(after.PathNodeIDs) != len(before.PathNodeIDs) {
		t.Errorf("branch a changed: before=%v after=%v", before.Notes, after.Notes)
	}
	for _, n := range after.Notes {
		if n == "went down b" {
			t.Error("note leaked across branches")
		}
	}
}

func TestFindBranchForPersona(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := NewMemoryTree(s)
	sid := newTestSession(t, s)
	root := seedRoot(t, s, m, sid)

	// Seed a persona branch the way generation does: fork + seed node
	// carrying the persona snapshot and branch label.
	batch := &store.Batch{SessionID: sid}
	seed := &model.Node{
		ID:        s.NewID(),
		SessionID: sid,
		Tree:      model.TreeMemory,
		ParentID:  root.ID,
		Depth:     1,
		CreatedAt: time.Now().UTC(),
		Memory: &model.MemoryPayload{
			BranchLabel: "the-founder",
			Persona:     &model.Persona{ID: "p1", Type: "future", Name: "The Founder"},
		},
	}
	batch.Nodes = append(batch.Nodes, seed)
	batch.Branches = append(batch.Branches, &model.Branch{
		SessionID: sid, Name: "the-founder", HeadNodeID: seed.ID,
		ParentBranch: RootBranch, CreatedAt: time.Now().UTC(),
	})
	if err := s.ApplyBatch(ctx, batch); err != nil {
		t.Fatalf("apply: %v", err)
	}

	br, err := m.FindBranchForPersona(ctx, sid, "p1")
	if err != nil {
		t.Fatalf("find branch: %v", err)
	}
	if br.Name != "the-founder" {
		t.Errorf("branch = %q, want the-founder", br.Name)
	}

	// Still resolvable after the head moves past the seed node.
	if _, err := m.Checkpoint(ctx, sid, "the-founder", nil, []string{"moved"}); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	br, err = m.FindBranchForPersona(ctx, sid, "p1")
	if err != nil {
		t.Fatalf("find branch after checkpoint: %v", err)
	}
	if br.Name != "the-founder" {
		t.Errorf("branch = %q, want the-founder", br.Name)
	}

	if _, err := m.FindBranchForPersona(ctx, sid, "missing"); !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}
