package tree

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/mirrorwell/selftree/internal/model"
	"github.com/mirrorwell/selftree/internal/store"
	"github.com/mirrorwell/selftree/pkg/apperr"

	_ "modernc.org/sqlite"
)

func personas(names ...string) []*model.Persona {
	out := make([]*model.Persona, 0, len(names))
	for _, n := range names {
		out = append(out, &model.Persona{Type: "future", Name: n})
	}
	return out
}

func TestGenerateUnderRoot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := NewExplorationTree(s, 5)
	sid := newTestSession(t, s)

	nodes, err := x.GenerateUnder(ctx, sid, model.RootParentKey, personas("The Founder", "The Parent", "The Wanderer"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	for _, n := range nodes {
		if n.Depth != 1 || n.ParentID != "" {
			t.Errorf("root-level node depth=%d parent=%q", n.Depth, n.ParentID)
		}
		if n.ID == "" || n.ID != n.Persona.ID {
			t.Errorf("node id %q != persona id %q", n.ID, n.Persona.ID)
		}
	}

	children, err := x.ChildrenOf(ctx, sid, model.RootParentKey)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(children) != 3 || children[0].Name != "The Founder" {
		t.Errorf("unexpected children: %+v", children)
	}
}

func TestGenerateUnderPersona(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := NewExplorationTree(s, 5)
	sid := newTestSession(t, s)

	roots, err := x.GenerateUnder(ctx, sid, "root", personas("A", "B"))
	if err != nil {
		t.Fatalf("generate roots: %v", err)
	}

	kids, err := x.GenerateUnder(ctx, sid, roots[0].ID, personas("A1", "A2"))
	if err != nil {
		t.Fatalf("generate children: %v", err)
	}
	for _, n := range kids {
		if n.Depth != 2 || n.ParentID != roots[0].ID {
			t.Errorf("child depth=%d parent=%q, want depth 2 under %q", n.Depth, n.ParentID, roots[0].ID)
		}
	}

	// Children are scoped to their parent.
	bKids, err := x.ChildrenOf(ctx, sid, roots[1].ID)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(bKids) != 0 {
		t.Errorf("expected no children under B, got %d", len(bKids))
	}

	// Parent persona reads back with derived children ids.
	parent, err := x.Persona(ctx, sid, roots[0].ID)
	if err != nil {
		t.Fatalf("persona: %v", err)
	}
	if len(parent.ChildrenIDs) != 2 {
		t.Errorf("derived children = %v, want 2 ids", parent.ChildrenIDs)
	}
}

func TestGenerateUnknownParent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := NewExplorationTree(s, 5)
	sid := newTestSession(t, s)

	_, err := x.GenerateUnder(ctx, sid, "ghost", personas("A"))
	if !apperr.IsKind(err, apperr.KindUnknownParent) {
		t.Errorf("expected UnknownParent, got %v", err)
	}
}

func TestGenerateDepthLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := NewExplorationTree(s, 2)
	sid := newTestSession(t, s)

	roots, err := x.GenerateUnder(ctx, sid, "root", personas("A"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	kids, err := x.GenerateUnder(ctx, sid, roots[0].ID, personas("A1"))
	if err != nil {
		t.Fatalf("generate at limit: %v", err)
	}

	_, err = x.GenerateUnder(ctx, sid, kids[0].ID, personas("A11"))
	if !apperr.IsKind(err, apperr.KindDepthLimit) {
		t.Errorf("expected DepthLimitExceeded, got %v", err)
	}

	// The refused batch left nothing behind.
	grand, err := x.ChildrenOf(ctx, sid, kids[0].ID)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(grand) != 0 {
		t.Errorf("refused batch wrote %d nodes", len(grand))
	}
}

func TestGenerateRejectsRootSentinelID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := NewExplorationTree(s, 5)
	sid := newTestSession(t, s)

	bad := []*model.Persona{{ID: model.RootParentKey, Type: "future", Name: "Impostor"}}
	_, err := x.GenerateUnder(ctx, sid, "root", bad)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected Validation, got %v", err)
	}
}

func TestFullTree(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := NewExplorationTree(s, 5)
	sid := newTestSession(t, s)

	roots, err := x.GenerateUnder(ctx, sid, "root", personas("A", "B"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := x.GenerateUnder(ctx, sid, roots[0].ID, personas("A1", "A2", "A3")); err != nil {
		t.Fatalf("generate: %v", err)
	}

	view, err := x.FullTree(ctx, sid)
	if err != nil {
		t.Fatalf("full tree: %v", err)
	}
	if len(view.AllSelves) != 5 {
		t.Errorf("allSelves = %d, want 5", len(view.AllSelves))
	}
	if len(view.RootOptions) != 2 || view.RootOptions[0].Name != "A" {
		t.Errorf("unexpected root options: %+v", view.RootOptions)
	}
	if got := view.ExplorationPaths[model.RootParentKey]; len(got) != 2 {
		t.Errorf("root path = %v", got)
	}
	if got := view.ExplorationPaths[roots[0].ID]; len(got) != 3 {
		t.Errorf("A's path = %v", got)
	}
	if a := view.AllSelves[roots[0].ID]; len(a.ChildrenIDs) != 3 {
		t.Errorf("A childrenIds = %v", a.ChildrenIDs)
	}
	if b := view.AllSelves[roots[1].ID]; len(b.ChildrenIDs) != 0 {
		t.Errorf("B childrenIds = %v", b.ChildrenIDs)
	}
}

func TestResolveDetectsCycle(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	x := NewExplorationTree(s, 5)
	sid := newTestSession(t, s)

	roots, err := x.GenerateUnder(ctx, sid, "root", personas("A"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	kids, err := x.GenerateUnder(ctx, sid, roots[0].ID, personas("A1"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Corrupt the parent link behind the store's back to fabricate a cycle.
	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	defer raw.Close()
	if _, err := raw.ExecContext(ctx,
		`UPDATE nodes SET parent_id = ? WHERE session_id = ? AND id = ?`,
		kids[0].ID, sid, roots[0].ID); err != nil {
		t.Fatalf("corrupt parent link: %v", err)
	}

	_, err = x.Resolve(ctx, sid, kids[0].ID)
	if !apperr.IsKind(err, apperr.KindCycleDetected) {
		t.Errorf("expected CycleDetected, got %v", err)
	}
}
