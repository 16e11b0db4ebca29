package tree

import (
	"context"
	"time"

	"github.com/mirrorwell/selftree/internal/model"
	"github.com/mirrorwell/selftree/internal/store"
	"github.com/mirrorwell/selftree/pkg/apperr"
)

// RootBranch is the name of the branch created at onboarding, holding the
// memory tree's root node.
const RootBranch = "root"

// MemoryTree specializes the engine for conversational memory: named,
// append-only branches whose heads only ever move forward.
type MemoryTree struct {
	*Engine
	st store.Store
}

// NewMemoryTree creates the memory specialization.
func NewMemoryTree(st store.Store) *MemoryTree {
	return &MemoryTree{Engine: NewEngine(st), st: st}
}

// StageRoot stages the tree's root node and the root branch into batch.
// Used once per session, at onboarding.
func (m *MemoryTree) StageRoot(sessionID string, payload *model.MemoryPayload, batch *store.Batch) *model.Node {
	now := time.Now().UTC()
	node := &model.Node{
		ID:        m.st.NewID(),
		SessionID: sessionID,
		Tree:      model.TreeMemory,
		Depth:     0,
		CreatedAt: now,
		Memory:    payload,
	}
	batch.Nodes = append(batch.Nodes, node)
	batch.Branches = append(batch.Branches, &model.Branch{
		SessionID:  sessionID,
		Name:       RootBranch,
		HeadNodeID: node.ID,
		CreatedAt:  now,
	})
	return node
}

// StageFork stages a new branch whose head starts at fromNodeID. The name
// collision check happens inside the applying transaction.
func (m *MemoryTree) StageFork(ctx context.Context, sessionID, fromNodeID, newBranch, parentBranch string, batch *store.Batch) (*model.Branch, error) {
	if _, err := m.st.GetNode(ctx, sessionID, fromNodeID); err != nil {
		return nil, err
	}
	b := &model.Branch{
		SessionID:    sessionID,
		Name:         newBranch,
		HeadNodeID:   fromNodeID,
		ParentBranch: parentBranch,
		CreatedAt:    time.Now().UTC(),
	}
	batch.Branches = append(batch.Branches, b)
	return b, nil
}

// Fork creates a new branch starting at fromNodeID.
func (m *MemoryTree) Fork(ctx context.Context, sessionID, fromNodeID, newBranch, parentBranch string) (*model.Branch, error) {
	batch := &store.Batch{SessionID: sessionID}
	b, err := m.StageFork(ctx, sessionID, fromNodeID, newBranch, parentBranch, batch)
	if err != nil {
		return nil, err
	}
	if err := m.st.ApplyBatch(ctx, batch); err != nil {
		return nil, err
	}
	return b, nil
}

// StageCommit stages a node extending the branch head, plus the head move.
// The parent is the branch's current head; commits never rewrite history.
func (m *MemoryTree) StageCommit(ctx context.Context, sessionID, branchName string, payload *model.MemoryPayload, batch *store.Batch) (*model.Node, error) {
	branch := batch.FindBranch(sessionID, branchName)
	if branch == nil {
		var err error
		branch, err = m.st.GetBranch(ctx, sessionID, branchName)
		if err != nil {
			return nil, err
		}
	}

	headID := branch.HeadNodeID
	for _, h := range batch.BranchHeads {
		if h.SessionID == sessionID && h.Name == branchName {
			headID = h.HeadNodeID
		}
	}

	head := batch.FindNode(sessionID, headID)
	if head == nil {
		var err error
		head, err = m.st.GetNode(ctx, sessionID, headID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.UnknownParent("branch %q head %q not found", branchName, headID).WithCause(err)
			}
			return nil, err
		}
	}

	node := &model.Node{
		ID:        m.st.NewID(),
		SessionID: sessionID,
		Tree:      model.TreeMemory,
		ParentID:  head.ID,
		Depth:     head.Depth + 1,
		CreatedAt: time.Now().UTC(),
		Memory:    payload,
	}
	batch.Nodes = append(batch.Nodes, node)
	batch.BranchHeads = append(batch.BranchHeads, store.BranchHead{
		SessionID:  sessionID,
		Name:       branchName,
		HeadNodeID: node.ID,
	})
	return node, nil
}

// Checkpoint commits a node extending the branch with newly extracted
// facts and notes. Each checkpoint is additive: re-running extraction
// yields a fresh node, never a mutation of a previous one.
func (m *MemoryTree) Checkpoint(ctx context.Context, sessionID, branchName string, facts []model.Fact, notes []string) (*model.Node, error) {
	batch := &store.Batch{SessionID: sessionID}
	node, err := m.StageCommit(ctx, sessionID, branchName, &model.MemoryPayload{
		BranchLabel: branchName,
		Facts:       facts,
		Notes:       notes,
	}, batch)
	if err != nil {
		return nil, err
	}
	if err := m.st.ApplyBatch(ctx, batch); err != nil {
		return nil, err
	}
	return node, nil
}

// ResolveContext concatenates facts and notes from the tree root to the
// branch head, root content first, and picks the persona snapshot closest
// to the head.
func (m *MemoryTree) ResolveContext(ctx context.Context, sessionID, branchName string) (*model.ResolvedContext, error) {
	branch, err := m.st.GetBranch(ctx, sessionID, branchName)
	if err != nil {
		return nil, err
	}

	path, err := m.Resolve(ctx, sessionID, branch.HeadNodeID)
	if err != nil {
		return nil, err
	}

	rc := &model.ResolvedContext{
		SessionID:  sessionID,
		BranchName: branchName,
		Facts:      []model.Fact{},
		Notes:      []string{},
	}
	for _, n := range path {
		rc.PathNodeIDs = append(rc.PathNodeIDs, n.ID)
		if n.Memory == nil {
			continue
		}
		rc.Facts = append(rc.Facts, n.Memory.Facts...)
		for _, note := range n.Memory.Notes {
			if note != "" {
				rc.Notes = append(rc.Notes, note)
			}
		}
		if n.Memory.Persona != nil {
			rc.Persona = n.Memory.Persona
		}
	}
	return rc, nil
}

// FindBranchForPersona returns the branch whose head node carries the given
// persona snapshot. Used when a chat request arrives keyed by persona id.
func (m *MemoryTree) FindBranchForPersona(ctx context.Context, sessionID, personaID string) (*model.Branch, error) {
	nodes, err := m.st.NodesForTree(ctx, sessionID, model.TreeMemory)
	if err != nil {
		return nil, err
	}

	for _, n := range nodes {
		if n.Memory != nil && n.Memory.Persona != nil && n.Memory.Persona.ID == personaID {
			// The seed node's branch label is the branch it was forked for.
			return m.st.GetBranch(ctx, sessionID, n.Memory.BranchLabel)
		}
	}
	return nil, apperr.NotFound("no memory node holds persona %q", personaID)
}
