package tree

import (
	"context"
	"time"

	"github.com/mirrorwell/selftree/internal/model"
	"github.com/mirrorwell/selftree/internal/store"
	"github.com/mirrorwell/selftree/pkg/apperr"
)

// ExplorationTree specializes the engine for persona branching. There is
// no single active head: every generated child persists as a permanent,
// independently navigable branch. The authoritative parent/children
// representation is the node's parent link; exploration paths and
// childrenIds are derived on read.
type ExplorationTree struct {
	*Engine
	st       store.Store
	maxDepth int
}

// NewExplorationTree creates the exploration specialization. maxDepth is
// the deepest allowed persona level (root options are depth 1).
func NewExplorationTree(st store.Store, maxDepth int) *ExplorationTree {
	return &ExplorationTree{Engine: NewEngine(st), st: st, maxDepth: maxDepth}
}

// MaxDepth returns the configured depth limit.
func (x *ExplorationTree) MaxDepth() int { return x.maxDepth }

// resolveParent maps a parent key to (parentID, child depth). The sentinel
// "root" is the forest's virtual root: depth 0, never materialized.
func (x *ExplorationTree) resolveParent(ctx context.Context, sessionID, parentKey string) (string, int, error) {
	if parentKey == "" || parentKey == model.RootParentKey {
		return "", 1, nil
	}
	parent, err := x.st.GetNode(ctx, sessionID, parentKey)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", 0, apperr.UnknownParent("parent persona %q not found", parentKey)
		}
		return "", 0, err
	}
	if parent.Tree != model.TreeExploration {
		return "", 0, apperr.UnknownParent("node %q is not an exploration node", parentKey)
	}
	return parent.ID, parent.Depth + 1, nil
}

// StageGenerate validates and stages a whole persona batch under parentKey.
// All nodes land in the same batch, so a later failure leaves zero children
// visible. Personas without ids get fresh ULIDs; a generator-produced id
// equal to the root sentinel is rejected.
func (x *ExplorationTree) StageGenerate(ctx context.Context, sessionID, parentKey string, personas []*model.Persona, batch *store.Batch) ([]*model.Node, error) {
	parentID, depth, err := x.resolveParent(ctx, sessionID, parentKey)
	if err != nil {
		return nil, err
	}
	if depth > x.maxDepth {
		return nil, apperr.DepthLimit("depth %d exceeds configured maximum %d", depth, x.maxDepth)
	}

	now := time.Now().UTC()
	nodes := make([]*model.Node, 0, len(personas))
	for _, p := range personas {
		if p.ID == model.RootParentKey {
			return nil, apperr.Validation("persona id %q collides with the reserved root key", p.ID)
		}
		if p.ID == "" {
			p.ID = x.st.NewID()
		}
		p.ParentID = parentID
		p.Depth = depth
		p.ChildrenIDs = []string{}

		node := &model.Node{
			ID:        p.ID,
			SessionID: sessionID,
			Tree:      model.TreeExploration,
			ParentID:  parentID,
			Depth:     depth,
			CreatedAt: now,
			Persona:   p,
		}
		batch.Nodes = append(batch.Nodes, node)
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// GenerateUnder writes a persona batch under parentKey, all-or-nothing.
func (x *ExplorationTree) GenerateUnder(ctx context.Context, sessionID, parentKey string, personas []*model.Persona) ([]*model.Node, error) {
	batch := &store.Batch{SessionID: sessionID}
	nodes, err := x.StageGenerate(ctx, sessionID, parentKey, personas, batch)
	if err != nil {
		return nil, err
	}
	if err := x.st.ApplyBatch(ctx, batch); err != nil {
		return nil, err
	}
	return nodes, nil
}

// ChildrenOf returns the personas generated under parentKey, in generation
// order.
func (x *ExplorationTree) ChildrenOf(ctx context.Context, sessionID, parentKey string) ([]*model.Persona, error) {
	parentID := parentKey
	if parentKey == "" || parentKey == model.RootParentKey {
		parentID = ""
	} else {
		exists, err := x.st.NodeExists(ctx, sessionID, parentKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.UnknownParent("parent persona %q not found", parentKey)
		}
	}

	nodes, err := x.st.ChildrenOf(ctx, sessionID, model.TreeExploration, parentID)
	if err != nil {
		return nil, err
	}
	children := make([]*model.Persona, 0, len(nodes))
	for i := range nodes {
		children = append(children, x.withDerivedChildren(ctx, sessionID, &nodes[i]))
	}
	return children, nil
}

// Persona returns one persona by id, with derived children.
func (x *ExplorationTree) Persona(ctx context.Context, sessionID, personaID string) (*model.Persona, error) {
	node, err := x.st.GetNode(ctx, sessionID, personaID)
	if err != nil {
		return nil, err
	}
	if node.Tree != model.TreeExploration || node.Persona == nil {
		return nil, apperr.NotFound("persona %q not found", personaID)
	}
	return x.withDerivedChildren(ctx, sessionID, node), nil
}

func (x *ExplorationTree) withDerivedChildren(ctx context.Context, sessionID string, node *model.Node) *model.Persona {
	p := *node.Persona
	p.ChildrenIDs = []string{}
	if kids, err := x.st.ChildrenOf(ctx, sessionID, model.TreeExploration, node.ID); err == nil {
		for _, k := range kids {
			p.ChildrenIDs = append(p.ChildrenIDs, k.ID)
		}
	}
	return &p
}

// FullTree returns every persona keyed by id plus the full parent-to-
// children map. The projection is computed from a single committed
// snapshot, so a half-written batch can never appear in it.
func (x *ExplorationTree) FullTree(ctx context.Context, sessionID string) (*model.TreeView, error) {
	nodes, err := x.st.NodesForTree(ctx, sessionID, model.TreeExploration)
	if err != nil {
		return nil, err
	}

	view := &model.TreeView{
		SessionID:        sessionID,
		AllSelves:        make(map[string]*model.Persona, len(nodes)),
		ExplorationPaths: make(map[string][]string),
		RootOptions:      []*model.Persona{},
	}

	// nodes arrive in insertion order, so path lists stay in generation order.
	for i := range nodes {
		n := &nodes[i]
		p := *n.Persona
		p.ChildrenIDs = []string{}
		view.AllSelves[n.ID] = &p

		parentKey := n.ParentID
		if parentKey == "" {
			parentKey = model.RootParentKey
		}
		view.ExplorationPaths[parentKey] = append(view.ExplorationPaths[parentKey], n.ID)
	}

	for parentKey, childIDs := range view.ExplorationPaths {
		if parentKey == model.RootParentKey {
			continue
		}
		if parent, ok := view.AllSelves[parentKey]; ok {
			parent.ChildrenIDs = childIDs
		}
	}
	for _, id := range view.ExplorationPaths[model.RootParentKey] {
		view.RootOptions = append(view.RootOptions, view.AllSelves[id])
	}
	return view, nil
}
