// Package tree implements the versioned tree engine: generic ancestry
// operations over the node store, specialized by the memory tree (named
// branches with a movable head) and the exploration tree (a persona forest
// where every generated child persists).
//
// Nothing here rewrites history. Commits extend, forks point, resolve
// walks — so every previously visited branch stays resolvable forever.
package tree

import (
	"context"

	"github.com/mirrorwell/selftree/internal/model"
	"github.com/mirrorwell/selftree/internal/store"
	"github.com/mirrorwell/selftree/pkg/apperr"
)

// Engine provides the generic tree operations shared by both
// specializations.
type Engine struct {
	st store.Store
}

// NewEngine creates an engine over the given store.
func NewEngine(st store.Store) *Engine {
	return &Engine{st: st}
}

// Resolve walks parent links from headNodeID to the tree root and returns
// the path in root-to-head order. It reads only immutable node contents,
// so the same head always yields the same path.
func (e *Engine) Resolve(ctx context.Context, sessionID, headNodeID string) ([]model.Node, error) {
	var chain []model.Node
	seen := make(map[string]bool)

	id := headNodeID
	for id != "" {
		if seen[id] {
			return nil, apperr.CycleDetected("node %q revisited while resolving %q", id, headNodeID)
		}
		seen[id] = true

		n, err := e.st.GetNode(ctx, sessionID, id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *n)
		id = n.ParentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
