// Package store provides the durable session storage interface and its
// SQLite implementation. Nodes are append-only: once written they are never
// mutated or deleted, and every batch of writes is applied in a single
// transaction so partial states are never visible to readers.
package store

import (
	"context"

	"github.com/mirrorwell/selftree/internal/model"
)

// BranchHead moves one branch's head pointer.
type BranchHead struct {
	SessionID  string
	Name       string
	HeadNodeID string
}

// Batch is a set of writes applied atomically, in the order: nodes,
// branches, branch head moves, session update, transcript entries.
// Transcript turn numbers are assigned inside the same transaction.
// SessionID may be left empty when the batch carries other writes that
// identify the session.
type Batch struct {
	SessionID   string
	NewSession  *model.Session
	Nodes       []*model.Node
	Branches    []*model.Branch
	BranchHeads []BranchHead
	Session     *model.Session
	Transcript  []model.TranscriptEntry
}

// Empty reports whether the batch contains no writes.
func (b *Batch) Empty() bool {
	return b.NewSession == nil && len(b.Nodes) == 0 && len(b.Branches) == 0 &&
		len(b.BranchHeads) == 0 && b.Session == nil && len(b.Transcript) == 0
}

// FindNode returns a node already staged in the batch, or nil. Staged
// writes are not yet visible in the store, so readers composing a batch
// consult it first.
func (b *Batch) FindNode(sessionID, nodeID string) *model.Node {
	for _, n := range b.Nodes {
		if n.SessionID == sessionID && n.ID == nodeID {
			return n
		}
	}
	return nil
}

// FindBranch returns a branch already staged in the batch, or nil.
func (b *Batch) FindBranch(sessionID, name string) *model.Branch {
	for _, br := range b.Branches {
		if br.SessionID == sessionID && br.Name == name {
			return br
		}
	}
	return nil
}

// Store defines the durable storage contract for sessions, tree nodes,
// branches, and the transcript ledger.
type Store interface {
	// NewID returns a fresh, never-reused id for nodes, facts, and
	// transcript entries.
	NewID() string

	// Sessions.
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context) ([]model.Session, error)

	// Nodes. PutNode fails with DuplicateID if the id already exists;
	// GetNode fails with NotFound.
	PutNode(ctx context.Context, n *model.Node) error
	GetNode(ctx context.Context, sessionID, nodeID string) (*model.Node, error)
	NodeExists(ctx context.Context, sessionID, nodeID string) (bool, error)
	// ChildrenOf returns direct children in insertion order. An empty
	// parentID selects the tree's root nodes.
	ChildrenOf(ctx context.Context, sessionID string, tree model.TreeKind, parentID string) ([]model.Node, error)
	NodesForTree(ctx context.Context, sessionID string, tree model.TreeKind) ([]model.Node, error)

	// Branches. CreateBranch fails with BranchNameCollision; GetBranch
	// with UnknownBranch.
	CreateBranch(ctx context.Context, b *model.Branch) error
	GetBranch(ctx context.Context, sessionID, name string) (*model.Branch, error)
	ListBranches(ctx context.Context, sessionID string) ([]model.Branch, error)

	// Transcript. AppendTranscript assigns strictly increasing turn
	// numbers and returns the stored entries.
	AppendTranscript(ctx context.Context, sessionID string, entries []model.TranscriptEntry) ([]model.TranscriptEntry, error)
	ListTranscript(ctx context.Context, sessionID string) ([]model.TranscriptEntry, error)
	TailTranscript(ctx context.Context, sessionID string, n int) ([]model.TranscriptEntry, error)

	// ApplyBatch applies a mixed set of writes in one transaction.
	ApplyBatch(ctx context.Context, batch *Batch) error

	// Close closes the store.
	Close() error
}
