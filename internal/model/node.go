// Package model defines the core domain types for the branching session store.
package model

import "time"

// TreeKind identifies which of a session's two trees a node belongs to.
type TreeKind string

const (
	TreeMemory      TreeKind = "memory"
	TreeExploration TreeKind = "exploration"
)

// RootParentKey is the reserved sentinel for the exploration forest's
// virtual root. It is never materialized as a node, and no generated
// persona id may equal it.
const RootParentKey = "root"

// Node is an immutable unit of committed state. Exactly one of Memory or
// Persona is set, matching the Tree field.
type Node struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Tree      TreeKind  `json:"tree"`
	ParentID  string    `json:"parentId,omitempty"` // empty for root nodes
	Depth     int       `json:"depth"`
	CreatedAt time.Time `json:"createdAt"`

	Memory  *MemoryPayload `json:"memory,omitempty"`
	Persona *Persona       `json:"persona,omitempty"`
}

// MemoryPayload is the payload of a memory-tree node: the facts and notes
// checkpointed at this point of the branch, plus an optional persona
// snapshot on branch seed nodes so context resolution can pick the persona
// closest to the head.
type MemoryPayload struct {
	BranchLabel string   `json:"branchLabel"`
	Facts       []Fact   `json:"facts"`
	Notes       []string `json:"notes"`
	Persona     *Persona `json:"persona,omitempty"`
}

// Fact is one extracted statement about the user. Facts are append-only:
// a new node is committed instead of editing a written one.
type Fact struct {
	ID          string    `json:"id"`
	Fact        string    `json:"fact"`
	Source      string    `json:"source"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// Branch is a named, append-only path of memory-tree nodes with a movable
// head pointer.
type Branch struct {
	SessionID    string    `json:"sessionId"`
	Name         string    `json:"name"`
	HeadNodeID   string    `json:"headNodeId"`
	ParentBranch string    `json:"parentBranchName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ResolvedContext is the root-to-head view of one memory branch.
type ResolvedContext struct {
	SessionID   string   `json:"sessionId"`
	BranchName  string   `json:"branchName"`
	Facts       []Fact   `json:"facts"`
	Notes       []string `json:"notes"`
	Persona     *Persona `json:"persona,omitempty"`
	PathNodeIDs []string `json:"pathNodeIds"`
}
