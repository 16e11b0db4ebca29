package model

import "time"

// SessionStatus tracks where a session is in the product flow.
type SessionStatus string

const (
	StatusInterview    SessionStatus = "interview"
	StatusSelection    SessionStatus = "selection"
	StatusConversation SessionStatus = "conversation"
)

// UserProfile is the profile extracted during the interview. The extraction
// itself happens in an external engine; the store only persists the result.
type UserProfile struct {
	CoreValues     []string `json:"coreValues"`
	Fears          []string `json:"fears"`
	HiddenTensions []string `json:"hiddenTensions"`
	DecisionStyle  string   `json:"decisionStyle"`
	SelfNarrative  string   `json:"selfNarrative"`
	CurrentDilemma string   `json:"currentDilemma"`
}

// Session is the root aggregate owning one memory tree, one exploration
// tree, and one transcript log. Sessions are never deleted.
type Session struct {
	ID            string        `json:"id"`
	Status        SessionStatus `json:"status"`
	UserName      string        `json:"userName"`
	Profile       *UserProfile  `json:"userProfile,omitempty"`
	CurrentSelf   *Persona      `json:"currentSelf,omitempty"`
	ActiveBranch  string        `json:"activeBranch,omitempty"`
	CurrentSelfID string        `json:"currentSelfId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Transcript entry phases.
const (
	PhaseInterview    = "interview"
	PhaseSelection    = "selection"
	PhaseConversation = "conversation"
)

// Transcript entry roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleMemory    = "memory"
	RoleSystem    = "system"
)

// TranscriptEntry is one immutable line of the session's linear ledger.
// Turn is strictly increasing per session and assigned by the store.
type TranscriptEntry struct {
	ID         string    `json:"id"`
	Turn       int       `json:"turn"`
	Phase      string    `json:"phase"`
	Role       string    `json:"role"`
	SelfID     string    `json:"selfId,omitempty"`
	SelfName   string    `json:"selfName,omitempty"`
	BranchName string    `json:"branchName,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"timestamp"`
}

// TreeView is the read-only projection of a session's exploration tree.
type TreeView struct {
	SessionID        string              `json:"sessionId"`
	AllSelves        map[string]*Persona `json:"allSelves"`
	ExplorationPaths map[string][]string `json:"explorationPaths"`
	RootOptions      []*Persona          `json:"rootOptions"`
}
