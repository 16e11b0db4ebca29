// Package session implements the coordinator that serializes mutations to
// a session's trees and exposes the operations external routers and
// generators call. A logical operation spanning a tree commit and a
// transcript append is applied as one store batch, so readers observe both
// effects or neither.
package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mirrorwell/selftree/internal/insight"
	"github.com/mirrorwell/selftree/internal/model"
	"github.com/mirrorwell/selftree/internal/store"
	"github.com/mirrorwell/selftree/internal/tree"
	"github.com/mirrorwell/selftree/pkg/apperr"
)

// GenerateRequest is what a persona generator receives. The coordinator
// resolves the ancestry context before calling out; the generator only
// produces content.
type GenerateRequest struct {
	Session      *model.Session   `json:"session"`
	Parent       *model.Persona   `json:"parent,omitempty"` // nil for root-level generation
	Count        int              `json:"count"`
	SiblingNames []string         `json:"siblingNames,omitempty"`
	Ancestors    []*model.Persona `json:"ancestors,omitempty"`
}

// PersonaGenerator produces persona batches. Implementations are opaque
// external services; calls may be slow and are made outside the session
// lock.
type PersonaGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]*model.Persona, error)
}

// Options tune the coordinator.
type Options struct {
	MaxDepth     int
	MinBatchSize int
	MaxBatchSize int
	Insight      insight.Options
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MaxDepth:     5,
		MinBatchSize: 2,
		MaxBatchSize: 3,
		Insight:      insight.DefaultOptions(),
	}
}

// Coordinator is the sole mutator of a session's trees. Mutations on the
// same session are rejected with SessionBusy while one is in flight;
// different sessions proceed in parallel.
type Coordinator struct {
	st     store.Store
	memory *tree.MemoryTree
	expl   *tree.ExplorationTree
	gen    PersonaGenerator
	opts   Options
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a coordinator. gen may be nil when callers always supply
// pre-generated personas.
func New(st store.Store, gen PersonaGenerator, opts Options, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.MinBatchSize <= 0 {
		opts.MinBatchSize = def.MinBatchSize
	}
	if opts.MaxBatchSize < opts.MinBatchSize {
		opts.MaxBatchSize = def.MaxBatchSize
	}
	if opts.Insight.MinMessageLength <= 0 {
		opts.Insight = def.Insight
	}
	return &Coordinator{
		st:     st,
		memory: tree.NewMemoryTree(st),
		expl:   tree.NewExplorationTree(st, opts.MaxDepth),
		gen:    gen,
		opts:   opts,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// acquire takes the per-session mutation lock, or fails with SessionBusy.
func (c *Coordinator) acquire(sessionID string) (func(), error) {
	c.mu.Lock()
	l, ok := c.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[sessionID] = l
	}
	c.mu.Unlock()

	if !l.TryLock() {
		return nil, apperr.SessionBusy("session %q has a mutation in flight", sessionID)
	}
	return l.Unlock, nil
}

// ---------------------------------------------------------------------------
// Session lifecycle
// ---------------------------------------------------------------------------

// StartInterview creates a new session.
func (c *Coordinator) StartInterview(ctx context.Context, userName string) (*model.Session, error) {
	if userName == "" {
		userName = "User"
	}
	now := time.Now().UTC()
	sess := &model.Session{
		ID:        uuid.NewString(),
		Status:    model.StatusInterview,
		UserName:  userName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	batch := &store.Batch{
		NewSession: sess,
		Transcript: []model.TranscriptEntry{{
			Phase:   model.PhaseInterview,
			Role:    model.RoleSystem,
			Content: fmt.Sprintf("Interview started for %s", userName),
		}},
	}
	if err := c.st.ApplyBatch(ctx, batch); err != nil {
		return nil, err
	}
	c.logger.Info("session started", zap.String("sessionID", sess.ID))
	return sess, nil
}

// CompleteOnboarding stores the extracted profile and current self, seeds
// the memory tree's root node, and creates the root branch.
func (c *Coordinator) CompleteOnboarding(ctx context.Context, sessionID string, profile *model.UserProfile, currentSelf *model.Persona) (*model.Session, error) {
	if profile == nil || currentSelf == nil {
		return nil, apperr.Validation("profile and current self are required")
	}

	unlock, err := c.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := c.st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if currentSelf.ID == "" {
		currentSelf.ID = c.st.NewID()
	}
	currentSelf.Type = "current"
	currentSelf.Depth = 0

	now := time.Now().UTC()
	seed := &model.MemoryPayload{
		BranchLabel: tree.RootBranch,
		Facts: []model.Fact{
			{ID: c.st.NewID(), Fact: "Current dilemma: " + profile.CurrentDilemma, Source: "interview", ExtractedAt: now},
			{ID: c.st.NewID(), Fact: "Optimizes for: " + currentSelf.OptimizationGoal, Source: "interview", ExtractedAt: now},
		},
		Notes:   []string{"Root node for current self: " + currentSelf.Name},
		Persona: currentSelf,
	}

	sess.Profile = profile
	sess.CurrentSelf = currentSelf
	sess.CurrentSelfID = currentSelf.ID
	sess.ActiveBranch = tree.RootBranch
	sess.UpdatedAt = now

	batch := &store.Batch{Session: sess}
	c.memory.StageRoot(sessionID, seed, batch)
	batch.Transcript = []model.TranscriptEntry{{
		Phase:      model.PhaseInterview,
		Role:       model.RoleSystem,
		BranchName: tree.RootBranch,
		Content:    "Onboarding complete: profile and current self committed",
	}}

	if err := c.st.ApplyBatch(ctx, batch); err != nil {
		return nil, err
	}
	c.logger.Info("onboarding complete", zap.String("sessionID", sessionID), zap.String("currentSelf", currentSelf.Name))
	return sess, nil
}

// GetSession returns the session record.
func (c *Coordinator) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	return c.st.GetSession(ctx, sessionID)
}

// ListSessions returns all sessions, newest first.
func (c *Coordinator) ListSessions(ctx context.Context) ([]model.Session, error) {
	return c.st.ListSessions(ctx)
}

// ---------------------------------------------------------------------------
// Persona generation and navigation
// ---------------------------------------------------------------------------

// GeneratePersonas generates count personas under parentKey ("root" or a
// persona id) and commits the whole batch atomically: exploration nodes,
// one memory branch per persona, the session update, and the transcript
// entry all become visible together or not at all.
//
// When provided is non-nil the external generator is skipped. Otherwise
// the generator runs before the session lock is taken, so slow content
// generation never blocks unrelated operations.
func (c *Coordinator) GeneratePersonas(ctx context.Context, sessionID, parentKey string, count int, provided []*model.Persona) ([]*model.Persona, error) {
	sess, err := c.st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if parentKey == "" {
		parentKey = model.RootParentKey
	}
	rootLevel := parentKey == model.RootParentKey
	if rootLevel && sess.CurrentSelf == nil {
		return nil, apperr.Validation("session %q has no current self; complete onboarding first", sessionID)
	}

	var parent *model.Persona
	var ancestors []*model.Persona
	if !rootLevel {
		parent, err = c.expl.Persona(ctx, sessionID, parentKey)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.UnknownParent("parent persona %q not found", parentKey).WithCause(err)
			}
			return nil, err
		}
		path, err := c.expl.Resolve(ctx, sessionID, parentKey)
		if err != nil {
			return nil, err
		}
		for i := range path {
			ancestors = append(ancestors, path[i].Persona)
		}
	}

	personas := provided
	if personas == nil {
		if count == 0 {
			count = c.opts.MinBatchSize
		}
		if count < c.opts.MinBatchSize || count > c.opts.MaxBatchSize {
			return nil, apperr.Validation("count must be between %d and %d, got %d",
				c.opts.MinBatchSize, c.opts.MaxBatchSize, count)
		}
		if c.gen == nil {
			return nil, apperr.Validation("no personas provided and no generator configured")
		}

		siblings, err := c.expl.ChildrenOf(ctx, sessionID, parentKey)
		if err != nil {
			return nil, err
		}
		var siblingNames []string
		for _, s := range siblings {
			siblingNames = append(siblingNames, s.Name)
		}

		// External call happens before the lock; only the durable write
		// below is serialized.
		personas, err = c.gen.Generate(ctx, GenerateRequest{
			Session:      sess,
			Parent:       parent,
			Count:        count,
			SiblingNames: siblingNames,
			Ancestors:    ancestors,
		})
		if err != nil {
			return nil, err
		}
	}
	if len(personas) == 0 {
		return nil, apperr.Validation("generator returned an empty persona batch")
	}
	for _, p := range personas {
		p.Type = "future"
		if err := validatePersona(p); err != nil {
			return nil, err
		}
	}

	unlock, err := c.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	batch := &store.Batch{SessionID: sessionID}
	nodes, err := c.expl.StageGenerate(ctx, sessionID, parentKey, personas, batch)
	if err != nil {
		return nil, err
	}

	parentNode, parentBranchName, err := c.memoryAnchor(ctx, sessionID, parent)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if err := c.stageMemoryBranch(ctx, sessionID, n.Persona, parentNode, parentBranchName, batch); err != nil {
			return nil, err
		}
	}

	levelDesc := "root level"
	if !rootLevel {
		levelDesc = fmt.Sprintf("from %q", parent.Name)
	}
	if rootLevel {
		sess.Status = model.StatusSelection
	}
	sess.UpdatedAt = time.Now().UTC()
	batch.Session = sess

	names := make([]string, 0, len(personas))
	for _, p := range personas {
		names = append(names, p.Name)
	}
	batch.Transcript = []model.TranscriptEntry{{
		Phase:   model.PhaseSelection,
		Role:    model.RoleSystem,
		Content: fmt.Sprintf("Generated %d futures (%s): %s", len(personas), levelDesc, strings.Join(names, ", ")),
	}}

	if err := c.st.ApplyBatch(ctx, batch); err != nil {
		return nil, err
	}
	c.logger.Info("personas generated",
		zap.String("sessionID", sessionID),
		zap.String("parentKey", parentKey),
		zap.Int("count", len(personas)))
	return personas, nil
}

// validatePersona checks the fields the store has opinions about. Fields
// left empty by a minimal generator are allowed; filled fields must be
// well-formed.
func validatePersona(p *model.Persona) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("persona is missing a name")
	}
	vs := p.VisualStyle
	if vs.Mood != "" && !model.ValidMoods[vs.Mood] {
		return apperr.Validation("persona %q has unknown mood %q", p.Name, vs.Mood)
	}
	for _, c := range []string{vs.PrimaryColor, vs.AccentColor} {
		if c != "" && !hexColor.MatchString(c) {
			return apperr.Validation("persona %q has malformed color %q", p.Name, c)
		}
	}
	if vs.GlowIntensity < 0 || vs.GlowIntensity > 1 {
		return apperr.Validation("persona %q glow intensity %v out of [0,1]", p.Name, vs.GlowIntensity)
	}
	return nil
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// memoryAnchor finds the memory node and branch name that new persona
// branches fork from: the root node for root-level generation, or the seed
// node holding the parent persona otherwise.
func (c *Coordinator) memoryAnchor(ctx context.Context, sessionID string, parent *model.Persona) (*model.Node, string, error) {
	if parent == nil {
		branch, err := c.st.GetBranch(ctx, sessionID, tree.RootBranch)
		if err != nil {
			return nil, "", err
		}
		path, err := c.memory.Resolve(ctx, sessionID, branch.HeadNodeID)
		if err != nil {
			return nil, "", err
		}
		return &path[0], tree.RootBranch, nil
	}

	branch, err := c.memory.FindBranchForPersona(ctx, sessionID, parent.ID)
	if err != nil {
		return nil, "", err
	}
	nodes, err := c.st.NodesForTree(ctx, sessionID, model.TreeMemory)
	if err != nil {
		return nil, "", err
	}
	for i := range nodes {
		n := &nodes[i]
		if n.Memory != nil && n.Memory.Persona != nil && n.Memory.Persona.ID == parent.ID {
			return n, branch.Name, nil
		}
	}
	return nil, "", apperr.NotFound("memory node for persona %q not found", parent.ID)
}

// stageMemoryBranch stages the seed memory node and branch for one
// generated persona.
func (c *Coordinator) stageMemoryBranch(ctx context.Context, sessionID string, p *model.Persona, parentNode *model.Node, parentBranchName string, batch *store.Batch) error {
	name := c.branchNameFor(ctx, sessionID, p, batch)
	now := time.Now().UTC()

	node := &model.Node{
		ID:        c.st.NewID(),
		SessionID: sessionID,
		Tree:      model.TreeMemory,
		ParentID:  parentNode.ID,
		Depth:     parentNode.Depth + 1,
		CreatedAt: now,
		Memory: &model.MemoryPayload{
			BranchLabel: name,
			Facts: []model.Fact{{
				ID:          c.st.NewID(),
				Fact:        "Optimizes for: " + p.OptimizationGoal,
				Source:      "interview",
				ExtractedAt: now,
			}},
			Notes:   []string{fmt.Sprintf("Branch node for: %s (parent: %s)", p.Name, parentBranchName)},
			Persona: p,
		},
	}
	batch.Nodes = append(batch.Nodes, node)
	batch.Branches = append(batch.Branches, &model.Branch{
		SessionID:    sessionID,
		Name:         name,
		HeadNodeID:   node.ID,
		ParentBranch: parentBranchName,
		CreatedAt:    now,
	})
	return nil
}

// branchNameFor slugs the persona name, suffixing an id fragment when the
// slug is already taken so every persona keeps its own branch.
func (c *Coordinator) branchNameFor(ctx context.Context, sessionID string, p *model.Persona, batch *store.Batch) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(p.Name), " ", "-"))
	if slug == "" {
		slug = "branch"
	}

	taken := batch.FindBranch(sessionID, slug) != nil
	if !taken {
		if _, err := c.st.GetBranch(ctx, sessionID, slug); err == nil {
			taken = true
		}
	}
	if !taken {
		return slug
	}
	frag := strings.ToLower(p.ID)
	if len(frag) > 6 {
		frag = frag[len(frag)-6:]
	}
	return slug + "-" + frag
}

// GetTree returns the full exploration tree projection.
func (c *Coordinator) GetTree(ctx context.Context, sessionID string) (*model.TreeView, error) {
	if _, err := c.st.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return c.expl.FullTree(ctx, sessionID)
}

// GetChildren returns the personas generated under parentKey, in
// generation order.
func (c *Coordinator) GetChildren(ctx context.Context, sessionID, parentKey string) ([]*model.Persona, error) {
	if _, err := c.st.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return c.expl.ChildrenOf(ctx, sessionID, parentKey)
}

// SelectPersona makes the given persona the session's active self,
// checking out its memory branch.
func (c *Coordinator) SelectPersona(ctx context.Context, sessionID, personaID string) (*model.ResolvedContext, error) {
	sess, err := c.st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	persona, err := c.expl.Persona(ctx, sessionID, personaID)
	if err != nil {
		return nil, err
	}
	branch, err := c.memory.FindBranchForPersona(ctx, sessionID, personaID)
	if err != nil {
		return nil, err
	}

	unlock, err := c.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess.ActiveBranch = branch.Name
	sess.CurrentSelfID = personaID
	sess.Status = model.StatusConversation
	sess.UpdatedAt = time.Now().UTC()

	batch := &store.Batch{
		Session: sess,
		Transcript: []model.TranscriptEntry{{
			Phase:      model.PhaseConversation,
			Role:       model.RoleSystem,
			SelfID:     personaID,
			SelfName:   persona.Name,
			BranchName: branch.Name,
			Content:    fmt.Sprintf("Selected future self %q (branch: %s)", persona.Name, branch.Name),
		}},
	}
	if err := c.st.ApplyBatch(ctx, batch); err != nil {
		return nil, err
	}
	return c.memory.ResolveContext(ctx, sessionID, branch.Name)
}

// Backtrack moves the session back to a previously visited branch and
// returns the context exactly as it was last committed there.
func (c *Coordinator) Backtrack(ctx context.Context, sessionID, targetBranch string) (*model.ResolvedContext, error) {
	sess, err := c.st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	branch, err := c.st.GetBranch(ctx, sessionID, targetBranch)
	if err != nil {
		return nil, err
	}

	unlock, err := c.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rc, err := c.memory.ResolveContext(ctx, sessionID, branch.Name)
	if err != nil {
		return nil, err
	}

	sess.ActiveBranch = branch.Name
	if rc.Persona != nil {
		sess.CurrentSelfID = rc.Persona.ID
	}
	sess.UpdatedAt = time.Now().UTC()

	entry := model.TranscriptEntry{
		Phase:      model.PhaseConversation,
		Role:       model.RoleSystem,
		BranchName: branch.Name,
		Content:    fmt.Sprintf("Backtracked to branch %q", branch.Name),
	}
	if rc.Persona != nil {
		entry.SelfID = rc.Persona.ID
		entry.SelfName = rc.Persona.Name
	}

	batch := &store.Batch{Session: sess, Transcript: []model.TranscriptEntry{entry}}
	if err := c.st.ApplyBatch(ctx, batch); err != nil {
		return nil, err
	}
	c.logger.Info("backtracked", zap.String("sessionID", sessionID), zap.String("branch", branch.Name))
	return rc, nil
}

// ---------------------------------------------------------------------------
// Memory operations
// ---------------------------------------------------------------------------

// CheckpointMemory commits a node extending the branch with the given
// facts and notes.
func (c *Coordinator) CheckpointMemory(ctx context.Context, sessionID, branchName string, facts, notes []string) (*model.Node, error) {
	if _, err := c.st.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	unlock, err := c.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := time.Now().UTC()
	modelFacts := make([]model.Fact, 0, len(facts))
	for _, f := range facts {
		if f == "" {
			continue
		}
		modelFacts = append(modelFacts, model.Fact{
			ID:          c.st.NewID(),
			Fact:        f,
			Source:      "conversation",
			ExtractedAt: now,
		})
	}

	batch := &store.Batch{SessionID: sessionID}
	node, err := c.memory.StageCommit(ctx, sessionID, branchName, &model.MemoryPayload{
		BranchLabel: branchName,
		Facts:       modelFacts,
		Notes:       notes,
	}, batch)
	if err != nil {
		return nil, err
	}
	batch.Transcript = []model.TranscriptEntry{{
		Phase:      model.PhaseConversation,
		Role:       model.RoleMemory,
		BranchName: branchName,
		Content:    fmt.Sprintf("Checkpoint on %q: %d facts, %d notes", branchName, len(modelFacts), len(notes)),
	}}

	if err := c.st.ApplyBatch(ctx, batch); err != nil {
		return nil, err
	}
	return node, nil
}

// ResolveMemory returns the branch's root-to-head context.
func (c *Coordinator) ResolveMemory(ctx context.Context, sessionID, branchName string) (*model.ResolvedContext, error) {
	if _, err := c.st.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return c.memory.ResolveContext(ctx, sessionID, branchName)
}

// ---------------------------------------------------------------------------
// Conversation turns
// ---------------------------------------------------------------------------

// RecordTurn persists one conversation turn: transcript entries for the
// user and assistant messages, extracted key signals as memory entries,
// and — when signals were found — a fresh checkpoint node on the active
// branch. Returns the extracted signals.
//
// Appending the same final user/assistant pair twice is a no-op.
func (c *Coordinator) RecordTurn(ctx context.Context, sessionID, selfID, userText, assistantText string) ([]string, error) {
	userText = strings.TrimSpace(userText)
	assistantText = strings.TrimSpace(assistantText)
	if userText == "" || assistantText == "" {
		return nil, apperr.Validation("both user and assistant text are required")
	}

	sess, err := c.st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	branchName := sess.ActiveBranch
	selfName := ""
	if selfID != "" {
		if branch, err := c.memory.FindBranchForPersona(ctx, sessionID, selfID); err == nil {
			branchName = branch.Name
		}
		if p, err := c.expl.Persona(ctx, sessionID, selfID); err == nil {
			selfName = p.Name
		}
	}
	if branchName == "" {
		branchName = tree.RootBranch
	}

	// Idempotency guard: duplicate final pair is dropped.
	tail, err := c.st.TailTranscript(ctx, sessionID, 2)
	if err != nil {
		return nil, err
	}
	if len(tail) == 2 &&
		tail[0].Phase == model.PhaseConversation && tail[0].Role == model.RoleUser &&
		tail[0].Content == userText && tail[0].SelfID == selfID &&
		tail[1].Phase == model.PhaseConversation && tail[1].Role == model.RoleAssistant &&
		tail[1].Content == assistantText && tail[1].SelfID == selfID {
		return nil, nil
	}

	insights := insight.Extract(userText, c.opts.Insight)

	unlock, err := c.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entries := []model.TranscriptEntry{
		{Phase: model.PhaseConversation, Role: model.RoleUser, SelfID: selfID, SelfName: selfName, BranchName: branchName, Content: userText},
		{Phase: model.PhaseConversation, Role: model.RoleAssistant, SelfID: selfID, SelfName: selfName, BranchName: branchName, Content: assistantText},
	}
	for _, ins := range insights {
		entries = append(entries, model.TranscriptEntry{
			Phase: model.PhaseConversation, Role: model.RoleMemory,
			SelfID: selfID, SelfName: selfName, BranchName: branchName,
			Content: "Key signal: " + ins,
		})
	}

	batch := &store.Batch{SessionID: sessionID, Transcript: entries}
	if len(insights) > 0 {
		now := time.Now().UTC()
		facts := make([]model.Fact, 0, len(insights))
		notes := make([]string, 0, len(insights))
		for _, ins := range insights {
			facts = append(facts, model.Fact{
				ID:          c.st.NewID(),
				Fact:        ins,
				Source:      "conversation",
				ExtractedAt: now,
			})
			notes = append(notes, "User signal: "+ins)
		}
		if _, err := c.memory.StageCommit(ctx, sessionID, branchName, &model.MemoryPayload{
			BranchLabel: branchName,
			Facts:       facts,
			Notes:       notes,
		}, batch); err != nil {
			return nil, err
		}
	}

	if err := c.st.ApplyBatch(ctx, batch); err != nil {
		return nil, err
	}
	return insights, nil
}

// GetTranscript returns the session's full ledger, oldest first.
func (c *Coordinator) GetTranscript(ctx context.Context, sessionID string) ([]model.TranscriptEntry, error) {
	if _, err := c.st.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return c.st.ListTranscript(ctx, sessionID)
}
