package store

import (
	"context"

	"github.com/mirrorwell/selftree/internal/model"
)

// SessionExport is a complete dump of one session: the record, every node
// of both trees, the branch index, and the transcript.
type SessionExport struct {
	Session    *model.Session          `json:"session"`
	Memory     []model.Node            `json:"memoryNodes"`
	Exploration []model.Node           `json:"explorationNodes"`
	Branches   []model.Branch          `json:"branches"`
	Transcript []model.TranscriptEntry `json:"transcript"`
}

// ExportSession returns everything the store holds for one session.
func (s *SQLiteStore) ExportSession(ctx context.Context, sessionID string) (*SessionExport, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	memory, err := s.NodesForTree(ctx, sessionID, model.TreeMemory)
	if err != nil {
		return nil, err
	}
	exploration, err := s.NodesForTree(ctx, sessionID, model.TreeExploration)
	if err != nil {
		return nil, err
	}
	branches, err := s.ListBranches(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	transcript, err := s.ListTranscript(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionExport{
		Session:     sess,
		Memory:      memory,
		Exploration: exploration,
		Branches:    branches,
		Transcript:  transcript,
	}, nil
}

// ImportSession rebuilds a session from an export in one transaction. The
// session id must not already exist.
func (s *SQLiteStore) ImportSession(ctx context.Context, exp *SessionExport) error {
	batch := &Batch{NewSession: exp.Session}
	for i := range exp.Memory {
		batch.Nodes = append(batch.Nodes, &exp.Memory[i])
	}
	for i := range exp.Exploration {
		batch.Nodes = append(batch.Nodes, &exp.Exploration[i])
	}
	for i := range exp.Branches {
		batch.Branches = append(batch.Branches, &exp.Branches[i])
	}
	batch.Transcript = exp.Transcript
	return s.ApplyBatch(ctx, batch)
}
