package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath          string         `json:"dbPath"`
	DBSizeBytes     int64          `json:"dbSizeBytes"`
	TotalSessions   int            `json:"totalSessions"`
	TotalNodes      int            `json:"totalNodes"`
	TotalBranches   int            `json:"totalBranches"`
	TranscriptLines int            `json:"transcriptLines"`
	Sessions        []SessionStats `json:"sessions"`
}

// SessionStats holds per-session counts.
type SessionStats struct {
	SessionID        string `json:"sessionId"`
	MemoryNodes      int    `json:"memoryNodes"`
	ExplorationNodes int    `json:"explorationNodes"`
	Branches         int    `json:"branches"`
	Turns            int    `json:"turns"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&st.TotalSessions)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&st.TotalNodes)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM branches`).Scan(&st.TotalBranches)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcript`).Scan(&st.TranscriptLines)

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id,
		       (SELECT COUNT(*) FROM nodes n WHERE n.session_id = s.id AND n.tree = 'memory'),
		       (SELECT COUNT(*) FROM nodes n WHERE n.session_id = s.id AND n.tree = 'exploration'),
		       (SELECT COUNT(*) FROM branches b WHERE b.session_id = s.id),
		       (SELECT COUNT(*) FROM transcript t WHERE t.session_id = s.id)
		FROM sessions s ORDER BY s.created_at DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ss SessionStats
		rows.Scan(&ss.SessionID, &ss.MemoryNodes, &ss.ExplorationNodes, &ss.Branches, &ss.Turns)
		st.Sessions = append(st.Sessions, ss)
	}

	return st, nil
}
