package leaderboard

import (
	"context"
	"sort"
	"sync"

	"wealthwars/internal/game"
)

type Memory struct {
	mu   sync.Mutex
	rows map[string]game.LeaderboardRow
}

func NewMemory() *Memory {
	return &Memory{rows: map[string]game.LeaderboardRow{}}
}

func (m *Memory) Submit(_ context.Context, row game.LeaderboardRow) error {
	m.mu.Lock()
	m.rows[row.PlayerID] = row
	m.mu.Unlock()
	return nil
}

// Top orders by score, then player id, matching sorted-set ordering closely
// enough for tests.
func (m *Memory) Top(_ context.Context, limit int) ([]game.LeaderboardRow, error) {
	m.mu.Lock()
	out := make([]game.LeaderboardRow, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = int64(i + 1)
	}
	return out, nil
}
