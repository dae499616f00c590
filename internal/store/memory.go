package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"wealthwars/internal/game"
)

// Memory keeps players in process. Every read and write goes through a deep
// copy so callers never share slices with the store.
type Memory struct {
	mu      sync.Mutex
	players map[string]game.Player
	keys    map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		players: map[string]game.Player{},
		keys:    map[string]struct{}{},
	}
}

func (m *Memory) CreatePlayer(_ context.Context, p game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[p.ID]; ok {
		return fmt.Errorf("%w: %s", game.ErrPlayerExists, p.ID)
	}
	for _, other := range m.players {
		if other.Username == p.Username {
			return fmt.Errorf("%w: username %s", game.ErrPlayerExists, p.Username)
		}
	}
	m.players[p.ID] = p.Clone()
	return nil
}

func (m *Memory) GetPlayer(_ context.Context, id string) (game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return game.Player{}, fmt.Errorf("%w: %s", game.ErrPlayerNotFound, id)
	}
	return p.Clone(), nil
}

func (m *Memory) ListPlayers(_ context.Context) ([]game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdatePlayer(_ context.Context, id string, fn func(p *game.Player) error) (game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.players[id]
	if !ok {
		return game.Player{}, fmt.Errorf("%w: %s", game.ErrPlayerNotFound, id)
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return game.Player{}, err
	}
	m.players[id] = next.Clone()
	return next, nil
}

func (m *Memory) UpdatePlayers(_ context.Context, aID, bID, key string, fn func(a, b *game.Player) error) (game.Player, game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if aID == bID {
		return game.Player{}, game.Player{}, game.ErrSelfTarget
	}
	claim := aID + "\x00" + key
	if key != "" {
		if _, dup := m.keys[claim]; dup {
			return game.Player{}, game.Player{}, game.ErrDuplicateBid
		}
	}
	ca, ok := m.players[aID]
	if !ok {
		return game.Player{}, game.Player{}, fmt.Errorf("%w: %s", game.ErrPlayerNotFound, aID)
	}
	cb, ok := m.players[bID]
	if !ok {
		return game.Player{}, game.Player{}, fmt.Errorf("%w: %s", game.ErrPlayerNotFound, bID)
	}
	a, b := ca.Clone(), cb.Clone()
	if err := fn(&a, &b); err != nil {
		return game.Player{}, game.Player{}, err
	}
	if key != "" {
		m.keys[claim] = struct{}{}
	}
	m.players[aID] = a.Clone()
	m.players[bID] = b.Clone()
	return a, b, nil
}
