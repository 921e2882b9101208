// internal/store/memory.go
//
// In-memory implementation of Store.
// Used for ephemeral sessions in development/testing, or when durability is
// not required (STORE_BACKEND=memory).
//
// Characteristics:
//   - Games and guesses live in maps keyed by game ID.
//   - Concurrency-safe via RWMutex; AppendGuess runs its duplicate check and
//     insert under the write lock, which makes it atomic per game.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"strings"
	"sync"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex            // guards everything below
	games   map[string]*game.Game   // keyed by Game.ID
	guesses map[string][]game.Guess // keyed by Game.ID, insertion order
	now     clock
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return newMemory(utcNow)
}

func newMemory(now clock) *memory {
	return &memory{
		games:   make(map[string]*game.Game),
		guesses: make(map[string][]game.Guess),
		now:     now,
	}
}

func (m *memory) CreateGame(ctx context.Context, ownerID, word string) (*game.Game, error) {
	t := m.now()
	g := &game.Game{
		ID:        newID(),
		OwnerID:   ownerID,
		Word:      word,
		CreatedAt: t,
		UpdatedAt: t,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	cp := *g
	return &cp, nil
}

func (m *memory) GetGame(ctx context.Context, id, ownerID string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok || g.OwnerID != ownerID {
		return nil, game.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memory) ListGames(ctx context.Context, ownerID string) ([]game.GameSummary, error) {
	m.mu.RLock()
	out := []game.GameSummary{}
	for _, g := range m.games {
		if g.OwnerID == ownerID {
			out = append(out, game.GameSummary{ID: g.ID, CreatedAt: g.CreatedAt, UpdatedAt: g.UpdatedAt})
		}
	}
	m.mu.RUnlock()
	sortSummaries(out)
	return out, nil
}

func (m *memory) DeleteGame(ctx context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[id]; ok && g.OwnerID == ownerID {
		delete(m.games, id)
		delete(m.guesses, id)
	}
	return nil
}

func (m *memory) ListGuesses(ctx context.Context, gameID string) ([]game.Guess, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]game.Guess{}, m.guesses[gameID]...), nil
}

func (m *memory) AppendGuess(ctx context.Context, gameID, letter string) (*game.Guess, error) {
	letter = strings.ToLower(letter)
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, game.ErrNotFound
	}
	for _, existing := range m.guesses[gameID] {
		if existing.Letter == letter {
			return nil, ErrAlreadyGuessed
		}
	}
	gs := game.Guess{GameID: gameID, Letter: letter, CreatedAt: m.now()}
	m.guesses[gameID] = append(m.guesses[gameID], gs)
	g.UpdatedAt = gs.CreatedAt
	return &gs, nil
}

func (m *memory) Close() error { return nil }
