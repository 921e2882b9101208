package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

// stepClock hands out strictly increasing timestamps so ordering
// assertions never depend on wall-clock resolution.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

// runContract exercises the behaviour every Store must share.
func runContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := open(t)
		g, err := s.CreateGame(ctx, "alice", "cat")
		if err != nil {
			t.Fatalf("CreateGame: %v", err)
		}
		if g.ID == "" || g.OwnerID != "alice" || g.Word != "cat" {
			t.Fatalf("unexpected game %+v", g)
		}
		if !g.CreatedAt.Equal(g.UpdatedAt) {
			t.Fatalf("fresh game timestamps differ: %v vs %v", g.CreatedAt, g.UpdatedAt)
		}
		got, err := s.GetGame(ctx, g.ID, "alice")
		if err != nil {
			t.Fatalf("GetGame: %v", err)
		}
		if got.ID != g.ID || got.Word != "cat" || !got.CreatedAt.Equal(g.CreatedAt) {
			t.Fatalf("GetGame = %+v, want %+v", got, g)
		}
		guesses, err := s.ListGuesses(ctx, g.ID)
		if err != nil || len(guesses) != 0 {
			t.Fatalf("ListGuesses = %v, %v; want empty", guesses, err)
		}
	})

	t.Run("ownership is opaque", func(t *testing.T) {
		s := open(t)
		g, _ := s.CreateGame(ctx, "alice", "cat")
		if _, err := s.GetGame(ctx, g.ID, "mallory"); !errors.Is(err, game.ErrNotFound) {
			t.Fatalf("other owner: err = %v, want ErrNotFound", err)
		}
		if _, err := s.GetGame(ctx, "does-not-exist", "alice"); !errors.Is(err, game.ErrNotFound) {
			t.Fatalf("missing: err = %v, want ErrNotFound", err)
		}
		list, err := s.ListGames(ctx, "mallory")
		if err != nil || len(list) != 0 {
			t.Fatalf("ListGames(mallory) = %v, %v", list, err)
		}
	})

	t.Run("list newest updated first", func(t *testing.T) {
		s := open(t)
		g1, _ := s.CreateGame(ctx, "alice", "one")
		g2, _ := s.CreateGame(ctx, "alice", "two")
		g3, _ := s.CreateGame(ctx, "alice", "three")
		_, _ = s.CreateGame(ctx, "bob", "four")

		list, err := s.ListGames(ctx, "alice")
		if err != nil {
			t.Fatalf("ListGames: %v", err)
		}
		assertOrder(t, list, g3.ID, g2.ID, g1.ID)

		if _, err := s.AppendGuess(ctx, g1.ID, "o"); err != nil {
			t.Fatalf("AppendGuess: %v", err)
		}
		list, _ = s.ListGames(ctx, "alice")
		assertOrder(t, list, g1.ID, g3.ID, g2.ID)
	})

	t.Run("append guess", func(t *testing.T) {
		s := open(t)
		g, _ := s.CreateGame(ctx, "alice", "cat")
		for _, l := range []string{"a", "C", "x"} {
			if _, err := s.AppendGuess(ctx, g.ID, l); err != nil {
				t.Fatalf("AppendGuess(%q): %v", l, err)
			}
		}
		guesses, err := s.ListGuesses(ctx, g.ID)
		if err != nil {
			t.Fatalf("ListGuesses: %v", err)
		}
		got := game.Letters(guesses)
		want := []string{"a", "c", "x"}
		if len(got) != len(want) {
			t.Fatalf("letters = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("letters = %v, want %v", got, want)
			}
		}

		after, _ := s.GetGame(ctx, g.ID, "alice")
		if !after.UpdatedAt.After(g.UpdatedAt) {
			t.Fatalf("UpdatedAt not advanced: %v -> %v", g.UpdatedAt, after.UpdatedAt)
		}
		if !after.CreatedAt.Equal(g.CreatedAt) {
			t.Fatalf("CreatedAt changed: %v -> %v", g.CreatedAt, after.CreatedAt)
		}
	})

	t.Run("duplicate guess rejected", func(t *testing.T) {
		s := open(t)
		g, _ := s.CreateGame(ctx, "alice", "cat")
		if _, err := s.AppendGuess(ctx, g.ID, "a"); err != nil {
			t.Fatalf("first append: %v", err)
		}
		before, _ := s.GetGame(ctx, g.ID, "alice")
		if _, err := s.AppendGuess(ctx, g.ID, "A"); !errors.Is(err, ErrAlreadyGuessed) {
			t.Fatalf("second append err = %v, want ErrAlreadyGuessed", err)
		}
		guesses, _ := s.ListGuesses(ctx, g.ID)
		if len(guesses) != 1 {
			t.Fatalf("stored %d guesses, want 1", len(guesses))
		}
		after, _ := s.GetGame(ctx, g.ID, "alice")
		if !after.UpdatedAt.Equal(before.UpdatedAt) {
			t.Fatal("rejected duplicate must not touch UpdatedAt")
		}
	})

	t.Run("append to missing game", func(t *testing.T) {
		s := open(t)
		if _, err := s.AppendGuess(ctx, "nope", "a"); !errors.Is(err, game.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("concurrent duplicate appends", func(t *testing.T) {
		s := open(t)
		g, _ := s.CreateGame(ctx, "alice", "cat")

		const n = 16
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok, dups int
			other    []error
		)
		start := make(chan struct{})
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				letter := "t"
				if i%2 == 0 {
					letter = "T"
				}
				_, err := s.AppendGuess(ctx, g.ID, letter)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, ErrAlreadyGuessed):
					dups++
				default:
					other = append(other, err)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		if len(other) > 0 {
			t.Fatalf("unexpected errors: %v", other)
		}
		if ok != 1 || dups != n-1 {
			t.Fatalf("ok=%d dups=%d, want 1 and %d", ok, dups, n-1)
		}
		guesses, _ := s.ListGuesses(ctx, g.ID)
		if len(guesses) != 1 {
			t.Fatalf("stored %d guesses, want 1", len(guesses))
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		g, _ := s.CreateGame(ctx, "alice", "cat")
		_, _ = s.AppendGuess(ctx, g.ID, "a")

		if err := s.DeleteGame(ctx, g.ID, "mallory"); err != nil {
			t.Fatalf("delete by other owner: %v", err)
		}
		if _, err := s.GetGame(ctx, g.ID, "alice"); err != nil {
			t.Fatalf("game should survive foreign delete: %v", err)
		}
		if err := s.DeleteGame(ctx, "does-not-exist", "alice"); err != nil {
			t.Fatalf("delete missing: %v", err)
		}

		if err := s.DeleteGame(ctx, g.ID, "alice"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.GetGame(ctx, g.ID, "alice"); !errors.Is(err, game.ErrNotFound) {
			t.Fatalf("after delete err = %v, want ErrNotFound", err)
		}
		guesses, err := s.ListGuesses(ctx, g.ID)
		if err != nil || len(guesses) != 0 {
			t.Fatalf("guesses after delete = %v, %v", guesses, err)
		}
		list, _ := s.ListGames(ctx, "alice")
		if len(list) != 0 {
			t.Fatalf("list after delete = %v", list)
		}
		if err := s.DeleteGame(ctx, g.ID, "alice"); err != nil {
			t.Fatalf("second delete: %v", err)
		}
	})
}

func assertOrder(t *testing.T, list []game.GameSummary, ids ...string) {
	t.Helper()
	if len(list) != len(ids) {
		t.Fatalf("got %d games, want %d", len(list), len(ids))
	}
	for i, id := range ids {
		if list[i].ID != id {
			t.Fatalf("position %d = %s, want %s (list %+v)", i, list[i].ID, id, list)
		}
	}
}
