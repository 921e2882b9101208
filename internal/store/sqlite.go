// internal/store/sqlite.go
//
// SQLite helpers and the SQLite-backed Store.
// Responsibilities:
//   - Opening SQLite with safe defaults (WAL, busy timeout, foreign keys,
//     immediate transactions so writers queue instead of failing on upgrade).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Games/guesses persistence with UNIQUE(game_id, letter) as the
//     duplicate-guess guard.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

// OpenSQLite opens (and creates if missing) a SQLite database file.
//
//   - Ensures the parent directory exists for relative paths (./data/app.db).
//   - Busy timeout + WAL journaling; foreign keys on every pooled connection.
//   - BEGIN IMMEDIATE for transactions, so concurrent AppendGuess calls
//     serialize on the write lock rather than erroring on lock upgrade.
func OpenSQLite(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	dsn := path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return db, nil
}

// Migrate applies *.sql files from migrations in lexical order.
//
//   - Uses a _migrations table to track applied files.
//   - Skips files already applied.
//   - Scripts that manage their own transaction (BEGIN TRANSACTION) or turn
//     foreign keys off are run outside of an outer transaction.
func Migrate(db *sql.DB, migrations fs.FS) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	var files []string
	if err := fs.WalkDir(migrations, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("walk migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlBytes, err := fs.ReadFile(migrations, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		sqlText := string(sqlBytes)

		upper := strings.ToUpper(sqlText)
		selfManaged := strings.Contains(upper, "BEGIN TRANSACTION") ||
			strings.Contains(upper, "PRAGMA FOREIGN_KEYS=OFF") ||
			strings.Contains(upper, "PRAGMA FOREIGN_KEYS = OFF")

		if selfManaged {
			if _, err := db.Exec(sqlText); err != nil {
				return fmt.Errorf("apply %s: %w", f, err)
			}
			if _, err := db.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
				return fmt.Errorf("record %s: %w", f, err)
			}
			log.Info().Str("migration", f).Msg("applied (self-managed)")
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(sqlText); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

// sqliteStore persists games in the games/guesses tables.
// Timestamps are stored as unix nanoseconds.
type sqliteStore struct {
	db  *sql.DB
	now clock
}

// NewSQLiteStore wraps an opened and migrated database.
// The caller keeps ownership of db; Close is a no-op.
func NewSQLiteStore(db *sql.DB) Store {
	return &sqliteStore{db: db, now: utcNow}
}

func (s *sqliteStore) CreateGame(ctx context.Context, ownerID, word string) (*game.Game, error) {
	t := s.now()
	g := &game.Game{ID: newID(), OwnerID: ownerID, Word: word, CreatedAt: t, UpdatedAt: t}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, owner_id, word, created_at, updated_at) VALUES (?,?,?,?,?)`,
		g.ID, g.OwnerID, g.Word, t.UnixNano(), t.UnixNano())
	if err != nil {
		return nil, storageErr("create game", err)
	}
	return g, nil
}

func (s *sqliteStore) GetGame(ctx context.Context, id, ownerID string) (*game.Game, error) {
	var (
		g                game.Game
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, word, created_at, updated_at FROM games WHERE id=? AND owner_id=?`,
		id, ownerID,
	).Scan(&g.ID, &g.OwnerID, &g.Word, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get game", err)
	}
	g.CreatedAt, g.UpdatedAt = fromNanos(created), fromNanos(updated)
	return &g, nil
}

func (s *sqliteStore) ListGames(ctx context.Context, ownerID string) ([]game.GameSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, updated_at
		FROM games
		WHERE owner_id=?
		ORDER BY updated_at DESC, created_at DESC, rowid DESC`, ownerID)
	if err != nil {
		return nil, storageErr("list games", err)
	}
	defer rows.Close()

	out := []game.GameSummary{}
	for rows.Next() {
		var (
			gs               game.GameSummary
			created, updated int64
		)
		if err := rows.Scan(&gs.ID, &created, &updated); err != nil {
			return nil, storageErr("list games", err)
		}
		gs.CreatedAt, gs.UpdatedAt = fromNanos(created), fromNanos(updated)
		out = append(out, gs)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list games", err)
	}
	return out, nil
}

func (s *sqliteStore) DeleteGame(ctx context.Context, id, ownerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("delete game", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id=? AND owner_id=?`, id, ownerID)
	if err != nil {
		return storageErr("delete game", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		// ON DELETE CASCADE covers this; explicit for databases opened without FKs.
		if _, err := tx.ExecContext(ctx, `DELETE FROM guesses WHERE game_id=?`, id); err != nil {
			return storageErr("delete guesses", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("delete game", err)
	}
	return nil
}

func (s *sqliteStore) ListGuesses(ctx context.Context, gameID string) ([]game.Guess, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT letter, created_at FROM guesses WHERE game_id=? ORDER BY id ASC`, gameID)
	if err != nil {
		return nil, storageErr("list guesses", err)
	}
	defer rows.Close()

	out := []game.Guess{}
	for rows.Next() {
		var (
			gs      = game.Guess{GameID: gameID}
			created int64
		)
		if err := rows.Scan(&gs.Letter, &created); err != nil {
			return nil, storageErr("list guesses", err)
		}
		gs.CreatedAt = fromNanos(created)
		out = append(out, gs)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list guesses", err)
	}
	return out, nil
}

// AppendGuess runs existence check, insert and parent bump in one
// immediate transaction. INSERT OR IGNORE against UNIQUE(game_id, letter)
// turns a duplicate into zero affected rows.
func (s *sqliteStore) AppendGuess(ctx context.Context, gameID, letter string) (*game.Guess, error) {
	letter = strings.ToLower(letter)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("append guess", err)
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id=?`, gameID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("append guess", err)
	}

	t := s.now()
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO guesses (game_id, letter, created_at) VALUES (?,?,?)`,
		gameID, letter, t.UnixNano())
	if err != nil {
		return nil, storageErr("append guess", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, storageErr("append guess", err)
	}
	if n == 0 {
		return nil, ErrAlreadyGuessed
	}
	if _, err := tx.ExecContext(ctx, `UPDATE games SET updated_at=? WHERE id=?`, t.UnixNano(), gameID); err != nil {
		return nil, storageErr("touch game", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageErr("append guess", err)
	}
	return &game.Guess{GameID: gameID, Letter: letter, CreatedAt: t}, nil
}

func (s *sqliteStore) Close() error { return nil }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
