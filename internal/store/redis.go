// internal/store/redis.go
//
// Redis-backed Store, for running several server instances against one
// shared game state (STORE_BACKEND=redis).
//
// Key layout (prefix "hangman:"):
//   game:{id}             HASH  owner, word, created_at, updated_at (unix ns)
//   game:{id}:letters     SET   guessed letters (duplicate guard)
//   game:{id}:guesses     LIST  "letter:unix_ns" in insertion order
//   owner:{owner}:games   ZSET  game IDs scored by updated_at (unix µs)
//
// Guess append and delete run as Lua scripts, so the duplicate check and the
// writes happen atomically on the server.

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

const redisPrefix = "hangman:"

// luaAppendGuess
// The owner index key is built inside the script from the stored owner, so
// it is not declared in KEYS. Only single-node Redis is supported; Cluster
// and key-routing proxies would reject or misroute it.
// KEYS: [gameKey, lettersKey, guessesKey]
// ARGV: [letter, nowNanos, nowMicros, ownerKeyPrefix, gameID]
// Returns -1 missing game, 0 duplicate, 1 appended.
const luaAppendGuess = `
	local owner = redis.call('HGET', KEYS[1], 'owner')
	if not owner then
		return -1
	end
	if redis.call('SADD', KEYS[2], ARGV[1]) == 0 then
		return 0
	end
	redis.call('RPUSH', KEYS[3], ARGV[1] .. ':' .. ARGV[2])
	redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
	redis.call('ZADD', ARGV[4] .. owner .. ':games', ARGV[3], ARGV[5])
	return 1
`

// luaDeleteGame
// KEYS: [gameKey, lettersKey, guessesKey, ownerIndexKey]
// ARGV: [ownerID, gameID]
const luaDeleteGame = `
	if redis.call('HGET', KEYS[1], 'owner') ~= ARGV[1] then
		return 0
	end
	redis.call('DEL', KEYS[1], KEYS[2], KEYS[3])
	redis.call('ZREM', KEYS[4], ARGV[2])
	return 1
`

type redisStore struct {
	rdb          *redis.Client
	appendScript *redis.Script
	deleteScript *redis.Script
	now          clock
}

// DialRedis connects and pings, failing fast on a bad address.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisStore builds a Store on top of rdb. Close closes the client.
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{
		rdb:          rdb,
		appendScript: redis.NewScript(luaAppendGuess),
		deleteScript: redis.NewScript(luaDeleteGame),
		now:          utcNow,
	}
}

func gameKey(id string) string     { return redisPrefix + "game:" + id }
func lettersKey(id string) string  { return redisPrefix + "game:" + id + ":letters" }
func guessesKey(id string) string  { return redisPrefix + "game:" + id + ":guesses" }
func ownerKey(owner string) string { return redisPrefix + "owner:" + owner + ":games" }

func (s *redisStore) CreateGame(ctx context.Context, ownerID, word string) (*game.Game, error) {
	t := s.now()
	g := &game.Game{ID: newID(), OwnerID: ownerID, Word: word, CreatedAt: t, UpdatedAt: t}
	ns := strconv.FormatInt(t.UnixNano(), 10)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, gameKey(g.ID), map[string]any{
			"owner":      ownerID,
			"word":       word,
			"created_at": ns,
			"updated_at": ns,
		})
		p.ZAdd(ctx, ownerKey(ownerID), redis.Z{Score: float64(t.UnixMicro()), Member: g.ID})
		return nil
	})
	if err != nil {
		return nil, storageErr("create game", err)
	}
	return g, nil
}

func (s *redisStore) GetGame(ctx context.Context, id, ownerID string) (*game.Game, error) {
	h, err := s.rdb.HGetAll(ctx, gameKey(id)).Result()
	if err != nil {
		return nil, storageErr("get game", err)
	}
	if len(h) == 0 || h["owner"] != ownerID {
		return nil, game.ErrNotFound
	}
	created, err := parseNanos(h["created_at"])
	if err != nil {
		return nil, storageErr("get game", err)
	}
	updated, err := parseNanos(h["updated_at"])
	if err != nil {
		return nil, storageErr("get game", err)
	}
	return &game.Game{
		ID:        id,
		OwnerID:   h["owner"],
		Word:      h["word"],
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func (s *redisStore) ListGames(ctx context.Context, ownerID string) ([]game.GameSummary, error) {
	ids, err := s.rdb.ZRevRange(ctx, ownerKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, storageErr("list games", err)
	}
	out := []game.GameSummary{}
	if len(ids) == 0 {
		return out, nil
	}

	cmds := make([]*redis.SliceCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HMGet(ctx, gameKey(id), "owner", "created_at", "updated_at")
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("list games", err)
	}

	for i, cmd := range cmds {
		vals := cmd.Val()
		owner, _ := vals[0].(string)
		if owner != ownerID {
			// index entry left behind by a concurrent delete
			continue
		}
		createdStr, _ := vals[1].(string)
		updatedStr, _ := vals[2].(string)
		created, err := parseNanos(createdStr)
		if err != nil {
			return nil, storageErr("list games", err)
		}
		updated, err := parseNanos(updatedStr)
		if err != nil {
			return nil, storageErr("list games", err)
		}
		out = append(out, game.GameSummary{ID: ids[i], CreatedAt: created, UpdatedAt: updated})
	}
	sortSummaries(out)
	return out, nil
}

func (s *redisStore) DeleteGame(ctx context.Context, id, ownerID string) error {
	keys := []string{gameKey(id), lettersKey(id), guessesKey(id), ownerKey(ownerID)}
	if err := s.deleteScript.Run(ctx, s.rdb, keys, ownerID, id).Err(); err != nil {
		return storageErr("delete game", err)
	}
	return nil
}

func (s *redisStore) ListGuesses(ctx context.Context, gameID string) ([]game.Guess, error) {
	entries, err := s.rdb.LRange(ctx, guessesKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, storageErr("list guesses", err)
	}
	out := make([]game.Guess, 0, len(entries))
	for _, e := range entries {
		letter, ns, ok := strings.Cut(e, ":")
		if !ok {
			return nil, storageErr("list guesses", fmt.Errorf("malformed entry %q", e))
		}
		t, err := parseNanos(ns)
		if err != nil {
			return nil, storageErr("list guesses", err)
		}
		out = append(out, game.Guess{GameID: gameID, Letter: letter, CreatedAt: t})
	}
	return out, nil
}

func (s *redisStore) AppendGuess(ctx context.Context, gameID, letter string) (*game.Guess, error) {
	letter = strings.ToLower(letter)
	t := s.now()
	keys := []string{gameKey(gameID), lettersKey(gameID), guessesKey(gameID)}
	res, err := s.appendScript.Run(ctx, s.rdb, keys,
		letter,
		strconv.FormatInt(t.UnixNano(), 10),
		strconv.FormatInt(t.UnixMicro(), 10),
		redisPrefix+"owner:",
		gameID,
	).Int()
	if err != nil {
		return nil, storageErr("append guess", err)
	}
	switch res {
	case -1:
		return nil, game.ErrNotFound
	case 0:
		return nil, ErrAlreadyGuessed
	}
	return &game.Guess{GameID: gameID, Letter: letter, CreatedAt: t}, nil
}

func (s *redisStore) Close() error { return s.rdb.Close() }

func parseNanos(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return fromNanos(n), nil
}
