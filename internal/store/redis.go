package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saolsen/gameplay/game"
)

// Redis stores a match snapshot as a JSON string, its turns as a list of
// JSON strings, and indexes matches in sorted sets scored by creation time:
//
//	<prefix>match:<id>          snapshot
//	<prefix>match:<id>:turns    turn log
//	<prefix>matches             every match id
//	<prefix>matches:<game>      match ids per game
//
// Writes to a match run in WATCH/MULTI transactions on the snapshot key.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ Store = (*Redis)(nil)

// NewRedis connects to the server at url (redis://...) and pings it.
// Keys are namespaced under prefix.
func NewRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (s *Redis) matchKey(id string) string { return s.prefix + "match:" + id }
func (s *Redis) turnsKey(id string) string { return s.prefix + "match:" + id + ":turns" }
func (s *Redis) indexKey(kind game.Kind) string {
	if kind == "" {
		return s.prefix + "matches"
	}
	return s.prefix + "matches:" + string(kind)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Redis) get(ctx context.Context, c getter, id string) (*Match, error) {
	data, err := c.Get(ctx, s.matchKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var m Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode match %s: %w", id, err)
	}
	return &m, nil
}

func (s *Redis) CreateMatch(ctx context.Context, m *Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.matchKey(m.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	score := float64(m.CreatedAt.UnixMilli())
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.indexKey(""), redis.Z{Score: score, Member: m.ID})
		pipe.ZAdd(ctx, s.indexKey(m.Game), redis.Z{Score: score, Member: m.ID})
		return nil
	})
	return err
}

// update runs fn against the current snapshot and writes the result, along
// with any extra commands fn queued, in one transaction.
func (s *Redis) update(ctx context.Context, id string, fn func(m *Match, pipe redis.Pipeliner) error) error {
	key := s.matchKey(id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		m, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if err := fn(m, pipe); err != nil {
				return err
			}
			data, err := json.Marshal(m)
			if err != nil {
				return err
			}
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

func (s *Redis) AppendTurn(ctx context.Context, id string, t Turn) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.update(ctx, id, func(m *Match, pipe redis.Pipeliner) error {
		if err := checkTurn(m, t); err != nil {
			return err
		}
		applyTurn(m, t)
		pipe.RPush(ctx, s.turnsKey(id), data)
		return nil
	})
}

func (s *Redis) FinishMatch(ctx context.Context, id string, status game.Status, at time.Time) error {
	return s.update(ctx, id, func(m *Match, _ redis.Pipeliner) error {
		if m.Status.Over {
			return ErrConflict
		}
		m.Status = status
		m.UpdatedAt = at
		return nil
	})
}

func (s *Redis) GetMatch(ctx context.Context, id string) (*Match, error) {
	return s.get(ctx, s.client, id)
}

func (s *Redis) ListTurns(ctx context.Context, id string) ([]Turn, error) {
	m, err := s.get(ctx, s.client, id)
	if err != nil {
		return nil, err
	}
	if m.Turns == 0 {
		return []Turn{}, nil
	}
	// The snapshot's turn count bounds the log against a concurrent append.
	items, err := s.client.LRange(ctx, s.turnsKey(id), 0, int64(m.Turns)-1).Result()
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, len(items))
	for i, item := range items {
		if err := json.Unmarshal([]byte(item), &turns[i]); err != nil {
			return nil, fmt.Errorf("decode turn %d: %w", i+1, err)
		}
	}
	return turns, nil
}

func (s *Redis) ListMatches(ctx context.Context, opts ListOptions) ([]Match, error) {
	stop := int64(-1)
	if opts.Limit > 0 {
		stop = int64(opts.Limit) - 1
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(opts.Game), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.matchKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	ms := make([]Match, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var m Match
		if err := json.Unmarshal([]byte(str), &m); err != nil {
			return nil, fmt.Errorf("decode match %s: %w", ids[i], err)
		}
		ms = append(ms, m)
	}
	// Ties in creation millisecond fall back to id order.
	newestFirst(ms)
	return ms, nil
}

func (s *Redis) Close() error { return s.client.Close() }
