package games

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultStateTTL = 24 * time.Hour

// Store keeps invites and matches in Redis, one JSON document per key.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// OpenRedis dials REDIS_URL and verifies the connection.
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for games")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}

func inviteKey(kind Kind, id string) string { return "famhub:" + string(kind) + ":invite:" + strings.TrimSpace(id) }
func inboxKey(kind Kind, userID string) string {
	return "famhub:" + string(kind) + ":inbox:" + strings.TrimSpace(userID)
}
func matchKey(kind Kind, id string) string { return "famhub:" + string(kind) + ":match:" + strings.TrimSpace(id) }

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getJSON[T any](ctx context.Context, c getter, key string) (*T, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) LoadInvite(ctx context.Context, kind Kind, id string) (*Invite, error) {
	return getJSON[Invite](ctx, s.rdb, inviteKey(kind, id))
}

func (s *Store) LoadMatch(ctx context.Context, kind Kind, id string) (*Match, error) {
	return getJSON[Match](ctx, s.rdb, matchKey(kind, id))
}

// SaveInvite writes the invite and indexes it in the addressee's inbox,
// scored by creation time.
func (s *Store) SaveInvite(ctx context.Context, inv *Invite) error {
	raw, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	inbox := inboxKey(inv.Kind, inv.ToUserID)
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, inviteKey(inv.Kind, inv.ID), raw, s.ttl)
	pipe.ZAdd(ctx, inbox, redis.Z{Score: float64(inv.CreatedAt.UnixNano()), Member: inv.ID})
	pipe.Expire(ctx, inbox, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Inbox returns invite ids addressed to userID, newest first.
func (s *Store) Inbox(ctx context.Context, kind Kind, userID string) ([]string, error) {
	return s.rdb.ZRevRange(ctx, inboxKey(kind, userID), 0, -1).Result()
}

func (s *Store) DropFromInbox(ctx context.Context, kind Kind, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	return s.rdb.ZRem(ctx, inboxKey(kind, userID), members...).Err()
}

// queue adds a JSON SET with the store TTL to an open transaction pipeline.
func (s *Store) queue(ctx context.Context, pipe redis.Pipeliner, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	pipe.Set(ctx, key, raw, s.ttl)
	return nil
}
