// Package valkey is a grant cache shared between server instances through
// Valkey (or any Redis-compatible server).
package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	valkey "github.com/valkey-io/valkey-go"
)

const (
	defaultPrefix  = "ciba:"
	updateAttempts = 8
)

// Create-only write that also enrols the entry in the expiry index.
const putScript = `
if redis.call("set", KEYS[1], ARGV[1], "NX", "PX", ARGV[2]) then
	if ARGV[4] ~= "" then
		redis.call("zadd", KEYS[2], ARGV[3], ARGV[4])
	end
	return 1
end
return 0
`

// Compare-and-swap on the whole serialised value. Returns -1 when the key
// is gone and 0 when another writer got there first.
const casScript = `
local cur = redis.call("get", KEYS[1])
if not cur then
	return -1
end
if cur ~= ARGV[1] then
	return 0
end
redis.call("set", KEYS[1], ARGV[2], "KEEPTTL")
if ARGV[3] ~= "" then
	redis.call("zrem", KEYS[2], ARGV[3])
end
return 1
`

const popScript = `
local due = redis.call("zrangebyscore", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, ARGV[2])
for _, m in ipairs(due) do
	redis.call("zrem", KEYS[1], m)
end
return due
`

// Cache implements store.GrantCache. Grant keys and the expiry index must
// live on the same node, so cluster deployments are not supported.
type Cache struct {
	client valkey.Client
	prefix string
}

// Dial connects to addr ("host:port").
func Dial(addr, prefix string) (*Cache, error) {
	cli, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("valkey: connect %s: %w", addr, err)
	}
	return NewCache(cli, prefix), nil
}

// NewCache wraps an existing client. prefix namespaces every key.
func NewCache(client valkey.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) key(k string) string { return c.prefix + "grant:" + k }
func (c *Cache) indexKey() string    { return c.prefix + "expiry" }

func (c *Cache) get(ctx context.Context, key string) (string, domain.CIBACacheGrant, error) {
	res := c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build())
	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return "", domain.CIBACacheGrant{}, store.ErrNotFound
		}
		return "", domain.CIBACacheGrant{}, err
	}
	raw, err := res.ToString()
	if err != nil {
		return "", domain.CIBACacheGrant{}, err
	}

	var g domain.CIBACacheGrant
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return "", domain.CIBACacheGrant{}, fmt.Errorf("valkey: decode grant %s: %w", key, err)
	}
	return raw, g, nil
}

func (c *Cache) Get(ctx context.Context, key string) (domain.CIBACacheGrant, error) {
	_, g, err := c.get(ctx, key)
	return g, err
}

func indexMember(g domain.CIBACacheGrant) (string, error) {
	b, err := json.Marshal(store.ExpiryRecord(g))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Cache) Put(ctx context.Context, key string, ttl time.Duration, g domain.CIBACacheGrant) error {
	if ttl <= 0 {
		return fmt.Errorf("valkey: non-positive ttl %s for %s", ttl, key)
	}
	val, err := json.Marshal(g)
	if err != nil {
		return err
	}

	var member string
	if !g.RequestStatus.IsTerminal() {
		if member, err = indexMember(g); err != nil {
			return err
		}
	}

	res := c.client.Do(ctx, c.client.B().Eval().Script(putScript).Numkeys(2).
		Key(c.key(key), c.indexKey()).
		Arg(string(val), strconv.FormatInt(ttl.Milliseconds(), 10), strconv.FormatInt(g.ExpiresAt, 10), member).
		Build())
	stored, err := res.ToInt64()
	if err != nil {
		return err
	}
	if stored == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (c *Cache) Update(ctx context.Context, key string, fn func(g *domain.CIBACacheGrant) error) (domain.CIBACacheGrant, error) {
	for range updateAttempts {
		raw, cur, err := c.get(ctx, key)
		if err != nil {
			return domain.CIBACacheGrant{}, err
		}

		// Decode a second copy so fn cannot alias cur.
		var next domain.CIBACacheGrant
		if err := json.Unmarshal([]byte(raw), &next); err != nil {
			return domain.CIBACacheGrant{}, err
		}
		if err := fn(&next); err != nil {
			return cur, err
		}
		next.Version = cur.Version + 1

		val, err := json.Marshal(next)
		if err != nil {
			return domain.CIBACacheGrant{}, err
		}

		var member string
		if !cur.RequestStatus.IsTerminal() && next.RequestStatus.IsTerminal() {
			if member, err = indexMember(cur); err != nil {
				return domain.CIBACacheGrant{}, err
			}
		}

		res := c.client.Do(ctx, c.client.B().Eval().Script(casScript).Numkeys(2).
			Key(c.key(key), c.indexKey()).
			Arg(raw, string(val), member).
			Build())
		swapped, err := res.ToInt64()
		if err != nil {
			return domain.CIBACacheGrant{}, err
		}
		switch swapped {
		case 1:
			return next, nil
		case -1:
			return domain.CIBACacheGrant{}, store.ErrNotFound
		}
	}
	return domain.CIBACacheGrant{}, store.ErrConflict
}

func (c *Cache) PopExpired(ctx context.Context, now time.Time, limit int) ([]store.ExpiredGrant, error) {
	if limit <= 0 {
		limit = 100
	}
	res := c.client.Do(ctx, c.client.B().Eval().Script(popScript).Numkeys(1).
		Key(c.indexKey()).
		Arg(strconv.FormatInt(now.UnixMilli(), 10), strconv.Itoa(limit)).
		Build())
	members, err := res.AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]store.ExpiredGrant, 0, len(members))
	var errs []error
	for _, m := range members {
		var rec store.ExpiredGrant
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			errs = append(errs, fmt.Errorf("valkey: decode expiry record: %w", err))
			continue
		}
		out = append(out, rec)
	}
	return out, errors.Join(errs...)
}

func (c *Cache) Requeue(ctx context.Context, rec store.ExpiredGrant) error {
	member, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Do(ctx, c.client.B().Zadd().Key(c.indexKey()).
		ScoreMember().ScoreMember(float64(rec.ExpiresAt), string(member)).
		Build()).Error()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

func (c *Cache) Close() error {
	c.client.Close()
	return nil
}
