package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/jhkim0602/monguri-sub002/core"
)

// Redis key prefixes
const (
	redisEntryPrefix   = "cache:entry:"
	redisTagPrefix     = "cache:tag:"
	redisVersionPrefix = "cache:tagv:"
)

// RedisStore is a Store shared by every API instance. Entries expire after `expiry` so cold keys
// do not pile up; freshness is still decided by the Service from Entry.StoredAt.
type RedisStore struct {
	client *redis.Client
	expiry time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisClient connects to the configured redis server and pings it.
func NewRedisClient(ctx context.Context, conf core.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.RedisAddr,
		Password:     conf.RedisPassword,
		DB:           conf.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", conf.RedisAddr)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, expiry time.Duration) *RedisStore {
	if expiry <= 0 {
		expiry = 10 * DefaultTTL
	}
	return &RedisStore{client: client, expiry: expiry}
}

func (rs *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := rs.client.Get(ctx, redisEntryPrefix+key).Bytes()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "redis get")
	}
	var e Entry
	if err = json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, errors.Wrap(err, "decoding entry")
	}
	return e, true, nil
}

func (rs *RedisStore) Set(ctx context.Context, key string, entry Entry, tags []string, versions Versions) (bool, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return false, errors.Wrap(err, "encoding entry")
	}
	write := func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisEntryPrefix+key, raw, rs.expiry)
		for _, tag := range tags {
			pipe.SAdd(ctx, redisTagPrefix+tag, key)
		}
		return nil
	}

	if versions == nil || len(tags) == 0 {
		_, err = rs.client.TxPipelined(ctx, write)
		return err == nil, errors.Wrap(err, "redis set")
	}

	// an INCR on any watched version key between the check and EXEC aborts the write
	stored := false
	err = rs.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tagVersions(ctx, tx, tags)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			if current[tag] != versions[tag] {
				return nil
			}
		}
		if _, err = tx.TxPipelined(ctx, write); err != nil {
			return err
		}
		stored = true
		return nil
	}, versionKeys(tags)...)
	if err == redis.TxFailedErr {
		return false, nil
	}
	return stored, errors.Wrap(err, "redis set")
}

func (rs *RedisStore) TagVersions(ctx context.Context, tags []string) (Versions, error) {
	return tagVersions(ctx, rs.client, tags)
}

// InvalidateTag bumps the tag version first so writes computed earlier are refused, then drops the keys.
func (rs *RedisStore) InvalidateTag(ctx context.Context, tag string) error {
	if err := rs.client.Incr(ctx, redisVersionPrefix+tag).Err(); err != nil {
		return errors.Wrap(err, "redis incr")
	}
	setKey := redisTagPrefix + tag
	keys, err := rs.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return errors.Wrap(err, "redis smembers")
	}
	dels := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		dels = append(dels, redisEntryPrefix+k)
	}
	dels = append(dels, setKey)
	return errors.Wrap(rs.client.Del(ctx, dels...).Err(), "redis del")
}

func versionKeys(tags []string) []string {
	keys := make([]string, 0, len(tags))
	for _, tag := range tags {
		keys = append(keys, redisVersionPrefix+tag)
	}
	return keys
}

type multiGetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func tagVersions(ctx context.Context, c multiGetter, tags []string) (Versions, error) {
	vs := make(Versions, len(tags))
	if len(tags) == 0 {
		return vs, nil
	}
	vals, err := c.MGet(ctx, versionKeys(tags)...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis mget")
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // never invalidated
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing version of tag %q", tags[i])
		}
		vs[tags[i]] = n
	}
	return vs, nil
}
