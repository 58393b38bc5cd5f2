package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim0602/monguri-sub002/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

var _ core.Logger = nopLogger{}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, store Store) (*Service, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	return NewService(store, DefaultTTL, clk.now, nopLogger{}), clk
}

// stores returns the stores to run the contract tests against; redis only when TEST_REDIS_ADDR is set.
func stores(t *testing.T) map[string]Store {
	res := map[string]Store{"memory": NewMemoryStore()}
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		client, err := NewRedisClient(context.Background(), core.CacheConfig{RedisAddr: addr, RedisDB: 15})
		require.NoError(t, err)
		require.NoError(t, client.FlushDB(context.Background()).Err())
		t.Cleanup(func() { _ = client.Close() })
		res["redis"] = NewRedisStore(client, time.Minute)
	}
	return res
}

func TestService_Read_freshness(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			svc, clk := newTestService(t, store)
			ctx := context.Background()
			svc.Write(ctx, "overview:m1", map[string]int{"total": 3}, MenteeTag("m1"))

			clk.advance(59 * time.Second)
			res, ok := svc.Read(ctx, "overview:m1")
			require.True(t, ok)
			assert.False(t, res.Stale)
			assert.JSONEq(t, `{"total":3}`, string(res.Data))

			clk.advance(2 * time.Second)
			res, ok = svc.Read(ctx, "overview:m1")
			require.True(t, ok)
			assert.True(t, res.Stale)

			_, ok = svc.Read(ctx, "overview:unknown")
			assert.False(t, ok)
		})
	}
}

func TestRemember(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			svc, clk := newTestService(t, store)
			ctx := context.Background()
			tags := []string{MenteeTag("m1")}

			calls := 0
			compute := func(context.Context) ([]string, error) {
				calls++
				return []string{"a", "b"}, nil
			}

			for i := 0; i < 3; i++ {
				got, err := Remember(ctx, svc, "tasks:m1", tags, compute)
				require.NoError(t, err)
				assert.Equal(t, []string{"a", "b"}, got)
			}
			assert.Equal(t, 1, calls)

			clk.advance(DefaultTTL)
			_, err := Remember(ctx, svc, "tasks:m1", tags, compute)
			require.NoError(t, err)
			assert.Equal(t, 2, calls, "stale entries are recomputed")

			svc.InvalidateTag(ctx, MenteeTag("m1"))
			_, err = Remember(ctx, svc, "tasks:m1", tags, compute)
			require.NoError(t, err)
			assert.Equal(t, 3, calls, "invalidated entries are recomputed")

			// another tag leaves the entry alone
			svc.InvalidateTag(ctx, MenteeTag("m2"))
			_, err = Remember(ctx, svc, "tasks:m1", tags, compute)
			require.NoError(t, err)
			assert.Equal(t, 3, calls)
		})
	}
}

func TestRemember_invalidatedDuringCompute(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestService(t, store)
			ctx := context.Background()
			tags := []string{MenteeTag("m1"), MentorTag("k1")}

			// a write lands while the value is being computed from the old data
			got, err := Remember(ctx, svc, "overview:m1", tags, func(ctx context.Context) (string, error) {
				svc.InvalidateTag(ctx, MentorTag("k1"))
				return "before-write", nil
			})
			require.NoError(t, err)
			assert.Equal(t, "before-write", got)

			_, ok := svc.Read(ctx, "overview:m1")
			assert.False(t, ok, "a value computed before an invalidation must not be stored")

			got, err = Remember(ctx, svc, "overview:m1", tags, func(context.Context) (string, error) {
				return "after-write", nil
			})
			require.NoError(t, err)
			assert.Equal(t, "after-write", got)
			_, ok = svc.Read(ctx, "overview:m1")
			assert.True(t, ok)
		})
	}
}

func TestRemember_computeError(t *testing.T) {
	svc, _ := newTestService(t, NewMemoryStore())
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Remember(ctx, svc, "k", nil, func(context.Context) (int, error) { return 0, boom })
	assert.Equal(t, boom, errors.Cause(err))
	_, ok := svc.Read(ctx, "k")
	assert.False(t, ok, "failures are not cached")
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore()
	svc, clk := newTestService(t, store)
	ctx := context.Background()

	svc.Write(ctx, "old", 1, SubjectsTag)
	clk.advance(2 * DefaultTTL)
	svc.Write(ctx, "new", 2, SubjectsTag)

	assert.Equal(t, 1, store.Sweep(clk.now().Add(-DefaultTTL)))
	assert.Equal(t, 1, store.Len())
	_, ok := svc.Read(ctx, "new")
	assert.True(t, ok)

	svc.InvalidateTag(ctx, SubjectsTag)
	assert.Equal(t, 0, store.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "overview:m1:2026-03-01..2026-03-07", Key("overview", "m1", "2026-03-01..2026-03-07"))
	assert.Equal(t, "students:k1", Key("students", "k1"))
}
