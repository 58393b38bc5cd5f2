// Package cache memoizes read models for a fixed TTL and drops them by tag after writes.
//
// An entry is FRESH while its age is below the TTL and STALE afterwards; stale entries are
// recomputed on the next read, never served. Mutations must write to the database first and
// invalidate afterwards. Writes computed before an invalidation of one of their tags are refused
// by the store, so an in-flight reader cannot put pre-write data back after the invalidation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
)

const DefaultTTL = 60 * time.Second

type (
	// Entry is a cached value serialized as JSON.
	Entry struct {
		Data     json.RawMessage `json:"data"`
		StoredAt time.Time       `json:"storedAt"`
	}

	// Versions maps tags to the invalidation counter observed before computing a value.
	Versions map[string]uint64

	Store interface {
		Get(ctx context.Context, key string) (Entry, bool, error)
		// Set stores entry under key and indexes it by tags.
		// When versions is not nil the write is refused (false) if any tag was invalidated since.
		Set(ctx context.Context, key string, entry Entry, tags []string, versions Versions) (bool, error)
		TagVersions(ctx context.Context, tags []string) (Versions, error)
		InvalidateTag(ctx context.Context, tag string) error
	}

	// Result is what a read returns; Stale entries must not be served.
	Result struct {
		Data     json.RawMessage
		Stale    bool
		StoredAt time.Time
	}

	Service struct {
		store  Store
		ttl    time.Duration
		now    func() time.Time
		logger core.Logger
	}
)

func NewService(store Store, ttl time.Duration, now func() time.Time, logger core.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, ttl: ttl, now: now, logger: logger}
}

func (s *Service) TTL() time.Duration { return s.ttl }

// Read returns the entry stored under key, flagged stale once its age reaches the TTL.
// Store failures are logged and reported as a miss.
func (s *Service) Read(ctx context.Context, key string) (Result, bool) {
	entry, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("cache: reading %q: %v", key, err), err)
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}
	age := s.now().Sub(entry.StoredAt)
	return Result{Data: entry.Data, Stale: age >= s.ttl, StoredAt: entry.StoredAt}, true
}

// Write stores data under key unconditionally. Failures are logged, never returned.
func (s *Service) Write(ctx context.Context, key string, data interface{}, tags ...string) {
	s.write(ctx, key, data, tags, nil)
}

func (s *Service) write(ctx context.Context, key string, data interface{}, tags []string, versions Versions) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("cache: encoding %q: %v", key, err), err)
		return false
	}
	stored, err := s.store.Set(ctx, key, Entry{Data: raw, StoredAt: s.now()}, tags, versions)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("cache: writing %q: %v", key, err), err)
		return false
	}
	return stored
}

// InvalidateTag drops every entry indexed by tag. Failures are logged, never returned.
func (s *Service) InvalidateTag(ctx context.Context, tag string) {
	if err := s.store.InvalidateTag(ctx, tag); err != nil {
		s.logger.Warn(fmt.Sprintf("cache: invalidating tag %q: %v", tag, err), err)
	}
}

// Remember returns the fresh value cached under key or computes, caches and returns it.
func Remember[T any](ctx context.Context, s *Service, key string, tags []string, compute func(context.Context) (T, error)) (T, error) {
	if res, ok := s.Read(ctx, key); ok && !res.Stale {
		var cached T
		err := json.Unmarshal(res.Data, &cached)
		if err == nil {
			return cached, nil
		}
		s.logger.Warn(fmt.Sprintf("cache: decoding %q: %v", key, err), err)
	}

	// snapshot tag versions before reading the source of truth
	versions, verr := s.store.TagVersions(ctx, tags)
	if verr != nil {
		s.logger.Warn(fmt.Sprintf("cache: reading tag versions for %q: %v", key, verr), verr)
	}

	val, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, errors.Wrapf(err, "computing %s", key)
	}
	if verr == nil {
		s.write(ctx, key, val, tags, versions)
	}
	return val, nil
}

// Key builds a cache key from an entity kind, a primary id and optional qualifiers (eg. a date range).
func Key(kind, id string, parts ...string) string {
	all := append([]string{kind, id}, parts...)
	return strings.Join(all, ":")
}

// Tags
const (
	SubjectsTag = "subjects"
	ColumnsTag  = "columns"
)

func MenteeTag(menteeID string) string { return "mentee:" + menteeID }
func MentorTag(mentorID string) string { return "mentor:" + mentorID }
