package cache

import (
	"context"
	"fmt"
)

// MentorLookup resolves the active mentors of a mentee.
type MentorLookup interface {
	MentorIDsOf(ctx context.Context, menteeID string) ([]string, error)
}

// Invalidator drops the cached surfaces touched by a mutation. Call it only after the write committed.
type Invalidator struct {
	cache   *Service
	mentors MentorLookup
}

func NewInvalidator(cache *Service, mentors MentorLookup) *Invalidator {
	return &Invalidator{cache: cache, mentors: mentors}
}

// InvalidateMentee drops the mentee's own entries and the mentor surfaces of every active mentor.
func (inv *Invalidator) InvalidateMentee(ctx context.Context, menteeID string) {
	inv.cache.InvalidateTag(ctx, MenteeTag(menteeID))

	mentorIDs, err := inv.mentors.MentorIDsOf(ctx, menteeID)
	if err != nil {
		inv.cache.logger.Warn(fmt.Sprintf("cache: resolving mentors of %s: %v", menteeID, err), err)
		return
	}
	for _, id := range mentorIDs {
		inv.cache.InvalidateTag(ctx, MentorTag(id))
	}
}

func (inv *Invalidator) InvalidateMentor(ctx context.Context, mentorID string) {
	inv.cache.InvalidateTag(ctx, MentorTag(mentorID))
}

func (inv *Invalidator) InvalidateTag(ctx context.Context, tag string) {
	inv.cache.InvalidateTag(ctx, tag)
}
