// Package subject holds the global subject reference data (korean, math, ...) used to categorize tasks.
package subject

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/cache"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("subject not found")
	ErrSlugExists = errors.New("a subject with this slug already exists")
)

type (
	Subject struct {
		ID           string `json:"id"`
		Slug         string `json:"slug"`
		Name         string `json:"name"`
		ColorHex     string `json:"colorHex"`
		TextColorHex string `json:"textColorHex"`
		SortOrder    int    `json:"sortOrder"`
	}

	NewSubject struct {
		Slug         string `json:"slug" validate:"required,slug,max=64"`
		Name         string `json:"name" validate:"required,notblank,max=64"`
		ColorHex     string `json:"colorHex" validate:"required,hexcolor_"`
		TextColorHex string `json:"textColorHex" validate:"required,hexcolor_"`
		SortOrder    int    `json:"sortOrder"`
	}

	// SlugIndex maps subject slugs to subject ids.
	SlugIndex map[string]string

	Repository interface {
		// QuerySubjects returns every subject by sort order.
		QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]Subject, error)
		CreateSubject(ctx context.Context, s Subject, exec ...core.DBExecutor) (Subject, error)
	}

	Service struct {
		repo  Repository
		cache *cache.Service
	}
)

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Slug = core.CleanString(ns.Slug, true /* lower */)
	ns.Name = core.CleanString(ns.Name)
	ns.ColorHex = core.CleanString(ns.ColorHex)
	ns.TextColorHex = core.CleanString(ns.TextColorHex)
	return validate.Struct(ns)
}

// Resolve maps a subject token to a subject id: known slugs and ids of known subjects resolve to
// the id, anything else resolves to nil (uncategorized).
func (idx SlugIndex) Resolve(token *string) *string {
	if token == nil {
		return nil
	}
	tok := strings.TrimSpace(*token)
	if tok == "" {
		return nil
	}
	if id, ok := idx[strings.ToLower(tok)]; ok {
		return &id
	}
	if u, err := uuid.Parse(tok); err == nil {
		for _, id := range idx {
			if strings.EqualFold(id, u.String()) {
				return &id
			}
		}
	}
	return nil
}

func NewService(repo Repository, cacheSvc *cache.Service) *Service {
	return &Service{repo: repo, cache: cacheSvc}
}

func (svc *Service) List(ctx context.Context) ([]Subject, error) {
	return cache.Remember(ctx, svc.cache, cache.Key("subjects", "all"), []string{cache.SubjectsTag},
		func(ctx context.Context) ([]Subject, error) {
			subjects, err := svc.repo.QuerySubjects(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "querying subjects")
			}
			if subjects == nil {
				subjects = []Subject{}
			}
			return subjects, nil
		})
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	s, err := svc.repo.CreateSubject(ctx, Subject{
		Slug:         ns.Slug,
		Name:         ns.Name,
		ColorHex:     ns.ColorHex,
		TextColorHex: ns.TextColorHex,
		SortOrder:    ns.SortOrder,
	})
	if err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return Subject{}, core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
		}
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	svc.cache.InvalidateTag(ctx, cache.SubjectsTag)
	return s, nil
}

// SlugIndex builds the slug lookup used to resolve a whole batch of subject tokens at once.
func (svc *Service) SlugIndex(ctx context.Context) (SlugIndex, error) {
	subjects, err := svc.List(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(SlugIndex, len(subjects))
	for _, s := range subjects {
		idx[s.Slug] = s.ID
	}
	return idx, nil
}
