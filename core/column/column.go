// Package column publishes study columns written by mentors.
package column

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/cache"
)

const (
	DefaultPageSize = 20
	maxPageSize     = 100
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("column not found")
	ErrSlugExists  = errors.New("a column with this slug already exists")
	errWritersOnly = core.NewForbiddenError("only mentors can write columns")
	errNotAuthor   = core.NewForbiddenError("only the author can edit this column")
)

type (
	Article struct {
		ID          string     `json:"id"`
		AuthorID    string     `json:"authorId"`
		Slug        string     `json:"slug"`
		Title       string     `json:"title"`
		Summary     string     `json:"summary"`
		Body        string     `json:"body"`
		CoverURL    string     `json:"coverUrl"`
		Tags        []string   `json:"tags"`
		Published   bool       `json:"published"`
		PublishedAt *time.Time `json:"publishedAt"`
		CreatedAt   time.Time  `json:"createdAt"`
		UpdatedAt   time.Time  `json:"updatedAt"`
	}

	NewArticle struct {
		Slug     string   `json:"slug" validate:"required,slug,max=120"`
		Title    string   `json:"title" validate:"required,notblank,max=200"`
		Summary  string   `json:"summary" validate:"max=500"`
		Body     string   `json:"body" validate:"required,notblank"`
		CoverURL string   `json:"coverUrl" validate:"omitempty,url"`
		Tags     []string `json:"tags" validate:"max=10,dive,notblank,max=32"`
	}

	UpdateArticle struct {
		Title    *string   `json:"title" validate:"omitempty,notblank,max=200"`
		Summary  *string   `json:"summary" validate:"omitempty,max=500"`
		Body     *string   `json:"body" validate:"omitempty,notblank"`
		CoverURL *string   `json:"coverUrl" validate:"omitempty,url"`
		Tags     *[]string `json:"tags" validate:"omitempty,max=10,dive,notblank,max=32"`
	}

	// Page selects published columns, most recently published first.
	Page struct {
		Limit  int `query:"limit"`
		Offset int `query:"offset"`
	}

	Repository interface {
		CheckSlugUniqueness(ctx context.Context, slug string, exec ...core.DBExecutor) error
		CreateArticle(ctx context.Context, a Article, exec ...core.DBExecutor) (Article, error)
		GetArticle(ctx context.Context, id string, exec ...core.DBExecutor) (Article, error)
		GetArticleBySlug(ctx context.Context, slug string, exec ...core.DBExecutor) (Article, error)
		UpdateArticle(ctx context.Context, a Article, exec ...core.DBExecutor) (Article, error)
		DeleteArticle(ctx context.Context, id string, exec ...core.DBExecutor) error
		QueryPublished(ctx context.Context, page Page, exec ...core.DBExecutor) ([]Article, error)
	}

	Service struct {
		repo  Repository
		cache *cache.Service
	}
)

func (na *NewArticle) Validate(validate *validator.Validate) error {
	na.Slug = core.CleanString(na.Slug, true /* lower */)
	na.Title = core.CleanString(na.Title)
	na.Summary = core.CleanString(na.Summary)
	na.CoverURL = core.CleanString(na.CoverURL)
	for i := range na.Tags {
		na.Tags[i] = core.CleanString(na.Tags[i], true)
	}
	return validate.Struct(na)
}

func (ua *UpdateArticle) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanStringPtr(ua.Title)
	ua.Summary = core.CleanStringPtr(ua.Summary)
	ua.CoverURL = core.CleanStringPtr(ua.CoverURL)
	return validate.Struct(ua)
}

func (p *Page) Clean() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

func NewService(repo Repository, cacheSvc *cache.Service) *Service {
	return &Service{repo: repo, cache: cacheSvc}
}

func canWrite(actor core.Actor) bool { return actor.IsMentor() || actor.IsAdmin() }

func (svc *Service) Create(ctx context.Context, actor core.Actor, na NewArticle) (Article, error) {
	if !canWrite(actor) {
		return Article{}, errWritersOnly
	}
	if err := svc.repo.CheckSlugUniqueness(ctx, na.Slug); err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return Article{}, core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
		}
		return Article{}, errors.Wrap(err, "checking slug uniqueness")
	}
	tags := na.Tags
	if tags == nil {
		tags = []string{}
	}

	now := time.Now().UTC()
	a, err := svc.repo.CreateArticle(ctx, Article{
		AuthorID:  actor.ID,
		Slug:      na.Slug,
		Title:     na.Title,
		Summary:   na.Summary,
		Body:      na.Body,
		CoverURL:  na.CoverURL,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return a, errors.Wrap(err, "creating column")
}

func (svc *Service) editable(ctx context.Context, actor core.Actor, id string) (Article, error) {
	a, err := svc.repo.GetArticle(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Article{}, ErrNotFound
		}
		return Article{}, errors.Wrap(err, "finding column")
	}
	if !(a.AuthorID == actor.ID || actor.IsAdmin()) {
		return Article{}, errNotAuthor
	}
	return a, nil
}

func (svc *Service) Update(ctx context.Context, actor core.Actor, id string, ua UpdateArticle) (Article, error) {
	a, err := svc.editable(ctx, actor, id)
	if err != nil {
		return Article{}, err
	}
	if ua.Title != nil {
		a.Title = *ua.Title
	}
	if ua.Summary != nil {
		a.Summary = *ua.Summary
	}
	if ua.Body != nil {
		a.Body = *ua.Body
	}
	if ua.CoverURL != nil {
		a.CoverURL = *ua.CoverURL
	}
	if ua.Tags != nil {
		a.Tags = *ua.Tags
	}
	return svc.save(ctx, a)
}

// Publish makes a column visible, or hides it again when `published` is false.
// The first publication date is kept on republish.
func (svc *Service) Publish(ctx context.Context, actor core.Actor, id string, published bool) (Article, error) {
	a, err := svc.editable(ctx, actor, id)
	if err != nil {
		return Article{}, err
	}
	a.Published = published
	if published && a.PublishedAt == nil {
		now := time.Now().UTC()
		a.PublishedAt = &now
	}
	return svc.save(ctx, a)
}

func (svc *Service) save(ctx context.Context, a Article) (Article, error) {
	a.UpdatedAt = time.Now().UTC()
	a, err := svc.repo.UpdateArticle(ctx, a)
	if err != nil {
		return Article{}, errors.Wrap(err, "updating column")
	}
	svc.cache.InvalidateTag(ctx, cache.ColumnsTag)
	return a, nil
}

func (svc *Service) Delete(ctx context.Context, actor core.Actor, id string) error {
	if _, err := svc.editable(ctx, actor, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteArticle(ctx, id); err != nil {
		return errors.Wrap(err, "deleting column")
	}
	svc.cache.InvalidateTag(ctx, cache.ColumnsTag)
	return nil
}

func (svc *Service) ListPublished(ctx context.Context, page Page) ([]Article, error) {
	page.Clean()
	key := cache.Key("columns", "published", strconv.Itoa(page.Limit), strconv.Itoa(page.Offset))
	return cache.Remember(ctx, svc.cache, key, []string{cache.ColumnsTag},
		func(ctx context.Context) ([]Article, error) {
			as, err := svc.repo.QueryPublished(ctx, page)
			return as, errors.Wrap(err, "querying published columns")
		})
}

// GetBySlug returns a published column; drafts are visible to their author and admins only.
func (svc *Service) GetBySlug(ctx context.Context, actor *core.Actor, slug string) (Article, error) {
	a, err := svc.repo.GetArticleBySlug(ctx, core.CleanString(slug, true))
	if err != nil {
		if core.IsNotFound(err) {
			return Article{}, ErrNotFound
		}
		return Article{}, errors.Wrap(err, "finding column")
	}
	if !a.Published && (actor == nil || !(actor.ID == a.AuthorID || actor.IsAdmin())) {
		return Article{}, ErrNotFound
	}
	return a, nil
}
