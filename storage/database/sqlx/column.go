package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/column"
)

const articleColumns = `id, author_id, slug, title, summary, body, cover_url, tags, published, published_at, created_at, updated_at`

type articleRow struct {
	ID          string         `db:"id"`
	AuthorID    string         `db:"author_id"`
	Slug        string         `db:"slug"`
	Title       string         `db:"title"`
	Summary     string         `db:"summary"`
	Body        string         `db:"body"`
	CoverURL    string         `db:"cover_url"`
	Tags        pq.StringArray `db:"tags"`
	Published   bool           `db:"published"`
	PublishedAt null.Time      `db:"published_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type columnRepository struct {
	repository
}

var _ column.Repository = (*columnRepository)(nil) // interface compliance check

func NewColumnRepository(exec core.DBExecutor) *columnRepository {
	return &columnRepository{repository{exec: exec}}
}

func (repo columnRepository) boil(a column.Article) articleRow {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return articleRow{
		ID:          a.ID,
		AuthorID:    a.AuthorID,
		Slug:        a.Slug,
		Title:       a.Title,
		Summary:     a.Summary,
		Body:        a.Body,
		CoverURL:    a.CoverURL,
		Tags:        pq.StringArray(tags),
		Published:   a.Published,
		PublishedAt: null.TimeFromPtr(a.PublishedAt),
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}

func (repo columnRepository) unboil(r articleRow) column.Article {
	a := column.Article{
		ID:        r.ID,
		AuthorID:  r.AuthorID,
		Slug:      r.Slug,
		Title:     r.Title,
		Summary:   r.Summary,
		Body:      r.Body,
		CoverURL:  r.CoverURL,
		Tags:      []string(r.Tags),
		Published: r.Published,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if r.PublishedAt.Valid {
		t := r.PublishedAt.Time.UTC()
		a.PublishedAt = &t
	}
	return a
}

func (repo columnRepository) getOne(ctx context.Context, exec core.DBExecutor, where string, arg interface{}) (column.Article, error) {
	var rows []articleRow
	if err := selectContext(ctx, exec, &rows, `SELECT `+articleColumns+` FROM columns WHERE `+where+` LIMIT 1`, arg); err != nil {
		return column.Article{}, errors.Wrap(err, "getting column")
	}
	if len(rows) == 0 {
		return column.Article{}, column.ErrNotFound
	}
	return repo.unboil(rows[0]), nil
}

func (repo columnRepository) CheckSlugUniqueness(ctx context.Context, slug string, exec ...core.DBExecutor) error {
	_, err := repo.getOne(ctx, repo.getExec(exec), "slug = ?", slug)
	switch {
	case err == nil:
		return column.ErrSlugExists
	case errors.Cause(err) == column.ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "checking slug uniqueness")
	}
}

func (repo columnRepository) CreateArticle(ctx context.Context, a column.Article, exec ...core.DBExecutor) (column.Article, error) {
	a.ID = newID()
	_, err := namedExec(ctx, repo.getExec(exec), `
		INSERT INTO columns (`+articleColumns+`)
		VALUES (:id, :author_id, :slug, :title, :summary, :body, :cover_url, :tags, :published, :published_at,
			:created_at, :updated_at)`, repo.boil(a))
	if err != nil {
		if isUniqueViolation(err) {
			return column.Article{}, column.ErrSlugExists
		}
		return column.Article{}, errors.Wrap(err, "inserting column")
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return a, nil
}

func (repo columnRepository) GetArticle(ctx context.Context, id string, exec ...core.DBExecutor) (column.Article, error) {
	if !validID(id) {
		return column.Article{}, column.ErrNotFound
	}
	return repo.getOne(ctx, repo.getExec(exec), "id = ?", id)
}

func (repo columnRepository) GetArticleBySlug(ctx context.Context, slug string, exec ...core.DBExecutor) (column.Article, error) {
	return repo.getOne(ctx, repo.getExec(exec), "slug = ?", slug)
}

func (repo columnRepository) UpdateArticle(ctx context.Context, a column.Article, exec ...core.DBExecutor) (column.Article, error) {
	cnt, err := namedExec(ctx, repo.getExec(exec), `
		UPDATE columns SET title = :title, summary = :summary, body = :body, cover_url = :cover_url, tags = :tags,
			published = :published, published_at = :published_at, updated_at = :updated_at
		WHERE id = :id`, repo.boil(a))
	if err != nil {
		return column.Article{}, errors.Wrap(err, "updating column")
	}
	if cnt == 0 {
		return column.Article{}, column.ErrNotFound
	}
	return a, nil
}

func (repo columnRepository) DeleteArticle(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return column.ErrNotFound
	}
	cnt, err := execContext(ctx, repo.getExec(exec), `DELETE FROM columns WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting column")
	}
	if cnt == 0 {
		return column.ErrNotFound
	}
	return nil
}

func (repo columnRepository) QueryPublished(ctx context.Context, page column.Page, exec ...core.DBExecutor) ([]column.Article, error) {
	var rows []articleRow
	err := selectContext(ctx, repo.getExec(exec), &rows, `
		SELECT `+articleColumns+` FROM columns
		WHERE published
		ORDER BY published_at DESC, created_at DESC
		LIMIT ? OFFSET ?`, page.Limit, page.Offset)
	if err != nil {
		return nil, errors.Wrap(err, "querying published columns")
	}
	arts := make([]column.Article, 0, len(rows))
	for _, r := range rows {
		arts = append(arts, repo.unboil(r))
	}
	return arts, nil
}
