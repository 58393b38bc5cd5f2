package inmemdb

import (
	"context"
	"sort"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/column"
)

type columnRepository struct {
	db *table[column.Article]
}

var _ column.Repository = (*columnRepository)(nil) // interface compliance check

func NewColumnRepository(db *DB) *columnRepository {
	return &columnRepository{db: db.articles}
}

func (repo *columnRepository) CheckSlugUniqueness(_ context.Context, slug string, _ ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, a := range repo.db.rows {
		if a.Slug == slug {
			return column.ErrSlugExists
		}
	}
	return nil
}

func (repo *columnRepository) CreateArticle(_ context.Context, a column.Article, _ ...core.DBExecutor) (column.Article, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = newID()
	repo.db.rows[a.ID] = &a
	return a, nil
}

func (repo *columnRepository) GetArticle(_ context.Context, id string, _ ...core.DBExecutor) (column.Article, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.rows[id]; ok {
		return *a, nil
	}
	return column.Article{}, column.ErrNotFound
}

func (repo *columnRepository) GetArticleBySlug(_ context.Context, slug string, _ ...core.DBExecutor) (column.Article, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, a := range repo.db.rows {
		if a.Slug == slug {
			return *a, nil
		}
	}
	return column.Article{}, column.ErrNotFound
}

func (repo *columnRepository) UpdateArticle(_ context.Context, a column.Article, _ ...core.DBExecutor) (column.Article, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.rows[a.ID]; !ok {
		return column.Article{}, column.ErrNotFound
	}
	repo.db.rows[a.ID] = &a
	return a, nil
}

func (repo *columnRepository) DeleteArticle(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.rows, id)
	return nil
}

func (repo *columnRepository) QueryPublished(_ context.Context, page column.Page, _ ...core.DBExecutor) ([]column.Article, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]column.Article, 0)
	for _, a := range repo.db.rows {
		if a.Published {
			res = append(res, *a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].PublishedAt.After(*res[j].PublishedAt) })
	if page.Offset >= len(res) {
		return []column.Article{}, nil
	}
	res = res[page.Offset:]
	if page.Limit > 0 && len(res) > page.Limit {
		res = res[:page.Limit]
	}
	return res, nil
}
