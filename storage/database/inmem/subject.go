package inmemdb

import (
	"context"
	"sort"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/subject"
)

type subjectRepository struct {
	db *table[subject.Subject]
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *DB) *subjectRepository {
	return &subjectRepository{db: db.subjects}
}

func (repo *subjectRepository) QuerySubjects(_ context.Context, _ ...core.DBExecutor) ([]subject.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]subject.Subject, 0, len(repo.db.rows))
	for _, s := range repo.db.rows {
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].SortOrder != res[j].SortOrder {
			return res[i].SortOrder < res[j].SortOrder
		}
		return res[i].Name < res[j].Name
	})
	return res, nil
}

func (repo *subjectRepository) CreateSubject(_ context.Context, s subject.Subject, _ ...core.DBExecutor) (subject.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.rows {
		if existing.Slug == s.Slug {
			return subject.Subject{}, subject.ErrSlugExists
		}
	}
	s.ID = newID()
	repo.db.rows[s.ID] = &s
	return s, nil
}
