package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/subject"
)

type subjectRow struct {
	ID           string `db:"id"`
	Slug         string `db:"slug"`
	Name         string `db:"name"`
	ColorHex     string `db:"color_hex"`
	TextColorHex string `db:"text_color_hex"`
	SortOrder    int    `db:"sort_order"`
}

type subjectRepository struct {
	repository
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(exec core.DBExecutor) *subjectRepository {
	return &subjectRepository{repository{exec: exec}}
}

func (repo subjectRepository) QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]subject.Subject, error) {
	var rows []subjectRow
	err := selectContext(ctx, repo.getExec(exec), &rows,
		`SELECT id, slug, name, color_hex, text_color_hex, sort_order FROM subjects ORDER BY sort_order, slug`)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]subject.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, subject.Subject(r))
	}
	return subjects, nil
}

func (repo subjectRepository) CreateSubject(ctx context.Context, s subject.Subject, exec ...core.DBExecutor) (subject.Subject, error) {
	s.ID = newID()
	_, err := namedExec(ctx, repo.getExec(exec), `
		INSERT INTO subjects (id, slug, name, color_hex, text_color_hex, sort_order)
		VALUES (:id, :slug, :name, :color_hex, :text_color_hex, :sort_order)`, subjectRow(s))
	if err != nil {
		if isUniqueViolation(err) {
			return subject.Subject{}, subject.ErrSlugExists
		}
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}
