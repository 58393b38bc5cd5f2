package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/profile"
)

const profileColumns = `id, role, name, email, password_hash, avatar_url, intro, goal, target_exam,
	to_char(target_date, 'YYYY-MM-DD') AS target_date, grade, is_active, created_at, updated_at, last_login`

var profileOrdering = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"email":     "email",
}

type (
	profileRow struct {
		ID           string      `db:"id"`
		Role         string      `db:"role"`
		Name         string      `db:"name"`
		Email        string      `db:"email"`
		PasswordHash []byte      `db:"password_hash"`
		AvatarURL    string      `db:"avatar_url"`
		Intro        string      `db:"intro"`
		Goal         null.String `db:"goal"`
		TargetExam   null.String `db:"target_exam"`
		TargetDate   null.String `db:"target_date"`
		Grade        null.String `db:"grade"`
		IsActive     bool        `db:"is_active"`
		CreatedAt    time.Time   `db:"created_at"`
		UpdatedAt    time.Time   `db:"updated_at"`
		LastLogin    null.Time   `db:"last_login"`
	}

	linkRow struct {
		ID        string    `db:"id"`
		MentorID  string    `db:"mentor_id"`
		MenteeID  string    `db:"mentee_id"`
		Status    string    `db:"status"`
		StartedAt time.Time `db:"started_at"`
	}
)

type profileRepository struct {
	repository
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(exec core.DBExecutor) *profileRepository {
	return &profileRepository{repository{exec: exec}}
}

func (repo profileRepository) boil(p profile.Profile) profileRow {
	return profileRow{
		ID:           p.ID,
		Role:         p.Role,
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		AvatarURL:    p.AvatarURL,
		Intro:        p.Intro,
		Goal:         null.StringFromPtr(p.Goal),
		TargetExam:   null.StringFromPtr(p.TargetExam),
		TargetDate:   null.StringFromPtr(p.TargetDate),
		Grade:        null.StringFromPtr(p.Grade),
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
		LastLogin:    null.TimeFromPtr(p.LastLogin),
	}
}

func (repo profileRepository) unboil(r profileRow) profile.Profile {
	p := profile.Profile{
		ID:           r.ID,
		Role:         r.Role,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		AvatarURL:    r.AvatarURL,
		Intro:        r.Intro,
		Goal:         r.Goal.Ptr(),
		TargetExam:   r.TargetExam.Ptr(),
		TargetDate:   r.TargetDate.Ptr(),
		Grade:        r.Grade.Ptr(),
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		t := r.LastLogin.Time.UTC()
		p.LastLogin = &t
	}
	return p
}

func (repo profileRepository) unboilAll(rows []profileRow) []profile.Profile {
	profs := make([]profile.Profile, 0, len(rows))
	for _, r := range rows {
		profs = append(profs, repo.unboil(r))
	}
	return profs
}

func (repo profileRepository) CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error {
	var ids []struct {
		ID string `db:"id"`
	}
	err := selectContext(ctx, repo.getExec(exec), &ids, `SELECT id FROM profiles WHERE lower(email) = lower(?) LIMIT 1`, email)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if len(ids) > 0 {
		return profile.ErrEmailExists
	}
	return nil
}

func (repo profileRepository) CreateProfile(ctx context.Context, p profile.Profile, exec ...core.DBExecutor) (profile.Profile, error) {
	p.ID = newID()
	_, err := namedExec(ctx, repo.getExec(exec), `
		INSERT INTO profiles (id, role, name, email, password_hash, avatar_url, intro, goal, target_exam,
			target_date, grade, is_active, created_at, updated_at, last_login)
		VALUES (:id, :role, :name, :email, :password_hash, :avatar_url, :intro, :goal, :target_exam,
			:target_date, :grade, :is_active, :created_at, :updated_at, :last_login)`, repo.boil(p))
	if err != nil {
		if isUniqueViolation(err) {
			return profile.Profile{}, profile.ErrEmailExists
		}
		return profile.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return p, nil
}

func (repo profileRepository) GetProfile(ctx context.Context, filter profile.GetFilter, exec ...core.DBExecutor) (profile.Profile, error) {
	var (
		where string
		arg   interface{}
	)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return profile.Profile{}, profile.ErrNotFound
		}
		where, arg = "id = ?", filter.ID
	case filter.Email != "":
		where, arg = "lower(email) = lower(?)", filter.Email
	default:
		return profile.Profile{}, profile.ErrNotFound
	}

	var rows []profileRow
	if err := selectContext(ctx, repo.getExec(exec), &rows, `SELECT `+profileColumns+` FROM profiles WHERE `+where+` LIMIT 1`, arg); err != nil {
		return profile.Profile{}, errors.Wrap(err, "getting profile")
	}
	if len(rows) == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}
	return repo.unboil(rows[0]), nil
}

func (repo profileRepository) QueryProfiles(ctx context.Context, filter *profile.QueryFilter, exec ...core.DBExecutor) ([]profile.Profile, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			search := "%" + filter.Search + "%"
			conds = append(conds, "(name ILIKE ? OR email ILIKE ?)")
			args = append(args, search, search)
		}
		if filter.Role != "" {
			conds = append(conds, "role = ?")
			args = append(args, filter.Role)
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
	}

	query := `SELECT ` + profileColumns + ` FROM profiles`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	var ordering []core.DBOrdering
	if filter != nil {
		ordering = filter.Ordering
	}
	orderBy := core.OrderByClause(ordering, profileOrdering)
	if orderBy == "" {
		orderBy = "created_at ASC"
	}
	query += ` ORDER BY ` + orderBy

	var rows []profileRow
	if err := selectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	return repo.unboilAll(rows), nil
}

func (repo profileRepository) ProfilesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]profile.Profile, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []profile.Profile{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+profileColumns+` FROM profiles WHERE id IN (?)`, valid)
	if err != nil {
		return nil, errors.Wrap(err, "expanding profile ids")
	}
	var rows []profileRow
	if err = selectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles by id")
	}

	// keep the order of `ids`
	byID := make(map[string]profileRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	profs := make([]profile.Profile, 0, len(rows))
	for _, id := range valid {
		if r, ok := byID[id]; ok {
			profs = append(profs, repo.unboil(r))
		}
	}
	return profs, nil
}

func (repo profileRepository) UpdateProfile(ctx context.Context, p profile.Profile, exec ...core.DBExecutor) (profile.Profile, error) {
	cnt, err := namedExec(ctx, repo.getExec(exec), `
		UPDATE profiles SET name = :name, email = :email, password_hash = :password_hash, avatar_url = :avatar_url,
			intro = :intro, goal = :goal, target_exam = :target_exam, target_date = :target_date, grade = :grade,
			is_active = :is_active, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`, repo.boil(p))
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "updating profile")
	}
	if cnt == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}
	return p, nil
}

func (repo profileRepository) CreateLink(ctx context.Context, l profile.Link, exec ...core.DBExecutor) (profile.Link, error) {
	l.ID = newID()
	_, err := namedExec(ctx, repo.getExec(exec), `
		INSERT INTO mentor_mentee_links (id, mentor_id, mentee_id, status, started_at)
		VALUES (:id, :mentor_id, :mentee_id, :status, :started_at)`, linkRow{
		ID:        l.ID,
		MentorID:  l.MentorID,
		MenteeID:  l.MenteeID,
		Status:    l.Status,
		StartedAt: l.StartedAt.UTC(),
	})
	if err != nil {
		return profile.Link{}, errors.Wrap(err, "inserting link")
	}
	return l, nil
}

func unboilLink(r linkRow) profile.Link {
	return profile.Link{
		ID:        r.ID,
		MentorID:  r.MentorID,
		MenteeID:  r.MenteeID,
		Status:    r.Status,
		StartedAt: r.StartedAt.UTC(),
	}
}

func (repo profileRepository) GetLink(ctx context.Context, id string, exec ...core.DBExecutor) (profile.Link, error) {
	if !validID(id) {
		return profile.Link{}, profile.ErrLinkNotFound
	}
	var rows []linkRow
	err := selectContext(ctx, repo.getExec(exec), &rows,
		`SELECT id, mentor_id, mentee_id, status, started_at FROM mentor_mentee_links WHERE id = ?`, id)
	if err != nil {
		return profile.Link{}, errors.Wrap(err, "getting link")
	}
	if len(rows) == 0 {
		return profile.Link{}, profile.ErrLinkNotFound
	}
	return unboilLink(rows[0]), nil
}

func (repo profileRepository) ActiveLinks(ctx context.Context, filter profile.LinkFilter, exec ...core.DBExecutor) ([]profile.Link, error) {
	conds := []string{"status = ?"}
	args := []interface{}{profile.LinkActive}
	for col, id := range map[string]string{"mentor_id": filter.MentorID, "mentee_id": filter.MenteeID} {
		if id == "" {
			continue
		}
		if !validID(id) {
			return []profile.Link{}, nil
		}
		conds = append(conds, col+" = ?")
		args = append(args, id)
	}

	var rows []linkRow
	err := selectContext(ctx, repo.getExec(exec), &rows,
		`SELECT id, mentor_id, mentee_id, status, started_at FROM mentor_mentee_links WHERE `+
			strings.Join(conds, " AND ")+` ORDER BY started_at ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying active links")
	}
	links := make([]profile.Link, 0, len(rows))
	for _, r := range rows {
		links = append(links, unboilLink(r))
	}
	return links, nil
}

func (repo profileRepository) SetLinkStatus(ctx context.Context, id, status string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return profile.ErrLinkNotFound
	}
	cnt, err := execContext(ctx, repo.getExec(exec), `UPDATE mentor_mentee_links SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return errors.Wrap(err, "updating link status")
	}
	if cnt == 0 {
		return profile.ErrLinkNotFound
	}
	return nil
}
