package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/profile"
)

type profileRepository struct {
	profiles *table[profile.Profile]
	links    *table[profile.Link]
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{profiles: db.profiles, links: db.links}
}

func (repo *profileRepository) CheckEmailUniqueness(_ context.Context, email string, _ ...core.DBExecutor) error {
	repo.profiles.mutex.RLock()
	defer repo.profiles.mutex.RUnlock()

	for _, p := range repo.profiles.rows {
		if strings.EqualFold(p.Email, email) {
			return profile.ErrEmailExists
		}
	}
	return nil
}

func (repo *profileRepository) CreateProfile(_ context.Context, p profile.Profile, _ ...core.DBExecutor) (profile.Profile, error) {
	repo.profiles.mutex.Lock()
	defer repo.profiles.mutex.Unlock()

	p.ID = newID()
	repo.profiles.rows[p.ID] = &p
	return p, nil
}

func (repo *profileRepository) GetProfile(_ context.Context, filter profile.GetFilter, _ ...core.DBExecutor) (profile.Profile, error) {
	repo.profiles.mutex.RLock()
	defer repo.profiles.mutex.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.profiles.rows[filter.ID]; ok {
			return *p, nil
		}
		return profile.Profile{}, profile.ErrNotFound
	}
	if filter.Email != "" {
		for _, p := range repo.profiles.rows {
			if strings.EqualFold(p.Email, filter.Email) {
				return *p, nil
			}
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) QueryProfiles(_ context.Context, filter *profile.QueryFilter, _ ...core.DBExecutor) ([]profile.Profile, error) {
	repo.profiles.mutex.RLock()
	defer repo.profiles.mutex.RUnlock()

	res := make([]profile.Profile, 0, len(repo.profiles.rows))
	for _, p := range repo.profiles.rows {
		if filter != nil {
			if filter.Search != "" {
				search := strings.ToLower(filter.Search)
				if !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.Email), search) {
					continue
				}
			}
			if filter.Role != "" && p.Role != filter.Role {
				continue
			}
			if filter.IsActive != nil && p.IsActive != *filter.IsActive {
				continue
			}
		}
		res = append(res, *p)
	}
	var ordering []core.DBOrdering
	if filter != nil {
		ordering = filter.Ordering
	}
	sort.SliceStable(res, func(i, j int) bool { return lessProfile(res[i], res[j], ordering) })
	return res, nil
}

func lessProfile(a, b profile.Profile, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "name":
			cmp = strings.Compare(a.Name, b.Name)
		case "email":
			cmp = strings.Compare(a.Email, b.Email)
		case "createdAt":
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp != 0 {
			return (cmp < 0) == ord.Ascending
		}
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (repo *profileRepository) ProfilesByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]profile.Profile, error) {
	repo.profiles.mutex.RLock()
	defer repo.profiles.mutex.RUnlock()

	res := make([]profile.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := repo.profiles.rows[id]; ok {
			res = append(res, *p)
		}
	}
	return res, nil
}

func (repo *profileRepository) UpdateProfile(_ context.Context, p profile.Profile, _ ...core.DBExecutor) (profile.Profile, error) {
	repo.profiles.mutex.Lock()
	defer repo.profiles.mutex.Unlock()

	if _, ok := repo.profiles.rows[p.ID]; !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	repo.profiles.rows[p.ID] = &p
	return p, nil
}

func (repo *profileRepository) CreateLink(_ context.Context, l profile.Link, _ ...core.DBExecutor) (profile.Link, error) {
	repo.links.mutex.Lock()
	defer repo.links.mutex.Unlock()

	l.ID = newID()
	repo.links.rows[l.ID] = &l
	return l, nil
}

func (repo *profileRepository) GetLink(_ context.Context, id string, _ ...core.DBExecutor) (profile.Link, error) {
	repo.links.mutex.RLock()
	defer repo.links.mutex.RUnlock()

	if l, ok := repo.links.rows[id]; ok {
		return *l, nil
	}
	return profile.Link{}, profile.ErrLinkNotFound
}

func (repo *profileRepository) ActiveLinks(_ context.Context, filter profile.LinkFilter, _ ...core.DBExecutor) ([]profile.Link, error) {
	repo.links.mutex.RLock()
	defer repo.links.mutex.RUnlock()

	var res []profile.Link
	for _, l := range repo.links.rows {
		if !l.IsActive() {
			continue
		}
		if filter.MentorID != "" && l.MentorID != filter.MentorID {
			continue
		}
		if filter.MenteeID != "" && l.MenteeID != filter.MenteeID {
			continue
		}
		res = append(res, *l)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].StartedAt.Before(res[j].StartedAt) })
	return res, nil
}

func (repo *profileRepository) SetLinkStatus(_ context.Context, id, status string, _ ...core.DBExecutor) error {
	repo.links.mutex.Lock()
	defer repo.links.mutex.Unlock()

	l, ok := repo.links.rows[id]
	if !ok {
		return profile.ErrLinkNotFound
	}
	l.Status = status
	return nil
}
