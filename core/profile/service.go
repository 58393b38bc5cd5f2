package profile

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/cache"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("profile not found")
	ErrLinkNotFound       = core.NewNotFoundError("mentor-mentee link not found")
	ErrNotLinked          = core.NewForbiddenError("no active mentor-mentee link")
	ErrEmailExists        = errors.New("a profile with this email already exists")
	ErrInvalidCredentials = core.NewValidationError(errors.New("invalid credentials"))
	ErrDeactivated        = core.NewForbiddenError("account deactivated")
	errAdminSignup        = errors.New("admin profiles are created by operators")
	errCannotEdit         = core.NewForbiddenError("not allowed to edit this profile")
	errInvalidLinkRoles   = core.NewValidationError(errors.New("a link needs a mentor and a mentee"))
)

type (
	// LinkFilter selects active links; empty fields are ignored.
	LinkFilter struct {
		MentorID string
		MenteeID string
	}

	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error
		CreateProfile(ctx context.Context, p Profile, exec ...core.DBExecutor) (Profile, error)
		GetProfile(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Profile, error)
		// QueryProfiles applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Profile.Name or Profile.Email.
		QueryProfiles(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Profile, error)
		ProfilesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Profile, error)
		UpdateProfile(ctx context.Context, p Profile, exec ...core.DBExecutor) (Profile, error)

		CreateLink(ctx context.Context, l Link, exec ...core.DBExecutor) (Link, error)
		GetLink(ctx context.Context, id string, exec ...core.DBExecutor) (Link, error)
		ActiveLinks(ctx context.Context, filter LinkFilter, exec ...core.DBExecutor) ([]Link, error)
		SetLinkStatus(ctx context.Context, id, status string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo        Repository
		mailSvc     core.EmailService
		conf        *core.Config
		logger      core.Logger
		invalidator *cache.Invalidator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, cacheSvc *cache.Service, conf *core.Config, logger core.Logger) *Service {
	svc := &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
	svc.invalidator = cache.NewInvalidator(cacheSvc, svc)
	return svc
}

// Invalidator drops the cached surfaces of a mentee and of all their mentors.
func (svc *Service) Invalidator() *cache.Invalidator { return svc.invalidator }

func (svc *Service) checkUniqueness(ctx context.Context, email string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, np NewProfile) (Profile, error) {
	now := time.Now().UTC()
	p := Profile{
		Role:       np.Role,
		Name:       np.Name,
		Email:      np.Email,
		Intro:      np.Intro,
		Goal:       np.Goal,
		TargetExam: np.TargetExam,
		TargetDate: np.TargetDate,
		Grade:      np.Grade,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.SetPassword(np.Password); err != nil {
		return Profile{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateProfile(ctx, p)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Profile, error) {
	return svc.repo.QueryProfiles(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfile(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return svc.repo.GetProfile(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) ByIDs(ctx context.Context, ids []string) ([]Profile, error) {
	if len(ids) == 0 {
		return []Profile{}, nil
	}
	return svc.repo.ProfilesByID(ctx, ids)
}

// Update applies `up` to profile `id`. Owners and admins may change every field; an actively linked
// mentor may only change the name and the avatar of their mentee.
func (svc *Service) Update(ctx context.Context, actor core.Actor, id string, up UpdateProfile) (Profile, error) {
	p, err := svc.GetByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}

	if !(actor.ID == p.ID || actor.IsAdmin()) {
		if !(actor.IsMentor() && p.IsMentee() && up.OnlyIdentity()) {
			return Profile{}, errCannotEdit
		}
		if _, err = svc.CheckLinked(ctx, actor.ID, p.ID); err != nil {
			if core.IsForbidden(err) {
				return Profile{}, errCannotEdit
			}
			return Profile{}, err
		}
	}

	up.apply(&p)
	p.UpdatedAt = time.Now().UTC()
	if p, err = svc.repo.UpdateProfile(ctx, p); err != nil {
		return Profile{}, errors.Wrap(err, "updating profile")
	}

	if p.IsMentee() {
		svc.invalidator.InvalidateMentee(ctx, p.ID)
	} else if p.IsMentor() {
		svc.invalidator.InvalidateMentor(ctx, p.ID)
	}
	return p, nil
}

// SetPassword changes the password of profile `id` without any token check (operators only).
func (svc *Service) SetPassword(ctx context.Context, id, pwd string) error {
	p, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err = validatePasswordPolicy(p, pwd); err != nil {
		return err
	}
	if err = p.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	p.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateProfile(ctx, p)
	return errors.Wrap(err, "updating profile")
}

func (svc *Service) SetLastLogin(ctx context.Context, p Profile) (Profile, error) {
	now := time.Now().UTC()
	p.LastLogin = &now
	return svc.repo.UpdateProfile(ctx, p)
}

// Authenticate checks the credentials of an active profile and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Profile, error) {
	p, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return Profile{}, ErrInvalidCredentials
		}
		return Profile{}, errors.Wrap(err, "finding profile by email")
	}
	if err = p.CheckPassword(pwd); err != nil {
		return Profile{}, ErrInvalidCredentials
	}
	if !p.IsActive {
		return Profile{}, ErrDeactivated
	}
	p, err = svc.SetLastLogin(ctx, p)
	return p, errors.Wrap(err, "setting lastLogin")
}

// RequestPasswordReset e-mails a password reset link to the owner of `email`.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	p, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return ErrNotFound
	}
	token, err := svc.makeToken(p)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:              []mail.Address{{Name: p.Name, Address: p.Email}},
		Subject:         fmt.Sprintf("[%s] Password Reset", svc.conf.AppName),
		TemplateName:    "password_reset",
		FrontendBaseURL: svc.conf.FrontendBaseURL,
		TemplateData: map[string]string{
			"Name":  p.Name,
			"UID":   EncodeUID(p),
			"Token": token,
		},
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	invalid := core.NewValidationError(errInvalidToken)

	id, err := decodeUID(rp.UID)
	if err != nil {
		return invalid
	}
	p, err := svc.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return invalid
		}
		return err
	}
	if err = svc.verifyToken(p, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = validatePasswordPolicy(p, rp.Password); err != nil {
		return err
	}

	if err = p.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	p.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateProfile(ctx, p)
	return errors.Wrap(err, "updating profile")
}

// Links

// CreateLink starts an active mentorship between `mentorID` and `menteeID`.
func (svc *Service) CreateLink(ctx context.Context, mentorID, menteeID string) (Link, error) {
	mentor, err := svc.GetByID(ctx, mentorID)
	if err != nil {
		return Link{}, err
	}
	mentee, err := svc.GetByID(ctx, menteeID)
	if err != nil {
		return Link{}, err
	}
	if !(mentor.IsMentor() && mentee.IsMentee()) {
		return Link{}, errInvalidLinkRoles
	}

	link, err := svc.repo.CreateLink(ctx, Link{
		MentorID:  mentor.ID,
		MenteeID:  mentee.ID,
		Status:    LinkActive,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		return Link{}, errors.Wrap(err, "creating link")
	}
	svc.invalidator.InvalidateMentee(ctx, mentee.ID)
	return link, nil
}

// DeactivateLink ends a mentorship; history (chat, tasks) is kept.
func (svc *Service) DeactivateLink(ctx context.Context, id string) error {
	link, err := svc.LinkByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.SetLinkStatus(ctx, id, LinkInactive); err != nil {
		return errors.Wrap(err, "deactivating link")
	}
	// the mentor is not returned by MentorIDsOf anymore
	svc.invalidator.InvalidateMentee(ctx, link.MenteeID)
	svc.invalidator.InvalidateMentor(ctx, link.MentorID)
	return nil
}

func (svc *Service) LinkByID(ctx context.Context, id string) (Link, error) {
	return svc.repo.GetLink(ctx, id)
}

// LinksOf returns the active links `actor` takes part in.
func (svc *Service) LinksOf(ctx context.Context, actor core.Actor) ([]Link, error) {
	var filter LinkFilter
	switch {
	case actor.IsMentor():
		filter.MentorID = actor.ID
	case actor.IsMentee():
		filter.MenteeID = actor.ID
	default:
		return []Link{}, nil
	}
	links, err := svc.repo.ActiveLinks(ctx, filter)
	return links, errors.Wrap(err, "querying active links")
}

// ActiveMentorOf returns the most recently started active link of a mentee.
func (svc *Service) ActiveMentorOf(ctx context.Context, menteeID string) (Link, error) {
	links, err := svc.repo.ActiveLinks(ctx, LinkFilter{MenteeID: menteeID})
	if err != nil {
		return Link{}, errors.Wrap(err, "querying active links")
	}
	if len(links) == 0 {
		return Link{}, ErrLinkNotFound
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].StartedAt.After(links[j].StartedAt) })
	return links[0], nil
}

// MentorIDsOf returns the ids of every active mentor of a mentee.
func (svc *Service) MentorIDsOf(ctx context.Context, menteeID string) ([]string, error) {
	links, err := svc.repo.ActiveLinks(ctx, LinkFilter{MenteeID: menteeID})
	if err != nil {
		return nil, errors.Wrap(err, "querying active links")
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.MentorID)
	}
	return ids, nil
}

// ListMentees returns the actively linked mentees of a mentor, by name.
func (svc *Service) ListMentees(ctx context.Context, mentorID string) ([]Profile, error) {
	links, err := svc.repo.ActiveLinks(ctx, LinkFilter{MentorID: mentorID})
	if err != nil {
		return nil, errors.Wrap(err, "querying active links")
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.MenteeID)
	}
	mentees, err := svc.ByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying mentees")
	}
	sort.SliceStable(mentees, func(i, j int) bool { return mentees[i].Name < mentees[j].Name })
	return mentees, nil
}

// CheckLinked returns the active link between a mentor and a mentee or ErrNotLinked.
func (svc *Service) CheckLinked(ctx context.Context, mentorID, menteeID string) (Link, error) {
	links, err := svc.repo.ActiveLinks(ctx, LinkFilter{MentorID: mentorID, MenteeID: menteeID})
	if err != nil {
		return Link{}, errors.Wrap(err, "querying active links")
	}
	if len(links) == 0 {
		return Link{}, ErrNotLinked
	}
	return links[0], nil
}

// CanAccessMentee reports whether `actor` may read the data of mentee `menteeID`:
// the mentee themselves, an actively linked mentor or an admin.
func (svc *Service) CanAccessMentee(ctx context.Context, actor core.Actor, menteeID string) error {
	switch {
	case actor.IsAdmin(), actor.IsMentee() && actor.ID == menteeID:
		return nil
	case actor.IsMentor():
		_, err := svc.CheckLinked(ctx, actor.ID, menteeID)
		return err
	}
	return ErrNotLinked
}
