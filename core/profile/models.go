package profile

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhkim0602/monguri-sub002/core"
)

// Link statuses
const (
	LinkActive   = "active"
	LinkInactive = "inactive"
)

type Profile struct {
	ID           string     `json:"id"`
	Role         string     `json:"role"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	AvatarURL    string     `json:"avatarUrl"`
	Intro        string     `json:"intro"`
	Goal         *string    `json:"goal"`
	TargetExam   *string    `json:"targetExam"`
	TargetDate   *string    `json:"targetDate"` // YYYY-MM-DD
	Grade        *string    `json:"grade"`
	IsActive     bool       `json:"isActive"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"` // UTC
	UpdatedAt    time.Time  `json:"updatedAt"` // UTC
	LastLogin    *time.Time `json:"lastLogin"` // UTC
}

func (p *Profile) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p *Profile) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

func (p *Profile) IsMentor() bool { return p.Role == core.RoleMentor }
func (p *Profile) IsMentee() bool { return p.Role == core.RoleMentee }
func (p *Profile) IsAdmin() bool  { return p.Role == core.RoleAdmin }

func (p *Profile) Actor() core.Actor { return core.Actor{ID: p.ID, Role: p.Role} }

// Portal is the frontend area a profile lands on after login.
func (p *Profile) Portal() string {
	return "/" + p.Role
}

// Link is a mentor-mentee relationship. Several active links per mentee are tolerated.
type Link struct {
	ID        string    `json:"id"`
	MentorID  string    `json:"mentorId"`
	MenteeID  string    `json:"menteeId"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

func (l Link) IsActive() bool { return l.Status == LinkActive }

// HasParticipant reports whether profile id is the mentor or the mentee of the link.
func (l Link) HasParticipant(id string) bool { return l.MentorID == id || l.MenteeID == id }

// Counterpart returns the other participant of the link.
func (l Link) Counterpart(id string) string {
	if l.MentorID == id {
		return l.MenteeID
	}
	return l.MentorID
}

// NewProfile contains information needed to create a new Profile.
type NewProfile struct {
	Role            string  `json:"role" validate:"required,role"`
	Name            string  `json:"name" validate:"required,notblank,max=100"`
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required"`
	PasswordConfirm string  `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Intro           string  `json:"intro"`
	Goal            *string `json:"goal"`
	TargetExam      *string `json:"targetExam" validate:"omitempty,max=100"`
	TargetDate      *string `json:"targetDate" validate:"omitempty,isodate"`
	Grade           *string `json:"grade" validate:"omitempty,max=32"`

	// set by operators only (admin CLI)
	allowAdmin bool
}

// AsOperator lifts the signup restrictions so that admin profiles can be created.
func (np NewProfile) AsOperator() NewProfile {
	np.allowAdmin = true
	return np
}

func (np *NewProfile) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	np.Name = core.CleanString(np.Name)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Intro = core.CleanString(np.Intro)
	np.TargetExam = core.CleanStringPtr(np.TargetExam)
	np.Grade = core.CleanStringPtr(np.Grade)

	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.Role == core.RoleAdmin && !np.allowAdmin {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errAdminSignup.Error()})
	}
	return svc.checkUniqueness(ctx, np.Email)
}

// UpdateProfile defines what information may be provided to modify an existing Profile.
// Nil fields are left untouched.
type UpdateProfile struct {
	Name       *string `json:"name" validate:"omitempty,notblank,max=100"`
	AvatarURL  *string `json:"avatarUrl" validate:"omitempty,url"`
	Intro      *string `json:"intro"`
	Goal       *string `json:"goal"`
	TargetExam *string `json:"targetExam" validate:"omitempty,max=100"`
	TargetDate *string `json:"targetDate" validate:"omitempty,isodate"`
	Grade      *string `json:"grade" validate:"omitempty,max=32"`
}

// OnlyIdentity reports whether only the name and the avatar are being changed.
func (up UpdateProfile) OnlyIdentity() bool {
	return up.Intro == nil && up.Goal == nil && up.TargetExam == nil && up.TargetDate == nil && up.Grade == nil
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Name = core.CleanStringPtr(up.Name)
	up.AvatarURL = core.CleanStringPtr(up.AvatarURL)
	up.TargetExam = core.CleanStringPtr(up.TargetExam)
	up.Grade = core.CleanStringPtr(up.Grade)
	return validate.Struct(up)
}

func (up UpdateProfile) apply(p *Profile) {
	if up.Name != nil {
		p.Name = *up.Name
	}
	if up.AvatarURL != nil {
		p.AvatarURL = *up.AvatarURL
	}
	if up.Intro != nil {
		p.Intro = *up.Intro
	}
	if up.Goal != nil {
		p.Goal = up.Goal
	}
	if up.TargetExam != nil {
		p.TargetExam = up.TargetExam
	}
	if up.TargetDate != nil {
		p.TargetDate = up.TargetDate
	}
	if up.Grade != nil {
		p.Grade = up.Grade
	}
}

type ResetPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (rp ResetPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// GetFilter selects a single profile; the first non-empty field wins.
type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search   string            `query:"search"`
	Role     string            `query:"role"`
	IsActive *bool             `query:"isActive"`
	Ordering []core.DBOrdering `query:"-"` // createdAt when empty
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
