package task

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jhkim0602/monguri-sub002/core"
)

// Statuses
const (
	StatusPending           = "pending"
	StatusSubmitted         = "submitted"
	StatusFeedbackCompleted = "feedback_completed"

	FeedbackCompleted = "completed"
)

type (
	Material struct {
		Title   string `json:"title" validate:"required,notblank,max=200"`
		URL     string `json:"url,omitempty" validate:"omitempty,url"`
		FileRef string `json:"fileRef,omitempty" validate:"required_without=URL"`
		Type    string `json:"type" validate:"required,oneof=link file pdf image video"`
	}

	Attachment struct {
		Name        string `json:"name" validate:"required,notblank"`
		URL         string `json:"url" validate:"required,url"`
		ContentType string `json:"contentType,omitempty"`
	}

	// MentorTask is an assignment created by a mentor for one of their mentees.
	MentorTask struct {
		ID          string     `json:"id"`
		MentorID    string     `json:"mentorId"`
		MenteeID    string     `json:"menteeId"`
		SubjectID   *string    `json:"subjectId"`
		Title       string     `json:"title"`
		Description *string    `json:"description"`
		Status      string     `json:"status"`
		Deadline    time.Time  `json:"deadline"`
		Materials   []Material `json:"materials"`
		CreatedAt   time.Time  `json:"createdAt"`
		UpdatedAt   time.Time  `json:"updatedAt"`
	}

	// Submission is append-only; the latest by SubmittedAt is the one surfaced.
	Submission struct {
		ID          string       `json:"id"`
		TaskID      string       `json:"taskId"`
		MenteeID    string       `json:"menteeId"`
		SubmittedAt time.Time    `json:"submittedAt"`
		Note        *string      `json:"note"`
		Attachments []Attachment `json:"attachments"`
	}

	// Feedback is append-only; the latest by CreatedAt is the one surfaced.
	Feedback struct {
		ID        string     `json:"id"`
		TaskID    string     `json:"taskId"`
		MentorID  string     `json:"mentorId"`
		Comment   string     `json:"comment"`
		Rating    int        `json:"rating"`
		Status    string     `json:"status"`
		IsRead    bool       `json:"isRead"`
		ReadAt    *time.Time `json:"readAt"`
		CreatedAt time.Time  `json:"createdAt"`
	}

	// QueryFilter applies AND operation on its non-empty fields.
	QueryFilter struct {
		IDs          []string   `query:"-"`
		MentorID     string     `query:"-"`
		MenteeID     string     `query:"menteeId"`
		SubjectID    string     `query:"subjectId"`
		Statuses     []string   `query:"status"`
		DeadlineFrom *time.Time `query:"-"`
		DeadlineTo   *time.Time `query:"-"`
	}
)

func (t MentorTask) IsKnownStatus() bool {
	switch t.Status {
	case StatusPending, StatusSubmitted, StatusFeedbackCompleted:
		return true
	}
	return false
}

// NewTask contains information needed to assign a task.
type NewTask struct {
	MenteeID    string     `json:"menteeId" validate:"required,uuid"`
	SubjectID   *string    `json:"subjectId"` // subject id or slug
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description *string    `json:"description"`
	Deadline    time.Time  `json:"deadline" validate:"required"`
	Materials   []Material `json:"materials" validate:"omitempty,max=20,dive"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanStringPtr(nt.Description)
	nt.SubjectID = core.CleanStringPtr(nt.SubjectID)
	return validate.Struct(nt)
}

// UpdateTask defines what may be changed on an existing task. Nil fields are left untouched.
type UpdateTask struct {
	SubjectID   *string     `json:"subjectId"`
	Title       *string     `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string     `json:"description"`
	Deadline    *time.Time  `json:"deadline"`
	Materials   *[]Material `json:"materials" validate:"omitempty,max=20,dive"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	ut.Title = core.CleanStringPtr(ut.Title)
	return validate.Struct(ut)
}

type NewSubmission struct {
	Note        *string      `json:"note"`
	Attachments []Attachment `json:"attachments" validate:"omitempty,max=10,dive"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Note = core.CleanStringPtr(ns.Note)
	return validate.Struct(ns)
}

type NewFeedback struct {
	Comment string `json:"comment" validate:"required,notblank"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.Comment = core.CleanString(nf.Comment)
	return validate.Struct(nf)
}
