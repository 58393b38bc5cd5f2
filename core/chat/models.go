package chat

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jhkim0602/monguri-sub002/core"
)

// Meeting statuses
const (
	MeetingRequested = "requested"
	MeetingConfirmed = "confirmed"
	MeetingDeclined  = "declined"
	MeetingCancelled = "cancelled"
)

const (
	DefaultPageSize = 50
	maxPageSize     = 200
)

type (
	// Message belongs to the conversation of a mentor-mentee link.
	Message struct {
		ID        string    `json:"id"`
		LinkID    string    `json:"linkId"`
		SenderID  string    `json:"senderId"`
		Body      string    `json:"body"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Meeting struct {
		ID          string    `json:"id"`
		LinkID      string    `json:"linkId"`
		RequestedBy string    `json:"requestedBy"`
		Title       string    `json:"title"`
		StartsAt    time.Time `json:"startsAt"`
		DurationMin int       `json:"durationMin"`
		Status      string    `json:"status"`
		MeetingURL  *string   `json:"meetingUrl"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// Page selects the messages sent strictly before Before (newest first).
	Page struct {
		Before *time.Time
		Limit  int
	}
)

func (p *Page) Clean() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
}

type NewMessage struct {
	Body string `json:"body" validate:"required,notblank,max=4000"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Body = core.CleanString(nm.Body)
	return validate.Struct(nm)
}

type NewMeeting struct {
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	StartsAt    time.Time `json:"startsAt" validate:"required"`
	DurationMin int       `json:"durationMin" validate:"required,min=10,max=240"`
	MeetingURL  *string   `json:"meetingUrl" validate:"omitempty,url"`
}

func (nm *NewMeeting) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.MeetingURL = core.CleanStringPtr(nm.MeetingURL)
	return validate.Struct(nm)
}

// MeetingResponse is the counterpart's answer to a meeting request.
type MeetingResponse struct {
	Accept     bool    `json:"accept"`
	MeetingURL *string `json:"meetingUrl" validate:"omitempty,url"`
}

func (mr *MeetingResponse) Validate(validate *validator.Validate) error {
	mr.MeetingURL = core.CleanStringPtr(mr.MeetingURL)
	return validate.Struct(mr)
}
