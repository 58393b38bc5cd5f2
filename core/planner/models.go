package planner

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

// Recurrence frequencies
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"

	// MaxOccurrences bounds both the templates of a batch and the expansion of a rule.
	MaxOccurrences = 366
)

type (
	// Task is a self-planned to-do item of a mentee, optionally commented on by a mentor.
	Task struct {
		ID               string            `json:"id"`
		MenteeID         string            `json:"menteeId"`
		Title            string            `json:"title"`
		Date             string            `json:"date"` // YYYY-MM-DD
		SubjectID        *string           `json:"subjectId"`
		Completed        bool              `json:"completed"`
		TimeSpentSec     int               `json:"timeSpentSec"`
		StartTime        *string           `json:"startTime"` // HH:MM
		EndTime          *string           `json:"endTime"`   // HH:MM
		StudyNote        *string           `json:"studyNote"`
		Attachments      []task.Attachment `json:"attachments"`
		Materials        []task.Material   `json:"materials"`
		MentorComment    *string           `json:"mentorComment"`
		MentorCommentAt  *time.Time        `json:"mentorCommentAt"`
		RecurringGroupID *string           `json:"recurringGroupId"`
		CreatedAt        time.Time         `json:"createdAt"`
		UpdatedAt        time.Time         `json:"updatedAt"`
	}

	// RecurrenceRule is stored as is on the group; only Expand interprets it.
	RecurrenceRule struct {
		Frequency string `json:"frequency" validate:"required,oneof=daily weekly"`
		Weekdays  []int  `json:"weekdays,omitempty" validate:"omitempty,max=7,dive,min=0,max=6"` // 0 = Sunday
		Until     string `json:"until,omitempty" validate:"omitempty,isodate"`
	}

	// RecurringGroup links the planner tasks generated from one repeat rule.
	RecurringGroup struct {
		ID             string         `json:"id"`
		MenteeID       string         `json:"menteeId"`
		RecurrenceRule RecurrenceRule `json:"recurrenceRule"`
		CreatedAt      time.Time      `json:"createdAt"`
	}

	DailyRecord struct {
		ID            string     `json:"id"`
		MenteeID      string     `json:"menteeId"`
		Date          string     `json:"date"` // YYYY-MM-DD
		StudyTimeMin  int        `json:"studyTimeMin"`
		Mood          *string    `json:"mood"`
		MenteeComment *string    `json:"menteeComment"`
		MentorReply   *string    `json:"mentorReply"`
		MentorReplyAt *time.Time `json:"mentorReplyAt"`
		UpdatedAt     time.Time  `json:"updatedAt"`
	}

	ScheduleEvent struct {
		ID        string    `json:"id"`
		MenteeID  string    `json:"menteeId"`
		SubjectID *string   `json:"subjectId"`
		Title     string    `json:"title"`
		Date      string    `json:"date"` // YYYY-MM-DD
		CreatedAt time.Time `json:"createdAt"`
	}

	// QueryFilter applies AND operation on its non-empty fields.
	QueryFilter struct {
		MenteeID          string
		Range             core.DateRange
		RecurringGroupID  string
		WithMentorComment bool
	}

	CreateResult struct {
		CreatedCount     int     `json:"createdCount"`
		RecurringGroupID *string `json:"recurringGroupId,omitempty"`
	}
)

// Template is one planner task to create. SubjectID may hold a subject id or a subject slug.
type Template struct {
	Title     string          `json:"title" validate:"required,notblank,max=200"`
	Date      string          `json:"date" validate:"required,isodate"`
	SubjectID *string         `json:"subjectId"`
	StartTime *string         `json:"startTime" validate:"omitempty,hhmm"`
	EndTime   *string         `json:"endTime" validate:"omitempty,hhmm"`
	StudyNote *string         `json:"studyNote"`
	Materials []task.Material `json:"materials" validate:"omitempty,max=20,dive"`
}

// NewTasks is a batch of planner tasks; with a RecurrenceRule they are created under one group.
// Expand materializes the occurrences of the rule from the single template of the batch.
type NewTasks struct {
	Templates      []Template      `json:"templates" validate:"required,min=1,max=366,dive"`
	RecurrenceRule *RecurrenceRule `json:"recurrenceRule"`
	Expand         bool            `json:"expand"`
}

func (nt *NewTasks) Validate(validate *validator.Validate) error {
	for i := range nt.Templates {
		nt.Templates[i].Title = core.CleanString(nt.Templates[i].Title)
		nt.Templates[i].StudyNote = core.CleanStringPtr(nt.Templates[i].StudyNote)
	}
	if err := validate.Struct(nt); err != nil {
		return err
	}
	if nt.Expand {
		if nt.RecurrenceRule == nil || nt.RecurrenceRule.Until == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "recurrenceRule", Error: "an end date is required to expand a rule"})
		}
		if len(nt.Templates) != 1 {
			return core.NewValidationError(nil, core.FieldError{Field: "templates", Error: "exactly one template can be expanded"})
		}
		dates, err := nt.RecurrenceRule.Dates(nt.Templates[0].Date)
		if err != nil || len(dates) == 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "recurrenceRule.until", Error: "the rule has no occurrence on or before its end date"})
		}
	}
	return nil
}

// UpdateTask defines what the mentee may change on a planner task. Nil fields are left untouched.
type UpdateTask struct {
	Title        *string            `json:"title" validate:"omitempty,notblank,max=200"`
	Date         *string            `json:"date" validate:"omitempty,isodate"`
	SubjectID    *string            `json:"subjectId"`
	Completed    *bool              `json:"completed"`
	TimeSpentSec *int               `json:"timeSpentSec" validate:"omitempty,min=0,max=86400"`
	StartTime    *string            `json:"startTime" validate:"omitempty,hhmm"`
	EndTime      *string            `json:"endTime" validate:"omitempty,hhmm"`
	StudyNote    *string            `json:"studyNote"`
	Attachments  *[]task.Attachment `json:"attachments" validate:"omitempty,max=10,dive"`
	Materials    *[]task.Material   `json:"materials" validate:"omitempty,max=20,dive"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	ut.Title = core.CleanStringPtr(ut.Title)
	return validate.Struct(ut)
}

type MentorComment struct {
	Comment string `json:"comment" validate:"required,notblank"`
}

func (mc *MentorComment) Validate(validate *validator.Validate) error {
	mc.Comment = core.CleanString(mc.Comment)
	return validate.Struct(mc)
}

// DailyEntry is the mentee side of a daily record.
type DailyEntry struct {
	StudyTimeMin  int     `json:"studyTimeMin" validate:"min=0,max=1440"`
	Mood          *string `json:"mood" validate:"omitempty,max=32"`
	MenteeComment *string `json:"menteeComment"`
}

func (de *DailyEntry) Validate(validate *validator.Validate) error {
	de.Mood = core.CleanStringPtr(de.Mood)
	de.MenteeComment = core.CleanStringPtr(de.MenteeComment)
	return validate.Struct(de)
}

type NewScheduleEvent struct {
	Title     string  `json:"title" validate:"required,notblank,max=200"`
	Date      string  `json:"date" validate:"required,isodate"`
	SubjectID *string `json:"subjectId"`
}

func (ne *NewScheduleEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	return validate.Struct(ne)
}
