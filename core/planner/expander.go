package planner

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/subject"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

// Dates returns the occurrences of the rule from `start` (included) to Until (included).
// Weekly rules without weekdays repeat on the weekday of `start`.
func (rr RecurrenceRule) Dates(start string) ([]string, error) {
	from, err := core.ParseDate(start)
	if err != nil {
		return nil, errors.Wrap(err, "parsing start date")
	}
	until, err := core.ParseDate(rr.Until)
	if err != nil {
		return nil, errors.Wrap(err, "parsing until date")
	}

	weekdays := make(map[time.Weekday]bool, 7)
	if rr.Frequency == FrequencyWeekly {
		for _, d := range rr.Weekdays {
			weekdays[time.Weekday(d)] = true
		}
		if len(weekdays) == 0 {
			weekdays[from.Weekday()] = true
		}
	}

	var dates []string
	for day := from; !day.After(until) && len(dates) < MaxOccurrences; day = day.AddDate(0, 0, 1) {
		if rr.Frequency == FrequencyWeekly && !weekdays[day.Weekday()] {
			continue
		}
		dates = append(dates, core.FormatDate(day))
	}
	return dates, nil
}

// expand returns the templates to materialize for a batch.
func (nt NewTasks) expand() ([]Template, error) {
	if !nt.Expand {
		return nt.Templates, nil
	}
	tmpl := nt.Templates[0]
	dates, err := nt.RecurrenceRule.Dates(tmpl.Date)
	if err != nil {
		return nil, err
	}
	templates := make([]Template, 0, len(dates))
	for _, date := range dates {
		t := tmpl
		t.Date = date
		templates = append(templates, t)
	}
	return templates, nil
}

// buildTasks turns templates into planner task rows. Subject tokens are resolved with `idx`;
// unknown tokens degrade to no subject instead of failing the batch.
func buildTasks(menteeID string, templates []Template, idx subject.SlugIndex, groupID *string, now time.Time) []Task {
	tasks := make([]Task, 0, len(templates))
	for _, tmpl := range templates {
		materials := tmpl.Materials
		if materials == nil {
			materials = []task.Material{}
		}
		tasks = append(tasks, Task{
			MenteeID:         menteeID,
			Title:            tmpl.Title,
			Date:             tmpl.Date,
			SubjectID:        idx.Resolve(tmpl.SubjectID),
			StartTime:        tmpl.StartTime,
			EndTime:          tmpl.EndTime,
			StudyNote:        tmpl.StudyNote,
			Attachments:      []task.Attachment{},
			Materials:        materials,
			RecurringGroupID: groupID,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return tasks
}
