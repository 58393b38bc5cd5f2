package planner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim0602/monguri-sub002/core/subject"
)

func TestRecurrenceRule_Dates(t *testing.T) {
	tests := []struct {
		name  string
		rule  RecurrenceRule
		start string
		want  []string
	}{
		{
			name:  "daily",
			rule:  RecurrenceRule{Frequency: FrequencyDaily, Until: "2026-03-04"},
			start: "2026-03-02",
			want:  []string{"2026-03-02", "2026-03-03", "2026-03-04"},
		},
		{
			name:  "weekly on given weekdays",
			rule:  RecurrenceRule{Frequency: FrequencyWeekly, Weekdays: []int{1, 3, 5}, Until: "2026-03-11"},
			start: "2026-03-02",
			want:  []string{"2026-03-02", "2026-03-04", "2026-03-06", "2026-03-09", "2026-03-11"},
		},
		{
			name:  "weekly without weekdays repeats the start weekday",
			rule:  RecurrenceRule{Frequency: FrequencyWeekly, Until: "2026-03-20"},
			start: "2026-03-04",
			want:  []string{"2026-03-04", "2026-03-11", "2026-03-18"},
		},
		{
			name:  "start skipped when not on a weekday of the rule",
			rule:  RecurrenceRule{Frequency: FrequencyWeekly, Weekdays: []int{0}, Until: "2026-03-10"},
			start: "2026-03-02",
			want:  []string{"2026-03-08"},
		},
		{
			name:  "until before start",
			rule:  RecurrenceRule{Frequency: FrequencyDaily, Until: "2026-03-01"},
			start: "2026-03-02",
		},
		{
			name:  "until is included across a month end",
			rule:  RecurrenceRule{Frequency: FrequencyDaily, Until: "2026-03-01"},
			start: "2026-02-28",
			want:  []string{"2026-02-28", "2026-03-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Dates(tt.start)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecurrenceRule_Dates_bounded(t *testing.T) {
	rule := RecurrenceRule{Frequency: FrequencyDaily, Until: "2030-12-31"}
	got, err := rule.Dates("2026-01-01")
	require.NoError(t, err)
	assert.Len(t, got, MaxOccurrences)

	_, err = RecurrenceRule{Frequency: FrequencyDaily, Until: "soon"}.Dates("2026-01-01")
	assert.Error(t, err)
}

func TestNewTasks_expand(t *testing.T) {
	note := "p. 12"
	nt := NewTasks{
		Templates:      []Template{{Title: "Vocabulary", Date: "2026-03-02", StudyNote: &note}},
		RecurrenceRule: &RecurrenceRule{Frequency: FrequencyDaily, Until: "2026-03-03"},
	}

	// without Expand the templates are taken as they are
	got, err := nt.expand()
	require.NoError(t, err)
	assert.Len(t, got, 1)

	nt.Expand = true
	got, err = nt.expand()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-03-03", got[1].Date)
	assert.Equal(t, "Vocabulary", got[1].Title)
	assert.Equal(t, &note, got[1].StudyNote)
}

func TestBuildTasks(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mathID := "6f1c1d57-8f0e-4d0e-9d7a-0c4f2b8f5a11"
	idx := subject.SlugIndex{"math": mathID}
	groupID := "group"

	slug, unknown := "math", "astrology"
	upperID := strings.ToUpper(mathID)
	staleID := "0b7e3b52-2c1a-4f3e-8d11-93c2a6f0e7d4"
	tasks := buildTasks("mentee", []Template{
		{Title: "A", Date: "2026-03-02", SubjectID: &slug},
		{Title: "B", Date: "2026-03-03", SubjectID: &unknown},
		{Title: "C", Date: "2026-03-04", SubjectID: &mathID},
		{Title: "D", Date: "2026-03-05", SubjectID: &upperID},
		{Title: "E", Date: "2026-03-06", SubjectID: &staleID},
	}, idx, &groupID, now)

	require.Len(t, tasks, 5)
	require.NotNil(t, tasks[0].SubjectID)
	assert.Equal(t, mathID, *tasks[0].SubjectID)
	assert.Nil(t, tasks[1].SubjectID)
	assert.Equal(t, mathID, *tasks[2].SubjectID)
	require.NotNil(t, tasks[3].SubjectID)
	assert.Equal(t, mathID, *tasks[3].SubjectID)
	// an id of no known subject would break the batch insert
	assert.Nil(t, tasks[4].SubjectID)
	for _, tk := range tasks {
		assert.Equal(t, "mentee", tk.MenteeID)
		assert.Equal(t, &groupID, tk.RecurringGroupID)
		assert.NotNil(t, tk.Materials)
		assert.NotNil(t, tk.Attachments)
		assert.Equal(t, now, tk.CreatedAt)
	}
}
