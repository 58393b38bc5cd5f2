package task

import "time"

type (
	// Summary counts tasks by status. Tasks with an unknown status are counted in Unknown only.
	Summary struct {
		Total             int `json:"total"`
		Pending           int `json:"pending"`
		Submitted         int `json:"submitted"`
		FeedbackCompleted int `json:"feedbackCompleted"`
		Unknown           int `json:"-"`
	}

	// Derived is the per-task state computed from its submissions and feedback.
	Derived struct {
		LatestSubmission  *Submission `json:"latestSubmission"`
		LatestFeedback    *Feedback   `json:"latestFeedback"`
		HasMentorResponse bool        `json:"hasMentorResponse"`
	}

	// View is a task with its derived state.
	View struct {
		MentorTask
		Derived
	}

	// Detail is a task with its full submission and feedback history, most recent first.
	Detail struct {
		View
		Submissions []Submission `json:"submissions"`
		Feedback    []Feedback   `json:"feedback"`
	}

	// MenteeTasks is the mentee facing task list.
	MenteeTasks struct {
		Summary Summary `json:"summary"`
		Tasks   []View  `json:"tasks"`
	}
)

// Summarize counts `tasks` by status in a single pass; Pending + Submitted + FeedbackCompleted == Total.
func Summarize(tasks []MentorTask) Summary {
	var s Summary
	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			s.Pending++
		case StatusSubmitted:
			s.Submitted++
		case StatusFeedbackCompleted:
			s.FeedbackCompleted++
		default:
			s.Unknown++
			continue
		}
		s.Total++
	}
	return s
}

// later reports whether (at, id) sorts after (refAt, refID); ids break timestamp ties.
func later(at time.Time, id string, refAt time.Time, refID string) bool {
	if at.Equal(refAt) {
		return id > refID
	}
	return at.After(refAt)
}

// LatestSubmission returns the submission with the greatest SubmittedAt, or nil.
func LatestSubmission(subs []Submission) *Submission {
	var latest *Submission
	for i := range subs {
		if latest == nil || later(subs[i].SubmittedAt, subs[i].ID, latest.SubmittedAt, latest.ID) {
			latest = &subs[i]
		}
	}
	if latest == nil {
		return nil
	}
	s := *latest
	return &s
}

// LatestFeedback returns the feedback with the greatest CreatedAt, or nil.
func LatestFeedback(fbs []Feedback) *Feedback {
	var latest *Feedback
	for i := range fbs {
		if latest == nil || later(fbs[i].CreatedAt, fbs[i].ID, latest.CreatedAt, latest.ID) {
			latest = &fbs[i]
		}
	}
	if latest == nil {
		return nil
	}
	f := *latest
	return &f
}

// Derive computes the derived state of a task from its submissions and feedback.
func Derive(subs []Submission, fbs []Feedback) Derived {
	fb := LatestFeedback(fbs)
	return Derived{
		LatestSubmission:  LatestSubmission(subs),
		LatestFeedback:    fb,
		HasMentorResponse: fb != nil,
	}
}

// BuildViews derives every task of `tasks` from the submissions and feedback of all of them.
func BuildViews(tasks []MentorTask, subs []Submission, fbs []Feedback) []View {
	subsByTask := make(map[string][]Submission, len(tasks))
	for _, s := range subs {
		subsByTask[s.TaskID] = append(subsByTask[s.TaskID], s)
	}
	fbsByTask := make(map[string][]Feedback, len(tasks))
	for _, f := range fbs {
		fbsByTask[f.TaskID] = append(fbsByTask[f.TaskID], f)
	}

	views := make([]View, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, View{MentorTask: t, Derived: Derive(subsByTask[t.ID], fbsByTask[t.ID])})
	}
	return views
}
