package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

type taskRepository struct {
	tasks       *table[task.MentorTask]
	submissions *table[task.Submission]
	feedback    *table[task.Feedback]
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{tasks: db.tasks, submissions: db.submissions, feedback: db.feedback}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (repo *taskRepository) CreateTask(_ context.Context, t task.MentorTask, _ ...core.DBExecutor) (task.MentorTask, error) {
	repo.tasks.mutex.Lock()
	defer repo.tasks.mutex.Unlock()

	t.ID = newID()
	repo.tasks.rows[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) GetTask(_ context.Context, id string, _ ...core.DBExecutor) (task.MentorTask, error) {
	repo.tasks.mutex.RLock()
	defer repo.tasks.mutex.RUnlock()

	if t, ok := repo.tasks.rows[id]; ok {
		return *t, nil
	}
	return task.MentorTask{}, task.ErrNotFound
}

func (repo *taskRepository) QueryTasks(_ context.Context, filter task.QueryFilter, _ ...core.DBExecutor) ([]task.MentorTask, error) {
	repo.tasks.mutex.RLock()
	defer repo.tasks.mutex.RUnlock()

	res := make([]task.MentorTask, 0)
	for _, t := range repo.tasks.rows {
		switch {
		case len(filter.IDs) > 0 && !contains(filter.IDs, t.ID),
			filter.MentorID != "" && t.MentorID != filter.MentorID,
			filter.MenteeID != "" && t.MenteeID != filter.MenteeID,
			filter.SubjectID != "" && (t.SubjectID == nil || *t.SubjectID != filter.SubjectID),
			len(filter.Statuses) > 0 && !contains(filter.Statuses, t.Status),
			filter.DeadlineFrom != nil && t.Deadline.Before(*filter.DeadlineFrom),
			filter.DeadlineTo != nil && t.Deadline.After(*filter.DeadlineTo):
			continue
		}
		res = append(res, *t)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Deadline.Equal(res[j].Deadline) {
			return res[i].Deadline.Before(res[j].Deadline)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (repo *taskRepository) UpdateTask(_ context.Context, t task.MentorTask, _ ...core.DBExecutor) (task.MentorTask, error) {
	repo.tasks.mutex.Lock()
	defer repo.tasks.mutex.Unlock()

	if _, ok := repo.tasks.rows[t.ID]; !ok {
		return task.MentorTask{}, task.ErrNotFound
	}
	repo.tasks.rows[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) UpdateTaskStatus(_ context.Context, id, status string, from []string, _ ...core.DBExecutor) (bool, error) {
	repo.tasks.mutex.Lock()
	defer repo.tasks.mutex.Unlock()

	t, ok := repo.tasks.rows[id]
	if !ok || !contains(from, t.Status) {
		return false, nil
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (repo *taskRepository) DeleteTask(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.tasks.mutex.Lock()
	defer repo.tasks.mutex.Unlock()
	repo.submissions.mutex.Lock()
	defer repo.submissions.mutex.Unlock()
	repo.feedback.mutex.Lock()
	defer repo.feedback.mutex.Unlock()

	delete(repo.tasks.rows, id)
	for sid, s := range repo.submissions.rows {
		if s.TaskID == id {
			delete(repo.submissions.rows, sid)
		}
	}
	for fid, f := range repo.feedback.rows {
		if f.TaskID == id {
			delete(repo.feedback.rows, fid)
		}
	}
	return nil
}

func (repo *taskRepository) CreateSubmission(_ context.Context, s task.Submission, _ ...core.DBExecutor) (task.Submission, error) {
	repo.submissions.mutex.Lock()
	defer repo.submissions.mutex.Unlock()

	s.ID = newID()
	repo.submissions.rows[s.ID] = &s
	return s, nil
}

func (repo *taskRepository) QuerySubmissions(_ context.Context, taskIDs []string, _ ...core.DBExecutor) ([]task.Submission, error) {
	repo.submissions.mutex.RLock()
	defer repo.submissions.mutex.RUnlock()

	var res []task.Submission
	for _, s := range repo.submissions.rows {
		if contains(taskIDs, s.TaskID) {
			res = append(res, *s)
		}
	}
	return res, nil
}

func (repo *taskRepository) CreateFeedback(_ context.Context, f task.Feedback, _ ...core.DBExecutor) (task.Feedback, error) {
	repo.feedback.mutex.Lock()
	defer repo.feedback.mutex.Unlock()

	f.ID = newID()
	repo.feedback.rows[f.ID] = &f
	return f, nil
}

func (repo *taskRepository) GetFeedback(_ context.Context, id string, _ ...core.DBExecutor) (task.Feedback, error) {
	repo.feedback.mutex.RLock()
	defer repo.feedback.mutex.RUnlock()

	if f, ok := repo.feedback.rows[id]; ok {
		return *f, nil
	}
	return task.Feedback{}, task.ErrFeedbackNotFound
}

func (repo *taskRepository) QueryFeedback(_ context.Context, taskIDs []string, _ ...core.DBExecutor) ([]task.Feedback, error) {
	repo.feedback.mutex.RLock()
	defer repo.feedback.mutex.RUnlock()

	var res []task.Feedback
	for _, f := range repo.feedback.rows {
		if contains(taskIDs, f.TaskID) {
			res = append(res, *f)
		}
	}
	return res, nil
}

func (repo *taskRepository) MarkFeedbackRead(_ context.Context, id string, at time.Time, _ ...core.DBExecutor) error {
	repo.feedback.mutex.Lock()
	defer repo.feedback.mutex.Unlock()

	f, ok := repo.feedback.rows[id]
	if !ok {
		return task.ErrFeedbackNotFound
	}
	if !f.IsRead {
		f.IsRead = true
		f.ReadAt = &at
	}
	return nil
}
