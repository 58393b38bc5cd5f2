package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

const (
	tableMentorTasks     = "mentor_tasks"
	tableTaskSubmissions = "task_submissions"
	tableTaskFeedback    = "task_feedback"
)

var (
	mentorTaskColumns = []string{"id", "mentor_id", "mentee_id", "subject_id", "title", "description", "status", "deadline", "materials", "created_at", "updated_at"}
	submissionColumns = []string{"id", "task_id", "mentee_id", "submitted_at", "note", "attachments"}
	feedbackColumns   = []string{"id", "task_id", "mentor_id", "comment", "rating", "status", "is_read", "read_at", "created_at"}
)

type (
	mentorTaskRow struct {
		ID          string      `boil:"id"`
		MentorID    string      `boil:"mentor_id"`
		MenteeID    string      `boil:"mentee_id"`
		SubjectID   null.String `boil:"subject_id"`
		Title       string      `boil:"title"`
		Description null.String `boil:"description"`
		Status      string      `boil:"status"`
		Deadline    time.Time   `boil:"deadline"`
		Materials   types.JSON  `boil:"materials"`
		CreatedAt   time.Time   `boil:"created_at"`
		UpdatedAt   time.Time   `boil:"updated_at"`
	}

	submissionRow struct {
		ID          string      `boil:"id"`
		TaskID      string      `boil:"task_id"`
		MenteeID    string      `boil:"mentee_id"`
		SubmittedAt time.Time   `boil:"submitted_at"`
		Note        null.String `boil:"note"`
		Attachments types.JSON  `boil:"attachments"`
	}

	feedbackRow struct {
		ID        string    `boil:"id"`
		TaskID    string    `boil:"task_id"`
		MentorID  string    `boil:"mentor_id"`
		Comment   string    `boil:"comment"`
		Rating    int       `boil:"rating"`
		Status    string    `boil:"status"`
		IsRead    bool      `boil:"is_read"`
		ReadAt    null.Time `boil:"read_at"`
		CreatedAt time.Time `boil:"created_at"`
	}
)

func (r mentorTaskRow) values() []interface{} {
	return []interface{}{r.ID, r.MentorID, r.MenteeID, r.SubjectID, r.Title, r.Description, r.Status, r.Deadline, r.Materials, r.CreatedAt, r.UpdatedAt}
}

func (r submissionRow) values() []interface{} {
	return []interface{}{r.ID, r.TaskID, r.MenteeID, r.SubmittedAt, r.Note, r.Attachments}
}

func (r feedbackRow) values() []interface{} {
	return []interface{}{r.ID, r.TaskID, r.MentorID, r.Comment, r.Rating, r.Status, r.IsRead, r.ReadAt, r.CreatedAt}
}

type taskRepository struct {
	repository
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(exec core.DBExecutor) *taskRepository {
	return &taskRepository{repository{exec: exec}}
}

func (repo taskRepository) boilTask(t task.MentorTask) (mentorTaskRow, error) {
	r := mentorTaskRow{
		ID:          t.ID,
		MentorID:    t.MentorID,
		MenteeID:    t.MenteeID,
		SubjectID:   null.StringFromPtr(t.SubjectID),
		Title:       t.Title,
		Description: null.StringFromPtr(t.Description),
		Status:      t.Status,
		Deadline:    t.Deadline.UTC(),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
	materials := t.Materials
	if materials == nil {
		materials = []task.Material{}
	}
	err := r.Materials.Marshal(materials)
	return r, errors.Wrap(err, "encoding materials")
}

func (repo taskRepository) unboilTask(r mentorTaskRow) (task.MentorTask, error) {
	t := task.MentorTask{
		ID:          r.ID,
		MentorID:    r.MentorID,
		MenteeID:    r.MenteeID,
		SubjectID:   r.SubjectID.Ptr(),
		Title:       r.Title,
		Description: r.Description.Ptr(),
		Status:      r.Status,
		Deadline:    r.Deadline.UTC(),
		Materials:   []task.Material{},
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if len(r.Materials) > 0 {
		if err := r.Materials.Unmarshal(&t.Materials); err != nil {
			return task.MentorTask{}, errors.Wrapf(err, "decoding materials of task %s", r.ID)
		}
	}
	return t, nil
}

func (repo taskRepository) CreateTask(ctx context.Context, t task.MentorTask, exec ...core.DBExecutor) (task.MentorTask, error) {
	t.ID = uuid.New().String()
	r, err := repo.boilTask(t)
	if err != nil {
		return task.MentorTask{}, err
	}
	if _, err = insert(ctx, repo.getExec(exec), tableMentorTasks, mentorTaskColumns, r.values()); err != nil {
		return task.MentorTask{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo taskRepository) GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (task.MentorTask, error) {
	if !validID(id) {
		return task.MentorTask{}, task.ErrNotFound
	}
	var r mentorTaskRow
	err := from(tableMentorTasks, mentorTaskColumns, qm.Where("id = ?", id)).Bind(ctx, repo.getExec(exec), &r)
	if err != nil {
		return task.MentorTask{}, trapNoRowsErr(err, task.ErrNotFound, "finding task")
	}
	return repo.unboilTask(r)
}

func (repo taskRepository) QueryTasks(ctx context.Context, filter task.QueryFilter, exec ...core.DBExecutor) ([]task.MentorTask, error) {
	var mods []qm.QueryMod
	if len(filter.IDs) > 0 {
		mods = append(mods, qm.WhereIn("id IN ?", inArgs(filter.IDs)...))
	}
	if filter.MentorID != "" {
		mods = append(mods, qm.Where("mentor_id = ?", filter.MentorID))
	}
	if filter.MenteeID != "" {
		mods = append(mods, qm.Where("mentee_id = ?", filter.MenteeID))
	}
	if filter.SubjectID != "" {
		mods = append(mods, qm.Where("subject_id = ?", filter.SubjectID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]interface{}, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, s)
		}
		mods = append(mods, qm.WhereIn("status IN ?", statuses...))
	}
	if filter.DeadlineFrom != nil {
		mods = append(mods, qm.Where("deadline >= ?", filter.DeadlineFrom.UTC()))
	}
	if filter.DeadlineTo != nil {
		mods = append(mods, qm.Where("deadline <= ?", filter.DeadlineTo.UTC()))
	}
	mods = append(mods, qm.OrderBy("deadline ASC, id ASC"))

	var rows []mentorTaskRow
	if err := from(tableMentorTasks, mentorTaskColumns, mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]task.MentorTask, 0, len(rows))
	for _, r := range rows {
		t, err := repo.unboilTask(r)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, t task.MentorTask, exec ...core.DBExecutor) (task.MentorTask, error) {
	r, err := repo.boilTask(t)
	if err != nil {
		return task.MentorTask{}, err
	}
	n, err := update(ctx, repo.getExec(exec), tableMentorTasks, map[string]interface{}{
		"subject_id":  r.SubjectID,
		"title":       r.Title,
		"description": r.Description,
		"deadline":    r.Deadline,
		"materials":   r.Materials,
		"updated_at":  r.UpdatedAt,
	}, qm.Where("id = ?", t.ID))
	if err != nil {
		return task.MentorTask{}, errors.Wrap(err, "updating task")
	}
	if n == 0 {
		return task.MentorTask{}, task.ErrNotFound
	}
	return t, nil
}

func (repo taskRepository) UpdateTaskStatus(ctx context.Context, id, status string, fromStatuses []string, exec ...core.DBExecutor) (bool, error) {
	if len(fromStatuses) == 0 {
		return false, nil
	}
	allowed := make([]interface{}, 0, len(fromStatuses))
	for _, s := range fromStatuses {
		allowed = append(allowed, s)
	}
	n, err := update(ctx, repo.getExec(exec), tableMentorTasks, map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}, qm.Where("id = ?", id), qm.WhereIn("status IN ?", allowed...))
	if err != nil {
		return false, errors.Wrap(err, "updating task status")
	}
	return n > 0, nil
}

// DeleteTask relies on ON DELETE CASCADE for submissions and feedback.
func (repo taskRepository) DeleteTask(ctx context.Context, id string, exec ...core.DBExecutor) error {
	_, err := remove(ctx, repo.getExec(exec), tableMentorTasks, qm.Where("id = ?", id))
	return errors.Wrap(err, "deleting task")
}

func (repo taskRepository) CreateSubmission(ctx context.Context, s task.Submission, exec ...core.DBExecutor) (task.Submission, error) {
	s.ID = uuid.New().String()
	r := submissionRow{
		ID:          s.ID,
		TaskID:      s.TaskID,
		MenteeID:    s.MenteeID,
		SubmittedAt: s.SubmittedAt.UTC(),
		Note:        null.StringFromPtr(s.Note),
	}
	if err := r.Attachments.Marshal(s.Attachments); err != nil {
		return task.Submission{}, errors.Wrap(err, "encoding attachments")
	}
	if _, err := insert(ctx, repo.getExec(exec), tableTaskSubmissions, submissionColumns, r.values()); err != nil {
		return task.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo taskRepository) QuerySubmissions(ctx context.Context, taskIDs []string, exec ...core.DBExecutor) ([]task.Submission, error) {
	args := inArgs(taskIDs)
	if len(args) == 0 {
		return nil, nil
	}
	var rows []submissionRow
	err := from(tableTaskSubmissions, submissionColumns, qm.WhereIn("task_id IN ?", args...), qm.OrderBy("submitted_at DESC")).
		Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]task.Submission, 0, len(rows))
	for _, r := range rows {
		s := task.Submission{
			ID:          r.ID,
			TaskID:      r.TaskID,
			MenteeID:    r.MenteeID,
			SubmittedAt: r.SubmittedAt.UTC(),
			Note:        r.Note.Ptr(),
			Attachments: []task.Attachment{},
		}
		if len(r.Attachments) > 0 {
			if err = r.Attachments.Unmarshal(&s.Attachments); err != nil {
				return nil, errors.Wrapf(err, "decoding attachments of submission %s", r.ID)
			}
		}
		subs = append(subs, s)
	}
	return subs, nil
}

func unboilFeedback(r feedbackRow) task.Feedback {
	return task.Feedback{
		ID:        r.ID,
		TaskID:    r.TaskID,
		MentorID:  r.MentorID,
		Comment:   r.Comment,
		Rating:    r.Rating,
		Status:    r.Status,
		IsRead:    r.IsRead,
		ReadAt:    r.ReadAt.Ptr(),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (repo taskRepository) CreateFeedback(ctx context.Context, f task.Feedback, exec ...core.DBExecutor) (task.Feedback, error) {
	f.ID = uuid.New().String()
	r := feedbackRow{
		ID:        f.ID,
		TaskID:    f.TaskID,
		MentorID:  f.MentorID,
		Comment:   f.Comment,
		Rating:    f.Rating,
		Status:    f.Status,
		IsRead:    f.IsRead,
		ReadAt:    null.TimeFromPtr(f.ReadAt),
		CreatedAt: f.CreatedAt.UTC(),
	}
	if _, err := insert(ctx, repo.getExec(exec), tableTaskFeedback, feedbackColumns, r.values()); err != nil {
		return task.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return f, nil
}

func (repo taskRepository) GetFeedback(ctx context.Context, id string, exec ...core.DBExecutor) (task.Feedback, error) {
	if !validID(id) {
		return task.Feedback{}, task.ErrFeedbackNotFound
	}
	var r feedbackRow
	err := from(tableTaskFeedback, feedbackColumns, qm.Where("id = ?", id)).Bind(ctx, repo.getExec(exec), &r)
	if err != nil {
		return task.Feedback{}, trapNoRowsErr(err, task.ErrFeedbackNotFound, "finding feedback")
	}
	return unboilFeedback(r), nil
}

func (repo taskRepository) QueryFeedback(ctx context.Context, taskIDs []string, exec ...core.DBExecutor) ([]task.Feedback, error) {
	args := inArgs(taskIDs)
	if len(args) == 0 {
		return nil, nil
	}
	var rows []feedbackRow
	err := from(tableTaskFeedback, feedbackColumns, qm.WhereIn("task_id IN ?", args...), qm.OrderBy("created_at DESC")).
		Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	fbs := make([]task.Feedback, 0, len(rows))
	for _, r := range rows {
		fbs = append(fbs, unboilFeedback(r))
	}
	return fbs, nil
}

func (repo taskRepository) MarkFeedbackRead(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error {
	_, err := update(ctx, repo.getExec(exec), tableTaskFeedback, map[string]interface{}{
		"is_read": true,
		"read_at": at.UTC(),
	}, qm.Where("id = ?", id), qm.Where("is_read = ?", false))
	return errors.Wrap(err, "marking feedback read")
}
