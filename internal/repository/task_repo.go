package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "gather/contracts/mq"
	"gather/internal/model"
	"gather/pkg/outbox"
)

const aggregateTask = "task"

type TaskRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, outbox: ob, logger: logger}
}

const taskColumns = `id, user_id, title, notes, status, urgency, waiting_on, context_tags,
       source, due_at, created_at, updated_at, completed_at`

func scanTask(row pgx.Row, t *model.Task) error {
	return row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Notes, &t.Status, &t.Urgency, &t.WaitingOn, &t.ContextTags,
		&t.Source, &t.DueAt, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
}

// Create inserts tasks and their initial steps in one transaction and
// queues a task.created event for each.
func (r *TaskRepository) Create(ctx context.Context, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	r.logger.Debug("Inserting tasks",
		zap.Int64("user_id", tasks[0].UserID),
		zap.Int("count", len(tasks)),
	)
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, t := range tasks {
			if t.ContextTags == nil {
				t.ContextTags = []string{}
			}
			err := tx.QueryRow(ctx, `
                INSERT INTO tasks (user_id, title, notes, status, urgency, waiting_on, context_tags, source, due_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
                RETURNING id, created_at, updated_at
            `, t.UserID, t.Title, t.Notes, t.Status, t.Urgency, t.WaitingOn, t.ContextTags, t.Source, t.DueAt,
			).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
			if err != nil {
				return err
			}
			steps, err := insertSteps(ctx, tx, t.ID, draftsOf(t.Steps))
			if err != nil {
				return err
			}
			t.Steps = steps
			if err := enqueue(ctx, tx, r.outbox, aggregateTask, t.ID, mqcontracts.RoutingTaskCreated, mqcontracts.TaskCreatedPayload{
				EventID: newEventID(),
				TraceID: traceID(ctx),
				UserID:  t.UserID,
				TaskID:  t.ID,
				Source:  string(t.Source),
				Urgency: string(t.Urgency),
				At:      t.CreatedAt,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to insert tasks", zap.Error(err), zap.Int64("user_id", tasks[0].UserID))
		return translate(err)
	}
	r.logger.Info("Tasks inserted successfully",
		zap.Int64("user_id", tasks[0].UserID),
		zap.Int64("first_task_id", tasks[0].ID),
		zap.Int("count", len(tasks)),
	)
	return nil
}

func draftsOf(steps []model.Step) []model.StepDraft {
	out := make([]model.StepDraft, 0, len(steps))
	for _, s := range steps {
		out = append(out, model.StepDraft{Text: s.Text, SourceURL: s.SourceURL})
	}
	return out
}

// insertSteps writes drafts at positions 0..n-1.
func insertSteps(ctx context.Context, tx pgx.Tx, taskID int64, drafts []model.StepDraft) ([]model.Step, error) {
	steps := make([]model.Step, 0, len(drafts))
	for i, d := range drafts {
		s := model.Step{TaskID: taskID, Position: i, Text: strings.TrimSpace(d.Text), SourceURL: d.SourceURL}
		var src *string
		if d.SourceURL != "" {
			src = &d.SourceURL
		}
		err := tx.QueryRow(ctx, `
            INSERT INTO steps (task_id, position, text, source_url)
            VALUES ($1, $2, $3, $4)
            RETURNING id
        `, taskID, i, s.Text, src).Scan(&s.ID)
		if err != nil {
			return nil, fmt.Errorf("insert step %d: %w", i, err)
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// Get returns a task with its steps.
func (r *TaskRepository) Get(ctx context.Context, userID, id int64) (*model.Task, error) {
	return r.get(ctx, r.db, userID, id, false)
}

func (r *TaskRepository) get(ctx context.Context, q querier, userID, id int64, forUpdate bool) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var t model.Task
	if err := scanTask(q.QueryRow(ctx, query, id, userID), &t); err != nil {
		return nil, translate(err)
	}
	if err := loadSteps(ctx, q, []*model.Task{&t}); err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns the user's tasks, optionally filtered by status. Open
// tasks come first, most urgent first.
func (r *TaskRepository) List(ctx context.Context, userID int64, status model.TaskStatus) ([]model.Task, error) {
	r.logger.Debug("Listing tasks for user", zap.Int64("user_id", userID), zap.String("status", string(status)))
	query := `SELECT ` + taskColumns + `
        FROM tasks
        WHERE user_id = $1 AND ($2 = '' OR status = $2)
        ORDER BY (status = 'done'),
                 CASE urgency WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END,
                 due_at NULLS LAST,
                 created_at DESC`
	rows, err := r.db.Query(ctx, query, userID, string(status))
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err), zap.Int64("user_id", userID))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := scanTask(rows, &t); err != nil {
			r.logger.Error("Failed to scan task row", zap.Error(err), zap.Int64("user_id", userID))
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ptrs := make([]*model.Task, len(tasks))
	for i := range tasks {
		ptrs[i] = &tasks[i]
	}
	if err := loadSteps(ctx, r.db, ptrs); err != nil {
		r.logger.Error("Failed to load steps", zap.Error(err), zap.Int64("user_id", userID))
		return nil, err
	}
	r.logger.Debug("Tasks listed successfully", zap.Int64("user_id", userID), zap.Int("count", len(tasks)))
	return tasks, nil
}

func loadSteps(ctx context.Context, q querier, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[int64]*model.Task, len(tasks))
	ids := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		t.Steps = []model.Step{}
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}
	rows, err := q.Query(ctx, `
        SELECT id, task_id, position, text, done, completed_at, COALESCE(source_url, '')
        FROM steps
        WHERE task_id = ANY($1)
        ORDER BY task_id, position
    `, ids)
	if err != nil {
		return fmt.Errorf("load steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s model.Step
		if err := rows.Scan(&s.ID, &s.TaskID, &s.Position, &s.Text, &s.Done, &s.CompletedAt, &s.SourceURL); err != nil {
			return fmt.Errorf("scan step: %w", err)
		}
		if t, ok := byID[s.TaskID]; ok {
			t.Steps = append(t.Steps, s)
		}
	}
	return rows.Err()
}

// Update applies a patch. Completion goes through Complete so it is
// rejected here.
func (r *TaskRepository) Update(ctx context.Context, userID, id int64, p model.TaskPatch) (*model.Task, error) {
	if p.Status != nil && *p.Status == model.TaskDone {
		return nil, fmt.Errorf("%w: use complete to finish a task", model.ErrInvalidInput)
	}
	r.logger.Debug("Updating task", zap.Int64("task_id", id), zap.Int64("user_id", userID))

	var out *model.Task
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		t, err := r.get(ctx, tx, userID, id, true)
		if err != nil {
			return err
		}
		applyPatch(t, p)
		if p.Status != nil && t.CompletedAt != nil {
			// moving a done task to another status reopens it
			t.CompletedAt = nil
		}
		err = tx.QueryRow(ctx, `
            UPDATE tasks
            SET title = $1, notes = $2, status = $3, urgency = $4, waiting_on = $5,
                context_tags = $6, due_at = $7, completed_at = $8, updated_at = NOW()
            WHERE id = $9
            RETURNING updated_at
        `, t.Title, t.Notes, t.Status, t.Urgency, t.WaitingOn, t.ContextTags, t.DueAt, t.CompletedAt, t.ID,
		).Scan(&t.UpdatedAt)
		out = t
		return err
	})
	if err != nil {
		err = translate(err)
		r.logger.Error("Failed to update task", zap.Error(err), zap.Int64("task_id", id))
		return nil, err
	}
	r.logger.Info("Task updated", zap.Int64("task_id", id), zap.String("status", string(out.Status)))
	return out, nil
}

func applyPatch(t *model.Task, p model.TaskPatch) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Urgency != nil {
		t.Urgency = *p.Urgency
	}
	if p.WaitingOn != nil {
		t.WaitingOn = strings.TrimSpace(*p.WaitingOn)
	}
	if p.ContextTags != nil {
		t.ContextTags = *p.ContextTags
	}
	if p.DueAt != nil {
		t.DueAt = p.DueAt
	}
	if t.Status != model.TaskWaiting && p.Status != nil {
		t.WaitingOn = ""
	}
}

func (r *TaskRepository) Delete(ctx context.Context, userID, id int64) error {
	r.logger.Debug("Deleting task", zap.Int64("task_id", id), zap.Int64("user_id", userID))
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Error(err), zap.Int64("task_id", id))
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	r.logger.Info("Task deleted", zap.Int64("task_id", id))
	return nil
}

// ReplaceSteps swaps the task's steps for a new dense list. A done task
// with new steps is reopened.
func (r *TaskRepository) ReplaceSteps(ctx context.Context, userID, taskID int64, drafts []model.StepDraft) (*model.Task, error) {
	r.logger.Debug("Replacing steps", zap.Int64("task_id", taskID), zap.Int("count", len(drafts)))
	var out *model.Task
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		t, err := r.get(ctx, tx, userID, taskID, true)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM steps WHERE task_id = $1`, taskID); err != nil {
			return err
		}
		steps, err := insertSteps(ctx, tx, taskID, drafts)
		if err != nil {
			return err
		}
		t.Steps = steps
		if t.Status == model.TaskDone && len(steps) > 0 {
			t.Status = model.TaskInProgress
			t.CompletedAt = nil
		}
		err = tx.QueryRow(ctx, `
            UPDATE tasks SET status = $1, completed_at = $2, updated_at = NOW()
            WHERE id = $3 RETURNING updated_at
        `, t.Status, t.CompletedAt, taskID).Scan(&t.UpdatedAt)
		out = t
		return err
	})
	if err != nil {
		err = translate(err)
		r.logger.Error("Failed to replace steps", zap.Error(err), zap.Int64("task_id", taskID))
		return nil, err
	}
	r.logger.Info("Steps replaced", zap.Int64("task_id", taskID), zap.Int("count", len(out.Steps)))
	return out, nil
}

// ToggleStep flips a step. Finishing the last open step completes the
// task; reopening a step of a done task reopens it.
func (r *TaskRepository) ToggleStep(ctx context.Context, userID, taskID, stepID int64) (*model.ToggleResult, error) {
	r.logger.Debug("Toggling step", zap.Int64("task_id", taskID), zap.Int64("step_id", stepID))
	res := &model.ToggleResult{}
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		t, err := r.get(ctx, tx, userID, taskID, true)
		if err != nil {
			return err
		}
		idx := -1
		for i := range t.Steps {
			if t.Steps[i].ID == stepID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return model.ErrNotFound
		}
		now := time.Now().UTC()
		step := &t.Steps[idx]
		step.Done = !step.Done
		step.CompletedAt = nil
		if step.Done {
			step.CompletedAt = &now
		}
		if _, err := tx.Exec(ctx, `UPDATE steps SET done = $1, completed_at = $2 WHERE id = $3`,
			step.Done, step.CompletedAt, step.ID); err != nil {
			return err
		}
		res.StepDone = step.Done

		if step.Done {
			if err := enqueue(ctx, tx, r.outbox, aggregateTask, t.ID, mqcontracts.RoutingStepCompleted, mqcontracts.StepCompletedPayload{
				EventID:     newEventID(),
				TraceID:     traceID(ctx),
				UserID:      userID,
				TaskID:      t.ID,
				StepID:      step.ID,
				CompletedAt: now,
			}); err != nil {
				return err
			}
		}

		switch {
		case t.AllStepsDone() && t.Status != model.TaskDone:
			t.Status = model.TaskDone
			t.CompletedAt = &now
			res.TaskCompleted = true
			if err := r.enqueueCompleted(ctx, tx, t, now); err != nil {
				return err
			}
		case !step.Done && t.Status == model.TaskDone:
			t.Status = model.TaskInProgress
			t.CompletedAt = nil
			res.TaskReopened = true
		case step.Done && t.Status == model.TaskPending:
			t.Status = model.TaskInProgress
		}
		err = tx.QueryRow(ctx, `
            UPDATE tasks SET status = $1, completed_at = $2, updated_at = NOW()
            WHERE id = $3 RETURNING updated_at
        `, t.Status, t.CompletedAt, t.ID).Scan(&t.UpdatedAt)
		res.Task = t
		return err
	})
	if err != nil {
		err = translate(err)
		r.logger.Error("Failed to toggle step", zap.Error(err), zap.Int64("step_id", stepID))
		return nil, err
	}
	r.logger.Info("Step toggled",
		zap.Int64("task_id", taskID),
		zap.Int64("step_id", stepID),
		zap.Bool("done", res.StepDone),
		zap.Bool("task_completed", res.TaskCompleted),
	)
	return res, nil
}

// Complete marks a task done. changed is false if it already was.
func (r *TaskRepository) Complete(ctx context.Context, userID, id int64) (task *model.Task, changed bool, err error) {
	r.logger.Debug("Marking task as completed", zap.Int64("task_id", id))
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		t, err := r.get(ctx, tx, userID, id, true)
		if err != nil {
			return err
		}
		task = t
		if t.Status == model.TaskDone {
			return nil
		}
		now := time.Now().UTC()
		t.Status = model.TaskDone
		t.CompletedAt = &now
		t.WaitingOn = ""
		if err := tx.QueryRow(ctx, `
            UPDATE tasks SET status = 'done', completed_at = $1, waiting_on = '', updated_at = NOW()
            WHERE id = $2 RETURNING updated_at
        `, now, id).Scan(&t.UpdatedAt); err != nil {
			return err
		}
		changed = true
		return r.enqueueCompleted(ctx, tx, t, now)
	})
	if err != nil {
		err = translate(err)
		r.logger.Error("Failed to mark task as completed", zap.Error(err), zap.Int64("task_id", id))
		return nil, false, err
	}
	r.logger.Info("Task marked as completed", zap.Int64("task_id", id), zap.Bool("changed", changed))
	return task, changed, nil
}

func (r *TaskRepository) enqueueCompleted(ctx context.Context, tx pgx.Tx, t *model.Task, at time.Time) error {
	return enqueue(ctx, tx, r.outbox, aggregateTask, t.ID, mqcontracts.RoutingTaskCompleted, mqcontracts.TaskCompletedPayload{
		EventID:     newEventID(),
		TraceID:     traceID(ctx),
		UserID:      t.UserID,
		TaskID:      t.ID,
		StepCount:   len(t.Steps),
		CompletedAt: at,
	})
}

// CompletionTimes returns when the user finished tasks since the given time.
func (r *TaskRepository) CompletionTimes(ctx context.Context, userID int64, since time.Time) ([]time.Time, error) {
	rows, err := r.db.Query(ctx, `
        SELECT completed_at FROM tasks
        WHERE user_id = $1 AND completed_at IS NOT NULL AND completed_at >= $2
        ORDER BY completed_at
    `, userID, since)
	if err != nil {
		r.logger.Error("Failed to query completion times", zap.Error(err), zap.Int64("user_id", userID))
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}

// RecentCompletedTitles returns titles of recently finished tasks, used as
// context when generating steps.
func (r *TaskRepository) RecentCompletedTitles(ctx context.Context, userID int64, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
        SELECT title FROM tasks
        WHERE user_id = $1 AND status = 'done'
        ORDER BY completed_at DESC
        LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// MarkOverdue flags open tasks whose due time has passed.
func (r *TaskRepository) MarkOverdue(ctx context.Context) (int64, error) {
	r.logger.Debug("Marking expired tasks as overdue")
	tag, err := r.db.Exec(ctx, `
        UPDATE tasks
        SET status = 'overdue', updated_at = NOW()
        WHERE status IN ('pending', 'in_progress')
        AND due_at < NOW()
    `)
	if err != nil {
		r.logger.Error("Failed to mark expired tasks", zap.Error(err))
		return 0, err
	}
	if n := tag.RowsAffected(); n > 0 {
		r.logger.Info("Expired tasks marked as overdue", zap.Int64("tasks_updated", n))
	} else {
		r.logger.Debug("No expired tasks found")
	}
	return tag.RowsAffected(), nil
}
