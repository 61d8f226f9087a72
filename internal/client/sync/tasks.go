package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/smarttodo/sync/internal/client/api"
	"github.com/smarttodo/sync/internal/models"
)

// ErrTaskNotFound is returned when a task id has no local row.
var ErrTaskNotFound = errors.New("task not found")

// TaskInput carries the user-editable fields of a task.
type TaskInput struct {
	Text      string
	Notes     string
	Priority  string
	Category  string
	DueDate   *string
	Recurring string
}

// ListTasks returns the device's tasks, newest first.
func (o *Orchestrator) ListTasks() ([]models.Task, error) {
	return o.store.ListTasks()
}

// AddTask creates a task locally and schedules a push.
func (o *Orchestrator) AddTask(in TaskInput) (*models.Task, error) {
	if in.Text == "" {
		return nil, errors.New("task text is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if in.Category == "" {
		in.Category = models.CategoryPersonal
	}
	if !models.ValidPriority(in.Priority) {
		return nil, fmt.Errorf("invalid priority %q", in.Priority)
	}
	if !models.ValidCategory(in.Category) {
		return nil, fmt.Errorf("invalid category %q", in.Category)
	}
	if in.Recurring != "" && !models.ValidRecurring(in.Recurring) {
		return nil, fmt.Errorf("invalid recurrence %q", in.Recurring)
	}

	now := o.now()
	task := &models.Task{
		ID:        uuid.New().String(),
		Text:      in.Text,
		Notes:     in.Notes,
		Priority:  in.Priority,
		Category:  in.Category,
		DueDate:   in.DueDate,
		Recurring: in.Recurring,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.SaveTask(task); err != nil {
		return nil, err
	}
	o.SchedulePush()
	return task, nil
}

// UpdateTask overwrites a task's editable fields, stamps a fresh
// update time, and schedules a push.
func (o *Orchestrator) UpdateTask(id string, in TaskInput) (*models.Task, error) {
	task, err := o.store.GetTask(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	if in.Text != "" {
		task.Text = in.Text
	}
	task.Notes = in.Notes
	if in.Priority != "" {
		if !models.ValidPriority(in.Priority) {
			return nil, fmt.Errorf("invalid priority %q", in.Priority)
		}
		task.Priority = in.Priority
	}
	if in.Category != "" {
		if !models.ValidCategory(in.Category) {
			return nil, fmt.Errorf("invalid category %q", in.Category)
		}
		task.Category = in.Category
	}
	task.DueDate = in.DueDate
	task.Recurring = in.Recurring
	task.UpdatedAt = o.now()

	if err := o.store.SaveTask(task); err != nil {
		return nil, err
	}
	o.SchedulePush()
	return task, nil
}

// ToggleTask flips a task's completion state. Completing a recurring
// task also spawns its successor with the due date advanced one cycle.
func (o *Orchestrator) ToggleTask(id string) (*models.Task, error) {
	task, err := o.store.GetTask(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	task.Completed = !task.Completed
	task.UpdatedAt = o.now()
	if err := o.store.SaveTask(task); err != nil {
		return nil, err
	}

	if task.Completed && task.Recurring != "" {
		if err := o.spawnSuccessor(task); err != nil {
			return nil, err
		}
	}

	o.SchedulePush()
	return task, nil
}

func (o *Orchestrator) spawnSuccessor(done *models.Task) error {
	now := o.now()
	next := &models.Task{
		ID:        uuid.New().String(),
		Text:      done.Text,
		Notes:     done.Notes,
		Priority:  done.Priority,
		Category:  done.Category,
		DueDate:   advanceDueDate(done.DueDate, done.Recurring),
		Recurring: done.Recurring,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return o.store.SaveTask(next)
}

// advanceDueDate moves a YYYY-MM-DD due date forward one recurrence
// cycle. An absent or unparseable date yields no due date.
func advanceDueDate(due *string, recurring string) *string {
	if due == nil || *due == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", *due)
	if err != nil {
		return nil
	}
	switch recurring {
	case models.RecurringDaily:
		t = t.AddDate(0, 0, 1)
	case models.RecurringWeekly:
		t = t.AddDate(0, 0, 7)
	case models.RecurringMonthly:
		t = t.AddDate(0, 1, 0)
	default:
		return nil
	}
	next := t.Format("2006-01-02")
	return &next
}

// DeleteTask removes a task locally and tombstones it server-side so
// the deletion propagates to other devices.
func (o *Orchestrator) DeleteTask(id string) error {
	task, err := o.store.GetTask(id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if err := o.store.DeleteTask(id); err != nil {
		return err
	}

	o.mu.Lock()
	session := o.session
	o.mu.Unlock()
	if session == nil {
		return nil
	}

	err = o.api.DeleteTask(id)
	if errors.Is(err, api.ErrUnauthorized) {
		slog.Warn("session expired, logging out")
		return o.clearSession()
	}
	if err != nil {
		// Local delete stands; the server copy lingers until the next
		// successful delete from some device.
		slog.Debug("server delete failed", "error", err)
	}
	return nil
}
