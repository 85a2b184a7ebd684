package service

import (
	"context"
	"strings"
	"time"

	"quill/internal/models"
	"quill/internal/repository"
)

// TaskInput carries the fields for creating or editing a task.
type TaskInput struct {
	Title     string
	DueAt     time.Time
	Completed bool
}

// TaskService manages personal todo lists. Tasks are private: even admins
// only see and mutate their own.
type TaskService struct {
	tasks repository.TaskRepository
}

// NewTaskService creates a new task service
func NewTaskService(tasks repository.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks}
}

// CreateTask adds a task to the actor's list.
func (s *TaskService) CreateTask(ctx context.Context, actor models.Actor, input TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, models.NewValidationError("Task title is required")
	}

	task := &models.Task{
		UserID:     actor.ID,
		Title:      title,
		DueAt:      input.DueAt,
		AssignedAt: time.Now(),
		Completed:  input.Completed,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, models.NewInternalError(err)
	}
	return task, nil
}

// ListTasks returns the actor's own tasks.
func (s *TaskService) ListTasks(ctx context.Context, actor models.Actor) ([]models.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tasks, nil
}

// UpdateTask edits a task the actor owns.
func (s *TaskService) UpdateTask(ctx context.Context, actor models.Actor, id uint, input TaskInput) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, translateLookupError(err, "Task", id)
	}
	if task.UserID != actor.ID {
		return nil, models.NewForbiddenError("You can only edit your own tasks")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, models.NewValidationError("Task title is required")
	}

	task.Title = title
	task.DueAt = input.DueAt
	task.Completed = input.Completed
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, models.NewInternalError(err)
	}
	return task, nil
}

// DeleteTask removes a task the actor owns.
func (s *TaskService) DeleteTask(ctx context.Context, actor models.Actor, id uint) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return translateLookupError(err, "Task", id)
	}
	if task.UserID != actor.ID {
		return models.NewForbiddenError("You can only delete your own tasks")
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return translateLookupError(err, "Task", id)
	}
	return nil
}
