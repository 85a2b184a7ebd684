package server

import (
	"time"

	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

type taskRequest struct {
	Title     string    `json:"title"`
	DueAt     time.Time `json:"due_at"`
	Completed bool      `json:"completed"`
}

// GetTasks handles GET /api/tasks.
func (s *Server) GetTasks(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	tasks, err := s.taskService.ListTasks(c.UserContext(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tasks)
}

// CreateTask handles POST /api/tasks.
func (s *Server) CreateTask(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	task, err := s.taskService.CreateTask(c.UserContext(), actor, service.TaskInput{
		Title:     req.Title,
		DueAt:     req.DueAt,
		Completed: req.Completed,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// UpdateTask handles PUT /api/tasks/:id.
func (s *Server) UpdateTask(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	task, err := s.taskService.UpdateTask(c.UserContext(), actor, id, service.TaskInput{
		Title:     req.Title,
		DueAt:     req.DueAt,
		Completed: req.Completed,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

// DeleteTask handles DELETE /api/tasks/:id.
func (s *Server) DeleteTask(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.taskService.DeleteTask(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Task deleted"})
}
