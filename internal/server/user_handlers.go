package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	user, err := s.userService.GetUser(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetAllUsers handles GET /api/users (admin).
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	users, err := s.userService.ListUsers(c.UserContext(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// ToggleUserRole handles POST /api/users/:id/toggle-role (admin).
func (s *Server) ToggleUserRole(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.ToggleRole(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
