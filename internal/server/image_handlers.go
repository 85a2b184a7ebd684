package server

import (
	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/images (admin): a standalone image upload
// whose returned reference the caller manages.
func (s *Server) UploadImage(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Missing image file"))
	}

	data, err := readUpload(fh)
	if err != nil {
		return respondError(c, err)
	}

	ref, err := s.imageService.Upload(c.UserContext(), actor, service.ImageUpload{
		Filename: fh.Filename,
		Data:     data,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"reference": ref})
}
