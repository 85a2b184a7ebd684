package server

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postFormRequest is the JSON fallback body for post create/update when the
// request is not multipart.
type postFormRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID *uint  `json:"category_id"`
}

// parsePostForm reads a post create/update request. Multipart requests may
// carry image files under "images" with matching "alt_texts" values; a JSON
// body carries text fields only.
func (s *Server) parsePostForm(c *fiber.Ctx) (title, content string, categoryID *uint, images []service.ImageUpload, err error) {
	contentType := c.Get(fiber.HeaderContentType)
	if !strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		var req postFormRequest
		if parseErr := c.BodyParser(&req); parseErr != nil {
			return "", "", nil, nil, models.NewValidationError("Invalid request body")
		}
		return req.Title, req.Content, req.CategoryID, nil, nil
	}

	form, formErr := c.MultipartForm()
	if formErr != nil {
		return "", "", nil, nil, models.NewValidationError("Invalid multipart form")
	}

	title = formValue(form, "title")
	content = formValue(form, "content")
	if raw := formValue(form, "category_id"); raw != "" {
		v, convErr := strconv.ParseUint(raw, 10, 32)
		if convErr != nil {
			return "", "", nil, nil, models.NewValidationError("Invalid category_id")
		}
		u := uint(v)
		categoryID = &u
	}

	altTexts := form.Value["alt_texts"]
	for i, fh := range form.File["images"] {
		data, readErr := readUpload(fh)
		if readErr != nil {
			return "", "", nil, nil, readErr
		}
		img := service.ImageUpload{Filename: fh.Filename, Data: data}
		if i < len(altTexts) {
			img.AltText = altTexts[i]
		}
		images = append(images, img)
	}

	return title, content, categoryID, images, nil
}

func formValue(form *multipart.Form, key string) string {
	if vals := form.Value[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Unreadable upload " + fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, models.NewValidationError("Unreadable upload " + fh.Filename)
	}
	return data, nil
}

// CreatePost handles POST /api/posts (admin).
func (s *Server) CreatePost(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	title, content, categoryID, images, err := s.parsePostForm(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), actor, service.CreatePostInput{
		Title:      title,
		Content:    content,
		CategoryID: categoryID,
		Images:     images,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id (admin). Sending no image files
// leaves the existing media untouched. The category reference is fixed at
// creation and is not read from the update body.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	title, content, _, images, err := s.parsePostForm(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), actor, id, service.UpdatePostInput{
		Title:   title,
		Content: content,
		Images:  images,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id (admin).
func (s *Server) DeletePost(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// GetPosts handles GET /api/posts with page/pageSize/categoryId/authorId
// query parameters.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	filter := repository.PostFilter{
		Page:       c.QueryInt("page", 1),
		PageSize:   c.QueryInt("pageSize", 0),
		CategoryID: optionalUintQuery(c, "categoryId"),
		AuthorID:   optionalUintQuery(c, "authorId"),
	}

	page, err := s.postService.ListPosts(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetPost handles GET /api/posts/:id.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// GetPostBySlug handles GET /api/posts/slug/:slug.
func (s *Server) GetPostBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if slug == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Missing slug"))
	}
	post, err := s.postService.GetPostBySlug(c.UserContext(), slug)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}
