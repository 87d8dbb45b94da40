package server

import (
	"fmt"
	"strconv"

	"artfeed/internal/models"
	"artfeed/internal/service"
	"artfeed/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts: a multipart form with an "image" file
// and an optional "caption" field. Validation happens before anything is
// stored; the media object is saved first and the post row then references it.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	sess := currentSession(c)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Please choose an image to upload"))
	}

	if !validation.AllowedFile(fileHeader.Filename, s.config.AllowedExtensionSet()) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unsupported file type. Please upload an image"))
	}
	if fileHeader.Size > s.config.MaxUploadBytes() {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.config.MaxUploadSizeMB)))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewStorageError(err))
	}
	defer file.Close()

	ref, err := s.media.Save(c.Context(), file, fileHeader.Filename)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewStorageError(err))
	}

	post, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		UserID:   sess.UserID,
		MediaRef: ref,
		Caption:  c.FormValue("caption"),
	})
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post})
}

// ToggleLike handles POST /api/posts/:id/like, flipping the viewer's like.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	sess := currentSession(c)

	postID, err := parseIDParam(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	post, err := s.postService.ToggleLike(c.Context(), sess.UserID, postID)
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"liked":      post.Liked,
		"like_count": post.LikeCount,
	})
}

// DeletePost handles DELETE /api/posts/:id. The AdminRequired guard has
// already run by the time this executes.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseIDParam(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	if err := s.postService.DeletePost(c.Context(), postID); err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}

	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// GetMedia handles GET /api/media/:ref, serving stored uploads to
// authenticated users only.
func (s *Server) GetMedia(c *fiber.Ctx) error {
	path, err := s.media.Path(c.Params("ref"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid media reference"))
	}
	return c.SendFile(path)
}

func parseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, models.NewValidationError("Invalid post id")
	}
	return uint(id), nil
}
