package server

import (
	"artfeed/internal/models"
	"artfeed/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed?sort=recent|likes. Unknown sort values fall
// back to recent; the sort parameter never reaches SQL directly.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	sess := currentSession(c)
	sort := repository.ParseFeedSort(c.Query("sort", "recent"))

	posts, err := s.feedService.ListPosts(c.Context(), sort, sess.UserID)
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}

	// An empty feed serializes as [] rather than null.
	if posts == nil {
		posts = []*models.Post{}
	}
	return c.JSON(fiber.Map{"posts": posts})
}
