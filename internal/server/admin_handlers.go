package server

import (
	"strconv"

	"artfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListUsers handles GET /api/admin/users?limit=&offset=, paging through
// registered accounts for the admin console.
func (s *Server) ListUsers(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	users, err := s.userRepo.List(c.Context(), limit, offset)
	if err != nil {
		return models.RespondWithError(c, statusForError(err), err)
	}
	return c.JSON(fiber.Map{"users": users})
}
