package server

import (
	"heirloom/internal/models"
	"heirloom/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CaptionPost handles POST /api/posts/:id/caption. Submitting an empty
// caption is a valid decision; the field just has to be present.
func (s *Server) CaptionPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c)
	if err != nil {
		return nil
	}

	var req struct {
		Caption string `json:"caption"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Caption(c.Context(), service.CaptionInput{
		UserID:  currentUserID(c),
		PostID:  postID,
		Caption: req.Caption,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// GetPost handles GET /api/posts/:id.
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c)
	if err != nil {
		return nil
	}

	view, err := s.postService.Get(c.Context(), currentUserID(c), postID)
	if err != nil {
		return mapServiceError(c, err)
	}

	resp := fiber.Map{"post": view.Post}
	if view.Prev != nil {
		resp["prev_id"] = view.Prev.ID
	}
	if view.Next != nil {
		resp["next_id"] = view.Next.ID
	}
	return c.JSON(resp)
}

// UpdatePost handles PUT /api/posts/:id.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c)
	if err != nil {
		return nil
	}

	var req struct {
		Caption   string `json:"caption"`
		TakenDate string `json:"taken_date"`
		TakenTime string `json:"taken_time"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Update(c.Context(), service.UpdatePostInput{
		UserID:    currentUserID(c),
		PostID:    postID,
		Caption:   req.Caption,
		TakenDate: req.TakenDate,
		TakenTime: req.TakenTime,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// DeletePost handles DELETE /api/posts/:id.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c)
	if err != nil {
		return nil
	}

	if err := s.postService.Delete(c.Context(), currentUserID(c), postID); err != nil {
		return mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Feed handles GET /api/feed.
func (s *Server) Feed(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", s.config.FeedPerPage)

	feed, err := s.postService.Feed(c.Context(), page, perPage)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(feed)
}
