package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/syndicateapp/syndicate/internal/lifecycle"
	"github.com/syndicateapp/syndicate/internal/service"
	"github.com/syndicateapp/syndicate/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(s service.PostService) *PostHandler {
	return &PostHandler{s: s}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	pc := &transfer.PostCreation{
		Caption:       c.FormValue("caption"),
		Title:         c.FormValue("title"),
		ScheduledTime: c.FormValue("scheduled_time"),
		Platforms:     c.FormValue("platforms"),
	}

	postID, err := h.s.CreatePost(c.Context(), userID, pc, form.File["files"])
	if err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post_id": postID,
		"message": "Post created",
	})
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	jobID, err := h.s.SchedulePost(c.Context(), userID, req.PostID, req.ScheduledTime)
	if err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"job_id":  jobID,
		"message": "Post scheduled successfully",
	})
}

func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.PublishNowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	jobID, err := h.s.PublishNow(c.Context(), userID, req.PostID)
	if err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"job_id":  jobID,
		"message": "Publishing started",
	})
}

func (h *PostHandler) CancelSchedule(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.CancelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.s.CancelSchedule(c.Context(), userID, req.PostID); err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Schedule canceled",
	})
}

func (h *PostHandler) PostStatus(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	status, err := h.s.PostStatus(c.Context(), userID, int64(postID))
	if err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), userID)
		if err != nil {
			return postError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(postID)); err != nil {
		return postError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// postError maps the service error taxonomy onto HTTP statuses.
func postError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidSchedule),
		errors.Is(err, lifecycle.ErrEmptyPlatformList):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrAlreadyPublishing):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrPostNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
