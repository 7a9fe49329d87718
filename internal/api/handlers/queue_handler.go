package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/syndicateapp/syndicate/internal/queue"
)

// QueueHandler exposes the bounded terminal-job histories for observability.
type QueueHandler struct {
	history *queue.History
}

func NewQueueHandler(history *queue.History) *QueueHandler {
	return &QueueHandler{history: history}
}

func (h *QueueHandler) RecentJobs(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"completed": h.history.Completed(),
		"failed":    h.history.Failed(),
	})
}
