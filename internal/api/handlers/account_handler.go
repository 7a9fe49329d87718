package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/syndicateapp/syndicate/internal/repository"
)

type AccountHandler struct {
	sa repository.SocialAccountRepository
}

func NewAccountHandler(sa repository.SocialAccountRepository) *AccountHandler {
	return &AccountHandler{sa: sa}
}

func (h *AccountHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accounts, err := h.sa.ListByUserID(c.Context(), userID)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *AccountHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	if err := h.sa.Remove(c.Context(), int64(accountID), userID); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
