package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/solbet/custody/internal/solana"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	UserID string `json:"user_id"`
}

type linkWalletRequest struct {
	Address string `json:"address"`
}

type creditRequest struct {
	Amount    int64  `json:"amount"`
	Signature string `json:"signature"`
}

// Create provisions an account for the given user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acc, err := h.service.Create(c.UserContext(), req.UserID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user_id":        acc.UserID,
		"wallet_address": acc.WalletAddress,
		"created_at":     acc.CreatedAt,
	})
}

// Balance returns the custodial balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	userID := c.Params("userId")
	bal, err := h.service.Balance(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user_id":   userID,
		"balance":   bal,
		"timestamp": time.Now().UTC(),
	})
}

// LinkWallet records the user's personal settlement address.
func (h *Handler) LinkWallet(c *fiber.Ctx) error {
	var req linkWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	err := h.service.LinkWallet(c.UserContext(), c.Params("userId"), req.Address)
	switch {
	case err == nil:
		return c.SendStatus(http.StatusNoContent)
	case errors.Is(err, solana.ErrInvalidAddress):
		return fiber.NewError(http.StatusBadRequest, "invalid address")
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// Credit applies a confirmed external deposit. Called by the deposit watcher.
func (h *Handler) Credit(c *fiber.Ctx) error {
	var req creditRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	m, err := h.service.Credit(c.UserContext(), c.Params("userId"), req.Amount, req.Signature)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user_id":        m.UserID,
		"balance_before": m.Before,
		"balance_after":  m.After,
	})
}
