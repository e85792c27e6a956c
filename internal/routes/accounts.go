package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/solbet/custody/internal/account"
)

// RegisterAccountRoutes adds account provisioning and balance endpoints.
func RegisterAccountRoutes(router fiber.Router, h *account.Handler) {
	accounts := router.Group("/accounts")
	accounts.Post("", h.Create)
	accounts.Get("/:userId/balance", h.Balance)
	accounts.Put("/:userId/wallet", h.LinkWallet)
	accounts.Post("/:userId/credit", h.Credit)
}
