package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/solbet/custody/internal/settlement"
)

// RegisterSettlementRoutes adds the withdrawal and internal-transfer endpoints.
func RegisterSettlementRoutes(router fiber.Router, h *settlement.Handler) {
	settlements := router.Group("/settlements")
	settlements.Post("/withdraw", h.Withdraw)
	settlements.Post("/transfer-internal", h.TransferInternal)
}
