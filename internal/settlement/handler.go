package settlement

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/solbet/custody/internal/account"
	"github.com/solbet/custody/internal/balance"
	"github.com/solbet/custody/internal/limits"
	"github.com/solbet/custody/internal/solana"
)

// Handler exposes the settlement endpoints consumed by the web tier.
type Handler struct {
	service *Service
}

// NewHandler builds a settlement HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type withdrawRequest struct {
	UserID      string `json:"user_id"`
	Amount      int64  `json:"amount"`
	Destination string `json:"destination_address"`
}

type transferRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

// Withdraw settles funds to an external wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "bad_request", err.Error(), nil)
	}

	res, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Destination: req.Destination,
	})
	if err != nil {
		return settlementError(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"signature":   res.Signature,
		"new_balance": res.NewBalance,
		"limits": fiber.Map{
			"used":      res.Limits.Used,
			"remaining": res.Limits.Remaining,
			"limit":     res.Limits.Limit,
		},
	})
}

// TransferInternal settles funds to the user's registered on-chain wallet.
func (h *Handler) TransferInternal(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "bad_request", err.Error(), nil)
	}

	res, err := h.service.TransferInternal(c.UserContext(), TransferInput{
		UserID: req.UserID,
		Amount: req.Amount,
	})
	if err != nil {
		return settlementError(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"signature": res.Signature,
		"balances": fiber.Map{
			"before": res.BalanceBefore,
			"after":  res.BalanceAfter,
		},
	})
}

// settlementError maps the domain error taxonomy onto stable machine codes
// plus the numeric context the caller needs to self-correct.
func settlementError(c *fiber.Ctx, err error) error {
	var outOfRange *AmountOutOfRangeError
	var limitExceeded *limits.DailyLimitExceededError
	var insufficient *balance.InsufficientBalanceError
	var reconciliation *ReconciliationPendingError

	switch {
	case errors.Is(err, solana.ErrInvalidAddress):
		return errorJSON(c, http.StatusBadRequest, "invalid_address", "destination is not a valid address", nil)

	case errors.As(err, &outOfRange):
		return errorJSON(c, http.StatusBadRequest, "amount_out_of_range", "amount outside the allowed range", fiber.Map{
			"min": outOfRange.Min,
			"max": outOfRange.Max,
		})

	case errors.As(err, &limitExceeded):
		return errorJSON(c, http.StatusTooManyRequests, "daily_limit_exceeded", "daily settlement limit exceeded", fiber.Map{
			"used":      limitExceeded.Used,
			"remaining": limitExceeded.Remaining,
			"limit":     limitExceeded.Limit,
		})

	case errors.As(err, &insufficient):
		return errorJSON(c, http.StatusBadRequest, "insufficient_balance", "custodial balance cannot cover the amount", fiber.Map{
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})

	case errors.Is(err, balance.ErrAccountNotFound), errors.Is(err, account.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "account_not_found", "no account for user", nil)

	case errors.Is(err, ErrNoLinkedWallet):
		return errorJSON(c, http.StatusBadRequest, "no_linked_wallet", "user has no registered on-chain wallet", nil)

	case errors.Is(err, solana.ErrHouseWalletLow):
		return errorJSON(c, http.StatusServiceUnavailable, "house_wallet_low", "settlement wallet temporarily unavailable", nil)

	case errors.Is(err, solana.ErrExecutionFailed):
		return errorJSON(c, http.StatusBadGateway, "execution_failed", "transfer could not be executed, safe to retry", fiber.Map{
			"retryable": true,
		})

	case errors.As(err, &reconciliation):
		// Funds may have moved; the event is parked and operators alerted.
		return c.Status(http.StatusAccepted).JSON(fiber.Map{
			"signature": reconciliation.Signature,
			"status":    "pending",
		})

	default:
		return errorJSON(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	}
}

func errorJSON(c *fiber.Ctx, status int, code, message string, context fiber.Map) error {
	body := fiber.Map{"code": code, "message": message}
	for k, v := range context {
		body[k] = v
	}
	return c.Status(status).JSON(fiber.Map{"error": body})
}
