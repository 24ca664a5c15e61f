package wallet

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gatedrop/gatedrop/internal/realtime"
)

// Handler serves the wallet endpoints.
type Handler struct {
	svc *Service
	hub *realtime.Hub
}

func NewHandler(svc *Service, hub *realtime.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// Balance returns the authenticated user's wallet balance
func (h *Handler) Balance(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	balance, err := h.svc.Balance(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "wallet not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": uid,
		"balance": balance,
	})
}

// Cashout deducts from the wallet for an external payout
func (h *Handler) Cashout(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	newBalance, err := h.svc.Cashout(c.Request().Context(), uid, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrBelowMinimum), errors.Is(err, ErrInsufficientFunds):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "wallet not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cashout failed"})
		}
	}

	h.hub.Global(realtime.EventBalanceChanged, echo.Map{
		"user_id":     uid,
		"new_balance": newBalance,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Cashout request submitted. Amount deducted and payment will be processed soon.",
		"new_balance": newBalance,
	})
}

// Transactions lists the user's ledger log
func (h *Handler) Transactions(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	txns, err := h.svc.Transactions(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch transactions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txns})
}
