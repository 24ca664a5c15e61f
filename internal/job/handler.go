package job

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gatedrop/gatedrop/internal/alerts"
	"github.com/gatedrop/gatedrop/internal/db"
	"github.com/gatedrop/gatedrop/internal/user"
)

// Handler is the HTTP glue over the lifecycle engine.
type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func callerID(c echo.Context) (string, bool) {
	uid, ok := c.Get("user_id").(string)
	return uid, ok && uid != ""
}

// writeError maps an engine error kind to its HTTP response so the
// client can show an accurate message.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, user.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrAccountBanned):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, ErrDuplicateApplication), errors.Is(err, ErrAlreadyRated),
		errors.Is(err, ErrBelowMinimum), errors.Is(err, ErrInvalidRating):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
}

// Create - POST /api/jobs
func (h *Handler) Create(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == "" || req.Description == "" || req.PickupLocation == "" ||
		req.DropLocation == "" || req.PaymentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields"})
	}

	j, err := h.engine.Create(c.Request().Context(), uid, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, j)
}

// Available - GET /api/jobs/available
func (h *Handler) Available(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	jobs, err := h.engine.Available(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}

// MyPosted - GET /api/jobs/my-posted
func (h *Handler) MyPosted(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	jobs, err := h.engine.MyPosted(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}

// MyRunner - GET /api/jobs/my-runner
func (h *Handler) MyRunner(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	jobs, err := h.engine.MyRunner(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}

// History - GET /api/jobs/history
func (h *Handler) History(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	jobs, err := h.engine.History(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}

// Get - GET /api/jobs/:id
func (h *Handler) Get(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	j, err := h.engine.Get(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// Apply - POST /api/jobs/:id/apply
func (h *Handler) Apply(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	j, err := h.engine.Apply(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// CancelBid - POST /api/jobs/:id/cancel-bid
func (h *Handler) CancelBid(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	j, err := h.engine.CancelBid(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// ChooseRunner - POST /api/jobs/:id/choose
func (h *Handler) ChooseRunner(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		RunnerID string `json:"runner_id"`
	}
	if err := c.Bind(&req); err != nil || req.RunnerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid runner_id"})
	}

	j, err := h.engine.ChooseRunner(c.Request().Context(), c.Param("id"), uid, req.RunnerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// MarkPickedUp - POST /api/jobs/:id/pickup
func (h *Handler) MarkPickedUp(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	j, err := h.engine.MarkPickedUp(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// MarkDelivered - POST /api/jobs/:id/deliver
func (h *Handler) MarkDelivered(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	j, err := h.engine.MarkDelivered(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// ConfirmDelivery - POST /api/jobs/:id/confirm
func (h *Handler) ConfirmDelivery(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	j, err := h.engine.ConfirmDelivery(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeError(c, err)
	}

	// Notify the runner of the payout (best-effort)
	var runnerEmail string
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT email FROM users WHERE id = $1`, j.RunnerID).Scan(&runnerEmail)
	if runnerEmail != "" {
		_ = alerts.EnqueuePayoutNotice(j.ID, j.RunnerID, runnerEmail, j.Fee)
	}

	return c.JSON(http.StatusOK, j)
}

// Rate - POST /api/jobs/:id/rate
func (h *Handler) Rate(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Stars int `json:"stars"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	j, err := h.engine.Rate(c.Request().Context(), c.Param("id"), uid, req.Stars)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// CancelDelivery - POST /api/jobs/:id/cancel
func (h *Handler) CancelDelivery(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	j, err := h.engine.CancelDelivery(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// Report - POST /api/jobs/:id/report
func (h *Handler) Report(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing report reason"})
	}

	result, err := h.engine.Report(c.Request().Context(), c.Param("id"), uid, req.Reason)
	if err != nil {
		return writeError(c, err)
	}

	// Warn the runner when the report tipped them over the threshold.
	if result.IsBanned {
		var runnerEmail string
		_ = db.Conn.QueryRow(context.Background(), `
            SELECT u.email FROM users u JOIN jobs j ON j.runner_id = u.id
            WHERE j.id = $1`, c.Param("id")).Scan(&runnerEmail)
		if runnerEmail != "" {
			_ = alerts.EnqueueBanNotice(runnerEmail, result.ReportCount)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"message":       "Report submitted",
		"runner_status": result,
	})
}
