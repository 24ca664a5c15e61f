package user

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gatedrop/gatedrop/internal/db"
)

// Handler serves profile endpoints.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// GetPublicProfile returns another user's public profile
func (h *Handler) GetPublicProfile(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id"})
	}

	profile, err := h.store.Profile(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, profile)
}

type updateProfileRequest struct {
	Name            *string `json:"name"`
	Phone           *string `json:"phone"`
	CollegeID       *string `json:"college_id"`
	ProfileImageURL *string `json:"profile_image_url"`
	UPIID           *string `json:"upi_id"`
}

// UpdateProfile patches the caller's own profile fields. Only provided
// fields are written.
func (h *Handler) UpdateProfile(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx := context.Background()
	set := func(column string, value *string) error {
		if value == nil {
			return nil
		}
		_, err := db.Conn.Exec(ctx,
			`UPDATE users SET `+column+` = $1, updated_at = NOW() WHERE id = $2`,
			*value, uid)
		return err
	}

	for column, value := range map[string]*string{
		"name":              req.Name,
		"phone":             req.Phone,
		"college_id":        req.CollegeID,
		"profile_image_url": req.ProfileImageURL,
		"upi_id":            req.UPIID,
	} {
		if err := set(column, value); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to update " + column})
		}
	}

	u, err := h.store.FindByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch profile"})
	}
	return c.JSON(http.StatusOK, u)
}
