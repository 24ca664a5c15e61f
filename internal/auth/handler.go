package auth

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatedrop/gatedrop/internal/alerts"
	"github.com/gatedrop/gatedrop/internal/db"
)

type SignupRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Password  string `json:"password" validate:"required,min=6"`
	CollegeID string `json:"college_id"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

func signToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(72 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// ===== Signup =====
func Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.Email == "" || req.Phone == "" || len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email, phone and a password of 6+ characters are required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	ctx := context.Background()
	var userID string
	err = db.Conn.QueryRow(ctx, `
        INSERT INTO users (id, name, email, phone, password, college_id)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
        RETURNING id
    `, uuid.New().String(), req.Name, req.Email, req.Phone, string(hashed), req.CollegeID).Scan(&userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email or phone already registered"})
	}

	// Welcome email is fire-and-forget
	_ = alerts.EnqueueWelcomeEmail(userID, req.Email, req.Name)

	signed, err := signToken(userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	return c.JSON(http.StatusCreated, AuthResponse{Token: signed})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ===== Login =====
func Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx := context.Background()
	var (
		userID   string
		password string
	)
	err := db.Conn.QueryRow(ctx,
		`SELECT id, password FROM users WHERE email = $1`, req.Email,
	).Scan(&userID, &password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	signed, err := signToken(userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	return c.JSON(http.StatusOK, AuthResponse{Token: signed})
}

// ===== Me =====
func Me(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := context.Background()
	var (
		name, email, phone                     string
		walletBalance                          int64
		gigsRunner, gigsRequester, reportCount int
		isBanned                               bool
		stars, count                           int64
	)
	err := db.Conn.QueryRow(ctx, `
        SELECT name, email, phone, wallet_balance, gigs_completed_as_runner,
               gigs_posted_as_requester, report_count, is_banned,
               total_rating_stars, total_rating_count
        FROM users WHERE id = $1`, uid,
	).Scan(&name, &email, &phone, &walletBalance, &gigsRunner, &gigsRequester,
		&reportCount, &isBanned, &stars, &count)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	avg := 0.0
	if count > 0 {
		avg = float64(stars) / float64(count)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":                       uid,
		"name":                     name,
		"email":                    email,
		"phone":                    phone,
		"wallet_balance":           walletBalance,
		"gigs_completed_as_runner": gigsRunner,
		"gigs_posted_as_requester": gigsRequester,
		"report_count":             reportCount,
		"is_banned":                isBanned,
		"avg_rating":               avg,
	})
}
