package job

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Payment capture is stubbed: jobs arrive with a pre-validated payment
// id and real gateway integration lives outside this service. These two
// handlers mirror the placeholder gateway flow the frontend expects.

// CreatePaymentOrder - POST /api/payment/create-order
func CreatePaymentOrder(c echo.Context) error {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	log.Printf("[Payment] received request to create order for %d", req.Amount)

	return c.JSON(http.StatusOK, echo.Map{
		"id":       fmt.Sprintf("fake_order_%d", time.Now().UnixMilli()),
		"amount":   req.Amount * 100, // gateway works in paise
		"currency": "INR",
		"message":  "This is a placeholder payment order. No real payment was created.",
	})
}

// VerifyPayment - POST /api/payment/verify
func VerifyPayment(c echo.Context) error {
	var req struct {
		PaymentID string `json:"payment_id"`
		OrderID   string `json:"order_id"`
		Signature string `json:"signature"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	paymentID := req.PaymentID
	if paymentID == "" {
		paymentID = fmt.Sprintf("fake_pay_id_%d", time.Now().UnixMilli())
	}
	log.Printf("[Payment] received payment verification for %s", paymentID)

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"payment_id": paymentID,
		"message":    "This is a placeholder verification. Payment accepted.",
	})
}
