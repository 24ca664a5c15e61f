package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gatedrop/gatedrop/internal/alerts"
	"github.com/gatedrop/gatedrop/internal/auth"
	"github.com/gatedrop/gatedrop/internal/config"
	"github.com/gatedrop/gatedrop/internal/db"
	"github.com/gatedrop/gatedrop/internal/job"
	appmw "github.com/gatedrop/gatedrop/internal/middleware"
	"github.com/gatedrop/gatedrop/internal/obs"
	"github.com/gatedrop/gatedrop/internal/realtime"
	"github.com/gatedrop/gatedrop/internal/user"
	"github.com/gatedrop/gatedrop/internal/wallet"
)

func main() {
	// Init subsystems
	policy := config.Load()
	db.Init()
	alerts.Init()
	defer alerts.Close()

	hub := realtime.NewHub()
	users := user.NewStore(db.Conn, policy.BanReportThreshold)
	ledger := wallet.NewService(db.Conn, policy.MinCashout)
	engine := job.NewEngine(job.NewPGStore(db.Conn), users, ledger, hub, policy)

	jobs := job.NewHandler(engine)
	wallets := wallet.NewHandler(ledger, hub)
	profiles := user.NewHandler(users)
	ws := realtime.NewWSHandler(hub)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Health and metrics
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/ready", func(c echo.Context) error {
		if err := db.Conn.Ping(context.Background()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(obs.Handler()))

	// Public auth routes with per-IP rate limiting
	authGroup := e.Group("/api/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", auth.Signup)
	authGroup.POST("/login", auth.Login)

	e.GET("/api/users/:id/profile", profiles.GetPublicProfile)

	// Authenticated group
	g := e.Group("/api")
	g.Use(appmw.JWTMiddleware)

	g.GET("/auth/me", auth.Me)
	g.PATCH("/users/profile", profiles.UpdateProfile)

	// Jobs
	g.POST("/jobs", jobs.Create)
	g.GET("/jobs/available", jobs.Available)
	g.GET("/jobs/my-posted", jobs.MyPosted)
	g.GET("/jobs/my-runner", jobs.MyRunner)
	g.GET("/jobs/history", jobs.History)
	g.GET("/jobs/:id", jobs.Get)
	g.POST("/jobs/:id/apply", jobs.Apply)
	g.POST("/jobs/:id/cancel-bid", jobs.CancelBid)
	g.POST("/jobs/:id/choose", jobs.ChooseRunner)
	g.POST("/jobs/:id/pickup", jobs.MarkPickedUp)
	g.POST("/jobs/:id/deliver", jobs.MarkDelivered)
	g.POST("/jobs/:id/confirm", jobs.ConfirmDelivery)
	g.POST("/jobs/:id/rate", jobs.Rate)
	g.POST("/jobs/:id/cancel", jobs.CancelDelivery)
	g.POST("/jobs/:id/report", jobs.Report)

	// Realtime
	g.GET("/ws", ws.Feed)
	g.GET("/jobs/:id/ws", ws.JobRoom)

	// Wallet
	g.GET("/wallet/balance", wallets.Balance)
	g.GET("/wallet/transactions", wallets.Transactions)
	g.POST("/wallet/cashout", wallets.Cashout)

	// Payment (placeholder gateway)
	g.POST("/payment/create-order", job.CreatePaymentOrder)
	g.POST("/payment/verify", job.VerifyPayment)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Gatedrop API listening on :%s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
