package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Policy holds the marketplace thresholds that gate job and wallet
// operations. They are loaded once at startup and passed to the
// lifecycle engine instead of being hardcoded in transition logic.
type Policy struct {
	MinFee             int64 // smallest fee a job may be posted with
	MinCashout         int64 // smallest amount a cashout may request
	BanReportThreshold int   // report count above which a user is banned
}

// DefaultPolicy returns the stock Gatedrop thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinFee:             30,
		MinCashout:         100,
		BanReportThreshold: 2,
	}
}

// Load reads .env (if present) and returns the policy with any
// environment overrides applied.
func Load() Policy {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	p := DefaultPolicy()
	p.MinFee = envInt64("GATEDROP_MIN_FEE", p.MinFee)
	p.MinCashout = envInt64("GATEDROP_MIN_CASHOUT", p.MinCashout)
	p.BanReportThreshold = envInt("GATEDROP_BAN_THRESHOLD", p.BanReportThreshold)
	return p
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}
