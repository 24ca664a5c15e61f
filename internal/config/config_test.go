package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, int64(30), p.MinFee)
	assert.Equal(t, int64(100), p.MinCashout)
	assert.Equal(t, 2, p.BanReportThreshold)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GATEDROP_MIN_FEE", "40")
	t.Setenv("GATEDROP_MIN_CASHOUT", "250")
	t.Setenv("GATEDROP_BAN_THRESHOLD", "5")

	p := Load()
	assert.Equal(t, int64(40), p.MinFee)
	assert.Equal(t, int64(250), p.MinCashout)
	assert.Equal(t, 5, p.BanReportThreshold)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("GATEDROP_MIN_FEE", "not-a-number")
	t.Setenv("GATEDROP_MIN_CASHOUT", "")
	t.Setenv("GATEDROP_BAN_THRESHOLD", "2.5")

	p := Load()
	assert.Equal(t, DefaultPolicy(), p)
}
