package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAmount(t *testing.T) {
	assert.NoError(t, checkAmount(1))
	assert.NoError(t, checkAmount(500))
	assert.ErrorIs(t, checkAmount(0), ErrInvalidAmount)
	assert.ErrorIs(t, checkAmount(-50), ErrInvalidAmount)
}

func TestCheckDebit(t *testing.T) {
	assert.NoError(t, checkDebit(100, 100))
	assert.NoError(t, checkDebit(100, 1))
	assert.ErrorIs(t, checkDebit(100, 101), ErrInsufficientFunds)
	assert.ErrorIs(t, checkDebit(0, 1), ErrInsufficientFunds)
	assert.ErrorIs(t, checkDebit(100, 0), ErrInvalidAmount)
}

func TestCheckCashout(t *testing.T) {
	min := int64(100)

	// exactly at the floor is allowed
	assert.NoError(t, checkCashout(100, min))
	assert.NoError(t, checkCashout(250, min))

	// under the floor is rejected even when the balance would cover it
	assert.ErrorIs(t, checkCashout(99, min), ErrBelowMinimum)
	assert.ErrorIs(t, checkCashout(1, min), ErrBelowMinimum)
	assert.ErrorIs(t, checkCashout(0, min), ErrInvalidAmount)
	assert.ErrorIs(t, checkCashout(-10, min), ErrInvalidAmount)
}
