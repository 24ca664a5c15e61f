package wallet

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatedrop/gatedrop/internal/obs"
)

var (
	// ErrInvalidAmount - zero or negative amount.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInsufficientFunds - debit exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrBelowMinimum - cashout under the configured floor.
	ErrBelowMinimum = errors.New("amount is below the minimum cashout")

	// ErrNotFound - wallet owner does not exist.
	ErrNotFound = errors.New("wallet not found")
)

// Service is the ledger: safe, non-negative mutation of user wallet
// balances. Each mutation locks the owner's row, so two concurrent
// debits of the same user cannot both read a stale balance.
type Service struct {
	pool       *pgxpool.Pool
	minCashout int64
}

func NewService(pool *pgxpool.Pool, minCashout int64) *Service {
	return &Service{pool: pool, minCashout: minCashout}
}

// checkAmount guards every ledger mutation.
func checkAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// checkDebit applies the sufficiency rule to a locked balance.
func checkDebit(balance, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientFunds
	}
	return nil
}

// checkCashout layers the minimum-withdrawal floor on top of the debit
// rules. Sufficiency is still verified against the locked balance.
func checkCashout(amount, minCashout int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount < minCashout {
		return ErrBelowMinimum
	}
	return nil
}

// Credit adds to a user's balance and logs the transaction.
func (s *Service) Credit(ctx context.Context, userID string, amount int64, reference string) (int64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var newBalance int64
	err = tx.QueryRow(ctx, `
        UPDATE users SET wallet_balance = wallet_balance + $1, updated_at = NOW()
        WHERE id = $2
        RETURNING wallet_balance`, amount, userID,
	).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	if _, err = tx.Exec(ctx, `
        INSERT INTO transactions (id, user_id, amount, type, status, reference, created_at)
        VALUES ($1, $2, $3, 'credit', 'success', $4, $5)`,
		uuid.New().String(), userID, amount, reference, time.Now()); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	obs.WalletMutations.WithLabelValues("credit", "success").Inc()
	return newBalance, nil
}

// Debit subtracts from a user's balance if sufficient funds are
// available, holding the row lock from read to write.
func (s *Service) Debit(ctx context.Context, userID string, amount int64, reference string) (int64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	return s.debit(ctx, userID, amount, reference)
}

// Cashout is a debit with the minimum-withdrawal floor applied first.
func (s *Service) Cashout(ctx context.Context, userID string, amount int64) (int64, error) {
	if err := checkCashout(amount, s.minCashout); err != nil {
		return 0, err
	}
	newBalance, err := s.debit(ctx, userID, amount, "cashout")
	if err != nil {
		return 0, err
	}
	log.Printf("[Wallet] user %s cashed out %d. New balance: %d", userID, amount, newBalance)
	return newBalance, nil
}

func (s *Service) debit(ctx context.Context, userID string, amount int64, reference string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	if err := checkDebit(balance, amount); err != nil {
		// Log the rejected attempt outside the aborted transaction.
		_, _ = s.pool.Exec(ctx, `
            INSERT INTO transactions (id, user_id, amount, type, status, reference, created_at)
            VALUES ($1, $2, $3, 'debit', 'failed', $4, $5)`,
			uuid.New().String(), userID, amount, reference, time.Now())
		obs.WalletMutations.WithLabelValues("debit", "failed").Inc()
		return 0, err
	}

	var newBalance int64
	err = tx.QueryRow(ctx, `
        UPDATE users SET wallet_balance = wallet_balance - $1, updated_at = NOW()
        WHERE id = $2
        RETURNING wallet_balance`, amount, userID,
	).Scan(&newBalance)
	if err != nil {
		return 0, err
	}

	if _, err = tx.Exec(ctx, `
        INSERT INTO transactions (id, user_id, amount, type, status, reference, created_at)
        VALUES ($1, $2, $3, 'debit', 'success', $4, $5)`,
		uuid.New().String(), userID, amount, reference, time.Now()); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	obs.WalletMutations.WithLabelValues("debit", "success").Inc()
	return newBalance, nil
}

// Balance returns the user's current wallet balance.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1`, userID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}

// Transactions lists the user's ledger log, newest first.
func (s *Service) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, user_id, amount, type, status, COALESCE(reference, ''), created_at
        FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Status, &t.Reference, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
