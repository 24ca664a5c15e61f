package wallet

import "time"

// Transaction is one row of the wallet ledger log. Every balance
// mutation writes one in the same database transaction.
type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Type      string    `json:"type"`   // credit | debit
	Status    string    `json:"status"` // success | failed
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	TypeCredit = "credit"
	TypeDebit  = "debit"

	StatusSuccess = "success"
	StatusFailed  = "failed"
)
