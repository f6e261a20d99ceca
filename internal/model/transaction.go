package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// Transaction is a single financial event (an income or an expense).
//
// IDs are assigned at creation time (client-side while offline) and are
// globally unique, so a row created on the device and the same row later
// returned by the remote API can be recognized as one record.
type Transaction struct {
	ID           string           `json:"id"`
	Amount       decimal.Decimal  `json:"amount"`
	Currency     string           `json:"currency"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`
	Type         TransactionType  `json:"type"` // INCOME or EXPENSE
	Description  string           `json:"description,omitempty"`
	Source       string           `json:"source,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
	OwnerID      string           `json:"owner_id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	SyncStatus   SyncStatus       `json:"sync_status"`
	DeletedAt    *time.Time       `json:"deleted_at,omitempty"`
}

// EntityID implements Entity.
func (t *Transaction) EntityID() string { return t.ID }

// EntityKind implements Entity.
func (t *Transaction) EntityKind() Kind { return KindTransaction }

// Owner implements Entity.
func (t *Transaction) Owner() string { return t.OwnerID }

// Validate checks if the Transaction has valid field values.
func (t *Transaction) Validate() error {
	if err := requireID(t.ID, t.OwnerID); err != nil {
		return err
	}
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return fmt.Errorf("type must be INCOME or EXPENSE (got %q)", t.Type)
	}
	if len(t.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code (got %q)", t.Currency)
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("amount must not be negative (got %s)", t.Amount)
	}
	if t.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}
	return nil
}
