package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FixedExpense is a recurring monthly charge due on a fixed day.
type FixedExpense struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
	DueDay      int             `json:"due_day"` // 1-31
	IsActive    bool            `json:"is_active"`
	OwnerID     string          `json:"owner_id"`
	CreatedAt   time.Time       `json:"created_at"`
	SyncStatus  SyncStatus      `json:"sync_status"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

// EntityID implements Entity.
func (f *FixedExpense) EntityID() string { return f.ID }

// EntityKind implements Entity.
func (f *FixedExpense) EntityKind() Kind { return KindFixedExpense }

// Owner implements Entity.
func (f *FixedExpense) Owner() string { return f.OwnerID }

// Validate checks if the FixedExpense has valid field values.
func (f *FixedExpense) Validate() error {
	if err := requireID(f.ID, f.OwnerID); err != nil {
		return err
	}
	if len(f.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code (got %q)", f.Currency)
	}
	if f.Amount.IsNegative() {
		return fmt.Errorf("amount must not be negative (got %s)", f.Amount)
	}
	if f.DueDay < 1 || f.DueDay > 31 {
		return fmt.Errorf("due_day must be between 1 and 31 (got %d)", f.DueDay)
	}
	return nil
}
