package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target with a deadline and a monthly contribution.
type Goal struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	Currency       string          `json:"currency"`
	DurationMonths int             `json:"duration_months"`
	MonthlyAmount  decimal.Decimal `json:"monthly_amount"`
	Deadline       time.Time       `json:"deadline"`
	StartDate      time.Time       `json:"start_date"`
	SavedAmount    decimal.Decimal `json:"saved_amount"`
	OwnerID        string          `json:"owner_id"`
	CreatedAt      time.Time       `json:"created_at"`
	SyncStatus     SyncStatus      `json:"sync_status"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
}

// EntityID implements Entity.
func (g *Goal) EntityID() string { return g.ID }

// EntityKind implements Entity.
func (g *Goal) EntityKind() Kind { return KindGoal }

// Owner implements Entity.
func (g *Goal) Owner() string { return g.OwnerID }

// Validate checks if the Goal has valid field values.
func (g *Goal) Validate() error {
	if err := requireID(g.ID, g.OwnerID); err != nil {
		return err
	}
	if g.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(g.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code (got %q)", g.Currency)
	}
	if g.TotalCost.IsNegative() || g.MonthlyAmount.IsNegative() || g.SavedAmount.IsNegative() {
		return fmt.Errorf("goal amounts must not be negative")
	}
	if g.DurationMonths < 0 {
		return fmt.Errorf("duration_months must not be negative (got %d)", g.DurationMonths)
	}
	return nil
}
