package model

import (
	"fmt"
	"time"
)

// Tag is a user-defined label attached to transactions.
//
// Tags are never soft-deleted on-device in the current schema; the
// remote API owns tag deletion and removals arrive via bulk download.
type Tag struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Color      string     `json:"color,omitempty"`
	OwnerID    string     `json:"owner_id"`
	CreatedAt  time.Time  `json:"created_at"`
	SyncStatus SyncStatus `json:"sync_status"`
}

// EntityID implements Entity.
func (t *Tag) EntityID() string { return t.ID }

// EntityKind implements Entity.
func (t *Tag) EntityKind() Kind { return KindTag }

// Owner implements Entity.
func (t *Tag) Owner() string { return t.OwnerID }

// Validate checks if the Tag has valid field values.
func (t *Tag) Validate() error {
	if err := requireID(t.ID, t.OwnerID); err != nil {
		return err
	}
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(t.Name) > 100 {
		return fmt.Errorf("name must be 100 characters or less (got %d)", len(t.Name))
	}
	return nil
}
