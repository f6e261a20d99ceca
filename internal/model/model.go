// Package model defines the entity types tracked by the reconciliation
// engine: transactions, tags, goals and fixed expenses, plus the
// engine-owned pending-operation record.
//
// Every entity row carries a sync status. A row is "pending" from the
// moment of a local write until the matching pending operation has been
// acknowledged by the remote API, and "synced" only after that.
package model

import "fmt"

// Kind identifies one of the four synced entity kinds.
type Kind string

const (
	KindTransaction  Kind = "transaction"
	KindTag          Kind = "tag"
	KindGoal         Kind = "goal"
	KindFixedExpense Kind = "fixedExpense"
)

// Kinds lists all entity kinds in a stable order.
var Kinds = []Kind{KindTransaction, KindTag, KindGoal, KindFixedExpense}

// Valid reports whether k is a known entity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTransaction, KindTag, KindGoal, KindFixedExpense:
		return true
	}
	return false
}

// Collection returns the remote API collection path for this kind.
func (k Kind) Collection() string {
	switch k {
	case KindTransaction:
		return "transactions"
	case KindTag:
		return "tags"
	case KindGoal:
		return "goals"
	case KindFixedExpense:
		return "fixed-expenses"
	default:
		return string(k)
	}
}

// SyncStatus marks whether a local row has been acknowledged by the
// remote API.
type SyncStatus string

const (
	// StatusPending means the row has local changes not yet acknowledged
	// by the remote API.
	StatusPending SyncStatus = "pending"
	// StatusSynced means the row matches the last state the remote API
	// acknowledged.
	StatusSynced SyncStatus = "synced"
)

// Operation is the mutation type recorded in the pending-operation log.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Entity is implemented by all four synced entity types.
//
// The store and engine only ever need identity, kind, ownership and
// validation from an entity; everything else is kind-specific and
// handled by type switches at the storage boundary.
type Entity interface {
	// EntityID returns the globally unique id of the entity.
	EntityID() string
	// EntityKind returns the kind of the entity.
	EntityKind() Kind
	// Owner returns the owning user's id.
	Owner() string
	// Validate checks required fields and value ranges.
	Validate() error
}

// requireID is shared by the entity Validate methods.
func requireID(id, owner string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if owner == "" {
		return fmt.Errorf("owner_id is required")
	}
	return nil
}
