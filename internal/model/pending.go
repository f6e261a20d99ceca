package model

import (
	"fmt"
	"time"
)

// Payload is the entity snapshot stored alongside a pending operation.
//
// Exactly one field is set, matching the operation's entity kind. Using
// a tagged union instead of an opaque serialized blob means replaying an
// operation never needs a runtime type assertion: the set field tells
// both the kind and the concrete type.
type Payload struct {
	Transaction  *Transaction  `json:"transaction,omitempty"`
	Tag          *Tag          `json:"tag,omitempty"`
	Goal         *Goal         `json:"goal,omitempty"`
	FixedExpense *FixedExpense `json:"fixed_expense,omitempty"`
}

// NewPayload wraps an entity in the matching payload variant.
func NewPayload(e Entity) (Payload, error) {
	switch v := e.(type) {
	case *Transaction:
		return Payload{Transaction: v}, nil
	case *Tag:
		return Payload{Tag: v}, nil
	case *Goal:
		return Payload{Goal: v}, nil
	case *FixedExpense:
		return Payload{FixedExpense: v}, nil
	default:
		return Payload{}, fmt.Errorf("unsupported entity type %T", e)
	}
}

// Entity returns the wrapped entity, or an error if the payload does not
// hold exactly one variant.
func (p Payload) Entity() (Entity, error) {
	var e Entity
	count := 0
	if p.Transaction != nil {
		e = p.Transaction
		count++
	}
	if p.Tag != nil {
		e = p.Tag
		count++
	}
	if p.Goal != nil {
		e = p.Goal
		count++
	}
	if p.FixedExpense != nil {
		e = p.FixedExpense
		count++
	}
	if count != 1 {
		return nil, fmt.Errorf("payload must hold exactly one entity (got %d)", count)
	}
	return e, nil
}

// Kind returns the kind of the wrapped entity, or empty if the payload
// is malformed.
func (p Payload) Kind() Kind {
	e, err := p.Entity()
	if err != nil {
		return ""
	}
	return e.EntityKind()
}

// PendingOperation is one queued local mutation awaiting upload.
//
// Operations are drained strictly in insertion order (the auto-increment
// id doubles as the FIFO position). Attempts counts failed uploads; the
// engine evicts an operation once it has failed three times so a single
// poison item cannot block the queue forever.
type PendingOperation struct {
	ID        int64     `json:"id"`
	Operation Operation `json:"operation"`
	Kind      Kind      `json:"kind"`
	EntityID  string    `json:"entity_id"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	Attempts  int       `json:"attempts"`
}

// Validate checks if the PendingOperation has valid field values.
func (op *PendingOperation) Validate() error {
	if !op.Operation.Valid() {
		return fmt.Errorf("operation must be CREATE, UPDATE or DELETE (got %q)", op.Operation)
	}
	if !op.Kind.Valid() {
		return fmt.Errorf("unknown entity kind %q", op.Kind)
	}
	if op.EntityID == "" {
		return fmt.Errorf("entity_id is required")
	}
	if got := op.Payload.Kind(); got != op.Kind {
		return fmt.Errorf("payload kind %q does not match operation kind %q", got, op.Kind)
	}
	if op.Attempts < 0 {
		return fmt.Errorf("attempts must not be negative (got %d)", op.Attempts)
	}
	return nil
}
