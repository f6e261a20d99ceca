// Package export reads and writes JSONL snapshots of the local
// database, one entity per line. Snapshots back up a device's ledger
// and can be restored onto a fresh database.
//
// Restore uses the same insert-if-absent rule as the download merge, so
// importing a snapshot over an existing database can never overwrite a
// newer local row, and importing the same snapshot twice is a no-op.
// Restored rows are treated as synced; the pending-operation queue is
// not part of a snapshot.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/avasilenko/pocketledger/internal/model"
	"github.com/avasilenko/pocketledger/internal/store"
)

// header is the first line of a snapshot.
type header struct {
	Format     string    `json:"format"`
	OwnerID    string    `json:"owner_id"`
	ExportedAt time.Time `json:"exported_at"`
}

const formatName = "pocketledger-snapshot-v1"

// line is one entity row in a snapshot.
type line struct {
	Kind    model.Kind    `json:"kind"`
	Payload model.Payload `json:"payload"`
}

// Result summarizes an export or import.
type Result struct {
	Transactions  int
	Tags          int
	Goals         int
	FixedExpenses int
	Skipped       int // import only: rows whose id already existed
}

// Total returns the number of rows written or inserted.
func (r *Result) Total() int {
	return r.Transactions + r.Tags + r.Goals + r.FixedExpenses
}

// Export writes the owner's live rows (soft-deleted rows excluded) to w
// as JSONL.
func Export(ctx context.Context, st *store.Store, ownerID string, w io.Writer) (*Result, error) {
	enc := json.NewEncoder(w)

	if err := enc.Encode(header{Format: formatName, OwnerID: ownerID, ExportedAt: time.Now().UTC()}); err != nil {
		return nil, fmt.Errorf("failed to write snapshot header: %w", err)
	}

	res := &Result{}

	txs, err := st.ListTransactions(ctx, ownerID, store.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	for _, t := range txs {
		if err := enc.Encode(line{Kind: model.KindTransaction, Payload: model.Payload{Transaction: t}}); err != nil {
			return nil, fmt.Errorf("failed to write transaction %s: %w", t.ID, err)
		}
		res.Transactions++
	}

	tags, err := st.ListTags(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if err := enc.Encode(line{Kind: model.KindTag, Payload: model.Payload{Tag: t}}); err != nil {
			return nil, fmt.Errorf("failed to write tag %s: %w", t.ID, err)
		}
		res.Tags++
	}

	goals, err := st.ListGoals(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, g := range goals {
		if err := enc.Encode(line{Kind: model.KindGoal, Payload: model.Payload{Goal: g}}); err != nil {
			return nil, fmt.Errorf("failed to write goal %s: %w", g.ID, err)
		}
		res.Goals++
	}

	expenses, err := st.ListFixedExpenses(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, f := range expenses {
		if err := enc.Encode(line{Kind: model.KindFixedExpense, Payload: model.Payload{FixedExpense: f}}); err != nil {
			return nil, fmt.Errorf("failed to write fixed expense %s: %w", f.ID, err)
		}
		res.FixedExpenses++
	}

	return res, nil
}

// Import restores a snapshot into the store, inserting only rows whose
// id does not already exist locally.
func Import(ctx context.Context, st *store.Store, ownerID string, r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read snapshot: %w", err)
		}
		return nil, fmt.Errorf("snapshot is empty")
	}

	var hdr header
	if err := json.Unmarshal(scanner.Bytes(), &hdr); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot header: %w", err)
	}
	if hdr.Format != formatName {
		return nil, fmt.Errorf("unsupported snapshot format %q", hdr.Format)
	}
	if hdr.OwnerID != ownerID {
		return nil, fmt.Errorf("snapshot belongs to owner %q, not %q", hdr.OwnerID, ownerID)
	}

	// Group rows by kind so each kind merges in one transaction.
	byKind := make(map[model.Kind][]model.Entity)
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot line %d: %w", lineNo, err)
		}
		e, err := l.Payload.Entity()
		if err != nil {
			return nil, fmt.Errorf("invalid snapshot line %d: %w", lineNo, err)
		}
		if e.EntityKind() != l.Kind {
			return nil, fmt.Errorf("snapshot line %d: payload kind %s does not match %s", lineNo, e.EntityKind(), l.Kind)
		}
		byKind[l.Kind] = append(byKind[l.Kind], e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	res := &Result{}
	for _, kind := range model.Kinds {
		records := byKind[kind]
		if len(records) == 0 {
			continue
		}
		inserted, err := st.BulkMerge(ctx, kind, records, ownerID)
		if err != nil {
			return nil, err
		}
		switch kind {
		case model.KindTransaction:
			res.Transactions = inserted
		case model.KindTag:
			res.Tags = inserted
		case model.KindGoal:
			res.Goals = inserted
		case model.KindFixedExpense:
			res.FixedExpenses = inserted
		}
		res.Skipped += len(records) - inserted
	}

	return res, nil
}
