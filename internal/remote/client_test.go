package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avasilenko/pocketledger/internal/model"
)

func testLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.New(io.Discard, "", 0)
}

func envelopeOK(data interface{}) string {
	raw, _ := json.Marshal(data)
	return fmt.Sprintf(`{"success":true,"data":%s}`, raw)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testLogger(t))
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL, &http.Client{Timeout: time.Second}, testLogger(t))
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping() succeeded against a closed server")
	}
}

func TestCreate_SendsEntityToCollection(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testLogger(t))
	tx := &model.Transaction{
		ID:         "tx-1",
		Amount:     decimal.NewFromInt(9),
		Currency:   "USD",
		Type:       model.TypeExpense,
		OccurredAt: time.Now().UTC(),
		OwnerID:    "user-1",
	}
	if err := c.Create(context.Background(), tx); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotPath != "/transactions" {
		t.Errorf("path = %q, want /transactions", gotPath)
	}
	if gotBody["id"] != "tx-1" {
		t.Errorf("body id = %v, want tx-1", gotBody["id"])
	}
}

func TestUpdateAndDelete_Paths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testLogger(t))
	goal := &model.Goal{
		ID: "goal-1", Title: "t", Currency: "USD", OwnerID: "user-1",
		TotalCost: decimal.NewFromInt(1), MonthlyAmount: decimal.NewFromInt(1),
	}
	if err := c.Update(context.Background(), goal); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if err := c.Delete(context.Background(), model.KindFixedExpense, "fe-9"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	want := []string{"PUT /goals/goal-1", "DELETE /fixed-expenses/fe-9"}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestFetchTransactions_DecodesEnvelope(t *testing.T) {
	txs := []*model.Transaction{
		{ID: "tx-1", Amount: decimal.NewFromInt(3), Currency: "EUR",
			Type: model.TypeIncome, OccurredAt: time.Now().UTC(), OwnerID: "user-1"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, envelopeOK(txs))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testLogger(t))
	got, err := c.FetchTransactions(context.Background())
	if err != nil {
		t.Fatalf("FetchTransactions() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "tx-1" {
		t.Fatalf("got %+v, want one tx-1", got)
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(3)) {
		t.Errorf("amount = %s, want 3", got[0].Amount)
	}
}

func TestDo_EnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 but the envelope reports failure.
		fmt.Fprint(w, `{"success":false,"error":"validation failed","code":422}`)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testLogger(t))
	_, err := c.FetchTags(context.Background())
	if err == nil {
		t.Fatal("expected error for success=false envelope")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Code != 422 || apiErr.Message != "validation failed" {
		t.Errorf("got %+v, want code 422 / validation failed", apiErr)
	}
}

func TestDo_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"success":false,"error":"boom"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testLogger(t))
	_, err := c.FetchGoals(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", apiErr.Status)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.FetchTransactions(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
