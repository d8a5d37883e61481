package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/splitit-app/splitit/internal/auth"
	"github.com/splitit-app/splitit/internal/storage/sqlite"
)

type testEnv struct {
	server *httptest.Server
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir, err := os.MkdirTemp("", "splitit-server-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	authn := auth.NewPasswordAuthenticator(store)
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	srv := httptest.NewServer(New(store, authn, jwt, "").Handler())
	t.Cleanup(srv.Close)

	env := &testEnv{server: srv}
	var reg struct {
		Token string `json:"token"`
	}
	env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "password123",
	}, http.StatusCreated, &reg)
	if reg.Token == "" {
		t.Fatal("register did not return a token")
	}
	env.token = reg.Token
	return env
}

// do sends a JSON request, asserts the status, and decodes the body into out
// (which may be nil).
func (e *testEnv) do(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var raw bytes.Buffer
		raw.ReadFrom(resp.Body)
		t.Fatalf("%s %s: status = %d, want %d (body: %s)", method, path, resp.StatusCode, wantStatus, raw.String())
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
}

func (e *testEnv) createParticipant(t *testing.T, name string) string {
	t.Helper()
	var resp struct {
		ID string `json:"id"`
	}
	e.do(t, http.MethodPost, "/api/participants", map[string]string{"display_name": name}, http.StatusCreated, &resp)
	return resp.ID
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	var resp map[string]string
	env.do(t, http.MethodGet, "/api/health", nil, http.StatusOK, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	env.do(t, http.MethodGet, "/api/participants", nil, http.StatusUnauthorized, nil)
	env.do(t, http.MethodPost, "/api/receipts", map[string]any{"description": "x"}, http.StatusUnauthorized, nil)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	var resp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	}, http.StatusOK, &resp)
	if resp.Token == "" || resp.UserID == "" {
		t.Errorf("login response incomplete: %+v", resp)
	}

	env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	}, http.StatusUnauthorized, nil)
}

func TestCalculateWithoutAuth(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	var resp struct {
		PerParticipant []struct {
			ParticipantID string `json:"participant_id"`
			TotalCents    int64  `json:"total_cents"`
		} `json:"per_participant"`
		ReceiptTotalCents int64 `json:"receipt_total_cents"`
	}
	env.do(t, http.MethodPost, "/api/calculate", map[string]any{
		"participants": []map[string]string{
			{"id": "p1", "name": "Ann"},
			{"id": "p2", "name": "Ben"},
			{"id": "p3", "name": "Cal"},
		},
		"items": []map[string]any{
			{"id": "i1", "description": "pizza", "price_cents": 100},
		},
		"assignments": map[string][]string{"i1": {"p1", "p2", "p3"}},
	}, http.StatusOK, &resp)

	if resp.ReceiptTotalCents != 100 {
		t.Errorf("receipt_total_cents = %d, want 100", resp.ReceiptTotalCents)
	}
	want := map[string]int64{"p1": 34, "p2": 33, "p3": 33}
	for _, share := range resp.PerParticipant {
		if share.TotalCents != want[share.ParticipantID] {
			t.Errorf("total for %s = %d, want %d", share.ParticipantID, share.TotalCents, want[share.ParticipantID])
		}
	}
}

func TestCalculateRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	env.do(t, http.MethodPost, "/api/calculate", map[string]any{
		"participants": []map[string]string{},
		"items":        []map[string]any{{"id": "i1", "price_cents": 100}},
	}, http.StatusBadRequest, nil)

	env.do(t, http.MethodPost, "/api/calculate", map[string]any{
		"participants": []map[string]string{{"id": "p1", "name": "Ann"}},
		"items":        []map[string]any{{"id": "i1", "price_cents": -5}},
	}, http.StatusBadRequest, nil)
}

func TestReceiptLifecycle(t *testing.T) {
	env := newTestEnv(t)
	p1 := env.createParticipant(t, "Ann")
	p2 := env.createParticipant(t, "Ben")

	// Create a receipt, mixing integer and token prices.
	var receipt struct {
		ID    string `json:"id"`
		Items []struct {
			ID         string `json:"id"`
			PriceCents int64  `json:"price_cents"`
		} `json:"items"`
		TotalCents int64 `json:"total_cents"`
	}
	env.do(t, http.MethodPost, "/api/receipts", map[string]any{
		"description": "dinner",
		"items": []map[string]any{
			{"description": "pasta", "price_cents": 1200},
			{"description": "wine", "price": "$18.50"},
		},
	}, http.StatusCreated, &receipt)

	if receipt.TotalCents != 3050 {
		t.Fatalf("total_cents = %d, want 3050", receipt.TotalCents)
	}
	if len(receipt.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(receipt.Items))
	}

	// Split: pasta shared, wine to Ann alone.
	var split struct {
		PerParticipant []struct {
			ParticipantID string `json:"participant_id"`
			TotalCents    int64  `json:"total_cents"`
		} `json:"per_participant"`
	}
	env.do(t, http.MethodPost, fmt.Sprintf("/api/receipts/%s/split", receipt.ID), map[string]any{
		"assignments": map[string][]string{
			receipt.Items[0].ID: {p1, p2},
			receipt.Items[1].ID: {p1},
		},
	}, http.StatusOK, &split)

	totals := make(map[string]int64)
	for _, share := range split.PerParticipant {
		totals[share.ParticipantID] = share.TotalCents
	}
	if totals[p1] != 2450 || totals[p2] != 600 {
		t.Errorf("split totals = %v, want %s:2450 %s:600", totals, p1, p2)
	}

	// Summary reflects the persisted allocations.
	var summary struct {
		ReceiptTotalCents int64 `json:"receipt_total_cents"`
		Participants      []struct {
			ParticipantID string `json:"participant_id"`
			TotalCents    int64  `json:"total_cents"`
			TotalDisplay  string `json:"total_display"`
		} `json:"participants"`
	}
	env.do(t, http.MethodGet, fmt.Sprintf("/api/receipts/%s/summary", receipt.ID), nil, http.StatusOK, &summary)
	if summary.ReceiptTotalCents != 3050 {
		t.Errorf("summary receipt_total_cents = %d, want 3050", summary.ReceiptTotalCents)
	}
	if len(summary.Participants) != 2 {
		t.Fatalf("summary participants = %d, want 2", len(summary.Participants))
	}
	if summary.Participants[0].TotalDisplay != "$24.50" {
		t.Errorf("total_display = %q, want %q", summary.Participants[0].TotalDisplay, "$24.50")
	}

	// Outstanding equals the running total before any settlement.
	var outstanding struct {
		RunningTotalCents int64 `json:"running_total_cents"`
		OutstandingCents  int64 `json:"outstanding_cents"`
	}
	env.do(t, http.MethodGet, fmt.Sprintf("/api/participants/%s/outstanding", p1), nil, http.StatusOK, &outstanding)
	if outstanding.RunningTotalCents != 2450 || outstanding.OutstandingCents != 2450 {
		t.Errorf("outstanding = %+v, want 2450/2450", outstanding)
	}

	// A settlement reduces outstanding but never the running total.
	var settled struct {
		OutstandingCents int64 `json:"outstanding_cents"`
	}
	env.do(t, http.MethodPost, "/api/settlements", map[string]any{
		"participant_id": p1,
		"amount":         "10.00",
		"note":           "venmo",
	}, http.StatusCreated, &settled)
	if settled.OutstandingCents != 1450 {
		t.Errorf("outstanding after settlement = %d, want 1450", settled.OutstandingCents)
	}
	env.do(t, http.MethodGet, fmt.Sprintf("/api/participants/%s/outstanding", p1), nil, http.StatusOK, &outstanding)
	if outstanding.RunningTotalCents != 2450 {
		t.Errorf("running total changed by settlement: %d", outstanding.RunningTotalCents)
	}
	if outstanding.OutstandingCents != 1450 {
		t.Errorf("outstanding = %d, want 1450", outstanding.OutstandingCents)
	}
}

func TestSplitIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	p1 := env.createParticipant(t, "Ann")

	var receipt struct {
		ID    string `json:"id"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	env.do(t, http.MethodPost, "/api/receipts", map[string]any{
		"description": "coffee",
		"items":       []map[string]any{{"description": "latte", "price_cents": 450}},
	}, http.StatusCreated, &receipt)

	body := map[string]any{"assignments": map[string][]string{receipt.Items[0].ID: {p1}}}
	env.do(t, http.MethodPost, fmt.Sprintf("/api/receipts/%s/split", receipt.ID), body, http.StatusOK, nil)
	env.do(t, http.MethodPost, fmt.Sprintf("/api/receipts/%s/split", receipt.ID), body, http.StatusOK, nil)

	var outstanding struct {
		RunningTotalCents int64 `json:"running_total_cents"`
	}
	env.do(t, http.MethodGet, fmt.Sprintf("/api/participants/%s/outstanding", p1), nil, http.StatusOK, &outstanding)
	if outstanding.RunningTotalCents != 450 {
		t.Errorf("running total after replay = %d, want 450", outstanding.RunningTotalCents)
	}
}

func TestReplaceItemsInvalidatesSplit(t *testing.T) {
	env := newTestEnv(t)
	p1 := env.createParticipant(t, "Ann")

	var receipt struct {
		ID    string `json:"id"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	env.do(t, http.MethodPost, "/api/receipts", map[string]any{
		"description": "groceries",
		"items":       []map[string]any{{"description": "milk", "price_cents": 300}},
	}, http.StatusCreated, &receipt)

	env.do(t, http.MethodPost, fmt.Sprintf("/api/receipts/%s/split", receipt.ID), map[string]any{
		"assignments": map[string][]string{receipt.Items[0].ID: {p1}},
	}, http.StatusOK, nil)

	var replaced struct {
		Items []struct {
			ID         string `json:"id"`
			PriceCents int64  `json:"price_cents"`
		} `json:"items"`
		TotalCents int64 `json:"total_cents"`
	}
	env.do(t, http.MethodPut, fmt.Sprintf("/api/receipts/%s/items", receipt.ID), map[string]any{
		"items": []map[string]any{
			{"description": "milk", "price_cents": 300},
			{"description": "eggs", "price_cents": 500},
		},
	}, http.StatusOK, &replaced)
	if replaced.TotalCents != 800 {
		t.Errorf("total after replace = %d, want 800", replaced.TotalCents)
	}

	// The old allocation was reversed with the old items.
	var outstanding struct {
		RunningTotalCents int64 `json:"running_total_cents"`
	}
	env.do(t, http.MethodGet, fmt.Sprintf("/api/participants/%s/outstanding", p1), nil, http.StatusOK, &outstanding)
	if outstanding.RunningTotalCents != 0 {
		t.Errorf("running total after item replace = %d, want 0", outstanding.RunningTotalCents)
	}
}

func TestSplitUnknownReceipt(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/receipts/no-such-id/split", map[string]any{
		"assignments": map[string][]string{},
	}, http.StatusNotFound, nil)
}

func TestSettlementUnknownParticipant(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/settlements", map[string]any{
		"participant_id": "ghost",
		"amount_cents":   100,
	}, http.StatusNotFound, nil)
}
