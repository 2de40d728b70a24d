package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read stdout: %v", err)
	}
	return buf.String()
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	out := captureOutput(t, func() {
		printJSON(struct {
			A int `json:"a"`
		}{A: 1})
	})

	expected := "{\n  \"a\": 1\n}\n"
	if out != expected {
		t.Fatalf("unexpected json output:\n%s", out)
	}
}

func TestWalletGetCmd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/wallets/wal-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"wal-1","balance":500}`))
	}))
	defer server.Close()

	origURL := baseURL
	baseURL = server.URL
	defer func() { baseURL = origURL }()

	cmd := walletCmd()
	cmd.SetArgs([]string{"get", "wal-1"})

	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Fatalf("command failed: %v", err)
		}
	})

	if !strings.Contains(out, `"wal-1"`) || !strings.Contains(out, "500") {
		t.Fatalf("expected wallet in output, got %q", out)
	}
}

func TestDistributeCmdSendsIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"transaction_id":"txn-1","total_amount":1000}`))
	}))
	defer server.Close()

	origURL := baseURL
	baseURL = server.URL
	defer func() { baseURL = origURL }()

	cmd := distributeCmd()
	cmd.SetArgs([]string{"--transaction", "txn-1", "--party", "party-1", "--amount", "1000"})

	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Fatalf("command failed: %v", err)
		}
	})

	if gotKey != "txn-1" {
		t.Fatalf("expected idempotency key txn-1, got %q", gotKey)
	}
	if gotBody["originator_party_id"] != "party-1" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if !strings.Contains(out, "txn-1") {
		t.Fatalf("expected transaction in output, got %q", out)
	}
}

func TestLedgerConsistencyCmdFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"consistent":false,"discrepancies":[{"wallet_id":"wal-1"}]}`))
	}))
	defer server.Close()

	origURL := baseURL
	baseURL = server.URL
	defer func() { baseURL = origURL }()

	cmd := ledgerCmd()
	cmd.SetArgs([]string{"consistency"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	var execErr error
	out := captureOutput(t, func() {
		execErr = cmd.Execute()
	})

	if execErr == nil {
		t.Fatal("expected error for inconsistent ledger")
	}
	if !strings.Contains(out, "FAILED") {
		t.Fatalf("expected failure banner, got %q", out)
	}
}
