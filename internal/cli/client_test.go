package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSendsPlayerAndIdempotencyHeaders(t *testing.T) {
	var gotPlayer, gotKey, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPlayer = r.Header.Get("X-Player-ID")
		gotKey = r.Header.Get("Idempotency-Key")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer ts.Close()

	c := NewClient(ts.URL+"/", "p1")
	out, err := c.Attack(context.Background(), map[string]any{"defender_id": "p2"}, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if gotPlayer != "p1" || gotKey != "k1" || gotPath != "/v1/takeovers" || out["success"] != true {
		t.Fatalf("player=%q key=%q path=%q out=%v", gotPlayer, gotKey, gotPath, out)
	}
}

func TestClientMaintainSendsAction(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"cost": 5})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "p1")
	if _, err := c.Maintain(context.Background(), "fast_food_chain", "major"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/v1/businesses/fast_food_chain/maintain" || gotBody["action"] != "major" {
		t.Fatalf("path=%q body=%v", gotPath, gotBody)
	}
}

func TestClientAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slot cooldown active: 30 minutes remaining"}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, "p1").ClearSlot(context.Background(), 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusTooManyRequests || apiErr.Message != "slot cooldown active: 30 minutes remaining" {
		t.Fatalf("got %+v", apiErr)
	}
	if !IsAPIError(err) {
		t.Fatalf("IsAPIError false")
	}
}

func TestClientNetworkErrorIsNotAPIError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()
	_, err := NewClient(url, "p1").Me(context.Background())
	if err == nil || IsAPIError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("WW_HOME", t.TempDir())
	if _, err := LoadSession(); err == nil {
		t.Fatalf("expected error without session")
	}
	if err := SaveSession(Session{PlayerID: "p1", Username: "builder"}); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSession()
	if err != nil || s.PlayerID != "p1" {
		t.Fatalf("got %+v, %v", s, err)
	}
	if err := ClearSession(); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSession(); err == nil {
		t.Fatalf("session survived clear")
	}
}
