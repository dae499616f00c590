package syncq

import (
	"errors"
	"testing"
)

func TestPushLoadRoundTrip(t *testing.T) {
	t.Setenv("WW_HOME", t.TempDir())

	got, err := Load()
	if err != nil || len(got) != 0 {
		t.Fatalf("empty queue got %v, %v", got, err)
	}
	cmds := []Command{
		{Method: "POST", Path: "/v1/businesses/market_research/buy", PlayerID: "p1"},
		{Method: "POST", Path: "/v1/takeovers", PlayerID: "p1", IdempotencyKey: "k1", Body: map[string]any{"defender_id": "p2"}},
	}
	for _, c := range cmds {
		if err := Push(c); err != nil {
			t.Fatal(err)
		}
	}
	got, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].IdempotencyKey != "k1" || got[1].Body["defender_id"] != "p2" {
		t.Fatalf("got %+v", got)
	}
}

func TestReplayKeepsFailures(t *testing.T) {
	cmds := []Command{{Path: "/a"}, {Path: "/b"}, {Path: "/c"}}
	sent, remaining, errs := Replay(cmds, func(c Command) error {
		if c.Path == "/b" {
			return errors.New("offline")
		}
		return nil
	})
	if sent != 2 || len(remaining) != 1 || remaining[0].Path != "/b" || len(errs) != 1 {
		t.Fatalf("sent=%d remaining=%v errs=%v", sent, remaining, errs)
	}
}
