package store

import (
	"encoding/json"
	"testing"
	"time"
)

func TestComputeTurnEventHashChain(t *testing.T) {
	createdAt := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{"turn_id":"t1","state":"waiting"}`)

	first := ComputeTurnEventHash("", "t1", "turn.created", payload, createdAt, 1)
	second := ComputeTurnEventHash(first, "t1", "turn.recovered", payload, createdAt.Add(time.Hour), 2)

	if first == "" || second == "" {
		t.Fatal("expected non-empty hashes")
	}
	if first == second {
		t.Fatal("expected chained hashes to differ")
	}
	if again := ComputeTurnEventHash("", "t1", "turn.created", payload, createdAt, 1); again != first {
		t.Fatalf("hash not deterministic: %s != %s", again, first)
	}
}

func TestRehydrateTurn(t *testing.T) {
	issuedAt := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	recoveredAt := issuedAt.Add(2 * time.Hour)
	created, _ := json.Marshal(map[string]interface{}{
		"turn_id":     "t1",
		"code":        "B-042",
		"state":       "waiting",
		"client_id":   "c1",
		"category_id": "cat1",
		"branch_id":   "b1",
		"kiosk_id":    "k1",
		"issued_at":   issuedAt,
	})
	recovered, _ := json.Marshal(map[string]interface{}{
		"turn_id":      "t1",
		"state":        "waiting",
		"recovered":    true,
		"recovered_at": recoveredAt,
	})

	turn, err := RehydrateTurn([]TurnEvent{
		{TurnID: "t1", TurnSeq: 1, Type: "turn.created", Payload: created},
		{TurnID: "t1", TurnSeq: 2, Type: "turn.recovered", Payload: recovered},
	})
	if err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if turn.TurnID != "t1" || turn.Code != "B-042" || turn.State != "waiting" {
		t.Fatalf("unexpected turn: %+v", turn)
	}
	if !turn.Recovered {
		t.Fatal("expected recovered flag to be set")
	}
	if turn.RecoveredAt == nil || !turn.RecoveredAt.Equal(recoveredAt) {
		t.Fatalf("unexpected recovered_at: %v", turn.RecoveredAt)
	}
	if !turn.IssuedAt.Equal(issuedAt) {
		t.Fatalf("unexpected issued_at: %v", turn.IssuedAt)
	}
}
