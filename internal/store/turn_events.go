package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"turnero/kiosk-service/internal/models"
)

// TurnEvent is one link in the per-turn audit chain. Each event hashes the
// previous event's hash so tampering with history is detectable.
type TurnEvent struct {
	TurnID    string          `json:"turn_id"`
	TurnSeq   int             `json:"turn_seq"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
}

type turnEventPayload struct {
	TurnID      string     `json:"turn_id"`
	Code        string     `json:"code"`
	State       string     `json:"state"`
	ClientID    string     `json:"client_id"`
	CategoryID  string     `json:"category_id"`
	BranchID    string     `json:"branch_id"`
	KioskID     string     `json:"kiosk_id"`
	Recovered   *bool      `json:"recovered"`
	IssuedAt    *time.Time `json:"issued_at"`
	RecoveredAt *time.Time `json:"recovered_at"`
}

func ComputeTurnEventHash(prevHash, turnID, eventType string, payload json.RawMessage, createdAt time.Time, seq int) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%d|%s", prevHash, turnID, eventType, createdAt.UTC().Format(time.RFC3339Nano), seq, payload)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum)
}

// RehydrateTurn folds an event chain back into the turn's latest view.
func RehydrateTurn(events []TurnEvent) (models.Turn, error) {
	var turn models.Turn
	for _, event := range events {
		if len(event.Payload) == 0 {
			continue
		}
		var payload turnEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return models.Turn{}, err
		}
		if payload.TurnID != "" {
			turn.TurnID = payload.TurnID
		}
		if payload.Code != "" {
			turn.Code = payload.Code
		}
		if payload.State != "" {
			turn.State = payload.State
		}
		if payload.ClientID != "" {
			turn.ClientID = payload.ClientID
		}
		if payload.CategoryID != "" {
			turn.CategoryID = payload.CategoryID
		}
		if payload.BranchID != "" {
			turn.BranchID = payload.BranchID
		}
		if payload.KioskID != "" {
			turn.KioskID = payload.KioskID
		}
		if payload.Recovered != nil {
			turn.Recovered = *payload.Recovered
		}
		if payload.IssuedAt != nil {
			turn.IssuedAt = *payload.IssuedAt
		}
		if payload.RecoveredAt != nil {
			turn.RecoveredAt = payload.RecoveredAt
		}
	}
	return turn, nil
}
