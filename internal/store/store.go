package store

import (
	"context"
	"encoding/json"
	"time"

	"turnero/kiosk-service/internal/models"
)

type CreateTurnInput struct {
	RequestID         string
	ClientID          string
	CategoryID        string
	KioskID           string
	BranchID          string
	PriorityProfileID string
	IssuedAt          time.Time
}

type ReactivateTurnInput struct {
	TurnID      string
	RecoveredAt time.Time
}

// LostTurn pairs a turn in the lost state with its owner's identity, so the
// caller can re-verify ownership before reactivating.
type LostTurn struct {
	Turn          models.Turn `json:"turn"`
	OwnerIdentity string      `json:"owner_identity"`
	OwnerName     string      `json:"owner_name"`
}

type TurnStore interface {
	FindClientByIdentity(ctx context.Context, identity string) (models.Client, bool, error)
	ListActiveCategories(ctx context.Context) ([]models.Category, error)
	ListActiveKiosks(ctx context.Context) ([]models.Kiosk, error)
	CreateTurn(ctx context.Context, input CreateTurnInput) (models.Turn, error)
	FindLostTurnByCode(ctx context.Context, code string) (LostTurn, bool, error)
	ReactivateTurn(ctx context.Context, input ReactivateTurnInput) (models.Turn, error)
	ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]OutboxEvent, error)
}

type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
