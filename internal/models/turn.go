package models

import "time"

type Turn struct {
	TurnID               string     `json:"turn_id"`
	Code                 string     `json:"code"`
	Sequence             int64      `json:"sequence"`
	ClientID             string     `json:"client_id"`
	CategoryID           string     `json:"category_id"`
	BranchID             string     `json:"branch_id"`
	KioskID              string     `json:"kiosk_id"`
	PriorityProfileID    string     `json:"priority_profile_id,omitempty"`
	State                string     `json:"state"`
	Recovered            bool       `json:"recovered"`
	EstimatedWaitSeconds int        `json:"estimated_wait_seconds"`
	IssuedAt             time.Time  `json:"issued_at"`
	IssuedDay            string     `json:"issued_day"`
	CalledAt             *time.Time `json:"called_at,omitempty"`
	AttendedAt           *time.Time `json:"attended_at,omitempty"`
	FinishedAt           *time.Time `json:"finished_at,omitempty"`
	LostAt               *time.Time `json:"lost_at,omitempty"`
	RecoveredAt          *time.Time `json:"recovered_at,omitempty"`
	VerifyHash           string     `json:"verify_hash,omitempty"`
	VerifyExpiresAt      *time.Time `json:"verify_expires_at,omitempty"`
}

const (
	StateWaiting  = "waiting"
	StateCalled   = "called"
	StateAttended = "attended"
	StateFinished = "finished"
	StateLost     = "lost"
)
