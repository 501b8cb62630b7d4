// Package workflow drives a kiosk user's journey across screens: issuing a
// new turn or recovering a lost one. The controller owns all cross-screen
// state; screens only render what the session says and emit events back.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"turnero/kiosk-service/internal/models"
	"turnero/kiosk-service/internal/store"
)

type Screen string

const (
	ScreenWelcome         Screen = "welcome"
	ScreenIDInput         Screen = "id_input"
	ScreenCategorySelect  Screen = "category_select"
	ScreenRecoverCode     Screen = "recover_code"
	ScreenRecoverIdentity Screen = "recover_identity"
	ScreenSuccess         Screen = "success"
)

type EventKind string

const (
	EventStartIssuance  EventKind = "start_issuance"
	EventStartRecovery  EventKind = "start_recovery"
	EventSubmitIdentity EventKind = "submit_identity"
	EventSelectCategory EventKind = "select_category"
	EventConfirm        EventKind = "confirm"
	EventSubmitCode     EventKind = "submit_code"
	EventBack           EventKind = "back"
	EventFinish         EventKind = "finish"
	EventTimeout        EventKind = "timeout"
)

// Event is a single user- or timer-driven input. Epoch is only set on
// timer-fired events; a timeout whose epoch no longer matches the session is
// stale and must be discarded.
type Event struct {
	Kind  EventKind
	Value string
	Epoch uint64
}

// Draft holds the in-progress selections for one journey. It is never
// persisted; it is cleared whenever a journey starts or ends.
type Draft struct {
	Identity  string
	Client    *models.Client
	Category  *models.Category
	Candidate *store.LostTurn
	Turn      *models.Turn
}

// Session is the explicit state object for one kiosk user. Every transition
// takes the session in, mutates it, and the caller observes the result; there
// is no ambient state anywhere else.
type Session struct {
	ID         string
	Screen     Screen
	Recovery   bool
	Draft      Draft
	Categories []models.Category
	Kiosks     []models.Kiosk
	Notice     string
	Epoch      uint64
	UpdatedAt  time.Time
}

func (s *Session) reset(recovery bool) {
	s.Draft = Draft{}
	s.Categories = nil
	s.Kiosks = nil
	s.Recovery = recovery
}

// SuccessView is the derived data the success screen renders.
type SuccessView struct {
	Code          string `json:"code"`
	CategoryName  string `json:"category_name,omitempty"`
	EstimatedWait string `json:"estimated_wait"`
	IssuedAt      string `json:"issued_at"`
	Recovered     bool   `json:"recovered"`
}

// SuccessInfo reports the success-screen payload, or false when the session
// is not on the success screen.
func (s *Session) SuccessInfo() (SuccessView, bool) {
	if s.Screen != ScreenSuccess || s.Draft.Turn == nil {
		return SuccessView{}, false
	}
	turn := s.Draft.Turn
	view := SuccessView{
		Code:          turn.Code,
		EstimatedWait: formatWait(turn.EstimatedWaitSeconds),
		IssuedAt:      turn.IssuedAt.Format("15:04"),
		Recovered:     s.Recovery,
	}
	if s.Draft.Category != nil {
		view.CategoryName = s.Draft.Category.Name
	}
	return view, true
}

func formatWait(seconds int) string {
	minutes := (seconds + 59) / 60
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min", minutes)
}

// NormalizeIdentity keeps only digits from the raw keypad input.
func NormalizeIdentity(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCode upper-cases the raw input and strips all whitespace.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}
