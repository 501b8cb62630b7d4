package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"turnero/kiosk-service/internal/store"

	"github.com/google/uuid"
)

// Notices are the user-facing messages a screen may be asked to display.
// They never carry backend detail; the raw error stays in the logs.
const (
	NoticeTryAgain       = "service unavailable, please try again"
	NoticeClientNotFound = "identity not found"
	NoticeSelectCategory = "select a category"
	NoticeCodeNotFound   = "code not found"
	NoticeOwnerMismatch  = "identity does not match the turn owner"
	NoticeNoKiosks       = "no active kiosks configured"
	NoticeCreateFailed   = "the turn could not be created, please retry"
	NoticeRecoverFailed  = "the turn could not be recovered"
)

const defaultIdentityLength = 10

// Controller sequences the issuance and recovery journeys. It performs at
// most one collaborator call per forward transition and resolves every
// failure locally: the session either advances or stays put with a notice.
type Controller struct {
	store             store.TurnStore
	identityLength    int
	priorityProfileID string
	now               func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type Options struct {
	IdentityLength    int
	PriorityProfileID string
	Now               func() time.Time
	Rand              *rand.Rand
}

func NewController(st store.TurnStore, options Options) *Controller {
	length := options.IdentityLength
	if length <= 0 {
		length = defaultIdentityLength
	}
	now := options.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	rng := options.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Controller{
		store:             st,
		identityLength:    length,
		priorityProfileID: options.PriorityProfileID,
		now:               now,
		rng:               rng,
	}
}

// Handle applies one event to the session. Events that do not apply to the
// current screen are ignored; kiosk front-ends are expected to disable input
// while a transition is in flight, but double-fires must stay harmless.
func (c *Controller) Handle(ctx context.Context, session *Session, event Event) error {
	if event.Kind == EventTimeout && event.Epoch != session.Epoch {
		return nil
	}
	session.Notice = ""

	switch session.Screen {
	case "", ScreenWelcome:
		switch event.Kind {
		case EventStartIssuance:
			session.reset(false)
			c.enter(session, ScreenIDInput)
		case EventStartRecovery:
			session.reset(true)
			c.enter(session, ScreenRecoverCode)
		}
	case ScreenIDInput:
		switch event.Kind {
		case EventBack:
			session.reset(false)
			c.enter(session, ScreenWelcome)
		case EventSubmitIdentity:
			return c.submitIdentity(ctx, session, event.Value)
		}
	case ScreenCategorySelect:
		switch event.Kind {
		case EventBack:
			session.Draft.Category = nil
			c.enter(session, ScreenIDInput)
		case EventSelectCategory:
			c.selectCategory(session, event.Value)
		case EventConfirm:
			return c.confirm(ctx, session)
		}
	case ScreenRecoverCode:
		switch event.Kind {
		case EventBack:
			session.reset(false)
			c.enter(session, ScreenWelcome)
		case EventSubmitCode:
			return c.submitCode(ctx, session, event.Value)
		}
	case ScreenRecoverIdentity:
		switch event.Kind {
		case EventBack:
			session.Draft.Candidate = nil
			c.enter(session, ScreenRecoverCode)
		case EventSubmitIdentity:
			return c.validateOwnership(ctx, session, event.Value)
		}
	case ScreenSuccess:
		switch event.Kind {
		case EventFinish, EventTimeout:
			session.reset(false)
			c.enter(session, ScreenWelcome)
		}
	}
	return nil
}

// enter moves the session to a new screen and bumps the epoch so any result
// still in flight for the previous screen is discarded on arrival.
func (c *Controller) enter(session *Session, screen Screen) {
	session.Screen = screen
	session.Epoch++
	session.UpdatedAt = c.now()
}

func (c *Controller) submitIdentity(ctx context.Context, session *Session, raw string) error {
	identity := NormalizeIdentity(raw)
	if len(identity) != c.identityLength {
		session.Notice = fmt.Sprintf("identity must be %d digits", c.identityLength)
		return nil
	}

	epoch := session.Epoch
	client, found, err := c.store.FindClientByIdentity(ctx, identity)
	if err != nil {
		session.Notice = NoticeTryAgain
		return nil
	}
	if session.Epoch != epoch {
		return nil
	}
	if !found {
		session.Notice = NoticeClientNotFound
		return nil
	}

	session.Draft.Identity = identity
	session.Draft.Client = &client
	return c.enterCategorySelect(ctx, session)
}

// enterCategorySelect loads the reference data the category screen renders.
// A failed load keeps the user on the identity screen with a retry notice.
func (c *Controller) enterCategorySelect(ctx context.Context, session *Session) error {
	categories, err := c.store.ListActiveCategories(ctx)
	if err != nil {
		session.Notice = NoticeTryAgain
		return nil
	}
	kiosks, err := c.store.ListActiveKiosks(ctx)
	if err != nil {
		session.Notice = NoticeTryAgain
		return nil
	}

	session.Categories = categories
	session.Kiosks = kiosks
	session.Draft.Category = nil
	c.enter(session, ScreenCategorySelect)
	return nil
}

func (c *Controller) selectCategory(session *Session, categoryID string) {
	for i := range session.Categories {
		if session.Categories[i].CategoryID == categoryID {
			session.Draft.Category = &session.Categories[i]
			return
		}
	}
	session.Notice = NoticeSelectCategory
}

func (c *Controller) confirm(ctx context.Context, session *Session) error {
	if session.Draft.Category == nil {
		session.Notice = NoticeSelectCategory
		return nil
	}
	if session.Draft.Client == nil {
		session.Notice = NoticeTryAgain
		return nil
	}
	if len(session.Kiosks) == 0 {
		session.Notice = NoticeNoKiosks
		return nil
	}

	// The kiosk is drawn at creation time, not at load time, so turns issued
	// back-to-back can land on different kiosks.
	kiosk := session.Kiosks[c.pick(len(session.Kiosks))]

	epoch := session.Epoch
	turn, err := c.store.CreateTurn(ctx, store.CreateTurnInput{
		RequestID:         uuid.NewString(),
		ClientID:          session.Draft.Client.ClientID,
		CategoryID:        session.Draft.Category.CategoryID,
		KioskID:           kiosk.KioskID,
		BranchID:          kiosk.BranchID,
		PriorityProfileID: c.priorityProfileID,
		IssuedAt:          c.now(),
	})
	if err != nil {
		if isReferential(err) {
			session.Notice = NoticeCreateFailed
		} else {
			session.Notice = NoticeTryAgain
		}
		return nil
	}
	if session.Epoch != epoch {
		return nil
	}

	session.Draft.Turn = &turn
	c.enter(session, ScreenSuccess)
	return nil
}

func (c *Controller) submitCode(ctx context.Context, session *Session, raw string) error {
	code := NormalizeCode(raw)
	if code == "" {
		session.Notice = NoticeCodeNotFound
		return nil
	}

	epoch := session.Epoch
	lost, found, err := c.store.FindLostTurnByCode(ctx, code)
	if err != nil {
		session.Notice = NoticeTryAgain
		return nil
	}
	if session.Epoch != epoch {
		return nil
	}
	if !found {
		session.Notice = NoticeCodeNotFound
		return nil
	}

	session.Draft.Candidate = &lost
	c.enter(session, ScreenRecoverIdentity)
	return nil
}

func (c *Controller) validateOwnership(ctx context.Context, session *Session, raw string) error {
	candidate := session.Draft.Candidate
	if candidate == nil {
		c.enter(session, ScreenRecoverCode)
		return nil
	}

	identity := NormalizeIdentity(raw)
	if identity != candidate.OwnerIdentity {
		session.Notice = NoticeOwnerMismatch
		return nil
	}

	epoch := session.Epoch
	turn, err := c.store.ReactivateTurn(ctx, store.ReactivateTurnInput{
		TurnID:      candidate.Turn.TurnID,
		RecoveredAt: c.now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidState) || errors.Is(err, store.ErrTurnNotFound) {
			session.Notice = NoticeRecoverFailed
		} else {
			session.Notice = NoticeTryAgain
		}
		return nil
	}
	if session.Epoch != epoch {
		return nil
	}

	session.Draft.Identity = identity
	session.Draft.Turn = &turn
	c.enter(session, ScreenSuccess)
	return nil
}

func (c *Controller) pick(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Intn(n)
}

func isReferential(err error) bool {
	return errors.Is(err, store.ErrClientNotFound) ||
		errors.Is(err, store.ErrCategoryNotFound) ||
		errors.Is(err, store.ErrKioskNotFound) ||
		errors.Is(err, store.ErrBranchNotFound)
}
