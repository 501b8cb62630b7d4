package store

import "turnero/kiosk-service/internal/models"

// Counter-side actions (call, attend, finish, mark_lost) belong to the
// counter service; only reactivate is performed here. The full table is kept
// so both sides validate against the same lifecycle.
var transitionMap = map[string][]string{
	"call":       {models.StateWaiting},
	"attend":     {models.StateCalled},
	"finish":     {models.StateAttended},
	"mark_lost":  {models.StateWaiting, models.StateCalled, models.StateAttended},
	"reactivate": {models.StateLost},
}

func ValidTransition(action, fromState string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, state := range allowed {
		if state == fromState {
			return true
		}
	}
	return false
}
