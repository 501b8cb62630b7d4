package store

import "errors"

var (
	ErrClientNotFound   = errors.New("client not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrKioskNotFound    = errors.New("kiosk not found")
	ErrBranchNotFound   = errors.New("branch not found")
	ErrTurnNotFound     = errors.New("turn not found")
	ErrInvalidState     = errors.New("invalid turn state")
)
