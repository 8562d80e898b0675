package repository

import "errors"

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateRequest   = errors.New("request id already used")
	ErrDuplicateBookingID = errors.New("booking id already used")
	ErrSlotTaken          = errors.New("slot already held by a confirmed appointment")
	ErrStaleState         = errors.New("record changed concurrently")
)
