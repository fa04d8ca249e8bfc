package service

import (
	"errors"

	"taxtracker/internal/taxengine"
)

var (
	ErrNotAuthenticated     = errors.New("please log in to continue")
	ErrNoPendingCalculation = errors.New("no pending calculation")
	ErrRecordNotFound       = errors.New("tax record not found")
	ErrIncompleteLogin      = errors.New("login response is missing the user id or token")
	// ErrInvalidInput is returned for request values a user can correct
	ErrInvalidInput = taxengine.ErrInvalidInput
)
