package errors

import "github.com/pkg/errors"

var (
	// source adapter errors
	ErrSourceUnavailable = errors.New("mail source unavailable")
	ErrSessionClosed     = errors.New("source session closed")

	// item errors
	ErrItemMalformed = errors.New("item is missing id or timestamp")
	ErrWrongItemKind = errors.New("item is not a deliverable mail kind")

	// delivery errors
	ErrDeliveryFailed = errors.New("sink delivery failed")

	// storage errors
	ErrStorageFailure = errors.New("checkpoint or ledger write failed")

	// account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountInactive = errors.New("account is not active")
	ErrAccountExists   = errors.New("account already exists")

	// adapter registry errors
	ErrUnknownAccountType = errors.New("no source adapter registered for account type")
)
