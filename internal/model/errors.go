package model

import "errors"

// Common errors used across the application
var (
	// Registry errors
	ErrDuplicateConnection = errors.New("connection is already registered")
	ErrUnknownPlayer       = errors.New("unknown player")

	// Game errors
	ErrNoGameInProgress = errors.New("no game in progress")

	// Payload errors
	ErrMalformedPayload = errors.New("malformed payload")
	ErrInvalidNickname  = errors.New("invalid nickname")

	// Quiz errors
	ErrInvalidExpression = errors.New("invalid expression")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrTilesMismatch     = errors.New("tiles do not match the dealt numbers")
	ErrWrongAnswer       = errors.New("expression does not equal the target")
)
