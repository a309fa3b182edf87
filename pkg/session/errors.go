package session

import "errors"

var (
	// ErrSessionNotFound indicates the session ID does not exist. Expired
	// and removed sessions report the same error as never-created ones.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnauthorized indicates the caller does not own the session.
	ErrUnauthorized = errors.New("caller does not own session")

	// ErrInvalidSecurityLevel indicates an unrecognized security level name.
	ErrInvalidSecurityLevel = errors.New("invalid security level")

	// ErrInvalidClassification indicates an unrecognized data classification name.
	ErrInvalidClassification = errors.New("invalid data classification")
)
