package retention

import "errors"

var (
	// ErrPolicyNotFound indicates the referenced retention policy does not exist.
	ErrPolicyNotFound = errors.New("retention policy not found")

	// ErrInvalidContentHash indicates a content hash that is not 64 hex characters.
	ErrInvalidContentHash = errors.New("invalid content hash")

	// ErrInvalidPolicy indicates a policy definition that fails validation.
	ErrInvalidPolicy = errors.New("invalid retention policy")
)
