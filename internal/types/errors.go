package types

import "errors"

// Sentinel errors shared across repository, service and handler layers.
// Handlers map these onto HTTP status codes; everything else is treated as
// an internal storage fault and surfaced as a generic server error.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrValidation      = errors.New("invalid input")
	ErrInternal        = errors.New("internal error")
)
