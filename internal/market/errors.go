package market

import "errors"

var (
	ErrNotFound        = errors.New("market: not found")
	ErrAlreadyExists   = errors.New("market: already exists")
	ErrInvalidArgument = errors.New("market: invalid argument")
	ErrUnauthenticated = errors.New("market: unauthenticated")
	ErrForbidden       = errors.New("market: forbidden")
	ErrGateway         = errors.New("market: payment gateway failure")
)
