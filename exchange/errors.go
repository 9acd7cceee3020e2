package exchange

import "errors"

var (
	ErrSignedOut     = errors.New("no logged-in user")
	ErrCannotSubmit  = errors.New("a title and a condition are required, and no submission may be in flight")
	ErrUnknownTitle  = errors.New("selected title is not in the catalog")
	ErrNotFound      = errors.New("exchange request not found")
	ErrMissingFields = errors.New("name, address, email and password are required")
	ErrPasswordMatch = errors.New("passwords do not match")
)

// Identity exposes the logged-in user id. An empty string means no session.
type Identity interface {
	UserID() string
}
