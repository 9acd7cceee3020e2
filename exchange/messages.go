package exchange

import (
	"errors"
	"net/http"
	"strings"
)

// User-facing messages.
const (
	MsgSessionExpired    = "Session expired. Please log in again."
	MsgForbiddenProfile  = "You do not have permission to view this profile."
	MsgProfileFallback   = "Could not load profile."
	MsgNoSession         = "No active session. Log in to view your profile."
	MsgCatalogFallback   = "Could not load the title catalog."
	MsgPublishFallback   = "Could not publish the book. Check the data sent or try again later."
	MsgPublished         = "Book published successfully!"
	MsgRegisterFallback  = "Could not register user."
	MsgRegisterMissing   = "Name, address, email and password are required."
	MsgPasswordsMismatch = "Passwords do not match."
	MsgRegistered        = "User registered successfully."
	MsgLoginFallback     = "Could not log in."
)

// StatusError is implemented by API errors that carry an HTTP status and the
// message fields of the server's error body.
type StatusError interface {
	error
	HTTPStatus() int
	ServerMessage() string
	ServerError() string
}

// UserMessage maps err to a string for display. It prefers the server's
// "message" field, then its "error" field, then fallback.
func UserMessage(err error, fallback string) string {
	var se StatusError
	if errors.As(err, &se) {
		if msg := strings.TrimSpace(se.ServerMessage()); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(se.ServerError()); msg != "" {
			return msg
		}
	}
	return fallback
}

// ProfileMessage maps a failed profile fetch to a message. 401 and 403 get
// fixed messages; anything else defers to the server message or a fallback.
func ProfileMessage(err error) string {
	if errors.Is(err, ErrSignedOut) {
		return MsgNoSession
	}
	switch Status(err) {
	case http.StatusUnauthorized:
		return MsgSessionExpired
	case http.StatusForbidden:
		return MsgForbiddenProfile
	}
	var se StatusError
	if errors.As(err, &se) {
		if msg := strings.TrimSpace(se.ServerMessage()); msg != "" {
			return msg
		}
	}
	return MsgProfileFallback
}

// Status returns the HTTP status carried by err, or 0.
func Status(err error) int {
	var se StatusError
	if errors.As(err, &se) {
		return se.HTTPStatus()
	}
	return 0
}
