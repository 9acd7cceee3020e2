package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultRole is assigned to every self-registered account.
const DefaultRole = "ROLE_USER"

// AccountAPI covers registration and login.
type AccountAPI interface {
	Register(ctx context.Context, reg Registration) error
	Login(ctx context.Context, creds Credentials) (*AuthResult, error)
}

// SessionStore persists the authenticated session.
type SessionStore interface {
	Start(token, userID string) error
	Clear() error
}

// RegistrationForm is the raw sign-up input, including the confirmation.
type RegistrationForm struct {
	Name     string
	Address  string
	Email    string
	Password string
	Confirm  string
}

// Validate checks presence of the required fields and that both passwords
// match.
func (f RegistrationForm) Validate() error {
	for _, v := range []string{f.Name, f.Address, f.Email, f.Password} {
		if strings.TrimSpace(v) == "" {
			return ErrMissingFields
		}
	}
	if f.Password != f.Confirm {
		return ErrPasswordMatch
	}
	return nil
}

// Accounts drives sign-up, login and logout.
type Accounts struct {
	api      AccountAPI
	sessions SessionStore
}

func NewAccounts(api AccountAPI, sessions SessionStore) *Accounts {
	return &Accounts{api: api, sessions: sessions}
}

// Register creates the account and logs straight in with the same
// credentials.
func (a *Accounts) Register(ctx context.Context, f RegistrationForm) error {
	if err := f.Validate(); err != nil {
		return err
	}
	reg := Registration{
		Name:     f.Name,
		Address:  f.Address,
		Email:    f.Email,
		Password: f.Password,
		Roles:    DefaultRole,
	}
	if err := a.api.Register(ctx, reg); err != nil {
		return fmt.Errorf("register %s: %w", f.Email, err)
	}
	return a.Login(ctx, f.Email, f.Password)
}

// Login authenticates and starts a session.
func (a *Accounts) Login(ctx context.Context, email, password string) error {
	res, err := a.api.Login(ctx, Credentials{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return fmt.Errorf("login %s: %w", email, err)
	}
	if res.Token == "" {
		return fmt.Errorf("login %s: response carried no token", email)
	}
	if err := a.sessions.Start(res.Token, res.UserID); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// Logout ends the session.
func (a *Accounts) Logout() error {
	return a.sessions.Clear()
}

// RegisterMessage maps a failed registration to a message.
func RegisterMessage(err error) string {
	switch {
	case err == nil:
		return MsgRegistered
	case errors.Is(err, ErrMissingFields):
		return MsgRegisterMissing
	case errors.Is(err, ErrPasswordMatch):
		return MsgPasswordsMismatch
	}
	return UserMessage(err, MsgRegisterFallback)
}
