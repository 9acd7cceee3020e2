package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims reads the subject and expiry of a bearer token without
// verifying it; the API is the only party that can. Opaque tokens yield
// zero values.
func tokenClaims(token string) (userID string, expires time.Time) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", time.Time{}
	}

	for _, key := range []string{"userId", "id"} {
		if v, ok := claims[key]; ok && v != nil {
			userID = strings.TrimSpace(claimString(v))
			if userID != "" {
				break
			}
		}
	}
	if userID == "" {
		// Subjects that are e-mail addresses are not client ids.
		if sub, err := claims.GetSubject(); err == nil && !strings.Contains(sub, "@") {
			userID = sub
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expires = exp.Time
	}
	return userID, expires
}

func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}
