package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the whole server-side session: the cart pointer and both
// backend tokens live inside the signed cookie, not in a datastore.
type SessionClaims struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	AccessToken string `json:"act"`
	B2BToken    string `json:"b2b,omitempty"`
	CartID      string `json:"cart,omitempty"`
	jwt.RegisteredClaims
}

const SessionTTL = 12 * time.Hour

func SignSession(claims SessionClaims, secret []byte) (string, error) {
	now := time.Now()
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(SessionTTL))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func SessionClaimsFromToken(tokenStr string, secret []byte) (*SessionClaims, error) {
	var claims SessionClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, err
	}
	return &claims, nil
}
