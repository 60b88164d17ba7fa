package jwthelper

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "regaloya"

var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims are carried by the session cookie. ID (jti) names the
// server-side session row, Subject the user.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserAgent string `json:"ua,omitempty"`
}

// UserID parses the subject back into a user id.
func (c SessionClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}

	return uint(id), nil
}

func GenerateToken(key []byte, sessionID string, userID uint, userAgent string, expiresAt time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserAgent: userAgent,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("token.SignedString -> %w", err)
	}

	return signed, nil
}

// ParseToken verifies the signature, issuer and expiry of a session token.
// The jti must be a UUID since it is looked up in the sessions table.
func ParseToken(key []byte, tokenString string) (SessionClaims, error) {
	var claims SessionClaims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if _, err = uuid.Parse(claims.ID); err != nil {
		return SessionClaims{}, fmt.Errorf("%w: session id: %v", ErrInvalidToken, err)
	}

	return claims, nil
}
