package userservice

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingCredential = errors.New("authorization credential missing or malformed")
	ErrInvalidCredential = errors.New("invalid authorization credential")
)

// ExtractBearerToken pulls the raw token out of an Authorization header
// value. The "bearer " prefix is matched case-insensitively.
func ExtractBearerToken(header string) (string, error) {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", ErrMissingCredential
	}

	token := strings.TrimSpace(header[7:])
	if token == "" {
		return "", ErrMissingCredential
	}

	return token, nil
}

// NewAccessToken signs a bearer credential whose subject is the user id.
func (s *UserService) NewAccessToken(userID int) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// DecodeAccessToken verifies the signature and expiry of a bearer credential
// and returns the claimed subject. A failed verification never yields a
// partial identity.
func (s *UserService) DecodeAccessToken(raw string) (int, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredential
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidCredential
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, ErrInvalidCredential
	}

	userID, err := strconv.Atoi(sub)
	if err != nil {
		return 0, ErrInvalidCredential
	}

	return userID, nil
}
