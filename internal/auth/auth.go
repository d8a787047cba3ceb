// Package auth mints and verifies the HS256 bearer tokens the API accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned for a missing, malformed or expired token.
var ErrUnauthenticated = errors.New("unauthenticated")

type ctxkey string

const userkey ctxkey = "user"

// AuthedUser is the caller a request was authenticated as.
type AuthedUser struct {
	ID string
}

func StoreUserInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userkey, &AuthedUser{ID: id})
}

func UserFromContext(ctx context.Context) *AuthedUser {
	au, ok := ctx.Value(userkey).(*AuthedUser)
	if ok {
		return au
	}
	return nil
}

// IssueToken signs a token for userID that expires after ttl.
func IssueToken(secret []byte, issuer, userID string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("issue token: empty secret")
	}
	if userID == "" {
		return "", errors.New("issue token: empty user id")
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature, expiry and issuer of a token and
// returns its subject. An empty issuer skips the issuer check.
func ParseToken(secret []byte, issuer, raw string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		// Ensure the signing method is HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: could not parse token claims", ErrUnauthenticated)
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: could not parse sub claim", ErrUnauthenticated)
	}
	return sub, nil
}
