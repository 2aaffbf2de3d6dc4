// Package session carries the authenticated caller through context.Context.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Role string

const (
	RoleBuyer Role = "buyer"
	RoleOwner Role = "owner"
)

func (r Role) Valid() bool { return r == RoleBuyer || r == RoleOwner }

var (
	ErrMissingToken = errors.New("session: missing token")
	ErrInvalidToken = errors.New("session: invalid or expired token")
)

// Session is the explicit per-request identity.
type Session struct {
	UserID string
	Role   Role
}

func (s Session) IsOwner() bool { return s.Role == RoleOwner }
func (s Session) IsBuyer() bool { return s.Role == RoleBuyer }

type ctxKey struct{}

func With(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func From(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok && s.UserID != ""
}

// Parser validates HMAC-signed session tokens.
type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(strings.TrimSpace(secret))}
}

// Parse accepts the user id in "sub" or "user_id" and requires a known role.
func (p *Parser) Parse(tokenStr string) (Session, error) {
	if tokenStr == "" {
		return Session{}, ErrMissingToken
	}
	if len(p.secret) == 0 {
		return Session{}, fmt.Errorf("%w: secret not configured", ErrInvalidToken)
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidToken
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		userID, _ = claims["user_id"].(string)
	}
	role, _ := claims["role"].(string)
	s := Session{UserID: userID, Role: Role(role)}
	if s.UserID == "" || !s.Role.Valid() {
		return Session{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return s, nil
}

// Issue signs a token for s. The storefront's auth service is the usual issuer;
// this exists for tooling and tests.
func (p *Parser) Issue(s Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  s.UserID,
		"role": string(s.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}
