package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"github.com/formkite/formkite/model"
)

// Service issues and verifies the bearer tokens the API runs on. Role and
// email ride along as claims so clients can derive an identity without a
// round-trip.
type Service struct {
	ja  *jwtauth.JWTAuth
	ttl time.Duration
}

func New(secret string, ttl time.Duration) *Service {
	return &Service{
		ja:  jwtauth.New("HS256", []byte(secret), nil),
		ttl: ttl,
	}
}

func (s *Service) IssueToken(user model.User) (string, error) {
	claims := map[string]any{
		"sub":   user.ID,
		"email": user.Email,
		"role":  user.Role,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, s.ttl)

	_, token, err := s.ja.Encode(claims)
	return token, err
}

// Verifier extracts and validates the bearer token on incoming requests.
func (s *Service) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(s.ja)
}

// Authenticator rejects requests whose token is missing or invalid.
func (s *Service) Authenticator() func(http.Handler) http.Handler {
	return jwtauth.Authenticator(s.ja)
}

// Identity is the caller as established by the token claims.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func (id Identity) IsAdmin() bool {
	return id.Role == model.RoleAdmin
}

func FromContext(ctx context.Context) Identity {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Identity{}
	}

	id := Identity{}
	if sub, ok := claims["sub"].(string); ok {
		id.UserID = sub
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		id.Role = role
	}
	return id
}
