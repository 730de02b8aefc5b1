package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/formkite/formkite/model"
)

// SessionUser is the identity derived at login time and persisted alongside
// the token.
type SessionUser struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session persists the bearer token and derived identity. It never refreshes
// or expires anything itself; a stale token is only discovered when the
// backend rejects a later call.
type Session struct {
	c     *Client
	store Storage
}

func newSession(c *Client, store Storage) *Session {
	return &Session{c: c, store: store}
}

// Login posts the credentials and persists the returned token together with
// the identity derived from it. The raw response is handed back so callers
// can pick up whatever extra fields the backend includes.
func (s *Session) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	raw, err := s.c.Do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, errors.New("invalid login response")
	}
	token := pickString(body, "token", "Token")
	if token == "" {
		return nil, errors.New("invalid login response")
	}

	role := roleFromToken(token)
	if role == "" {
		role = pickString(body, "role", "Role")
	}
	if role == "" {
		role = model.RoleLearner
	}

	s.store.Set(slotToken, token)
	if buf, err := json.Marshal(SessionUser{Email: email, Role: role}); err == nil {
		s.store.Set(slotUser, string(buf))
	}
	return raw, nil
}

func (s *Session) Register(ctx context.Context, username, email, password string) (json.RawMessage, error) {
	return s.c.Do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
}

// Logout drops the persisted token and identity. Calling it with no session
// in place is a no-op.
func (s *Session) Logout() {
	s.store.Remove(slotToken)
	s.store.Remove(slotUser)
}

func (s *Session) Token() string {
	token, _ := s.store.Get(slotToken)
	return token
}

// User returns the persisted identity. Malformed stored state reads as
// absent.
func (s *Session) User() (SessionUser, bool) {
	raw, ok := s.store.Get(slotUser)
	if !ok {
		return SessionUser{}, false
	}
	user := SessionUser{}
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return SessionUser{}, false
	}
	return user, true
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

func (s *Session) AuthHeader() map[string]string {
	token := s.Token()
	if token == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// roleFromToken decodes the role claim without verifying the signature. The
// role is advisory, for picking a landing page; the backend re-checks it on
// every call.
func roleFromToken(token string) string {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return ""
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	role, _ := claims["role"].(string)
	return role
}
