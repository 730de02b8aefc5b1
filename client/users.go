package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/formkite/formkite/model"
)

// Deployments route the user endpoint differently; nobody has confirmed
// which convention the production gateway actually uses. Probe them all,
// first success wins.
var userPathCandidates = []string{
	"/api/users/%s",
	"/api/admin/users/%s",
	"/users/%s",
	"/admin/users/%s",
	"/api/user/%s",
}

type Users struct {
	c *Client
}

func NewUsers(c *Client) *Users {
	return &Users{c: c}
}

// Get resolves a user by id. Lookup is best effort: when every candidate
// endpoint fails the result is simply absent, not an error.
func (u *Users) Get(ctx context.Context, id string) (*model.User, bool) {
	if id == "" {
		return nil, false
	}

	raw, ok := probe(ctx, u.c, userPathCandidates, id)
	if !ok {
		return nil, false
	}

	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, false
	}
	user := NormalizeUser(body)
	if user.ID == "" {
		user.ID = id
	}
	return &user, true
}

// ByIDs resolves a batch of users; ids that cannot be resolved are left out.
func (u *Users) ByIDs(ctx context.Context, ids []string) map[string]model.User {
	users := map[string]model.User{}
	for _, id := range ids {
		if _, done := users[id]; done {
			continue
		}
		if user, ok := u.Get(ctx, id); ok {
			users[id] = *user
		}
	}
	return users
}

// probe tries each candidate path in order and returns the first successful
// response. All candidates failing reads as absence, not as an error.
func probe(ctx context.Context, c *Client, candidates []string, arg string) (json.RawMessage, bool) {
	for _, pattern := range candidates {
		raw, err := c.Do(ctx, http.MethodGet, fmt.Sprintf(pattern, url.PathEscape(arg)), nil)
		if err == nil {
			return raw, true
		}
	}
	return nil, false
}
