package client

import (
	"github.com/formkite/formkite/config"
)

// SDK is the fully wired client side: one HTTP client and session plus the
// per-area clients. Forms is the dashboard's provider and is the one piece
// that configuration can swap out.
type SDK struct {
	Client    *Client
	Session   *Session
	Forms     FormSource
	FormsAPI  *Forms
	Responses *Responses
	Users     *Users
}

// FromConfig wires the SDK against cfg.BaseURL. With MockForms set the
// dashboard runs on the in-memory provider and its form operations never
// touch the network; everything else still points at the configured backend.
func FromConfig(cfg config.Config, store Storage) *SDK {
	c := New(cfg.BaseURL, store)
	forms := NewForms(c)

	sdk := &SDK{
		Client:    c,
		Session:   c.Session,
		Forms:     forms,
		FormsAPI:  forms,
		Responses: NewResponses(c),
		Users:     NewUsers(c),
	}
	if cfg.MockForms {
		sdk.Forms = NewMockForms()
	}
	return sdk
}
