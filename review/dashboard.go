package review

import (
	"context"

	"github.com/formkite/formkite/builder"
	"github.com/formkite/formkite/client"
)

// FormGetter fetches one form with its layout.
type FormGetter interface {
	Get(ctx context.Context, formKey string) (client.FormDetail, error)
}

// RowLister fetches the flat answer rows of a form.
type RowLister interface {
	List(ctx context.Context, formKey, userID string) ([]client.AnswerRow, error)
}

// Dashboard loads the admin form list, merging in locally-saved forms.
type Dashboard struct {
	Session *client.Session
	Forms   client.FormSource
	Store   client.Storage
}

// DashState is what the dashboard page renders from.
type DashState struct {
	SignInRequired bool
	Forms          []client.FormSummary
	Total          int
	Page           int
	PageSize       int
}

// Load fetches one page of forms. Without a session it short-circuits to the
// sign-in prompt before touching the network.
func (d *Dashboard) Load(ctx context.Context, page, pageSize int, status string) (DashState, error) {
	if !d.Session.Authenticated() {
		return DashState{SignInRequired: true}, nil
	}

	result, err := d.Forms.List(ctx, page, pageSize, status)
	if err != nil {
		return DashState{}, err
	}

	state := DashState{
		Forms:    result.Items,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	}

	// locally-saved forms go on top of the first page
	if page <= 1 && d.Store != nil {
		local := builder.LocalForms(d.Store)
		for _, f := range local {
			if status == "" || f.Status == status {
				state.Forms = append([]client.FormSummary{f}, state.Forms...)
				state.Total++
			}
		}
	}
	return state, nil
}

// LoadSubmissions fetches, groups and annotates every submission of a form.
// Labels and option texts come from the form's current layout.
func LoadSubmissions(ctx context.Context, forms FormGetter, rows RowLister, formKey string) ([]Submission, error) {
	detail, err := forms.Get(ctx, formKey)
	if err != nil {
		return nil, err
	}
	flat, err := rows.List(ctx, formKey, "")
	if err != nil {
		return nil, err
	}

	submissions := Group(flat)
	NewLabeler(detail).Annotate(submissions)
	return submissions, nil
}

// ResolveEmails fills submitter emails from the users endpoint. Lookups are
// best effort; submissions whose user cannot be resolved keep the raw id.
func ResolveEmails(ctx context.Context, users *client.Users, submissions []Submission) {
	ids := []string{}
	for _, s := range submissions {
		if s.UserID != "" {
			ids = append(ids, s.UserID)
		}
	}
	found := users.ByIDs(ctx, ids)
	for i := range submissions {
		if u, ok := found[submissions[i].UserID]; ok {
			submissions[i].UserEmail = u.Email
		}
	}
}

// ResolveTitles fills in missing form titles on submission headers by
// fetching each referenced form once. Forms that cannot be fetched leave
// the title blank.
func ResolveTitles(ctx context.Context, forms FormGetter, headers []client.ResponseHeader) []client.ResponseHeader {
	titles := map[string]string{}
	for i, h := range headers {
		if h.FormTitle != "" || h.FormKey == "" {
			continue
		}
		title, cached := titles[h.FormKey]
		if !cached {
			if detail, err := forms.Get(ctx, h.FormKey); err == nil {
				title = detail.Title
			}
			titles[h.FormKey] = title
		}
		headers[i].FormTitle = title
	}
	return headers
}
