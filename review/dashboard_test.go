package review_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/formkite/formkite/client"
	"github.com/formkite/formkite/model"
	"github.com/formkite/formkite/review"
)

// countingForms counts List calls so the guard tests can prove no network
// activity happened.
type countingForms struct {
	client.FormSource
	lists int
}

func (c *countingForms) List(ctx context.Context, page, pageSize int, status string) (client.FormPage, error) {
	c.lists++
	return c.FormSource.List(ctx, page, pageSize, status)
}

func authedSession(t *testing.T, store client.Storage) *client.Session {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"fake-jwt"}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL, store)
	if _, err := c.Session.Login(context.Background(), "admin@example.com", "s3cretpass"); err != nil {
		t.Fatal(err)
	}
	return c.Session
}

func TestDashboardGuardSkipsNetwork(t *testing.T) {
	store := client.NewMemoryStorage()
	forms := &countingForms{FormSource: client.NewMockForms()}
	d := &review.Dashboard{
		Session: client.New("http://127.0.0.1:0", store).Session,
		Forms:   forms,
		Store:   store,
	}

	state, err := d.Load(context.Background(), 1, 10, "")
	if err != nil {
		t.Fatalf("load: %s", err)
	}
	if !state.SignInRequired {
		t.Error("guard did not trip")
	}
	if forms.lists != 0 {
		t.Errorf("unauthenticated dashboard made %d list calls", forms.lists)
	}
}

func TestDashboardMergesLocalForms(t *testing.T) {
	store := client.NewMemoryStorage()
	store.Set(client.SlotLocalForms, `[{"formKey":"local-1","title":"Offline Form","status":"Draft","local":true}]`)

	d := &review.Dashboard{
		Session: authedSession(t, store),
		Forms:   client.NewMockForms(),
		Store:   store,
	}

	state, err := d.Load(context.Background(), 1, 0, "")
	if err != nil {
		t.Fatalf("load: %s", err)
	}
	if state.SignInRequired {
		t.Fatal("guard tripped with a session present")
	}
	if state.Total != 7 {
		t.Errorf("total = %d, want 6 mock + 1 local", state.Total)
	}
	if state.Forms[0].Key != "local-1" || !state.Forms[0].Local {
		t.Errorf("first form = %+v, want the local one on top", state.Forms[0])
	}

	// local drafts stay off the published filter
	state, _ = d.Load(context.Background(), 1, 0, model.StatusPublished)
	for _, f := range state.Forms {
		if f.Local {
			t.Errorf("local draft leaked into published view: %+v", f)
		}
	}

	// and off later pages
	state, _ = d.Load(context.Background(), 2, 3, "")
	for _, f := range state.Forms {
		if f.Local {
			t.Errorf("local form leaked onto page 2: %+v", f)
		}
	}
}

type fakeGetter struct {
	forms map[string]client.FormDetail
	calls int
}

func (g *fakeGetter) Get(ctx context.Context, formKey string) (client.FormDetail, error) {
	g.calls++
	if detail, ok := g.forms[formKey]; ok {
		return detail, nil
	}
	return client.FormDetail{}, &client.APIError{Status: http.StatusNotFound, Message: "form not found"}
}

func TestResolveTitles(t *testing.T) {
	getter := &fakeGetter{forms: map[string]client.FormDetail{
		"k1": {Key: "k1", Title: "Course Feedback"},
	}}

	headers := []client.ResponseHeader{
		{ResponseID: "r1", FormKey: "k1"},
		{ResponseID: "r2", FormKey: "k1"},
		{ResponseID: "r3", FormKey: "gone"},
		{ResponseID: "r4", FormKey: "k2", FormTitle: "Already Known"},
	}

	resolved := review.ResolveTitles(context.Background(), getter, headers)
	if resolved[0].FormTitle != "Course Feedback" || resolved[1].FormTitle != "Course Feedback" {
		t.Errorf("titles = %q, %q", resolved[0].FormTitle, resolved[1].FormTitle)
	}
	if resolved[2].FormTitle != "" {
		t.Errorf("missing form resolved to %q", resolved[2].FormTitle)
	}
	if resolved[3].FormTitle != "Already Known" {
		t.Errorf("known title overwritten: %q", resolved[3].FormTitle)
	}
	// k1 fetched once despite two headers, gone fetched once
	if getter.calls != 2 {
		t.Errorf("getter calls = %d, want 2", getter.calls)
	}
}

func TestLoadSubmissions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/forms/k1":
			w.Write([]byte(`{"formKey":"k1","title":"Poll","sections":[{"title":"Main","fields":[
				{"fieldId":"f1","type":"radio","label":"Pick","choices":[{"id":"1","text":"Yes"}]}]}]}`))
		case "/api/responses/k1":
			w.Write([]byte(`[
				{"responseId":"r1","userId":"u1","fieldId":"f1","value":["1"]},
				{"responseId":"r2","userId":"u2","fieldId":"f1","value":["1"]}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.NewMemoryStorage())
	subs, err := review.LoadSubmissions(context.Background(), client.NewForms(c), client.NewResponses(c), "k1")
	if err != nil {
		t.Fatalf("load: %s", err)
	}
	if len(subs) != 2 {
		t.Fatalf("submissions = %d", len(subs))
	}
	if subs[0].Answers[0].Label != "Pick" || subs[0].Answers[0].Display != "Yes" {
		t.Errorf("answer = %+v", subs[0].Answers[0])
	}
}

func TestResolveEmails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users/u1" {
			w.Write([]byte(`{"userId":"u1","email":"ada@example.com","role":"Learner"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	users := client.NewUsers(client.New(srv.URL, client.NewMemoryStorage()))
	subs := []review.Submission{
		{ResponseID: "r1", UserID: "u1"},
		{ResponseID: "r2", UserID: "u404"},
	}
	review.ResolveEmails(context.Background(), users, subs)
	if subs[0].UserEmail != "ada@example.com" {
		t.Errorf("email = %q", subs[0].UserEmail)
	}
	if subs[1].UserEmail != "" {
		t.Errorf("unknown user got email %q", subs[1].UserEmail)
	}
}
