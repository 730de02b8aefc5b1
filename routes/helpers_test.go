package routes_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/formkite/formkite/app"
	"github.com/formkite/formkite/auth"
	"github.com/formkite/formkite/config"
	"github.com/formkite/formkite/database"
	"github.com/formkite/formkite/routes"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Config{
		DBUrl:       filepath.Join(t.TempDir(), "formkite.sqlite"),
		TokenSecret: "test-secret",
		TokenTTL:    3600,
		AdminEmail:  "admin@formkite.local",
		AdminPass:   "adminpass1",
	}

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open database: %s", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.EnsureAdmin(db, cfg); err != nil {
		t.Fatalf("ensure admin: %s", err)
	}

	a := app.App{
		DB:      db,
		Service: auth.New(cfg.TokenSecret, cfg.TTL()),
		Config:  cfg,
	}
	srv := httptest.NewServer(routes.Wire(a))
	t.Cleanup(srv.Close)
	return srv
}

// call sends a JSON request and decodes the JSON response, if there is one.
func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	status, raw := callRaw(t, srv, method, path, token, body)
	decoded := map[string]any{}
	if len(raw) > 0 {
		json.Unmarshal(raw, &decoded)
	}
	return status, decoded
}

// callList is call for endpoints that answer with a JSON array.
func callList(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, []any) {
	t.Helper()

	status, raw := callRaw(t, srv, method, path, token, body)
	decoded := []any{}
	if len(raw) > 0 {
		json.Unmarshal(raw, &decoded)
	}
	return status, decoded
}

func callRaw(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, raw
}

func adminToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return login(t, srv, "admin@formkite.local", "adminpass1")
}

func login(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()

	status, body := call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d (%v)", email, status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login %s: no token in %v", email, body)
	}
	return token
}

// registerLearner creates a learner account and returns its id and token.
func registerLearner(t *testing.T, srv *httptest.Server, email string) (string, string) {
	t.Helper()

	status, body := call(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "learner",
		"email":    email,
		"password": "learnerpass1",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d (%v)", email, status, body)
	}
	userID, _ := body["userId"].(string)
	return userID, login(t, srv, email, "learnerpass1")
}

// createPublishedForm drives the full three-step create an editor performs.
func createPublishedForm(t *testing.T, srv *httptest.Server, token string) string {
	t.Helper()

	status, body := call(t, srv, http.MethodPost, "/api/forms/meta", token, map[string]any{
		"title": "Course Feedback",
	})
	if status != http.StatusCreated {
		t.Fatalf("create meta: status %d (%v)", status, body)
	}
	formKey, _ := body["formKey"].(string)

	status, body = call(t, srv, http.MethodPut, "/api/forms/"+formKey+"/layout", token, map[string]any{
		"sections": []map[string]any{{
			"title": "Course Feedback",
			"fields": []map[string]any{
				{"fieldId": "f-name", "type": "short_text", "label": "Your name", "required": true},
				{"fieldId": "f-rating", "type": "radio", "label": "Rating", "choices": []map[string]string{
					{"id": "1", "text": "Good"},
					{"id": "2", "text": "Bad"},
				}},
			},
		}},
	})
	if status != http.StatusNoContent {
		t.Fatalf("put layout: status %d (%v)", status, body)
	}

	status, body = call(t, srv, http.MethodPatch, "/api/forms/"+formKey+"/status", token, map[string]string{
		"status": "Published",
	})
	if status != http.StatusNoContent {
		t.Fatalf("publish: status %d (%v)", status, body)
	}
	return formKey
}
