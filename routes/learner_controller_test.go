package routes_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

func submitAnswers(t *testing.T, srv *httptest.Server, token, formKey string) string {
	t.Helper()

	status, body := call(t, srv, http.MethodPost, "/api/responses/"+formKey, token, map[string]any{
		"answers": []map[string]any{
			{"fieldId": "f-name", "answerValue": "Ada"},
			{"fieldId": "f-rating", "optionIds": []string{"1"}},
		},
	})
	if status != http.StatusCreated {
		t.Fatalf("submit: status %d (%v)", status, body)
	}
	responseID, _ := body["responseId"].(string)
	if responseID == "" {
		t.Fatalf("no responseId in %v", body)
	}
	return responseID
}

func TestSubmitAndReadBack(t *testing.T) {
	srv := newTestServer(t)
	admin := adminToken(t, srv)
	formKey := createPublishedForm(t, srv, admin)

	userID, learner := registerLearner(t, srv, "ada@example.com")
	responseID := submitAnswers(t, srv, learner, formKey)

	// the owner reads the submission back with decoded answers
	status, body := call(t, srv, http.MethodGet, "/api/Response/"+responseID, learner, nil)
	if status != http.StatusOK {
		t.Fatalf("get response: status %d", status)
	}
	if body["formTitle"] != "Course Feedback" || body["userId"] != userID {
		t.Errorf("response = %v", body)
	}
	answers, _ := body["answers"].([]any)
	if len(answers) != 2 {
		t.Fatalf("answers = %v", body)
	}
	byField := map[string]map[string]any{}
	for _, entry := range answers {
		a := entry.(map[string]any)
		byField[a["fieldId"].(string)] = a
	}
	if byField["f-name"]["answerValue"] != "Ada" {
		t.Errorf("text answer = %v", byField["f-name"])
	}
	opts, _ := byField["f-rating"]["optionIds"].([]any)
	if len(opts) != 1 || opts[0] != "1" {
		t.Errorf("choice answer = %v", byField["f-rating"])
	}

	// other learners are locked out, admins are not
	_, other := registerLearner(t, srv, "eve@example.com")
	status, _ = call(t, srv, http.MethodGet, "/api/Response/"+responseID, other, nil)
	if status != http.StatusForbidden {
		t.Errorf("foreign read: status %d, want 403", status)
	}
	status, _ = call(t, srv, http.MethodGet, "/api/Response/"+responseID, admin, nil)
	if status != http.StatusOK {
		t.Errorf("admin read: status %d", status)
	}
}

func TestSubmitValidation(t *testing.T) {
	srv := newTestServer(t)
	admin := adminToken(t, srv)
	formKey := createPublishedForm(t, srv, admin)
	_, learner := registerLearner(t, srv, "ada@example.com")

	status, body := call(t, srv, http.MethodPost, "/api/responses/"+formKey, learner, map[string]any{
		"answers": []map[string]any{
			{"fieldId": "ghost", "answerValue": "boo"},
		},
	})
	if status != http.StatusBadRequest {
		t.Errorf("unknown field: status %d (%v)", status, body)
	}

	// a form pulled back to draft stops accepting submissions
	status, _ = call(t, srv, http.MethodPatch, "/api/Forms/"+formKey+"/status", admin, map[string]string{"status": "Draft"})
	if status != http.StatusNoContent {
		t.Fatal("unpublish failed")
	}
	status, _ = call(t, srv, http.MethodPost, "/api/responses/"+formKey, learner, map[string]any{
		"answers": []map[string]any{},
	})
	if status != http.StatusConflict {
		t.Errorf("draft submit: status %d, want 409", status)
	}

	status, _ = call(t, srv, http.MethodPost, "/api/responses/missing", learner, map[string]any{"answers": []any{}})
	if status != http.StatusNotFound {
		t.Errorf("missing form: status %d", status)
	}
}

func TestDraftFormsHiddenFromLearners(t *testing.T) {
	srv := newTestServer(t)
	admin := adminToken(t, srv)
	_, learner := registerLearner(t, srv, "ada@example.com")

	status, body := call(t, srv, http.MethodPost, "/api/forms/meta", admin, map[string]string{"title": "Draft Only"})
	if status != http.StatusCreated {
		t.Fatal("create meta failed")
	}
	formKey, _ := body["formKey"].(string)

	status, _ = call(t, srv, http.MethodGet, "/api/forms/"+formKey, learner, nil)
	if status != http.StatusNotFound {
		t.Errorf("learner on draft: status %d, want 404", status)
	}
	status, _ = call(t, srv, http.MethodGet, "/api/forms/"+formKey, admin, nil)
	if status != http.StatusOK {
		t.Errorf("admin on draft: status %d", status)
	}
}

func TestInvisibleFormsHiddenFromLearners(t *testing.T) {
	srv := newTestServer(t)
	admin := adminToken(t, srv)
	formKey := createPublishedForm(t, srv, admin)
	_, learner := registerLearner(t, srv, "ada@example.com")

	status, _ := call(t, srv, http.MethodPut, "/api/forms/"+formKey+"/meta", admin, map[string]any{
		"title":   "Course Feedback",
		"visible": false,
	})
	if status != http.StatusNoContent {
		t.Fatal("hide failed")
	}

	status, _ = call(t, srv, http.MethodGet, "/api/forms/"+formKey, learner, nil)
	if status != http.StatusNotFound {
		t.Errorf("learner on hidden form: status %d, want 404", status)
	}

	// the write path is gated the same way as the read path
	status, _ = call(t, srv, http.MethodPost, "/api/responses/"+formKey, learner, map[string]any{
		"answers": []map[string]any{{"fieldId": "f-name", "answerValue": "Ada"}},
	})
	if status != http.StatusNotFound {
		t.Errorf("learner submit to hidden form: status %d, want 404", status)
	}

	// admins can still exercise the hidden form
	status, _ = call(t, srv, http.MethodPost, "/api/responses/"+formKey, admin, map[string]any{
		"answers": []map[string]any{{"fieldId": "f-name", "answerValue": "smoke"}},
	})
	if status != http.StatusCreated {
		t.Errorf("admin submit to hidden form: status %d, want 201", status)
	}
}

func TestListMySubmissions(t *testing.T) {
	srv := newTestServer(t)
	admin := adminToken(t, srv)
	formKey := createPublishedForm(t, srv, admin)

	_, ada := registerLearner(t, srv, "ada@example.com")
	_, eve := registerLearner(t, srv, "eve@example.com")
	submitAnswers(t, srv, ada, formKey)
	submitAnswers(t, srv, ada, formKey)
	submitAnswers(t, srv, eve, formKey)

	status, body := call(t, srv, http.MethodGet, "/api/Response/my-submissions", ada, nil)
	if status != http.StatusOK {
		t.Fatalf("my submissions: status %d", status)
	}
	if body["total"] != float64(2) {
		t.Errorf("total = %v, want only ada's submissions", body["total"])
	}
	items, _ := body["items"].([]any)
	first := items[0].(map[string]any)
	if first["formTitle"] != "Course Feedback" {
		t.Errorf("item = %v", first)
	}

	// the title filter
	_, body = call(t, srv, http.MethodGet, "/api/Response/my-submissions?q=Feedback", ada, nil)
	if body["total"] != float64(2) {
		t.Errorf("filtered total = %v", body["total"])
	}
	_, body = call(t, srv, http.MethodGet, "/api/Response/my-submissions?q=Nope", ada, nil)
	if body["total"] != float64(0) {
		t.Errorf("miss total = %v", body["total"])
	}
}

func TestListFormResponsesFlatRows(t *testing.T) {
	srv := newTestServer(t)
	admin := adminToken(t, srv)
	formKey := createPublishedForm(t, srv, admin)

	adaID, ada := registerLearner(t, srv, "ada@example.com")
	_, eve := registerLearner(t, srv, "eve@example.com")
	submitAnswers(t, srv, ada, formKey)
	submitAnswers(t, srv, eve, formKey)

	status, rows := callList(t, srv, http.MethodGet, "/api/responses/"+formKey, admin, nil)
	if status != http.StatusOK {
		t.Fatalf("list responses: status %d", status)
	}
	// two submissions, two answered fields each
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	row := rows[0].(map[string]any)
	for _, key := range []string{"responseId", "userId", "submittedAt", "fieldId", "value"} {
		if _, ok := row[key]; !ok {
			t.Errorf("row missing %s: %v", key, row)
		}
	}

	// option answers decode back to arrays, text answers to strings
	sawArray, sawString := false, false
	for _, entry := range rows {
		switch entry.(map[string]any)["value"].(type) {
		case []any:
			sawArray = true
		case string:
			sawString = true
		}
	}
	if !sawArray || !sawString {
		t.Errorf("value shapes: array=%v string=%v", sawArray, sawString)
	}

	// scoped to one user
	status, rows = callList(t, srv, http.MethodGet, "/api/responses/"+formKey+"?userId="+adaID, admin, nil)
	if status != http.StatusOK {
		t.Fatal("filtered list failed")
	}
	if len(rows) != 2 {
		t.Errorf("filtered rows = %d, want 2", len(rows))
	}
	for _, entry := range rows {
		if entry.(map[string]any)["userId"] != adaID {
			t.Errorf("foreign row leaked: %v", entry)
		}
	}

	// learners cannot read the admin listing
	status, _ = callList(t, srv, http.MethodGet, "/api/responses/"+formKey, ada, nil)
	if status != http.StatusForbidden {
		t.Errorf("learner on responses: status %d, want 403", status)
	}
}

func TestUploadAndDownloadFile(t *testing.T) {
	srv := newTestServer(t)
	_, learner := registerLearner(t, srv, "ada@example.com")

	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)
	part, err := form.CreateFormFile("file", "cv.txt")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("hello, this is my cv"))
	form.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/Response/file", buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+learner)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: status %d", resp.StatusCode)
	}
	body := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatal(err)
	}
	fileID, _ := body["fileId"].(string)
	if fileID == "" || body["name"] != "cv.txt" {
		t.Fatalf("upload body = %v", body)
	}

	status, raw := callRaw(t, srv, http.MethodGet, "/api/Response/file/"+fileID, learner, nil)
	if status != http.StatusOK {
		t.Fatalf("download: status %d", status)
	}
	if string(raw) != "hello, this is my cv" {
		t.Errorf("content = %q", raw)
	}

	status, _ = callRaw(t, srv, http.MethodGet, "/api/Response/file/missing", learner, nil)
	if status != http.StatusNotFound {
		t.Errorf("missing file: status %d", status)
	}
}
