package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/formkite/formkite/model"
)

// ResponsePage is a page of submission headers.
type ResponsePage struct {
	Total    int
	Page     int
	PageSize int
	Items    []ResponseHeader
}

// ResponseDetail is one full submission: header plus answers.
type ResponseDetail struct {
	ResponseHeader
	Answers []model.Answer
}

type Responses struct {
	c *Client
}

func NewResponses(c *Client) *Responses {
	return &Responses{c: c}
}

// List fetches the flat answer rows for a form, optionally scoped to one
// user. Admin only on the backend side.
func (r *Responses) List(ctx context.Context, formKey, userID string) ([]AnswerRow, error) {
	if formKey == "" {
		return nil, errors.New("missing formKey")
	}

	path := "/api/responses/" + formKey
	if userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}
	raw, err := r.c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	entries := []map[string]any{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(err, "parse response rows")
	}

	rows := make([]AnswerRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, NormalizeAnswerRow(entry))
	}
	return rows, nil
}

// ListByFormPaged pages over a form's submissions. The backend hands back
// flat rows, so grouping and slicing happen here, on the already-fetched
// set.
func (r *Responses) ListByFormPaged(ctx context.Context, formKey string, page, pageSize int) (ResponsePage, error) {
	rows, err := r.List(ctx, formKey, "")
	if err != nil {
		return ResponsePage{}, err
	}

	headers := []ResponseHeader{}
	seen := map[string]bool{}
	for _, row := range rows {
		if seen[row.ResponseID] {
			continue
		}
		seen[row.ResponseID] = true
		headers = append(headers, ResponseHeader{
			ResponseID:  row.ResponseID,
			FormKey:     formKey,
			UserID:      row.UserID,
			SubmittedAt: row.SubmittedAt,
		})
	}

	result := ResponsePage{Total: len(headers), Page: page, PageSize: pageSize, Items: []ResponseHeader{}}
	if pageSize < 1 {
		result.Items = headers
		return result, nil
	}
	start := (page - 1) * pageSize
	if start < 0 || start >= len(headers) {
		return result, nil
	}
	end := start + pageSize
	if end > len(headers) {
		end = len(headers)
	}
	result.Items = headers[start:end]
	return result, nil
}

// ListMy returns every submission of the current user.
func (r *Responses) ListMy(ctx context.Context) ([]ResponseHeader, error) {
	page, err := r.ListMyPaged(ctx, 1, 0, "")
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (r *Responses) ListMyPaged(ctx context.Context, page, pageSize int, q string) (ResponsePage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
	if q != "" {
		query.Set("q", q)
	}

	raw, err := r.c.Do(ctx, http.MethodGet, "/api/Response/my-submissions?"+query.Encode(), nil)
	if err != nil {
		return ResponsePage{}, err
	}

	total, pg, size, items, err := normalizePage(raw)
	if err != nil {
		return ResponsePage{}, errors.Wrap(err, "parse submission list")
	}

	result := ResponsePage{Total: total, Page: pg, PageSize: size, Items: []ResponseHeader{}}
	for _, item := range items {
		result.Items = append(result.Items, NormalizeResponseHeader(item))
	}
	return result, nil
}

func (r *Responses) Detail(ctx context.Context, responseID string) (ResponseDetail, error) {
	if responseID == "" {
		return ResponseDetail{}, errors.New("missing responseId")
	}

	raw, err := r.c.Do(ctx, http.MethodGet, "/api/Response/"+responseID, nil)
	if err != nil {
		return ResponseDetail{}, err
	}

	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ResponseDetail{}, errors.Wrap(err, "parse response detail")
	}

	detail := ResponseDetail{ResponseHeader: NormalizeResponseHeader(body)}
	rawAnswers, _ := pick(body, "answers", "Answers")
	list, _ := rawAnswers.([]any)
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		answer := model.Answer{
			FieldID: pickString(m, "fieldId", "FieldId", "FieldID"),
			Value:   pickString(m, "answerValue", "AnswerValue", "value", "Value"),
		}
		if rawOpts, ok := pick(m, "optionIds", "OptionIds", "OptionIDs"); ok {
			if opts, ok := rawOpts.([]any); ok {
				for _, opt := range opts {
					if s, ok := opt.(string); ok {
						answer.OptionIDs = append(answer.OptionIDs, s)
					}
				}
			}
		}
		detail.Answers = append(detail.Answers, answer)
	}
	return detail, nil
}

// Submit posts one answer set for a published form.
func (r *Responses) Submit(ctx context.Context, formKey string, answers []model.Answer) (string, error) {
	if formKey == "" {
		return "", errors.New("missing formKey")
	}

	raw, err := r.c.Do(ctx, http.MethodPost, "/api/responses/"+formKey, map[string]any{
		"answers": answers,
	})
	if err != nil {
		return "", err
	}

	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", nil
	}
	return pickString(body, "responseId", "ResponseId", "ResponseID", "id", "Id"), nil
}

// DownloadFile fetches a stored upload by its file id.
func (r *Responses) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	if fileID == "" {
		return nil, "", errors.New("missing fileId")
	}
	return r.c.Download(ctx, "/api/Response/file/"+fileID)
}
