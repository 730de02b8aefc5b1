package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/formkite/formkite/model"
)

// The deployed backend mixes PascalCase and camelCase field names depending
// on which service wrote the payload. Every entity that crosses the wire is
// funneled through exactly one normalization function here, so the rest of
// the code sees a single canonical shape.

func pick(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func pickString(m map[string]any, keys ...string) string {
	v, ok := pick(m, keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// numeric ids come back as JSON numbers from one of the services
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func pickBool(m map[string]any, keys ...string) bool {
	v, ok := pick(m, keys...)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func pickInt(m map[string]any, keys ...string) int {
	v, ok := pick(m, keys...)
	if !ok {
		return 0
	}
	f, _ := v.(float64)
	return int(f)
}

func pickTime(m map[string]any, keys ...string) time.Time {
	raw := pickString(m, keys...)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormSummary is one row of a form list, canonical shape.
type FormSummary struct {
	Key           string    `json:"formKey"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Visible       bool      `json:"visible"`
	Status        string    `json:"status"`
	Access        string    `json:"access"`
	CreatedAt     time.Time `json:"createdAt"`
	ResponseCount int       `json:"responseCount"`
	Local         bool      `json:"local,omitempty"`
}

// FormPage is the canonical paged-list envelope.
type FormPage struct {
	Total    int
	Page     int
	PageSize int
	Items    []FormSummary
}

func NormalizeFormSummary(m map[string]any) FormSummary {
	return FormSummary{
		Key:           pickString(m, "formKey", "FormKey", "key", "Key", "id", "Id"),
		Title:         pickString(m, "title", "Title"),
		Description:   pickString(m, "description", "Description"),
		Visible:       pickBool(m, "visible", "Visible", "isVisible", "IsVisible"),
		Status:        pickString(m, "status", "Status"),
		Access:        pickString(m, "access", "Access"),
		CreatedAt:     pickTime(m, "createdAt", "CreatedAt", "createdOn", "CreatedOn"),
		ResponseCount: pickInt(m, "responseCount", "ResponseCount", "responses", "Responses"),
	}
}

func normalizePage(raw json.RawMessage) (total, page, pageSize int, items []map[string]any, err error) {
	body := map[string]any{}
	if err = json.Unmarshal(raw, &body); err != nil {
		return
	}
	total = pickInt(body, "total", "Total")
	page = pickInt(body, "page", "Page")
	pageSize = pickInt(body, "pageSize", "PageSize")

	rawItems, _ := pick(body, "items", "Items")
	list, _ := rawItems.([]any)
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return
}

// FormDetail is a fetched form with its layout.
type FormDetail struct {
	Key         string          `json:"formKey"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Sections    []model.Section `json:"sections"`
}

func NormalizeFormDetail(m map[string]any) FormDetail {
	detail := FormDetail{
		Key:         pickString(m, "formKey", "FormKey", "key", "Key", "id", "Id"),
		Title:       pickString(m, "title", "Title"),
		Description: pickString(m, "description", "Description"),
		Status:      pickString(m, "status", "Status"),
	}

	rawSections, _ := pick(m, "sections", "Sections")
	list, _ := rawSections.([]any)
	for _, entry := range list {
		sm, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		section := model.Section{Title: pickString(sm, "title", "Title")}
		rawFields, _ := pick(sm, "fields", "Fields")
		fields, _ := rawFields.([]any)
		for _, fe := range fields {
			if fm, ok := fe.(map[string]any); ok {
				section.Fields = append(section.Fields, NormalizeField(fm))
			}
		}
		detail.Sections = append(detail.Sections, section)
	}
	return detail
}

func NormalizeField(m map[string]any) model.Field {
	f := model.Field{
		ID:          pickString(m, "fieldId", "FieldId", "FieldID", "id", "Id"),
		Type:        pickString(m, "type", "Type"),
		Label:       pickString(m, "label", "Label", "title", "Title"),
		Description: pickString(m, "description", "Description"),
		Required:    pickBool(m, "required", "Required", "isRequired", "IsRequired"),
		DateFormat:  pickString(m, "dateFormat", "DateFormat"),
		FileNote:    pickString(m, "fileNote", "FileNote"),
	}
	if raw, ok := pick(m, "choices", "Choices", "options", "Options"); ok {
		f.Choices = NormalizeOptions(raw)
	}
	return f
}

// NormalizeOptions accepts every option-list shape observed in the wild:
// a plain array of strings, or an array of objects with id/text-ish keys.
func NormalizeOptions(raw any) []model.Option {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	options := []model.Option{}
	for i, entry := range list {
		switch v := entry.(type) {
		case string:
			options = append(options, model.Option{ID: strconv.Itoa(i + 1), Text: v})
		case map[string]any:
			opt := model.Option{
				ID:   pickString(v, "id", "Id", "ID", "optionId", "OptionId", "value", "Value"),
				Text: pickString(v, "text", "Text", "label", "Label", "name", "Name"),
			}
			if opt.ID == "" {
				opt.ID = strconv.Itoa(i + 1)
			}
			if opt.Text == "" {
				opt.Text = fmt.Sprintf("Option %d", i+1)
			}
			options = append(options, opt)
		}
	}
	if len(options) == 0 {
		return nil
	}
	return options
}

// ResponseHeader is one submission without its answers.
type ResponseHeader struct {
	ResponseID  string    `json:"responseId"`
	FormKey     string    `json:"formKey"`
	FormTitle   string    `json:"formTitle"`
	UserID      string    `json:"userId"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func NormalizeResponseHeader(m map[string]any) ResponseHeader {
	return ResponseHeader{
		ResponseID:  pickString(m, "responseId", "ResponseId", "ResponseID", "id", "Id"),
		FormKey:     pickString(m, "formKey", "FormKey"),
		FormTitle:   pickString(m, "formTitle", "FormTitle", "title", "Title"),
		UserID:      pickString(m, "userId", "UserId", "UserID"),
		SubmittedAt: pickTime(m, "submittedAt", "SubmittedAt", "createdAt", "CreatedAt"),
	}
}

// AnswerRow is one flat (submission, field) pair from the admin responses
// listing.
type AnswerRow struct {
	ResponseID  string    `json:"responseId"`
	UserID      string    `json:"userId"`
	SubmittedAt time.Time `json:"submittedAt"`
	FieldID     string    `json:"fieldId"`
	Value       any       `json:"value"`
}

func NormalizeAnswerRow(m map[string]any) AnswerRow {
	value, _ := pick(m, "value", "Value", "answerValue", "AnswerValue")
	return AnswerRow{
		ResponseID:  pickString(m, "responseId", "ResponseId", "ResponseID"),
		UserID:      pickString(m, "userId", "UserId", "UserID"),
		SubmittedAt: pickTime(m, "submittedAt", "SubmittedAt"),
		FieldID:     pickString(m, "fieldId", "FieldId", "FieldID"),
		Value:       value,
	}
}

func NormalizeUser(m map[string]any) model.User {
	return model.User{
		ID:    pickString(m, "userId", "UserId", "UserID", "id", "Id"),
		Email: pickString(m, "email", "Email"),
		Role:  pickString(m, "role", "Role"),
	}
}
