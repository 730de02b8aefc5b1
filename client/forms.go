package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// FormSource is what the dashboard needs from a forms provider. Both the
// real API client and the in-memory mock satisfy it.
type FormSource interface {
	List(ctx context.Context, page, pageSize int, status string) (FormPage, error)
	ToggleStatus(ctx context.Context, formKey, status string) error
	SetAccess(ctx context.Context, formKey, access string) error
	Clone(ctx context.Context, formKey string) (string, error)
	Remove(ctx context.Context, formKey string) error
}

// LayoutField is a field as the editor holds it: options are bare strings
// until the save call renames them into id/text choices.
type LayoutField struct {
	ID          string   `json:"fieldId"`
	Type        string   `json:"type"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
	DateFormat  string   `json:"dateFormat,omitempty"`
	FileNote    string   `json:"fileNote,omitempty"`
}

// FormPayload is everything a create or update persists. Saves always
// produce a single section.
type FormPayload struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Visible     bool          `json:"visible"`
	Status      string        `json:"status"`
	Access      string        `json:"access"`
	CreatedAt   time.Time     `json:"createdAt"`
	Fields      []LayoutField `json:"fields"`
}

type Forms struct {
	c *Client
}

func NewForms(c *Client) *Forms {
	return &Forms{c: c}
}

func (f *Forms) List(ctx context.Context, page, pageSize int, status string) (FormPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))
	if status != "" {
		query.Set("status", status)
	}

	raw, err := f.c.Do(ctx, http.MethodGet, "/api/Admin/forms?"+query.Encode(), nil)
	if err != nil {
		return FormPage{}, err
	}

	total, pg, size, items, err := normalizePage(raw)
	if err != nil {
		return FormPage{}, errors.Wrap(err, "parse form list")
	}

	result := FormPage{Total: total, Page: pg, PageSize: size, Items: []FormSummary{}}
	for _, item := range items {
		result.Items = append(result.Items, NormalizeFormSummary(item))
	}
	return result, nil
}

func (f *Forms) ToggleStatus(ctx context.Context, formKey, status string) error {
	if formKey == "" {
		return errors.New("missing formKey")
	}
	_, err := f.c.Do(ctx, http.MethodPatch, "/api/Forms/"+formKey+"/status", map[string]string{
		"status": status,
	})
	return err
}

func (f *Forms) SetAccess(ctx context.Context, formKey, access string) error {
	if formKey == "" {
		return errors.New("missing formKey")
	}
	_, err := f.c.Do(ctx, http.MethodPatch, "/api/Forms/"+formKey+"/access", map[string]string{
		"access": access,
	})
	return err
}

func (f *Forms) Clone(ctx context.Context, formKey string) (string, error) {
	if formKey == "" {
		return "", errors.New("missing formKey")
	}
	raw, err := f.c.Do(ctx, http.MethodPost, "/api/Forms/"+formKey+"/clone", nil)
	if err != nil {
		return "", err
	}

	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", errors.Wrap(err, "parse clone response")
	}
	return pickString(body, "formKey", "FormKey", "key", "Key", "id", "Id"), nil
}

func (f *Forms) Remove(ctx context.Context, formKey string) error {
	if formKey == "" {
		return errors.New("missing formKey")
	}
	_, err := f.c.Do(ctx, http.MethodDelete, "/api/Forms/"+formKey, nil)
	return err
}

func (f *Forms) Get(ctx context.Context, formKey string) (FormDetail, error) {
	if formKey == "" {
		return FormDetail{}, errors.New("missing formKey")
	}
	raw, err := f.c.Do(ctx, http.MethodGet, "/api/forms/"+formKey, nil)
	if err != nil {
		return FormDetail{}, err
	}
	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return FormDetail{}, errors.Wrap(err, "parse form")
	}
	return NormalizeFormDetail(body), nil
}

// Create persists a new form as three dependent calls: metadata first, which
// assigns the key, then the layout, then the status. There is no rollback;
// if a later step fails the earlier ones stay persisted.
func (f *Forms) Create(ctx context.Context, payload FormPayload) (string, error) {
	raw, err := f.c.Do(ctx, http.MethodPost, "/api/forms/meta", metaBody(payload))
	if err != nil {
		return "", err
	}

	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", errors.Wrap(err, "parse create response")
	}
	formKey := pickString(body, "formKey", "FormKey", "key", "Key", "id", "Id")
	if formKey == "" {
		return "", errors.New("create form: response is missing formKey")
	}

	if err := f.putLayout(ctx, formKey, payload); err != nil {
		return "", err
	}
	if err := f.patchStatus(ctx, formKey, payload.Status); err != nil {
		return "", err
	}
	return formKey, nil
}

// Update runs the same three steps against an existing key.
func (f *Forms) Update(ctx context.Context, formKey string, payload FormPayload) error {
	if formKey == "" {
		return errors.New("missing formKey")
	}
	if _, err := f.c.Do(ctx, http.MethodPut, "/api/forms/"+formKey+"/meta", metaBody(payload)); err != nil {
		return err
	}
	if err := f.putLayout(ctx, formKey, payload); err != nil {
		return err
	}
	return f.patchStatus(ctx, formKey, payload.Status)
}

func (f *Forms) putLayout(ctx context.Context, formKey string, payload FormPayload) error {
	fields := make([]map[string]any, 0, len(payload.Fields))
	for _, field := range payload.Fields {
		entry := map[string]any{
			"fieldId":     field.ID,
			"type":        field.Type,
			"label":       field.Label,
			"description": field.Description,
			"required":    field.Required,
		}
		if len(field.Options) > 0 {
			// backend schema calls them choices and wants explicit ids
			choices := make([]map[string]string, len(field.Options))
			for i, text := range field.Options {
				choices[i] = map[string]string{
					"id":   strconv.Itoa(i + 1),
					"text": text,
				}
			}
			entry["choices"] = choices
		}
		if field.DateFormat != "" {
			entry["dateFormat"] = field.DateFormat
		}
		if field.FileNote != "" {
			entry["fileNote"] = field.FileNote
		}
		fields = append(fields, entry)
	}

	layout := map[string]any{
		"sections": []map[string]any{{
			"title":  payload.Title,
			"fields": fields,
		}},
	}
	_, err := f.c.Do(ctx, http.MethodPut, fmt.Sprintf("/api/forms/%s/layout", formKey), layout)
	return err
}

func (f *Forms) patchStatus(ctx context.Context, formKey, status string) error {
	_, err := f.c.Do(ctx, http.MethodPatch, fmt.Sprintf("/api/forms/%s/status", formKey), map[string]string{
		"status": status,
	})
	return err
}

func metaBody(payload FormPayload) map[string]any {
	return map[string]any{
		"title":       payload.Title,
		"description": payload.Description,
		"visible":     payload.Visible,
		"access":      payload.Access,
		"createdAt":   payload.CreatedAt,
	}
}
