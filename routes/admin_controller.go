package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid"

	"github.com/formkite/formkite/app"
	"github.com/formkite/formkite/auth"
	"github.com/formkite/formkite/httpx"
	"github.com/formkite/formkite/log"
	"github.com/formkite/formkite/model"
)

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		pageSize := queryInt(r, "pageSize", 20)
		if page < 1 {
			page = 1
		}
		status := r.URL.Query().Get("status")

		where, args := "", []any{}
		if status != "" {
			where = " WHERE f.status = ?"
			args = append(args, status)
		}

		var total int
		err := app.QueryRowContext(r.Context(), `SELECT count(*) FROM form f`+where, args...).Scan(&total)
		if err != nil {
			httpx.LogInternalError(w, r, "db.count_forms", err)
			return
		}

		args = append(args, pageSize, (page-1)*pageSize)
		rows, err := app.QueryContext(r.Context(), `
			SELECT f.key, f.title, f.description, f.visible, f.status, f.access, f.created_at, f.published_at,
				(SELECT count(*) FROM response x WHERE x.form_key = f.key) AS responses
			FROM form f`+where+`
			ORDER BY f.created_at DESC, f.key
			LIMIT ? OFFSET ?`,
			args...,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_forms", err)
			return
		}
		defer rows.Close()

		items := []any{}
		for rows.Next() {
			f := model.Form{}
			var responses int
			err = rows.Scan(&f.Key, &f.Title, &f.Description, &f.Visible, &f.Status, &f.Access,
				&f.CreatedAt, &f.PublishedAt, &responses)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_forms.scan", err)
				return
			}
			items = append(items, map[string]any{
				"formKey":       f.Key,
				"title":         f.Title,
				"description":   f.Description,
				"visible":       f.Visible,
				"status":        f.Status,
				"access":        f.Access,
				"createdAt":     f.CreatedAt,
				"publishedAt":   f.PublishedAt,
				"responseCount": responses,
			})
		}

		render.JSON(w, r, model.Page{Total: total, Page: page, PageSize: pageSize, Items: items})
	}
}

type formMetaRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Visible     *bool  `json:"visible"`
	Access      string `json:"access"`
}

func CreateFormMeta(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meta := formMetaRequest{}
		err := render.DecodeJSON(r.Body, &meta)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if meta.Title == "" {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "create_form.title", "title is required")
			return
		}
		if meta.Access == "" {
			meta.Access = model.AccessOpen
		}
		visible := true
		if meta.Visible != nil {
			visible = *meta.Visible
		}

		key, err := uuid.NewV4()
		if err != nil {
			httpx.LogInternalError(w, r, "create_form.new_key", err)
			return
		}

		_, err = app.ExecContext(r.Context(), `
			INSERT INTO form (key, title, description, visible, status, access, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			key.String(), meta.Title, meta.Description, visible, model.StatusDraft, meta.Access,
			auth.FromContext(r.Context()).UserID, time.Now().UTC(),
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_form", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"formKey": key.String(),
		})
	}
}

func UpdateFormMeta(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formKey := chi.URLParam(r, "key")

		meta := formMetaRequest{}
		err := render.DecodeJSON(r.Body, &meta)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		visible := true
		if meta.Visible != nil {
			visible = *meta.Visible
		}
		res, err := app.ExecContext(r.Context(), `
			UPDATE form
			SET title = ?, description = ?, visible = ?
			WHERE key = ?`,
			meta.Title, meta.Description, visible, formKey,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_form", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "update_form", formKey)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type layoutRequest struct {
	Sections []model.Section `json:"sections"`
}

func PutFormLayout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formKey := chi.URLParam(r, "key")

		layout := layoutRequest{}
		err := render.DecodeJSON(r.Body, &layout)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var exists bool
		err = tx.QueryRowContext(r.Context(), `SELECT 1 FROM form WHERE key = ?`, formKey).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "put_layout", formKey)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_form", err)
			return
		}

		// replace the whole field set, same as a full layout save in the editor
		_, err = tx.ExecContext(r.Context(), `DELETE FROM form_field WHERE form_key = ?`, formKey)
		if err != nil {
			httpx.LogInternalError(w, r, "db.put_layout.delete_fields", err)
			return
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO form_field
				(form_key, id, section, section_title, position, type, label, description, required, choices, date_format, file_note)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.put_layout.fields.prepare", err)
			return
		}
		defer stmt.Close()

		position := 0
		for si, section := range layout.Sections {
			for _, f := range section.Fields {
				if f.ID == "" {
					httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "put_layout.field_id",
						"field %q is missing a fieldId", f.Label)
					return
				}

				var choicesJson []byte
				if len(f.Choices) > 0 {
					choicesJson, err = json.Marshal(f.Choices)
					if err != nil {
						httpx.LogInternalError(w, r, "db.put_layout.fields.parse_choices", err)
						return
					}
				}
				_, err = stmt.ExecContext(r.Context(),
					formKey, f.ID, si, section.Title, position,
					f.Type, f.Label, f.Description, f.Required,
					string(choicesJson), f.DateFormat, f.FileNote,
				)
				if err != nil {
					httpx.LogInternalError(w, r, "db.put_layout.fields.insert", err)
					return
				}
				position++
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.put_layout.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func SetFormStatus(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formKey := chi.URLParam(r, "key")

		body := struct {
			Status string `json:"status"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if body.Status != model.StatusDraft && body.Status != model.StatusPublished {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "set_status.value",
				"status must be %q or %q", model.StatusDraft, model.StatusPublished)
			return
		}

		var publishedAt any
		if body.Status == model.StatusPublished {
			publishedAt = time.Now().UTC()
		}
		res, err := app.ExecContext(r.Context(), `
			UPDATE form SET status = ?, published_at = ? WHERE key = ?`,
			body.Status, publishedAt, formKey,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.set_status", err)
			return
		}
		n, _ := res.RowsAffected()
		if n < 1 {
			httpx.LogNotFound(w, r, "set_status", formKey)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func SetFormAccess(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formKey := chi.URLParam(r, "key")

		body := struct {
			Access string `json:"access"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if body.Access != model.AccessOpen && body.Access != model.AccessRestricted {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "set_access.value",
				"access must be %q or %q", model.AccessOpen, model.AccessRestricted)
			return
		}

		res, err := app.ExecContext(r.Context(), `UPDATE form SET access = ? WHERE key = ?`, body.Access, formKey)
		if err != nil {
			httpx.LogInternalError(w, r, "db.set_access", err)
			return
		}
		n, _ := res.RowsAffected()
		if n < 1 {
			httpx.LogNotFound(w, r, "set_access", formKey)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func CloneForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formKey := chi.URLParam(r, "key")

		newKey, err := uuid.NewV4()
		if err != nil {
			httpx.LogInternalError(w, r, "clone_form.new_key", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		// copies come back as fresh drafts, at the top of the list
		res, err := tx.ExecContext(r.Context(), `
			INSERT INTO form (key, title, description, visible, status, access, created_by, created_at)
			SELECT ?, title || ' (Copy)', description, visible, ?, access, ?, ?
			FROM form
			WHERE key = ?`,
			newKey.String(), model.StatusDraft, auth.FromContext(r.Context()).UserID, time.Now().UTC(), formKey,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.clone_form", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.clone_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "clone_form", formKey)
			return
		}

		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO form_field
				(form_key, id, section, section_title, position, type, label, description, required, choices, date_format, file_note)
			SELECT ?, id, section, section_title, position, type, label, description, required, choices, date_format, file_note
			FROM form_field
			WHERE form_key = ?`,
			newKey.String(), formKey,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.clone_form.fields", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.clone_form.commit", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"formKey": newKey.String(),
		})
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formKey := chi.URLParam(r, "key")

		res, err := app.ExecContext(r.Context(), `DELETE FROM form WHERE key = ?`, formKey)
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_form", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "delete_form", formKey)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ListFormResponses returns the flat answer rows for a form, one row per
// (submission, field) pair. Callers group them per submission themselves.
func ListFormResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formKey := chi.URLParam(r, "formKey")
		userId := r.URL.Query().Get("userId")

		where := `WHERE s.form_key = ?`
		args := []any{formKey}
		if userId != "" {
			where += ` AND s.user_id = ?`
			args = append(args, userId)
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT s.id, s.user_id, s.submitted_at, v.field_id, v.value
			FROM response s
			LEFT OUTER JOIN response_field v ON (s.id = v.response_id)
			`+where+`
			ORDER BY s.submitted_at DESC, s.id`,
			args...,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_responses", err)
			return
		}
		defer rows.Close()

		items := []map[string]any{}
		for rows.Next() {
			var responseId, userId string
			var submittedAt time.Time
			var fieldId, value sql.NullString

			err = rows.Scan(&responseId, &userId, &submittedAt, &fieldId, &value)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_responses.scan", err)
				return
			}
			if !fieldId.Valid {
				// submission without a single answer row
				continue
			}

			var decoded any
			if value.Valid && value.String != "" {
				if err := json.Unmarshal([]byte(value.String), &decoded); err != nil {
					decoded = value.String
				}
			}
			items = append(items, map[string]any{
				"responseId":  responseId,
				"userId":      userId,
				"submittedAt": submittedAt,
				"fieldId":     fieldId.String,
				"value":       decoded,
			})
		}

		render.JSON(w, r, items)
	}
}
