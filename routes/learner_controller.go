package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
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

func loadForm(r *http.Request, app app.App, formKey string) (model.Form, error) {
	form := model.Form{}
	err := app.QueryRowContext(r.Context(), `
		SELECT key, title, description, visible, status, access, created_at, published_at
		FROM form
		WHERE key = ?`,
		formKey,
	).Scan(&form.Key, &form.Title, &form.Description, &form.Visible, &form.Status,
		&form.Access, &form.CreatedAt, &form.PublishedAt)
	if err != nil {
		return form, err
	}

	rows, err := app.QueryContext(r.Context(), `
		SELECT id, section, section_title, type, label, description, required, choices, date_format, file_note
		FROM form_field
		WHERE form_key = ?
		ORDER BY position`,
		formKey,
	)
	if err != nil {
		return form, err
	}
	defer rows.Close()

	lastSection := -1
	for rows.Next() {
		f := model.Field{}
		var section int
		var sectionTitle string
		var choices, dateFormat, fileNote sql.NullString
		err = rows.Scan(&f.ID, &section, &sectionTitle, &f.Type, &f.Label, &f.Description,
			&f.Required, &choices, &dateFormat, &fileNote)
		if err != nil {
			return form, err
		}

		if choices.Valid && choices.String != "" {
			if err := json.Unmarshal([]byte(choices.String), &f.Choices); err != nil {
				return form, err
			}
		}
		f.DateFormat = dateFormat.String
		f.FileNote = fileNote.String

		if section != lastSection {
			form.Sections = append(form.Sections, model.Section{Title: sectionTitle})
			lastSection = section
		}
		last := len(form.Sections) - 1
		form.Sections[last].Fields = append(form.Sections[last].Fields, f)
	}
	return form, nil
}

func GetFormByKey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formKey := chi.URLParam(r, "key")

		form, err := loadForm(r, app, formKey)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_form", formKey)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_form", err)
			return
		}

		// drafts stay invisible to learners
		if !auth.FromContext(r.Context()).IsAdmin() &&
			(form.Status != model.StatusPublished || !form.Visible) {
			httpx.LogNotFound(w, r, "get_form.unpublished", formKey)
			return
		}

		render.JSON(w, r, form)
	}
}

type submitRequest struct {
	Answers []model.Answer `json:"answers"`
}

func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formKey := chi.URLParam(r, "formKey")

		req := submitRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := loadForm(r, app, formKey)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_form", formKey)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_form", err)
			return
		}
		if form.Status != model.StatusPublished {
			httpx.LogStatusMsg(w, r, http.StatusConflict, log.DebugLevel, "submit.unpublished",
				"form is not accepting submissions")
			return
		}
		// a form hidden from learners cannot be submitted to either
		if !form.Visible && !auth.FromContext(r.Context()).IsAdmin() {
			httpx.LogNotFound(w, r, "submit.hidden", formKey)
			return
		}

		// every answer must address a field of the current layout
		known := map[string]bool{}
		for _, section := range form.Sections {
			for _, f := range section.Fields {
				known[f.ID] = true
			}
		}
		for _, a := range req.Answers {
			if !known[a.FieldID] {
				httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "submit.unknown_field",
					"unknown fieldId %q", a.FieldID)
				return
			}
		}

		responseId, err := uuid.NewV4()
		if err != nil {
			httpx.LogInternalError(w, r, "submit.new_id", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO response (id, form_key, user_id, submitted_at)
			VALUES (?, ?, ?, ?)`,
			responseId.String(), formKey, auth.FromContext(r.Context()).UserID, time.Now().UTC(),
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_response", err)
			return
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO response_field (response_id, field_id, value)
			VALUES (?, ?, ?)`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_response.fields.prepare", err)
			return
		}
		defer stmt.Close()

		for _, a := range req.Answers {
			var value any = a.Value
			if len(a.OptionIDs) > 0 {
				value = a.OptionIDs
			}
			valueJson, err := json.Marshal(value)
			if err != nil {
				httpx.LogInternalError(w, r, "db.insert_response.fields.parse_value", err)
				return
			}
			_, err = stmt.ExecContext(r.Context(), responseId.String(), a.FieldID, string(valueJson))
			if err != nil {
				httpx.LogInternalError(w, r, "db.insert_response.fields.insert", err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_response.commit", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"responseId": responseId.String(),
		})
	}
}

func ListMySubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := auth.FromContext(r.Context()).UserID
		page := queryInt(r, "page", 1)
		pageSize := queryInt(r, "pageSize", 20)
		if page < 1 {
			page = 1
		}
		q := r.URL.Query().Get("q")

		where := `WHERE s.user_id = ?`
		args := []any{userId}
		if q != "" {
			where += ` AND f.title LIKE ?`
			args = append(args, "%"+q+"%")
		}

		var total int
		err := app.QueryRowContext(r.Context(), `
			SELECT count(*)
			FROM response s
			INNER JOIN form f ON (f.key = s.form_key)
			`+where,
			args...,
		).Scan(&total)
		if err != nil {
			httpx.LogInternalError(w, r, "db.count_submissions", err)
			return
		}

		args = append(args, pageSize, (page-1)*pageSize)
		rows, err := app.QueryContext(r.Context(), `
			SELECT s.id, s.form_key, f.title, s.submitted_at
			FROM response s
			INNER JOIN form f ON (f.key = s.form_key)
			`+where+`
			ORDER BY s.submitted_at DESC, s.id
			LIMIT ? OFFSET ?`,
			args...,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_submissions", err)
			return
		}
		defer rows.Close()

		items := []any{}
		for rows.Next() {
			s := model.Response{}
			err = rows.Scan(&s.ID, &s.FormKey, &s.FormTitle, &s.SubmittedAt)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_submissions.scan", err)
				return
			}
			items = append(items, s)
		}

		render.JSON(w, r, model.Page{Total: total, Page: page, PageSize: pageSize, Items: items})
	}
}

func GetResponseById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseId := chi.URLParam(r, "id")
		id := auth.FromContext(r.Context())

		s := model.Response{}
		err := app.QueryRowContext(r.Context(), `
			SELECT s.id, s.form_key, f.title, s.user_id, s.submitted_at
			FROM response s
			INNER JOIN form f ON (f.key = s.form_key)
			WHERE s.id = ?`,
			responseId,
		).Scan(&s.ID, &s.FormKey, &s.FormTitle, &s.UserID, &s.SubmittedAt)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_response", responseId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_response", err)
			return
		}

		// learners may only read their own submissions
		if !id.IsAdmin() && s.UserID != id.UserID {
			httpx.LogStatus(w, r, http.StatusForbidden, log.DebugLevel, "get_response.owner")
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT field_id, value
			FROM response_field
			WHERE response_id = ?`,
			responseId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_response.fields", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var fieldId string
			var value sql.NullString
			err = rows.Scan(&fieldId, &value)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_response.fields.scan", err)
				return
			}

			a := model.Answer{FieldID: fieldId}
			var decoded any
			if value.Valid && value.String != "" {
				if err := json.Unmarshal([]byte(value.String), &decoded); err != nil {
					decoded = value.String
				}
			}
			switch v := decoded.(type) {
			case string:
				a.Value = v
			case []any:
				for _, opt := range v {
					if str, ok := opt.(string); ok {
						a.OptionIDs = append(a.OptionIDs, str)
					}
				}
			}
			s.Answers = append(s.Answers, a)
		}

		render.JSON(w, r, s)
	}
}

const maxUploadBytes = 10 << 20

func UploadFile(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "upload.parse_form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "upload.form_file")
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			httpx.LogInternalError(w, r, "upload.read", err)
			return
		}

		fileId, err := uuid.NewV4()
		if err != nil {
			httpx.LogInternalError(w, r, "upload.new_id", err)
			return
		}

		_, err = app.ExecContext(r.Context(), `
			INSERT INTO file (id, name, content, uploaded_by, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			fileId.String(), header.Filename, content,
			auth.FromContext(r.Context()).UserID, time.Now().UTC(),
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_file", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"fileId": fileId.String(),
			"name":   header.Filename,
		})
	}
}

func DownloadFile(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileId := chi.URLParam(r, "id")

		var name string
		var content []byte
		err := app.QueryRowContext(r.Context(), `
			SELECT name, content FROM file WHERE id = ?`,
			fileId,
		).Scan(&name, &content)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_file", fileId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_file", err)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Write(content)
	}
}
