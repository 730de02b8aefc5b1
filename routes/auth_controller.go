package routes

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/formkite/formkite/app"
	"github.com/formkite/formkite/httpx"
	"github.com/formkite/formkite/log"
	"github.com/formkite/formkite/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := loginRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		var user model.User
		var hash []byte
		err = app.QueryRowContext(r.Context(), `
			SELECT id, email, role, password_hash
			FROM user
			WHERE email = ?`,
			strings.ToLower(strings.TrimSpace(req.Email)),
		).Scan(&user.ID, &user.Email, &user.Role, &hash)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "login.unknown_user", "invalid email or password")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_user", err)
			return
		}

		if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
			httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "login.bad_password", "invalid email or password")
			return
		}

		token, err := app.IssueToken(user)
		if err != nil {
			httpx.LogInternalError(w, r, "auth.issue_token", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"token": token,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := registerRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || len(req.Password) < 8 {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "register.invalid_input",
				"email and a password of at least 8 characters are required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.LogInternalError(w, r, "register.hash_password", err)
			return
		}

		id, err := uuid.NewV4()
		if err != nil {
			httpx.LogInternalError(w, r, "register.new_id", err)
			return
		}

		_, err = app.ExecContext(r.Context(), `
			INSERT INTO user (id, email, password_hash, role)
			VALUES (?, ?, ?, ?)`,
			id.String(), email, hash, model.RoleLearner,
		)
		if err != nil {
			// unique violation on email is by far the common case
			httpx.LogStatusMsg(w, r, http.StatusConflict, log.DebugLevel, "register.insert", "email already registered")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"userId": id.String(),
		})
	}
}

func GetUserById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := chi.URLParam(r, "id")
		if userId == "" {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		user := model.User{}
		err := app.QueryRowContext(r.Context(), `
			SELECT id, email, role, created_at
			FROM user
			WHERE id = ?`,
			userId,
		).Scan(&user.ID, &user.Email, &user.Role, &user.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_user", userId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_user", err)
			return
		}

		render.JSON(w, r, user)
	}
}
