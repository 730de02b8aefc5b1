package database

import (
	"database/sql"
	"errors"

	"github.com/gofrs/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/formkite/formkite/config"
	"github.com/formkite/formkite/model"
)

// EnsureAdmin provisions the configured admin account on first start.
// Without it a fresh database has nobody who can author forms.
func EnsureAdmin(db *sql.DB, cfg config.Config) error {
	if cfg.AdminPass == "" {
		return errors.New("missing setting admin_password (FORMKITE_ADMIN_PASSWORD)")
	}

	var exists bool
	err := db.QueryRow(`SELECT 1 FROM user WHERE email = ?`, cfg.AdminEmail).Scan(&exists)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPass), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO user (id, email, password_hash, role)
		VALUES (?, ?, ?, ?)`,
		id.String(), cfg.AdminEmail, hash, model.RoleAdmin,
	)
	return err
}
