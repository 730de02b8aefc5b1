package app

import (
	"database/sql"

	"github.com/formkite/formkite/auth"
	"github.com/formkite/formkite/config"
)

type App struct {
	*sql.DB
	*auth.Service
	config.Config
}
