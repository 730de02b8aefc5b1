package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/formkite/formkite/app"
	"github.com/formkite/formkite/auth"
	"github.com/formkite/formkite/config"
	"github.com/formkite/formkite/database"
	"github.com/formkite/formkite/log"
	"github.com/formkite/formkite/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	err = database.EnsureAdmin(db, cfg)
	if err != nil {
		log.Fatal("main.db.seed_admin:", err)
	}

	app := app.App{
		DB:      db,
		Service: auth.New(cfg.TokenSecret, cfg.TTL()),
		Config:  cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
