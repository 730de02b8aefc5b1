package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/formkite/formkite/app"
	"github.com/formkite/formkite/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	root.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	root.Mount("/api", apiRouter(app))
	root.Mount("/", servePublicFiles())

	return root
}

// The route table mirrors the casing the deployed backend grew over time:
// newer form endpoints are lowercase, the older admin and response groups
// are PascalCase. Clients depend on both spellings.
func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/auth/login", Login(app))
	api.Post("/auth/register", Register(app))

	api.Group(func(r chi.Router) {
		r.Use(app.Verifier(), app.Authenticator())

		r.Get("/forms/{key}", GetFormByKey(app))
		r.Get("/users/{id}", GetUserById(app))

		r.Post("/responses/{formKey}", SubmitResponse(app))

		r.Route("/Response", func(r chi.Router) {
			r.Get("/my-submissions", ListMySubmissions(app))
			r.Post("/file", UploadFile(app))
			r.Get("/file/{id}", DownloadFile(app))
			r.Get("/{id}", GetResponseById(app))
		})

		r.Group(func(r chi.Router) {
			r.Use(middlewares.Admin)

			r.Get("/Admin/forms", ListForms(app))

			r.Route("/Forms/{key}", func(r chi.Router) {
				r.Patch("/status", SetFormStatus(app))
				r.Patch("/access", SetFormAccess(app))
				r.Post("/clone", CloneForm(app))
				r.Delete("/", DeleteForm(app))
			})

			r.Post("/forms/meta", CreateFormMeta(app))
			r.Put("/forms/{key}/meta", UpdateFormMeta(app))
			r.Put("/forms/{key}/layout", PutFormLayout(app))
			r.Patch("/forms/{key}/status", SetFormStatus(app))

			r.Get("/responses/{formKey}", ListFormResponses(app))
		})
	})

	return api
}

func servePublicFiles() http.Handler {
	return http.FileServer(http.Dir("public"))
}
