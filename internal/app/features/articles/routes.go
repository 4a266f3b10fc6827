// internal/app/features/articles/routes.go
package articles

import "github.com/go-chi/chi/v5"

// Routes returns the articles subrouter, mounted under /articles.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)

	return r
}
