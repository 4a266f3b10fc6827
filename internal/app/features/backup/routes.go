// internal/app/features/backup/routes.go
package backup

import "github.com/go-chi/chi/v5"

// Routes returns the admin backup subrouter, mounted under /admin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/backup", h.HandleBackup)
	r.Post("/restore", h.HandleRestore)

	return r
}
