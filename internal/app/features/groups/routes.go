// internal/app/features/groups/routes.go
package groups

import "github.com/go-chi/chi/v5"

// Routes returns the groups subrouter, mounted under /groups.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/{name}", h.HandleGet)
	r.Delete("/{name}", h.HandleDelete)

	r.Post("/{name}/members/{tier}", h.HandleAddMember)
	r.Delete("/{name}/members/{tier}/{username}", h.HandleRemoveMember)

	r.Post("/{name}/rebuild-index", h.HandleRebuildIndex)

	return r
}
