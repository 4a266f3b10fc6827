// internal/app/features/groups/handler.go
package groups

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	uierrors "github.com/dalemusser/helphub/internal/app/features/errors"
	groupstore "github.com/dalemusser/helphub/internal/app/store/groups"
	userstore "github.com/dalemusser/helphub/internal/app/store/users"
	"github.com/dalemusser/helphub/internal/app/system/requester"
	"github.com/dalemusser/helphub/internal/app/system/timeouts"
	"github.com/dalemusser/helphub/internal/domain/models"
)

// Handler is the shared dependency container for the groups feature.
type Handler struct {
	Groups *groupstore.Store
	Users  *userstore.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs a groups Handler. It is typically called from the
// bootstrap BuildHandler function.
func NewHandler(groups *groupstore.Store, users *userstore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Groups: groups,
		Users:  users,
		ErrLog: errLog,
		Log:    logger,
	}
}

// HandleCreate handles POST /groups. The requesting user becomes the
// group's first admin.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	username, ok := requester.FromRequest(r)
	if !ok {
		uierrors.RenderUnauthorized(w, "")
		return
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode create group request failed", err, "Invalid request body.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create group")
	defer cancel()

	g, err := h.Groups.Create(ctx, req.Name, username)
	if err != nil {
		if errors.Is(err, groupstore.ErrDuplicateName) {
			uierrors.RenderConflict(w, "a group with this name already exists")
			return
		}
		h.ErrLog.LogBadRequest(w, r, "create group failed", err, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(g)
}

// HandleList handles GET /groups. With a member query parameter only the
// groups that user belongs to, in any tier, are returned.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list groups")
	defer cancel()

	var (
		list []models.Group
		err  error
	)
	if member := r.URL.Query().Get("member"); member != "" {
		list, err = h.Groups.GetForUser(ctx, member)
	} else {
		list, err = h.Groups.GetAll(ctx)
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list groups failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.Group{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// HandleGet handles GET /groups/{name}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "get group")
	defer cancel()

	g, err := h.Groups.Get(ctx, name)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			uierrors.RenderNotFound(w, "group not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "get group failed", err, "A database error occurred.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g)
}

// HandleDelete handles DELETE /groups/{name}. Deletion is unconditional;
// articles referencing the group keep their group name and become
// unreadable.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := requester.FromRequest(r); !ok {
		uierrors.RenderUnauthorized(w, "")
		return
	}
	name := chi.URLParam(r, "name")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete group")
	defer cancel()

	if _, err := h.Groups.Delete(ctx, name); err != nil {
		h.ErrLog.LogServerError(w, r, "delete group failed", err, "Unable to delete group.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddMember handles POST /groups/{name}/members/{tier}.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	if _, ok := requester.FromRequest(r); !ok {
		uierrors.RenderUnauthorized(w, "")
		return
	}

	name := chi.URLParam(r, "name")
	tier, err := models.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		uierrors.RenderBadRequest(w, err.Error())
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode add member request failed", err, "Invalid request body.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "add group member")
	defer cancel()

	// Usernames come from the externally managed accounts table.
	known, err := h.Users.Exists(ctx, req.Username)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "look up username failed", err, "A database error occurred.")
		return
	}
	if !known {
		uierrors.RenderBadRequest(w, "unknown username")
		return
	}

	g, err := h.Groups.AddMember(ctx, name, tier, req.Username)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			uierrors.RenderNotFound(w, "group not found")
			return
		}
		h.ErrLog.LogBadRequest(w, r, "add group member failed", err, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g)
}

// HandleRemoveMember handles DELETE /groups/{name}/members/{tier}/{username}.
// Removing the last admin or last instructor admin is refused with a 409.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if _, ok := requester.FromRequest(r); !ok {
		uierrors.RenderUnauthorized(w, "")
		return
	}

	name := chi.URLParam(r, "name")
	tier, err := models.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		uierrors.RenderBadRequest(w, err.Error())
		return
	}
	username := chi.URLParam(r, "username")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "remove group member")
	defer cancel()

	g, err := h.Groups.RemoveMember(ctx, name, tier, username)
	if err != nil {
		switch {
		case errors.Is(err, groupstore.ErrNotFound):
			uierrors.RenderNotFound(w, "group not found")
		case errors.Is(err, groupstore.ErrLastAdmin),
			errors.Is(err, groupstore.ErrLastInstructorAdmin):
			uierrors.RenderConflict(w, err.Error())
		default:
			h.ErrLog.LogServerError(w, r, "remove group member failed", err, "A database error occurred.")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g)
}

// HandleRebuildIndex handles POST /groups/{name}/rebuild-index. It
// recomputes the group's article-id index from the articles collection.
func (h *Handler) HandleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	if _, ok := requester.FromRequest(r); !ok {
		uierrors.RenderUnauthorized(w, "")
		return
	}
	name := chi.URLParam(r, "name")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "rebuild group article index")
	defer cancel()

	g, err := h.Groups.RebuildArticleIndex(ctx, name)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			uierrors.RenderNotFound(w, "group not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "rebuild group article index failed", err, "A database error occurred.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g)
}
