// internal/app/features/articles/handler.go
package articles

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	uierrors "github.com/dalemusser/helphub/internal/app/features/errors"
	articlestore "github.com/dalemusser/helphub/internal/app/store/articles"
	"github.com/dalemusser/helphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/helphub/internal/app/system/requester"
	"github.com/dalemusser/helphub/internal/app/system/timeouts"
	"github.com/dalemusser/helphub/internal/domain/models"
)

// Handler is the shared dependency container for the articles feature.
type Handler struct {
	Articles *articlestore.Store
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs an articles Handler. It is typically called from
// the bootstrap BuildHandler function.
func NewHandler(articles *articlestore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Articles: articles,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// HandleCreate handles POST /articles. The author is the requesting user.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	username, ok := requester.FromRequest(r)
	if !ok {
		uierrors.RenderUnauthorized(w, "")
		return
	}

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode create article request failed", err, "Invalid request body.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create article")
	defer cancel()

	a, err := h.Articles.Register(ctx, req.article(username))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "register article failed", err, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(a)
}

// HandleList handles GET /articles. With a keyword query parameter the
// result is filtered; either way only articles the requesting user may
// read are returned, and grouped bodies come back decrypted.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	username, _ := requester.FromRequest(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "list articles")
	defer cancel()

	var (
		list []models.Article
		err  error
	)
	if keyword := r.URL.Query().Get("keyword"); keyword != "" {
		list, err = h.Articles.SearchByKeyword(ctx, username, keyword)
	} else {
		list, err = h.Articles.GetAll(ctx, username)
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list articles failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.Article{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// HandleGet handles GET /articles/{id}. Absent articles and denied access
// are both a 404.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid article id")
		return
	}
	username, _ := requester.FromRequest(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "get article")
	defer cancel()

	a, err := h.Articles.Get(ctx, id, username)
	if err != nil {
		if errors.Is(err, articlestore.ErrNotFound) {
			uierrors.RenderNotFound(w, "article not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "get article failed", err, "A database error occurred.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a)
}

// HandleUpdate handles PUT /articles/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid article id")
		return
	}
	username, ok := requester.FromRequest(r)
	if !ok {
		uierrors.RenderUnauthorized(w, "")
		return
	}

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode update article request failed", err, "Invalid request body.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update article")
	defer cancel()

	a := req.article(username)
	a.ID = id
	updated, err := h.Articles.Update(ctx, a)
	if err != nil {
		if errors.Is(err, articlestore.ErrNotFound) {
			uierrors.RenderNotFound(w, "article not found")
			return
		}
		h.ErrLog.LogBadRequest(w, r, "update article failed", err, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(updated)
}

// HandleDelete handles DELETE /articles/{id}. Removal is unconditional;
// deleting an id that is already gone still succeeds.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid article id")
		return
	}
	if _, ok := requester.FromRequest(r); !ok {
		uierrors.RenderUnauthorized(w, "")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete article")
	defer cancel()

	if _, err := h.Articles.Delete(ctx, id); err != nil {
		h.ErrLog.LogServerError(w, r, "delete article failed", err, "Unable to delete article.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// article builds the store model from the request, sanitizing every
// user-supplied text field on the way in.
func (req articleRequest) article(author string) models.Article {
	keywords := make([]string, 0, len(req.Keywords))
	for _, kw := range req.Keywords {
		keywords = append(keywords, htmlsanitize.StripTags(kw))
	}
	return models.Article{
		Title:          htmlsanitize.StripTags(req.Title),
		Description:    htmlsanitize.StripTags(req.Description),
		Body:           htmlsanitize.Sanitize(req.Body),
		Level:          models.Level(req.Level),
		Keywords:       keywords,
		ReferenceLinks: req.ReferenceLinks,
		AuthorUsername: author,
		GroupName:      req.GroupName,
	}
}
