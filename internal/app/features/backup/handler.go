// internal/app/features/backup/handler.go
package backup

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	uierrors "github.com/dalemusser/helphub/internal/app/features/errors"
	backupstore "github.com/dalemusser/helphub/internal/app/store/backup"
	"github.com/dalemusser/helphub/internal/app/system/requester"
	"github.com/dalemusser/helphub/internal/app/system/timeouts"
)

// Handler is the administrative backup/restore surface. It bypasses
// per-article access checks; the fronting layer is expected to restrict
// who can reach these endpoints.
type Handler struct {
	Pipeline  *backupstore.Pipeline
	BackupDir string
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

// NewHandler constructs a backup Handler rooted at backupDir.
func NewHandler(pipeline *backupstore.Pipeline, backupDir string, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Pipeline:  pipeline,
		BackupDir: backupDir,
		ErrLog:    errLog,
		Log:       logger,
	}
}

// resolve maps a client-supplied file name onto the backup directory.
// Only bare file names are accepted; path traversal is rejected.
func (h *Handler) resolve(filename string) (string, bool) {
	if filename == "" {
		return "", false
	}
	if strings.ContainsAny(filename, `/\`) || filename != filepath.Base(filename) {
		return "", false
	}
	return filepath.Join(h.BackupDir, filename), true
}

// HandleBackup handles POST /admin/backup. Without a filename in the body
// a unique one is minted.
func (h *Handler) HandleBackup(w http.ResponseWriter, r *http.Request) {
	if _, ok := requester.FromRequest(r); !ok {
		uierrors.RenderUnauthorized(w, "")
		return
	}

	// An empty body means "mint a filename"; the length may be unknown
	// under chunked encoding, so decode and treat EOF as empty.
	var req backupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.ErrLog.LogBadRequest(w, r, "decode backup request failed", err, "Invalid request body.")
		return
	}
	if req.Filename == "" {
		req.Filename = "helphub-" + uuid.NewString() + ".backup"
	}
	path, ok := h.resolve(req.Filename)
	if !ok {
		uierrors.RenderBadRequest(w, "invalid backup filename")
		return
	}

	if err := os.MkdirAll(h.BackupDir, 0o755); err != nil {
		h.ErrLog.LogServerError(w, r, "create backup directory failed", err, "Unable to write backup.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "backup articles")
	defer cancel()

	n, err := h.Pipeline.Backup(ctx, path)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "backup failed", err, "Backup failed.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(backupResponse{Filename: req.Filename, Records: n})
}

// HandleRestore handles POST /admin/restore. With merge false the article
// table is cleared before reinserting; with a group filter only that
// group's records are restored.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	if _, ok := requester.FromRequest(r); !ok {
		uierrors.RenderUnauthorized(w, "")
		return
	}

	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode restore request failed", err, "Invalid request body.")
		return
	}
	path, ok := h.resolve(req.Filename)
	if !ok {
		uierrors.RenderBadRequest(w, "invalid backup filename")
		return
	}
	if _, err := os.Stat(path); err != nil {
		uierrors.RenderNotFound(w, "backup file not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "restore articles")
	defer cancel()

	res, err := h.Pipeline.Restore(ctx, path, req.Merge, req.Group)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "restore failed", err, "Restore failed.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}
