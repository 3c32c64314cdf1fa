package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/progress"
)

// ProgressHandler exposes the advisory progress store.
type ProgressHandler struct {
	log   *logger.Logger
	store progress.Store
}

func NewProgressHandler(log *logger.Logger, store progress.Store) *ProgressHandler {
	return &ProgressHandler{
		log:   log.With("handler", "ProgressHandler"),
		store: store,
	}
}

// GET /progress/:id
func (h *ProgressHandler) Get(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "progress_lookup_failed", err)
		return
	}
	if rec == nil {
		RespondError(c, http.StatusNotFound, "unknown_request_id", nil)
		return
	}
	RespondOK(c, rec)
}
