package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orasync/orasync-backend/internal/platform/gcs"
	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/platform/tts"
)

type ttsRequestBody struct {
	Text string `json:"text"`
}

// TTSHandler synthesizes speech for arbitrary text and returns a URL to the
// uploaded audio.
type TTSHandler struct {
	log    *logger.Logger
	synth  tts.Synthesizer
	bucket gcs.BucketService
}

func NewTTSHandler(log *logger.Logger, synth tts.Synthesizer, bucket gcs.BucketService) *TTSHandler {
	return &TTSHandler{
		log:    log.With("handler", "TTSHandler"),
		synth:  synth,
		bucket: bucket,
	}
}

// POST /tts
func (h *TTSHandler) Synthesize(c *gin.Context) {
	var body ttsRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		RespondError(c, http.StatusBadRequest, "missing_text", nil)
		return
	}
	audio, err := h.synth.Synthesize(c.Request.Context(), body.Text)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "tts_failed", err)
		return
	}
	key := fmt.Sprintf("tts/%s.mp3", uuid.NewString())
	if err := h.bucket.UploadBytes(c.Request.Context(), gcs.BucketCategoryAudio, key, audio); err != nil {
		RespondError(c, http.StatusInternalServerError, "audio_upload_failed", err)
		return
	}
	url, err := h.bucket.SignedURL(gcs.BucketCategoryAudio, key)
	if err != nil {
		h.log.Warn("signed url failed, using public url", "key", key, "error", err)
		url = h.bucket.GetPublicURL(gcs.BucketCategoryAudio, key)
	}
	RespondOK(c, gin.H{"audio_url": url})
}
