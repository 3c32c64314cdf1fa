package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/services"
)

type imageRequestBody struct {
	Prompt      string `json:"prompt"`
	Level       string `json:"level"`
	ImageStyle  string `json:"image_style"`
	AspectRatio string `json:"aspect_ratio"`

	// Consistent-image fields.
	StoryID              string `json:"story_id"`
	CharacterName        string `json:"character_name"`
	CharacterDescription string `json:"character_description"`
}

// ImageHandler serves one-off and consistency-anchored image generation.
type ImageHandler struct {
	log         *logger.Logger
	images      services.ImageService
	consistency services.ConsistencyManager
}

func NewImageHandler(log *logger.Logger, images services.ImageService, consistency services.ConsistencyManager) *ImageHandler {
	return &ImageHandler{
		log:         log.With("handler", "ImageHandler"),
		images:      images,
		consistency: consistency,
	}
}

// POST /image
func (h *ImageHandler) Generate(c *gin.Context) {
	var body imageRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		RespondError(c, http.StatusBadRequest, "missing_prompt", nil)
		return
	}
	level := services.NormalizeLevel(body.Level)
	if !services.SafePrompt(body.Prompt, level) {
		RespondError(c, http.StatusBadRequest, "unsafe_prompt", nil)
		return
	}
	url, err := h.images.Resolve(c.Request.Context(), services.ImageRequest{
		Prompt:      body.Prompt,
		Level:       level,
		StyleHint:   body.ImageStyle,
		AspectRatio: body.AspectRatio,
		UseCache:    true,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "image_failed", err)
		return
	}
	RespondOK(c, gin.H{"image_url": url})
}

// POST /image/consistent
//
// Registers the character on first use so subsequent calls with the same
// story_id and character_name render a matching appearance.
func (h *ImageHandler) GenerateConsistent(c *gin.Context) {
	var body imageRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(body.Prompt) == "" || strings.TrimSpace(body.CharacterName) == "" {
		RespondError(c, http.StatusBadRequest, "missing_prompt_or_character", nil)
		return
	}
	level := services.NormalizeLevel(body.Level)
	if !services.SafePrompt(body.Prompt, level) {
		RespondError(c, http.StatusBadRequest, "unsafe_prompt", nil)
		return
	}
	storyID := body.StoryID
	if storyID == "" {
		storyID = uuid.NewString()
	}
	if _, ok := h.consistency.GetCharacter(storyID, body.CharacterName); !ok {
		desc := body.CharacterDescription
		if desc == "" {
			desc = body.CharacterName
		}
		h.consistency.RegisterCharacter(storyID, body.CharacterName, desc, "")
	}
	url, err := h.images.Resolve(c.Request.Context(), services.ImageRequest{
		Prompt:        body.Prompt,
		Level:         level,
		StyleHint:     body.ImageStyle,
		AspectRatio:   body.AspectRatio,
		StoryID:       storyID,
		CharacterName: body.CharacterName,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "image_failed", err)
		return
	}
	RespondOK(c, gin.H{"image_url": url, "story_id": storyID})
}
