package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/services"
)

// ProcessRequestBody is the /process payload. output_format routes the input
// to a study-aid generator instead of the block pipeline.
type ProcessRequestBody struct {
	InputText   string `json:"input_text"`
	Level       string `json:"level"`
	ImageStyle  string `json:"image_style"`
	RequestID   string `json:"request_id"`
	DeviceToken string `json:"device_token"`

	ExplainAgain bool   `json:"explain_again"`
	OutputFormat string `json:"output_format"` // "" | "flashcards" | "slideshow"

	DialogueMode         bool                    `json:"dialogue_mode"`
	SelectedText         string                  `json:"selected_text_snippet"`
	OriginalBlockContent string                  `json:"original_block_content"`
	UserQuestion         string                  `json:"user_question"`
	ConversationHistory  []services.DialogueTurn `json:"conversation_history"`
}

type ProcessHandler struct {
	log        *logger.Logger
	documents  services.DocumentService
	flashcards services.FlashcardService
	slideshows services.SlideshowService
}

func NewProcessHandler(
	log *logger.Logger,
	documents services.DocumentService,
	flashcards services.FlashcardService,
	slideshows services.SlideshowService,
) *ProcessHandler {
	return &ProcessHandler{
		log:        log.With("handler", "ProcessHandler"),
		documents:  documents,
		flashcards: flashcards,
		slideshows: slideshows,
	}
}

// POST /process
func (h *ProcessHandler) Process(c *gin.Context) {
	var body ProcessRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(body.RequestID) == "" {
		body.RequestID = uuid.NewString()
	}

	h.log.Info("Processing input",
		"request_id", body.RequestID,
		"level", body.Level,
		"output_format", body.OutputFormat,
		"dialogue_mode", body.DialogueMode,
		"explain_again", body.ExplainAgain,
		"image_style", body.ImageStyle,
	)

	switch strings.ToLower(strings.TrimSpace(body.OutputFormat)) {
	case "flashcards":
		cards, _, err := h.flashcards.Generate(c.Request.Context(), body.InputText)
		if err != nil {
			RespondError(c, http.StatusInternalServerError, "flashcards_failed", err)
			return
		}
		RespondOK(c, gin.H{"request_id": body.RequestID, "flashcards": cards})
		return
	case "slideshow":
		slides, _, err := h.slideshows.Generate(c.Request.Context(), body.InputText)
		if err != nil {
			RespondError(c, http.StatusInternalServerError, "slideshow_failed", err)
			return
		}
		RespondOK(c, gin.H{"request_id": body.RequestID, "slides": slides})
		return
	case "":
	default:
		RespondError(c, http.StatusBadRequest, "invalid_output_format",
			fmt.Errorf("unsupported output_format %q", body.OutputFormat))
		return
	}

	result, err := h.documents.Process(c.Request.Context(), services.ProcessRequest{
		InputText:            body.InputText,
		Level:                body.Level,
		StyleHint:            body.ImageStyle,
		RequestID:            body.RequestID,
		DeviceToken:          body.DeviceToken,
		ExplainAgain:         body.ExplainAgain,
		DialogueMode:         body.DialogueMode,
		SelectedText:         body.SelectedText,
		OriginalBlockContent: body.OriginalBlockContent,
		UserQuestion:         body.UserQuestion,
		ConversationHistory:  body.ConversationHistory,
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, "process_failed", err)
		return
	}

	if body.DialogueMode {
		RespondOK(c, gin.H{"request_id": body.RequestID, "dialogue_response": result.DialogueResponse})
		return
	}
	RespondOK(c, gin.H{"request_id": body.RequestID, "blocks": result.Blocks})
}
