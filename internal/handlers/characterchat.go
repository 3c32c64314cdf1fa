package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/services"
)

type characterChatRequestBody struct {
	CharacterName             string                 `json:"character_name"`
	CharacterDescription      string                 `json:"character_description"`
	CharacterDialogueExamples []string               `json:"character_dialogue_examples"`
	ComicTitle                string                 `json:"comic_title"`
	ComicTheme                string                 `json:"comic_theme"`
	StoryID                   string                 `json:"story_id"`
	UserMessage               string                 `json:"user_message"`
	ConversationHistory       []services.ChatMessage `json:"conversation_history"`
}

// CharacterChatHandler serves in-character conversations with comic characters.
type CharacterChatHandler struct {
	log         *logger.Logger
	chat        services.CharacterChatService
	consistency services.ConsistencyManager
}

func NewCharacterChatHandler(log *logger.Logger, chat services.CharacterChatService, consistency services.ConsistencyManager) *CharacterChatHandler {
	return &CharacterChatHandler{
		log:         log.With("handler", "CharacterChatHandler"),
		chat:        chat,
		consistency: consistency,
	}
}

// POST /character/chat
//
// When story_id references a generated comic, the character's registered
// appearance fills in a missing description.
func (h *CharacterChatHandler) Chat(c *gin.Context) {
	var body characterChatRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(body.CharacterName) == "" || strings.TrimSpace(body.UserMessage) == "" {
		RespondError(c, http.StatusBadRequest, "missing_character_or_message", nil)
		return
	}

	description := body.CharacterDescription
	if description == "" && body.StoryID != "" {
		if ref, ok := h.consistency.GetCharacter(body.StoryID, body.CharacterName); ok {
			description = ref.Description
		}
	}

	response, err := h.chat.Respond(c.Request.Context(), services.CharacterChatRequest{
		CharacterName:        body.CharacterName,
		CharacterDescription: description,
		DialogueExamples:     body.CharacterDialogueExamples,
		ComicTitle:           body.ComicTitle,
		ComicTheme:           body.ComicTheme,
		UserMessage:          body.UserMessage,
		History:              body.ConversationHistory,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "character_chat_failed", err)
		return
	}
	RespondOK(c, gin.H{"response": response, "character": body.CharacterName})
}
