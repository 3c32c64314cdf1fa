package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/orasync/orasync-backend/internal/platform/genai"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

const characterChatSystemPrompt = `You are roleplaying a character from a children's comic.
Stay in character, be friendly and engaging. Keep your response concise (2-3 sentences max),
natural, and appropriate for a children's story. Do not break character or mention that you
are an AI. Just respond as the character naturally would.`

// ChatMessage is one turn of a character conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CharacterChatRequest carries everything needed to answer in character.
type CharacterChatRequest struct {
	CharacterName        string
	CharacterDescription string
	DialogueExamples     []string
	ComicTitle           string
	ComicTheme           string
	UserMessage          string
	History              []ChatMessage
}

// CharacterChatService answers user messages in the voice of a comic
// character, grounded in the character's description and story dialogue.
type CharacterChatService interface {
	Respond(ctx context.Context, req CharacterChatRequest) (string, error)
}

type characterChatService struct {
	log       *logger.Logger
	genClient genai.Client
}

func NewCharacterChatService(log *logger.Logger, genClient genai.Client) CharacterChatService {
	return &characterChatService{
		log:       log.With("service", "CharacterChatService"),
		genClient: genClient,
	}
}

const (
	maxDialogueExamples = 5
	maxHistoryMessages  = 6
)

func (cs *characterChatService) Respond(ctx context.Context, req CharacterChatRequest) (string, error) {
	name := strings.TrimSpace(req.CharacterName)
	message := strings.TrimSpace(req.UserMessage)
	if name == "" || message == "" {
		return "", fmt.Errorf("character chat: character name and user message required")
	}

	raw, err := cs.genClient.GenerateText(ctx, characterChatSystemPrompt, cs.buildPrompt(req, name, message))
	if err != nil {
		return "", fmt.Errorf("character chat response: %w", err)
	}

	response := strings.TrimSpace(raw)
	// The model sometimes echoes the speaker label back.
	if strings.HasPrefix(response, name+":") {
		response = strings.TrimSpace(strings.TrimPrefix(response, name+":"))
	}
	if response == "" {
		response = fmt.Sprintf("Hi! I'm %s. What would you like to talk about?", name)
	}
	return response, nil
}

func (cs *characterChatService) buildPrompt(req CharacterChatRequest, name, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a character from the comic %q.\n\n", name, req.ComicTitle)
	fmt.Fprintf(&b, "Character Name: %s\n", name)
	fmt.Fprintf(&b, "Description: %s\n", req.CharacterDescription)
	fmt.Fprintf(&b, "Story: %s\n", req.ComicTitle)
	fmt.Fprintf(&b, "Theme: %s\n", req.ComicTheme)

	examples := req.DialogueExamples
	if len(examples) > maxDialogueExamples {
		examples = examples[:maxDialogueExamples]
	}
	if len(examples) > 0 {
		b.WriteString("\nCharacter's dialogue examples from the story:\n")
		for _, line := range examples {
			fmt.Fprintf(&b, "- %q\n", line)
		}
	}

	history := req.History
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	if len(history) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, msg := range history {
			role := msg.Role
			if role == "" {
				role = "user"
			}
			fmt.Fprintf(&b, "%s: %s\n", capitalize(role), msg.Content)
		}
	}

	fmt.Fprintf(&b, "\nUser asks: %q\n\nRespond as %s would.\n\n%s:", message, name, name)
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
