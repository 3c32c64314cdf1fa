package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/orasync/orasync-backend/internal/content"
	"github.com/orasync/orasync-backend/internal/platform/envutil"
	"github.com/orasync/orasync-backend/internal/platform/genai"
	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/platform/push"
	"github.com/orasync/orasync-backend/internal/progress"
)

const adaptSystemPrompt = `You are an expert at adapting text for readers with dyslexia.
Rewrite the provided text so it is easier to read while preserving all key information.
Use clear, bold headings with **asterisks** (e.g. **Why is Space Travel Hard?**) to introduce new sections.
Insert [Image: <short visual description>] markers where an illustration would aid understanding.
When the content suits it, end with a **Quiz Time!** section containing numbered multiple-choice
questions, lettered options like "a) ...", a "Correct Answer: x" line, and an "Explanation: ..." line.`

const explainAgainSystemPrompt = `You are an expert tutor. The reader did not understand the previous
explanation. Re-explain the provided text from a different angle using simpler language, concrete
analogies, and short sentences. Keep the same **heading** and [Image: ...] formatting conventions.`

const dialogueSystemPrompt = `You are an AI Conversational Tutor. Respond to the user's latest question
based on the provided context and conversation history. Be conversational, helpful, and encouraging.`

// DialogueTurn is one prior exchange in a dialogue session.
type DialogueTurn struct {
	Role string `json:"role"` // "user" | "assistant"
	Text string `json:"text"`
}

// ProcessRequest is one content processing call.
type ProcessRequest struct {
	InputText   string
	Level       string
	StyleHint   string
	RequestID   string
	DeviceToken string

	ExplainAgain bool

	// Dialogue mode fields. When DialogueMode is set the pipeline returns a
	// conversational answer instead of blocks.
	DialogueMode         bool
	SelectedText         string
	OriginalBlockContent string
	UserQuestion         string
	ConversationHistory  []DialogueTurn
}

// ProcessResult carries either assembled blocks or a dialogue answer.
type ProcessResult struct {
	Blocks           []content.Block `json:"blocks,omitempty"`
	DialogueResponse string          `json:"dialogue_response,omitempty"`
}

// DocumentService turns raw text into renderable block documents.
type DocumentService interface {
	Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error)
	// AssembleBlocks runs the scan/tokenize/resolve pipeline over already
	// generated text. The result is never empty.
	AssembleBlocks(ctx context.Context, text, level, styleHint string) []content.Block
}

type documentService struct {
	log       *logger.Logger
	genClient genai.Client
	images    ImageService
	progress  progress.Store
	notifier  push.Notifier

	imageConcurrency int
}

func NewDocumentService(
	log *logger.Logger,
	genClient genai.Client,
	images ImageService,
	progressStore progress.Store,
	notifier push.Notifier,
) DocumentService {
	return &documentService{
		log:              log.With("service", "DocumentService"),
		genClient:        genClient,
		images:           images,
		progress:         progressStore,
		notifier:         notifier,
		imageConcurrency: envutil.Int("IMAGE_CONCURRENCY", 4),
	}
}

func (ds *documentService) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	if req.DialogueMode {
		return ds.processDialogue(ctx, req)
	}

	input := strings.TrimSpace(req.InputText)
	if input == "" {
		return nil, fmt.Errorf("input text required")
	}
	level := NormalizeLevel(req.Level)

	ds.progress.Advance(ctx, req.RequestID, "Adapting text", 1, 3, "Rewriting for readability")

	system := adaptSystemPrompt
	if req.ExplainAgain {
		system = explainAgainSystemPrompt
	}
	user := fmt.Sprintf("Reading level: %s.\n\n%s", level, input)

	adapted, err := ds.genClient.GenerateText(ctx, system, user)
	if err != nil {
		ds.progress.Fail(ctx, req.RequestID, "Failed to adapt text")
		return nil, fmt.Errorf("adapt text: %w", err)
	}

	ds.progress.Advance(ctx, req.RequestID, "Resolving assets", 2, 3, "Generating images")
	blocks := ds.AssembleBlocks(ctx, adapted, level, req.StyleHint)

	result := &ProcessResult{Blocks: blocks}
	ds.progress.Complete(ctx, req.RequestID, result)
	ds.notify(ctx, req.DeviceToken, "Your content is ready",
		fmt.Sprintf("Processed %d blocks for you", len(blocks)),
		map[string]string{"request_id": req.RequestID, "type": "process"},
	)
	return result, nil
}

func (ds *documentService) processDialogue(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	if strings.TrimSpace(req.UserQuestion) == "" || strings.TrimSpace(req.OriginalBlockContent) == "" {
		ds.progress.Fail(ctx, req.RequestID, "Missing required information for dialogue mode")
		return nil, fmt.Errorf("dialogue mode requires user_question and original_block_content")
	}

	ds.progress.Advance(ctx, req.RequestID, "Processing dialogue", 1, 2, "Generating conversational response")

	var history strings.Builder
	for _, turn := range req.ConversationHistory {
		history.WriteString(turn.Role)
		history.WriteString(": ")
		history.WriteString(turn.Text)
		history.WriteString("\n")
	}

	user := fmt.Sprintf(
		"Original content:\n%s\n\nSelected text:\n%s\n\nConversation so far:\n%s\nUser question: %s",
		req.OriginalBlockContent, req.SelectedText, history.String(), req.UserQuestion,
	)

	answer, err := ds.genClient.GenerateText(ctx, dialogueSystemPrompt, user)
	if err != nil || strings.TrimSpace(answer) == "" {
		ds.log.Error("Dialogue generation failed", "error", errString(err))
		ds.progress.Fail(ctx, req.RequestID, "Failed to get a dialogue response")
		return &ProcessResult{
			DialogueResponse: "I'm sorry, I couldn't come up with a response for that. Could you try asking in a different way?",
		}, nil
	}

	result := &ProcessResult{DialogueResponse: strings.TrimSpace(answer)}
	ds.progress.Complete(ctx, req.RequestID, result)
	ds.notify(ctx, req.DeviceToken, "Tutor replied", "Your dialogue response is ready",
		map[string]string{"request_id": req.RequestID, "type": "dialogue"},
	)
	return result, nil
}

func (ds *documentService) AssembleBlocks(ctx context.Context, text, level, styleHint string) []content.Block {
	fragments := content.Scan(text)

	// Each fragment expands independently; image slots fill concurrently
	// under a bounded pool while text slots tokenize inline.
	slots := make([][]content.Block, len(fragments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(1, ds.imageConcurrency))

	for i, frag := range fragments {
		if frag.IsText() {
			slots[i] = content.Tokenize(frag.Text)
			continue
		}

		i, frag := i, frag
		g.Go(func() error {
			style := styleHint
			if frag.Kind == content.PlaceholderGhibli {
				style = "Studio Ghibli"
			}
			url, err := ds.images.Resolve(gctx, ImageRequest{
				Prompt:    frag.Prompt,
				Level:     level,
				StyleHint: style,
				UseCache:  true,
			})
			if err != nil {
				ds.log.Error("Image resolution failed", "prompt", truncatePrompt(frag.Prompt), "error", err.Error())
				slots[i] = []content.Block{content.NewError("Image generation failed: " + frag.Prompt)}
				return nil
			}
			slots[i] = []content.Block{content.NewImage(url, frag.Prompt)}
			return nil
		})
	}
	_ = g.Wait()

	var blocks []content.Block
	for _, slot := range slots {
		blocks = append(blocks, slot...)
	}

	if len(blocks) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []content.Block{content.NewParagraph(trimmed)}
		}
		return []content.Block{content.NewError("No content could be generated.")}
	}
	return blocks
}

func (ds *documentService) notify(ctx context.Context, deviceToken, title, body string, data map[string]string) {
	if err := ds.notifier.Notify(ctx, deviceToken, title, body, data); err != nil {
		ds.log.Warn("Push notification failed", "error", err.Error())
	}
}
