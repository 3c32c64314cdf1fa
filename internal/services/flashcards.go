package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/orasync/orasync-backend/internal/content"
	"github.com/orasync/orasync-backend/internal/content/recovery"
	"github.com/orasync/orasync-backend/internal/platform/genai"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

const flashcardSystemPrompt = `You are an expert at creating educational flashcards.
Generate flashcards based on the input text. Output only the JSON array as specified.`

const flashcardPromptTemplate = `Given the following text, extract key concepts and create a list of flashcards.
Each flashcard should have a 'front' (the term or question) and a 'back' (the definition or answer).

Generate between 3-10 flashcards based on the content length. No less than 3 cards and no more
than 10 cards. If the input is truly empty, return an array with a single flashcard saying
'No content provided.'

Output the flashcards as a JSON array of objects, where each object has 'front' and 'back' keys.
All string values must be correctly formatted JSON strings: literal newlines inside card text
must be escaped as \n.

Text:
%s`

// FlashcardService produces study cards from arbitrary text.
type FlashcardService interface {
	Generate(ctx context.Context, text string) ([]content.Flashcard, recovery.Tier, error)
}

type flashcardService struct {
	log       *logger.Logger
	genClient genai.Client
}

func NewFlashcardService(log *logger.Logger, genClient genai.Client) FlashcardService {
	return &flashcardService{
		log:       log.With("service", "FlashcardService"),
		genClient: genClient,
	}
}

func (fs *flashcardService) Generate(ctx context.Context, text string) ([]content.Flashcard, recovery.Tier, error) {
	if strings.TrimSpace(text) == "" {
		return []content.Flashcard{{Front: "No content", Back: "No flashcards could be generated for this topic."}},
			recovery.TierFallback, nil
	}

	raw, err := fs.genClient.GenerateText(ctx, flashcardSystemPrompt, fmt.Sprintf(flashcardPromptTemplate, text))
	if err != nil {
		return nil, "", fmt.Errorf("generate flashcards: %w", err)
	}

	res := recovery.Array(raw, recovery.ArraySpec[content.Flashcard]{
		Valid: content.Flashcard.Valid,
		Min:   3,
		Synthesize: func(i int) content.Flashcard {
			return content.SyntheticFlashcard(i)
		},
	})
	if res.Tier != recovery.TierParsed {
		fs.log.Warn("Flashcard output needed recovery", "tier", string(res.Tier), "dropped", res.Dropped)
	}
	// Contract is 3-10 cards.
	cards := res.Value
	if len(cards) > 10 {
		cards = cards[:10]
	}
	return cards, res.Tier, nil
}
