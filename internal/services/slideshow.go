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

const slideshowSystemPrompt = `You are an expert at summarizing educational content into a structured
slideshow format. Output only the JSON array as specified.`

const slideshowPromptTemplate = `Given the following text, break it down into key slides depending on the
content length (typically 6-10). Each slide should have an optional title and a list of bullet points
summarizing the content for that slide.

You must always generate at least 3 slides, even if you have to repeat or rephrase information.
If the input is truly empty, return an array with a single slide whose content is ['No content provided.'].

Output the slideshow as a JSON array of objects, where each object has an optional 'title' (string or
null) and a 'content' key (an array of strings for bullet points).

Text:
%s`

// SlideshowService summarizes text into slide decks.
type SlideshowService interface {
	Generate(ctx context.Context, text string) ([]content.Slide, recovery.Tier, error)
}

type slideshowService struct {
	log       *logger.Logger
	genClient genai.Client
}

func NewSlideshowService(log *logger.Logger, genClient genai.Client) SlideshowService {
	return &slideshowService{
		log:       log.With("service", "SlideshowService"),
		genClient: genClient,
	}
}

func (ss *slideshowService) Generate(ctx context.Context, text string) ([]content.Slide, recovery.Tier, error) {
	if strings.TrimSpace(text) == "" {
		return []content.Slide{{Content: []string{"No content provided."}}}, recovery.TierFallback, nil
	}

	raw, err := ss.genClient.GenerateText(ctx, slideshowSystemPrompt, fmt.Sprintf(slideshowPromptTemplate, text))
	if err != nil {
		return nil, "", fmt.Errorf("generate slideshow: %w", err)
	}

	res := recovery.Array(raw, recovery.ArraySpec[content.Slide]{
		Valid: content.Slide.Valid,
		Min:   3,
		Synthesize: func(i int) content.Slide {
			return content.SyntheticSlide(i)
		},
	})
	if res.Tier != recovery.TierParsed {
		ss.log.Warn("Slideshow output needed recovery", "tier", string(res.Tier), "dropped", res.Dropped)
	}
	return res.Value, res.Tier, nil
}
