package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/orasync/orasync-backend/internal/content"
	"github.com/orasync/orasync-backend/internal/content/recovery"
	"github.com/orasync/orasync-backend/internal/platform/genai"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

// ReadingLevelDescriptions explain each level to the text model.
var ReadingLevelDescriptions = map[string]string{
	LevelBeginner:     "Simple vocabulary, very short sentences, lots of examples, explain concepts very basically (ages 6-10).",
	LevelModerate:     "Slightly more complex words (defined simply), short to medium sentences, clear examples (ages 10-13).",
	LevelIntermediate: "Standard vocabulary, varied sentence length, relatable examples, assume some prior knowledge but explain key terms (ages 13-18).",
}

const storySystemTemplate = `You are a creative storyteller who adapts content into engaging stories for
different reading levels. Transform the given text into a story with 2-3 chapters, following these guidelines:

Reading Level: %s - %s

Story Structure:
1. Create a compelling title
2. Divide into 2-3 chapters (not more)
3. Each chapter: clear title, engaging content, appropriate length
4. Use language suitable for %s level

Format as JSON object ONLY:
{
    "title": "Story Title",
    "content": "Brief story overview",
    "level": "%s",
    "chapters": [
        {"title": "Chapter 1 Title", "content": "Chapter 1 content", "order": 1},
        {"title": "Chapter 2 Title", "content": "Chapter 2 content", "order": 2}
    ]
}

Respond with ONLY the JSON object. No explanations or markdown.`

// GeneratedStory couples the story with its per-chapter illustrations.
type GeneratedStory struct {
	StoryID string        `json:"story_id"`
	Story   content.Story `json:"story"`
	Tier    recovery.Tier `json:"-"`
}

// StoryService generates level-adapted chapter stories with illustrations.
type StoryService interface {
	Generate(ctx context.Context, inputText, level, styleHint string) (*GeneratedStory, error)
}

type storyService struct {
	log         *logger.Logger
	genClient   genai.Client
	images      ImageService
	consistency ConsistencyManager
}

func NewStoryService(log *logger.Logger, genClient genai.Client, images ImageService, consistency ConsistencyManager) StoryService {
	return &storyService{
		log:         log.With("service", "StoryService"),
		genClient:   genClient,
		images:      images,
		consistency: consistency,
	}
}

func (ss *storyService) Generate(ctx context.Context, inputText, level, styleHint string) (*GeneratedStory, error) {
	input := strings.TrimSpace(inputText)
	if input == "" {
		return nil, fmt.Errorf("input text required")
	}
	level = NormalizeLevel(level)

	system := fmt.Sprintf(storySystemTemplate, level, ReadingLevelDescriptions[level], level, level)
	raw, err := ss.genClient.GenerateText(ctx, system, input)
	if err != nil {
		return nil, fmt.Errorf("generate story: %w", err)
	}

	res := recovery.Object(raw, recovery.ObjectSpec[content.Story]{
		Valid: func(s content.Story) bool {
			return strings.TrimSpace(s.Title) != "" && len(s.Chapters) > 0
		},
		Fields: []string{"title", "content", "level"},
		Assemble: func(fields map[string]string) (content.Story, bool) {
			title, body := fields["title"], fields["content"]
			if title == "" || body == "" {
				return content.Story{}, false
			}
			lvl := fields["level"]
			if lvl == "" {
				lvl = level
			}
			return content.Story{
				Title:   title,
				Content: body,
				Level:   lvl,
				Chapters: []content.Chapter{
					{Title: "Chapter 1", Content: body, Order: 1},
					{Title: "Chapter 2", Content: body, Order: 2},
				},
			}, true
		},
		Fallback: func() content.Story {
			return content.Story{
				Title:   "Story",
				Content: input,
				Level:   level,
				Chapters: []content.Chapter{
					{Title: "Chapter 1", Content: input, Order: 1},
				},
			}
		},
	})
	if res.Tier != recovery.TierParsed {
		ss.log.Warn("Story output needed recovery", "tier", string(res.Tier))
	}

	story := res.Value
	story.Normalize()
	if story.Level == "" {
		story.Level = level
	}

	storyID := uuid.NewString()
	if ss.consistency != nil && styleHint != "" {
		ss.consistency.RegisterStyle(storyID, styleHint, "Visual style for story "+story.Title)
	}

	ss.illustrateChapters(ctx, storyID, &story, level, styleHint)

	return &GeneratedStory{StoryID: storyID, Story: story, Tier: res.Tier}, nil
}

func (ss *storyService) illustrateChapters(ctx context.Context, storyID string, story *content.Story, level, styleHint string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	for i := range story.Chapters {
		i := i
		g.Go(func() error {
			ch := story.Chapters[i]
			prompt := fmt.Sprintf("Illustration for the story chapter %q: %s", ch.Title, excerpt(ch.Content, 200))
			url, err := ss.images.Resolve(gctx, ImageRequest{
				Prompt:    prompt,
				Level:     level,
				StyleHint: styleHint,
				ContentID: storyID,
				StyleName: styleHint,
				UseCache:  true,
			})
			if err != nil {
				ss.log.Warn("Chapter illustration failed", "chapter", ch.Title, "error", err.Error())
				return nil
			}
			story.Chapters[i].ImageURL = url
			return nil
		})
	}
	_ = g.Wait()
}

func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
