package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/orasync/orasync-backend/internal/content"
	"github.com/orasync/orasync-backend/internal/content/recovery"
	"github.com/orasync/orasync-backend/internal/platform/gcs"
	"github.com/orasync/orasync-backend/internal/platform/genai"
	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/platform/tts"
)

const lectureSystemPrompt = `You are an expert lecturer who turns text into short narrated lessons.
Break the provided text down into 3-5 sections. Each section needs a title, a spoken-word script,
and an image_prompt describing a supporting visual.

Output a single JSON object:
{
  "title": "...",
  "sections": [
    {"title": "...", "script": "...", "image_prompt": "..."}
  ]
}
Respond with ONLY the JSON object.`

// GeneratedLecture is the narrated, illustrated lesson response.
type GeneratedLecture struct {
	LectureID string          `json:"lecture_id"`
	Lecture   content.Lecture `json:"lecture"`
	Tier      recovery.Tier   `json:"-"`
}

// LectureService builds narrated lessons: structured sections, each with an
// illustration and synthesized audio.
type LectureService interface {
	Generate(ctx context.Context, inputText, level, styleHint string) (*GeneratedLecture, error)
}

type lectureService struct {
	log       *logger.Logger
	genClient genai.Client
	images    ImageService
	synth     tts.Synthesizer
	bucket    gcs.BucketService
}

func NewLectureService(
	log *logger.Logger,
	genClient genai.Client,
	images ImageService,
	synth tts.Synthesizer,
	bucket gcs.BucketService,
) LectureService {
	return &lectureService{
		log:       log.With("service", "LectureService"),
		genClient: genClient,
		images:    images,
		synth:     synth,
		bucket:    bucket,
	}
}

func (ls *lectureService) Generate(ctx context.Context, inputText, level, styleHint string) (*GeneratedLecture, error) {
	input := strings.TrimSpace(inputText)
	if input == "" {
		return nil, fmt.Errorf("input text required")
	}
	level = NormalizeLevel(level)

	raw, err := ls.genClient.GenerateText(ctx, lectureSystemPrompt, input)
	if err != nil {
		return nil, fmt.Errorf("generate lecture: %w", err)
	}

	res := recovery.Object(raw, recovery.ObjectSpec[content.Lecture]{
		Valid: func(l content.Lecture) bool {
			if len(l.Sections) == 0 {
				return false
			}
			for _, s := range l.Sections {
				if !s.Valid() {
					return false
				}
			}
			return true
		},
		Fields: []string{"title"},
		Assemble: func(fields map[string]string) (content.Lecture, bool) {
			title := fields["title"]
			if title == "" {
				return content.Lecture{}, false
			}
			return content.Lecture{
				Title: title,
				Sections: []content.LectureSection{
					{Title: "Overview", Script: input, ImagePrompt: "Illustration of " + title},
				},
			}, true
		},
		Fallback: func() content.Lecture {
			return content.Lecture{
				Title: "Lecture",
				Sections: []content.LectureSection{
					{Title: "Overview", Script: input, ImagePrompt: "Educational overview illustration"},
				},
			}
		},
	})
	if res.Tier != recovery.TierParsed {
		ls.log.Warn("Lecture output needed recovery", "tier", string(res.Tier))
	}

	lecture := res.Value
	lectureID := uuid.NewString()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i := range lecture.Sections {
		i := i
		g.Go(func() error {
			ls.resolveSectionMedia(gctx, lectureID, &lecture.Sections[i], i+1, level, styleHint)
			return nil
		})
	}
	_ = g.Wait()

	return &GeneratedLecture{LectureID: lectureID, Lecture: lecture, Tier: res.Tier}, nil
}

// resolveSectionMedia attaches the illustration and narration for one
// section. Media failures leave the section text-only rather than failing
// the lecture.
func (ls *lectureService) resolveSectionMedia(ctx context.Context, lectureID string, section *content.LectureSection, ordinal int, level, styleHint string) {
	if prompt := strings.TrimSpace(section.ImagePrompt); prompt != "" {
		url, err := ls.images.Resolve(ctx, ImageRequest{
			Prompt:    prompt,
			Level:     level,
			StyleHint: styleHint,
			UseCache:  true,
		})
		if err != nil {
			ls.log.Warn("Lecture section image failed", "section", section.Title, "error", err.Error())
		} else {
			section.ImageURL = url
		}
	}

	audio, err := ls.synth.Synthesize(ctx, section.Script)
	if err != nil {
		ls.log.Warn("Lecture narration failed", "section", section.Title, "error", err.Error())
		return
	}
	key := fmt.Sprintf("lectures/%s/section_%d.mp3", lectureID, ordinal)
	if err := ls.bucket.UploadBytes(ctx, gcs.BucketCategoryAudio, key, audio); err != nil {
		ls.log.Warn("Lecture audio upload failed", "key", key, "error", err.Error())
		return
	}
	url, err := ls.bucket.SignedURL(gcs.BucketCategoryAudio, key)
	if err != nil {
		ls.log.Warn("Lecture audio sign failed", "key", key, "error", err.Error())
		return
	}
	section.AudioURL = url
}
