package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"strings"
	"time"

	_ "image/jpeg"
	"image/png"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/orasync/orasync-backend/internal/platform/envutil"
	"github.com/orasync/orasync-backend/internal/platform/gcs"
	"github.com/orasync/orasync-backend/internal/platform/genai"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

// ImageRequest describes one image to resolve.
type ImageRequest struct {
	Prompt      string
	Level       string
	StyleHint   string
	AspectRatio string // "square" | "landscape" | "portrait"

	// Optional consistency anchors.
	StoryID       string
	CharacterName string
	ContentID     string
	StyleName     string

	// UseCache gates both lookup and store. Placeholder URLs are never
	// cached regardless.
	UseCache bool
}

// ImageService resolves prompts to fetchable image URLs. Resolution walks
// the model fallback chain and degrades to a locally drawn placeholder, so
// an error is only returned when even the placeholder could not be produced.
type ImageService interface {
	Resolve(ctx context.Context, req ImageRequest) (string, error)
}

type imageService struct {
	log         *logger.Logger
	genClient   genai.Client
	bucket      gcs.BucketService
	cache       ImageCache
	consistency ConsistencyManager
	renderer    PlaceholderRenderer

	retriesPerModel int
}

func NewImageService(
	log *logger.Logger,
	genClient genai.Client,
	bucket gcs.BucketService,
	cache ImageCache,
	consistency ConsistencyManager,
	renderer PlaceholderRenderer,
) ImageService {
	return &imageService{
		log:             log.With("service", "ImageService"),
		genClient:       genClient,
		bucket:          bucket,
		cache:           cache,
		consistency:     consistency,
		renderer:        renderer,
		retriesPerModel: envutil.Int("IMAGE_RETRIES_PER_MODEL", 2),
	}
}

// Reading levels accepted by the API. Unknown values normalize to moderate.
const (
	LevelBeginner     = "beginner"
	LevelModerate     = "moderate"
	LevelIntermediate = "intermediate"
)

func NormalizeLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case LevelBeginner:
		return LevelBeginner
	case LevelIntermediate:
		return LevelIntermediate
	default:
		return LevelModerate
	}
}

var qualityEnhancers = []string{
	"high quality", "detailed", "vibrant colors",
	"professional illustration", "crisp and clear", "8k resolution",
	"masterpiece", "best quality", "ultra detailed",
}

var styleEnhancers = map[string][]string{
	"Studio Ghibli": {
		"Studio Ghibli style", "whimsical", "cinematic",
		"hand-drawn aesthetic", "soft lighting", "dreamy atmosphere",
		"Miyazaki inspired", "pastel colors", "nature-focused",
	},
	"Educational": {
		"educational illustration", "clear and simple",
		"easy to understand", "child-friendly", "informative",
		"diagram-style", "clean lines", "well-organized",
	},
	"Disney Classic": {
		"Disney classic animation style", "hand-drawn", "vibrant colors",
		"expressive characters", "magical atmosphere", "timeless appeal",
		"cel-shaded", "character-focused",
	},
	"Comic Book": {
		"comic book style", "bold lines", "dynamic composition",
		"pop art colors", "action-packed", "graphic novel aesthetic",
		"halftone patterns", "comic panel style",
	},
	"Watercolor": {
		"watercolor painting style", "soft edges", "flowing colors",
		"artistic", "ethereal", "dreamy atmosphere", "pigment texture",
		"paper texture visible",
	},
	"Pixel Art": {
		"pixel art style", "retro gaming aesthetic", "8-bit inspired",
		"blocky", "nostalgic", "digital art", "pixel perfect",
		"limited color palette",
	},
	"3D Render": {
		"3D rendered style", "photorealistic", "modern",
		"detailed textures", "professional lighting", "contemporary look",
		"ray-traced", "high poly count",
	},
}

var levelEnhancers = map[string][]string{
	LevelBeginner:     {"simple", "friendly", "bright colors", "cartoon style"},
	LevelModerate:     {"engaging", "modern style", "relatable"},
	LevelIntermediate: {"stylish", "contemporary", "appealing to young adults"},
}

var aspectRatioHints = map[string]string{
	"square":    "1:1 aspect ratio, centered composition",
	"landscape": "16:9 aspect ratio, wide composition, cinematic framing",
	"portrait":  "9:16 aspect ratio, vertical composition, mobile-friendly",
}

func aspectRatioSize(aspectRatio string) string {
	switch aspectRatio {
	case "landscape":
		return "1536x1024"
	case "portrait":
		return "1024x1536"
	default:
		return "1024x1024"
	}
}

// BuildEnhancedPrompt layers quality, style, level, and aspect descriptors
// over the base prompt, with the consistency prefix first when present.
func BuildEnhancedPrompt(basePrompt, styleHint, level, aspectRatio, consistencyPrefix string) string {
	level = NormalizeLevel(level)

	enhancers := make([]string, 0, 24)
	enhancers = append(enhancers, qualityEnhancers...)
	enhancers = append(enhancers, styleEnhancers[styleHint]...)
	enhancers = append(enhancers, levelEnhancers[level]...)

	enhanced := basePrompt + ". " + strings.Join(enhancers, " ")
	if hint := aspectRatioHints[aspectRatio]; hint != "" {
		enhanced += ". " + hint
	}
	if strings.TrimSpace(consistencyPrefix) != "" && consistencyPrefix != basePrompt {
		enhanced = consistencyPrefix + " " + enhanced
	}
	enhanced += ". No text or captions in the image."
	return enhanced
}

func uniqueImageKey(prompt, prefix string) string {
	h := sha256.Sum256([]byte(prompt))
	name := hex.EncodeToString(h[:4]) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if prefix != "" {
		name = prefix + "_" + name
	}
	return "images/" + name + ".png"
}

func (is *imageService) Resolve(ctx context.Context, req ImageRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("image prompt required")
	}
	level := NormalizeLevel(req.Level)

	if req.UseCache {
		if url, ok := is.cache.Get(ctx, prompt, level, req.StyleHint, req.AspectRatio); ok {
			is.log.Info("Image cache hit", "prompt", truncatePrompt(prompt))
			return url, nil
		}
	}

	consistencyPrefix := ""
	if is.consistency != nil {
		prefixed := is.consistency.BuildConsistencyPrompt(prompt, req.StoryID, req.CharacterName, req.ContentID, req.StyleName)
		if prefixed != prompt {
			consistencyPrefix = strings.TrimSuffix(prefixed, prompt)
		}
	}
	enhanced := BuildEnhancedPrompt(prompt, req.StyleHint, level, req.AspectRatio, strings.TrimSpace(consistencyPrefix))

	start := time.Now()
	var lastErr error
	for _, model := range is.genClient.ImageModelChain() {
		for attempt := 0; attempt < is.retriesPerModel; attempt++ {
			if ctx.Err() != nil {
				break
			}
			gen, err := is.genClient.GenerateImage(ctx, enhanced, genai.ImageOptions{
				Model: model,
				Size:  aspectRatioSize(req.AspectRatio),
			})
			if err != nil {
				lastErr = err
				is.log.Warn("Image generation failed",
					"model", model,
					"attempt", attempt+1,
					"error", err.Error(),
				)
				continue
			}

			processed, err := validateAndFlatten(gen.Bytes)
			if err != nil {
				lastErr = err
				is.log.Warn("Generated image invalid",
					"model", model,
					"attempt", attempt+1,
					"error", err.Error(),
				)
				continue
			}

			key := uniqueImageKey(prompt, "")
			if err := is.bucket.UploadBytes(ctx, gcs.BucketCategoryImage, key, processed); err != nil {
				lastErr = err
				is.log.Warn("Image upload failed", "key", key, "error", err.Error())
				continue
			}
			url, err := is.bucket.SignedURL(gcs.BucketCategoryImage, key)
			if err != nil {
				lastErr = err
				continue
			}

			if req.UseCache {
				is.cache.Put(ctx, prompt, level, req.StyleHint, req.AspectRatio, url)
			}
			is.log.Info("Image generated",
				"model", model,
				"key", key,
				"elapsed", time.Since(start).String(),
			)
			return url, nil
		}
	}

	is.log.Warn("All image models exhausted, using placeholder",
		"prompt", truncatePrompt(prompt),
		"error", errString(lastErr),
	)
	return is.resolvePlaceholder(ctx, prompt)
}

func (is *imageService) resolvePlaceholder(ctx context.Context, prompt string) (string, error) {
	raw, err := is.renderer.Render(prompt)
	if err != nil {
		return "", fmt.Errorf("render placeholder: %w", err)
	}
	key := uniqueImageKey(prompt, "placeholder")
	if err := is.bucket.UploadBytes(ctx, gcs.BucketCategoryImage, key, raw); err != nil {
		return "", fmt.Errorf("upload placeholder: %w", err)
	}
	url, err := is.bucket.SignedURL(gcs.BucketCategoryImage, key)
	if err != nil {
		return "", fmt.Errorf("sign placeholder url: %w", err)
	}
	return url, nil
}

// validateAndFlatten rejects obviously broken payloads and flattens any
// transparency onto a white background before re-encoding as PNG.
func validateAndFlatten(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	if len(raw) < 1000 {
		return nil, fmt.Errorf("image payload too small (%d bytes)", len(raw))
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if !imageHasAlpha(img) {
		return raw, nil
	}

	b := img.Bounds()
	flat := image.NewRGBA(b)
	draw.Draw(flat, b, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, b, img, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, fmt.Errorf("encode flattened image: %w", err)
	}
	return buf.Bytes(), nil
}

func imageHasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64:
	default:
		return false
	}
	b := img.Bounds()
	// Sampling every pixel is wasteful for large images; a grid catches the
	// practical cases.
	stepX := maxInt(1, b.Dx()/64)
	stepY := maxInt(1, b.Dy()/64)
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			_, _, _, a := img.At(x, y).RGBA()
			if a < 0xFFFF {
				return true
			}
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func truncatePrompt(s string) string {
	if len(s) <= 50 {
		return s
	}
	return s[:50] + "..."
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
