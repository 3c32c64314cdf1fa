package services

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/orasync/orasync-backend/internal/platform/logger"
)

// PlaceholderRenderer draws the local stand-in image used when every
// generation model has failed for a prompt.
type PlaceholderRenderer interface {
	Render(prompt string) ([]byte, error)
}

type placeholderRenderer struct {
	log      *logger.Logger
	fontFace font.Face
}

func NewPlaceholderRenderer(log *logger.Logger) (PlaceholderRenderer, error) {
	serviceLog := log.With("service", "PlaceholderRenderer")

	face, err := loadPlaceholderFont(os.Getenv("PLACEHOLDER_FONT"), 20)
	if err != nil {
		return nil, fmt.Errorf("could not load placeholder font: %w", err)
	}

	return &placeholderRenderer{
		log:      serviceLog,
		fontFace: face,
	}, nil
}

func loadPlaceholderFont(fontPath string, size float64) (font.Face, error) {
	raw := goregular.TTF
	if strings.TrimSpace(fontPath) != "" {
		fileBytes, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		raw = fileBytes
	}
	parsedFont, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}

func (pr *placeholderRenderer) Render(prompt string) ([]byte, error) {
	const size = 512

	dc := gg.NewContext(size, size)

	dc.SetColor(color.NRGBA{R: 0xAD, G: 0xD8, B: 0xE6, A: 0xFF}) // light blue
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	dc.SetFontFace(pr.fontFace)
	dc.SetColor(color.Black)

	text := strings.Join(wrapText("Placeholder: "+prompt, 40), "\n")
	dc.DrawStringWrapped(text, float64(size)/2, float64(size)/2, 0.5, 0.5, float64(size)-40, 1.4, gg.AlignCenter)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// wrapText greedily packs words into lines of at most maxChars characters.
func wrapText(s string, maxChars int) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(s) {
		if current == "" {
			current = word
			continue
		}
		if len(current)+1+len(word) <= maxChars {
			current += " " + word
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
