package content

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Flashcard is one front/back study card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

func (f Flashcard) Valid() bool {
	return strings.TrimSpace(f.Front) != "" && strings.TrimSpace(f.Back) != ""
}

// SyntheticFlashcard builds the i-th padding card used when generation
// produced fewer cards than the contract requires.
func SyntheticFlashcard(i int) Flashcard {
	return Flashcard{
		Front: fmt.Sprintf("Card %d", i+1),
		Back:  "Content could not be generated for this card.",
	}
}

// Slide is one slideshow entry. Title may be empty.
type Slide struct {
	Title   string   `json:"title,omitempty"`
	Content []string `json:"content"`
}

func (s Slide) Valid() bool {
	for _, line := range s.Content {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

func SyntheticSlide(i int) Slide {
	return Slide{
		Title:   fmt.Sprintf("Slide %d", i+1),
		Content: []string{"Content could not be generated for this slide."},
	}
}

// Chapter is one section of a generated story.
type Chapter struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Order    int    `json:"order"`
	ImageURL string `json:"image_url,omitempty"`
}

// Story is a level-adapted narrative, optionally split into chapters.
type Story struct {
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Level    string    `json:"level"`
	Chapters []Chapter `json:"chapters,omitempty"`
}

// Normalize sorts chapters by order and rebuilds Content from chapter
// bodies when the top-level content is missing.
func (s *Story) Normalize() {
	sort.SliceStable(s.Chapters, func(i, j int) bool {
		return s.Chapters[i].Order < s.Chapters[j].Order
	})
	if strings.TrimSpace(s.Content) == "" && len(s.Chapters) > 0 {
		parts := make([]string, 0, len(s.Chapters))
		for _, ch := range s.Chapters {
			if t := strings.TrimSpace(ch.Content); t != "" {
				parts = append(parts, t)
			}
		}
		s.Content = strings.Join(parts, "\n\n")
	}
}

// ComicPanel is one panel of a comic script. Dialogue maps speaker name to
// line. Values may arrive as nested objects from sloppy generations, so the
// field decodes through a tolerant wrapper.
type ComicPanel struct {
	PanelID     int            `json:"panel_id"`
	Scene       string         `json:"scene"`
	ImagePrompt string         `json:"image_prompt"`
	Dialogue    DialogueByName `json:"dialogue"`
	ImageURL    string         `json:"image_url,omitempty"`
}

func (p ComicPanel) Valid() bool {
	return strings.TrimSpace(p.Scene) != "" && strings.TrimSpace(p.ImagePrompt) != ""
}

// DialogueByName tolerates dialogue values that are strings, numbers, or
// nested objects, flattening everything to speaker -> line.
type DialogueByName map[string]string

func (d *DialogueByName) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(DialogueByName, len(raw))
	for name, v := range raw {
		out[name] = flattenDialogueValue(v)
	}
	*d = out
	return nil
}

func flattenDialogueValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", t), ".0")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(t))
		for _, k := range keys {
			parts = append(parts, flattenDialogueValue(t[k]))
		}
		return strings.Join(parts, " ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, el := range t {
			parts = append(parts, flattenDialogueValue(el))
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// StyleGuideByName tolerates character descriptions that arrive as nested
// objects instead of plain strings, flattening each to one description.
type StyleGuideByName map[string]string

func (g *StyleGuideByName) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(StyleGuideByName, len(raw))
	for name, v := range raw {
		out[name] = flattenDialogueValue(v)
	}
	*g = out
	return nil
}

// ComicScript is a full comic: character visual guide plus ordered panels.
type ComicScript struct {
	Title      string           `json:"comic_title"`
	Theme      string           `json:"theme"`
	StyleGuide StyleGuideByName `json:"character_style_guide"`
	Panels     []ComicPanel     `json:"panel_layout"`
}

// RenumberPanels sorts panels by their declared id and reassigns sequential
// ids starting at 1, so salvaged subsets stay contiguous.
func (c *ComicScript) RenumberPanels() {
	sort.SliceStable(c.Panels, func(i, j int) bool {
		return c.Panels[i].PanelID < c.Panels[j].PanelID
	})
	for i := range c.Panels {
		c.Panels[i].PanelID = i + 1
	}
}

// LectureSection is one segment of a generated lecture.
type LectureSection struct {
	Title       string `json:"title"`
	Script      string `json:"script"`
	ImagePrompt string `json:"image_prompt"`
	ImageURL    string `json:"image_url,omitempty"`
	AudioURL    string `json:"audio_url,omitempty"`
}

func (s LectureSection) Valid() bool {
	return strings.TrimSpace(s.Script) != ""
}

// Lecture is a narrated, illustrated breakdown of the input text.
type Lecture struct {
	Title    string           `json:"title"`
	Sections []LectureSection `json:"sections"`
}
