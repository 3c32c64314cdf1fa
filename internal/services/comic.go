package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/orasync/orasync-backend/internal/content"
	"github.com/orasync/orasync-backend/internal/content/recovery"
	"github.com/orasync/orasync-backend/internal/platform/envutil"
	"github.com/orasync/orasync-backend/internal/platform/genai"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

const (
	minComicPanels = 3
	maxComicPanels = 20
)

const comicCharactersSystemPrompt = `You are an expert comic scriptwriter. Analyze the provided text and:
- Create a comic_title and a theme for the comic adaptation.
- Extract the main characters and create a character_style_guide (describe each character's visual
  style, clothing, colors, and unique features; key is the character name, value is the description).
Output a single JSON object with keys: comic_title, theme, character_style_guide.
Respond with ONLY the JSON object.`

const comicPanelsSystemPrompt = `You are an expert comic scriptwriter. You MUST generate meaningful,
natural dialogue for each panel. Each panel should have at least one character speaking with engaging,
story-advancing dialogue. Do not create empty dialogue objects or use generic phrases. Generate 7-20
panels based on story complexity. Make dialogue conversational and appropriate to each scene.`

const comicPanelsPromptTemplate = `Character style guide:
%s

Based on the story below, output a JSON array of panels. Each panel object has:
- panel_id: sequential number
- scene: what happens in the panel
- image_prompt: detailed visual prompt for the panel, including style, setting, mood, and referencing
  the character_style_guide for consistency
- dialogue: object of character name -> what they say (REQUIRED, meaningful dialogue)
Use character names from the character style guide. Respond with ONLY the JSON array.

Story:
%s`

// GeneratedComic is the full comic response including panel image URLs.
type GeneratedComic struct {
	ComicID string              `json:"comic_id"`
	Script  content.ComicScript `json:"script"`
	Tier    recovery.Tier       `json:"-"`
}

// ComicService adapts text into an illustrated comic.
type ComicService interface {
	Generate(ctx context.Context, inputText, level, styleHint string) (*GeneratedComic, error)
}

type comicService struct {
	log         *logger.Logger
	genClient   genai.Client
	images      ImageService
	consistency ConsistencyManager

	panelConcurrency int
}

func NewComicService(log *logger.Logger, genClient genai.Client, images ImageService, consistency ConsistencyManager) ComicService {
	return &comicService{
		log:              log.With("service", "ComicService"),
		genClient:        genClient,
		images:           images,
		consistency:      consistency,
		panelConcurrency: envutil.Int("PANEL_CONCURRENCY", 3),
	}
}

type comicMeta struct {
	Title      string                   `json:"comic_title"`
	Theme      string                   `json:"theme"`
	StyleGuide content.StyleGuideByName `json:"character_style_guide"`
}

func (cs *comicService) Generate(ctx context.Context, inputText, level, styleHint string) (*GeneratedComic, error) {
	input := strings.TrimSpace(inputText)
	if input == "" {
		return nil, fmt.Errorf("input text required")
	}
	level = NormalizeLevel(level)

	// Step one: title, theme, and the character style guide.
	metaRaw, err := cs.genClient.GenerateText(ctx, comicCharactersSystemPrompt, input)
	if err != nil {
		return nil, fmt.Errorf("generate comic characters: %w", err)
	}
	metaRes := recovery.Object(metaRaw, recovery.ObjectSpec[comicMeta]{
		Valid: func(m comicMeta) bool { return len(m.StyleGuide) > 0 },
		Fields: []string{"comic_title", "theme"},
		Assemble: func(fields map[string]string) (comicMeta, bool) {
			title := fields["comic_title"]
			if title == "" {
				return comicMeta{}, false
			}
			return comicMeta{
				Title:      title,
				Theme:      fields["theme"],
				StyleGuide: content.StyleGuideByName{"Character": "Main character of the story"},
			}, true
		},
		Fallback: func() comicMeta {
			return comicMeta{
				Title:      "Generated Comic",
				Theme:      "Adventure",
				StyleGuide: content.StyleGuideByName{"Character 1": "Main character", "Character 2": "Supporting character"},
			}
		},
	})
	meta := metaRes.Value
	if meta.Title == "" {
		meta.Title = "Generated Comic"
	}
	if meta.Theme == "" {
		meta.Theme = "Adventure"
	}
	names := characterNames(meta.StyleGuide)

	// Step two: the panel layout.
	guideText := formatStyleGuide(meta.StyleGuide)
	panelsRaw, err := cs.genClient.GenerateText(ctx, comicPanelsSystemPrompt,
		fmt.Sprintf(comicPanelsPromptTemplate, guideText, input))
	if err != nil {
		return nil, fmt.Errorf("generate comic panels: %w", err)
	}

	fallbackScenes := fallbackPanelScenes(names)
	panelsRes := recovery.Array(panelsRaw, recovery.ArraySpec[content.ComicPanel]{
		Valid: content.ComicPanel.Valid,
		Min:   minComicPanels,
		Synthesize: func(i int) content.ComicPanel {
			scene := fallbackScenes[i%len(fallbackScenes)]
			return content.ComicPanel{
				PanelID:     i + 1,
				Scene:       scene,
				ImagePrompt: fallbackImagePrompt(scene, meta.StyleGuide, names),
				Dialogue:    MeaningfulDialogue(scene, names, i+1),
			}
		},
	})
	if panelsRes.Tier != recovery.TierParsed {
		cs.log.Warn("Comic panels needed recovery", "tier", string(panelsRes.Tier), "dropped", panelsRes.Dropped)
	}

	script := content.ComicScript{
		Title:      meta.Title,
		Theme:      meta.Theme,
		StyleGuide: meta.StyleGuide,
		Panels:     panelsRes.Value,
	}
	if len(script.Panels) > maxComicPanels {
		script.Panels = script.Panels[:maxComicPanels]
	}
	script.RenumberPanels()

	// Every panel must carry speech the frontend can render.
	for i := range script.Panels {
		p := &script.Panels[i]
		if !hasMeaningfulDialogue(p.Dialogue) {
			p.Dialogue = MeaningfulDialogue(p.Scene, names, p.PanelID)
		}
	}

	comicID := uuid.NewString()
	for name, desc := range meta.StyleGuide {
		cs.consistency.RegisterCharacter(comicID, name, desc, "")
	}

	cs.renderPanels(ctx, comicID, &script, level, styleHint)

	tier := panelsRes.Tier
	if metaRes.Tier != recovery.TierParsed && tier == recovery.TierParsed {
		tier = metaRes.Tier
	}
	return &GeneratedComic{ComicID: comicID, Script: script, Tier: tier}, nil
}

func (cs *comicService) renderPanels(ctx context.Context, comicID string, script *content.ComicScript, level, styleHint string) {
	if styleHint == "" {
		styleHint = "Comic Book"
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(1, cs.panelConcurrency))

	for i := range script.Panels {
		i := i
		g.Go(func() error {
			panel := script.Panels[i]
			character := firstSpeaker(panel.Dialogue)
			url, err := cs.images.Resolve(gctx, ImageRequest{
				Prompt:        panel.ImagePrompt,
				Level:         level,
				StyleHint:     styleHint,
				AspectRatio:   "landscape",
				StoryID:       comicID,
				CharacterName: character,
				UseCache:      true,
			})
			if err != nil {
				cs.log.Warn("Panel image failed", "panel_id", panel.PanelID, "error", err.Error())
				return nil
			}
			script.Panels[i].ImageURL = url
			return nil
		})
	}
	_ = g.Wait()
}

func characterNames(guide content.StyleGuideByName) []string {
	if len(guide) == 0 {
		return []string{"Character"}
	}
	names := make([]string, 0, len(guide))
	for name := range guide {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatStyleGuide(guide content.StyleGuideByName) string {
	var b strings.Builder
	for _, name := range characterNames(guide) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(guide[name])
		b.WriteString("\n")
	}
	return b.String()
}

func fallbackPanelScenes(names []string) []string {
	lead := names[0]
	partner := lead
	if len(names) > 1 {
		partner = names[1]
	}
	pair := lead
	if partner != lead {
		pair = lead + ", " + partner
	}
	return []string{
		fmt.Sprintf("Introduction scene showing %s in their environment", pair),
		fmt.Sprintf("Action scene with %s and %s in motion", lead, partner),
		fmt.Sprintf("Close-up scene focusing on %s's expressions and reactions", lead),
		"Wide shot showing the environment and all characters interacting",
		fmt.Sprintf("Dramatic moment with %s facing a challenge together", pair),
		fmt.Sprintf("Discovery scene where %s finds something important", lead),
		fmt.Sprintf("Conflict resolution with %s working together", pair),
		"Celebration scene with all characters sharing their success",
		fmt.Sprintf("Reflection moment with %s thinking about the journey", lead),
		"Future planning scene with characters discussing next steps",
	}
}

func fallbackImagePrompt(scene string, guide content.StyleGuideByName, names []string) string {
	var details []string
	for _, name := range names {
		if desc := guide[name]; desc != "" {
			details = append(details, name+": "+excerpt(desc, 100))
		}
		if len(details) == 2 {
			break
		}
	}
	prompt := scene + ". "
	if len(details) > 0 {
		prompt += "Character details: " + strings.Join(details, "; ") + ". "
	}
	featured := names[0]
	if len(names) > 1 {
		featured += ", " + names[1]
	}
	prompt += featured + " are prominently featured in this comic panel. NO TEXT, NO CAPTIONS, NO SPEECH BUBBLES."
	return prompt
}

var dialoguePatterns = []struct {
	keyword string
	options []string
}{
	{"watching", []string{"I wonder what's happening?", "This looks interesting!", "What's going on here?"}},
	{"approaching", []string{"Let me get a closer look.", "I need to investigate this.", "Time to explore!"}},
	{"jumping", []string{"Here I go!", "Up we go!", "Let's see what's up there!"}},
	{"noticing", []string{"Oh! What's that?", "I see something interesting!", "Look at that!"}},
	{"discovery", []string{"Wow! Look at that!", "This is unexpected!", "Incredible!"}},
	{"celebration", []string{"We did it!", "Success!", "This is amazing!"}},
	{"reflection", []string{"What a journey...", "Let me think about this.", "We've come so far."}},
	{"conflict", []string{"We can do this together!", "Nothing will stop us!", "Let's work it out!"}},
	{"introduction", []string{"Here we are!", "What a day this will be!", "Let's get started!"}},
	{"thinking", []string{"Hmm...", "Let me think...", "Interesting..."}},
}

// MeaningfulDialogue synthesizes a speaker line appropriate to the scene,
// varying by panel number so adjacent fallback panels don't repeat.
func MeaningfulDialogue(scene string, characterNames []string, panelID int) content.DialogueByName {
	if len(characterNames) == 0 {
		return content.DialogueByName{"Character": "Let's see what happens!"}
	}
	sceneLower := strings.ToLower(scene)

	options := []string{"This is interesting!", "What happens next?", "Let's find out!"}
	for _, p := range dialoguePatterns {
		if strings.Contains(sceneLower, p.keyword) {
			options = p.options
			break
		}
	}

	idx := (panelID + len(scene)) % len(options)
	return content.DialogueByName{characterNames[0]: options[idx]}
}

func hasMeaningfulDialogue(d content.DialogueByName) bool {
	for _, line := range d {
		t := strings.TrimSpace(line)
		if t != "" && t != "..." {
			return true
		}
	}
	return false
}

func firstSpeaker(d content.DialogueByName) string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}
