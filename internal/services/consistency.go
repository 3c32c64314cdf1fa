package services

import (
	"strings"
	"sync"
	"time"

	"github.com/orasync/orasync-backend/internal/platform/logger"
)

// CharacterReference is one registered character appearance.
type CharacterReference struct {
	Description  string
	ReferenceURL string
	CreatedAt    time.Time
}

// StyleReference is one registered visual style for a piece of content.
type StyleReference struct {
	Description string
	CreatedAt   time.Time
}

// ConsistencyManager keeps character and style registries so images generated
// across chapters and panels share a look.
type ConsistencyManager interface {
	RegisterCharacter(storyID, name, description, referenceURL string)
	GetCharacter(storyID, name string) (CharacterReference, bool)
	RegisterStyle(contentID, styleName, description string)
	GetStyle(contentID, styleName string) (StyleReference, bool)
	// BuildConsistencyPrompt prefixes basePrompt with any registered
	// character and style anchors. Unknown ids return basePrompt unchanged.
	BuildConsistencyPrompt(basePrompt, storyID, characterName, contentID, styleName string) string
}

type consistencyManager struct {
	log *logger.Logger

	mu         sync.RWMutex
	characters map[string]map[string]CharacterReference
	styles     map[string]map[string]StyleReference
}

func NewConsistencyManager(log *logger.Logger) ConsistencyManager {
	return &consistencyManager{
		log:        log.With("service", "ConsistencyManager"),
		characters: map[string]map[string]CharacterReference{},
		styles:     map[string]map[string]StyleReference{},
	}
}

func (cm *consistencyManager) RegisterCharacter(storyID, name, description, referenceURL string) {
	storyID = strings.TrimSpace(storyID)
	name = strings.TrimSpace(name)
	if storyID == "" || name == "" {
		return
	}
	cm.mu.Lock()
	if cm.characters[storyID] == nil {
		cm.characters[storyID] = map[string]CharacterReference{}
	}
	cm.characters[storyID][name] = CharacterReference{
		Description:  description,
		ReferenceURL: referenceURL,
		CreatedAt:    time.Now().UTC(),
	}
	cm.mu.Unlock()
	cm.log.Info("Registered character", "story_id", storyID, "character", name)
}

func (cm *consistencyManager) GetCharacter(storyID, name string) (CharacterReference, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	ref, ok := cm.characters[storyID][name]
	return ref, ok
}

func (cm *consistencyManager) RegisterStyle(contentID, styleName, description string) {
	contentID = strings.TrimSpace(contentID)
	styleName = strings.TrimSpace(styleName)
	if contentID == "" || styleName == "" {
		return
	}
	cm.mu.Lock()
	if cm.styles[contentID] == nil {
		cm.styles[contentID] = map[string]StyleReference{}
	}
	cm.styles[contentID][styleName] = StyleReference{
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	cm.mu.Unlock()
	cm.log.Info("Registered style", "content_id", contentID, "style", styleName)
}

func (cm *consistencyManager) GetStyle(contentID, styleName string) (StyleReference, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	ref, ok := cm.styles[contentID][styleName]
	return ref, ok
}

func (cm *consistencyManager) BuildConsistencyPrompt(basePrompt, storyID, characterName, contentID, styleName string) string {
	enhanced := basePrompt

	if storyID != "" && characterName != "" {
		if ref, ok := cm.GetCharacter(storyID, characterName); ok {
			enhanced = "Maintain consistent character appearance: " + ref.Description + ". " + enhanced
			if ref.ReferenceURL != "" {
				enhanced += " Reference the visual style from: " + ref.ReferenceURL
			}
		}
	}

	if contentID != "" && styleName != "" {
		if ref, ok := cm.GetStyle(contentID, styleName); ok {
			desc := ref.Description
			if strings.TrimSpace(desc) == "" {
				desc = styleName
			}
			enhanced = "Maintain consistent visual style: " + desc + ". " + enhanced
		}
	}

	return enhanced
}
