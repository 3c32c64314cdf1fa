package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/services"
)

type fakeImages struct {
	last  services.ImageRequest
	calls int
	url   string
	err   error
}

func (f *fakeImages) Resolve(ctx context.Context, req services.ImageRequest) (string, error) {
	f.last = req
	f.calls++
	return f.url, f.err
}

type fakeConsistency struct {
	characters map[string]services.CharacterReference
}

func newFakeConsistency() *fakeConsistency {
	return &fakeConsistency{characters: map[string]services.CharacterReference{}}
}

func (f *fakeConsistency) RegisterCharacter(storyID, name, description, referenceURL string) {
	f.characters[storyID+"/"+name] = services.CharacterReference{Description: description, ReferenceURL: referenceURL}
}

func (f *fakeConsistency) GetCharacter(storyID, name string) (services.CharacterReference, bool) {
	ref, ok := f.characters[storyID+"/"+name]
	return ref, ok
}

func (f *fakeConsistency) RegisterStyle(contentID, styleName, description string) {}

func (f *fakeConsistency) GetStyle(contentID, styleName string) (services.StyleReference, bool) {
	return services.StyleReference{}, false
}

func (f *fakeConsistency) BuildConsistencyPrompt(basePrompt, storyID, characterName, contentID, styleName string) string {
	return basePrompt
}

func newImageRouter(t *testing.T, images *fakeImages, consistency services.ConsistencyManager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	h := NewImageHandler(log, images, consistency)
	router := gin.New()
	router.POST("/image", h.Generate)
	router.POST("/image/consistent", h.GenerateConsistent)
	return router
}

func TestImageGenerateResolvesPrompt(t *testing.T) {
	images := &fakeImages{url: "https://img.example.com/fox.png"}
	router := newImageRouter(t, images, newFakeConsistency())

	w := postJSON(t, router, "/image", gin.H{"prompt": "a friendly fox", "level": "beginner"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	if images.last.Prompt != "a friendly fox" || !images.last.UseCache {
		t.Fatalf("unexpected request: %+v", images.last)
	}
}

func TestImageGenerateRejectsUnsafePrompt(t *testing.T) {
	images := &fakeImages{url: "https://img.example.com/x.png"}
	router := newImageRouter(t, images, newFakeConsistency())

	w := postJSON(t, router, "/image", gin.H{"prompt": "a battle with blood everywhere"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusBadRequest, w.Code, w.Body.String())
	}
	if images.calls != 0 {
		t.Fatal("rejected prompt must not reach generation")
	}
}

func TestImageGenerateBeginnerRejectsFrighteningPrompt(t *testing.T) {
	images := &fakeImages{url: "https://img.example.com/x.png"}
	router := newImageRouter(t, images, newFakeConsistency())

	w := postJSON(t, router, "/image", gin.H{"prompt": "a scary haunted house", "level": "beginner"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, w.Code)
	}

	w = postJSON(t, router, "/image", gin.H{"prompt": "a scary haunted house", "level": "intermediate"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
}

func TestImageConsistentRejectsUnsafePrompt(t *testing.T) {
	images := &fakeImages{url: "https://img.example.com/x.png"}
	router := newImageRouter(t, images, newFakeConsistency())

	w := postJSON(t, router, "/image/consistent", gin.H{
		"prompt":         "nude portrait",
		"character_name": "Robo",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, w.Code)
	}
	if images.calls != 0 {
		t.Fatal("rejected prompt must not reach generation")
	}
}
