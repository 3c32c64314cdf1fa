package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/services"
)

type fakeCharacterChat struct {
	last     services.CharacterChatRequest
	response string
	err      error
}

func (f *fakeCharacterChat) Respond(ctx context.Context, req services.CharacterChatRequest) (string, error) {
	f.last = req
	return f.response, f.err
}

func newChatRouter(t *testing.T, chat *fakeCharacterChat, consistency services.ConsistencyManager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	h := NewCharacterChatHandler(log, chat, consistency)
	router := gin.New()
	router.POST("/character/chat", h.Chat)
	return router
}

func TestCharacterChatRespondsWithCharacter(t *testing.T) {
	chat := &fakeCharacterChat{response: "Beep boop!"}
	router := newChatRouter(t, chat, newFakeConsistency())

	w := postJSON(t, router, "/character/chat", gin.H{
		"character_name": "Robo",
		"user_message":   "Hi!",
		"comic_title":    "Robo Saves the Day",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	var body struct {
		Response  string `json:"response"`
		Character string `json:"character"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Response != "Beep boop!" || body.Character != "Robo" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if chat.last.ComicTitle != "Robo Saves the Day" {
		t.Fatalf("comic title not forwarded: %+v", chat.last)
	}
}

func TestCharacterChatRequiresNameAndMessage(t *testing.T) {
	router := newChatRouter(t, &fakeCharacterChat{response: "x"}, newFakeConsistency())

	w := postJSON(t, router, "/character/chat", gin.H{"user_message": "Hi!"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, w.Code)
	}
}

func TestCharacterChatFillsDescriptionFromRegistry(t *testing.T) {
	chat := &fakeCharacterChat{response: "Beep!"}
	consistency := newFakeConsistency()
	consistency.RegisterCharacter("story-1", "Robo", "a small silver robot", "")
	router := newChatRouter(t, chat, consistency)

	w := postJSON(t, router, "/character/chat", gin.H{
		"character_name": "Robo",
		"user_message":   "Hi!",
		"story_id":       "story-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	if chat.last.CharacterDescription != "a small silver robot" {
		t.Fatalf("registry description not applied: %+v", chat.last)
	}
}
