package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/services"
)

type generateRequestBody struct {
	InputText  string `json:"input_text"`
	Level      string `json:"level"`
	ImageStyle string `json:"image_style"`
}

// StoryHandler serves story generation.
type StoryHandler struct {
	log     *logger.Logger
	stories services.StoryService
}

func NewStoryHandler(log *logger.Logger, stories services.StoryService) *StoryHandler {
	return &StoryHandler{
		log:     log.With("handler", "StoryHandler"),
		stories: stories,
	}
}

// POST /story
func (h *StoryHandler) Generate(c *gin.Context) {
	var body generateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	story, err := h.stories.Generate(c.Request.Context(), body.InputText, body.Level, body.ImageStyle)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "story_failed", err)
		return
	}
	RespondOK(c, story)
}

// ComicHandler serves comic generation.
type ComicHandler struct {
	log    *logger.Logger
	comics services.ComicService
}

func NewComicHandler(log *logger.Logger, comics services.ComicService) *ComicHandler {
	return &ComicHandler{
		log:    log.With("handler", "ComicHandler"),
		comics: comics,
	}
}

// POST /comic
func (h *ComicHandler) Generate(c *gin.Context) {
	var body generateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	comic, err := h.comics.Generate(c.Request.Context(), body.InputText, body.Level, body.ImageStyle)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "comic_failed", err)
		return
	}
	RespondOK(c, comic)
}

// LectureHandler serves narrated lecture generation.
type LectureHandler struct {
	log      *logger.Logger
	lectures services.LectureService
}

func NewLectureHandler(log *logger.Logger, lectures services.LectureService) *LectureHandler {
	return &LectureHandler{
		log:      log.With("handler", "LectureHandler"),
		lectures: lectures,
	}
}

// POST /lecture
func (h *LectureHandler) Generate(c *gin.Context) {
	var body generateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	lecture, err := h.lectures.Generate(c.Request.Context(), body.InputText, body.Level, body.ImageStyle)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lecture_failed", err)
		return
	}
	RespondOK(c, lecture)
}

// StudyAidHandler serves the standalone flashcard and slideshow routes.
type StudyAidHandler struct {
	log        *logger.Logger
	flashcards services.FlashcardService
	slideshows services.SlideshowService
}

func NewStudyAidHandler(log *logger.Logger, flashcards services.FlashcardService, slideshows services.SlideshowService) *StudyAidHandler {
	return &StudyAidHandler{
		log:        log.With("handler", "StudyAidHandler"),
		flashcards: flashcards,
		slideshows: slideshows,
	}
}

// POST /flashcards
func (h *StudyAidHandler) Flashcards(c *gin.Context) {
	var body generateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	cards, _, err := h.flashcards.Generate(c.Request.Context(), body.InputText)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "flashcards_failed", err)
		return
	}
	RespondOK(c, gin.H{"flashcards": cards})
}

// POST /slideshow
func (h *StudyAidHandler) Slideshow(c *gin.Context) {
	var body generateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	slides, _, err := h.slideshows.Generate(c.Request.Context(), body.InputText)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "slideshow_failed", err)
		return
	}
	RespondOK(c, gin.H{"slides": slides})
}
