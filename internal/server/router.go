package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/orasync/orasync-backend/internal/handlers"
	"github.com/orasync/orasync-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName string

	Limiter *middleware.GenerationLimiter

	ProcessHandler       *handlers.ProcessHandler
	StoryHandler         *handlers.StoryHandler
	ComicHandler         *handlers.ComicHandler
	LectureHandler       *handlers.LectureHandler
	StudyAidHandler      *handlers.StudyAidHandler
	ImageHandler         *handlers.ImageHandler
	TTSHandler           *handlers.TTSHandler
	CharacterChatHandler *handlers.CharacterChatHandler
	ProgressHandler      *handlers.ProgressHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/progress/:id", cfg.ProgressHandler.Get)

	// Generation routes share a concurrency cap.
	gen := router.Group("/")
	gen.Use(cfg.Limiter.Limit())
	gen.POST("/process", cfg.ProcessHandler.Process)
	gen.POST("/story", cfg.StoryHandler.Generate)
	gen.POST("/comic", cfg.ComicHandler.Generate)
	gen.POST("/lecture", cfg.LectureHandler.Generate)
	gen.POST("/flashcards", cfg.StudyAidHandler.Flashcards)
	gen.POST("/slideshow", cfg.StudyAidHandler.Slideshow)
	gen.POST("/image", cfg.ImageHandler.Generate)
	gen.POST("/image/consistent", cfg.ImageHandler.GenerateConsistent)
	gen.POST("/tts", cfg.TTSHandler.Synthesize)
	gen.POST("/character/chat", cfg.CharacterChatHandler.Chat)

	return router
}
