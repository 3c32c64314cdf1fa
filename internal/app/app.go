package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/orasync/orasync-backend/internal/handlers"
	"github.com/orasync/orasync-backend/internal/middleware"
	"github.com/orasync/orasync-backend/internal/observability"
	"github.com/orasync/orasync-backend/internal/platform/gcs"
	"github.com/orasync/orasync-backend/internal/platform/genai"
	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/platform/push"
	"github.com/orasync/orasync-backend/internal/platform/tts"
	"github.com/orasync/orasync-backend/internal/progress"
	"github.com/orasync/orasync-backend/internal/server"
	"github.com/orasync/orasync-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	Router   *gin.Engine
	Cfg      Config
	Services Services

	otelShutdown func(context.Context) error
	ttsClose     func() error
}

// Services holds the wired service set so tests and callers can reach
// individual pieces.
type Services struct {
	GenAI       genai.Client
	Bucket      gcs.BucketService
	TTS         tts.Synthesizer
	Push        push.Notifier
	Progress    progress.Store
	ImageCache  services.ImageCache
	Consistency services.ConsistencyManager
	Renderer    services.PlaceholderRenderer
	Images      services.ImageService
	Documents   services.DocumentService
	Flashcards  services.FlashcardService
	Slideshows  services.SlideshowService
	Stories     services.StoryService
	Comics      services.ComicService
	Lectures    services.LectureService
	Chat        services.CharacterChatService
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	svc, ttsClose, err := wireServices(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	router := wireRouter(log, cfg, svc)

	return &App{
		Log:          log,
		Router:       router,
		Cfg:          cfg,
		Services:     svc,
		otelShutdown: otelShutdown,
		ttsClose:     ttsClose,
	}, nil
}

func wireServices(log *logger.Logger) (Services, func() error, error) {
	genClient, err := genai.NewClient(log)
	if err != nil {
		return Services{}, nil, fmt.Errorf("init genai client: %w", err)
	}
	bucket, err := gcs.NewBucketService(log)
	if err != nil {
		return Services{}, nil, fmt.Errorf("init bucket service: %w", err)
	}
	synth, err := tts.NewSynthesizer(log)
	if err != nil {
		return Services{}, nil, fmt.Errorf("init tts synthesizer: %w", err)
	}
	renderer, err := services.NewPlaceholderRenderer(log)
	if err != nil {
		return Services{}, nil, fmt.Errorf("init placeholder renderer: %w", err)
	}

	notifier := push.NewNotifier(log)
	progressStore := progress.NewStore(log)
	imageCache := services.NewImageCache(log)
	consistency := services.NewConsistencyManager(log)
	images := services.NewImageService(log, genClient, bucket, imageCache, consistency, renderer)

	svc := Services{
		GenAI:       genClient,
		Bucket:      bucket,
		TTS:         synth,
		Push:        notifier,
		Progress:    progressStore,
		ImageCache:  imageCache,
		Consistency: consistency,
		Renderer:    renderer,
		Images:      images,
		Documents:   services.NewDocumentService(log, genClient, images, progressStore, notifier),
		Flashcards:  services.NewFlashcardService(log, genClient),
		Slideshows:  services.NewSlideshowService(log, genClient),
		Stories:     services.NewStoryService(log, genClient, images, consistency),
		Comics:      services.NewComicService(log, genClient, images, consistency),
		Lectures:    services.NewLectureService(log, genClient, images, synth, bucket),
		Chat:        services.NewCharacterChatService(log, genClient),
	}
	return svc, synth.Close, nil
}

func wireRouter(log *logger.Logger, cfg Config, svc Services) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:          cfg.ServiceName,
		Limiter:              middleware.NewGenerationLimiter(log),
		ProcessHandler:       handlers.NewProcessHandler(log, svc.Documents, svc.Flashcards, svc.Slideshows),
		StoryHandler:         handlers.NewStoryHandler(log, svc.Stories),
		ComicHandler:         handlers.NewComicHandler(log, svc.Comics),
		LectureHandler:       handlers.NewLectureHandler(log, svc.Lectures),
		StudyAidHandler:      handlers.NewStudyAidHandler(log, svc.Flashcards, svc.Slideshows),
		ImageHandler:         handlers.NewImageHandler(log, svc.Images, svc.Consistency),
		TTSHandler:           handlers.NewTTSHandler(log, svc.TTS, svc.Bucket),
		CharacterChatHandler: handlers.NewCharacterChatHandler(log, svc.Chat, svc.Consistency),
		ProgressHandler:      handlers.NewProgressHandler(log, svc.Progress),
	})
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Starting server", "addr", addr)
	return a.Router.Run(addr)
}

func (a *App) Shutdown(ctx context.Context) {
	if a == nil {
		return
	}
	if a.ttsClose != nil {
		if err := a.ttsClose(); err != nil {
			a.Log.Warn("tts close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
