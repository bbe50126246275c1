package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"proficiency-scoring/internal/adapter"
	"proficiency-scoring/internal/adapter/transcriber"
	"proficiency-scoring/internal/aggregator"
	"proficiency-scoring/internal/audioquality"
	"proficiency-scoring/internal/cache"
	"proficiency-scoring/internal/config"
	"proficiency-scoring/internal/database"
	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/handler"
	"proficiency-scoring/internal/integrity"
	"proficiency-scoring/internal/lexicon"
	"proficiency-scoring/internal/logger"
	"proficiency-scoring/internal/matcher"
	"proficiency-scoring/internal/middleware"
	"proficiency-scoring/internal/repository"
	"proficiency-scoring/internal/service"
	"proficiency-scoring/internal/speaking"
)

func loadLexicon(path string) (*lexicon.Lexicon, error) {
	if path == "" {
		return lexicon.Default()
	}
	return lexicon.Load(path)
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	lex, err := loadLexicon(cfg.Lexicon.Path)
	if err != nil {
		appLogger.Fatal("Failed to load lexicon", zap.String("path", cfg.Lexicon.Path), zap.Error(err))
	}
	appLogger.Info("Lexicon loaded", zap.String("version", lex.Version()))

	// Connect to database
	db, err := database.NewSQLXOracleDB(cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	questionRepository := repository.NewQuestionRepository(db)
	responseRepository := repository.NewResponseRepository(db)
	sessionRepository := repository.NewSessionRepository(db)
	txManager := repository.NewTransactionManagerAdapter(db)

	// Redis is optional; without it duplicate claims fall back to the
	// database constraint and integrity signals are not recorded.
	var cacheAdapter domain.Cache
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		appLogger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
	} else {
		appLogger.Info("Successfully connected to Redis")
		cacheAdapter = adapter.NewRedisCacheAdapter(redisClient)
		defer redisClient.Close()
	}

	var stt domain.Transcriber
	if cfg.Transcription.APIKey != "" {
		stt = transcriber.NewWhisperTranscriber(cfg.Transcription.BaseURL, cfg.Transcription.APIKey,
			cfg.Transcription.Model, cfg.Transcription.Language)
		appLogger.Info("Whisper transcriber initialized", zap.String("model", cfg.Transcription.Model))
	} else {
		appLogger.Warn("No transcription API key configured. Recordings get fallback scores.")
	}
	transcriptionService := service.NewTranscriptionService(stt, service.TranscriptionPolicy{
		Timeout:           cfg.Transcription.Timeout,
		MaxAttempts:       cfg.Transcription.MaxAttempts,
		InitialBackoff:    cfg.Transcription.InitialBackoff,
		BackoffMultiplier: cfg.Transcription.BackoffMultiplier,
	})

	// Scoring engines
	answerMatcher := matcher.New(cfg.MatcherConfig())
	speakingScorer := speaking.NewScorer(lex, cfg.SpeakingConfig())
	audioAnalyzer := audioquality.NewAnalyzer(cfg.AudioConfig())
	integrityScorer := integrity.NewScorer(cfg.IntegrityConfig())
	resultAggregator := aggregator.New(cfg.AggregatorConfig())

	// Initialize services
	integrityService := service.NewIntegrityService(cacheAdapter, sessionRepository, integrityScorer, cfg.Cache.SignalsTTL)
	resultCache := service.NewResultCacheService(cacheAdapter, cfg.Cache.ResultTTL)
	scoringService := service.NewScoringService(
		questionRepository, responseRepository, sessionRepository, cacheAdapter,
		answerMatcher, speakingScorer, audioAnalyzer, transcriptionService,
		service.ScoringOptions{
			SpeakingCorrectPercent: cfg.Scoring.SpeakingCorrectPercent,
			RejectUnusableAudio:    cfg.Audio.RejectUnusable,
			AcceptTypedTranscript:  cfg.Scoring.AcceptTypedTranscript,
			ClaimTTL:               cfg.Cache.ClaimTTL,
		},
	)
	sessionService := service.NewSessionService(sessionRepository, questionRepository, responseRepository,
		txManager, integrityService, resultAggregator, resultCache)

	authService, err := service.NewAuthService(cfg.Auth.AdminJWTSecret)
	if err != nil {
		appLogger.Fatal("Failed to create AuthService", zap.Error(err))
	}
	appLogger.Info("Services initialized")

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept,Authorization", MaxAge: 300}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		cacheStatus := "disabled"
		if cacheAdapter != nil {
			cacheStatus = "ok"
			if err := cacheAdapter.Ping(c.UserContext()); err != nil {
				cacheStatus = "unavailable"
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "cache": cacheStatus, "lexicon_version": lex.Version()})
	})

	handler.SetupRoutes(app, handler.Handlers{
		Scoring: handler.NewScoringHandler(scoringService, integrityService),
		Session: handler.NewSessionHandler(sessionService, integrityService),
		Admin:   handler.NewAdminHandler(integrityService),
	}, authService)

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", os.Getenv("ENV")))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
