package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/config"
	"alfredoptarigan/resume-matcher/internal/handlers"
	applog "alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := applog.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Invalid configuration", zap.Error(err))
	}
	log.Info("✅ Config loaded successfully", zap.String("env", cfg.Server.Env))

	ctx := context.Background()

	// Initialize repositories
	batchRepo, userRepo := initRepositories(cfg, log)
	log.Info("✅ Repositories initialized successfully", zap.String("driver", cfg.Database.Driver))

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatal("❌ Failed to create upload directory", zap.Error(err))
	}

	extractor := services.NewTextExtractor()
	pdfParser := services.NewPDFParserService()

	normalizer, err := services.NewNormalizer()
	if err != nil {
		log.Fatal("❌ Failed to initialize normalizer", zap.Error(err))
	}

	classifier, err := services.LoadClassifier(extractor, cfg.Classifier.VectorizerPath, cfg.Classifier.ModelPath)
	if err != nil {
		log.Fatal("❌ Failed to load classifier artifacts", zap.Error(err))
	}
	log.Info("✅ Classifier loaded successfully")

	embedder, err := services.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		log.Fatal("❌ Failed to initialize embedder", zap.Error(err))
	}
	log.Info("✅ Embedder initialized successfully",
		zap.String("provider", cfg.Embedding.Provider),
		zap.Int("dimension", embedder.Dimension()),
	)

	ranker, err := initRanker(ctx, cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize ranker", zap.Error(err))
	}
	log.Info("✅ Ranker initialized successfully", zap.String("ranker", cfg.Qdrant.Ranker))

	matcher := services.NewMatcherService(
		extractor,
		pdfParser,
		normalizer,
		classifier,
		embedder,
		ranker,
		cfg.Storage.ResumeExtension,
		log,
	)

	authService := services.NewAuthService(userRepo, jwtSecret(cfg, log), cfg.Auth.TokenTTL, log)
	seeded, err := authService.SeedUsers(cfg.Auth.UsersFile, cfg.Server.Env == "development")
	if err != nil {
		log.Fatal("❌ Failed to seed users", zap.Error(err))
	}
	log.Info("✅ Services initialized successfully", zap.Int("users", seeded))

	// Start janitor
	janitor := services.NewJanitor(
		batchRepo,
		storageService,
		cfg.Storage.CleanupInterval,
		cfg.Storage.MaxBatches,
		cfg.Storage.QueuedTimeout,
		log,
	)
	janitor.Start(ctx)

	// Initialize Handlers
	routes := handlers.Routes{
		Upload: handlers.NewUploadHandler(
			batchRepo,
			storageService,
			matcher,
			cfg.Storage.MaxFileSize,
			cfg.Storage.BatchTTL,
			log,
		),
		Download:    handlers.NewDownloadHandler(batchRepo, storageService, cfg.Storage.BatchTTL, log),
		Auth:        handlers.NewAuthHandler(authService, log),
		AuthService: authService,
		RequireAuth: cfg.Auth.Enabled,
	}
	log.Info("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Resume Matcher API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		BodyLimit:    bodyLimit(cfg),
		UnescapePath: true,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	handlers.Register(app, routes)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("🛑 Shutting down server...")
		janitor.Stop()
		if err := app.Shutdown(); err != nil {
			log.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		log.Fatal("❌ Failed to start server", zap.Error(err))
	}
}

func initRepositories(cfg *config.Config, log *zap.Logger) (repositories.BatchRepository, repositories.UserRepository) {
	if cfg.Database.Driver == config.DriverMemory {
		return repositories.NewMemoryBatchRepository(), repositories.NewMemoryUserRepository()
	}

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize database", zap.Error(err))
	}
	return repositories.NewBatchRepository(db), repositories.NewUserRepository(db)
}

func initRanker(ctx context.Context, cfg *config.Config, log *zap.Logger) (services.Ranker, error) {
	if cfg.Qdrant.Ranker != config.RankerQdrant {
		return services.NewCosineRanker(), nil
	}

	return services.NewQdrantRanker(
		ctx,
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		cfg.Embedding.Dimension,
		log,
	)
}

// jwtSecret falls back to a per-process secret when none is configured.
func jwtSecret(cfg *config.Config, log *zap.Logger) string {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatal("❌ Failed to generate JWT secret", zap.Error(err))
	}
	log.Warn("⚠️  JWT_SECRET not set, tokens will not survive a restart")
	return hex.EncodeToString(buf)
}

// bodyLimit leaves room for a full batch of maximum-size resumes.
func bodyLimit(cfg *config.Config) int {
	const maxFilesPerRequest = 100
	return int(cfg.Storage.MaxFileSize) * maxFilesPerRequest
}
