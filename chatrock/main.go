package main

import (
	"chatrock/chatrock/config"
	"chatrock/chatrock/controllers"
	"chatrock/chatrock/routes"
	"chatrock/chatrock/services/catalog"
	"chatrock/chatrock/services/llm"
	"chatrock/chatrock/services/turn"
	"chatrock/chatrock/sources/memory"
	"chatrock/chatrock/sources/psql"
	"chatrock/chatrock/sources/psql/dao"
	"chatrock/chatrock/sources/storage"
	"chatrock/chatrock/sources/transcript"
	"chatrock/chatrock/utils/logging"
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logging.InitLogger(cfg.LogDir)
	defer logging.Sync()

	if err := cfg.Validate(); err != nil {
		logging.ErrorLogger.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := catalog.Load(cfg.ModelCatalogPath, cfg.DefaultModelID)
	if err != nil {
		logging.ErrorLogger.Error("model catalog error", zap.Error(err))
		os.Exit(1)
	}

	var (
		store  transcript.Store
		users  controllers.UserStore
		health controllers.Pinger
	)
	switch cfg.TranscriptStore {
	case "memory":
		store = memory.NewStore()
		users = memory.NewUsers()
		logging.AppLogger.Info("Using in-memory transcript store")
	default:
		db, err := psql.NewDatabase(ctx, cfg)
		if err != nil {
			logging.ErrorLogger.Error("database connection error", zap.Error(err))
			os.Exit(1)
		}
		defer db.Close()
		store = dao.NewTranscriptDAO(db.DB)
		users = dao.NewUserDAO(db.DB)
		health = db
	}

	var gateway llm.Gateway
	switch cfg.InferenceProvider {
	case "stub":
		gateway = llm.NewStubClient()
	default:
		bedrock, err := llm.NewBedrockClient(ctx, cfg)
		if err != nil {
			logging.ErrorLogger.Error("bedrock client error", zap.Error(err))
			os.Exit(1)
		}
		gateway = bedrock
	}

	var archive controllers.Archiver
	if cfg.MinIOEndpoint != "" {
		minioClient, err := storage.NewMinIOClient(ctx, cfg)
		if err != nil {
			logging.ErrorLogger.Error("minio connection error", zap.Error(err))
			os.Exit(1)
		}
		archive = minioClient
	}

	proc := turn.NewProcessor(models, store, gateway, turn.WithTitleGeneration(cfg.TitleGeneration))
	handler := routes.NewRouter(cfg, routes.Controllers{
		Auth:   controllers.NewAuthController(users, cfg),
		Chat:   controllers.NewChatController(proc, store, archive),
		Models: controllers.NewModelsController(models),
		Health: controllers.NewHealthController(health),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.AppLogger.Info("Server listening",
			zap.String("addr", cfg.ServerAddr),
			zap.String("store", cfg.TranscriptStore),
			zap.String("inference", cfg.InferenceProvider),
			zap.String("default_model", models.DefaultID()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
