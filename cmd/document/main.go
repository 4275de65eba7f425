// Command document runs the documents and comments API on its own, without
// users, departments or the action log. Tokens issued by the main API
// (same JWT_SECRET) are accepted.
package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/progreview/progreview-api/internal/config"
	"github.com/progreview/progreview-api/internal/database"
	"github.com/progreview/progreview-api/internal/document/handler"
	"github.com/progreview/progreview-api/internal/document/repository"
	"github.com/progreview/progreview-api/internal/document/service"
	"github.com/progreview/progreview-api/internal/sessions"
	"github.com/progreview/progreview-api/internal/storage"
	"github.com/progreview/progreview-api/internal/tokens"
	"github.com/progreview/progreview-api/pkg/logger"
	"github.com/progreview/progreview-api/pkg/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	port := os.Getenv("DOC_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if cfg.Redis.Host != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := rc.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("redis unavailable, logout blacklist not enforced: %v", err)
		} else {
			sessions.SetBlacklistClient(rc)
		}
	}

	var files storage.Store
	if cfg.Files.Backend == "minio" {
		files, err = storage.NewMinIOStorage(cfg.MinIO)
	} else {
		files, err = storage.NewDiskStorage(cfg.Files.Dir)
	}
	if err != nil {
		logger.Fatalf("failed to open file store: %v", err)
	}

	opts := service.Options{Files: cfg.Files, MaxCommentLength: cfg.Settings.MaxCommentLength}
	var svc service.Service
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectWithRetry(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.Timeout, 3, time.Second)
		if err != nil {
			logger.Warnf("%v; using memory-backed repositories", err)
			svc = service.NewMemoryService(files, opts)
		} else {
			defer func() { _ = client.Disconnect(context.Background()) }()
			db := client.Database(cfg.MongoDB.Database)
			comments := repository.NewMongoCommentRepo(db.Collection("comments"))
			if err := comments.EnsureIndexes(context.Background()); err != nil {
				logger.Warnf("failed to ensure comment indexes: %v", err)
			}
			svc = service.New(repository.NewMongoRepo(db.Collection("documents")), comments, files, opts)
		}
	} else {
		svc = service.NewMemoryService(files, opts)
	}

	api := r.Group("/api", middleware.AuthMiddleware(tokens.NewVerifier(cfg.JWT.Secret)))
	handler.RegisterDocumentRoutes(api, svc, cfg.Files.MaxFileSize)

	logger.Infof("document service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
