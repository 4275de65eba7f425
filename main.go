package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/progreview/progreview-api/handlers"
	"github.com/progreview/progreview-api/internal/actionlog"
	"github.com/progreview/progreview-api/internal/config"
	"github.com/progreview/progreview-api/internal/database"
	"github.com/progreview/progreview-api/internal/department"
	dochandler "github.com/progreview/progreview-api/internal/document/handler"
	docrepo "github.com/progreview/progreview-api/internal/document/repository"
	docservice "github.com/progreview/progreview-api/internal/document/service"
	"github.com/progreview/progreview-api/internal/oidc"
	"github.com/progreview/progreview-api/internal/sessions"
	"github.com/progreview/progreview-api/internal/storage"
	"github.com/progreview/progreview-api/internal/tokens"
	"github.com/progreview/progreview-api/internal/users"
	"github.com/progreview/progreview-api/pkg/logger"
	"github.com/progreview/progreview-api/pkg/metrics"
	"github.com/progreview/progreview-api/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

// pinger is implemented by file stores that can report reachability.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v files=%s", cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Files.Backend)

	ctx := context.Background()

	r := gin.New()
	r.Use(cors())
	r.Use(gin.Logger(), gin.Recovery())

	// Redis backs the token blacklist, sessions and the shared rate limiters.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		} else {
			redisClient = rc
			sessions.SetBlacklistClient(rc)
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, time.Second)
		if err != nil {
			logger.Warnf("%v; falling back to in-memory repositories", err)
		} else {
			mongoClient = client
			defer func() { _ = client.Disconnect(context.Background()) }()
		}
	}

	files, err := openFileStore(cfg)
	if err != nil {
		logger.Fatalf("failed to open file store: %v", err)
	}

	var (
		actionRepo  actionlog.Repository            = actionlog.NewMemoryRepository()
		userRepo    users.UserRepository            = users.NewMemoryUserRepository()
		sessionRepo sessions.Repository             = sessions.NewMemoryRepository()
		deptRepo    department.DepartmentRepository = department.NewMemoryDepartmentRepository()
		progRepo    department.ProgramRepository    = department.NewMemoryProgramRepository()
		docs        docrepo.Repository              = docrepo.NewMemoryRepo()
		comments    docrepo.CommentRepository       = docrepo.NewMemoryCommentRepo()
	)
	if mongoClient != nil {
		db := mongoClient.Database(cfg.MongoDB.Database)
		ar := actionlog.NewMongoRepository(db.Collection("actions"))
		ur := users.NewMongoUserRepository(db.Collection("users"))
		pr := department.NewMongoProgramRepository(db.Collection("programs"))
		cr := docrepo.NewMongoCommentRepo(db.Collection("comments"))
		sr := sessions.NewMongoRepository(db.Collection("sessions"))
		for name, ensure := range map[string]func(context.Context) error{
			"actions":  ar.EnsureIndexes,
			"users":    ur.EnsureIndexes,
			"programs": pr.EnsureIndexes,
			"comments": cr.EnsureIndexes,
			"sessions": sr.EnsureIndexes,
		} {
			if err := ensure(ctx); err != nil {
				logger.Warnf("failed to ensure %s indexes: %v", name, err)
			}
		}
		actionRepo, userRepo, progRepo, comments, sessionRepo = ar, ur, pr, cr, sr
		deptRepo = department.NewMongoDepartmentRepository(db.Collection("departments"))
		docs = docrepo.NewMongoRepo(db.Collection("documents"))
	}
	// Redis sessions take precedence: they expire on their own and are fast.
	if redisClient != nil {
		sessionRepo = sessions.NewRedisRepository(redisClient, "session:")
		logger.Infof("Using Redis for session storage")
	}

	actionSvc := actionlog.NewService(actionRepo, cfg.Settings.ActionsPerPage)
	userSvc := users.NewService(userRepo, cfg.Settings, actionSvc)
	sessionsSvc := sessions.NewService(sessionRepo, cfg.JWT.RefreshTokenTTL)
	deptSvc := department.NewService(deptRepo, progRepo, userSvc, actionSvc, cfg.Settings.MaxProgramNameLength)
	docSvc := docservice.New(docs, comments, files, docservice.Options{
		Files:            cfg.Files,
		MaxCommentLength: cfg.Settings.MaxCommentLength,
		Actions:          actionSvc,
	})

	// Local tokens first, then the optional Keycloak realm.
	chain := middleware.ChainVerifier{tokens.NewVerifier(cfg.JWT.Secret)}
	oidcReady := true
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, oidc.Issuer(cfg.Keycloak.URL, cfg.Keycloak.Realm), cfg.Keycloak.ClientID)
		if err != nil {
			oidcReady = false
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			chain = append(chain, ver)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// ready only when every configured dependency answers
	r.GET("/ready", func(c *gin.Context) {
		pctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps := map[string]bool{"oidc": oidcReady, "mongo": true, "redis": true, "files": true}
		if cfg.MongoDB.URI != "" {
			deps["mongo"] = mongoClient != nil && mongoClient.Ping(pctx, nil) == nil
		}
		if cfg.Redis.Host != "" {
			deps["redis"] = redisClient != nil && redisClient.Ping(pctx).Err() == nil
		}
		if p, ok := files.(pinger); ok {
			deps["files"] = p.Ping(pctx) == nil
		}
		status, code := "ready", http.StatusOK
		for _, ok := range deps {
			if !ok {
				status, code = "not_ready", http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handlers.NewAuthHandler(cfg, userSvc, sessionsSvc).
		Register(r.Group("/"), middleware.LoginRateLimitMiddleware(redisClient, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow))
	handlers.RegisterSwagger(r)

	api := r.Group("/api", middleware.AuthMiddleware(chain))
	admin := middleware.AllowGroups("Administrators")
	users.NewHandler(userSvc).Register(api, admin)
	department.RegisterRoutes(api.Group("", admin), deptSvc)
	actionlog.RegisterRoutes(api.Group("", admin), actionSvc)
	dochandler.RegisterDocumentRoutes(api, docSvc, cfg.Files.MaxFileSize)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("Starting progreview-api on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

func openFileStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Files.Backend {
	case "minio":
		return storage.NewMinIOStorage(cfg.MinIO)
	case "", "disk":
		return storage.NewDiskStorage(cfg.Files.Dir)
	default:
		return nil, fmt.Errorf("unknown FILE_BACKEND %q", cfg.Files.Backend)
	}
}

// cors sets permissive headers for browser clients and answers preflight requests.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		h.Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
