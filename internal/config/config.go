package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/progreview/progreview-api/pkg/logger"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Files     FilesConfig
	MinIO     MinIOConfig
	Settings  Settings
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MongoDBConfig is optional: an empty URI selects the in-memory repositories.
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
	// Login limiter: LoginLimit requests per LoginWindow per client.
	LoginLimit  int
	LoginWindow time.Duration
}

// FilesConfig controls revision file uploads.
type FilesConfig struct {
	// Backend is "disk" (Dir) or "minio".
	Backend           string
	Dir               string
	AllowedExtensions []string
	MaxFileSize       int64
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Settings are the fixed domain limits.
type Settings struct {
	SaltRounds           int
	MinUsernameLength    int
	MaxUsernameLength    int
	MaxProgramNameLength int
	MaxCommentLength     int
	ActionsPerPage       int
}

// DefaultSettings returns the stock domain limits.
func DefaultSettings() Settings {
	return Settings{
		SaltRounds:           12,
		MinUsernameLength:    4,
		MaxUsernameLength:    20,
		MaxProgramNameLength: 60,
		MaxCommentLength:     2000,
		ActionsPerPage:       150,
	}
}

// DefaultRevisionExtensions lists the file types accepted for revision uploads.
var DefaultRevisionExtensions = []string{".doc", ".docx", ".pdf", ".xls", ".xlsx", ".tif"}

// DefaultRevisionMaxFileSize is 50 MiB.
const DefaultRevisionMaxFileSize int64 = 50 << 20

// DefaultFiles returns the upload configuration used when nothing is set.
func DefaultFiles() FilesConfig {
	return FilesConfig{
		Backend:           "disk",
		Dir:               "uploads",
		AllowedExtensions: append([]string(nil), DefaultRevisionExtensions...),
		MaxFileSize:       DefaultRevisionMaxFileSize,
	}
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "progreview")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	// 20000 requests per 30 minute window, applied globally
	viper.SetDefault("RATE_LIMIT_RPS", 20000.0/1800.0)
	viper.SetDefault("RATE_LIMIT_BURST", 200)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1800)
	viper.SetDefault("LOGIN_RATE_LIMIT", 25)
	viper.SetDefault("LOGIN_RATE_WINDOW_MINUTES", 30)
	viper.SetDefault("FILE_BACKEND", "disk")
	viper.SetDefault("FILE_DIR", "uploads")
	viper.SetDefault("REVISION_MAX_FILE_SIZE", DefaultRevisionMaxFileSize)
	viper.SetDefault("MINIO_BUCKET", "progreview")

	exts := DefaultRevisionExtensions
	if raw := viper.GetString("REVISION_EXTENSIONS"); raw != "" {
		exts = splitExtensions(raw)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Keycloak: KeycloakConfig{
			URL:          viper.GetString("KEYCLOAK_URL"),
			Realm:        viper.GetString("KEYCLOAK_REALM"),
			ClientID:     viper.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret: viper.GetString("KEYCLOAK_CLIENT_SECRET"),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(viper.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			LoginLimit:    viper.GetInt("LOGIN_RATE_LIMIT"),
			LoginWindow:   time.Duration(viper.GetInt("LOGIN_RATE_WINDOW_MINUTES")) * time.Minute,
		},
		Files: FilesConfig{
			Backend:           strings.ToLower(viper.GetString("FILE_BACKEND")),
			Dir:               viper.GetString("FILE_DIR"),
			AllowedExtensions: exts,
			MaxFileSize:       viper.GetInt64("REVISION_MAX_FILE_SIZE"),
		},
		MinIO: MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
		},
		Settings: DefaultSettings(),
	}

	// Basic validation
	if cfg.JWT.Secret == "" {
		logger.Warnf("JWT_SECRET is not set; set a secure value in production")
	}
	if cfg.MongoDB.URI == "" {
		logger.Warnf("MONGODB_URI is not set; data is kept in memory only")
	}

	return cfg, nil
}

// AllowsExtension reports whether ext (with leading dot, any case) may be uploaded.
func (f FilesConfig) AllowsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range f.AllowedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func splitExtensions(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, ".") {
			p = "." + p
		}
		out = append(out, p)
	}
	return out
}
