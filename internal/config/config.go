// Package config centralizes how TrackFast reads its settings. A .env file is
// loaded first when present, then every value is resolved through viper from
// TRACKFAST_* variables, with the short legacy names (PORT, DATABASE_URL or
// MONGO_URI, JWT_SECRET, ADMIN_EMAIL, ADMIN_PASSWORD_HASH) accepted as aliases.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents runtime configuration for the API server, the worker and
// the CLI. Empty connection settings switch the matching feature off.
type Config struct {
	Address     string
	DatabaseURL string

	JWTSecret []byte
	TokenTTL  time.Duration

	AdminEmail        string
	AdminPasswordHash string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LoginLimit    int
	LoginWindow   time.Duration

	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3UseSSL      bool
	S3Region      string
	ArchiveURLTTL time.Duration

	WorkerConcurrency int

	TelegramToken  string
	TelegramChatID int64

	AllowedOrigins []string
}

const (
	envPrefix = "TRACKFAST"

	defaultPort           = "5000"
	defaultTokenTTL       = 2 * time.Hour
	defaultLoginLimit     = 5
	defaultLoginWindow    = 15 * time.Minute
	defaultS3Bucket       = "trackfast-archive"
	defaultS3Region       = "us-east-1"
	defaultArchiveURLTTL  = 15 * time.Minute
	defaultWorkerCount    = 4
	defaultAllowedOrigins = "*"
)

// aliases lists the unprefixed variable names each key also answers to.
var aliases = map[string][]string{
	"port":                {"PORT"},
	"database_url":        {"DATABASE_URL", "MONGO_URI"},
	"jwt_secret":          {"JWT_SECRET"},
	"admin_email":         {"ADMIN_EMAIL"},
	"admin_password_hash": {"ADMIN_PASSWORD_HASH"},
}

// Load reads .env (a missing file is fine) and resolves configuration from
// the environment, falling back to defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Address:           v.GetString("address"),
		DatabaseURL:       v.GetString("database_url"),
		JWTSecret:         []byte(v.GetString("jwt_secret")),
		TokenTTL:          v.GetDuration("token_ttl"),
		AdminEmail:        v.GetString("admin_email"),
		AdminPasswordHash: v.GetString("admin_password_hash"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		RedisDB:           v.GetInt("redis_db"),
		LoginLimit:        v.GetInt("login_limit"),
		LoginWindow:       v.GetDuration("login_window"),
		S3Endpoint:        v.GetString("s3_endpoint"),
		S3AccessKey:       v.GetString("s3_access_key"),
		S3SecretKey:       v.GetString("s3_secret_key"),
		S3Bucket:          v.GetString("s3_bucket"),
		S3UseSSL:          v.GetBool("s3_use_ssl"),
		S3Region:          v.GetString("s3_region"),
		ArchiveURLTTL:     v.GetDuration("archive_url_ttl"),
		WorkerConcurrency: v.GetInt("worker_concurrency"),
		TelegramToken:     v.GetString("telegram_token"),
		TelegramChatID:    v.GetInt64("telegram_chat_id"),
		AllowedOrigins:    parseList(v.GetString("allowed_origins")),
	}
	if cfg.Address == "" {
		cfg.Address = ":" + strings.TrimPrefix(v.GetString("port"), ":")
	}
	if len(cfg.JWTSecret) == 0 {
		log.Printf("config: JWT secret not set, generating a random one; tokens will not survive a restart")
		cfg.JWTSecret = randomSecret()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.LoginLimit <= 0 {
		cfg.LoginLimit = defaultLoginLimit
	}
	if cfg.LoginWindow <= 0 {
		cfg.LoginWindow = defaultLoginWindow
	}
	if cfg.ArchiveURLTTL <= 0 {
		cfg.ArchiveURLTTL = defaultArchiveURLTTL
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = defaultWorkerCount
	}
	return cfg, nil
}

// UseDatabase reports whether Postgres is configured. Without it the server
// keeps everything in memory.
func (c *Config) UseDatabase() bool { return c.DatabaseURL != "" }

// UseRedis reports whether Redis is configured for the task queue and the
// login throttle.
func (c *Config) UseRedis() bool { return c.RedisAddr != "" }

// ArchiveEnabled reports whether parcel snapshots go to object storage.
func (c *Config) ArchiveEnabled() bool { return c.S3Endpoint != "" }

// NotifyEnabled reports whether support messages are forwarded to Telegram.
func (c *Config) NotifyEnabled() bool { return c.TelegramToken != "" && c.TelegramChatID != 0 }

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", defaultPort)
	v.SetDefault("token_ttl", defaultTokenTTL)
	v.SetDefault("login_limit", defaultLoginLimit)
	v.SetDefault("login_window", defaultLoginWindow)
	v.SetDefault("s3_bucket", defaultS3Bucket)
	v.SetDefault("s3_region", defaultS3Region)
	v.SetDefault("archive_url_ttl", defaultArchiveURLTTL)
	v.SetDefault("worker_concurrency", defaultWorkerCount)
	v.SetDefault("allowed_origins", defaultAllowedOrigins)

	for key, names := range aliases {
		env := append([]string{envPrefix + "_" + strings.ToUpper(key)}, names...)
		if err := v.BindEnv(append([]string{key}, env...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return v, nil
}

func parseList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(fmt.Sprintf("config: read random secret: %v", err))
	}
	return buf
}
