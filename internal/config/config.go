package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Synchronous ceiling for one remote transcription call.
	defaultRemoteTimeout = 600 * time.Second

	defaultPort      = "8080"
	defaultUploadDir = "/tmp/transcriber"
	defaultWorkers   = 4
)

// ForwardMode selects how audio reaches the remote worker.
const (
	ForwardInline = "inline" // multipart body with the file bytes
	ForwardURL    = "url"    // public blob-store URL only
)

type S3 struct {
	Bucket        string
	Region        string
	Endpoint      string // optional, for S3-compatible stores
	AccessKey     string
	SecretKey     string
	PublicBaseURL string // optional, overrides the derived object URL base
}

type Config struct {
	Port          string
	DatabaseURL   string
	AccessCodes   []string
	WorkerURL     string // default remote endpoint, overridable via the store
	RemoteTimeout time.Duration
	UploadDir     string
	ForwardMode   string
	Workers       int
	S3            S3
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getenv("PORT", defaultPort),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		WorkerURL:     os.Getenv("WHISPER_URL"),
		RemoteTimeout: defaultRemoteTimeout,
		UploadDir:     getenv("UPLOAD_DIR", defaultUploadDir),
		ForwardMode:   getenv("FORWARD_MODE", ForwardInline),
		Workers:       defaultWorkers,
		S3: S3{
			Bucket:        os.Getenv("S3_BUCKET"),
			Region:        getenv("S3_REGION", "us-east-1"),
			Endpoint:      os.Getenv("S3_ENDPOINT"),
			AccessKey:     os.Getenv("S3_ACCESS_KEY"),
			SecretKey:     os.Getenv("S3_SECRET_KEY"),
			PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		},
	}

	for _, code := range strings.Split(os.Getenv("ACCESS_CODES"), ",") {
		code = strings.TrimSpace(code)
		if code != "" {
			cfg.AccessCodes = append(cfg.AccessCodes, code)
		}
	}

	if v := os.Getenv("REMOTE_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, errors.New("REMOTE_TIMEOUT_SECONDS must be a positive integer")
		}
		cfg.RemoteTimeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, errors.New("WORKERS must be a positive integer")
		}
		cfg.Workers = n
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	if len(cfg.AccessCodes) == 0 {
		return nil, errors.New("ACCESS_CODES is not set")
	}
	if cfg.WorkerURL == "" {
		return nil, errors.New("WHISPER_URL is not set")
	}
	if cfg.ForwardMode != ForwardInline && cfg.ForwardMode != ForwardURL {
		return nil, errors.New("FORWARD_MODE must be \"inline\" or \"url\"")
	}
	if cfg.ForwardMode == ForwardURL && cfg.S3.Bucket == "" {
		return nil, errors.New("S3_BUCKET is required when FORWARD_MODE=url")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
