// Package config loads server configuration from the environment. Every
// variable carries the PARENTPAL_ prefix.
package config

import (
	"fmt"
	"os"

	"github.com/parentpal/parentpal/internal/storage"
)

type Config struct {
	Port   string
	DBPath string

	// JWTSecret signs bearer tokens. Required.
	JWTSecret string

	// SecureCookies marks session cookies Secure; enable behind TLS.
	SecureCookies bool

	PostmarkToken string
	FromEmail     string

	VAPIDPublicKey  string
	VAPIDPrivateKey string

	Storage storage.Config

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	cfg := Config{
		Port:            getenv("PARENTPAL_PORT", "8080"),
		DBPath:          getenv("PARENTPAL_DB_PATH", "parentpal.db"),
		JWTSecret:       os.Getenv("PARENTPAL_JWT_SECRET"),
		SecureCookies:   os.Getenv("PARENTPAL_SECURE_COOKIES") == "true",
		PostmarkToken:   os.Getenv("PARENTPAL_POSTMARK_TOKEN"),
		FromEmail:       os.Getenv("PARENTPAL_FROM_EMAIL"),
		VAPIDPublicKey:  os.Getenv("PARENTPAL_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("PARENTPAL_VAPID_PRIVATE_KEY"),
		Storage: storage.Config{
			Endpoint:  os.Getenv("PARENTPAL_S3_ENDPOINT"),
			Bucket:    os.Getenv("PARENTPAL_S3_BUCKET"),
			Region:    getenv("PARENTPAL_S3_REGION", "auto"),
			AccessKey: os.Getenv("PARENTPAL_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("PARENTPAL_S3_SECRET_KEY"),
			PublicURL: os.Getenv("PARENTPAL_S3_PUBLIC_URL"),
		},
		LogLevel:  getenv("PARENTPAL_LOG_LEVEL", "info"),
		LogFormat: getenv("PARENTPAL_LOG_FORMAT", "text"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("PARENTPAL_JWT_SECRET is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
