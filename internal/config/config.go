package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AuthMode selects which authentication gate is active for the process
// lifetime. Exactly one mode is chosen at load time from the environment.
type AuthMode string

const (
	AuthDisabled AuthMode = "disabled"
	AuthSession  AuthMode = "session"
	AuthToken    AuthMode = "token"
	AuthGuest    AuthMode = "guest"
)

type Config struct {
	API  APIConfig
	Auth AuthConfig
	App  AppConfig
}

type APIConfig struct {
	BaseURL string
	// WelcomeTimeout bounds only the first (welcome) chat call.
	WelcomeTimeout time.Duration
}

type AuthConfig struct {
	Mode     AuthMode
	Domain   string
	ClientID string
	Audience string
	// EmbeddedUser is the raw JSON user record for session mode.
	EmbeddedUser string
}

type AppConfig struct {
	LogFilePath string
	Environment string
}

// Load reads an optional .env file and assembles the configuration from the
// environment. The auth mode is resolved from which variables are present:
// Auth0 identity-provider settings win, then an embedded user record, then
// an explicit guest flag; with none of those, auth is disabled.
func Load(envFile string) *Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("Note: %s not found, using system environment", envFile)
		}
	} else if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL:        getEnv("FINSENSE_API_URL", "http://localhost:8000"),
			WelcomeTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Domain:       getEnv("AUTH0_DOMAIN", ""),
			ClientID:     getEnv("AUTH0_CLIENT_ID", ""),
			Audience:     getEnv("AUTH0_AUDIENCE", ""),
			EmbeddedUser: getEnv("FINSENSE_USER", ""),
		},
		App: AppConfig{
			LogFilePath: getEnv("FINSENSE_LOG_FILE", ""),
			Environment: getEnv("GO_ENV", "development"),
		},
	}

	cfg.Auth.Mode = resolveMode(cfg.Auth)
	return cfg
}

func resolveMode(a AuthConfig) AuthMode {
	switch {
	case a.Domain != "" && a.ClientID != "":
		return AuthToken
	case a.EmbeddedUser != "":
		return AuthSession
	case getEnvBool("FINSENSE_GUEST", false):
		return AuthGuest
	default:
		return AuthDisabled
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}
