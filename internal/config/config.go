package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates the full service configuration.
type Config struct {
	Server ServerConfig
	Gemini GeminiConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	gemini, err := loadGeminiConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Gemini: gemini}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// GeminiConfig describes the upstream Gemini web endpoints and timeouts.
// BaseURL and UploadBaseURL are overridable so tests can point the bridge
// at local servers.
type GeminiConfig struct {
	BaseURL          string
	UploadBaseURL    string
	Locale           string
	UserAgent        string
	BuildLabel       string
	BootstrapTimeout time.Duration
	ChatTimeout      time.Duration
	UploadTimeout    time.Duration
	UploadEnabled    bool
}

func loadGeminiConfig() (GeminiConfig, error) {
	bootstrapTimeout, err := parseTimeoutEnv("GEMINI_BOOTSTRAP_TIMEOUT", 30*time.Second)
	if err != nil {
		return GeminiConfig{}, err
	}

	chatTimeout, err := parseTimeoutEnv("GEMINI_CHAT_TIMEOUT", 60*time.Second)
	if err != nil {
		return GeminiConfig{}, err
	}

	uploadTimeout, err := parseTimeoutEnv("GEMINI_UPLOAD_TIMEOUT", 30*time.Second)
	if err != nil {
		return GeminiConfig{}, err
	}

	uploadEnabled, err := parseBoolEnv("GEMINI_UPLOAD_ENABLED", true)
	if err != nil {
		return GeminiConfig{}, err
	}

	return GeminiConfig{
		BaseURL:          getEnvOrDefault("GEMINI_BASE_URL", "https://gemini.google.com"),
		UploadBaseURL:    getEnvOrDefault("GEMINI_UPLOAD_URL", "https://content-push.googleapis.com"),
		Locale:           getEnvOrDefault("GEMINI_LOCALE", "en-US"),
		UserAgent:        getEnvOrDefault("GEMINI_USER_AGENT", defaultUserAgent),
		BuildLabel:       getEnvOrDefault("GEMINI_BUILD_LABEL", defaultBuildLabel),
		BootstrapTimeout: bootstrapTimeout,
		ChatTimeout:      chatTimeout,
		UploadTimeout:    uploadTimeout,
		UploadEnabled:    uploadEnabled,
	}, nil
}

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// Known-good build label used when the landing page yields none. Routing
	// parameters affect versioning, not authentication, so a stale value is an
	// acceptable degradation.
	defaultBuildLabel = "boq_assistant-bard-web-server_20251217.07_p5"
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseTimeoutEnv reads a timeout given in whole seconds.
func parseTimeoutEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultValue, nil
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	if seconds < 1 {
		return 0, fmt.Errorf("invalid %s value %q: must be at least 1 second", key, value)
	}
	return time.Duration(seconds) * time.Second, nil
}
