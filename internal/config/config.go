package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Events   EventsConfig
	Workflow WorkflowConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port                string
	Environment         string
	LogFilePath         string
	RealtimeLogFilePath string
	CorsAllowedOrigins  string
}

type EventsConfig struct {
	// NatsURL empty disables forwarding to NATS.
	NatsURL   string
	ChatTopic string
}

type WorkflowConfig struct {
	BaseURL       string
	APIKey        string
	DefaultFlowID string
	Timeout       time.Duration
	CatalogTTL    time.Duration
	Tweaks        map[string]any
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:                getEnv("APP_PORT", "3000"),
			Environment:         getEnv("GO_ENV", "development"),
			LogFilePath:         getEnv("LOG_FILE_PATH", "logs/app.log"),
			RealtimeLogFilePath: getEnv("REALTIME_LOG_FILE_PATH", "logs/realtime.log"),
			CorsAllowedOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Events: EventsConfig{
			NatsURL:   getEnv("NATS_URL", ""),
			ChatTopic: getEnv("CHAT_EVENTS_TOPIC", "chat.events"),
		},
		Workflow: WorkflowConfig{
			BaseURL:       strings.TrimRight(getEnv("WORKFLOW_BASE_URL", "http://localhost:7860"), "/"),
			APIKey:        getEnv("WORKFLOW_API_KEY", ""),
			DefaultFlowID: getEnv("WORKFLOW_DEFAULT_FLOW_ID", ""),
			Timeout:       time.Duration(getEnvAsInt("WORKFLOW_TIMEOUT_SECONDS", 30)) * time.Second,
			CatalogTTL:    time.Duration(getEnvAsInt("WORKFLOW_CATALOG_CACHE_SECONDS", 30)) * time.Second,
			Tweaks:        getEnvAsJSONObject("WORKFLOW_TWEAKS_JSON"),
		},
		Tracing: TracingConfig{
			Enabled:  getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsJSONObject parses key as a JSON object. Unset or invalid values yield nil.
func getEnvAsJSONObject(key string) map[string]any {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Printf("Warn: ignoring %s, not a JSON object: %v", key, err)
		return nil
	}
	return out
}
