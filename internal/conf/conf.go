package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
)

const (
	defaultAddr          = "127.0.0.1:9876"
	defaultCommentAPIURL = "https://eo3ys3z8yqseayi.m.pipedream.net"
	defaultGraphURL      = "https://graph.facebook.com/v18.0"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// Config represents application configuration
type Config struct {
	// HTTP server configuration
	Server ServerConfig

	// Settings storage configuration
	Storage StorageConfig

	// Logging configuration
	Log LogConfig

	// Comment-fetch service used by the YouTube adapter
	CommentAPI CommentAPIConfig

	// Per-platform auto-refresh intervals
	Refresh RefreshConfig

	// WhatsApp Business Cloud API and webhook configuration
	WhatsApp WhatsAppConfig

	// Feishu configuration (optional)
	Feishu FeishuConfig

	// Message classifier configuration (optional)
	Classifier ClassifierConfig

	// Simulation pools and classifier prompt (loaded from YAML)
	Content *ContentConfig

	// Time zone used to bucket report dates
	ReportLocation *time.Location

	// Debug mode
	Debug bool
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr string
}

// StorageConfig contains settings database configuration
type StorageConfig struct {
	DBPath string
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string
	JSON  bool
}

// CommentAPIConfig contains comment-fetch service configuration
type CommentAPIConfig struct {
	URL     string
	Rate    int // requests per second, 0 disables pacing
	Timeout time.Duration
}

// RefreshConfig contains auto-refresh intervals; zero disables the loop
type RefreshConfig struct {
	YouTube   time.Duration
	Simulated time.Duration
	Feishu    time.Duration
}

// WhatsAppConfig contains WhatsApp configuration
type WhatsAppConfig struct {
	VerifyToken   string
	PhoneNumberID string
	AccessToken   string
	GraphURL      string
}

// CloudEnabled reports whether Cloud API credentials are present
func (c *WhatsAppConfig) CloudEnabled() bool {
	return c.PhoneNumberID != "" && c.AccessToken != ""
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// Enabled reports whether Feishu credentials are present
func (c *FeishuConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != ""
}

// ClassifierConfig contains OpenAI-compatible classifier configuration
type ClassifierConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Enabled reports whether the classifier should run
func (c *ClassifierConfig) Enabled() bool {
	return c.APIKey != ""
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Settings DB path
	dbPath := os.Getenv("WHATSLIVE_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".whats-live", "settings.db")
	}

	addr := os.Getenv("WHATSLIVE_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	commentAPIURL := os.Getenv("COMMENT_API_URL")
	if commentAPIURL == "" {
		commentAPIURL = defaultCommentAPIURL
	}

	graphURL := os.Getenv("WHATSAPP_GRAPH_URL")
	if graphURL == "" {
		graphURL = defaultGraphURL
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultOpenAIModel
	}

	debug := os.Getenv("DEBUG") == "true"
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
		if debug {
			logLevel = "debug"
		}
	}

	// Report time zone
	loc := time.Local
	if tz := os.Getenv("REPORT_TIMEZONE"); tz != "" {
		if parsed, err := time.LoadLocation(tz); err == nil {
			loc = parsed
		}
	}

	// Load simulation pools and prompts from YAML
	content, _ := LoadContentConfig(os.Getenv("CONTENT_CONFIG_PATH"))
	if seed := os.Getenv("SIMULATION_SEED"); seed != "" {
		if parsed, err := strconv.ParseInt(seed, 10, 64); err == nil {
			content.Simulation.Seed = parsed
		}
	}

	return &Config{
		Server:  ServerConfig{Addr: addr},
		Storage: StorageConfig{DBPath: dbPath},
		Log: LogConfig{
			Level: logLevel,
			JSON:  os.Getenv("LOG_JSON") == "true",
		},
		CommentAPI: CommentAPIConfig{
			URL:     commentAPIURL,
			Rate:    envInt("COMMENT_API_RATE", 2),
			Timeout: time.Duration(envInt("COMMENT_API_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Refresh: RefreshConfig{
			YouTube:   time.Duration(envInt("YOUTUBE_REFRESH_SECONDS", 60)) * time.Second,
			Simulated: time.Duration(envInt("SIMULATED_REFRESH_SECONDS", 10)) * time.Second,
			Feishu:    time.Duration(envInt("FEISHU_REFRESH_SECONDS", 15)) * time.Second,
		},
		WhatsApp: WhatsAppConfig{
			VerifyToken:   os.Getenv("WHATSAPP_VERIFY_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			AccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
			GraphURL:      strings.TrimRight(graphURL, "/"),
		},
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Classifier: ClassifierConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   model,
		},
		Content:        content,
		ReportLocation: loc,
		Debug:          debug,
	}
}

// RefreshInterval returns the default auto-refresh interval for a platform
func (c *Config) RefreshInterval(p domain.Platform) time.Duration {
	switch p {
	case domain.PlatformYouTube:
		return c.Refresh.YouTube
	case domain.PlatformFeishu:
		return c.Refresh.Feishu
	case domain.PlatformPhone:
		return 0
	case domain.PlatformWhatsApp:
		if c.WhatsApp.CloudEnabled() {
			return 0
		}
		return c.Refresh.Simulated
	default:
		return c.Refresh.Simulated
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return &ConfigError{Field: "WHATSLIVE_ADDR", Message: "required"}
	}
	if c.Storage.DBPath == "" {
		return &ConfigError{Field: "WHATSLIVE_DB_PATH", Message: "required"}
	}
	if (c.Feishu.AppID == "") != (c.Feishu.AppSecret == "") {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "both or neither must be set"}
	}
	if (c.WhatsApp.PhoneNumberID == "") != (c.WhatsApp.AccessToken == "") {
		return &ConfigError{Field: "WHATSAPP_PHONE_NUMBER_ID/WHATSAPP_ACCESS_TOKEN", Message: "both or neither must be set"}
	}
	if c.CommentAPI.Rate < 0 {
		return &ConfigError{Field: "COMMENT_API_RATE", Message: "must not be negative"}
	}
	if c.Refresh.YouTube < 0 || c.Refresh.Simulated < 0 || c.Refresh.Feishu < 0 {
		return &ConfigError{Field: "*_REFRESH_SECONDS", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
