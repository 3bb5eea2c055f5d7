package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "sjsage522/newsworker/pkg/errors"
)

// Bounds for the traversal configuration
const (
	MinDays        = 1
	MaxDays        = 30
	MinPagesPerDay = 1
	MaxPagesPerDay = 10
)

// Config represents the application configuration
type Config struct {
	// Target site
	BaseURL    string
	SiteOrigin string
	SiteName   string

	// Traversal
	NumDays       int
	PagesPerDay   int
	SettleTimeout time.Duration
	DetailTimeout time.Duration
	Headless      bool
	UserAgent     string

	// Summarization
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	SummaryInterval time.Duration
	Insights        bool

	// Keyword aggregation
	TopKeywords int

	// Redis configuration
	PublishEnabled       bool
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr    string
	SummaryCacheTTL time.Duration

	// Export
	ExportDir string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		BaseURL:              getEnv("NEWS_BASE_URL", "https://news.kbs.co.kr/news/pc/category/category.do?ctcd=0006&ref=pSiteMap"),
		SiteOrigin:           getEnv("NEWS_SITE_ORIGIN", "https://news.kbs.co.kr"),
		SiteName:             getEnv("NEWS_SITE_NAME", "KBS"),
		NumDays:              getEnvInt("CRAWL_DAYS", 3),
		PagesPerDay:          getEnvInt("CRAWL_PAGES_PER_DAY", 2),
		SettleTimeout:        getEnvSeconds("SETTLE_TIMEOUT_SECONDS", 10),
		DetailTimeout:        getEnvSeconds("DETAIL_TIMEOUT_SECONDS", 5),
		Headless:             getEnvBool("CHROME_HEADLESS", true),
		UserAgent:            getEnv("CHROME_USER_AGENT", ""),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		SummaryInterval:      getEnvMillis("SUMMARY_INTERVAL_MS", 500),
		Insights:             getEnvBool("GENERATE_INSIGHTS", false),
		TopKeywords:          getEnvInt("TOP_KEYWORDS", 20),
		PublishEnabled:       getEnvBool("PUBLISH_ENABLED", false),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "news:records"),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		SummaryCacheTTL:      getEnvSeconds("SUMMARY_CACHE_TTL_SECONDS", 86400),
		ExportDir:            getEnv("EXPORT_DIR", ""),
		Environment:          getEnv("NEWSWORKER_ENVIRONMENT", "development"),
	}
}

// ApplyAPIKeyOverride replaces the environment-sourced key with a caller-supplied one.
// An empty override keeps the environment value.
func (c *Config) ApplyAPIKeyOverride(key string) {
	if key = strings.TrimSpace(key); key != "" {
		c.OpenAIAPIKey = key
	}
}

// Validate checks that the configuration can drive a crawl run
func (c *Config) Validate() error {
	if c.NumDays < MinDays || c.NumDays > MaxDays {
		return apperrors.NewValidation("config", fmt.Sprintf("num days must be between %d and %d, got %d", MinDays, MaxDays, c.NumDays))
	}
	if c.PagesPerDay < MinPagesPerDay || c.PagesPerDay > MaxPagesPerDay {
		return apperrors.NewValidation("config", fmt.Sprintf("pages per day must be between %d and %d, got %d", MinPagesPerDay, MaxPagesPerDay, c.PagesPerDay))
	}
	if c.BaseURL == "" || c.SiteOrigin == "" {
		return apperrors.NewValidation("config", "base url and site origin are required")
	}
	if c.OpenAIAPIKey == "" {
		return apperrors.NewValidation("config", "OPENAI_API_KEY is not set and no --api-key was given")
	}
	if c.SettleTimeout <= 0 || c.DetailTimeout <= 0 {
		return apperrors.NewValidation("config", "settle and detail timeouts must be positive")
	}
	if c.TopKeywords < 0 {
		return apperrors.NewValidation("config", "top keywords must not be negative")
	}
	if c.PublishEnabled && c.RedisStream == "" {
		return apperrors.NewValidation("config", "redis stream name is required when publishing")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Second
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}
