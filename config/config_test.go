package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	t.Setenv("OPENAI_API_KEY", "")
	config := LoadConfig()
	assert.Equal(t, "https://news.kbs.co.kr", config.SiteOrigin)
	assert.Equal(t, 3, config.NumDays)
	assert.Equal(t, 2, config.PagesPerDay)
	assert.Equal(t, 10*time.Second, config.SettleTimeout)
	assert.Equal(t, 500*time.Millisecond, config.SummaryInterval)
	assert.Equal(t, "gpt-4o-mini", config.OpenAIModel)
	assert.Equal(t, 20, config.TopKeywords)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.False(t, config.PublishEnabled)
	assert.True(t, config.Headless)

	// Test with environment variables
	t.Setenv("CRAWL_DAYS", "7")
	t.Setenv("CRAWL_PAGES_PER_DAY", "4")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SETTLE_TIMEOUT_SECONDS", "30")
	t.Setenv("PUBLISH_ENABLED", "true")
	t.Setenv("CHROME_HEADLESS", "false")

	config = LoadConfig()
	assert.Equal(t, 7, config.NumDays)
	assert.Equal(t, 4, config.PagesPerDay)
	assert.Equal(t, "sk-env", config.OpenAIAPIKey)
	assert.Equal(t, 2, config.RedisDB)
	assert.Equal(t, 30*time.Second, config.SettleTimeout)
	assert.True(t, config.PublishEnabled)
	assert.False(t, config.Headless)
}

func TestLoadConfig_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("CRAWL_DAYS", "many")
	t.Setenv("PUBLISH_ENABLED", "maybe")

	config := LoadConfig()
	assert.Equal(t, 3, config.NumDays)
	assert.False(t, config.PublishEnabled)
}

func TestApplyAPIKeyOverride(t *testing.T) {
	config := &Config{OpenAIAPIKey: "sk-env"}

	config.ApplyAPIKeyOverride("")
	assert.Equal(t, "sk-env", config.OpenAIAPIKey)

	config.ApplyAPIKeyOverride("   ")
	assert.Equal(t, "sk-env", config.OpenAIAPIKey)

	config.ApplyAPIKeyOverride("sk-user")
	assert.Equal(t, "sk-user", config.OpenAIAPIKey)
}

func TestValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	valid := func() *Config {
		return LoadConfig()
	}

	assert.NoError(t, valid().Validate())

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero days", func(c *Config) { c.NumDays = 0 }},
		{"too many days", func(c *Config) { c.NumDays = 31 }},
		{"zero pages", func(c *Config) { c.PagesPerDay = 0 }},
		{"too many pages", func(c *Config) { c.PagesPerDay = 11 }},
		{"missing key", func(c *Config) { c.OpenAIAPIKey = "" }},
		{"missing origin", func(c *Config) { c.SiteOrigin = "" }},
		{"zero settle timeout", func(c *Config) { c.SettleTimeout = 0 }},
		{"negative top keywords", func(c *Config) { c.TopKeywords = -1 }},
		{"publish without stream", func(c *Config) { c.PublishEnabled = true; c.RedisStream = "" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	boundary := valid()
	boundary.NumDays = 30
	boundary.PagesPerDay = 10
	assert.NoError(t, boundary.Validate())
}
