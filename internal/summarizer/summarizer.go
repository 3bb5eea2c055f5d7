package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sjsage522/newsworker/internal/news"
	"sjsage522/newsworker/logger"
	apperrors "sjsage522/newsworker/pkg/errors"

	"github.com/go-resty/resty/v2"
)

// Summarizer condenses an article body into a short summary.
// Summarize never fails: a failed call yields placeholder text naming the reason.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

const (
	summarySystemPrompt = "뉴스를 정확하고 간결하게 3줄로 요약하세요."
	summaryUserPrompt   = "다음 뉴스를 3줄로 요약:\n\n%s"
	summaryMaxTokens    = 200
	summaryTemperature  = 0.7

	insightSystemPrompt = "당신은 국제 뉴스 분석 전문가입니다."
	insightMaxTokens    = 500
	insightTemperature  = 0.8
)

// Options configures the chat-completions client
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to an OpenAI-compatible chat-completions endpoint
type Client struct {
	http  *resty.Client
	model string
	log   *logger.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// New creates a chat-completions client
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetAuthToken(opts.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:  client,
		model: opts.Model,
		log:   logger.ForSummarizer(),
	}
}

// complete sends one chat-completions request and returns the trimmed reply
func (c *Client) complete(ctx context.Context, messages []chatMessage, maxTokens int, temperature float64) (string, error) {
	var result chatResponse
	var failure apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:       c.model,
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		}).
		SetResult(&result).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		return "", apperrors.NewSummarization(c.model, "request failed", err)
	}

	if resp.IsError() {
		reason := failure.Error.Message
		if reason == "" {
			reason = strings.TrimSpace(resp.String())
		}
		return "", apperrors.NewSummarization(c.model, fmt.Sprintf("status %d", resp.StatusCode()), fmt.Errorf("%s", reason))
	}

	if len(result.Choices) == 0 {
		return "", apperrors.NewSummarization(c.model, "no choices in response", nil)
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", apperrors.NewSummarization(c.model, "empty completion", nil)
	}
	return content, nil
}

// Summarize asks the model for a three-line summary of text
func (c *Client) Summarize(ctx context.Context, text string) string {
	summary, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: fmt.Sprintf(summaryUserPrompt, text)},
	}, summaryMaxTokens, summaryTemperature)
	if err != nil {
		c.log.Warn().Err(err).Msg("Summarization failed")
		return FailureText(err)
	}
	return summary
}

// FailureText is the placeholder summary for a failed call
func FailureText(err error) string {
	return news.SummaryFailurePrefix + err.Error()
}

// IsFailure reports whether summary is a failure placeholder
func IsFailure(summary string) bool {
	return strings.HasPrefix(summary, news.SummaryFailurePrefix)
}
