// Package llm provides chat completion using Gemini through its
// OpenAI-compatible endpoint.
package llm

import (
	"context"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Config holds the chat client configuration.
type Config struct {
	// APIKey is the Gemini API key.
	APIKey string
	// BaseURL is the OpenAI-compatible endpoint.
	BaseURL string
	// Model is the chat model name.
	Model string
	// MaxTokens caps the completion length.
	MaxTokens int
	// Temperature controls sampling randomness.
	Temperature float32
	// MaxRetries is the number of attempts for transient failures.
	MaxRetries int
	// Timeout is the HTTP timeout for individual API requests.
	Timeout time.Duration
}

// DefaultConfig returns the default chat configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://generativelanguage.googleapis.com/v1beta/openai/",
		Model:       "gemini-2.5-flash",
		MaxTokens:   1024,
		Temperature: 0.7,
		MaxRetries:  3,
		Timeout:     30 * time.Second,
	}
}

// ConfigFromEnv creates chat config from environment variables.
func ConfigFromEnv() *Config {
	config := DefaultConfig()

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.APIKey = key
	}
	if url := os.Getenv("ALPACA_LLM_BASE_URL"); url != "" {
		config.BaseURL = url
	}
	if model := os.Getenv("ALPACA_LLM_MODEL"); model != "" {
		config.Model = model
	}

	return config
}

// Client provides chat completion. Calls are independent and safe to invoke
// concurrently.
type Client struct {
	client *openai.Client
	config *Config
}

// NewClient creates a new chat client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient.Timeout = config.Timeout

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Chat performs a chat completion over the given messages and returns the
// generated reply text.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	var result string
	err := c.doWithRetry(ctx, func() error {
		chatMessages := make([]openai.ChatCompletionMessage, len(messages))
		for i, msg := range messages {
			chatMessages[i] = openai.ChatCompletionMessage{
				Role:    msg.Role,
				Content: msg.Content,
			}
		}

		req := openai.ChatCompletionRequest{
			Model:       c.config.Model,
			Messages:    chatMessages,
			MaxTokens:   c.config.MaxTokens,
			Temperature: c.config.Temperature,
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty chat response")
		}
		result = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})

	if err != nil {
		return "", errors.Wrap(err, "chat completion")
	}
	if result == "" {
		return "", errors.New("model returned empty reply")
	}

	return result, nil
}

// doWithRetry executes a function with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < c.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("chat request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}
