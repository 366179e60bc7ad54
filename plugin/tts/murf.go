// Package tts provides text-to-speech synthesis using the Murf API.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Input validation errors. These classify as invalid_input and are checked
// before any network call.
var (
	ErrEmptyText   = errors.New("empty synthesis text")
	ErrTextTooLong = errors.New("synthesis text exceeds character limit")
)

// FallbackText is the fixed phrase spoken when a provider call fails.
const FallbackText = "I'm having trouble connecting right now. Let's try again later."

// Config holds the synthesis client configuration.
type Config struct {
	// APIKey is the Murf API key.
	APIKey string
	// BaseURL is the API base URL (e.g. https://api.murf.ai/v1)
	BaseURL string
	// VoiceID is the default voice used when a request does not name one.
	VoiceID string
	// MaxTextLength is the provider's input character limit.
	MaxTextLength int
	// Timeout is the HTTP timeout for individual API requests.
	Timeout time.Duration
	// CacheSize is the number of synthesized clips kept in memory.
	CacheSize int
	// CacheTTL is how long cached clips stay valid.
	CacheTTL time.Duration
}

// DefaultConfig returns the default synthesis configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://api.murf.ai/v1",
		VoiceID:       "en-US-natalie",
		MaxTextLength: 3000,
		Timeout:       30 * time.Second,
		CacheSize:     64,
		CacheTTL:      time.Hour,
	}
}

// ConfigFromEnv creates synthesis config from environment variables.
func ConfigFromEnv() *Config {
	config := DefaultConfig()

	if key := os.Getenv("MURF_API_KEY"); key != "" {
		config.APIKey = key
	}
	if url := os.Getenv("ALPACA_TTS_BASE_URL"); url != "" {
		config.BaseURL = url
	}
	if voice := os.Getenv("ALPACA_TTS_VOICE_ID"); voice != "" {
		config.VoiceID = voice
	}

	return config
}

// Client provides speech synthesis. Calls are independent and safe to invoke
// concurrently; the clip cache is internally synchronized.
type Client struct {
	config     *Config
	httpClient *http.Client
	cache      *clipCache
}

// NewClient creates a new synthesis client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.VoiceID == "" {
		config.VoiceID = "en-US-natalie"
	}
	if config.MaxTextLength <= 0 {
		config.MaxTextLength = 3000
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache: newClipCache(config.CacheSize, config.CacheTTL),
	}
}

// DefaultVoice returns the configured default voice id.
func (c *Client) DefaultVoice() string {
	return c.config.VoiceID
}

// MaxTextLength returns the provider's input character limit.
func (c *Client) MaxTextLength() int {
	return c.config.MaxTextLength
}

// Truncate shortens text to the provider's character limit, breaking at a word
// boundary when one is close enough.
func (c *Client) Truncate(text string) string {
	limit := c.config.MaxTextLength
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	truncated := string(runes[:limit])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > limit*3/4 {
		truncated = truncated[:lastSpace]
	}
	return truncated
}

type generateResponse struct {
	AudioFile string `json:"audioFile"`
}

// SynthesizeURL generates speech for the text and returns the provider-hosted
// audio URL. An empty voiceID falls back to the configured default.
func (c *Client) SynthesizeURL(ctx context.Context, text, voiceID string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if len([]rune(text)) > c.config.MaxTextLength {
		return "", errors.Wrapf(ErrTextTooLong, "%d characters", len([]rune(text)))
	}
	if voiceID == "" {
		voiceID = c.config.VoiceID
	}

	payload, err := json.Marshal(map[string]string{
		"text":     text,
		"voice_id": voiceID,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/speech/generate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("api-key", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.Errorf("murf returned status %d: %s", resp.StatusCode, string(body))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if result.AudioFile == "" {
		return "", errors.New("no audioFile in response")
	}
	return result.AudioFile, nil
}

// Synthesize generates speech for the text and returns the audio bytes.
// Recently synthesized clips are served from the in-memory cache.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if voiceID == "" {
		voiceID = c.config.VoiceID
	}

	cacheKey := voiceID + "\x00" + text
	if audio, ok := c.cache.Get(cacheKey); ok {
		return audio, nil
	}

	audioURL, err := c.SynthesizeURL(ctx, text, voiceID)
	if err != nil {
		return nil, err
	}

	audio, err := c.download(ctx, audioURL)
	if err != nil {
		return nil, errors.Wrap(err, "download audio")
	}

	c.cache.Set(cacheKey, audio)
	return audio, nil
}

// FallbackAudio returns the synthesized fixed fallback phrase, cached across
// calls so repeated provider outages do not re-synthesize it.
func (c *Client) FallbackAudio(ctx context.Context) ([]byte, error) {
	return c.Synthesize(ctx, FallbackText, c.config.VoiceID)
}

// download fetches the synthesized audio from the provider-hosted URL.
func (c *Client) download(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("audio download returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
