// Package stt provides speech-to-text transcription using the AssemblyAI API.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Input validation errors. These classify as invalid_input and are checked
// before any network call.
var (
	ErrEmptyAudio    = errors.New("empty audio payload")
	ErrAudioTooLarge = errors.New("audio payload exceeds size limit")
)

// Config holds the transcription client configuration.
type Config struct {
	// APIKey is the AssemblyAI API key.
	APIKey string
	// BaseURL is the API base URL (e.g. https://api.assemblyai.com/v2)
	BaseURL string
	// MaxAudioBytes is the largest audio payload accepted before upload.
	MaxAudioBytes int64
	// PollInterval is the pacing between transcript status polls.
	PollInterval time.Duration
	// Timeout is the HTTP timeout for individual API requests.
	Timeout time.Duration
}

// DefaultConfig returns the default transcription configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://api.assemblyai.com/v2",
		MaxAudioBytes: 50 << 20,
		PollInterval:  time.Second,
		Timeout:       30 * time.Second,
	}
}

// ConfigFromEnv creates transcription config from environment variables.
func ConfigFromEnv() *Config {
	config := DefaultConfig()

	if key := os.Getenv("ASSEMBLYAI_API_KEY"); key != "" {
		config.APIKey = key
	}
	if url := os.Getenv("ALPACA_STT_BASE_URL"); url != "" {
		config.BaseURL = url
	}
	if interval := os.Getenv("ALPACA_STT_POLL_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.PollInterval = d
		}
	}

	return config
}

// Client provides audio transcription. Calls are independent and safe to
// invoke concurrently.
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new transcription client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Every(config.PollInterval), 1),
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe uploads the audio bytes, creates a transcript job and polls until
// it completes. Returns the plain transcript text.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if c.config.MaxAudioBytes > 0 && int64(len(audio)) > c.config.MaxAudioBytes {
		return "", errors.Wrapf(ErrAudioTooLarge, "%d bytes", len(audio))
	}

	uploadURL, err := c.upload(ctx, audio)
	if err != nil {
		return "", errors.Wrap(err, "upload audio")
	}

	transcriptID, err := c.createTranscript(ctx, uploadURL)
	if err != nil {
		return "", errors.Wrap(err, "create transcript")
	}

	return c.awaitTranscript(ctx, transcriptID)
}

// upload sends the raw audio bytes and returns the temporary audio URL.
func (c *Client) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/upload", bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.config.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var result uploadResponse
	if err := c.doJSON(req, &result); err != nil {
		return "", err
	}
	if result.UploadURL == "" {
		return "", errors.New("no upload_url in response")
	}
	return result.UploadURL, nil
}

// createTranscript submits a transcription job for the uploaded audio.
func (c *Client) createTranscript(ctx context.Context, audioURL string) (string, error) {
	payload, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var result transcriptResponse
	if err := c.doJSON(req, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("no transcript id in response")
	}
	return result.ID, nil
}

// awaitTranscript polls the transcript status until it completes or the
// context expires. Polls are paced by the client's rate limiter.
func (c *Client) awaitTranscript(ctx context.Context, transcriptID string) (string, error) {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.config.BaseURL+"/transcript/"+transcriptID, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", c.config.APIKey)

		var result transcriptResponse
		if err := c.doJSON(req, &result); err != nil {
			return "", errors.Wrap(err, "poll transcript")
		}

		switch result.Status {
		case "completed":
			return result.Text, nil
		case "error":
			return "", errors.Errorf("transcription failed: %s", result.Error)
		default:
			// queued or processing, keep polling
			slog.Debug("transcript not ready", "id", transcriptID, "status", result.Status)
		}
	}
}

// doJSON executes the request and decodes a JSON response body into out.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("assemblyai returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
