package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	config := DefaultConfig()
	config.APIKey = "test-key"
	config.BaseURL = baseURL
	config.PollInterval = time.Millisecond
	return NewClient(config)
}

func TestClient_Transcribe(t *testing.T) {
	t.Run("CompletesAfterPolling", func(t *testing.T) {
		var polls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example.com/a1"})
		})
		mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://cdn.example.com/a1", body["audio_url"])
			json.NewEncoder(w).Encode(map[string]string{"id": "t1", "status": "queued"})
		})
		mux.HandleFunc("GET /transcript/t1", func(w http.ResponseWriter, r *http.Request) {
			if polls.Add(1) < 3 {
				json.NewEncoder(w).Encode(map[string]string{"id": "t1", "status": "processing"})
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "t1", "status": "completed", "text": "hello world"})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		client := newTestClient(srv.URL)
		text, err := client.Transcribe(context.Background(), []byte("audio-bytes"))
		require.NoError(t, err)
		assert.Equal(t, "hello world", text)
		assert.GreaterOrEqual(t, polls.Load(), int32(3))
	})

	t.Run("ProviderReportsError", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example.com/a2"})
		})
		mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"id": "t2", "status": "queued"})
		})
		mux.HandleFunc("GET /transcript/t2", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"id": "t2", "status": "error", "error": "audio unreadable"})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		client := newTestClient(srv.URL)
		_, err := client.Transcribe(context.Background(), []byte("audio-bytes"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "audio unreadable")
	})

	t.Run("RejectsEmptyAudio", func(t *testing.T) {
		client := newTestClient("http://127.0.0.1:0")
		_, err := client.Transcribe(context.Background(), nil)
		assert.ErrorIs(t, err, ErrEmptyAudio)
	})

	t.Run("RejectsOversizedAudio", func(t *testing.T) {
		config := DefaultConfig()
		config.APIKey = "test-key"
		config.MaxAudioBytes = 4
		client := NewClient(config)

		_, err := client.Transcribe(context.Background(), []byte("too big"))
		assert.ErrorIs(t, err, ErrAudioTooLarge)
	})

	t.Run("UpstreamStatusError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}))
		defer srv.Close()

		client := newTestClient(srv.URL)
		_, err := client.Transcribe(context.Background(), []byte("audio"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}
