package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string, maxRetries int) *Client {
	config := DefaultConfig()
	config.APIKey = "test-key"
	config.BaseURL = baseURL
	config.MaxRetries = maxRetries
	return NewClient(config)
}

func completionBody(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestClient_Chat(t *testing.T) {
	t.Run("ReturnsTrimmedReply", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gemini-2.5-flash", req["model"])
			msgs := req["messages"].([]any)
			require.Len(t, msgs, 2)
			json.NewEncoder(w).Encode(completionBody("  a short reply \n"))
		}))
		defer srv.Close()

		client := newTestClient(srv.URL, 1)
		reply, err := client.Chat(context.Background(), []Message{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
		})
		require.NoError(t, err)
		assert.Equal(t, "a short reply", reply)
	})

	t.Run("RetriesTransientFailure", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				http.Error(w, "upstream hiccup", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(completionBody("recovered"))
		}))
		defer srv.Close()

		client := newTestClient(srv.URL, 2)
		reply, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hello"}})
		require.NoError(t, err)
		assert.Equal(t, "recovered", reply)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("ExhaustedRetriesReturnError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := newTestClient(srv.URL, 1)
		_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hello"}})
		assert.Error(t, err)
	})

	t.Run("EmptyReplyIsError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(completionBody("   "))
		}))
		defer srv.Close()

		client := newTestClient(srv.URL, 1)
		_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hello"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty reply")
	})
}
