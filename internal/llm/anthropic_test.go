package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/lectern/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(&config.LLMConfig{APIKey: "test-key", BaseURL: srv.URL + "/", Model: "test-model"})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClient_Complete(t *testing.T) {
	var got messagesRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" || r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hello "},{"type":"tool_use"},{"type":"text","text":"there."}],"stop_reason":"end_turn"}`))
	})

	out, err := c.Complete(context.Background(), "be brief", "hi", 0)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "Hello there." {
		t.Errorf("out = %q", out)
	}
	if got.Model != "test-model" || got.System != "be brief" || got.MaxTokens != defaultMaxTokens {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "hi" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestClient_ErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	})
	_, err := c.Complete(context.Background(), "", "hi", 10)
	if err == nil || !strings.Contains(err.Error(), "slow down") {
		t.Errorf("err = %v", err)
	}
}

func TestClient_NonJSONFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	_, err := c.Complete(context.Background(), "", "hi", 10)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("err = %v", err)
	}
}

func TestClient_EmptyContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	})
	if _, err := c.Complete(context.Background(), "", "hi", 10); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := NewClient(&config.LLMConfig{}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v", err)
	}
}
