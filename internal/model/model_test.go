package model

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domainbot/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func noBackoff(int) time.Duration { return 0 }

func TestOllama_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tiny", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, []chatMessage{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "explain gravity"},
		}, req.Messages)

		json.NewEncoder(w).Encode(ollamaResponse{Message: chatMessage{Role: "assistant", Content: "mass attracts"}, Done: true})
	}))
	defer srv.Close()

	o := NewOllama(OllamaConfig{APIBase: srv.URL, Model: "tiny", Client: srv.Client(), Logger: testLogger()})
	text, err := o.Complete(context.Background(), "be brief", "explain gravity")
	require.NoError(t, err)
	assert.Equal(t, "mass attracts", text)
}

func TestOllama_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(ollamaResponse{Message: chatMessage{Content: "ok"}})
	}))
	defer srv.Close()

	o := NewOllama(OllamaConfig{APIBase: srv.URL, Client: srv.Client(), Logger: testLogger()})
	o.retry.backoff = noBackoff

	text, err := o.Complete(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOllama_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOllama(OllamaConfig{APIBase: srv.URL, Client: srv.Client(), Logger: testLogger()})
	o.retry.backoff = noBackoff

	_, err := o.Complete(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOllama_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o := NewOllama(OllamaConfig{APIBase: srv.URL, Client: srv.Client(), Logger: testLogger()})
	o.retry.backoff = noBackoff

	_, err := o.Complete(context.Background(), "", "hi")
	require.Error(t, err)
	var re *retryableError
	assert.True(t, errors.As(err, &re))
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestOpenAI_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"role":"system"`)
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"buy phone A"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "sk-test", APIBase: srv.URL, Client: srv.Client(), Logger: testLogger()})
	text, err := o.Complete(context.Background(), "shop well", "which phone")
	require.NoError(t, err)
	assert.Equal(t, "buy phone A", text)
}

func TestOpenAI_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "k", APIBase: srv.URL, Client: srv.Client(), Logger: testLogger()})
	text, err := o.Complete(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Empty(t, text)
}

type stubModel struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *stubModel) Name() string { return s.name }

func (s *stubModel) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestFailover_FallsBackOnError(t *testing.T) {
	p1 := &stubModel{name: "primary", err: errors.New("down")}
	p2 := &stubModel{name: "secondary", text: "from-secondary"}
	f := NewFailover([]Model{p1, p2}, testLogger())

	text, err := f.Complete(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "from-secondary", text)
	assert.Equal(t, "failover(primary→secondary)", f.Name())
}

func TestFailover_UsesFirstSuccess(t *testing.T) {
	p1 := &stubModel{name: "primary", text: "from-primary"}
	p2 := &stubModel{name: "secondary", text: "from-secondary"}
	f := NewFailover([]Model{p1, p2}, testLogger())

	text, err := f.Complete(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "from-primary", text)
	assert.Zero(t, p2.calls)
}

func TestFailover_AllFail(t *testing.T) {
	last := errors.New("fail 2")
	f := NewFailover([]Model{
		&stubModel{name: "p1", err: errors.New("fail 1")},
		&stubModel{name: "p2", err: last},
	}, testLogger())

	_, err := f.Complete(context.Background(), "", "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, last))
}

func TestFailover_Empty(t *testing.T) {
	_, err := NewFailover(nil, testLogger()).Complete(context.Background(), "", "hi")
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	m, err := FromConfig(config.ModelConfig{}, testLogger())
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = FromConfig(config.ModelConfig{Chain: []config.ModelEndpoint{{Kind: "ollama"}}}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "ollama", m.Name())

	m, err = FromConfig(config.ModelConfig{Chain: []config.ModelEndpoint{
		{Kind: "openai", APIKey: "k"},
		{Kind: "ollama"},
	}}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "failover(openai→ollama)", m.Name())

	_, err = FromConfig(config.ModelConfig{Chain: []config.ModelEndpoint{{Kind: "gemini"}}}, testLogger())
	assert.Error(t, err)
}
