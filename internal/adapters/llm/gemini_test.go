package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkai/trustlens/internal/core/ports"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*GeminiProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewGeminiProvider("test-key", "gemini-test", 5*time.Second)
	p.baseURL = srv.URL
	return p, srv
}

func geminiOK(text string) string {
	return `{"candidates":[{"content":{"role":"model","parts":[{"text":` + jsonString(text) + `}]},"finishReason":"STOP"}]}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

var testMessages = []ports.Message{
	{Role: ports.RoleSystem, Content: "be terse"},
	{Role: ports.RoleUser, Content: "describe slack"},
}

func TestGenerate_Success(t *testing.T) {
	var got geminiRequest
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(geminiOK("a chat tool")))
	})

	text, err := p.Generate(context.Background(), testMessages, &ports.GenerateOptions{MaxTokens: 4096})
	require.NoError(t, err)
	assert.Equal(t, "a chat tool", text)

	// System message travels as system_instruction, user message as content.
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "be terse", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, 4096, got.GenerationConfig.MaxOutputTokens)
}

func TestGenerate_Defaults(t *testing.T) {
	var got geminiRequest
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(geminiOK("ok")))
	})

	_, err := p.Generate(context.Background(), testMessages, nil)
	require.NoError(t, err)
	assert.Equal(t, ports.DefaultMaxTokens, got.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, ports.DefaultTemperature, got.GenerationConfig.Temperature, 0.001)
}

func TestGenerate_RateLimit(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := p.Generate(context.Background(), testMessages, nil)
	assert.ErrorIs(t, err, ports.ErrLLMRateLimit)
}

func TestGenerate_ValidationErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden} {
		p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rejected", status)
		})
		_, err := p.Generate(context.Background(), testMessages, nil)
		assert.ErrorIs(t, err, ports.ErrLLMValidation, "status %d", status)
	}
}

func TestGenerate_ServerErrorIsConnection(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	})

	_, err := p.Generate(context.Background(), testMessages, nil)
	assert.ErrorIs(t, err, ports.ErrLLMConnection)
}

func TestGenerate_EmptyResponseIsConnection(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := p.Generate(context.Background(), testMessages, nil)
	assert.ErrorIs(t, err, ports.ErrLLMConnection)
}

func TestGenerate_SafetyBlockRetriesSanitized(t *testing.T) {
	calls := 0
	var secondBody geminiRequest
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
			return
		}
		json.NewDecoder(r.Body).Decode(&secondBody)
		w.Write([]byte(geminiOK("fine now")))
	})

	msgs := []ports.Message{{Role: ports.RoleUser, Content: "describe the attack surface"}}
	text, err := p.Generate(context.Background(), msgs, nil)
	require.NoError(t, err)
	assert.Equal(t, "fine now", text)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "describe the issue surface", secondBody.Contents[0].Parts[0].Text)
}

func TestGenerate_SafetyBlockTwiceFails(t *testing.T) {
	calls := 0
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"candidates":[{"finishReason":"SAFETY"}]}`))
	})

	_, err := p.Generate(context.Background(), testMessages, nil)
	assert.ErrorIs(t, err, ports.ErrLLMValidation)
	// Exactly one retry.
	assert.Equal(t, 2, calls)
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	p := NewGeminiProvider("", "gemini-test", time.Second)
	_, err := p.Generate(context.Background(), testMessages, nil)
	assert.ErrorIs(t, err, ports.ErrLLMValidation)
}

func TestGenerateStream(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":streamGenerateContent"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: " + geminiOK("hello ") + "\n\n"))
		w.Write([]byte("data: " + geminiOK("world") + "\n\n"))
	})

	stream, err := p.GenerateStream(context.Background(), testMessages, nil)
	require.NoError(t, err)

	var parts []string
	for chunk := range stream {
		require.NoError(t, chunk.Err)
		parts = append(parts, chunk.Text)
	}
	assert.Equal(t, []string{"hello ", "world"}, parts)
}
