// Package llm provides gateway adapters to generative text backends.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tarkai/trustlens/internal/core/ports"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider implements ports.LLMProvider against the Generative
// Language REST API. It keeps no state between calls beyond configuration.
type GeminiProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiProvider creates a provider for the given model. Timeout bounds
// every generation round trip.
func NewGeminiProvider(apiKey, model string, timeout time.Duration) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Gemini wire types.

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate runs one model round trip. On a content-safety rejection it
// performs exactly one retry with sanitized messages before giving up.
func (p *GeminiProvider) Generate(ctx context.Context, messages []ports.Message, opts *ports.GenerateOptions) (string, error) {
	text, err := p.generateOnce(ctx, messages, opts)
	if err == errSafetyBlocked {
		slog.Warn("Gemini blocked content, retrying with sanitized messages", "model", p.model)
		text, err = p.generateOnce(ctx, SanitizeMessages(messages), opts)
		if err == errSafetyBlocked {
			return "", fmt.Errorf("%w: content blocked by safety filter after sanitized retry", ports.ErrLLMValidation)
		}
	}
	return text, err
}

// GenerateStream returns the response as a lazy sequence of text chunks via
// the server-sent-events endpoint. The channel closes when the stream ends.
func (p *GeminiProvider) GenerateStream(ctx context.Context, messages []ports.Message, opts *ports.GenerateOptions) (<-chan ports.StreamChunk, error) {
	body, err := p.buildRequest(messages, opts)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, p.model)
	resp, err := p.send(ctx, url, body)
	if err != nil {
		return nil, err
	}

	out := make(chan ports.StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		dec := newSSEReader(resp.Body)
		for {
			data, err := dec.next()
			if err == io.EOF {
				return
			}
			if err != nil {
				out <- ports.StreamChunk{Err: fmt.Errorf("%w: stream read failed: %v", ports.ErrLLMConnection, err)}
				return
			}

			var gr geminiResponse
			if err := json.Unmarshal(data, &gr); err != nil {
				out <- ports.StreamChunk{Err: fmt.Errorf("%w: malformed stream event: %v", ports.ErrLLMConnection, err)}
				return
			}
			if text := candidateText(gr); text != "" {
				select {
				case out <- ports.StreamChunk{Text: text}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

var errSafetyBlocked = fmt.Errorf("gemini: safety blocked")

func (p *GeminiProvider) generateOnce(ctx context.Context, messages []ports.Message, opts *ports.GenerateOptions) (string, error) {
	body, err := p.buildRequest(messages, opts)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	resp, err := p.send(ctx, url, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", ports.ErrLLMConnection, err)
	}

	if gr.PromptFeedback.BlockReason != "" {
		return "", errSafetyBlocked
	}
	for _, c := range gr.Candidates {
		if c.FinishReason == "SAFETY" {
			return "", errSafetyBlocked
		}
	}

	text := candidateText(gr)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ports.ErrLLMConnection)
	}
	return text, nil
}

func (p *GeminiProvider) buildRequest(messages []ports.Message, opts *ports.GenerateOptions) ([]byte, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ports.ErrLLMValidation)
	}

	maxTokens := ports.DefaultMaxTokens
	temperature := ports.DefaultTemperature
	if opts != nil {
		if opts.MaxTokens > 0 {
			maxTokens = opts.MaxTokens
		}
		if opts.Temperature > 0 {
			temperature = opts.Temperature
		}
	}

	req := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: maxTokens,
			Temperature:     temperature,
		},
	}

	for _, m := range messages {
		switch m.Role {
		case ports.RoleSystem:
			if req.SystemInstruction == nil {
				req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
			} else {
				req.SystemInstruction.Parts = append(req.SystemInstruction.Parts, geminiPart{Text: m.Content})
			}
		case ports.RoleAssistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}

	return json.Marshal(req)
}

func (p *GeminiProvider) send(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrLLMConnection, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrLLMConnection, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d: %s", ports.ErrLLMRateLimit, resp.StatusCode, detail)
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d: %s", ports.ErrLLMValidation, resp.StatusCode, detail)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ports.ErrLLMConnection, resp.StatusCode, detail)
	}
}

func candidateText(gr geminiResponse) string {
	var sb strings.Builder
	for _, c := range gr.Candidates {
		for _, part := range c.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// newSSEReader yields the data payload of each server-sent event.
type sseReader struct {
	body io.Reader
	buf  []byte
	rest []byte
}

func newSSEReader(body io.Reader) *sseReader {
	return &sseReader{body: body, buf: make([]byte, 4096)}
}

func (r *sseReader) next() ([]byte, error) {
	for {
		if i := bytes.IndexByte(r.rest, '\n'); i >= 0 {
			line := bytes.TrimSpace(r.rest[:i])
			r.rest = r.rest[i+1:]
			if data, ok := bytes.CutPrefix(line, []byte("data:")); ok {
				data = bytes.TrimSpace(data)
				if len(data) > 0 && !bytes.Equal(data, []byte("[DONE]")) {
					return data, nil
				}
			}
			continue
		}
		n, err := r.body.Read(r.buf)
		if n > 0 {
			r.rest = append(r.rest, r.buf[:n]...)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}
