package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkai/trustlens/internal/core/ports"
)

type stubProvider struct {
	response string
	err      error

	gotMessages []ports.Message
	gotOpts     *ports.GenerateOptions
}

func (s *stubProvider) Generate(_ context.Context, messages []ports.Message, opts *ports.GenerateOptions) (string, error) {
	s.gotMessages = messages
	s.gotOpts = opts
	return s.response, s.err
}

func (s *stubProvider) GenerateStream(_ context.Context, _ []ports.Message, _ *ports.GenerateOptions) (<-chan ports.StreamChunk, error) {
	ch := make(chan ports.StreamChunk)
	close(ch)
	return ch, nil
}

type echoRequest struct {
	Subject string `json:"subject"`
}

func (r echoRequest) Validate() error {
	if r.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	return nil
}

type echoResponse struct {
	Answer string `json:"answer"`
	Score  int    `json:"score"`
}

var testTemplates = fstest.MapFS{
	"prompts/system.tmpl": &fstest.MapFile{
		Data: []byte("You answer about products.\nSchema:\n{{.output_schema}}"),
	},
	"prompts/user.tmpl": &fstest.MapFile{
		Data: []byte("Tell me about {{.subject}}."),
	},
}

func testDefinition() Definition {
	return Definition{
		Name:           "echo",
		SystemTemplate: "prompts/system.tmpl",
		UserTemplate:   "prompts/user.tmpl",
		MaxTokens:      4096,
	}
}

func TestExecute_Success(t *testing.T) {
	provider := &stubProvider{response: "```json\n{\"answer\":\"slack is chat\",\"score\":7}\n```"}

	a, err := New[echoRequest, echoResponse](provider, testDefinition(), testTemplates)
	require.NoError(t, err)

	out, err := a.Execute(context.Background(), echoRequest{Subject: "slack"})
	require.NoError(t, err)
	assert.Equal(t, "slack is chat", out.Answer)
	assert.Equal(t, 7, out.Score)

	// One round trip with system + user messages in order, budget applied.
	require.Len(t, provider.gotMessages, 2)
	assert.Equal(t, ports.RoleSystem, provider.gotMessages[0].Role)
	assert.Equal(t, ports.RoleUser, provider.gotMessages[1].Role)
	assert.Contains(t, provider.gotMessages[0].Content, `"answer"`)
	assert.Contains(t, provider.gotMessages[1].Content, "slack")
	assert.Equal(t, 4096, provider.gotOpts.MaxTokens)
}

func TestExecute_InvalidInput(t *testing.T) {
	a, err := New[echoRequest, echoResponse](&stubProvider{}, testDefinition(), testTemplates)
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), echoRequest{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "echo", verr.Agent)
}

func TestExecute_GatewayFailureWrapped(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("boom: %w", ports.ErrLLMRateLimit)}

	a, err := New[echoRequest, echoResponse](provider, testDefinition(), testTemplates)
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), echoRequest{Subject: "slack"})

	var perr *ProcessingError
	require.ErrorAs(t, err, &perr)
	// The original cause stays reachable through the wrap.
	assert.True(t, errors.Is(err, ports.ErrLLMRateLimit))
}

func TestExecute_MalformedResponseWrapped(t *testing.T) {
	provider := &stubProvider{response: "the model rambled with no json at all"}

	a, err := New[echoRequest, echoResponse](provider, testDefinition(), testTemplates)
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), echoRequest{Subject: "slack"})

	var perr *ProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "echoResponse")
}

func TestExecute_UnknownFieldRejected(t *testing.T) {
	provider := &stubProvider{response: `{"answer":"ok","score":1,"extra":"nope"}`}

	a, err := New[echoRequest, echoResponse](provider, testDefinition(), testTemplates)
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), echoRequest{Subject: "slack"})

	var perr *ProcessingError
	require.ErrorAs(t, err, &perr)
}

func TestNew_MissingTemplate(t *testing.T) {
	def := testDefinition()
	def.SystemTemplate = "prompts/missing.tmpl"

	_, err := New[echoRequest, echoResponse](&stubProvider{}, def, testTemplates)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestNew_MalformedTemplate(t *testing.T) {
	bad := fstest.MapFS{
		"prompts/system.tmpl": &fstest.MapFile{Data: []byte("{{.unclosed")},
		"prompts/user.tmpl":   &fstest.MapFile{Data: []byte("ok")},
	}

	_, err := New[echoRequest, echoResponse](&stubProvider{}, testDefinition(), bad)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
