// Package agent implements the generic structured-output execution core
// shared by all specialized agents: validate a typed request, render a
// prompt pair, invoke the model gateway, and parse the response strictly
// into a typed result.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"text/template"

	"github.com/tarkai/trustlens/internal/core/ports"
	"github.com/tarkai/trustlens/internal/telemetry"
)

// Request is implemented by every agent input schema.
type Request interface {
	Validate() error
}

// Definition pins the per-agent configuration: template pair and token
// budget. It carries no business logic.
type Definition struct {
	Name           string
	SystemTemplate string // path within the template FS
	UserTemplate   string
	MaxTokens      int
}

// Agent executes one structured-output contract, parameterized by the
// input and output schema types. All five specialized agents are
// construction-time bindings of this type.
type Agent[I Request, O any] struct {
	llm    ports.LLMProvider
	def    Definition
	system *template.Template
	user   *template.Template
	schema string
}

// New binds the core to a provider, a definition and a template FS. The
// output schema description is reflected once here, not per call.
func New[I Request, O any](llm ports.LLMProvider, def Definition, templates fs.FS) (*Agent[I, O], error) {
	system, err := loadTemplate(templates, def.SystemTemplate)
	if err != nil {
		return nil, &ValidationError{Agent: def.Name, Err: err}
	}
	user, err := loadTemplate(templates, def.UserTemplate)
	if err != nil {
		return nil, &ValidationError{Agent: def.Name, Err: err}
	}

	schema, err := DescribeSchema(reflect.TypeOf((*O)(nil)).Elem())
	if err != nil {
		return nil, &ValidationError{Agent: def.Name, Err: err}
	}

	return &Agent[I, O]{
		llm:    llm,
		def:    def,
		system: system,
		user:   user,
		schema: schema,
	}, nil
}

// Name returns the agent family name.
func (a *Agent[I, O]) Name() string { return a.def.Name }

// Execute runs one invocation: validate, render, generate, extract, parse.
// It performs exactly one gateway round trip and no local persistence.
func (a *Agent[I, O]) Execute(ctx context.Context, input I) (O, error) {
	var out O

	telemetry.AgentInvocations.WithLabelValues(a.def.Name).Inc()

	if err := input.Validate(); err != nil {
		telemetry.AgentFailures.WithLabelValues(a.def.Name, "validation").Inc()
		return out, &ValidationError{Agent: a.def.Name, Err: err}
	}

	tctx, err := templateContext(input, a.schema)
	if err != nil {
		telemetry.AgentFailures.WithLabelValues(a.def.Name, "template").Inc()
		return out, &ValidationError{Agent: a.def.Name, Err: err}
	}

	systemPrompt, err := render(a.system, tctx)
	if err != nil {
		telemetry.AgentFailures.WithLabelValues(a.def.Name, "template").Inc()
		return out, &ValidationError{Agent: a.def.Name, Err: err}
	}
	userPrompt, err := render(a.user, tctx)
	if err != nil {
		telemetry.AgentFailures.WithLabelValues(a.def.Name, "template").Inc()
		return out, &ValidationError{Agent: a.def.Name, Err: err}
	}

	messages := []ports.Message{
		{Role: ports.RoleSystem, Content: systemPrompt},
		{Role: ports.RoleUser, Content: userPrompt},
	}

	response, err := a.llm.Generate(ctx, messages, &ports.GenerateOptions{MaxTokens: a.def.MaxTokens})
	if err != nil {
		telemetry.AgentFailures.WithLabelValues(a.def.Name, "gateway").Inc()
		return out, &ProcessingError{Agent: a.def.Name, Err: fmt.Errorf("gateway call failed: %w", err)}
	}

	payload := ExtractJSON(response)

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		telemetry.AgentFailures.WithLabelValues(a.def.Name, "parse").Inc()
		return out, &ProcessingError{
			Agent: a.def.Name,
			Err:   fmt.Errorf("response does not conform to %s schema: %w", reflect.TypeOf((*O)(nil)).Elem().Name(), err),
		}
	}

	// Output schemas may carry their own invariants (enums, score ranges).
	if v, ok := any(&out).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			telemetry.AgentFailures.WithLabelValues(a.def.Name, "parse").Inc()
			return out, &ProcessingError{Agent: a.def.Name, Err: err}
		}
	}

	return out, nil
}

func loadTemplate(templates fs.FS, name string) (*template.Template, error) {
	raw, err := fs.ReadFile(templates, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", name, err)
	}
	// Optional input fields may be absent from the context, so missing keys
	// render empty rather than failing; malformed expressions fail at Parse.
	tmpl, err := template.New(name).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("malformed template %s: %w", name, err)
	}
	return tmpl, nil
}

// templateContext flattens the input schema fields (by json name) and adds
// the serialized output schema under "output_schema".
func templateContext(input any, schema string) (map[string]any, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to flatten input: %w", err)
	}
	ctx := make(map[string]any)
	if err := json.Unmarshal(raw, &ctx); err != nil {
		return nil, fmt.Errorf("failed to flatten input: %w", err)
	}
	ctx["output_schema"] = schema
	return ctx, nil
}

func render(tmpl *template.Template, ctx map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
