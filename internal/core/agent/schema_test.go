package agent

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schemaChild struct {
	Label string `json:"label"`
}

type schemaSample struct {
	Name     string             `json:"name"`
	Count    int                `json:"count"`
	Ratio    float64            `json:"ratio,omitempty"`
	Active   bool               `json:"active"`
	Website  *string            `json:"website,omitempty"`
	Tags     []string           `json:"tags"`
	Children []schemaChild      `json:"children"`
	Scores   map[string]float64 `json:"scores"`
	When     time.Time          `json:"when"`
	Ignored  string             `json:"-"`
	hidden   string             //nolint:unused
}

func TestDescribeSchema(t *testing.T) {
	raw, err := DescribeSchema(reflect.TypeOf(schemaSample{}))
	require.NoError(t, err)

	var desc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &desc))

	assert.Equal(t, "object", desc["type"])

	props, ok := desc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "tags")
	assert.Contains(t, props, "scores")
	assert.NotContains(t, props, "Ignored")
	assert.NotContains(t, props, "hidden")

	name := props["name"].(map[string]any)
	assert.Equal(t, "string", name["type"])

	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	assert.Equal(t, "string", tags["items"].(map[string]any)["type"])

	scores := props["scores"].(map[string]any)
	assert.Equal(t, "object", scores["type"])
	assert.Equal(t, "number", scores["additionalProperties"].(map[string]any)["type"])

	when := props["when"].(map[string]any)
	assert.Equal(t, "date-time", when["format"])

	children := props["children"].(map[string]any)
	childProps := children["items"].(map[string]any)["properties"].(map[string]any)
	assert.Contains(t, childProps, "label")

	// Pointer and omitempty fields are optional.
	required := desc["required"].([]any)
	assert.Contains(t, required, "name")
	assert.Contains(t, required, "count")
	assert.NotContains(t, required, "website")
	assert.NotContains(t, required, "ratio")
}

type schemaNode struct {
	Value string      `json:"value"`
	Next  *schemaNode `json:"next,omitempty"`
}

func TestDescribeSchema_Recursive(t *testing.T) {
	raw, err := DescribeSchema(reflect.TypeOf(schemaNode{}))
	require.NoError(t, err)
	assert.Contains(t, raw, `"next"`)
}
