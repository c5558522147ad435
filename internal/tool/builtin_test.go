package tool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTool(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	out, err := r.Execute(context.Background(), "calculate", `{"expression":"2 + 2"}`)
	require.NoError(t, err)
	assert.Equal(t, "4", out)
}

func TestCalculateToolBadExpression(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	// Tool failures come back as a JSON error payload for the model,
	// not as a Go error.
	out, err := r.Execute(context.Background(), "calculate", `{"expression":"import os"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "error")
}

func TestCurrentTimeTool(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	out, err := r.Execute(context.Background(), "current_time", `{}`)
	require.NoError(t, err)
	_, parseErr := time.Parse("2006-01-02 15:04:05", out)
	assert.NoError(t, parseErr)
}

func TestUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "drop_tables", `{}`)
	assert.Error(t, err)
}

func TestListToolDefs(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	defs := r.ListToolDefs()
	require.Len(t, defs, 3)
	for _, def := range defs {
		assert.NotEmpty(t, def.Name)
		assert.NotEmpty(t, def.Description)
		assert.True(t, json.Valid(def.Parameters), "parameters of %s must be valid JSON schema", def.Name)
	}
}
