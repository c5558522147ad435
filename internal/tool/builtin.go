package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RegisterBuiltins adds the assistant's builtin tools to the registry.
func RegisterBuiltins(r *Registry) {
	r.Register(&currentTimeTool{})
	r.Register(&calculateTool{})
	r.Register(&searchInfoTool{})
}

type currentTimeTool struct{}

func (t *currentTimeTool) Name() string        { return "current_time" }
func (t *currentTimeTool) Description() string { return "Get the current date and time." }

func (t *currentTimeTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *currentTimeTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	return time.Now().Format("2006-01-02 15:04:05"), nil
}

type calculateTool struct{}

func (t *calculateTool) Name() string { return "calculate" }

func (t *calculateTool) Description() string {
	return "Evaluate an arithmetic expression, e.g. '2 + 2' or '10 * 5'. Supports + - * / % and parentheses."
}

func (t *calculateTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"expression": {"type": "string", "description": "The arithmetic expression to evaluate"}
		},
		"required": ["expression"]
	}`)
}

func (t *calculateTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	var args struct {
		Expression string `json:"expression"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	result, err := EvalExpression(args.Expression)
	if err != nil {
		return "", err
	}
	return FormatNumber(result), nil
}

type searchInfoTool struct{}

func (t *searchInfoTool) Name() string { return "search_info" }

func (t *searchInfoTool) Description() string {
	return "Search for information about a topic."
}

func (t *searchInfoTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The topic to search for"}
		},
		"required": ["query"]
	}`)
}

// TODO: hook up a real search backend.
func (t *searchInfoTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	return fmt.Sprintf("Here's information about %q: this is a placeholder response.", args.Query), nil
}
