// Package bot turns inbound message text into reply text via a remote
// completion call, with optional per-sender conversation history and a
// bounded tool loop.
package bot

import (
	"context"
	"log/slog"
	"time"

	"wagate/internal/history"
	"wagate/internal/llm"
	"wagate/internal/metrics"
	"wagate/internal/prompts"
	"wagate/internal/tool"
)

const defaultMaxToolIterations = 5

// Responder generates replies. With History set it is stateful: the bounded
// history is sent as context and both the user and assistant turns are
// appended on success. With History nil only the current message is sent.
type Responder struct {
	Client  llm.Client
	Tools   *tool.Registry
	History *history.Store

	Model   string
	APIKey  string
	BaseURL string
	System  string
	Timeout time.Duration

	MaxToolIterations int
	Log               *slog.Logger
}

// Reply produces the reply text for one inbound message. It never returns an
// error: remote failures are logged and the fixed fallback text is returned,
// with the sender's history left untouched.
func (r *Responder) Reply(ctx context.Context, senderID, text string) string {
	log := r.logger().With("sender", senderID)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	system := r.System
	if system == "" {
		system = prompts.DefaultSystem
	}

	var messages []llm.Message
	if r.History != nil {
		r.History.Lock(senderID)
		defer r.History.Unlock(senderID)
		messages = r.History.Get(senderID)
	}
	userMsg := llm.UserMessage(text)
	messages = append(messages, userMsg)

	var toolDefs []llm.ToolDef
	if r.Tools != nil {
		toolDefs = r.Tools.ListToolDefs()
	}

	params := llm.ChatParams{
		Model:   r.Model,
		APIKey:  r.APIKey,
		BaseURL: r.BaseURL,
		System:  system,
		Tools:   toolDefs,
	}

	maxIter := r.MaxToolIterations
	if maxIter <= 0 {
		maxIter = defaultMaxToolIterations
	}

	for i := 0; i <= maxIter; i++ {
		params.Messages = messages

		start := time.Now()
		result, err := r.Client.Chat(ctx, params)
		metrics.CompletionSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			log.Error("completion failed", "error", err)
			metrics.RepliesTotal.WithLabelValues("fallback").Inc()
			return prompts.Fallback
		}

		if len(result.ToolCalls) > 0 && r.Tools != nil && i < maxIter {
			messages = append(messages, result.Message)
			for _, tc := range result.ToolCalls {
				output, err := r.Tools.Execute(ctx, tc.Name, tc.Arguments)
				if err != nil {
					log.Warn("tool call failed", "tool", tc.Name, "error", err)
					output = `{"error": "tool not available"}`
				}
				messages = append(messages, llm.ToolResultMessage(tc.ID, output))
			}
			continue
		}

		reply := result.Text
		if reply == "" {
			log.Error("completion returned empty reply", "stop", result.StopReason)
			metrics.RepliesTotal.WithLabelValues("fallback").Inc()
			return prompts.Fallback
		}

		if r.History != nil {
			r.History.Append(senderID, userMsg, llm.AssistantMessage(reply))
		}
		metrics.RepliesTotal.WithLabelValues("ok").Inc()
		return reply
	}

	log.Error("tool iteration limit reached")
	metrics.RepliesTotal.WithLabelValues("fallback").Inc()
	return prompts.Fallback
}

func (r *Responder) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
