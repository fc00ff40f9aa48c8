// Package llm talks to the OpenAI-compatible chat completion service.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"chickiegpt/internal/domain"
)

// Fallback replies returned whenever the completion service fails. The
// general and about-me paths keep separate literals on purpose; callers treat
// both as fixed contract strings.
const (
	FallbackText        = "I'm sorry but the system is not available right now. Please try again later."
	AboutMeFallbackText = "I'm sorry but the system is not available right now. Please try again later."
)

const aboutMeSystemPrompt = "You are a personal profile assistant. " +
	"Answer questions strictly and only from the provided user facts. " +
	"If the answer is not present, reply: \"Good questions! Unfortunately, I don't have an answer right now. I'll get back later!\" " +
	"Be concise and accurate."

const emptyFactsPlaceholder = "- (no facts stored)"

// A hung upstream must not stall the handling request forever.
const requestTimeout = 30 * time.Second

type completionFunc func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)

// Client wraps the completion service. Failures never escape this boundary:
// every call returns either the model's reply or a fixed fallback string, so
// the web layer behaves as if a normal reply were produced.
type Client struct {
	complete completionFunc
	model    string
}

// Config holds completion client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewClient creates a completion client for an OpenAI-compatible endpoint.
// BaseURL is optional and allows pointing at Ollama, vLLM, etc.
func NewClient(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	api := openai.NewClient(opts...)

	return &Client{
		complete: func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
			return api.Chat.Completions.New(ctx, params)
		},
		model: cfg.Model,
	}
}

// CompleteChat sends the ordered turns to the completion service and returns
// the top choice's text, or FallbackText on any failure.
func (c *Client) CompleteChat(ctx context.Context, turns []domain.ChatTurn) string {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: convertTurns(turns),
	})
	if err != nil || len(resp.Choices) == 0 {
		return FallbackText
	}
	return resp.Choices[0].Message.Content
}

// AnswerAboutMe answers a question strictly from the supplied facts, with a
// fixed refusal baked into the system prompt for anything the facts do not
// cover. Returns AboutMeFallbackText on any service failure.
func (c *Client) AnswerAboutMe(ctx context.Context, facts map[string]string, question string) string {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	content := "User Facts:\n" + FormatFacts(facts) + "\n\nQuestion: " + question

	resp, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(aboutMeSystemPrompt),
			openai.UserMessage(content),
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		return AboutMeFallbackText
	}
	return resp.Choices[0].Message.Content
}

// FormatFacts renders facts as a key-sorted bullet list for prompting, or a
// placeholder line when no facts are stored.
func FormatFacts(facts map[string]string) string {
	if len(facts) == 0 {
		return emptyFactsPlaceholder
	}

	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s", k, facts[k]))
	}
	return strings.Join(lines, "\n")
}

func convertTurns(turns []domain.ChatTurn) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case domain.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(t.Content))
		case domain.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		default:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}
	return msgs
}
