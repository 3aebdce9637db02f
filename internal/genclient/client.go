// Package genclient wraps the generation backend behind a single Generate
// call. Any OpenAI-compatible endpoint works: BaseURL selects the server, so
// local runtimes and hosted APIs are interchangeable. Calls carry no
// client-side state and are safe to retry.
package genclient

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/reason-router/internal/config"
)

// #region result

// Result holds one generation response.
type Result struct {
	Text       string
	TokensUsed int
}

// #endregion

// #region client

// Client is the generation collaborator.
type Client struct {
	api   *openai.Client
	cfg   config.Generation
	log   *zap.SugaredLogger
	extra string // optional system prompt, empty = none
}

// New builds a client against cfg.BaseURL.
func New(cfg config.Generation, log *zap.SugaredLogger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api: openai.NewClientWithConfig(apiCfg),
		cfg: cfg,
		log: log,
	}
}

// WithSystemPrompt returns a copy of the client that sends the given system
// message with every request.
func (c *Client) WithSystemPrompt(prompt string) *Client {
	clone := *c
	clone.extra = prompt
	return &clone
}

// #endregion

// #region generate

// Generate runs one completion with the given budget and temperature.
// Failures come back classified; the caller decides whether to retry at a
// higher regime.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (Result, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if c.extra != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: c.extra,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: prompt,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		genErr := Classify(err)
		c.log.Warnw("generation call failed", "kind", genErr.Kind, "error", err)
		return Result{}, genErr
	}
	if len(resp.Choices) == 0 {
		return Result{}, &Error{Kind: KindMalformed, Err: fmt.Errorf("no choices in response")}
	}

	return Result{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// #endregion
