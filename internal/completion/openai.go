package completion

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI is a Client backed by an OpenAI-compatible chat completion API
// (OpenAI itself, or a local endpoint such as Ollama via a base URL).
type OpenAI struct {
	api   *openai.Client
	model string
}

// NewOpenAI creates a completion client. baseURL may be empty for the
// default OpenAI endpoint.
func NewOpenAI(baseURL, apiKey, modelName string) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Complete sends the request as a chat completion and returns the first
// choice's text. Failures are classified into the package error taxonomy.
func (c *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if len(req.Directives) > 0 {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: strings.Join(req.Directives, "\n"),
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindMalformed, Msg: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping verifies the endpoint is reachable with a minimal request.
func (c *OpenAI) Ping(ctx context.Context) error {
	_, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Msg: "request deadline exceeded", Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: KindAuthFailure, Msg: "api rejected credentials", Err: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Msg: "rate limited", Err: err}
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return &Error{Kind: KindTimeout, Msg: "upstream timeout", Err: err}
		}
		return &Error{Kind: KindUnavailable, Msg: "api error", Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: KindAuthFailure, Msg: "api rejected credentials", Err: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Msg: "rate limited", Err: err}
		}
	}

	return &Error{Kind: KindUnavailable, Msg: "request failed", Err: err}
}
