package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

// Client talks to an OpenAI-compatible chat completions endpoint. It performs
// no retries; a failed call fails the turn.
type Client struct {
	api                 openai.Client
	model               string
	maxCompletionTokens int
	temperature         float64
}

var _ contractx.CompletionClient = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	return &Client{
		api:                 openai.NewClient(opts...),
		model:               strings.TrimSpace(cfg.Model),
		maxCompletionTokens: cfg.MaxCompletionTokens,
		temperature:         cfg.Temperature,
	}, nil
}

func (c *Client) Complete(ctx context.Context, req contractx.CompletionRequest) (contractx.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if c.maxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxCompletionTokens))
	}
	if c.temperature >= 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
	}
	if req.ForcedTool != "" {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: req.ForcedTool,
				},
			},
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.Message{}, fmt.Errorf("%w: %v", contractx.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return contractx.Message{}, fmt.Errorf("%w: completion returned no choices", contractx.ErrUpstream)
	}

	msg := fromOpenAIMessage(resp.Choices[0].Message)

	if req.ForcedTool != "" && !hasCallFor(msg, req.ForcedTool) {
		return contractx.Message{}, fmt.Errorf("%w: forced tool %q was not called", contractx.ErrUpstream, req.ForcedTool)
	}
	return msg, nil
}

func hasCallFor(msg contractx.Message, tool string) bool {
	for _, call := range msg.ToolCalls {
		if call.Name == tool {
			return true
		}
	}
	return false
}

func toOpenAIMessages(messages []contractx.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case contractx.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case contractx.RoleUser:
			if len(msg.Parts) > 0 {
				out = append(out, openai.UserMessage(toOpenAIParts(msg.Parts)))
			} else {
				out = append(out, openai.UserMessage(msg.Content))
			}
		case contractx.RoleAssistant:
			out = append(out, toOpenAIAssistant(msg))
		case contractx.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return out
}

func toOpenAIParts(parts []contractx.ContentPart) []openai.ChatCompletionContentPartUnionParam {
	out := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case contractx.PartImage:
			out = append(out, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: part.ImageURL,
			}))
		default:
			out = append(out, openai.TextContentPart(part.Text))
		}
	}
	return out
}

func toOpenAIAssistant(msg contractx.Message) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(msg.Content),
		}
	}
	if len(msg.ToolCalls) > 0 {
		assistant.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      call.Name,
					Arguments: string(call.Arguments),
				},
			})
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func toOpenAITools(specs []contractx.ToolSpec) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  openai.FunctionParameters(spec.Parameters),
			},
		})
	}
	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) contractx.Message {
	calls := make([]contractx.ToolCall, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		calls = append(calls, contractx.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		})
	}
	if len(calls) == 0 {
		calls = nil
	}
	return contractx.AssistantMessage(msg.Content, calls)
}
