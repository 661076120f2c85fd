package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/zhouzirui/mindmate/backend/internal/config"
)

// OpenAICompatible serves any backend speaking the OpenAI chat completions API.
type OpenAICompatible struct {
	kind        Kind
	apiKey      string
	model       string
	temperature *float64
	maxTokens   *int64
	client      openai.Client
}

// NewGroq sends llama-3.1-8b-instant requests with temperature 0.7 and a 300 token cap.
func NewGroq(cfg config.ProviderConfig, httpClient *http.Client) *OpenAICompatible {
	temperature := 0.7
	maxTokens := int64(300)
	return newOpenAICompatible(Groq, cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel, httpClient, &temperature, &maxTokens)
}

// NewChatGPT sends gpt-3.5-turbo requests without sampling overrides.
func NewChatGPT(cfg config.ProviderConfig, httpClient *http.Client) *OpenAICompatible {
	return newOpenAICompatible(ChatGPT, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, httpClient, nil, nil)
}

func newOpenAICompatible(kind Kind, apiKey, baseURL, model string, httpClient *http.Client, temperature *float64, maxTokens *int64) *OpenAICompatible {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/"))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAICompatible{
		kind:        kind,
		apiKey:      strings.TrimSpace(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      openai.NewClient(opts...),
	}
}

func (o *OpenAICompatible) Kind() Kind {
	return o.kind
}

func (o *OpenAICompatible) Generate(ctx context.Context, systemPrompt, userMessage string) Reply {
	if o.apiKey == "" {
		return missingKey(o.kind)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
	}
	if o.temperature != nil {
		params.Temperature = openai.Float(*o.temperature)
	}
	if o.maxTokens != nil {
		params.MaxTokens = openai.Int(*o.maxTokens)
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			body := apiErr.RawJSON()
			if body == "" {
				body = apiErr.Error()
			}
			return httpError(o.kind, body)
		}
		return transportError(o.kind, err)
	}

	if len(completion.Choices) == 0 {
		return httpError(o.kind, completion.RawJSON())
	}
	return okReply(o.kind, completion.Choices[0].Message.Content)
}
