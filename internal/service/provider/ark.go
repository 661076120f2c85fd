package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"github.com/zhouzirui/mindmate/backend/internal/config"
)

// ArkProvider runs a Volcengine Ark model behind an eino prompt chain.
// A provider without a chain answers with the missing-key text.
type ArkProvider struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkFromConfig builds the Ark chat model from cfg. Missing credentials are
// not an error; the provider then reports its key as missing on every call.
func NewArkFromConfig(ctx context.Context, cfg config.ArkConfig, timeout time.Duration) (*ArkProvider, error) {
	if !cfg.Enabled() {
		return &ArkProvider{}, nil
	}
	chatModel, err := cfg.NewChatModel(ctx, timeout)
	if err != nil {
		return nil, err
	}
	return NewArk(ctx, chatModel)
}

// NewArk compiles the system/query template in front of chatModel.
func NewArk(ctx context.Context, chatModel model.BaseChatModel) (*ArkProvider, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	return &ArkProvider{chain: runnable}, nil
}

func (a *ArkProvider) Kind() Kind {
	return Ark
}

func (a *ArkProvider) Generate(ctx context.Context, systemPrompt, userMessage string) Reply {
	if a.chain == nil {
		return missingKey(Ark)
	}

	msg, err := a.chain.Invoke(ctx, map[string]any{
		"system": systemPrompt,
		"query":  userMessage,
	})
	if err != nil {
		return arkFailure(err)
	}
	if msg == nil || msg.Content == "" {
		return httpError(Ark, "empty response")
	}
	return okReply(Ark, msg.Content)
}

// arkFailure separates a non-2xx answer from the Ark API from a failure to reach it.
func arkFailure(err error) Reply {
	var apiErr *arkmodel.APIError
	if errors.As(err, &apiErr) {
		raw, mErr := json.Marshal(map[string]any{"error": apiErr})
		if mErr != nil {
			return httpError(Ark, apiErr.Error())
		}
		return httpError(Ark, string(raw))
	}

	// The SDK also uses RequestError for transport failures, tagged 500.
	var reqErr *arkmodel.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		var urlErr *url.Error
		if !errors.As(reqErr.Err, &urlErr) && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return httpError(Ark, fmt.Sprintf("status %d: %v", reqErr.HTTPStatusCode, reqErr.Err))
		}
	}
	return transportError(Ark, err)
}
