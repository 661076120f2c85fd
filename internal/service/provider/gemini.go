package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/zhouzirui/mindmate/backend/internal/config"
)

// GeminiProvider calls generateContent with the system prompt and the user message folded into one text part.
type GeminiProvider struct {
	apiKey string
	model  string
	client *genai.Client
	// initErr is reported as a transport failure on every call.
	initErr error
}

// NewGemini builds the client once. No network I/O happens here.
func NewGemini(ctx context.Context, cfg config.ProviderConfig, httpClient *http.Client) *GeminiProvider {
	g := &GeminiProvider{
		apiKey: strings.TrimSpace(cfg.GeminiAPIKey),
		model:  cfg.GeminiModel,
	}
	if g.apiKey == "" {
		return g
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     g.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.GeminiBaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.GeminiBaseURL}
	}

	g.client, g.initErr = genai.NewClient(ctx, clientCfg)
	return g
}

func (g *GeminiProvider) Kind() Kind {
	return Gemini
}

func (g *GeminiProvider) Generate(ctx context.Context, systemPrompt, userMessage string) Reply {
	if g.apiKey == "" {
		return missingKey(Gemini)
	}
	if g.initErr != nil {
		return transportError(Gemini, g.initErr)
	}

	text := fmt.Sprintf("%s\n\nUser: %s", systemPrompt, userMessage)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), nil)
	if err != nil {
		if body, ok := geminiErrorBody(err); ok {
			return httpError(Gemini, body)
		}
		return transportError(Gemini, err)
	}

	out := resp.Text()
	if out == "" {
		raw, _ := json.Marshal(resp)
		return httpError(Gemini, string(raw))
	}
	return okReply(Gemini, out)
}

// geminiErrorBody rebuilds the {"error": {...}} document the API sent with a non-2xx status.
func geminiErrorBody(err error) (string, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return "", false
		}
		apiErr = *ptr
	}

	raw, mErr := json.Marshal(map[string]any{"error": apiErr})
	if mErr != nil {
		return apiErr.Error(), true
	}
	return string(raw), true
}
