package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"go.uber.org/zap/zaptest"

	"github.com/zhouzirui/mindmate/backend/internal/config"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1733600000,
  "model": "llama-3.1-8b-instant",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "That sounds rough, Asha."}, "finish_reason": "stop"}]
}`

type capturedRequest struct {
	path   string
	auth   string
	fields map[string]any
}

func openAIServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.fields)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestParseAndResolveKind(t *testing.T) {
	k, ok := ParseKind(" Gemini ")
	assert.True(t, ok)
	assert.Equal(t, Gemini, k)

	_, ok = ParseKind("claude")
	assert.False(t, ok)

	assert.Equal(t, Groq, Resolve("", Groq))
	assert.Equal(t, Groq, Resolve("mystery", Groq))
	assert.Equal(t, ChatGPT, Resolve("chatgpt", Groq))
	assert.Equal(t, "OpenAI", ChatGPT.DisplayName())
	assert.Len(t, Kinds(), 4)
}

const (
	geminiOKBody  = `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hey Asha, I'm here."}]}}]}`
	arkOKBody     = `{"id":"ark-1","object":"chat.completion","created":1733600000,"model":"ep-test","choices":[{"index":0,"message":{"role":"assistant","content":"I'm listening."},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":3,"total_tokens":6}}`
	openAIErrBody = `{"error":{"message":"server melted","type":"server_error","code":"internal"}}`
	geminiErrBody = `{"error":{"code":500,"message":"server melted","status":"INTERNAL"}}`
	arkErrBody    = `{"error":{"code":"InternalServiceError","message":"server melted","type":"InternalServerError"}}`
	arkUnauthBody = `{"error":{"code":"AuthenticationError","message":"the API key is invalid","type":"Unauthorized"}}`
)

type variant struct {
	kind    Kind
	okBody  string
	okText  string
	errBody string
	build   func(t *testing.T, baseURL, key string) Provider
}

func variants() []variant {
	return []variant{
		{
			kind: Groq, okBody: completionBody, okText: "That sounds rough, Asha.", errBody: openAIErrBody,
			build: func(t *testing.T, baseURL, key string) Provider {
				return NewGroq(config.ProviderConfig{GroqAPIKey: key, GroqBaseURL: baseURL, GroqModel: "llama-3.1-8b-instant"}, nil)
			},
		},
		{
			kind: ChatGPT, okBody: completionBody, okText: "That sounds rough, Asha.", errBody: openAIErrBody,
			build: func(t *testing.T, baseURL, key string) Provider {
				return NewChatGPT(config.ProviderConfig{OpenAIAPIKey: key, OpenAIBaseURL: baseURL, OpenAIModel: "gpt-3.5-turbo"}, nil)
			},
		},
		{
			kind: Gemini, okBody: geminiOKBody, okText: "Hey Asha, I'm here.", errBody: geminiErrBody,
			build: func(t *testing.T, baseURL, key string) Provider {
				return NewGemini(context.Background(), config.ProviderConfig{GeminiAPIKey: key, GeminiBaseURL: baseURL, GeminiModel: "gemini-pro"}, nil)
			},
		},
		{
			kind: Ark, okBody: arkOKBody, okText: "I'm listening.", errBody: arkErrBody,
			build: func(t *testing.T, baseURL, key string) Provider {
				p, err := NewArkFromConfig(context.Background(), config.ArkConfig{APIKey: key, Model: "ep-test", BaseURL: baseURL}, 5*time.Second)
				require.NoError(t, err)
				return p
			},
		},
	}
}

func cannedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func closedServerURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func TestVariantOutcomes(t *testing.T) {
	ctx := context.Background()

	for _, v := range variants() {
		name := v.kind.DisplayName()

		t.Run(string(v.kind)+"/missing_key", func(t *testing.T) {
			reply := v.build(t, closedServerURL(), "").Generate(ctx, "sys", "hi")
			assert.Equal(t, StatusMissingKey, reply.Status)
			assert.Equal(t, "Error: "+name+" API Key missing.", reply.Text)
			assert.Equal(t, v.kind, reply.Provider)
		})

		t.Run(string(v.kind)+"/http_500", func(t *testing.T) {
			srv := cannedServer(t, http.StatusInternalServerError, v.errBody)
			reply := v.build(t, srv.URL, "key-test").Generate(ctx, "sys", "hi")
			assert.Equal(t, StatusHTTPError, reply.Status, reply.Text)
			assert.True(t, strings.HasPrefix(reply.Text, name+" Error: "), reply.Text)
			assert.Contains(t, reply.Text, "server melted")
		})

		t.Run(string(v.kind)+"/transport", func(t *testing.T) {
			reply := v.build(t, closedServerURL(), "key-test").Generate(ctx, "sys", "hi")
			assert.Equal(t, StatusTransportError, reply.Status, reply.Text)
			assert.True(t, strings.HasPrefix(reply.Text, name+" Exception: "), reply.Text)
		})

		t.Run(string(v.kind)+"/success", func(t *testing.T) {
			srv := cannedServer(t, http.StatusOK, v.okBody)
			reply := v.build(t, srv.URL, "key-test").Generate(ctx, "sys", "hi")
			require.Equal(t, StatusOK, reply.Status, reply.Text)
			assert.Equal(t, v.okText, reply.Text)
			assert.Equal(t, v.kind, reply.Provider)
		})
	}
}

func TestArkUnauthorizedIsHTTPError(t *testing.T) {
	srv := cannedServer(t, http.StatusUnauthorized, arkUnauthBody)
	p, err := NewArkFromConfig(context.Background(), config.ArkConfig{APIKey: "bad", Model: "ep-test", BaseURL: srv.URL}, 5*time.Second)
	require.NoError(t, err)

	reply := p.Generate(context.Background(), "sys", "hi")
	assert.Equal(t, StatusHTTPError, reply.Status, reply.Text)
	assert.True(t, strings.HasPrefix(reply.Text, "Ark Error: "), reply.Text)
	assert.Contains(t, reply.Text, "AuthenticationError")
}

func TestArkFailureClassification(t *testing.T) {
	dialErr := &url.Error{Op: "Post", URL: "http://ark.invalid", Err: errors.New("connection refused")}

	cases := []struct {
		name string
		err  error
		want Status
	}{
		{"api error", fmt.Errorf("failed to create chat completion: %w", &arkmodel.APIError{Message: "quota", HTTPStatusCode: 429}), StatusHTTPError},
		{"undecodable error body", arkmodel.NewRequestError(http.StatusBadGateway, errors.New("invalid character '<'"), "req-1"), StatusHTTPError},
		{"dial failure", arkmodel.NewRequestError(http.StatusInternalServerError, dialErr, "req-2"), StatusTransportError},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), StatusTransportError},
		{"chain failure", errors.New("connection reset"), StatusTransportError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, arkFailure(tc.err).Status)
		})
	}
}

func TestGroqRequestShape(t *testing.T) {
	srv, captured := openAIServer(t, http.StatusOK, completionBody)
	cfg := config.ProviderConfig{GroqAPIKey: "gsk-test", GroqBaseURL: srv.URL, GroqModel: "llama-3.1-8b-instant"}

	reply := NewGroq(cfg, srv.Client()).Generate(context.Background(), "be kind", "exams tomorrow")

	require.Equal(t, StatusOK, reply.Status, reply.Text)
	assert.Equal(t, "That sounds rough, Asha.", reply.Text)
	assert.Equal(t, Groq, reply.Provider)

	assert.True(t, strings.HasSuffix(captured.path, "/chat/completions"), captured.path)
	assert.Equal(t, "Bearer gsk-test", captured.auth)
	assert.Equal(t, "llama-3.1-8b-instant", captured.fields["model"])
	assert.InDelta(t, 0.7, captured.fields["temperature"], 1e-9)
	assert.EqualValues(t, 300, captured.fields["max_tokens"])

	msgs, ok := captured.fields["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "be kind", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestChatGPTOmitsSampling(t *testing.T) {
	srv, captured := openAIServer(t, http.StatusOK, completionBody)
	cfg := config.ProviderConfig{OpenAIAPIKey: "sk-test", OpenAIBaseURL: srv.URL, OpenAIModel: "gpt-3.5-turbo"}

	reply := NewChatGPT(cfg, srv.Client()).Generate(context.Background(), "sys", "hi")

	require.True(t, reply.OK(), reply.Text)
	assert.Equal(t, "gpt-3.5-turbo", captured.fields["model"])
	assert.NotContains(t, captured.fields, "temperature")
	assert.NotContains(t, captured.fields, "max_tokens")
}

func TestGeminiSingleTextPart(t *testing.T) {
	var captured map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hey Asha, I'm here."}]}}]}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.ProviderConfig{GeminiAPIKey: "g-test", GeminiBaseURL: srv.URL, GeminiModel: "gemini-pro"}
	reply := NewGemini(context.Background(), cfg, srv.Client()).Generate(context.Background(), "SYSTEM", "hello")

	require.True(t, reply.OK(), reply.Text)
	assert.Equal(t, "Hey Asha, I'm here.", reply.Text)
	assert.Contains(t, path, "gemini-pro:generateContent")

	contents, ok := captured["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, "SYSTEM\n\nUser: hello", parts[0].(map[string]any)["text"])
}

type fakeChatModel struct {
	reply string
	err   error
	seen  []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestArkChain(t *testing.T) {
	fake := &fakeChatModel{reply: "I'm listening."}
	p, err := NewArk(context.Background(), fake)
	require.NoError(t, err)

	reply := p.Generate(context.Background(), "SYSTEM", "hello")
	require.True(t, reply.OK(), reply.Text)
	assert.Equal(t, "I'm listening.", reply.Text)

	require.Len(t, fake.seen, 2)
	assert.Equal(t, schema.System, fake.seen[0].Role)
	assert.Equal(t, "SYSTEM", fake.seen[0].Content)
	assert.Equal(t, schema.User, fake.seen[1].Role)
	assert.Equal(t, "hello", fake.seen[1].Content)
}

type stubProvider struct {
	kind  Kind
	calls int
	panic bool
	wait  bool
}

func (s *stubProvider) Kind() Kind { return s.kind }

func (s *stubProvider) Generate(ctx context.Context, _, user string) Reply {
	s.calls++
	if s.panic {
		panic("boom")
	}
	if s.wait {
		<-ctx.Done()
		return transportError(s.kind, ctx.Err())
	}
	return okReply(s.kind, "echo: "+user)
}

func TestRegistryDispatch(t *testing.T) {
	groq := &stubProvider{kind: Groq}
	gemini := &stubProvider{kind: Gemini}
	reg := NewRegistry(Groq, time.Second, zaptest.NewLogger(t), groq, gemini)

	reply := reg.Generate(context.Background(), reg.Resolve("gemini"), "s", "hi")
	assert.Equal(t, "echo: hi", reply.Text)
	assert.Equal(t, 1, gemini.calls)
	assert.Equal(t, 0, groq.calls)

	reply = reg.Generate(context.Background(), reg.Resolve("unknown"), "s", "hi")
	assert.Equal(t, Groq, reply.Provider)
	assert.Equal(t, 1, groq.calls)

	assert.True(t, reg.Registered(Gemini))
	assert.False(t, reg.Registered(Ark))
}

func TestRegistryUnregisteredKind(t *testing.T) {
	reg := NewRegistry(Groq, 0, nil)
	reply := reg.Generate(context.Background(), Ark, "s", "hi")
	assert.Equal(t, "Error: Ark API Key missing.", reply.Text)
	assert.Equal(t, StatusMissingKey, reply.Status)
}

func TestRegistryRecoversPanics(t *testing.T) {
	reg := NewRegistry(Groq, 0, zaptest.NewLogger(t), &stubProvider{kind: Groq, panic: true})
	reply := reg.Generate(context.Background(), Groq, "s", "hi")
	assert.Equal(t, StatusTransportError, reply.Status)
	assert.True(t, strings.HasPrefix(reply.Text, "Groq Exception: "), reply.Text)
}

func TestRegistryAppliesTimeout(t *testing.T) {
	reg := NewRegistry(Groq, 20*time.Millisecond, zaptest.NewLogger(t), &stubProvider{kind: Groq, wait: true})
	reply := reg.Generate(context.Background(), Groq, "s", "hi")
	assert.Equal(t, StatusTransportError, reply.Status)
	assert.Contains(t, reply.Text, "deadline exceeded")
}
