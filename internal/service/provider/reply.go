package provider

import (
	"context"
	"fmt"
)

// Status classifies how a Generate call ended.
type Status string

const (
	StatusOK             Status = "ok"
	StatusMissingKey     Status = "missing_key"
	StatusHTTPError      Status = "http_error"
	StatusTransportError Status = "transport_error"
)

// Reply is the outcome of a Generate call. Failures are carried as Text, never as errors.
type Reply struct {
	Text     string
	Provider Kind
	Status   Status
}

// OK reports whether the text came from the model.
func (r Reply) OK() bool {
	return r.Status == StatusOK
}

// Provider is one backend variant.
type Provider interface {
	Kind() Kind
	// Generate must not return an error or panic; every failure becomes reply text.
	Generate(ctx context.Context, systemPrompt, userMessage string) Reply
}

func okReply(k Kind, text string) Reply {
	return Reply{Text: text, Provider: k, Status: StatusOK}
}

func missingKey(k Kind) Reply {
	return Reply{
		Text:     fmt.Sprintf("Error: %s API Key missing.", k.DisplayName()),
		Provider: k,
		Status:   StatusMissingKey,
	}
}

func httpError(k Kind, body string) Reply {
	return Reply{
		Text:     fmt.Sprintf("%s Error: %s", k.DisplayName(), body),
		Provider: k,
		Status:   StatusHTTPError,
	}
}

func transportError(k Kind, err error) Reply {
	return Reply{
		Text:     fmt.Sprintf("%s Exception: %v", k.DisplayName(), err),
		Provider: k,
		Status:   StatusTransportError,
	}
}
