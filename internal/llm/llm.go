package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Client abstracts LLM providers for manuscript audits.
type Client interface {
	AuditManuscript(ctx context.Context, input AuditInput) (json.RawMessage, error)
}

// AuditInput captures the inputs needed for a manuscript audit.
type AuditInput struct {
	ManuscriptText string
	PaperType      string
	HelpTypes      []string
	PromptVersion  string
}

type fixJSONKey struct{}

// WithFixJSON returns a context signaling a fix-JSON retry with the given raw output.
func WithFixJSON(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, fixJSONKey{}, raw)
}

// FixJSONFromContext returns the raw JSON to repair, if any.
func FixJSONFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(fixJSONKey{})
	raw, ok := val.(string)
	return raw, ok
}

type extraSystemMessageKey struct{}

// WithExtraSystemMessage prepends an additional system message to the next request.
func WithExtraSystemMessage(ctx context.Context, content string) context.Context {
	return context.WithValue(ctx, extraSystemMessageKey{}, content)
}

// ExtraSystemMessageFromContext returns the extra system message, if any.
func ExtraSystemMessageFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(extraSystemMessageKey{})
	content, ok := val.(string)
	return content, ok
}

type promptHashSinkKey struct{}

// WithPromptHashCapture returns a context that captures the hash of the built
// prompt into sink.
func WithPromptHashCapture(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, promptHashSinkKey{}, sink)
}

// PromptHashSinkFromContext returns the prompt hash sink, if any.
func PromptHashSinkFromContext(ctx context.Context) (*string, bool) {
	val := ctx.Value(promptHashSinkKey{})
	sink, ok := val.(*string)
	return sink, ok
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// AuditManuscript returns ErrNotImplemented.
func (PlaceholderClient) AuditManuscript(ctx context.Context, input AuditInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotImplemented
}
