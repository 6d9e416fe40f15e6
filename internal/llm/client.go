// Package llm abstracts the text-generation collaborator behind a small
// complete/stream capability.
package llm

import (
	"context"
	"errors"
)

// ErrUpstream wraps every failure of the generation backend after retries.
var ErrUpstream = errors.New("llm upstream failure")

// Role of a message in the conversation sent to the model.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// Message is one turn of model input.
type Message struct {
	Role Role
	Text string
}

// Request describes one generation call.
type Request struct {
	Messages []Message
	// Temperature overrides the model default when non-nil.
	Temperature *float32
	// JSON asks the backend for an application/json response.
	JSON bool
}

// ChunkFunc receives streamed fragments in order. Returning an error stops the stream.
type ChunkFunc func(text string) error

// Client generates text either in one piece or as a stream of fragments.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request, onChunk ChunkFunc) (string, error)
}

// Float32 returns a pointer to v, for Request.Temperature.
func Float32(v float32) *float32 {
	return &v
}

// ErrNotConfigured is returned by Unconfigured.
var ErrNotConfigured = errors.New("llm api key not configured")

// Unconfigured is the Client used when no API key is set outside production.
// Every call fails, so the rest of the API stays usable.
type Unconfigured struct{}

func (Unconfigured) Complete(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Stream(context.Context, Request, ChunkFunc) (string, error) {
	return "", ErrNotConfigured
}
