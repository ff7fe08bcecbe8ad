package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnavailable = errors.New("ai provider unavailable")
	ErrEmptyInput  = errors.New("empty input")
)

type IProvider interface {
	Name() string
	Embed(ctx context.Context, model string, text string) ([]float32, error)
}

// IEmbedder produces a fixed-length vector for a text. Vectors from
// different model configurations are not comparable; callers must not mix
// them.
type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
	Dimension() int
}

type embedder struct {
	provider  IProvider
	model     string
	dimension int
}

func NewEmbedder(p IProvider, model string, dimension int) IEmbedder {
	return &embedder{provider: p, model: model, dimension: dimension}
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	vec, err := e.provider.Embed(ctx, e.model, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("provider %s returned empty embedding", e.provider.Name())
	}
	if e.dimension > 0 && len(vec) != e.dimension {
		return nil, fmt.Errorf("provider %s returned %d dims, want %d", e.provider.Name(), len(vec), e.dimension)
	}
	return vec, nil
}

func (e *embedder) ModelName() string {
	return e.model
}

func (e *embedder) Dimension() int {
	return e.dimension
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}
