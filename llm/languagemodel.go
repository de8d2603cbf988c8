package llm

import (
	"context"

	"github.com/sylviahq/sylvia/utils/stream"
)

type ProviderName string

// LanguageModel is the provider-agnostic contract for a generative model:
// given an ordered transcript and a declared set of invocable tools, it
// returns either requested tool invocations or a textual answer.
type LanguageModel interface {
	Provider() ProviderName
	ModelID() string
	Generate(ctx context.Context, input *LanguageModelInput) (*ModelResponse, error)
	Stream(ctx context.Context, input *LanguageModelInput) (*LanguageModelStream, error)
}

// LanguageModelStream is a pull-based stream of partial model responses.
type LanguageModelStream = stream.Stream[*PartialModelResponse]

// NewLanguageModelStream constructs a LanguageModelStream from channels.
func NewLanguageModelStream(c <-chan *PartialModelResponse, errC <-chan error) *LanguageModelStream {
	return stream.New(c, errC)
}
