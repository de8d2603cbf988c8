// Package llmtest provides a scriptable language model for testing.
package llmtest

import (
	"context"
	"errors"

	"github.com/sylviahq/sylvia/llm"
)

// MockGenerateResult is a result for a mocked `generate` call.
// It can either be a full response or an error.
type MockGenerateResult struct {
	Response *llm.ModelResponse
	Error    error
}

// NewMockGenerateResultResponse constructs a generate result with a response.
func NewMockGenerateResultResponse(response llm.ModelResponse) MockGenerateResult {
	return MockGenerateResult{Response: &response}
}

// NewMockGenerateResultError constructs a generate result that yields an error.
func NewMockGenerateResultError(err error) MockGenerateResult {
	return MockGenerateResult{Error: err}
}

// MockStreamResult is a result for a mocked `stream` call.
// It can either be a set of partial responses or an error.
type MockStreamResult struct {
	Partials []llm.PartialModelResponse
	Error    error
}

// NewMockStreamResultPartials constructs a stream result with partial responses.
func NewMockStreamResultPartials(partials []llm.PartialModelResponse) MockStreamResult {
	return MockStreamResult{Partials: partials}
}

// NewMockStreamResultError constructs a stream result that yields an error.
func NewMockStreamResultError(err error) MockStreamResult {
	return MockStreamResult{Error: err}
}

// NewMockStreamResultText constructs a stream result that yields the given
// text chunks as text deltas.
func NewMockStreamResultText(chunks ...string) MockStreamResult {
	partials := make([]llm.PartialModelResponse, len(chunks))
	for i, chunk := range chunks {
		partials[i] = llm.PartialModelResponse{
			Delta: &llm.ContentDelta{
				Index: 0,
				Part:  llm.PartDelta{TextPartDelta: &llm.TextPartDelta{Text: chunk}},
			},
		}
	}
	return MockStreamResult{Partials: partials}
}

// MockLanguageModel is a mock language model for testing purposes
// that tracks inputs and returns predefined outputs.
type MockLanguageModel struct {
	mockedGenerateResults []MockGenerateResult
	mockedStreamResults   []MockStreamResult

	trackedGenerateInputs []llm.LanguageModelInput
	trackedStreamInputs   []llm.LanguageModelInput
}

// NewMockLanguageModel constructs a mock language model instance.
func NewMockLanguageModel() *MockLanguageModel {
	return &MockLanguageModel{}
}

// Provider returns the provider name of the mock language model.
func (m *MockLanguageModel) Provider() llm.ProviderName {
	return "mock"
}

// ModelID returns the model identifier of the mock language model.
func (m *MockLanguageModel) ModelID() string {
	return "mock-model"
}

// Generate returns the next mocked generate result, tracking the provided input.
func (m *MockLanguageModel) Generate(_ context.Context, input *llm.LanguageModelInput) (*llm.ModelResponse, error) {
	if len(m.mockedGenerateResults) == 0 {
		return nil, errors.New("no mocked generate results available")
	}

	result := m.mockedGenerateResults[0]
	m.mockedGenerateResults = m.mockedGenerateResults[1:]
	m.trackedGenerateInputs = append(m.trackedGenerateInputs, *input)

	if result.Error != nil {
		return nil, result.Error
	}
	return result.Response, nil
}

// Stream returns the next mocked stream result, tracking the provided input.
func (m *MockLanguageModel) Stream(_ context.Context, input *llm.LanguageModelInput) (*llm.LanguageModelStream, error) {
	if len(m.mockedStreamResults) == 0 {
		return nil, errors.New("no mocked stream results available")
	}

	result := m.mockedStreamResults[0]
	m.mockedStreamResults = m.mockedStreamResults[1:]
	m.trackedStreamInputs = append(m.trackedStreamInputs, *input)

	if result.Error != nil {
		return nil, result.Error
	}

	eventChan := make(chan *llm.PartialModelResponse)
	errChan := make(chan error)

	partials := result.Partials

	go func() {
		defer close(eventChan)
		defer close(errChan)

		for _, partial := range partials {
			p := partial
			eventChan <- &p
		}
	}()

	return llm.NewLanguageModelStream(eventChan, errChan), nil
}

// EnqueueGenerateResult enqueues generate results to be returned sequentially.
func (m *MockLanguageModel) EnqueueGenerateResult(results ...MockGenerateResult) {
	m.mockedGenerateResults = append(m.mockedGenerateResults, results...)
}

// EnqueueStreamResult enqueues stream results to be returned sequentially.
func (m *MockLanguageModel) EnqueueStreamResult(results ...MockStreamResult) {
	m.mockedStreamResults = append(m.mockedStreamResults, results...)
}

// TrackedGenerateInputs returns the list of inputs tracked from Generate calls.
func (m *MockLanguageModel) TrackedGenerateInputs() []llm.LanguageModelInput {
	return m.trackedGenerateInputs
}

// TrackedStreamInputs returns the list of inputs tracked from Stream calls.
func (m *MockLanguageModel) TrackedStreamInputs() []llm.LanguageModelInput {
	return m.trackedStreamInputs
}

var _ llm.LanguageModel = (*MockLanguageModel)(nil)
