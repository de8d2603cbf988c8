// Package agent runs the bounded tool-augmented generation loop: it enriches
// the request with cross-agent context, lets the model request tool
// invocations for a limited number of round trips, and streams the final
// answer.
package agent

import (
	"context"
	"strings"

	"github.com/sylviahq/sylvia/highway"
	"github.com/sylviahq/sylvia/internal/tracing"
	"github.com/sylviahq/sylvia/llm"
	"github.com/sylviahq/sylvia/utils/stream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxSteps bounds the number of model round trips in a single run.
// Reaching the bound yields the fallback message, never a ninth call.
const DefaultMaxSteps = 8

// FallbackMessage is streamed verbatim when the loop exhausts its round-trip
// budget while the model is still requesting tools.
const FallbackMessage = "I seem to be stuck in a loop. Could you rephrase your request?"

var tracer = otel.Tracer("github.com/sylviahq/sylvia/agent")

// ToolExecutor is the closed set of tools available to the loop. Execute
// always produces a result part; failures travel back to the model as error
// results rather than aborting the run.
type ToolExecutor interface {
	Declarations() []llm.Tool
	Execute(ctx context.Context, call llm.ToolCallPart) llm.ToolResultPart
}

// Attachment is a binary input supplied alongside the prompt.
type Attachment struct {
	MimeType string
	Data     string
}

// Request describes a single run of the loop.
type Request struct {
	Prompt       string
	Attachment   *Attachment
	History      []llm.Message
	Instructions string
	SessionID    string
}

// Loop drives the conversation between the model and the tool executor. A nil
// executor disables tool use entirely; the model then answers in a single
// streamed pass.
type Loop struct {
	model    llm.LanguageModel
	tools    ToolExecutor
	highway  *highway.Highway
	logger   *zap.Logger
	maxSteps int
}

func NewLoop(model llm.LanguageModel, tools ToolExecutor, hw *highway.Highway, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		model:    model,
		tools:    tools,
		highway:  hw,
		logger:   logger,
		maxSteps: DefaultMaxSteps,
	}
}

// Run executes the loop and returns a stream of answer text chunks. The
// returned error covers request validation and model failures before
// streaming begins; failures mid-stream surface through the stream's Err.
func (l *Loop) Run(ctx context.Context, req Request) (*stream.Stream[string], error) {
	if strings.TrimSpace(req.Prompt) == "" && req.Attachment == nil {
		return nil, ErrEmptyRequest
	}

	input := &llm.LanguageModelInput{
		Messages: append([]llm.Message{}, req.History...),
	}
	if prompt := l.systemPrompt(ctx, req); prompt != "" {
		input.SystemPrompt = &prompt
	}

	var parts []llm.Part
	if strings.TrimSpace(req.Prompt) != "" {
		parts = append(parts, llm.NewTextPart(req.Prompt))
	}
	if req.Attachment != nil {
		parts = append(parts, llm.NewFilePart(req.Attachment.MimeType, req.Attachment.Data))
	}
	input.Messages = append(input.Messages, llm.NewUserMessage(parts...))

	if l.tools == nil {
		return l.streamAnswer(ctx, input)
	}
	input.Tools = l.tools.Declarations()

	for step := 0; step < l.maxSteps; step++ {
		response, err := tracing.TraceGenerate(ctx, string(l.model.Provider()), l.model.ModelID(), func(ctx context.Context) (*llm.ModelResponse, error) {
			return l.model.Generate(ctx, input)
		})
		if err != nil {
			return nil, NewLanguageModelError(err)
		}

		calls := response.ToolCalls()
		if len(calls) == 0 {
			return l.streamAnswer(ctx, input)
		}

		l.logger.Debug("model requested tools",
			zap.Int("step", step+1),
			zap.Int("tool_calls", len(calls)))

		results, err := l.executeAll(ctx, calls)
		if err != nil {
			return nil, err
		}
		input.Messages = append(input.Messages,
			llm.Message{AssistantMessage: &llm.AssistantMessage{Content: response.Content}},
			llm.NewToolMessage(results...),
		)
	}

	l.logger.Warn("tool loop budget exhausted, returning fallback",
		zap.String("session_id", req.SessionID),
		zap.Int("max_steps", l.maxSteps))
	return stream.Of(FallbackMessage), nil
}

// executeAll runs the requested tool invocations concurrently and returns
// their results in request order. The results must be joined before the
// conversation resumes; a partial set would desynchronize the transcript.
func (l *Loop) executeAll(ctx context.Context, calls []*llm.ToolCallPart) ([]llm.Part, error) {
	results := make([]llm.Part, len(calls))
	g, ctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result := l.executeOne(ctx, *call)
			results[i] = llm.Part{ToolResultPart: &result}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (l *Loop) executeOne(ctx context.Context, call llm.ToolCallPart) llm.ToolResultPart {
	ctx, span := tracer.Start(ctx, "agent.tool")
	defer span.End()
	span.SetAttributes(
		attribute.String("gen_ai.operation.name", "execute_tool"),
		attribute.String("gen_ai.tool.call.id", call.ToolCallID),
		attribute.String("gen_ai.tool.name", call.ToolName),
		attribute.String("gen_ai.tool.type", "function"),
	)

	result := l.tools.Execute(ctx, call)
	if result.IsError {
		l.logger.Warn("tool execution returned error result",
			zap.String("tool_name", call.ToolName),
			zap.String("tool_call_id", call.ToolCallID))
	}
	return result
}

// streamAnswer requests the final answer as a stream and narrows it to text
// chunks.
func (l *Loop) streamAnswer(ctx context.Context, input *llm.LanguageModelInput) (*stream.Stream[string], error) {
	s, err := tracing.TraceStream(ctx, string(l.model.Provider()), l.model.ModelID(), func(ctx context.Context) (*llm.LanguageModelStream, error) {
		return l.model.Stream(ctx, input)
	})
	if err != nil {
		return nil, NewLanguageModelError(err)
	}

	out := make(chan string)
	errC := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errC)
		for s.Next() {
			partial := s.Current()
			if partial.Delta == nil || partial.Delta.Part.TextPartDelta == nil {
				continue
			}
			select {
			case out <- partial.Delta.Part.TextPartDelta.Text:
			case <-ctx.Done():
				errC <- ctx.Err()
				// Unblock the provider's send loop so it can close the
				// underlying stream.
				for s.Next() {
				}
				return
			}
		}
		if err := s.Err(); err != nil {
			errC <- NewLanguageModelError(err)
		}
	}()
	return stream.New(out, errC), nil
}

// systemPrompt combines the caller's instructions with the cross-agent
// context block. Enrichment only applies to instructed, session-bound runs.
func (l *Loop) systemPrompt(ctx context.Context, req Request) string {
	if req.Instructions == "" {
		return ""
	}
	sections := []string{req.Instructions}
	if block := l.contextBlock(ctx, req.SessionID); block != "" {
		sections = append(sections, block)
	}
	return strings.Join(sections, "\n\n")
}
