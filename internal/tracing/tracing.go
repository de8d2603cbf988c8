package tracing

import (
	"context"

	"github.com/sylviahq/sylvia/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Initialized lazily so the application has a chance to configure the global
// tracer provider first.
var tracer = otel.Tracer("github.com/sylviahq/sylvia")

// TraceGenerate wraps a non-streaming model call in a span following the
// gen_ai semantic conventions.
func TraceGenerate(
	ctx context.Context,
	provider string,
	modelID string,
	fn func(context.Context) (*llm.ModelResponse, error),
) (*llm.ModelResponse, error) {
	ctx, span := tracer.Start(ctx, "llm.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("gen_ai.operation.name", "generate"),
		attribute.String("gen_ai.system", provider),
		attribute.String("gen_ai.request.model", modelID),
	)

	response, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if response != nil && response.Usage != nil {
		span.SetAttributes(
			attribute.Int("gen_ai.usage.input_tokens", response.Usage.InputTokens),
			attribute.Int("gen_ai.usage.output_tokens", response.Usage.OutputTokens),
		)
	}

	return response, nil
}

// TraceStream wraps the setup of a streaming model call in a span. The span
// covers stream initiation only; token delivery happens on the caller's side.
func TraceStream(
	ctx context.Context,
	provider string,
	modelID string,
	fn func(context.Context) (*llm.LanguageModelStream, error),
) (*llm.LanguageModelStream, error) {
	ctx, span := tracer.Start(ctx, "llm.stream")
	defer span.End()

	span.SetAttributes(
		attribute.String("gen_ai.operation.name", "stream"),
		attribute.String("gen_ai.system", provider),
		attribute.String("gen_ai.request.model", modelID),
	)

	s, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return s, nil
}
