// Package google implements the llm.LanguageModel interface over the Gemini
// REST API (generateContent and streamGenerateContent).
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sylviahq/sylvia/internal/clientutils"
	"github.com/sylviahq/sylvia/internal/sliceutils"
	"github.com/sylviahq/sylvia/internal/tracing"
	"github.com/sylviahq/sylvia/llm"
	"github.com/sylviahq/sylvia/llm/google/googleapi"
)

const Provider llm.ProviderName = "google"

type GoogleModelOptions struct {
	BaseURL    string
	APIKey     string
	APIVersion string
	HTTPClient *http.Client
}

type GoogleModel struct {
	baseURL    string
	apiKey     string
	apiVersion string
	modelID    string
	client     *http.Client
}

func NewGoogleModel(modelID string, options GoogleModelOptions) *GoogleModel {
	baseURL := "https://generativelanguage.googleapis.com"
	if options.BaseURL != "" {
		baseURL = options.BaseURL
	}
	apiVersion := "v1beta"
	if options.APIVersion != "" {
		apiVersion = options.APIVersion
	}
	client := options.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &GoogleModel{
		baseURL:    baseURL,
		apiKey:     options.APIKey,
		apiVersion: apiVersion,
		modelID:    modelID,
		client:     client,
	}
}

func (m *GoogleModel) Provider() llm.ProviderName {
	return Provider
}

func (m *GoogleModel) ModelID() string {
	return m.modelID
}

func (m *GoogleModel) Generate(ctx context.Context, input *llm.LanguageModelInput) (*llm.ModelResponse, error) {
	return tracing.TraceGenerate(ctx, string(Provider), m.modelID, func(ctx context.Context) (*llm.ModelResponse, error) {
		params, err := convertToGenerateContentParameters(input)
		if err != nil {
			return nil, err
		}

		response, err := clientutils.DoJSON[googleapi.GenerateContentResponse](ctx, m.client, clientutils.JSONRequestConfig{
			URL: fmt.Sprintf("%s/%s/models/%s:generateContent", m.baseURL, m.apiVersion, m.modelID),
			Headers: map[string]string{
				"x-goog-api-key": m.apiKey,
			},
			Body: params,
		})
		if err != nil {
			return nil, mapRequestError(err)
		}

		if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
			return nil, llm.NewInvariantError(string(Provider), "no candidates returned")
		}

		content := mapGoogleContent(response.Candidates[0].Content.Parts)

		var usage *llm.ModelUsage
		if response.UsageMetadata != nil {
			usage = mapGoogleUsageMetadata(*response.UsageMetadata)
		}

		return &llm.ModelResponse{
			Content: content,
			Usage:   usage,
		}, nil
	})
}

func (m *GoogleModel) Stream(ctx context.Context, input *llm.LanguageModelInput) (*llm.LanguageModelStream, error) {
	return tracing.TraceStream(ctx, string(Provider), m.modelID, func(ctx context.Context) (*llm.LanguageModelStream, error) {
		params, err := convertToGenerateContentParameters(input)
		if err != nil {
			return nil, err
		}

		sseStream, err := clientutils.DoSSE[googleapi.GenerateContentResponse](ctx, m.client, clientutils.SSERequestConfig{
			URL: fmt.Sprintf("%s/%s/models/%s:streamGenerateContent?alt=sse", m.baseURL, m.apiVersion, m.modelID),
			Headers: map[string]string{
				"x-goog-api-key": m.apiKey,
			},
			Body: params,
		})
		if err != nil {
			return nil, mapRequestError(err)
		}

		responseCh := make(chan *llm.PartialModelResponse)
		errCh := make(chan error, 1)

		go func() {
			defer close(responseCh)
			defer close(errCh)
			defer sseStream.Close()

			for sseStream.Next() {
				streamEvent := sseStream.Current()
				if streamEvent == nil || len(streamEvent.Candidates) == 0 {
					continue
				}

				candidate := streamEvent.Candidates[0]
				if candidate.Content != nil {
					for _, part := range candidate.Content.Parts {
						if part.Text == nil || *part.Text == "" {
							continue
						}
						partial := &llm.PartialModelResponse{
							Delta: &llm.ContentDelta{
								Index: 0,
								Part:  llm.PartDelta{TextPartDelta: &llm.TextPartDelta{Text: *part.Text}},
							},
						}
						select {
						case responseCh <- partial:
						case <-ctx.Done():
							return
						}
					}
				}

				if streamEvent.UsageMetadata != nil {
					select {
					case responseCh <- &llm.PartialModelResponse{
						Usage: mapGoogleUsageMetadata(*streamEvent.UsageMetadata),
					}:
					case <-ctx.Done():
						return
					}
				}
			}

			if err := sseStream.Err(); err != nil {
				errCh <- llm.NewTransportError(err)
			}
		}()

		return llm.NewLanguageModelStream(responseCh, errCh), nil
	})
}

func mapRequestError(err error) error {
	var httpErr *clientutils.HTTPError
	if errors.As(err, &httpErr) {
		return llm.NewStatusCodeError(httpErr.Status, httpErr.Body)
	}
	return llm.NewTransportError(err)
}

func convertToGenerateContentParameters(input *llm.LanguageModelInput) (*googleapi.GenerateContentParameters, error) {
	contents, err := convertToGoogleContents(input.Messages)
	if err != nil {
		return nil, err
	}

	params := &googleapi.GenerateContentParameters{
		Contents: contents,
		GenerationConfig: &googleapi.GenerateContentConfig{
			Temperature:     input.Temperature,
			TopP:            input.TopP,
			MaxOutputTokens: input.MaxTokens,
		},
	}

	if input.SystemPrompt != nil {
		params.SystemInstruction = &googleapi.Content{
			Parts: []googleapi.Part{{Text: input.SystemPrompt}},
		}
	}

	if len(input.Tools) > 0 {
		params.Tools = []googleapi.Tool{
			{
				FunctionDeclarations: sliceutils.Map(input.Tools, convertToGoogleTool),
			},
		}
	}

	return params, nil
}

func convertToGoogleContents(messages []llm.Message) ([]googleapi.Content, error) {
	contents := make([]googleapi.Content, len(messages))
	for i, message := range messages {
		switch {
		case message.UserMessage != nil:
			parts, err := sliceutils.MapErr(message.UserMessage.Content, convertToGooglePart)
			if err != nil {
				return nil, err
			}
			contents[i] = googleapi.Content{Role: "user", Parts: parts}
		case message.AssistantMessage != nil:
			parts, err := sliceutils.MapErr(message.AssistantMessage.Content, convertToGooglePart)
			if err != nil {
				return nil, err
			}
			contents[i] = googleapi.Content{Role: "model", Parts: parts}
		case message.ToolMessage != nil:
			// Tool results are fed back as pseudo-user input.
			parts, err := sliceutils.MapErr(message.ToolMessage.Content, convertToGooglePart)
			if err != nil {
				return nil, err
			}
			contents[i] = googleapi.Content{Role: "user", Parts: parts}
		default:
			return nil, llm.NewInvalidInputError("message has no content")
		}
	}
	return contents, nil
}

func convertToGooglePart(part llm.Part) (googleapi.Part, error) {
	switch {
	case part.TextPart != nil:
		return googleapi.Part{Text: &part.TextPart.Text}, nil
	case part.FilePart != nil:
		return googleapi.Part{
			InlineData: &googleapi.Blob{
				MimeType: &part.FilePart.MimeType,
				Data:     &part.FilePart.Data,
			},
		}, nil
	case part.ToolCallPart != nil:
		return googleapi.Part{
			FunctionCall: &googleapi.FunctionCall{
				Id:   &part.ToolCallPart.ToolCallID,
				Name: &part.ToolCallPart.ToolName,
				Args: part.ToolCallPart.Args,
			},
		}, nil
	case part.ToolResultPart != nil:
		return googleapi.Part{
			FunctionResponse: &googleapi.FunctionResponse{
				Id:       &part.ToolResultPart.ToolCallID,
				Name:     &part.ToolResultPart.ToolName,
				Response: convertToGoogleFunctionResponseResponse(part.ToolResultPart),
			},
		}, nil
	}
	return googleapi.Part{}, llm.NewInvalidInputError(fmt.Sprintf("unsupported part type: %s", part.Type()))
}

// convertToGoogleFunctionResponseResponse uses the "output" key for function
// output and the "error" key for error details, per the Google API contract.
func convertToGoogleFunctionResponseResponse(result *llm.ToolResultPart) map[string]any {
	var payload any
	for _, part := range result.Content {
		if part.TextPart == nil {
			continue
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(part.TextPart.Text), &parsed); err != nil {
			payload = map[string]any{"data": part.TextPart.Text}
		} else {
			payload = parsed
		}
		break
	}
	if payload == nil {
		payload = map[string]any{}
	}

	key := "output"
	if result.IsError {
		key = "error"
	}
	return map[string]any{key: payload}
}

func convertToGoogleTool(tool llm.Tool) googleapi.FunctionDeclaration {
	return googleapi.FunctionDeclaration{
		Name:                 &tool.Name,
		Description:          &tool.Description,
		ParametersJsonSchema: tool.Parameters,
	}
}

// mapGoogleContent maps Google API parts to SDK parts
func mapGoogleContent(parts []googleapi.Part) []llm.Part {
	var result []llm.Part

	for _, part := range parts {
		if part.Text != nil {
			result = append(result, llm.NewTextPart(*part.Text))
			continue
		}

		if part.InlineData != nil && part.InlineData.MimeType != nil && part.InlineData.Data != nil {
			result = append(result, llm.NewFilePart(*part.InlineData.MimeType, *part.InlineData.Data))
			continue
		}

		if part.FunctionCall != nil && part.FunctionCall.Name != nil {
			toolCallID := ""
			if part.FunctionCall.Id != nil {
				toolCallID = *part.FunctionCall.Id
			} else {
				toolCallID = fmt.Sprintf("call_%s", uuid.NewString())
			}
			result = append(result, llm.NewToolCallPart(toolCallID, *part.FunctionCall.Name, part.FunctionCall.Args))
			continue
		}
	}

	return result
}

// mapGoogleUsageMetadata maps Google usage metadata to SDK usage
func mapGoogleUsageMetadata(usageMetadata googleapi.GenerateContentResponseUsageMetadata) *llm.ModelUsage {
	usage := &llm.ModelUsage{}
	if usageMetadata.PromptTokenCount != nil {
		usage.InputTokens = *usageMetadata.PromptTokenCount
	}
	if usageMetadata.CandidatesTokenCount != nil {
		usage.OutputTokens = *usageMetadata.CandidatesTokenCount
	}
	return usage
}

var _ llm.LanguageModel = (*GoogleModel)(nil)
