// Package googleapi contains the subset of the Gemini REST API wire types
// used by the google provider.
package googleapi

// GenerateContentParameters is the request body for generateContent and
// streamGenerateContent.
type GenerateContentParameters struct {
	Contents          []Content              `json:"contents"`
	SystemInstruction *Content               `json:"systemInstruction,omitempty"`
	Tools             []Tool                 `json:"tools,omitempty"`
	GenerationConfig  *GenerateContentConfig `json:"generationConfig,omitempty"`
}

type GenerateContentConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int64   `json:"maxOutputTokens,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text             *string           `json:"text,omitempty"`
	InlineData       *Blob             `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

type Blob struct {
	MimeType *string `json:"mimeType,omitempty"`
	Data     *string `json:"data,omitempty"`
}

type FunctionCall struct {
	Id   *string        `json:"id,omitempty"`
	Name *string        `json:"name,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

type FunctionResponse struct {
	Id       *string        `json:"id,omitempty"`
	Name     *string        `json:"name,omitempty"`
	Response map[string]any `json:"response,omitempty"`
}

type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
}

type FunctionDeclaration struct {
	Name                 *string `json:"name,omitempty"`
	Description          *string `json:"description,omitempty"`
	ParametersJsonSchema any     `json:"parametersJsonSchema,omitempty"`
}

type GenerateContentResponse struct {
	Candidates    []Candidate                           `json:"candidates,omitempty"`
	UsageMetadata *GenerateContentResponseUsageMetadata `json:"usageMetadata,omitempty"`
}

type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason *string  `json:"finishReason,omitempty"`
}

type GenerateContentResponseUsageMetadata struct {
	PromptTokenCount     *int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount *int `json:"candidatesTokenCount,omitempty"`
}
