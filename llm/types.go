package llm

import (
	"encoding/json"
	"fmt"
)

// Part represents a part of a message.
type Part struct {
	TextPart       *TextPart       `json:"-"`
	FilePart       *FilePart       `json:"-"`
	ToolCallPart   *ToolCallPart   `json:"-"`
	ToolResultPart *ToolResultPart `json:"-"`
}

type PartType string

const (
	PartTypeText       PartType = "text"
	PartTypeFile       PartType = "file"
	PartTypeToolCall   PartType = "tool-call"
	PartTypeToolResult PartType = "tool-result"
)

func (p Part) Type() PartType {
	switch {
	case p.TextPart != nil:
		return PartTypeText
	case p.FilePart != nil:
		return PartTypeFile
	case p.ToolCallPart != nil:
		return PartTypeToolCall
	case p.ToolResultPart != nil:
		return PartTypeToolResult
	default:
		return ""
	}
}

// TextPart represents a part of the message that contains text.
type TextPart struct {
	Text string `json:"text"`
}

// FilePart represents a binary attachment described by its MIME type and
// base64-encoded payload.
type FilePart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// ToolCallPart represents a call to a tool the model wants to use.
type ToolCallPart struct {
	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	Args       map[string]any `json:"args"`
}

// ToolResultPart represents the result of a tool call.
type ToolResultPart struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	Content    []Part `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for Part
func (p Part) MarshalJSON() ([]byte, error) {
	if p.TextPart != nil {
		return json.Marshal(struct {
			Type PartType `json:"type"`
			*TextPart
		}{
			Type:     PartTypeText,
			TextPart: p.TextPart,
		})
	}
	if p.FilePart != nil {
		return json.Marshal(struct {
			Type PartType `json:"type"`
			*FilePart
		}{
			Type:     PartTypeFile,
			FilePart: p.FilePart,
		})
	}
	if p.ToolCallPart != nil {
		return json.Marshal(struct {
			Type PartType `json:"type"`
			*ToolCallPart
		}{
			Type:         PartTypeToolCall,
			ToolCallPart: p.ToolCallPart,
		})
	}
	if p.ToolResultPart != nil {
		return json.Marshal(struct {
			Type PartType `json:"type"`
			*ToolResultPart
		}{
			Type:           PartTypeToolResult,
			ToolResultPart: p.ToolResultPart,
		})
	}
	return nil, fmt.Errorf("part has no content")
}

// UnmarshalJSON implements custom JSON unmarshaling for Part
func (p *Part) UnmarshalJSON(data []byte) error {
	var temp struct {
		Type PartType `json:"type"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	switch temp.Type {
	case PartTypeText:
		var t TextPart
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		p.TextPart = &t
	case PartTypeFile:
		var f FilePart
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		p.FilePart = &f
	case PartTypeToolCall:
		var tc ToolCallPart
		if err := json.Unmarshal(data, &tc); err != nil {
			return err
		}
		p.ToolCallPart = &tc
	case PartTypeToolResult:
		var tr ToolResultPart
		if err := json.Unmarshal(data, &tr); err != nil {
			return err
		}
		p.ToolResultPart = &tr
	default:
		return fmt.Errorf("unknown part type: %s", temp.Type)
	}

	return nil
}

// NewTextPart creates a new text part
func NewTextPart(text string) Part {
	return Part{TextPart: &TextPart{Text: text}}
}

// NewFilePart creates a new file part
func NewFilePart(mimeType, data string) Part {
	return Part{FilePart: &FilePart{MimeType: mimeType, Data: data}}
}

// NewToolCallPart creates a new tool call part
func NewToolCallPart(toolCallID, toolName string, args map[string]any) Part {
	return Part{
		ToolCallPart: &ToolCallPart{
			ToolCallID: toolCallID,
			ToolName:   toolName,
			Args:       args,
		},
	}
}

// NewToolResultPart creates a new tool result part
func NewToolResultPart(toolCallID, toolName string, content []Part, isError bool) Part {
	return Part{
		ToolResultPart: &ToolResultPart{
			ToolCallID: toolCallID,
			ToolName:   toolName,
			Content:    content,
			IsError:    isError,
		},
	}
}

// Message represents a message in an LLM conversation history.
type Message struct {
	UserMessage      *UserMessage      `json:"-"`
	AssistantMessage *AssistantMessage `json:"-"`
	ToolMessage      *ToolMessage      `json:"-"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (m Message) Role() Role {
	switch {
	case m.UserMessage != nil:
		return RoleUser
	case m.AssistantMessage != nil:
		return RoleAssistant
	case m.ToolMessage != nil:
		return RoleTool
	}
	return ""
}

// Content returns the parts of the message regardless of role.
func (m Message) Content() []Part {
	switch {
	case m.UserMessage != nil:
		return m.UserMessage.Content
	case m.AssistantMessage != nil:
		return m.AssistantMessage.Content
	case m.ToolMessage != nil:
		return m.ToolMessage.Content
	}
	return nil
}

// UserMessage represents a message sent by the user.
type UserMessage struct {
	Content []Part `json:"content"`
}

// AssistantMessage represents a message generated by the model.
type AssistantMessage struct {
	Content []Part `json:"content"`
}

// ToolMessage represents tool results in the message history.
// Only ToolResultPart should be included in the content.
type ToolMessage struct {
	Content []Part `json:"content"`
}

// MarshalJSON implements custom JSON marshaling for Message
func (m Message) MarshalJSON() ([]byte, error) {
	if m.UserMessage != nil {
		return json.Marshal(struct {
			Role Role `json:"role"`
			*UserMessage
		}{
			Role:        RoleUser,
			UserMessage: m.UserMessage,
		})
	}
	if m.AssistantMessage != nil {
		return json.Marshal(struct {
			Role Role `json:"role"`
			*AssistantMessage
		}{
			Role:             RoleAssistant,
			AssistantMessage: m.AssistantMessage,
		})
	}
	if m.ToolMessage != nil {
		return json.Marshal(struct {
			Role Role `json:"role"`
			*ToolMessage
		}{
			Role:        RoleTool,
			ToolMessage: m.ToolMessage,
		})
	}
	return nil, fmt.Errorf("message has no content")
}

// UnmarshalJSON implements custom JSON unmarshaling for Message
func (m *Message) UnmarshalJSON(data []byte) error {
	var temp struct {
		Role    Role   `json:"role"`
		Content []Part `json:"content"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	switch temp.Role {
	case RoleUser:
		m.UserMessage = &UserMessage{Content: temp.Content}
	case RoleAssistant:
		m.AssistantMessage = &AssistantMessage{Content: temp.Content}
	case RoleTool:
		m.ToolMessage = &ToolMessage{Content: temp.Content}
	default:
		return fmt.Errorf("unknown message role: %s", temp.Role)
	}

	return nil
}

// NewUserMessage creates a new user message
func NewUserMessage(parts ...Part) Message {
	return Message{UserMessage: &UserMessage{Content: parts}}
}

// NewAssistantMessage creates a new assistant message
func NewAssistantMessage(parts ...Part) Message {
	return Message{AssistantMessage: &AssistantMessage{Content: parts}}
}

// NewToolMessage creates a new tool message
func NewToolMessage(parts ...Part) Message {
	return Message{ToolMessage: &ToolMessage{Content: parts}}
}

// JSONSchema represents a JSON schema.
type JSONSchema map[string]any

// Tool represents a tool that can be used by the model.
type Tool struct {
	// The name of the tool.
	Name string `json:"name"`
	// A description of the tool.
	Description string `json:"description"`
	// The JSON schema of the parameters that the tool accepts. The type must be "object".
	Parameters JSONSchema `json:"parameters"`
}

// ModelUsage represents the token usage of the model.
type ModelUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ModelResponse represents the response generated by the model.
type ModelResponse struct {
	Content []Part      `json:"content"`
	Usage   *ModelUsage `json:"usage,omitempty"`
}

// ToolCalls returns the tool call parts of the response content, if any.
func (r *ModelResponse) ToolCalls() []*ToolCallPart {
	var calls []*ToolCallPart
	for _, part := range r.Content {
		if part.ToolCallPart != nil {
			calls = append(calls, part.ToolCallPart)
		}
	}
	return calls
}

// Text returns the concatenated text parts of the response content.
func (r *ModelResponse) Text() string {
	var text string
	for _, part := range r.Content {
		if part.TextPart != nil {
			text += part.TextPart.Text
		}
	}
	return text
}

// TextPartDelta represents a delta update for a text part, used in streaming.
type TextPartDelta struct {
	Text string `json:"text"`
}

// PartDelta represents delta parts used in partial updates.
type PartDelta struct {
	TextPartDelta *TextPartDelta `json:"-"`
}

// MarshalJSON implements custom JSON marshaling for PartDelta
func (p PartDelta) MarshalJSON() ([]byte, error) {
	if p.TextPartDelta != nil {
		return json.Marshal(struct {
			Type string `json:"type"`
			*TextPartDelta
		}{
			Type:          "text",
			TextPartDelta: p.TextPartDelta,
		})
	}
	return nil, fmt.Errorf("part delta has no content")
}

// UnmarshalJSON implements custom JSON unmarshaling for PartDelta
func (p *PartDelta) UnmarshalJSON(data []byte) error {
	var temp struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	switch temp.Type {
	case "text":
		var t TextPartDelta
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		p.TextPartDelta = &t
	default:
		return fmt.Errorf("unknown part delta type: %s", temp.Type)
	}

	return nil
}

// ContentDelta represents a delta update in a message's content, enabling
// partial streaming updates in LLM responses.
type ContentDelta struct {
	Index int       `json:"index"`
	Part  PartDelta `json:"part"`
}

// PartialModelResponse represents a partial response from the language model,
// useful for streaming output.
type PartialModelResponse struct {
	Delta *ContentDelta `json:"delta,omitempty"`
	Usage *ModelUsage   `json:"usage,omitempty"`
}

// LanguageModelInput defines the input parameters for the language model completion.
type LanguageModelInput struct {
	// A system prompt is a way of providing context and instructions to the model
	SystemPrompt *string `json:"system_prompt,omitempty"`
	// A list of messages comprising the conversation so far.
	Messages []Message `json:"messages"`
	// Definitions of tools that the model may use.
	Tools []Tool `json:"tools,omitempty"`
	// The maximum number of tokens that can be generated in the completion.
	MaxTokens *int64 `json:"max_tokens,omitempty"`
	// Amount of randomness injected into the response. Ranges from 0.0 to 1.0
	Temperature *float64 `json:"temperature,omitempty"`
	// An alternative to sampling with temperature, called nucleus sampling.
	TopP *float64 `json:"top_p,omitempty"`
}
