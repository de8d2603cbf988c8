package google

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sylviahq/sylvia/llm"
	"github.com/sylviahq/sylvia/llm/google/googleapi"
)

func TestConvertToGoogleContentsRoles(t *testing.T) {
	messages := []llm.Message{
		llm.NewUserMessage(llm.NewTextPart("hi")),
		llm.NewAssistantMessage(llm.NewToolCallPart("c1", "firecrawl_map", map[string]any{"url": "https://example.com"})),
		llm.NewToolMessage(llm.NewToolResultPart("c1", "firecrawl_map", []llm.Part{llm.NewTextPart(`{"links":[]}`)}, false)),
	}

	contents, err := convertToGoogleContents(messages)
	if err != nil {
		t.Fatalf("convertToGoogleContents: %v", err)
	}
	roles := []string{contents[0].Role, contents[1].Role, contents[2].Role}
	if diff := cmp.Diff([]string{"user", "model", "user"}, roles); diff != "" {
		t.Errorf("role mismatch (-want +got):\n%s", diff)
	}
	if contents[1].Parts[0].FunctionCall == nil {
		t.Error("expected a function call part")
	}
	if contents[2].Parts[0].FunctionResponse == nil {
		t.Error("expected a function response part")
	}
}

func TestFunctionResponseKeyReflectsErrorState(t *testing.T) {
	ok := convertToGoogleFunctionResponseResponse(&llm.ToolResultPart{
		Content: []llm.Part{llm.NewTextPart(`{"links":["a"]}`)},
	})
	if _, found := ok["output"]; !found {
		t.Errorf("expected output key, got %v", ok)
	}

	failed := convertToGoogleFunctionResponseResponse(&llm.ToolResultPart{
		Content: []llm.Part{llm.NewTextPart(`{"error":"boom"}`)},
		IsError: true,
	})
	if _, found := failed["error"]; !found {
		t.Errorf("expected error key, got %v", failed)
	}
}

func TestMapGoogleContentGeneratesToolCallID(t *testing.T) {
	name := "firecrawl_scrape"
	parts := []googleapi.Part{
		{FunctionCall: &googleapi.FunctionCall{Name: &name, Args: map[string]any{"url": "https://example.com"}}},
	}
	mapped := mapGoogleContent(parts)
	if len(mapped) != 1 || mapped[0].ToolCallPart == nil {
		t.Fatalf("expected a tool call part, got %+v", mapped)
	}
	if !strings.HasPrefix(mapped[0].ToolCallPart.ToolCallID, "call_") {
		t.Errorf("expected a generated call id, got %q", mapped[0].ToolCallPart.ToolCallID)
	}
}

func TestSystemPromptBecomesSystemInstruction(t *testing.T) {
	prompt := "You are Sylvia."
	params, err := convertToGenerateContentParameters(&llm.LanguageModelInput{
		SystemPrompt: &prompt,
		Messages:     []llm.Message{llm.NewUserMessage(llm.NewTextPart("hi"))},
	})
	if err != nil {
		t.Fatalf("convertToGenerateContentParameters: %v", err)
	}
	if params.SystemInstruction == nil || *params.SystemInstruction.Parts[0].Text != prompt {
		t.Errorf("expected system instruction %q, got %+v", prompt, params.SystemInstruction)
	}
}
