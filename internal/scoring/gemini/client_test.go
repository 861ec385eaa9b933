package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeCaller struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
}

func (f *fakeCaller) generate(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	return f.resp, f.err
}

func textResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(texts))
	for _, text := range texts {
		parts = append(parts, &genai.Part{Text: text})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: parts},
		}},
	}
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), "   ", "gemini-2.5-flash", zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestGeneratorReturnsText(t *testing.T) {
	caller := &fakeCaller{resp: textResponse("hello", "world")}
	g := &Generator{caller: caller, model: "gemini-2.5-flash", logger: zap.NewNop()}

	output, err := g.GenerateContent(context.Background(), "ping")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output != "hello\nworld" {
		t.Fatalf("unexpected output: %q", output)
	}

	if caller.model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model: %q", caller.model)
	}

	if len(caller.contents) != 1 || len(caller.contents[0].Parts) != 1 {
		t.Fatalf("unexpected contents shape: %+v", caller.contents)
	}

	if got := caller.contents[0].Parts[0].Text; got != "ping" {
		t.Fatalf("expected prompt to reach the provider, got %q", got)
	}
}

func TestGeneratorRequiresPrompt(t *testing.T) {
	g := &Generator{caller: &fakeCaller{}, model: "gemini-2.5-flash", logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestGeneratorPropagatesProviderError(t *testing.T) {
	boom := errors.New("boom")
	g := &Generator{caller: &fakeCaller{err: boom}, model: "gemini-2.5-flash", logger: zap.NewNop()}

	_, err := g.GenerateContent(context.Background(), "ping")
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error to be wrapped, got %v", err)
	}
}

func TestTextFromResponseSkipsEmptyParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: nil},
			{Content: &genai.Content{Parts: []*genai.Part{nil, {Text: "  "}, {Text: "useful"}}}},
		},
	}

	output, err := textFromResponse(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "useful" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestTextFromResponseEmpty(t *testing.T) {
	_, err := textFromResponse(textResponse("   "))
	if err == nil || !strings.Contains(err.Error(), "empty response") {
		t.Fatalf("expected empty response error, got %v", err)
	}

	if _, err := textFromResponse(nil); err == nil {
		t.Fatalf("expected error for nil response")
	}
}

func TestGeneratorModel(t *testing.T) {
	g := &Generator{model: "gemini-2.5-flash"}
	if g.Model() != "gemini-2.5-flash" {
		t.Fatalf("unexpected model: %q", g.Model())
	}

	var nilGen *Generator
	if nilGen.Model() != "" {
		t.Fatalf("expected empty model for nil generator")
	}
}
