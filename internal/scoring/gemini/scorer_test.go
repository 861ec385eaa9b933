package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/jobradar/jobradar/internal/model"
	"github.com/jobradar/jobradar/internal/scoring"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func scorerCandidate() (*model.SearchProfile, *model.Posting) {
	profile := &model.SearchProfile{
		ID:              "p-1",
		UserID:          "u-1",
		IncludeKeywords: []string{"golang", "backend"},
		ExcludeKeywords: []string{"intern"},
		Location:        "Berlin",
		Remote:          "remote ok",
	}
	posting := &model.Posting{
		ID:      "j-1",
		Title:   "Senior Backend Engineer",
		Company: "Acme",
		Tags:    []string{"go", "postgres"},
		Salary:  "90k-110k EUR",
	}
	return profile, posting
}

func TestScorerScore(t *testing.T) {
	stub := &stubGenerator{response: `{"score": 88, "reasons": ["strong keyword overlap"], "weaknesses": ["salary not stated"], "suggestions": ["highlight Go experience"]}`}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	profile, posting := scorerCandidate()

	assessment, err := scorer.Score(context.Background(), profile, posting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Score != 88 {
		t.Fatalf("expected score 88, got %d", assessment.Score)
	}

	if len(assessment.Reasons) != 1 || assessment.Reasons[0] != "strong keyword overlap" {
		t.Fatalf("unexpected reasons: %+v", assessment.Reasons)
	}

	if len(assessment.Weaknesses) != 1 || len(assessment.Suggestions) != 1 {
		t.Fatalf("expected weaknesses and suggestions populated: %+v", assessment)
	}

	if assessment.Raw == "" {
		t.Fatalf("expected raw response to be preserved")
	}

	if stub.lastPrompt == "" {
		t.Fatalf("expected prompt to be sent")
	}

	if !strings.Contains(stub.lastPrompt, "Senior Backend Engineer") {
		t.Fatalf("expected posting title in prompt: %s", stub.lastPrompt)
	}

	if !strings.Contains(stub.lastPrompt, "golang") {
		t.Fatalf("expected profile keyword in prompt: %s", stub.lastPrompt)
	}
}

func TestScorerRequiresCandidate(t *testing.T) {
	scorer := NewScorer(&stubGenerator{}, zap.NewNop(), 0)
	_, posting := scorerCandidate()

	if _, err := scorer.Score(context.Background(), nil, posting); err == nil {
		t.Fatalf("expected error for missing profile")
	}

	profile, _ := scorerCandidate()
	if _, err := scorer.Score(context.Background(), profile, nil); err == nil {
		t.Fatalf("expected error for missing posting")
	}
}

func TestScorerClassifiesRateLimit(t *testing.T) {
	stub := &stubGenerator{err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED", Message: "quota exhausted"}}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	profile, posting := scorerCandidate()

	_, err := scorer.Score(context.Background(), profile, posting)
	if !errors.Is(err, scoring.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestScorerClassifiesAuthFailure(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		stub := &stubGenerator{err: genai.APIError{Code: code, Status: "PERMISSION_DENIED", Message: "bad key"}}
		scorer := NewScorer(stub, zap.NewNop(), 0)

		profile, posting := scorerCandidate()

		_, err := scorer.Score(context.Background(), profile, posting)
		if !errors.Is(err, scoring.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for code %d, got %v", code, err)
		}
	}
}

func TestScorerPassesThroughOtherProviderErrors(t *testing.T) {
	stub := &stubGenerator{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	profile, posting := scorerCandidate()

	_, err := scorer.Score(context.Background(), profile, posting)
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, scoring.ErrRateLimited) || errors.Is(err, scoring.ErrUnauthorized) {
		t.Fatalf("did not expect sentinel classification for 500, got %v", err)
	}
}

func TestParseResponseHandlesCodeBlock(t *testing.T) {
	raw := "```json\n{\"score\": 73, \"reasons\": [\"relevant title\"]}\n```"
	assessment, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Score != 73 {
		t.Fatalf("expected score 73, got %d", assessment.Score)
	}

	if len(assessment.Reasons) != 1 || assessment.Reasons[0] != "relevant title" {
		t.Fatalf("unexpected reasons: %+v", assessment.Reasons)
	}
}

func TestParseResponseClampsScore(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		expect int
	}{
		{
			name:   "above range",
			raw:    `{"score": 142}`,
			expect: 100,
		},
		{
			name:   "below range",
			raw:    `{"score": -5}`,
			expect: 0,
		},
		{
			name:   "rounded",
			raw:    `{"score": 86.6}`,
			expect: 87,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessment, err := parseResponse(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if assessment.Score != tt.expect {
				t.Fatalf("expected score %d, got %d", tt.expect, assessment.Score)
			}
		})
	}
}

func TestParseResponseCoercesSloppyTypes(t *testing.T) {
	raw := `{"score": "88", "reasons": "single reason as string", "weaknesses": ["  padded  ", ""]}`
	assessment, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Score != 88 {
		t.Fatalf("expected coerced score 88, got %d", assessment.Score)
	}

	if len(assessment.Reasons) != 1 || assessment.Reasons[0] != "single reason as string" {
		t.Fatalf("expected single string promoted to list, got %+v", assessment.Reasons)
	}

	if len(assessment.Weaknesses) != 1 || assessment.Weaknesses[0] != "padded" {
		t.Fatalf("expected trimmed weaknesses, got %+v", assessment.Weaknesses)
	}
}

func TestParseResponseMissingScore(t *testing.T) {
	_, err := parseResponse(`{"reasons": ["nice title"]}`)
	if !errors.Is(err, scoring.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestParseResponseMalformedJSON(t *testing.T) {
	_, err := parseResponse("the posting looks great, I would say 90 out of 100")
	if !errors.Is(err, scoring.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestParseResponseNonNumericScore(t *testing.T) {
	_, err := parseResponse(`{"score": "very high"}`)
	if !errors.Is(err, scoring.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
