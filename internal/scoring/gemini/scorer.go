package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/model"
	"github.com/jobradar/jobradar/internal/scoring"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Scorer rates (profile, posting) candidates through a content generator and
// parses the structured verdict out of the model's reply.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

func NewScorer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Scorer{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

var _ scoring.Scorer = (*Scorer)(nil)

func (s *Scorer) Score(ctx context.Context, profile *model.SearchProfile, posting *model.Posting) (*scoring.Assessment, error) {
	if profile == nil {
		return nil, fmt.Errorf("search profile is required")
	}
	if posting == nil {
		return nil, fmt.Errorf("posting is required")
	}

	profilePayload := map[string]any{
		"keywords":          profile.IncludeKeywords,
		"excluded_keywords": profile.ExcludeKeywords,
		"location":          profile.Location,
		"remote":            profile.Remote,
		"salary":            profile.Salary,
	}

	profileJSON, err := json.MarshalIndent(profilePayload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile payload: %w", err)
	}

	postingPayload := map[string]any{
		"title":    posting.Title,
		"company":  posting.Company,
		"location": posting.Location,
		"tags":     posting.Tags,
		"salary":   posting.Salary,
	}

	postingJSON, err := json.MarshalIndent(postingPayload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal posting payload: %w", err)
	}

	prompt := buildPrompt(string(profileJSON), string(postingJSON))

	requestFields := append(
		logger.CandidateFields(profile.UserID, profile.ID, posting.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, s.maxLogLen)),
	)

	s.logger.Debug("gemini score request", requestFields...)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, classifyProviderError(err)
	}

	responseFields := append(
		logger.CandidateFields(profile.UserID, profile.ID, posting.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, s.maxLogLen)),
	)

	s.logger.Debug("gemini score response", responseFields...)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	assessment.Raw = raw
	return assessment, nil
}

func buildPrompt(profileJSON, postingJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Profile:\n{{PROFILE_JSON}}\n\nPosting:\n{{POSTING_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{PROFILE_JSON}}", profileJSON)
	prompt = strings.ReplaceAll(prompt, "{{POSTING_JSON}}", postingJSON)
	return prompt
}

// responsePayload is the shape the model is prompted to return. Decoding is
// weakly typed because models routinely return numbers as strings or a single
// string where a list is expected.
type responsePayload struct {
	Score       float64  `mapstructure:"score"`
	Reasons     []string `mapstructure:"reasons"`
	Weaknesses  []string `mapstructure:"weaknesses"`
	Suggestions []string `mapstructure:"suggestions"`
}

func parseResponse(raw string) (*scoring.Assessment, error) {
	cleaned := extractJSON(strings.TrimSpace(raw))

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", scoring.ErrMalformedResponse, err)
	}

	if _, ok := data["score"]; !ok {
		return nil, fmt.Errorf("%w: score field is missing", scoring.ErrMalformedResponse)
	}

	var payload responsePayload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &payload,
	})
	if err != nil {
		return nil, fmt.Errorf("build response decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", scoring.ErrMalformedResponse, err)
	}

	if math.IsNaN(payload.Score) {
		return nil, fmt.Errorf("%w: score is not a number", scoring.ErrMalformedResponse)
	}

	return &scoring.Assessment{
		Score:       scoring.Clamp(int(math.Round(payload.Score))),
		Reasons:     cleanStrings(payload.Reasons),
		Weaknesses:  cleanStrings(payload.Weaknesses),
		Suggestions: cleanStrings(payload.Suggestions),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func cleanStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// classifyProviderError maps genai API failures onto the scoring error
// taxonomy so the orchestrator can tell fatal credential problems apart from
// per-candidate ones.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", scoring.ErrUnauthorized, apiErr.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", scoring.ErrRateLimited, apiErr.Message)
		}
	}

	return err
}
