// Package matching implements the candidate filter and the pipeline
// orchestrator that drives filtering, scoring, ledger writes and
// notifications.
package matching

import (
	"regexp"
	"strings"

	"github.com/jobradar/jobradar/internal/model"
)

// Admit reports whether the posting survives the profile's lexical rules.
// Pure and synchronous; it exists to avoid spending scorer calls on postings
// with no realistic chance of matching, so it applies title/tag keyword rules
// only and never semantic judgment.
func Admit(profile *model.SearchProfile, posting *model.Posting) bool {
	admitted, _ := Evaluate(profile, posting)
	return admitted
}

// Evaluate applies the candidate filter and additionally returns the include
// keywords that matched the title, in profile order. A posting is admitted
// when no exclude keyword matches the title or any tag as a whole word, and
// either the include set is empty or at least one include keyword matches the
// title as a whole word.
func Evaluate(profile *model.SearchProfile, posting *model.Posting) (bool, []string) {
	if profile == nil || posting == nil {
		return false, nil
	}

	title := strings.ToLower(posting.Title)

	for _, kw := range model.NormalizeKeywords(profile.ExcludeKeywords) {
		if wordMatch(kw, title) {
			return false, nil
		}
		for _, tag := range posting.Tags {
			if wordMatch(kw, tag) {
				return false, nil
			}
		}
	}

	includes := model.NormalizeKeywords(profile.IncludeKeywords)
	if len(includes) == 0 {
		return true, nil
	}

	matched := make([]string, 0, len(includes))
	for _, kw := range includes {
		if wordMatch(kw, title) {
			matched = append(matched, kw)
		}
	}

	if len(matched) == 0 {
		return false, nil
	}

	return true, matched
}

// AvoidsCompany reports whether the posting's company is on the profile's
// avoid list. Comparison is case-insensitive on trimmed names.
func AvoidsCompany(profile *model.SearchProfile, posting *model.Posting) bool {
	if profile == nil || posting == nil {
		return false
	}

	company := strings.ToLower(strings.TrimSpace(posting.Company))
	if company == "" {
		return false
	}

	for _, avoid := range profile.AvoidCompanies {
		if strings.ToLower(strings.TrimSpace(avoid)) == company {
			return true
		}
	}

	return false
}

// wordMatch reports whether the keyword occurs in the text as a whole word.
// Plain substring containment would produce false positives ("bus" matching
// "business"), so the keyword is quoted and anchored on word boundaries. If
// the pattern somehow fails to compile the check falls back to
// case-insensitive substring containment.
func wordMatch(keyword, text string) bool {
	pattern := `(?i)\b` + regexp.QuoteMeta(keyword) + `\b`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
	}
	return re.MatchString(text)
}
