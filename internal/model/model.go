// Package model holds the domain types shared by the matching pipeline:
// users, search profiles, postings, match records and run statistics.
package model

import (
	"strings"
	"time"
)

// User is the owner of search profiles. The pipeline reads it for the active
// flag, notification preferences and the legacy top-level matching fields
// used when a user has no explicit profiles.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email,omitempty"`
	Active bool   `json:"active"`

	NotifyEmail bool `json:"notify_email"`
	NotifyInApp bool `json:"notify_in_app"`
	NotifyPush  bool `json:"notify_push"`

	// Legacy top-level preferences, predating named profiles.
	LegacyKeywords []string `json:"legacy_keywords,omitempty"`
	LegacyExcludes []string `json:"legacy_excludes,omitempty"`
	LegacyMinScore int      `json:"legacy_min_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SearchProfile is one named search owned by a user. Read-only to the
// pipeline; created and edited by the profile editor collaborator.
type SearchProfile struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`

	IncludeKeywords []string `json:"include_keywords"`
	ExcludeKeywords []string `json:"exclude_keywords,omitempty"`
	AvoidCompanies  []string `json:"avoid_companies,omitempty"`

	// MinScore is the user's own floor for this profile, applied on top of
	// the pipeline-wide publish threshold.
	MinScore int `json:"min_score,omitempty"`

	Location string `json:"location,omitempty"`
	Remote   string `json:"remote,omitempty"`
	Salary   string `json:"salary,omitempty"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Implicit reports whether the profile was synthesized from legacy user
// fields rather than created by the user.
func (p *SearchProfile) Implicit() bool {
	return p != nil && p.ID == ""
}

// ImplicitProfile synthesizes a profile from the user's legacy top-level
// preferences. It is used only when the user has no active explicit
// profiles. The empty ID marks the synthesized profile; ledger rows created
// from it carry an empty profile id.
func ImplicitProfile(u *User) *SearchProfile {
	return &SearchProfile{
		ID:              "",
		UserID:          u.ID,
		Name:            "legacy preferences",
		IncludeKeywords: u.LegacyKeywords,
		ExcludeKeywords: u.LegacyExcludes,
		MinScore:        u.LegacyMinScore,
		Active:          true,
	}
}

// Posting is one discovered job posting. Immutable after creation; the
// ingestion collaborator writes it, the housekeeping sweep purges it after
// the retention window.
type Posting struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Company  string   `json:"company"`
	Location string   `json:"location,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Salary   string   `json:"salary,omitempty"`
	URL      string   `json:"url,omitempty"`
	Source   string   `json:"source,omitempty"`

	DiscoveredAt time.Time `json:"discovered_at"`
}

// MatchRecord is one scored (user, profile, posting) match. At most one
// record exists per triple; an empty ProfileID stands for the implicit
// legacy profile.
type MatchRecord struct {
	UserID    string `json:"user_id"`
	ProfileID string `json:"profile_id,omitempty"`
	PostingID string `json:"posting_id"`

	Score           int      `json:"score"`
	Reasons         []string `json:"reasons,omitempty"`
	Weaknesses      []string `json:"weaknesses,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`

	// Viewed, Saved and Applied are mutated by the UI collaborator only.
	Viewed  bool `json:"viewed"`
	Saved   bool `json:"saved"`
	Applied bool `json:"applied"`

	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RunStats is the aggregate outcome of one pipeline run, logged and
// persisted when the run finishes.
type RunStats struct {
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Users          int `json:"users"`
	Profiles       int `json:"profiles"`
	Candidates     int `json:"candidates"`
	Filtered       int `json:"filtered"`
	Duplicates     int `json:"duplicates"`
	BelowThreshold int `json:"below_threshold"`
	Errors         int `json:"errors"`
	MatchesCreated int `json:"matches_created"`
	NotifyEligible int `json:"notify_eligible"`
}

// Duration returns the wall-clock time the run took.
func (s *RunStats) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// NormalizeKeywords trims the provided keywords and drops empty entries,
// preserving order.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out = append(out, kw)
	}
	return out
}
