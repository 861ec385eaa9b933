package model

import (
	"testing"
	"time"
)

func TestImplicitProfile(t *testing.T) {
	user := &User{
		ID:             "u1",
		Active:         true,
		LegacyKeywords: []string{"golang", "kubernetes"},
		LegacyExcludes: []string{"intern"},
		LegacyMinScore: 75,
	}

	p := ImplicitProfile(user)

	if !p.Implicit() {
		t.Fatal("synthesized profile must report Implicit()")
	}
	if p.ID != "" {
		t.Fatalf("implicit profile id = %q, want empty", p.ID)
	}
	if p.UserID != "u1" {
		t.Fatalf("user id = %q, want u1", p.UserID)
	}
	if !p.Active {
		t.Fatal("implicit profile must be active")
	}
	if len(p.IncludeKeywords) != 2 || p.IncludeKeywords[0] != "golang" {
		t.Fatalf("include keywords = %v, want the legacy keywords", p.IncludeKeywords)
	}
	if len(p.ExcludeKeywords) != 1 || p.ExcludeKeywords[0] != "intern" {
		t.Fatalf("exclude keywords = %v, want the legacy excludes", p.ExcludeKeywords)
	}
	if p.MinScore != 75 {
		t.Fatalf("min score = %d, want 75", p.MinScore)
	}
}

func TestImplicitOnExplicitProfile(t *testing.T) {
	p := &SearchProfile{ID: "p1"}
	if p.Implicit() {
		t.Fatal("a profile with an id must not report Implicit()")
	}

	var nilProfile *SearchProfile
	if nilProfile.Implicit() {
		t.Fatal("a nil profile must not report Implicit()")
	}
}

func TestNormalizeKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: []string{}},
		{name: "trims whitespace", in: []string{"  golang ", "go"}, want: []string{"golang", "go"}},
		{name: "drops empties", in: []string{"", "  ", "sre"}, want: []string{"sre"}},
		{name: "preserves order", in: []string{"b", "a", "c"}, want: []string{"b", "a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeKeywords(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRunStatsDuration(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stats := &RunStats{StartedAt: start, FinishedAt: start.Add(42 * time.Second)}

	if got := stats.Duration(); got != 42*time.Second {
		t.Fatalf("duration = %v, want 42s", got)
	}
}
