package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  company  ", Value: "  Acme  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "company" || fields[0].String != "Acme" {
		t.Fatalf("unexpected company field: %+v", fields[0])
	}

	empty := StringFields()
	if len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	enriched := WithFields(logger, zap.String("foo", "bar"))
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	enriched = WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	// Ensure logging with the fallback logger does not panic.
	enriched.Info("another log")
}

func TestCandidateFields(t *testing.T) {
	fields := CandidateFields("u-1", "p-1", "j-1")
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}

	if fields[0].Key != FieldUser || fields[0].String != "u-1" {
		t.Fatalf("unexpected user field: %+v", fields[0])
	}

	if fields[1].Key != FieldProfile || fields[1].String != "p-1" {
		t.Fatalf("unexpected profile field: %+v", fields[1])
	}

	if fields[2].Key != FieldPosting || fields[2].String != "j-1" {
		t.Fatalf("unexpected posting field: %+v", fields[2])
	}
}

func TestCandidateFieldsImplicitProfile(t *testing.T) {
	fields := CandidateFields("u-1", "  ", "j-1")
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}

	if fields[1].Key != FieldProfile || fields[1].String != "implicit" {
		t.Fatalf("expected implicit profile marker, got %+v", fields[1])
	}
}

func TestWithCandidateFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	enriched := WithCandidateFields(logger, "u-2", "p-9", "j-4")
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldUser] != "u-2" {
		t.Fatalf("expected user field to be u-2, got %q", ctx[FieldUser])
	}

	if ctx[FieldProfile] != "p-9" {
		t.Fatalf("expected profile field to be p-9, got %q", ctx[FieldProfile])
	}

	if ctx[FieldPosting] != "j-4" {
		t.Fatalf("expected posting field to be j-4, got %q", ctx[FieldPosting])
	}

	enriched = WithCandidateFields(nil, "u-2", "p-9", "j-4")
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	// Ensure logging with the fallback logger does not panic.
	enriched.Info("another log")
}
