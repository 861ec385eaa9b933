package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldUser is the structured log field key for the user identifier.
	FieldUser = "user_id"
	// FieldProfile is the structured log field key for the search profile identifier.
	FieldProfile = "profile_id"
	// FieldPosting is the structured log field key for the posting identifier.
	FieldPosting = "posting_id"
)

// implicitProfileValue is logged in place of an empty profile id so that
// candidates evaluated under the synthesized legacy profile stay visible.
const implicitProfileValue = "implicit"

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CandidateFields returns the standard zap fields identifying one
// (user, profile, posting) evaluation. Every per-candidate log line carries
// them so failures can be traced back to the exact triple.
func CandidateFields(userID, profileID, postingID string) []zap.Field {
	if strings.TrimSpace(profileID) == "" {
		profileID = implicitProfileValue
	}

	return StringFields(
		StringField{Key: FieldUser, Value: userID},
		StringField{Key: FieldProfile, Value: profileID},
		StringField{Key: FieldPosting, Value: postingID},
	)
}

// WithCandidateFields attaches the candidate identity fields to the provided
// logger. If the logger is nil, a no-op logger is created to avoid panics.
func WithCandidateFields(logger *zap.Logger, userID, profileID, postingID string) *zap.Logger {
	fields := CandidateFields(userID, profileID, postingID)
	return WithFields(logger, fields...)
}
