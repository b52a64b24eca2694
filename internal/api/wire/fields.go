package wire

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/echopulse/internal/domain/failure"
)

// Message builds a Struct from plain Go values.
func Message(fields map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(fields)
}

// Has reports whether key is present.
func Has(s *structpb.Struct, key string) bool {
	_, ok := s.GetFields()[key]

	return ok
}

// String returns the string field key or "".
func String(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// OptionalString returns nil when key is absent.
func OptionalString(s *structpb.Struct, key string) *string {
	if !Has(s, key) {
		return nil
	}

	v := String(s, key)

	return &v
}

// Int returns the numeric field key truncated to int.
func Int(s *structpb.Struct, key string) int {
	return int(s.GetFields()[key].GetNumberValue())
}

// RequiredInt returns the field key as an int. A missing, non-numeric or
// fractional value is a failure.ErrValidation.
func RequiredInt(s *structpb.Struct, key string) (int, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", failure.ErrValidation, key)
	}

	number, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", failure.ErrValidation, key)
	}

	n := number.NumberValue
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s must be a whole number, got %v", failure.ErrValidation, key, n)
	}

	return int(n), nil
}

// OptionalInt returns nil when key is absent.
func OptionalInt(s *structpb.Struct, key string) *int {
	if !Has(s, key) {
		return nil
	}

	v := Int(s, key)

	return &v
}

// Bool returns the boolean field key.
func Bool(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

// OptionalBool returns nil when key is absent.
func OptionalBool(s *structpb.Struct, key string) *bool {
	if !Has(s, key) {
		return nil
	}

	v := Bool(s, key)

	return &v
}

// Time parses an RFC 3339 field. Missing or malformed values yield the zero time.
func Time(s *structpb.Struct, key string) time.Time {
	raw := String(s, key)
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return t
}

// Duration parses a time.Duration field, zero when missing or malformed.
func Duration(s *structpb.Struct, key string) time.Duration {
	d, err := time.ParseDuration(String(s, key))
	if err != nil {
		return 0
	}

	return d
}

// Structs returns the struct elements of the list field key.
func Structs(s *structpb.Struct, key string) []*structpb.Struct {
	values := s.GetFields()[key].GetListValue().GetValues()
	result := make([]*structpb.Struct, 0, len(values))

	for _, v := range values {
		if item := v.GetStructValue(); item != nil {
			result = append(result, item)
		}
	}

	return result
}

// Strings returns the string elements of the list field key.
func Strings(s *structpb.Struct, key string) []string {
	values := s.GetFields()[key].GetListValue().GetValues()
	result := make([]string, 0, len(values))

	for _, v := range values {
		result = append(result, v.GetStringValue())
	}

	return result
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.RFC3339Nano)
}

func stringList(values []string) []any {
	result := make([]any, 0, len(values))
	for _, v := range values {
		result = append(result, v)
	}

	return result
}
