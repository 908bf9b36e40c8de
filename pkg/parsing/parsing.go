// Package parsing converts untyped connector field values into validated
// primitives. Strict parsers fail with a classified ParseError; coercers are
// lenient and never fail, which is how defensive response mapping is kept
// separate from inbound validation.
package parsing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Stringify renders a scalar the way hospital feeds deliver it. JSON numbers
// arrive as float64, so integral floats must not pick up a trailing ".0".
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func ParseInt(value interface{}, field string) (int, error) {
	if value == nil {
		return 0, newParseError(field, "value required")
	}
	text := strings.TrimSpace(Stringify(value))
	parsed, err := strconv.Atoi(text)
	if err != nil {
		return 0, newParseError(field, "not an integer: %v", value)
	}
	return parsed, nil
}

func ParseIntOptional(value interface{}, field string) (*int, error) {
	if value == nil {
		return nil, nil
	}
	text := strings.TrimSpace(Stringify(value))
	if text == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(text)
	if err != nil {
		return nil, newParseError(field, "not an integer: %v", value)
	}
	return &parsed, nil
}

func ParseFloat(value interface{}, field string) (float64, error) {
	if value == nil {
		return 0, newParseError(field, "value required")
	}
	text := strings.TrimSpace(Stringify(value))
	parsed, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, newParseError(field, "not a number: %v", value)
	}
	return parsed, nil
}

// ParseBirthdate normalizes a birthdate to YYYYMMDD, trying layouts in order.
func ParseBirthdate(value interface{}, layouts []string) (string, error) {
	if value == nil {
		return "", newParseError("birthdate", "value required")
	}
	text := strings.TrimSpace(Stringify(value))
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.Format("20060102"), nil
		}
	}
	return "", newParseError("birthdate", "unsupported birthdate format: %v", value)
}

// ParseTimestamp normalizes a timestamp to UTC ISO-8601 with a literal Z
// suffix. Inputs carry no zone information and are taken as UTC.
func ParseTimestamp(value interface{}, field string, layouts []string) (string, error) {
	if value == nil {
		return "", newParseError(field, "value required")
	}
	text := strings.TrimSpace(Stringify(value))
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return parsed.Format(time.RFC3339), nil
		}
	}
	return "", newParseError(field, "unsupported timestamp format: %v", value)
}

// CoerceInt converts defensively, returning def when the value cannot be
// read as a number. Fractional input truncates toward zero.
func CoerceInt(value interface{}, def int) int {
	if value == nil {
		return def
	}
	text := strings.TrimSpace(Stringify(value))
	if text == "" {
		return def
	}
	if parsed, err := strconv.Atoi(text); err == nil {
		return parsed
	}
	if parsed, err := strconv.ParseFloat(text, 64); err == nil {
		return int(parsed)
	}
	return def
}

// FormatScreenedDate reformats a screened timestamp to "YYYYMMDD HH:MM:SS",
// trying layouts in order and falling back to the raw text unmodified.
func FormatScreenedDate(value interface{}, layouts []string) string {
	if value == nil {
		return ""
	}
	if ts, ok := value.(time.Time); ok {
		return ts.Format("20060102 15:04:05")
	}
	text := strings.TrimSpace(Stringify(value))
	if text == "" {
		return ""
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.Format("20060102 15:04:05")
		}
	}
	return text
}
