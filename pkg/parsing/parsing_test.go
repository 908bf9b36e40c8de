package parsing

import (
	"errors"
	"testing"
	"time"
)

func TestParseIntAcceptsTrimmedText(t *testing.T) {
	value, err := ParseInt(" 120 ", "SBP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 120 {
		t.Fatalf("expected 120, got %d", value)
	}
}

func TestParseIntRejectsMissingAndMalformed(t *testing.T) {
	if _, err := ParseInt(nil, "SBP"); err == nil {
		t.Fatal("expected error for nil value")
	}

	_, err := ParseInt("12.5", "SBP")
	if err == nil {
		t.Fatal("expected error for fractional text")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T", err)
	}
	if parseErr.Field != "SBP" {
		t.Fatalf("expected field SBP, got %q", parseErr.Field)
	}
	if parseErr.Code() != ParseErrorCode {
		t.Fatalf("expected code %s, got %s", ParseErrorCode, parseErr.Code())
	}
}

func TestParseIntHandlesJSONNumbers(t *testing.T) {
	// JSON decoding yields float64; integral values must not fail.
	value, err := ParseInt(float64(70), "PR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 70 {
		t.Fatalf("expected 70, got %d", value)
	}
}

func TestParseIntOptional(t *testing.T) {
	if value, err := ParseIntOptional(nil, "age"); err != nil || value != nil {
		t.Fatalf("expected nil for nil input, got %v, %v", value, err)
	}
	if value, err := ParseIntOptional("  ", "age"); err != nil || value != nil {
		t.Fatalf("expected nil for blank input, got %v, %v", value, err)
	}
	value, err := ParseIntOptional("34", "age")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value == nil || *value != 34 {
		t.Fatalf("expected 34, got %v", value)
	}
	if _, err := ParseIntOptional("abc", "age"); err == nil {
		t.Fatal("expected error for malformed optional int")
	}
}

func TestParseFloat(t *testing.T) {
	value, err := ParseFloat("36.5", "BT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 36.5 {
		t.Fatalf("expected 36.5, got %v", value)
	}
	if _, err := ParseFloat("warm", "BT"); err == nil {
		t.Fatal("expected error for non-numeric text")
	}
}

func TestParseBirthdateNormalizesLayouts(t *testing.T) {
	layouts := []string{"20060102", "2006-01-02"}

	for _, input := range []string{"19900101", "1990-01-01"} {
		got, err := ParseBirthdate(input, layouts)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", input, err)
		}
		if got != "19900101" {
			t.Fatalf("expected 19900101 for %q, got %q", input, got)
		}
	}

	_, err := ParseBirthdate("01/01/1990", layouts)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) || parseErr.Field != "birthdate" {
		t.Fatalf("expected birthdate ParseError, got %v", err)
	}
}

func TestParseTimestampProducesUTCWithZSuffix(t *testing.T) {
	layouts := []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"}

	got, err := ParseTimestamp("2024-01-01 10:00:00", "created_at", layouts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2024-01-01T10:00:00Z" {
		t.Fatalf("expected 2024-01-01T10:00:00Z, got %q", got)
	}

	if _, err := ParseTimestamp("not a time", "created_at", layouts); err == nil {
		t.Fatal("expected error for unparseable timestamp")
	}
}

func TestCoerceIntNeverFails(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int
	}{
		{"5", 5},
		{"5.9", 5},
		{float64(7), 7},
		{"abc", 0},
		{nil, 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := CoerceInt(tc.in, 0); got != tc.want {
			t.Errorf("CoerceInt(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatScreenedDate(t *testing.T) {
	layouts := []string{"20060102 15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

	if got := FormatScreenedDate("2024-01-01 10:00:00", layouts); got != "20240101 10:00:00" {
		t.Fatalf("expected reformatted date, got %q", got)
	}
	if got := FormatScreenedDate(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), layouts); got != "20240101 10:00:00" {
		t.Fatalf("expected formatted time.Time, got %q", got)
	}
	// Unmatched input falls back to the original text, never an error.
	if got := FormatScreenedDate("last tuesday", layouts); got != "last tuesday" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := FormatScreenedDate(nil, layouts); got != "" {
		t.Fatalf("expected empty string for nil, got %q", got)
	}
}

func TestStringifyRendersIntegralFloatsWithoutFraction(t *testing.T) {
	if got := Stringify(float64(70)); got != "70" {
		t.Fatalf("expected 70, got %q", got)
	}
	if got := Stringify(70.5); got != "70.5" {
		t.Fatalf("expected 70.5, got %q", got)
	}
}
