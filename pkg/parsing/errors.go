package parsing

import "fmt"

// ParseErrorCode is attached to every classified parse failure during the
// canonical transform.
const ParseErrorCode = "TX_PARSE_001"

// ParseError reports a malformed or missing field. It is fatal to the record
// it occurs in and is only handled at the pipeline run boundary.
type ParseError struct {
	Field   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ParseError) Code() string { return ParseErrorCode }

func newParseError(field, format string, args ...interface{}) *ParseError {
	return &ParseError{Field: field, Message: fmt.Sprintf(format, args...)}
}
