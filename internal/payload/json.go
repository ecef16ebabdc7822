package payload

import (
	"strconv"
	"strings"

	"github.com/cbout22/ghcp/internal/errdefs"
)

// FieldState describes what Lookup found for a field.
type FieldState int

const (
	FieldAbsent FieldState = iota // no "field": key in the object
	FieldNull                     // key present with a literal null
	FieldString                   // key present with a quoted string
	FieldOther                    // key present with a number, bool, object or malformed value
)

func (s FieldState) String() string {
	switch s {
	case FieldAbsent:
		return "absent"
	case FieldNull:
		return "null"
	case FieldString:
		return "string"
	case FieldOther:
		return "other"
	}
	return "FieldState(" + strconv.Itoa(int(s)) + ")"
}

// Lookup finds the first `"field":` in obj and classifies its value.
// String values are returned without their quotes, escapes untouched.
func Lookup(obj, field string) (string, FieldState) {
	value, ok := valueAfter(obj, field)
	if !ok {
		return "", FieldAbsent
	}

	switch {
	case strings.HasPrefix(value, "null"):
		return "", FieldNull
	case strings.HasPrefix(value, `"`):
		if s, ok := readString(value[1:]); ok {
			return s, FieldString
		}
	}
	return "", FieldOther
}

// ExtractField returns the string value of field, or "" when there is none.
func ExtractField(obj, field string) string {
	value, _ := Lookup(obj, field)
	return value
}

// ExtractOptionalField returns the string value of field. Absent fields,
// explicit nulls and empty strings all report false.
func ExtractOptionalField(obj, field string) (string, bool) {
	value, state := Lookup(obj, field)
	if state != FieldString || value == "" {
		return "", false
	}
	return value, true
}

// ExtractNumber returns the integer value of field.
func ExtractNumber(obj, field string) (int64, bool) {
	value, ok := valueAfter(obj, field)
	if !ok {
		return 0, false
	}

	end := 0
	for end < len(value) && (value[end] == '-' || (value[end] >= '0' && value[end] <= '9')) {
		end++
	}

	n, err := strconv.ParseInt(value[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// valueAfter returns the text following `"field":` with leading
// whitespace removed.
func valueAfter(obj, field string) (string, bool) {
	pattern := `"` + field + `":`
	idx := strings.Index(obj, pattern)
	if idx < 0 {
		return "", false
	}
	return strings.TrimLeft(obj[idx+len(pattern):], " \t\r\n"), true
}

// readString reads up to the first unescaped quote.
func readString(s string) (string, bool) {
	escaped := false
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == '"':
			return s[:i], true
		}
	}
	return "", false
}

// SplitObjects splits a JSON array of objects into the text of each
// top-level object. Braces inside string literals are not structural.
// An object left unterminated at the end of input is dropped.
func SplitObjects(array string) ([]string, error) {
	s := strings.TrimSpace(array)
	if !strings.HasPrefix(s, "[") {
		return nil, errdefs.New(errdefs.ErrParse, "expected JSON array")
	}

	var (
		objects  []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)

	for i := 1; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				objects = append(objects, s[start:i+1])
			}
		}
	}

	return objects, nil
}
