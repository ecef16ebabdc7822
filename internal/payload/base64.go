// Package payload decodes the narrow subset of JSON and base64 returned by
// the GitHub contents API without a general-purpose parser.
//
// Accepted grammar, exactly:
//
//   - base64: the standard alphabet A-Z a-z 0-9 + /. Surrounding
//     whitespace, line breaks and '=' are removed first; length need not
//     be a multiple of four and trailing partial bits are dropped.
//   - objects: flat JSON objects whose string values are read verbatim
//     (escape sequences are not interpreted).
//   - listings: a JSON array of such objects; an element that cannot be
//     decoded is skipped, never fatal for the listing.
package payload

import (
	"strings"

	"github.com/cbout22/ghcp/internal/errdefs"
)

// DecodeBase64 decodes standard base64 with or without padding.
func DecodeBase64(input string) ([]byte, error) {
	input = strings.TrimSpace(input)
	input = strings.NewReplacer("\n", "", "\r", "", "=", "").Replace(input)

	if input == "" {
		return []byte{}, nil
	}

	out := make([]byte, 0, len(input)*3/4)
	var (
		buffer   uint32
		bitsLeft uint
	)

	for i := 0; i < len(input); i++ {
		value, ok := sextet(input[i])
		if !ok {
			return nil, errdefs.New(errdefs.ErrParse, "invalid base64 character %q at offset %d", input[i], i)
		}

		buffer = buffer<<6 | uint32(value)
		bitsLeft += 6

		if bitsLeft >= 8 {
			bitsLeft -= 8
			out = append(out, byte(buffer>>bitsLeft))
			buffer &= 1<<bitsLeft - 1
		}
	}

	return out, nil
}

func sextet(c byte) (byte, bool) {
	switch {
	case c >= 'A' && c <= 'Z':
		return c - 'A', true
	case c >= 'a' && c <= 'z':
		return c - 'a' + 26, true
	case c >= '0' && c <= '9':
		return c - '0' + 52, true
	case c == '+':
		return 62, true
	case c == '/':
		return 63, true
	}
	return 0, false
}
