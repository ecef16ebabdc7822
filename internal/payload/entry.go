package payload

import (
	"fmt"
	"strings"

	"github.com/cbout22/ghcp/internal/errdefs"
)

// EntryType is the "type" field of a contents API object.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDir       EntryType = "dir"
	EntrySubmodule EntryType = "submodule"
	EntrySymlink   EntryType = "symlink"
)

// ListingEntry is one object of a contents API response. A directory
// listing carries no Content; a single-file response usually does.
type ListingEntry struct {
	Name        string
	Path        string
	Type        EntryType
	SHA         string
	Size        int64
	DownloadURL string // empty when the API returned null
	Content     string // base64 text with JSON escapes left in place
	Encoding    string
}

// DecodeEntry decodes a single flat object. An object without a name is
// rejected with ErrParse.
func DecodeEntry(obj string) (ListingEntry, error) {
	entry := ListingEntry{
		Name: ExtractField(obj, "name"),
		Path: ExtractField(obj, "path"),
		Type: EntryType(ExtractField(obj, "type")),
		SHA:  ExtractField(obj, "sha"),
	}
	if entry.Name == "" {
		return ListingEntry{}, errdefs.New(errdefs.ErrParse, "object has no name")
	}

	entry.Size, _ = ExtractNumber(obj, "size")
	entry.DownloadURL, _ = ExtractOptionalField(obj, "download_url")
	entry.Content, _ = ExtractOptionalField(obj, "content")
	entry.Encoding, _ = ExtractOptionalField(obj, "encoding")

	return entry, nil
}

// DecodeListing decodes a directory listing. Elements that fail to decode
// are skipped so one malformed record cannot blank out a directory.
func DecodeListing(array string) ([]ListingEntry, error) {
	objects, err := SplitObjects(array)
	if err != nil {
		return nil, err
	}

	entries := make([]ListingEntry, 0, len(objects))
	for _, obj := range objects {
		entry, err := DecodeEntry(obj)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// IsArray reports whether a response body is a JSON array, which is what
// the contents API returns for a directory.
func IsArray(body string) bool {
	return strings.HasPrefix(strings.TrimSpace(body), "[")
}

var lineBreaks = strings.NewReplacer(`\n`, "", `\r`, "", "\n", "", "\r", "")

// InlineContent returns the file bytes carried inside the entry. The
// second result is false when the entry has no inline content. Content
// with an encoding other than base64 is returned as-is.
func InlineContent(entry ListingEntry) ([]byte, bool, error) {
	if entry.Content == "" {
		return nil, false, nil
	}

	if entry.Encoding != "base64" {
		return []byte(entry.Content), true, nil
	}

	data, err := DecodeBase64(lineBreaks.Replace(strings.TrimSpace(entry.Content)))
	if err != nil {
		return nil, true, fmt.Errorf("decoding content of %s: %w", entry.Path, err)
	}
	return data, true, nil
}
