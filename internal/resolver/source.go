package resolver

import (
	"context"

	"github.com/cbout22/ghcp/internal/config"
	"github.com/cbout22/ghcp/internal/payload"
)

// Getter performs one GET and returns the body. *wire.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, host, path string) ([]byte, error)
}

// SourceRepository defines operations for fetching content from a remote source.
type SourceRepository interface {
	// DownloadFile fetches a single file's content.
	DownloadFile(ctx context.Context, res config.Resource) (FetchOutcome, error)

	// ListDirectory returns the immediate entries of a folder.
	ListDirectory(ctx context.Context, res config.Resource) ([]payload.ListingEntry, error)
}

// Source records which endpoint produced a file's bytes.
type Source string

const (
	SourceRaw         Source = "raw"
	SourceAPI         Source = "api"
	SourceDownloadURL Source = "download_url"
)

// FetchOutcome is the result of Fetch. File fetches fill Bytes; folder
// fetches fill Entries.
type FetchOutcome struct {
	Bytes    []byte
	SizeHint int64
	Source   Source
	Entries  []payload.ListingEntry
}
