package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/cbout22/ghcp/internal/config"
	"github.com/cbout22/ghcp/internal/errdefs"
	"github.com/cbout22/ghcp/internal/payload"
)

// Options tunes the request policy of a Resolver.
type Options struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	MaxRedirects      int
	// APIRate limits requests per second to the API host; 0 is unlimited.
	APIRate float64
	Logger  *slog.Logger
}

// OptionsFromSettings maps the [settings] table onto Options.
func OptionsFromSettings(s config.Settings, logger *slog.Logger) Options {
	return Options{
		MaxRetries:        s.MaxRetries,
		InitialBackoff:    s.Backoff(),
		MaxBackoff:        s.MaxBackoff(),
		BackoffMultiplier: 2.0,
		MaxRedirects:      s.MaxRedirects,
		APIRate:           s.APIRate,
		Logger:            logger,
	}
}

// Resolver fetches files and listings from GitHub: the raw content host
// first, then the contents API.
type Resolver struct {
	getter  Getter
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ SourceRepository = (*Resolver)(nil)

// New creates a Resolver issuing requests through getter.
func New(getter Getter, opts Options) *Resolver {
	if opts.BackoffMultiplier <= 0 {
		opts.BackoffMultiplier = 2.0
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}

	limit := rate.Inf
	if opts.APIRate > 0 {
		limit = rate.Limit(opts.APIRate)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		getter:  getter,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Fetch dispatches on the resource kind. Folders are returned as listing
// entries; repositories are not downloadable.
func (r *Resolver) Fetch(ctx context.Context, res config.Resource) (FetchOutcome, error) {
	switch res.Kind {
	case config.File:
		return r.DownloadFile(ctx, res)
	case config.Folder:
		entries, err := r.ListDirectory(ctx, res)
		if err != nil {
			return FetchOutcome{}, err
		}
		return FetchOutcome{Entries: entries, Source: SourceAPI}, nil
	}
	return FetchOutcome{}, errdefs.New(errdefs.ErrUnsupported, "downloading a whole repository (%s) is not supported", res.RepoFullName())
}

// DownloadFile fetches a single file. The raw host is tried first; any
// failure there falls back to the contents API.
func (r *Resolver) DownloadFile(ctx context.Context, res config.Resource) (FetchOutcome, error) {
	if res.Kind != config.File {
		return FetchOutcome{}, errdefs.New(errdefs.ErrInvalidOperation, "%s is a %s, not a file", res, res.Kind)
	}

	if rawURL, ok := res.RawURL(); ok {
		host, path, err := config.SplitURL(rawURL)
		if err == nil {
			body, err := r.get(ctx, host, path)
			if err == nil {
				return FetchOutcome{Bytes: body, SizeHint: int64(len(body)), Source: SourceRaw}, nil
			}
			if ctx.Err() != nil {
				return FetchOutcome{}, ctx.Err()
			}
			r.logger.Debug("raw fetch failed, trying contents API",
				slog.String("path", res.Path),
				slog.Any("error", err),
			)
		}
	}

	return r.downloadViaAPI(ctx, res)
}

func (r *Resolver) downloadViaAPI(ctx context.Context, res config.Resource) (FetchOutcome, error) {
	body, err := r.get(ctx, config.APIHost, apiRequestPath(res))
	if err != nil {
		return FetchOutcome{}, fmt.Errorf("fetching %s: %w", res, err)
	}

	text := string(body)
	if payload.IsArray(text) {
		return FetchOutcome{}, errdefs.New(errdefs.ErrParse, "%s is a directory, not a file", res)
	}

	entry, err := payload.DecodeEntry(text)
	if err != nil {
		return FetchOutcome{}, fmt.Errorf("decoding contents of %s: %w", res, err)
	}

	data, ok, err := payload.InlineContent(entry)
	if err != nil {
		return FetchOutcome{}, err
	}
	if ok {
		return FetchOutcome{Bytes: data, SizeHint: entry.Size, Source: SourceAPI}, nil
	}

	if entry.DownloadURL != "" {
		host, path, err := config.SplitURL(entry.DownloadURL)
		if err != nil {
			return FetchOutcome{}, err
		}
		data, err := r.get(ctx, host, path)
		if err != nil {
			return FetchOutcome{}, fmt.Errorf("fetching download_url of %s: %w", res, err)
		}
		return FetchOutcome{Bytes: data, SizeHint: entry.Size, Source: SourceDownloadURL}, nil
	}

	return FetchOutcome{}, errdefs.New(errdefs.ErrNetwork, "no content available for %s", res)
}

// ListDirectory fetches the contents API listing of a folder.
func (r *Resolver) ListDirectory(ctx context.Context, res config.Resource) ([]payload.ListingEntry, error) {
	if res.Kind != config.Folder {
		return nil, errdefs.New(errdefs.ErrInvalidOperation, "%s is a %s, not a folder", res, res.Kind)
	}

	body, err := r.get(ctx, config.APIHost, apiRequestPath(res))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", res, err)
	}

	text := string(body)
	if !payload.IsArray(text) {
		return nil, errdefs.New(errdefs.ErrParse, "%s is not a directory", res)
	}

	entries, err := payload.DecodeListing(text)
	if err != nil {
		return nil, fmt.Errorf("decoding listing of %s: %w", res, err)
	}

	r.logger.Debug("listed directory", slog.String("path", res.Path), slog.Int("entries", len(entries)))
	return entries, nil
}

func apiRequestPath(res config.Resource) string {
	return "/" + res.APIPath() + "?ref=" + url.QueryEscape(res.RefOrDefault())
}
