package resolver

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cbout22/ghcp/internal/config"
	"github.com/cbout22/ghcp/internal/errdefs"
)

// maxServerWait caps how long a Retry-After or rate-limit reset is
// honoured. Longer waits fail the request instead.
const maxServerWait = 5 * time.Minute

// get performs one logical request: retries with backoff on transient
// failures, and follows redirects.
func (r *Resolver) get(ctx context.Context, host, path string) ([]byte, error) {
	for redirects := 0; ; redirects++ {
		body, err := r.getWithRetry(ctx, host, path)
		if err == nil {
			return body, nil
		}

		var statusErr *errdefs.StatusError
		if !errors.As(err, &statusErr) {
			return nil, err
		}
		location, ok := statusErr.Redirect()
		if !ok {
			return nil, err
		}
		if redirects >= r.opts.MaxRedirects {
			return nil, errdefs.Wrap(errdefs.ErrNetwork, "too many redirects", err)
		}

		nextHost, nextPath, locErr := resolveLocation(host, location)
		if locErr != nil {
			return nil, locErr
		}

		r.logger.Debug("following redirect",
			slog.String("from", host+path),
			slog.String("to", nextHost+nextPath),
		)
		host, path = nextHost, nextPath
	}
}

func (r *Resolver) getWithRetry(ctx context.Context, host, path string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if host == config.APIHost {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, err := r.getter.Get(ctx, host, path)
		if err == nil {
			return body, nil
		}
		if !errdefs.Retryable(err) || attempt >= r.opts.MaxRetries {
			return nil, err
		}

		wait := r.calculateBackoff(attempt)
		if after, ok := errdefs.RetryAfter(err, time.Now()); ok {
			if after > maxServerWait {
				return nil, err
			}
			wait = max(wait, after)
		}

		r.logger.Warn("request failed, retrying",
			slog.String("host", host),
			slog.String("path", path),
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// calculateBackoff computes exponential backoff with 10% jitter.
func (r *Resolver) calculateBackoff(attempt int) time.Duration {
	backoff := float64(r.opts.InitialBackoff) * math.Pow(r.opts.BackoffMultiplier, float64(attempt))

	if backoff > float64(r.opts.MaxBackoff) {
		backoff = float64(r.opts.MaxBackoff)
	}

	jitter := backoff * 0.1 * (rand.Float64()*2 - 1)
	backoff += jitter

	return time.Duration(backoff)
}

// resolveLocation turns a Location header into a host and request path.
// Host-relative locations stay on the current host.
func resolveLocation(host, location string) (string, string, error) {
	if strings.HasPrefix(location, "/") && !strings.HasPrefix(location, "//") {
		return host, location, nil
	}
	return config.SplitURL(location)
}
