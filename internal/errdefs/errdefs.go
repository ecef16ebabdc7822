// Package errdefs defines the error taxonomy shared by every ghcp package.
//
// Callers classify failures with errors.Is against the sentinel values;
// packages wrap them with context using fmt.Errorf and %w.
package errdefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidURL indicates a malformed or unsupported source string.
	ErrInvalidURL = errors.New("invalid url")

	// ErrNetwork indicates a transport failure or a non-2xx status.
	ErrNetwork = errors.New("network error")

	// ErrParse indicates malformed base64, chunk framing or JSON.
	ErrParse = errors.New("parse error")

	// ErrUnsupported indicates a resource kind this tool does not download.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrInvalidOperation indicates an operation called with the wrong kind of resource.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNotFound is mapped from missing files and 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is mapped from filesystem permission failures.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRateLimit indicates the API refused the request for rate limit reasons.
	ErrRateLimit = errors.New("rate limited")

	// ErrAuthentication indicates a rejected or unusable credential.
	ErrAuthentication = errors.New("authentication failed")

	// ErrFileConflict is reserved for a strict mode that refuses to auto-rename.
	ErrFileConflict = errors.New("file conflict")
)

// StatusError is returned for any response whose status is not 2xx.
type StatusError struct {
	Host       string
	Path       string
	StatusLine string
	Code       int
	// Header holds the response headers with lower-cased names.
	Header map[string]string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP request to %s%s failed: %s", e.Host, e.Path, e.StatusLine)
}

// Is lets a StatusError match the sentinel errors implied by its status code.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return true
	case ErrRateLimit:
		return e.rateLimited()
	case ErrAuthentication:
		return e.Code == 401 || (e.Code == 403 && !e.rateLimited())
	case ErrNotFound:
		return e.Code == 404
	}
	return false
}

func (e *StatusError) rateLimited() bool {
	if e.Code == 429 {
		return true
	}
	return e.Code == 403 && e.Header["x-ratelimit-remaining"] == "0"
}

// Redirect reports whether the status is a redirect carrying a Location.
func (e *StatusError) Redirect() (string, bool) {
	switch e.Code {
	case 301, 302, 303, 307, 308:
		loc := e.Header["location"]
		return loc, loc != ""
	}
	return "", false
}

// Statusf builds a StatusError from a raw status line.
func Statusf(host, path, statusLine string, header map[string]string) *StatusError {
	code := 0
	if fields := strings.Fields(statusLine); len(fields) >= 2 {
		code, _ = strconv.Atoi(fields[1])
	}
	return &StatusError{
		Host:       host,
		Path:       path,
		StatusLine: strings.TrimSpace(statusLine),
		Code:       code,
		Header:     header,
	}
}

// New wraps kind with a formatted message.
func New(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Wrap annotates cause with kind and a message while keeping both matchable.
func Wrap(kind error, msg string, cause error) error {
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

// FromFS maps filesystem failures onto the taxonomy.
func FromFS(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPermissionDenied):
		return err
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	return err
}

// Retryable reports whether a single request that failed with err may be retried.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.rateLimited()
	}

	return errors.Is(err, ErrNetwork)
}

// RetryAfter returns the delay the server asked for, if any.
func RetryAfter(err error, now time.Time) (time.Duration, bool) {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return 0, false
	}

	if v := statusErr.Header["retry-after"]; v != "" {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(v)); convErr == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second, true
		}
	}

	if statusErr.rateLimited() {
		if v := statusErr.Header["x-ratelimit-reset"]; v != "" {
			if unix, convErr := strconv.ParseInt(strings.TrimSpace(v), 10, 64); convErr == nil {
				if wait := time.Unix(unix, 0).Sub(now); wait > 0 {
					return wait, true
				}
			}
		}
	}

	return 0, false
}
