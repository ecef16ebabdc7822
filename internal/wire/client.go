// Package wire is a minimal HTTP/1.1 GET client that speaks directly over
// a TLS connection. It understands Content-Length, chunked and
// connection-delimited bodies. Retries and redirects belong to callers.
package wire

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/cbout22/ghcp/internal/config"
	"github.com/cbout22/ghcp/internal/errdefs"
)

// MaxBodySize bounds any single response body.
const MaxBodySize = 512 << 20

// DefaultAuthHosts are the hosts a bearer token is sent to.
var DefaultAuthHosts = []string{config.APIHost, config.RawHost, config.WebHost}

// Dialer opens the byte stream a request is written to. *tls.Dialer
// satisfies it; tests substitute in-memory pipes.
type Dialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// Config configures a Client.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// Tokens supplies the bearer credential. Nil sends no Authorization header.
	Tokens oauth2.TokenSource
	// AuthHosts restricts which hosts receive the credential.
	// Nil means DefaultAuthHosts.
	AuthHosts []string
	Dialer    Dialer
	Port      string
	Logger    *slog.Logger
}

// Client issues one GET per connection.
type Client struct {
	userAgent string
	timeout   time.Duration
	tokens    oauth2.TokenSource
	authHosts []string
	dialer    Dialer
	port      string
	logger    *slog.Logger
}

// New builds a Client, filling unset fields with defaults.
func New(cfg Config) *Client {
	c := &Client{
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		tokens:    cfg.Tokens,
		authHosts: cfg.AuthHosts,
		dialer:    cfg.Dialer,
		port:      cfg.Port,
		logger:    cfg.Logger,
	}
	if c.userAgent == "" {
		c.userAgent = "ghcp/" + config.Version
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.authHosts == nil {
		c.authHosts = DefaultAuthHosts
	}
	if c.port == "" {
		c.port = "443"
	}
	if c.dialer == nil {
		c.dialer = &tls.Dialer{
			NetDialer: &net.Dialer{Timeout: c.timeout},
			Config:    &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Get fetches path from host and returns the response body. A non-2xx
// status yields a *errdefs.StatusError; transport failures wrap
// errdefs.ErrNetwork and framing failures wrap errdefs.ErrParse.
func (c *Client) Get(ctx context.Context, host, path string) ([]byte, error) {
	if path == "" {
		path = "/"
	}

	request, err := c.buildRequest(host, path)
	if err != nil {
		return nil, err
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	c.logger.Debug("dialing", "host", host, "path", path)

	conn, err := c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, c.port))
	if err != nil {
		return nil, c.transportError(parent, ctx, "connecting to "+host, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := io.WriteString(conn, request); err != nil {
		return nil, c.transportError(parent, ctx, "sending request to "+host, err)
	}

	body, err := readResponse(bufio.NewReader(conn), host, path)
	if err != nil {
		var statusErr *errdefs.StatusError
		if errors.As(err, &statusErr) {
			c.logger.Debug("response", "host", host, "path", path, "status", statusErr.Code, "duration", time.Since(start))
			return nil, err
		}
		if errors.Is(err, errdefs.ErrParse) {
			return nil, err
		}
		return nil, c.transportError(parent, ctx, "reading response from "+host, err)
	}

	c.logger.Debug("response", "host", host, "path", path, "bytes", len(body), "duration", time.Since(start))
	return body, nil
}

// transportError reports cancellation of the caller's context as is. An
// expired per-request timeout is a network failure and stays retryable.
func (c *Client) transportError(parent, ctx context.Context, msg string, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	if ctx.Err() != nil {
		return errdefs.New(errdefs.ErrNetwork, "%s: timed out after %s", msg, c.timeout)
	}
	if errors.Is(err, errdefs.ErrNetwork) {
		return err
	}
	return errdefs.Wrap(errdefs.ErrNetwork, msg, err)
}

func (c *Client) buildRequest(host, path string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "GET %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	fmt.Fprintf(&b, "User-Agent: %s\r\n", c.userAgent)
	b.WriteString("Connection: close\r\n")
	b.WriteString("Accept: */*\r\n")

	if c.tokens != nil && slices.Contains(c.authHosts, host) {
		tok, err := c.tokens.Token()
		if err != nil {
			return "", errdefs.Wrap(errdefs.ErrAuthentication, "obtaining token", err)
		}
		if tok.AccessToken != "" {
			fmt.Fprintf(&b, "Authorization: Bearer %s\r\n", tok.AccessToken)
		}
	}

	b.WriteString("\r\n")
	return b.String(), nil
}
