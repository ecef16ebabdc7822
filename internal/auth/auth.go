package auth

import (
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/cbout22/ghcp/internal/errdefs"
)

// githubTokenEnvVars lists the environment variables checked for a GitHub token,
// in priority order.
var githubTokenEnvVars = []string{
	"GITHUB_TOKEN",
	"GH_TOKEN",
}

// knownPrefixes are the prefixes GitHub issues tokens with.
var knownPrefixes = []string{"ghp_", "gho_", "ghu_", "ghs_", "github_pat_"}

// Getenv matches os.Getenv; tests inject a map-backed lookup.
type Getenv func(string) string

// Token returns the GitHub personal access token from the environment.
// It checks GITHUB_TOKEN first, then GH_TOKEN.
func Token(getenv Getenv) (string, error) {
	for _, env := range githubTokenEnvVars {
		if v := strings.TrimSpace(getenv(env)); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf(
		"no GitHub token found: set %s or %s in your environment",
		githubTokenEnvVars[0], githubTokenEnvVars[1],
	)
}

// Resolve picks the credential to use: an explicit --token value wins over
// the environment. An empty result means unauthenticated access.
func Resolve(explicit string, getenv Getenv) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	token, _ := Token(getenv)
	return token
}

// NewTokenSource wraps token for the wire client. It returns nil for an
// empty token so that no Authorization header is sent.
func NewTokenSource(token string) oauth2.TokenSource {
	if token == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// Mask renders a token for logs, keeping the prefix and last four characters.
func Mask(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}

	prefix := ""
	for _, p := range knownPrefixes {
		if strings.HasPrefix(token, p) {
			prefix = p
			break
		}
	}
	if prefix == "" {
		prefix = token[:4]
	}
	return prefix + "..." + token[len(token)-4:]
}

// CheckFormat rejects unusable tokens. The returned warning is non-empty
// when the token does not carry a known GitHub prefix; such tokens are
// still sent.
func CheckFormat(token string) (warning string, err error) {
	if strings.TrimSpace(token) == "" {
		return "", errdefs.New(errdefs.ErrAuthentication, "token is empty")
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return "", errdefs.New(errdefs.ErrAuthentication, "token contains whitespace")
	}
	for _, p := range knownPrefixes {
		if strings.HasPrefix(token, p) {
			return "", nil
		}
	}
	return fmt.Sprintf("token %s does not look like a GitHub token", Mask(token)), nil
}
