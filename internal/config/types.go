package config

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/cbout22/ghcp/internal/errdefs"
)

const (
	// WebHost is the GitHub web front-end host.
	WebHost = "github.com"
	// RawHost serves raw file content.
	RawHost = "raw.githubusercontent.com"
	// APIHost serves the structured contents API.
	APIHost = "api.github.com"

	// DefaultRef is used wherever a resource carries no ref.
	DefaultRef = "main"
)

// Kind represents what a source URL points at.
type Kind int

const (
	File Kind = iota
	Folder
	Repository
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Folder:
		return "folder"
	case Repository:
		return "repository"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Resource is a parsed GitHub source such as
// "https://github.com/org/repo/tree/main/docs". It is a value type and is
// never mutated after Parse; traversals derive children with Child.
type Resource struct {
	Owner string // GitHub organisation or user
	Repo  string // Repository name
	Path  string // Path inside the repository, empty at the root
	Ref   string // Git ref, unescaped: branch, tag, or commit SHA; empty means DefaultRef
	Kind  Kind
}

// Parse classifies a source URL into a Resource.
//
// Accepted forms:
//
//	https://github.com/{owner}/{repo}/blob/{ref}/{path...}  -> File
//	https://github.com/{owner}/{repo}/tree/{ref}/{path...}  -> Folder
//	https://github.com/{owner}/{repo}                       -> Repository
//	https://raw.githubusercontent.com/{owner}/{repo}/{ref}/{path...} -> File
func Parse(source string) (Resource, error) {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return Resource{}, errdefs.New(errdefs.ErrInvalidURL, "%q: %v", source, err)
	}

	if u.Scheme != "https" {
		return Resource{}, errdefs.New(errdefs.ErrInvalidURL, "%q: only https URLs are supported", source)
	}

	segments := splitSegments(u.EscapedPath())

	switch u.Host {
	case WebHost:
		return parseWeb(source, segments)
	case RawHost:
		return parseRaw(source, segments)
	default:
		return Resource{}, errdefs.New(errdefs.ErrInvalidURL, "%q: only %s and %s URLs are supported", source, WebHost, RawHost)
	}
}

func parseWeb(source string, segments []string) (Resource, error) {
	if len(segments) < 2 {
		return Resource{}, errdefs.New(errdefs.ErrInvalidURL, "%q: must be %s/<owner>/<repo>", source, WebHost)
	}

	res := Resource{Owner: segments[0], Repo: segments[1]}

	if len(segments) < 4 {
		res.Kind = Repository
		return res, nil
	}

	switch segments[2] {
	case "blob":
		res.Kind = File
	case "tree":
		res.Kind = Folder
	default:
		return Resource{}, errdefs.New(errdefs.ErrInvalidURL, "%q: unknown URL type %q (want blob or tree)", source, segments[2])
	}

	res.Ref = unescapeRef(segments[3])
	res.Path = strings.Join(segments[4:], "/")
	return res, nil
}

func parseRaw(source string, segments []string) (Resource, error) {
	if len(segments) < 3 {
		return Resource{}, errdefs.New(errdefs.ErrInvalidURL, "%q: must be %s/<owner>/<repo>/<ref>/<path>", source, RawHost)
	}

	res := Resource{
		Owner: segments[0],
		Repo:  segments[1],
		Ref:   unescapeRef(segments[2]),
		Path:  strings.Join(segments[3:], "/"),
		Kind:  Repository,
	}
	if res.Path != "" {
		res.Kind = File
	}
	return res, nil
}

// splitSegments drops the empty segments produced by leading, trailing or
// doubled slashes.
func splitSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func unescapeRef(s string) string {
	if ref, err := url.PathUnescape(s); err == nil {
		return ref
	}
	return s
}

// RefOrDefault returns the ref, or DefaultRef when none was given.
func (r Resource) RefOrDefault() string {
	if r.Ref == "" {
		return DefaultRef
	}
	return r.Ref
}

// APIPath returns "repos/{owner}/{repo}/contents/{path}" for files and
// folders, and an empty string for repositories.
func (r Resource) APIPath() string {
	if r.Kind == Repository {
		return ""
	}
	return fmt.Sprintf("repos/%s/%s/contents/%s", r.Owner, r.Repo, r.Path)
}

// RawURL builds the raw.githubusercontent.com URL for a file resource.
func (r Resource) RawURL() (string, bool) {
	if r.Kind != File || r.Path == "" {
		return "", false
	}
	return fmt.Sprintf("https://%s/%s/%s/%s/%s", RawHost, r.Owner, r.Repo, r.escapedRef(), r.Path), true
}

// escapedRef is RefOrDefault as a single URL path segment.
func (r Resource) escapedRef() string {
	return url.PathEscape(r.RefOrDefault())
}

// Name returns the last path element, or the repository name at the root.
func (r Resource) Name() string {
	if r.Path == "" {
		return r.Repo
	}
	name := path.Base(r.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// Child derives a resource for an entry below r, sharing owner, repo and ref.
func (r Resource) Child(childPath string, kind Kind) Resource {
	return Resource{
		Owner: r.Owner,
		Repo:  r.Repo,
		Ref:   r.Ref,
		Path:  childPath,
		Kind:  kind,
	}
}

// RepoFullName returns "owner/repo".
func (r Resource) RepoFullName() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Repo)
}

// String returns the canonical web URL of the resource.
func (r Resource) String() string {
	switch r.Kind {
	case File:
		return fmt.Sprintf("https://%s/%s/%s/blob/%s/%s", WebHost, r.Owner, r.Repo, r.escapedRef(), r.Path)
	case Folder:
		return strings.TrimSuffix(fmt.Sprintf("https://%s/%s/%s/tree/%s/%s", WebHost, r.Owner, r.Repo, r.escapedRef(), r.Path), "/")
	}
	return fmt.Sprintf("https://%s/%s/%s", WebHost, r.Owner, r.Repo)
}

// SplitURL splits an absolute https URL into host and request path
// (including any query string).
func SplitURL(raw string) (host, requestPath string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", errdefs.New(errdefs.ErrInvalidURL, "%q: %v", raw, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return "", "", errdefs.New(errdefs.ErrInvalidURL, "%q: only absolute https URLs are supported", raw)
	}
	return u.Host, u.RequestURI(), nil
}

// EscapePath percent-escapes each segment of a repository path as returned
// by the contents API so it can be used in a request line.
func EscapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
