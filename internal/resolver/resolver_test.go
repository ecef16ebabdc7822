package resolver

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbout22/ghcp/internal/config"
	"github.com/cbout22/ghcp/internal/errdefs"
)

// fakeGetter serves canned responses keyed by host+path. A key may hold a
// sequence of replies that are consumed in order; the last one repeats.
type fakeGetter struct {
	mu      sync.Mutex
	replies map[string][]reply
	calls   []string
}

type reply struct {
	body string
	err  error
}

func newFakeGetter() *fakeGetter {
	return &fakeGetter{replies: make(map[string][]reply)}
}

func (f *fakeGetter) on(hostPath string, replies ...reply) {
	f.replies[hostPath] = replies
}

func (f *fakeGetter) Get(_ context.Context, host, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := host + path
	f.calls = append(f.calls, key)

	queue, ok := f.replies[key]
	if !ok {
		return nil, notFound(host, path)
	}
	r := queue[0]
	if len(queue) > 1 {
		f.replies[key] = queue[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.body), nil
}

func (f *fakeGetter) count(hostPath string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == hostPath {
			n++
		}
	}
	return n
}

func ok(body string) reply { return reply{body: body} }

func fail(err error) reply { return reply{err: err} }

func notFound(host, path string) error {
	return errdefs.Statusf(host, path, "HTTP/1.1 404 Not Found", map[string]string{})
}

func status(code int, header map[string]string) error {
	if header == nil {
		header = map[string]string{}
	}
	return errdefs.Statusf("h", "/p", "HTTP/1.1 "+strconv.Itoa(code)+" X", header)
}

func testOptions() Options {
	return Options{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		MaxRedirects:   3,
	}
}

var fileRes = config.Resource{Owner: "o", Repo: "r", Ref: "main", Path: "docs/a.txt", Kind: config.File}

const (
	rawKey = "raw.githubusercontent.com/o/r/main/docs/a.txt"
	apiKey = "api.github.com/repos/o/r/contents/docs/a.txt?ref=main"
)

func TestDownloadFile_Raw(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	g.on(rawKey, ok("hello"))

	out, err := New(g, testOptions()).DownloadFile(context.Background(), fileRes)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out.Bytes))
	assert.Equal(t, SourceRaw, out.Source)
	assert.Equal(t, int64(5), out.SizeHint)
	assert.Zero(t, g.count(apiKey))
}

func TestDownloadFile_APIFallbackBase64(t *testing.T) {
	t.Parallel()

	content := base64.StdEncoding.EncodeToString([]byte("Hello World"))
	g := newFakeGetter()
	g.on(apiKey, ok(`{"name":"a.txt","path":"docs/a.txt","size":11,"type":"file","content":"`+content+`\n","encoding":"base64"}`))

	out, err := New(g, testOptions()).DownloadFile(context.Background(), fileRes)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", string(out.Bytes))
	assert.Equal(t, SourceAPI, out.Source)
	assert.Equal(t, int64(11), out.SizeHint)
	assert.Equal(t, 1, g.count(rawKey), "404 is not retried")
}

func TestDownloadFile_DownloadURL(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	g.on(apiKey, ok(`{"name":"a.txt","size":7,"type":"file","content":"","encoding":"none","download_url":"https://objects.example.com/blob/a?x=1"}`))
	g.on("objects.example.com/blob/a?x=1", ok("payload"))

	out, err := New(g, testOptions()).DownloadFile(context.Background(), fileRes)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(out.Bytes))
	assert.Equal(t, SourceDownloadURL, out.Source)
}

func TestDownloadFile_NoContent(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	g.on(apiKey, ok(`{"name":"a.txt","type":"file","download_url":null}`))

	_, err := New(g, testOptions()).DownloadFile(context.Background(), fileRes)
	assert.ErrorIs(t, err, errdefs.ErrNetwork)
	assert.ErrorContains(t, err, "no content available")
}

func TestDownloadFile_DirectoryResponse(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	g.on(apiKey, ok(`[{"name":"x","type":"file"}]`))

	_, err := New(g, testOptions()).DownloadFile(context.Background(), fileRes)
	assert.ErrorIs(t, err, errdefs.ErrParse)
}

func TestDownloadFile_BothFail(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()

	_, err := New(g, testOptions()).DownloadFile(context.Background(), fileRes)
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestDownloadFile_WrongKind(t *testing.T) {
	t.Parallel()

	folder := fileRes.Child("docs", config.Folder)
	_, err := New(newFakeGetter(), testOptions()).DownloadFile(context.Background(), folder)
	assert.ErrorIs(t, err, errdefs.ErrInvalidOperation)
}

func TestGet_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	g.on(rawKey,
		fail(status(503, nil)),
		fail(errdefs.New(errdefs.ErrNetwork, "connection reset")),
		ok("third time lucky"),
	)

	out, err := New(g, testOptions()).DownloadFile(context.Background(), fileRes)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", string(out.Bytes))
	assert.Equal(t, 3, g.count(rawKey))
}

func TestGet_RetriesAreBounded(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	g.on(rawKey, fail(status(502, nil)))
	g.on(apiKey, fail(status(502, nil)))

	opts := testOptions()
	opts.MaxRetries = 2
	_, err := New(g, opts).DownloadFile(context.Background(), fileRes)
	assert.ErrorIs(t, err, errdefs.ErrNetwork)
	assert.Equal(t, 3, g.count(rawKey))
	assert.Equal(t, 3, g.count(apiKey))
}

func TestGet_RetryAfterTooLongFailsFast(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	limited := status(429, map[string]string{"retry-after": "3600"})
	g.on(rawKey, fail(limited))
	g.on(apiKey, fail(limited))

	_, err := New(g, testOptions()).DownloadFile(context.Background(), fileRes)
	assert.ErrorIs(t, err, errdefs.ErrRateLimit)
	assert.Equal(t, 1, g.count(rawKey))
}

func TestGet_FollowsRedirects(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	g.on(rawKey, fail(status(301, map[string]string{"location": "https://raw.githubusercontent.com/o/r2/main/docs/a.txt"})))
	g.on("raw.githubusercontent.com/o/r2/main/docs/a.txt", fail(status(302, map[string]string{"location": "/o/r3/main/docs/a.txt"})))
	g.on("raw.githubusercontent.com/o/r3/main/docs/a.txt", ok("moved"))

	out, err := New(g, testOptions()).DownloadFile(context.Background(), fileRes)
	require.NoError(t, err)
	assert.Equal(t, "moved", string(out.Bytes))
	assert.Equal(t, SourceRaw, out.Source)
}

func TestGet_TooManyRedirects(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	loop := status(302, map[string]string{"location": "/o/r/main/docs/a.txt"})
	g.on(rawKey, fail(loop))

	opts := testOptions()
	opts.MaxRedirects = 2
	res := New(g, opts)

	_, err := res.get(context.Background(), "raw.githubusercontent.com", "/o/r/main/docs/a.txt")
	assert.ErrorIs(t, err, errdefs.ErrNetwork)
	assert.ErrorContains(t, err, "too many redirects")
	assert.Equal(t, 3, g.count(rawKey))
}

func TestGet_ContextCanceled(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	g.on(rawKey, fail(status(503, nil)))

	opts := testOptions()
	opts.InitialBackoff = time.Hour
	opts.MaxBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := New(g, opts).DownloadFile(ctx, fileRes)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestListDirectory(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	g.on("api.github.com/repos/o/r/contents/docs?ref=v1.0", ok(`[
		{"name":"a.txt","path":"docs/a.txt","type":"file","size":3},
		{"name":"sub","path":"docs/sub","type":"dir"}
	]`))

	folder := config.Resource{Owner: "o", Repo: "r", Ref: "v1.0", Path: "docs", Kind: config.Folder}
	out, err := New(g, testOptions()).Fetch(context.Background(), folder)
	require.NoError(t, err)
	require.Len(t, out.Entries, 2)
	assert.Equal(t, "a.txt", out.Entries[0].Name)
	assert.Equal(t, "docs/sub", out.Entries[1].Path)
}

func TestListDirectory_EscapedRef(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	g.on("api.github.com/repos/o/r/contents/dir?ref=v%C3%BC", ok(`[{"name":"a.md","path":"dir/a.md","type":"file"}]`))

	folder, err := config.Parse("https://github.com/o/r/tree/v%C3%BC/dir")
	require.NoError(t, err)

	entries, err := New(g, testOptions()).ListDirectory(context.Background(), folder)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, g.count("api.github.com/repos/o/r/contents/dir?ref=v%C3%BC"))
}

func TestListDirectory_NotArray(t *testing.T) {
	t.Parallel()

	g := newFakeGetter()
	g.on("api.github.com/repos/o/r/contents/docs?ref=main", ok(`{"name":"docs","type":"file"}`))

	folder := config.Resource{Owner: "o", Repo: "r", Path: "docs", Kind: config.Folder}
	_, err := New(g, testOptions()).ListDirectory(context.Background(), folder)
	assert.ErrorIs(t, err, errdefs.ErrParse)
}

func TestFetch_Repository(t *testing.T) {
	t.Parallel()

	repo := config.Resource{Owner: "o", Repo: "r", Kind: config.Repository}
	_, err := New(newFakeGetter(), testOptions()).Fetch(context.Background(), repo)
	assert.ErrorIs(t, err, errdefs.ErrUnsupported)
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()

	r := New(newFakeGetter(), Options{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second})

	for attempt, base := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second} {
		got := r.calculateBackoff(attempt)
		assert.InDelta(t, float64(base), float64(got), float64(base)*0.1+1, "attempt %d", attempt)
	}
}

func TestResolveLocation(t *testing.T) {
	t.Parallel()

	host, path, err := resolveLocation("api.github.com", "/repositories/1/contents/a")
	require.NoError(t, err)
	assert.Equal(t, "api.github.com", host)
	assert.Equal(t, "/repositories/1/contents/a", path)

	host, path, err = resolveLocation("api.github.com", "https://raw.githubusercontent.com/o/r/main/a")
	require.NoError(t, err)
	assert.Equal(t, "raw.githubusercontent.com", host)
	assert.Equal(t, "/o/r/main/a", path)

	_, _, err = resolveLocation("api.github.com", "http://insecure.example.com/")
	assert.ErrorIs(t, err, errdefs.ErrInvalidURL)
}
