package config

import (
	"errors"
	"testing"

	"github.com/cbout22/ghcp/internal/errdefs"
)

func TestParse_Valid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  Resource
	}{
		{
			"https://github.com/o/r/blob/main/a/b.txt",
			Resource{Owner: "o", Repo: "r", Ref: "main", Path: "a/b.txt", Kind: File},
		},
		{
			"https://github.com/o/r/tree/main/dir",
			Resource{Owner: "o", Repo: "r", Ref: "main", Path: "dir", Kind: Folder},
		},
		{
			"https://github.com/o/r/tree/v1.2/",
			Resource{Owner: "o", Repo: "r", Ref: "v1.2", Kind: Folder},
		},
		{
			"https://github.com/o/r",
			Resource{Owner: "o", Repo: "r", Kind: Repository},
		},
		{
			"https://github.com/o/r/tree",
			Resource{Owner: "o", Repo: "r", Kind: Repository},
		},
		{
			"https://raw.githubusercontent.com/o/r/dev/docs/readme.md",
			Resource{Owner: "o", Repo: "r", Ref: "dev", Path: "docs/readme.md", Kind: File},
		},
		{
			"https://raw.githubusercontent.com/o/r/dev",
			Resource{Owner: "o", Repo: "r", Ref: "dev", Kind: Repository},
		},
		{
			"https://github.com/o/r/blob/main/a.txt?plain=1#L3",
			Resource{Owner: "o", Repo: "r", Ref: "main", Path: "a.txt", Kind: File},
		},
	}
	for _, tc := range cases {
		got, err := Parse(tc.input)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.input, got, tc.want)
		}
	}
}

func TestParse_EscapedRef(t *testing.T) {
	t.Parallel()

	res, err := Parse("https://github.com/o/r/tree/v%C3%BC/dir")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Ref != "v\u00fc" {
		t.Errorf("Ref = %q, want %q", res.Ref, "v\u00fc")
	}
	if got, want := res.String(), "https://github.com/o/r/tree/v%C3%BC/dir"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	file := res.Child("dir/a.md", File)
	if got, _ := file.RawURL(); got != "https://raw.githubusercontent.com/o/r/v%C3%BC/dir/a.md" {
		t.Errorf("RawURL = %q", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()
	cases := []string{
		"",
		"http://github.com/o/r/blob/main/a.txt",
		"ftp://github.com/o/r",
		"https://gitlab.com/o/r/blob/main/a.txt",
		"https://GitHub.com/o/r",
		"https://github.com/o",
		"https://github.com/o/r/commits/main/a.txt",
		"https://raw.githubusercontent.com/o/r",
		"not a url at all",
	}
	for _, input := range cases {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("Parse(%q): expected error, got nil", input)
			continue
		}
		if !errors.Is(err, errdefs.ErrInvalidURL) {
			t.Errorf("Parse(%q): error %v does not wrap ErrInvalidURL", input, err)
		}
	}
}

func TestResource_APIPath(t *testing.T) {
	t.Parallel()
	cases := []struct {
		res  Resource
		want string
	}{
		{Resource{Owner: "o", Repo: "r", Path: "a/b.txt", Kind: File}, "repos/o/r/contents/a/b.txt"},
		{Resource{Owner: "o", Repo: "r", Path: "dir", Kind: Folder}, "repos/o/r/contents/dir"},
		{Resource{Owner: "o", Repo: "r", Kind: Folder}, "repos/o/r/contents/"},
		{Resource{Owner: "o", Repo: "r", Kind: Repository}, ""},
	}
	for _, tc := range cases {
		if got := tc.res.APIPath(); got != tc.want {
			t.Errorf("%+v.APIPath() = %q, want %q", tc.res, got, tc.want)
		}
	}
}

func TestResource_RawURL(t *testing.T) {
	t.Parallel()

	res := Resource{Owner: "myorg", Repo: "myrepo", Path: "instructions/setup.md", Ref: "v1.0", Kind: File}
	got, ok := res.RawURL()
	want := "https://raw.githubusercontent.com/myorg/myrepo/v1.0/instructions/setup.md"
	if !ok || got != want {
		t.Errorf("RawURL: got %q, %v, want %q", got, ok, want)
	}

	res.Ref = ""
	got, _ = res.RawURL()
	if want := "https://raw.githubusercontent.com/myorg/myrepo/main/instructions/setup.md"; got != want {
		t.Errorf("RawURL default ref: got %q, want %q", got, want)
	}

	if _, ok := (Resource{Owner: "o", Repo: "r", Path: "dir", Kind: Folder}).RawURL(); ok {
		t.Error("RawURL: folder must not have a raw URL")
	}
	if _, ok := (Resource{Owner: "o", Repo: "r", Kind: File}).RawURL(); ok {
		t.Error("RawURL: file without path must not have a raw URL")
	}
}

func TestResource_NameAndChild(t *testing.T) {
	t.Parallel()

	folder := Resource{Owner: "o", Repo: "r", Ref: "dev", Path: "docs/guides", Kind: Folder}
	if got := folder.Name(); got != "guides" {
		t.Errorf("Name() = %q, want guides", got)
	}
	if got := (Resource{Owner: "o", Repo: "r", Kind: Folder}).Name(); got != "r" {
		t.Errorf("root Name() = %q, want r", got)
	}
	if got := (Resource{Owner: "o", Repo: "r", Path: "a/my%20file.txt", Kind: File}).Name(); got != "my file.txt" {
		t.Errorf("escaped Name() = %q, want %q", got, "my file.txt")
	}

	child := folder.Child("docs/guides/intro.md", File)
	want := Resource{Owner: "o", Repo: "r", Ref: "dev", Path: "docs/guides/intro.md", Kind: File}
	if child != want {
		t.Errorf("Child() = %+v, want %+v", child, want)
	}
	if folder.Path != "docs/guides" {
		t.Error("Child() mutated the parent")
	}
}

func TestResource_String(t *testing.T) {
	t.Parallel()
	cases := []struct {
		res  Resource
		want string
	}{
		{Resource{Owner: "o", Repo: "r", Ref: "main", Path: "a.txt", Kind: File}, "https://github.com/o/r/blob/main/a.txt"},
		{Resource{Owner: "o", Repo: "r", Path: "d", Kind: Folder}, "https://github.com/o/r/tree/main/d"},
		{Resource{Owner: "o", Repo: "r", Kind: Folder}, "https://github.com/o/r/tree/main"},
		{Resource{Owner: "o", Repo: "r", Kind: Repository}, "https://github.com/o/r"},
	}
	for _, tc := range cases {
		if got := tc.res.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
		if _, err := Parse(tc.res.String()); err != nil {
			t.Errorf("Parse(String()) of %+v: %v", tc.res, err)
		}
	}
}

func TestSplitURL(t *testing.T) {
	t.Parallel()

	host, p, err := SplitURL("https://raw.githubusercontent.com/o/r/main/a.txt?token=abc")
	if err != nil {
		t.Fatalf("SplitURL: unexpected error: %v", err)
	}
	if host != "raw.githubusercontent.com" || p != "/o/r/main/a.txt?token=abc" {
		t.Errorf("SplitURL = %q, %q", host, p)
	}

	if _, _, err := SplitURL("http://example.com/x"); !errors.Is(err, errdefs.ErrInvalidURL) {
		t.Errorf("SplitURL(http): got %v, want ErrInvalidURL", err)
	}
	if _, _, err := SplitURL("/relative/path"); !errors.Is(err, errdefs.ErrInvalidURL) {
		t.Errorf("SplitURL(relative): got %v, want ErrInvalidURL", err)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	cases := map[Kind]string{File: "file", Folder: "folder", Repository: "repository", Kind(9): "Kind(9)"}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}

func TestEscapePath(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"docs/a.md":            "docs/a.md",
		"docs/my notes/a b.md": "docs/my%20notes/a%20b.md",
		"docs/100%.md":         "docs/100%25.md",
		"":                     "",
	}
	for in, want := range cases {
		if got := EscapePath(in); got != want {
			t.Errorf("EscapePath(%q) = %q, want %q", in, got, want)
		}
	}
}
