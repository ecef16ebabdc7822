package mirror

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cbout22/ghcp/internal/resolver"
)

// WrittenFile describes one file materialised on disk.
type WrittenFile struct {
	Remote   string // path inside the repository
	Local    string // path written, after conflict resolution
	Size     int64
	Checksum string // hex SHA-256 of the content
	Source   resolver.Source
}

// Failure records an entry that could not be mirrored.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Outcome aggregates the result of a mirror. It is safe for concurrent
// use while the traversal runs; Files and Failures are sorted by path
// once the traversal returns.
type Outcome struct {
	mu sync.Mutex

	FilesWritten int
	DirsCreated  int
	BytesWritten int64
	Skipped      int
	Files        []WrittenFile
	Failures     []Failure

	// RootErr is set when the root folder could not be listed. Nothing
	// was mirrored and the same error is also among Failures.
	RootErr error
}

func (o *Outcome) addFile(f WrittenFile) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.FilesWritten++
	o.BytesWritten += f.Size
	o.Files = append(o.Files, f)
}

func (o *Outcome) addFailure(path string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Failures = append(o.Failures, Failure{Path: path, Err: err})
}

func (o *Outcome) addDir() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.DirsCreated++
}

func (o *Outcome) addSkipped() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Skipped++
}

func (o *Outcome) finalize() {
	o.mu.Lock()
	defer o.mu.Unlock()
	sort.Slice(o.Files, func(i, j int) bool { return o.Files[i].Remote < o.Files[j].Remote })
	sort.SliceStable(o.Failures, func(i, j int) bool { return o.Failures[i].Path < o.Failures[j].Path })
}

// OK reports whether every entry was mirrored.
func (o *Outcome) OK() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Failures) == 0
}
