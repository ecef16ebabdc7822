package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

const DefaultLockFile = ".ghcp.lock"

// LockFile is the shadow manifest that tracks which files ghcp "owns".
// It stores the resolved state of each source so that `ghcp sync`,
// `ghcp remove` and `ghcp check` can detect drift and clean up.
type LockFile struct {
	// Version of the lock file format.
	Version int `json:"version"`
	// Entries keyed by source name.
	Entries map[string]LockEntry `json:"entries"`
}

// LockEntry records the state of a single source after its last sync.
type LockEntry struct {
	Name     string       `json:"name"`
	URL      string       `json:"url"`       // source URL as written in ghcp.toml
	Ref      string       `json:"ref"`       // ref the URL resolved to
	Target   string       `json:"target"`    // local file/dir path relative to project root
	Files    []LockedFile `json:"files"`     // every file written, sorted by path
	Checksum string       `json:"checksum"`  // combined checksum of all files
	SyncedAt string       `json:"synced_at"` // RFC 3339 timestamp of last sync
}

// LockedFile is one file written for a source.
type LockedFile struct {
	Path     string `json:"path"`   // local path relative to project root
	Remote   string `json:"remote"` // path inside the repository
	Checksum string `json:"checksum"`
}

// Matches reports whether data is the content recorded for the file.
func (f LockedFile) Matches(data []byte) bool {
	return checksum(data) == f.Checksum
}

// NewLockFile returns an initialised empty lock file.
func NewLockFile() *LockFile {
	return &LockFile{
		Version: 1,
		Entries: make(map[string]LockEntry),
	}
}

// LoadLock reads and parses a .ghcp.lock file.
// Returns an empty lock file if the file does not exist.
func LoadLock(path string) (*LockFile, error) {
	lf := NewLockFile()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading lock file: %w", err)
	}

	if err := json.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing lock file: %w", err)
	}

	if lf.Entries == nil {
		lf.Entries = make(map[string]LockEntry)
	}

	return lf, nil
}

// Save writes the lock file to the given path.
func (lf *LockFile) Save(path string) error {
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding lock file: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}

	return nil
}

// Set records or updates a lock entry after a sync.
func (lf *LockFile) Set(name, url, ref, target string, files []LockedFile, combined string) {
	sorted := make([]LockedFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	lf.Entries[name] = LockEntry{
		Name:     name,
		URL:      url,
		Ref:      ref,
		Target:   target,
		Files:    sorted,
		Checksum: combined,
		SyncedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Get retrieves a lock entry, if it exists.
func (lf *LockFile) Get(name string) (LockEntry, bool) {
	e, ok := lf.Entries[name]
	return e, ok
}

// Remove deletes a lock entry.
func (lf *LockFile) Remove(name string) {
	delete(lf.Entries, name)
}

// Names returns the locked source names in sorted order.
func (lf *LockFile) Names() []string {
	names := make([]string, 0, len(lf.Entries))
	for name := range lf.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checksum returns the hex-encoded SHA-256 of the given data.
func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}
