package cli

import (
	"path/filepath"

	"github.com/cbout22/ghcp/internal/manifest"
	"github.com/cbout22/ghcp/internal/mirror"
)

// CheckStatus describes the sync status of a single source.
type CheckStatus int

const (
	CheckOK          CheckStatus = iota // Every locked file present and unchanged
	CheckNeverSynced                    // Not in lock, target not on disk
	CheckNotInLock                      // Target exists but no lock entry
	CheckURLMismatch                    // Lock URL differs from manifest URL
	CheckFileMissing                    // A locked file was deleted
	CheckModified                       // A locked file was edited
	CheckOrphaned                       // In lock but no longer in the manifest
)

// CheckResult holds the outcome of checking one source.
type CheckResult struct {
	Name        string
	Status      CheckStatus
	LockURL     string   // URL in lock file (empty if not in lock)
	ManifestURL string   // URL in manifest (empty if orphaned)
	Paths       []string // missing or modified files, relative to the root
}

// CheckSources validates all entries against the lock file and filesystem.
// This is a pure function: it reads state through its arguments, not globals.
// Lock entries with no manifest source are reported last as CheckOrphaned.
func CheckSources(entries []manifest.Entry, lock *manifest.LockFile, fs mirror.FileWriter, root string) []CheckResult {
	results := make([]CheckResult, 0, len(entries))
	declared := make(map[string]bool, len(entries))

	for _, entry := range entries {
		declared[entry.Name] = true
		lockEntry, locked := lock.Get(entry.Name)

		r := CheckResult{
			Name:        entry.Name,
			LockURL:     lockEntry.URL,
			ManifestURL: entry.URL,
		}

		switch {
		case !locked:
			r.Status = CheckNeverSynced
			if fs.Exists(filepath.Join(root, filepath.FromSlash(entry.Target()))) {
				r.Status = CheckNotInLock
			}
		case lockEntry.URL != entry.URL:
			r.Status = CheckURLMismatch
		default:
			r.Status, r.Paths = checkFiles(lockEntry, fs, root)
		}

		results = append(results, r)
	}

	for _, name := range lock.Names() {
		if declared[name] {
			continue
		}
		lockEntry, _ := lock.Get(name)
		results = append(results, CheckResult{Name: name, Status: CheckOrphaned, LockURL: lockEntry.URL})
	}

	return results
}

// checkFiles compares the locked files of one source with the disk.
// Missing files take precedence over modified ones.
func checkFiles(entry manifest.LockEntry, fs mirror.FileWriter, root string) (CheckStatus, []string) {
	var missing, modified []string

	for _, f := range entry.Files {
		data, err := fs.Read(filepath.Join(root, filepath.FromSlash(f.Path)))
		switch {
		case err != nil:
			missing = append(missing, f.Path)
		case !f.Matches(data):
			modified = append(modified, f.Path)
		}
	}

	switch {
	case len(missing) > 0:
		return CheckFileMissing, missing
	case len(modified) > 0:
		return CheckModified, modified
	}
	return CheckOK, nil
}
