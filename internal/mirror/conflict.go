package mirror

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cbout22/ghcp/internal/errdefs"
)

// maxConflictSuffix bounds the _N search in resolveConflict.
const maxConflictSuffix = 10000

// resolveConflict returns target if nothing exists there or replaceable
// allows overwriting it, otherwise the first free "stem_N.ext" sibling with
// N counting from 1.
func resolveConflict(fs FileWriter, target string, replaceable func(string) bool) (string, error) {
	if !fs.Exists(target) || (replaceable != nil && replaceable(target)) {
		return target, nil
	}

	dir, base := filepath.Split(target)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		// dotfile such as ".gitignore"
		stem, ext = base, ""
	}

	for n := 1; n <= maxConflictSuffix; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		if !fs.Exists(candidate) {
			return candidate, nil
		}
	}

	return "", errdefs.New(errdefs.ErrFileConflict, "no free name for %s after %d attempts", target, maxConflictSuffix)
}

// validateName rejects listing names that would escape the destination
// directory.
func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return errdefs.New(errdefs.ErrInvalidOperation, "unsafe entry name %q", name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return errdefs.New(errdefs.ErrInvalidOperation, "entry name %q contains a path separator", name)
	}
	return nil
}
