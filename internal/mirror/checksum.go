package mirror

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CombinedChecksum folds the per-file checksums of a mirrored tree into a
// single value. Files are ordered by remote path so the result does not
// depend on the order workers finished in.
func CombinedChecksum(files []WrittenFile) string {
	sorted := make([]WrittenFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Remote < sorted[j].Remote })

	h := sha256.New()
	for _, f := range sorted {
		h.Write([]byte(f.Remote))
		h.Write([]byte{0})
		h.Write([]byte(f.Checksum))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
