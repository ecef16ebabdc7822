package mirror

// FileWriter abstracts the filesystem the engine mirrors into.
type FileWriter interface {
	// Write creates or truncates the file at path.
	Write(path string, data []byte) error

	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)

	// MkdirAll creates a directory path and all necessary parents.
	MkdirAll(path string) error

	// Remove deletes a file or directory (recursively).
	Remove(path string) error

	// Exists reports whether anything exists at path.
	Exists(path string) bool

	// IsDir reports whether path is an existing directory.
	IsDir(path string) bool
}
