package mirror

import (
	"os"

	"github.com/cbout22/ghcp/internal/errdefs"
)

// OSFileWriter implements FileWriter on the real filesystem. Errors are
// mapped onto ErrNotFound and ErrPermissionDenied where applicable.
type OSFileWriter struct{}

var _ FileWriter = (*OSFileWriter)(nil)

func (w *OSFileWriter) Write(path string, data []byte) error {
	return errdefs.FromFS(os.WriteFile(path, data, 0644))
}

func (w *OSFileWriter) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	return data, errdefs.FromFS(err)
}

func (w *OSFileWriter) MkdirAll(path string) error {
	return errdefs.FromFS(os.MkdirAll(path, 0755))
}

func (w *OSFileWriter) Remove(path string) error {
	return errdefs.FromFS(os.RemoveAll(path))
}

func (w *OSFileWriter) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (w *OSFileWriter) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
