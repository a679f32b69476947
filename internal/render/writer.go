package render

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	nerrors "github.com/Aman-CERP/notedex/internal/errors"
)

// DefaultPerm is the file mode of generated documents.
const DefaultPerm os.FileMode = 0o644

// Writer persists documents into a directory. Each file is replaced
// atomically, so a reader never sees a half-written page.
type Writer struct {
	dir  string
	perm os.FileMode
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, perm: DefaultPerm}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write stores docs in order and returns the paths written. All names are
// validated before the first write. The first failure stops the write and
// is returned as a fatal error.
func (w *Writer) Write(ctx context.Context, docs []Document) ([]string, error) {
	for _, doc := range docs {
		if err := ValidateName(doc.Name); err != nil {
			return nil, err
		}
	}

	written := make([]string, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		path := filepath.Join(w.dir, doc.Name)
		if err := renameio.WriteFile(path, []byte(doc.Content), w.perm); err != nil {
			return written, nerrors.New(nerrors.ErrCodeOutputWrite, "cannot write generated page", err).
				WithPath(path).
				WithSuggestion("check that the output directory exists and is writable")
		}
		written = append(written, path)
	}
	return written, nil
}
