package emit

import (
	"fmt"
	"io/fs"

	"github.com/cockroachdb/errors"
)

var (
	// ErrDirNotExist means the destination directory is missing and the emitter
	// was not allowed to create it.
	ErrDirNotExist = errors.New("output directory does not exist")
	// ErrPermission means the file system refused the write.
	ErrPermission = errors.New("permission denied")
	// ErrPathEscape means an output path points outside the output root.
	ErrPathEscape = errors.New("output path escapes the output root")
	// ErrOutputConflict is matched by every OutputConflictError.
	ErrOutputConflict = errors.New("output already exists")
)

// OutputConflictError is returned for an existing output without overwrite.
type OutputConflictError struct {
	Path string
}

func (e *OutputConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Path)
}

func (e *OutputConflictError) Unwrap() error { return ErrOutputConflict }

func conflict(path string) error {
	return errors.WithHint(&OutputConflictError{Path: path}, "pass --overwrite to replace existing files")
}

// classify maps file system errors onto the emitter's sentinels.
func classify(err error, op, path string) error {
	wrapped := errors.Wrapf(err, "%s %s", op, path)
	switch {
	case errors.Is(err, fs.ErrPermission):
		return errors.Mark(wrapped, ErrPermission)
	case errors.Is(err, fs.ErrNotExist):
		return errors.Mark(wrapped, ErrDirNotExist)
	default:
		return wrapped
	}
}
