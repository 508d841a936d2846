// Package emit writes generated files below an output root.
//
// Writes are atomic: the text goes to a temporary file in the destination
// directory which is then renamed over the target. Existing files are only
// replaced with overwrite enabled; the conflict check and the rename are
// serialised per emitter so that concurrent writers of one path cannot both
// succeed.
package emit

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/afero"
)

const (
	defaultFileMode fs.FileMode = 0o644
	defaultDirMode  fs.FileMode = 0o755
)

type options struct {
	overwrite  bool
	createDirs bool
	fileMode   fs.FileMode
	logger     *log.Helper
}

// Option configures an Emitter.
type Option func(*options)

// WithOverwrite allows replacing existing files.
func WithOverwrite(ok bool) Option {
	return func(o *options) {
		o.overwrite = ok
	}
}

// WithCreateDirs creates missing destination directories.
func WithCreateDirs(ok bool) Option {
	return func(o *options) {
		o.createDirs = ok
	}
}

// WithFileMode sets the mode of written files.
func WithFileMode(m fs.FileMode) Option {
	return func(o *options) {
		o.fileMode = m
	}
}

// WithLogger specifies the logger of the emitter.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = log.NewHelper(log.With(l, "module", "emit"))
	}
}

// Emitter writes files below a root directory of an afero file system.
type Emitter struct {
	fs      afero.Fs
	root    string
	options *options

	mu sync.Mutex
}

// New returns an emitter writing below root on fsys.
func New(fsys afero.Fs, root string, opts ...Option) *Emitter {
	o := &options{
		fileMode: defaultFileMode,
		logger:   log.NewHelper(log.With(log.DefaultLogger, "module", "emit")),
	}
	for _, opt := range opts {
		opt(o)
	}
	if root == "" {
		root = "."
	}
	return &Emitter{fs: fsys, root: filepath.Clean(root), options: o}
}

// Root returns the output root.
func (e *Emitter) Root() string { return e.root }

// Overwrite reports whether existing files are replaced.
func (e *Emitter) Overwrite() bool { return e.options.overwrite }

// Path maps a slash separated output path onto the file system.
func (e *Emitter) Path(rel string) (string, error) {
	p := filepath.FromSlash(rel)
	if !filepath.IsLocal(p) {
		return "", errors.Wrapf(ErrPathEscape, "%q", rel)
	}
	return filepath.Join(e.root, p), nil
}

// Check reports whether rel could be written right now without touching
// anything: path escapes, conflicts with existing files and missing
// directories are detected.
func (e *Emitter) Check(rel string) error {
	target, err := e.Path(rel)
	if err != nil {
		return err
	}
	return e.check(target)
}

func (e *Emitter) check(target string) error {
	st, err := e.fs.Stat(target)
	switch {
	case err == nil && st.IsDir():
		return errors.Newf("%s is a directory", target)
	case err == nil && !e.options.overwrite:
		return conflict(target)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return classify(err, "stat", target)
	}
	if e.options.createDirs {
		return nil
	}
	dir := filepath.Dir(target)
	st, err = e.fs.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.WithHint(errors.Wrapf(ErrDirNotExist, "%s", dir), "create it first or enable create_dirs")
	case err != nil:
		return classify(err, "stat", dir)
	case !st.IsDir():
		return errors.Newf("%s is not a directory", dir)
	}
	return nil
}

// Emit writes data to rel and returns the file system path written.
func (e *Emitter) Emit(rel string, data []byte) (string, error) {
	target, err := e.Path(rel)
	if err != nil {
		return "", err
	}
	if err = e.check(target); err != nil {
		return "", err
	}
	dir := filepath.Dir(target)
	if e.options.createDirs {
		if err = e.fs.MkdirAll(dir, defaultDirMode); err != nil {
			return "", classify(err, "mkdir", dir)
		}
	}
	if err = e.write(dir, target, data); err != nil {
		return "", err
	}
	e.options.logger.Debugf("wrote %s (%d bytes)", target, len(data))
	return target, nil
}

func (e *Emitter) write(dir, target string, data []byte) (err error) {
	tmp, err := afero.TempFile(e.fs, dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return classify(err, "create temp file in", dir)
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			if rerr := e.fs.Remove(name); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
				e.options.logger.Warnf("remove temp file %s: %v", name, rerr)
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return classify(err, "write", name)
	}
	if err = tmp.Close(); err != nil {
		return classify(err, "close", name)
	}
	if err = e.fs.Chmod(name, e.options.fileMode); err != nil {
		return classify(err, "chmod", name)
	}
	return e.commit(name, target)
}

func (e *Emitter) commit(tmp, target string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.options.overwrite {
		if _, err := e.fs.Stat(target); err == nil {
			return conflict(target)
		}
	}
	if err := e.fs.Rename(tmp, target); err != nil {
		return classify(err, "rename", target)
	}
	return nil
}
