// Package corpus loads the template corpus: the manifest, the template bodies and
// the placeholders they reference.
package corpus

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

const (
	// ManifestFile is the manifest path inside a corpus.
	ManifestFile = "templates.yaml"
	// TemplateDir holds the template bodies inside a corpus.
	TemplateDir = "templates"
	// Ext is the file extension of a template body.
	Ext = ".cs.tmpl"
)

// ErrTemplateNotFound is returned for names the corpus does not know.
var ErrTemplateNotFound = errors.New("template not found")

//go:embed templates.yaml templates
var embedded embed.FS

var (
	defaultOnce   sync.Once
	defaultLoader *Loader
)

// Default returns the loader of the corpus embedded in the binary.
func Default() *Loader {
	defaultOnce.Do(func() {
		l, err := NewLoader(embedded)
		if err != nil {
			panic(errors.Wrap(err, "corpus: embedded templates"))
		}
		defaultLoader = l
	})
	return defaultLoader
}

// Loader reads templates by logical name from a corpus file system and caches
// the scanned result. It is safe for concurrent use.
type Loader struct {
	fsys     fs.FS
	manifest *Manifest

	mu    sync.Mutex
	cache map[string]*Template
}

// NewLoader reads the manifest of the corpus rooted at fsys.
func NewLoader(fsys fs.FS) (*Loader, error) {
	f, err := fsys.Open(ManifestFile)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", ManifestFile)
	}
	defer func() {
		_ = f.Close()
	}()
	m, err := ParseManifest(f)
	if err != nil {
		return nil, err
	}
	return &Loader{fsys: fsys, manifest: m, cache: make(map[string]*Template)}, nil
}

// NewDirLoader loads a corpus from a directory on disk, usually one written by
// Extract and edited since. A directory without its own manifest reuses the
// embedded one.
func NewDirLoader(dir string) (*Loader, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "template directory %s", dir),
			"run `abpgen extract <dir>` to create one")
	}
	if !st.IsDir() {
		return nil, errors.Newf("template directory %s is not a directory", dir)
	}
	fsys := os.DirFS(dir)
	if _, err = fs.Stat(fsys, ManifestFile); err == nil {
		return NewLoader(fsys)
	}
	return &Loader{fsys: fsys, manifest: Default().manifest, cache: make(map[string]*Template)}, nil
}

// Manifest returns the corpus manifest.
func (l *Loader) Manifest() *Manifest { return l.manifest }

// List returns every template name in manifest order.
func (l *Loader) List() []string { return l.manifest.Names() }

// Load returns the named template, e.g. "api/controller-crud".
func (l *Loader) Load(name string) (*Template, error) {
	l.mu.Lock()
	t, ok := l.cache[name]
	l.mu.Unlock()
	if ok {
		return t, nil
	}

	e, ok := l.manifest.Entry(name)
	if !ok {
		return nil, errors.WithHint(errors.Wrapf(ErrTemplateNotFound, "%q", name), "run `abpgen list` to see the templates")
	}
	p, err := templatePath(name)
	if err != nil {
		return nil, err
	}
	body, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		return nil, errors.Wrapf(err, "read template %s", name)
	}
	t, err = NewTemplate(e, string(body))
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[name] = t
	l.mu.Unlock()
	return t, nil
}

// Select expands presets and adds explicit template names, dropping repeats and
// keeping the first position of each name.
func (l *Loader) Select(presets, names []string) ([]string, error) {
	var (
		out  []string
		seen = map[string]struct{}{}
	)
	add := func(n string) error {
		if _, ok := l.manifest.Entry(n); !ok {
			return errors.Wrapf(ErrTemplateNotFound, "%q", n)
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
		return nil
	}
	for _, p := range presets {
		ns, err := l.manifest.Preset(p)
		if err != nil {
			return nil, err
		}
		for _, n := range ns {
			if err = add(n); err != nil {
				return nil, err
			}
		}
	}
	for _, n := range names {
		if err := add(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// File is one file of a corpus.
type File struct {
	Path string
	Data []byte
}

// Files returns the manifest and every template body of the corpus, in a stable
// order, with paths relative to the corpus root.
func (l *Loader) Files() ([]File, error) {
	data, err := fs.ReadFile(l.fsys, ManifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		data, err = fs.ReadFile(embedded, ManifestFile)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", ManifestFile)
	}
	files := []File{{Path: ManifestFile, Data: data}}
	for _, name := range l.List() {
		p, err := templatePath(name)
		if err != nil {
			return nil, err
		}
		body, err := fs.ReadFile(l.fsys, p)
		if err != nil {
			return nil, errors.Wrapf(err, "read template %s", name)
		}
		files = append(files, File{Path: p, Data: body})
	}
	return files, nil
}

func templatePath(name string) (string, error) {
	p := path.Join(TemplateDir, name+Ext)
	if !fs.ValidPath(p) || strings.Contains(name, "..") || !strings.HasPrefix(p, TemplateDir+"/") {
		return "", errors.Newf("invalid template name %q", name)
	}
	return p, nil
}
