package corpus

import (
	"io"
	"sort"

	"github.com/cockroachdb/errors"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/mohamedhabibwork/abp-script/placeholder"
)

var (
	// ErrManifest is matched by every manifest problem.
	ErrManifest = errors.New("invalid template manifest")
	// ErrToolTooOld means the corpus needs a newer abpgen.
	ErrToolTooOld = errors.New("template corpus requires a newer abpgen")
	// ErrUnknownPreset is returned for presets the manifest does not declare.
	ErrUnknownPreset = errors.New("unknown preset")
)

// Manifest describes a template corpus: which templates exist, where their output
// goes, and named groups of templates.
type Manifest struct {
	Version        string              `yaml:"version"`
	MinToolVersion string              `yaml:"minToolVersion"`
	Templates      []Entry             `yaml:"templates"`
	Presets        map[string][]string `yaml:"presets"`

	index map[string]int
}

// Entry is the manifest record of one template.
type Entry struct {
	Name   string `yaml:"name"`
	Output string `yaml:"output"`
	// IDTypes the template body is written for. Empty means any.
	IDTypes []string `yaml:"idTypes"`
	// Optional keys in addition to the built-in optional block catalog.
	Optional []string `yaml:"optional"`
}

// ParseManifest decodes and checks a manifest. Unknown fields are errors.
func ParseManifest(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	m := &Manifest{}
	if err := dec.Decode(m); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode manifest"), ErrManifest)
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) check() error {
	bad := func(format string, args ...interface{}) error {
		return errors.Mark(errors.Newf(format, args...), ErrManifest)
	}
	if m.Version != "" && !semver.IsValid(m.Version) {
		return bad("version %q is not a semantic version", m.Version)
	}
	if m.MinToolVersion != "" && !semver.IsValid(m.MinToolVersion) {
		return bad("minToolVersion %q is not a semantic version", m.MinToolVersion)
	}
	m.index = make(map[string]int, len(m.Templates))
	for i, e := range m.Templates {
		switch {
		case e.Name == "":
			return bad("template #%d has no name", i+1)
		case e.Output == "":
			return bad("template %s has no output pattern", e.Name)
		}
		if _, dup := m.index[e.Name]; dup {
			return bad("template %s is declared twice", e.Name)
		}
		for _, id := range e.IDTypes {
			if _, err := placeholder.ParseIDType(id); err != nil {
				return bad("template %s: %v", e.Name, err)
			}
		}
		m.index[e.Name] = i
	}
	for preset, names := range m.Presets {
		for _, n := range names {
			if _, ok := m.index[n]; !ok {
				return bad("preset %s names unknown template %s", preset, n)
			}
		}
	}
	return nil
}

// CheckToolVersion fails when tool is older than MinToolVersion. Development
// builds without a semantic version are always accepted.
func (m *Manifest) CheckToolVersion(tool string) error {
	if m.MinToolVersion == "" || !semver.IsValid(tool) {
		return nil
	}
	if semver.Compare(tool, m.MinToolVersion) < 0 {
		return errors.WithHintf(
			errors.Wrapf(ErrToolTooOld, "corpus %s needs %s, running %s", m.Version, m.MinToolVersion, tool),
			"upgrade abpgen or point --templates at an older corpus",
		)
	}
	return nil
}

// Entry returns the record of the named template.
func (m *Manifest) Entry(name string) (Entry, bool) {
	i, ok := m.index[name]
	if !ok {
		return Entry{}, false
	}
	return m.Templates[i], true
}

// Names returns template names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Templates))
	for i, e := range m.Templates {
		names[i] = e.Name
	}
	return names
}

// Preset returns the ordered template names of a preset.
func (m *Manifest) Preset(name string) ([]string, error) {
	names, ok := m.Presets[name]
	if !ok {
		return nil, errors.WithHintf(errors.Wrapf(ErrUnknownPreset, "%q", name), "known presets: %v", m.PresetNames())
	}
	return append([]string(nil), names...), nil
}

// PresetNames returns the declared presets sorted by name.
func (m *Manifest) PresetNames() []string {
	names := make([]string, 0, len(m.Presets))
	for n := range m.Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
