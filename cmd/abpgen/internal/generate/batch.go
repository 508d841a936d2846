package generate

import (
	"io"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/mohamedhabibwork/abp-script/cmd/abpgen/internal/conf"
	"github.com/mohamedhabibwork/abp-script/placeholder"
	"github.com/mohamedhabibwork/abp-script/scaffold"
)

// BatchFile describes several entities to generate in one run. Top level values
// are defaults for every entity.
//
// Module level files such as the DbContext are written once per module, by the
// first entity producing them; a later entity of the same module rendering them
// differently fails with duplicate-output, so it takes crud-entity.
//
//	namespace: Acme.Shop
//	presets: [crud-entity]
//	entities:
//	  - module: Catalog
//	    entity: Product
//	    presets: [crud]
//	    proto: api/catalog.proto
//	  - module: Catalog
//	    entity: Category
//	    plural: Categories
type BatchFile struct {
	Namespace string    `yaml:"namespace"`
	IDType    string    `yaml:"idType"`
	Presets   []string  `yaml:"presets"`
	Templates []string  `yaml:"templates"`
	Entities  []*Entity `yaml:"entities"`
}

// Entity is one entry of a batch file.
type Entity struct {
	Namespace   string            `yaml:"namespace"`
	Module      string            `yaml:"module"`
	Entity      string            `yaml:"entity"`
	Plural      string            `yaml:"plural"`
	IDType      string            `yaml:"idType"`
	DBContext   string            `yaml:"dbContext"`
	Event       string            `yaml:"event"`
	ValueObject string            `yaml:"valueObject"`
	Presets     []string          `yaml:"presets"`
	Templates   []string          `yaml:"templates"`
	Extras      map[string]string `yaml:"extras"`
	Blocks      map[string]string `yaml:"blocks"`
	Proto       string            `yaml:"proto"`
	Message     string            `yaml:"message"`
}

// ParseBatch decodes a batch file. Unknown keys are rejected.
func ParseBatch(r io.Reader) (*BatchFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var b BatchFile
	if err := dec.Decode(&b); err != nil {
		return nil, errors.Wrap(err, "decode batch file")
	}
	if len(b.Entities) == 0 {
		return nil, errors.WithHint(errors.New("batch file lists no entities"), "add an entities: list")
	}
	return &b, nil
}

// Requests turns the batch into scaffold requests. Relative proto and block
// files are resolved against dir, the directory of the batch file.
func (b *BatchFile) Requests(c *conf.Config, dir string) ([]scaffold.Request, error) {
	reqs := make([]scaffold.Request, 0, len(b.Entities))
	for i, e := range b.Entities {
		seed := placeholder.Seed{
			Namespace:        first(e.Namespace, b.Namespace, c.Namespace),
			ModuleName:       e.Module,
			EntityName:       e.Entity,
			IDType:           first(e.IDType, b.IDType, c.IDType),
			EntityNamePlural: e.Plural,
			Extras:           map[string]string{},
			Blocks:           map[string]string{},
		}
		for k, v := range e.Extras {
			seed.Extras[k] = v
		}
		for key, v := range map[string]string{
			placeholder.KeyDBContextName:   e.DBContext,
			placeholder.KeyEventName:       e.Event,
			placeholder.KeyValueObjectName: e.ValueObject,
		} {
			if v != "" {
				seed.Extras[key] = v
			}
		}
		if e.Proto != "" {
			blocks, err := conf.ProtoBlocks(resolve(dir, e.Proto), first(e.Message, e.Entity))
			if err != nil {
				return nil, errors.Wrapf(err, "entities[%d]", i)
			}
			for k, v := range blocks {
				seed.Blocks[k] = v
			}
		}
		for k, v := range e.Blocks {
			if len(v) > 1 && v[0] == '@' {
				v = "@" + resolve(dir, v[1:])
			}
			v, err := conf.BlockValue(v)
			if err != nil {
				return nil, errors.Wrapf(err, "entities[%d].blocks.%s", i, k)
			}
			seed.Blocks[k] = v
		}

		req := scaffold.Request{
			Name:      first(e.Module, "?") + "/" + first(e.Entity, "?"),
			Seed:      seed,
			Presets:   e.Presets,
			Templates: e.Templates,
		}
		if len(req.Presets) == 0 && len(req.Templates) == 0 {
			req.Presets, req.Templates = b.Presets, b.Templates
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) || dir == "" {
		return p
	}
	return filepath.Join(dir, p)
}
