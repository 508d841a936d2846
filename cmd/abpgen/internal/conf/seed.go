package conf

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"

	"github.com/mohamedhabibwork/abp-script/placeholder"
	"github.com/mohamedhabibwork/abp-script/protoprops"
)

// SeedFlags are the flags describing one entity.
type SeedFlags struct {
	Module      string
	Entity      string
	Plural      string
	DBContext   string
	Event       string
	ValueObject string
	Set         []string
	Block       []string
	Proto       string
	Message     string
}

// AddFlags registers the seed flags. namespace and id-type are config keys
// too, so they are registered here but read through Config.
func (s *SeedFlags) AddFlags(fs *pflag.FlagSet) {
	fs.StringP("namespace", "n", "", "root namespace, e.g. Acme.Shop")
	fs.String("id-type", "Guid", "entity id type: Guid, int, long or string")
	fs.StringVarP(&s.Module, "module", "m", "", "module name, e.g. Catalog")
	fs.StringVarP(&s.Entity, "entity", "e", "", "entity name, e.g. Product")
	fs.StringVar(&s.Plural, "plural", "", "entity plural when the derived one is wrong")
	fs.StringVar(&s.DBContext, "db-context", "", "DbContext name (default <Module>DbContext)")
	fs.StringVar(&s.Event, "event", "", "event name for the event templates")
	fs.StringVar(&s.ValueObject, "value-object", "", "value object name for the value object template")
	fs.StringArrayVar(&s.Set, "set", nil, "extra placeholder value KEY=VALUE, repeatable")
	fs.StringArrayVar(&s.Block, "block", nil, "optional block KEY=text or KEY=@file, repeatable")
	fs.StringVar(&s.Proto, "proto", "", "proto file whose message fills PROPERTIES and FILTER_PROPERTIES")
	fs.StringVar(&s.Message, "message", "", "message of --proto (default the entity name)")
}

// Seed builds the seed from the flags and the configuration.
func (s *SeedFlags) Seed(c *Config) (placeholder.Seed, error) {
	seed := placeholder.Seed{
		Namespace:        c.Namespace,
		ModuleName:       s.Module,
		EntityName:       s.Entity,
		IDType:           c.IDType,
		EntityNamePlural: s.Plural,
		Extras:           map[string]string{},
		Blocks:           map[string]string{},
	}
	for key, v := range map[string]string{
		placeholder.KeyDBContextName:   s.DBContext,
		placeholder.KeyEventName:       s.Event,
		placeholder.KeyValueObjectName: s.ValueObject,
	} {
		if v != "" {
			seed.Extras[key] = v
		}
	}
	if s.Proto != "" {
		msg := s.Message
		if msg == "" {
			msg = s.Entity
		}
		blocks, err := ProtoBlocks(s.Proto, msg)
		if err != nil {
			return seed, err
		}
		for k, v := range blocks {
			seed.Blocks[k] = v
		}
	}
	for _, kv := range s.Set {
		k, v, err := splitKV("--set", kv)
		if err != nil {
			return seed, err
		}
		if placeholder.KindOf(k) == placeholder.OptionalBlock {
			seed.Blocks[k] = v
		} else {
			seed.Extras[k] = v
		}
	}
	for _, kv := range s.Block {
		k, v, err := splitKV("--block", kv)
		if err != nil {
			return seed, err
		}
		if v, err = BlockValue(v); err != nil {
			return seed, errors.Wrapf(err, "--block %s", k)
		}
		seed.Blocks[k] = v
	}
	return seed, nil
}

// ProtoBlocks reads the property blocks of a message from a proto file.
func ProtoBlocks(file, message string) (map[string]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "open proto")
	}
	defer func() {
		_ = f.Close()
	}()
	m, err := protoprops.Load(f, message)
	if err != nil {
		return nil, errors.Wrapf(err, "proto %s", file)
	}
	return m.Blocks(), nil
}

// BlockValue resolves a block value: "@path" reads the file, anything else is
// taken literally. One trailing newline of a file is dropped.
func BlockValue(v string) (string, error) {
	if !strings.HasPrefix(v, "@") {
		return v, nil
	}
	data, err := os.ReadFile(v[1:])
	if err != nil {
		return "", errors.Wrap(err, "read block file")
	}
	s := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}

func splitKV(flag, kv string) (string, string, error) {
	k, v, ok := strings.Cut(kv, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", errors.WithHintf(errors.Newf("%s %q: want KEY=VALUE", flag, kv), "e.g. %s EVENT_NAME=Created", flag)
	}
	return k, v, nil
}
