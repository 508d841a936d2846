package placeholder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mohamedhabibwork/abp-script/naming"
)

// derived are the keys computed from the seed. DB_CONTEXT_NAME is derived too but
// may be overridden through Seed.Extras.
var derived = map[string]struct{}{
	KeyNamespace:                 {},
	KeyModuleName:                {},
	KeyModuleNameLower:           {},
	KeyModuleNameLowercase:       {},
	KeyModuleNameSnake:           {},
	KeyModuleNameKebab:           {},
	KeyEntityName:                {},
	KeyEntityNameLower:           {},
	KeyEntityNameLowercase:       {},
	KeyEntityNameSnake:           {},
	KeyEntityNameKebab:           {},
	KeyEntityNamePlural:          {},
	KeyEntityNameLowerPlural:     {},
	KeyEntityNameLowercasePlural: {},
	KeyEntityNameKebabPlural:     {},
	KeyIDType:                    {},
}

func isDerived(key string) bool {
	_, ok := derived[key]
	return ok
}

// Table maps placeholder keys to values. It is immutable once built.
type Table struct {
	values           map[string]string
	blocks           map[string]struct{}
	pluralOverridden bool
}

// Resolve validates s and derives the full table from it.
func Resolve(s Seed) (*Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	idType, _ := ParseIDType(s.IDType)

	plural := s.EntityNamePlural
	if plural == "" {
		plural = naming.Plural(s.EntityName)
	}
	v := map[string]string{
		KeyNamespace:                 s.Namespace,
		KeyModuleName:                s.ModuleName,
		KeyModuleNameLower:           naming.LowerFirst(s.ModuleName),
		KeyModuleNameLowercase:       naming.Lower(s.ModuleName),
		KeyModuleNameSnake:           naming.Snake(s.ModuleName),
		KeyModuleNameKebab:           naming.Kebab(s.ModuleName),
		KeyEntityName:                s.EntityName,
		KeyEntityNameLower:           naming.LowerFirst(s.EntityName),
		KeyEntityNameLowercase:       naming.Lower(s.EntityName),
		KeyEntityNameSnake:           naming.Snake(s.EntityName),
		KeyEntityNameKebab:           naming.Kebab(s.EntityName),
		KeyEntityNamePlural:          plural,
		KeyEntityNameLowerPlural:     naming.LowerFirst(plural),
		KeyEntityNameLowercasePlural: naming.Lower(plural),
		KeyEntityNameKebabPlural:     naming.Kebab(plural),
		KeyIDType:                    string(idType),
		KeyDBContextName:             s.ModuleName + "DbContext",
	}
	for k, x := range s.Extras {
		v[k] = x
	}
	blocks := make(map[string]struct{}, len(s.Blocks))
	for k, x := range s.Blocks {
		v[k] = x
		blocks[k] = struct{}{}
	}
	return &Table{values: v, blocks: blocks, pluralOverridden: s.EntityNamePlural != ""}, nil
}

// NewTable builds a table from raw values without any seed validation or
// derivation. Keys of kind OptionalBlock are recorded as blocks.
func NewTable(values map[string]string) *Table {
	t := &Table{values: make(map[string]string, len(values)), blocks: map[string]struct{}{}}
	for k, v := range values {
		t.values[k] = v
		if KindOf(k) == OptionalBlock {
			t.blocks[k] = struct{}{}
		}
	}
	return t
}

// Lookup returns the value of key.
func (t *Table) Lookup(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Get returns the value of key or an empty string.
func (t *Table) Get(key string) string {
	return t.values[key]
}

// Has reports whether key has a value.
func (t *Table) Has(key string) bool {
	_, ok := t.values[key]
	return ok
}

// Keys returns every key in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len is the number of keys.
func (t *Table) Len() int { return len(t.values) }

// IsBlock reports whether key was supplied as an optional block.
func (t *Table) IsBlock(key string) bool {
	_, ok := t.blocks[key]
	return ok
}

// IDType returns the ID_TYPE value as written in the table.
func (t *Table) IDType() string { return t.values[KeyIDType] }

// PluralOverridden reports whether ENTITY_NAME_PLURAL came from the caller.
func (t *Table) PluralOverridden() bool { return t.pluralOverridden }

// String dumps the table as sorted KEY=VALUE lines. Multi-line blocks are
// summarised by their line count.
func (t *Table) String() string {
	bld := strings.Builder{}
	for _, k := range t.Keys() {
		v := t.values[k]
		if n := strings.Count(v, "\n"); n > 0 {
			v = fmt.Sprintf("<%d lines>", n+1)
		}
		bld.WriteString(k)
		bld.WriteString("=")
		bld.WriteString(v)
		bld.WriteString("\n")
	}
	return bld.String()
}
