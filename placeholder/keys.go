// Package placeholder owns the placeholder vocabulary: the seed parameters a user
// supplies, the keys derived from them, and the kind of every key.
package placeholder

import (
	"sort"
	"strings"
)

// Kind tells the renderer what to do when a key has no value.
type Kind int

const (
	// Required keys must resolve; a missing one aborts the template.
	Required Kind = iota
	// OptionalBlock keys resolve to an empty string when absent.
	OptionalBlock
)

func (k Kind) String() string {
	if k == OptionalBlock {
		return "optional"
	}
	return "required"
}

// Derived keys.
const (
	KeyNamespace                 = "NAMESPACE"
	KeyModuleName                = "MODULE_NAME"
	KeyModuleNameLower           = "MODULE_NAME_LOWER"
	KeyModuleNameLowercase       = "MODULE_NAME_LOWERCASE"
	KeyModuleNameSnake           = "MODULE_NAME_SNAKE"
	KeyModuleNameKebab           = "MODULE_NAME_KEBAB"
	KeyEntityName                = "ENTITY_NAME"
	KeyEntityNameLower           = "ENTITY_NAME_LOWER"
	KeyEntityNameLowercase       = "ENTITY_NAME_LOWERCASE"
	KeyEntityNameSnake           = "ENTITY_NAME_SNAKE"
	KeyEntityNameKebab           = "ENTITY_NAME_KEBAB"
	KeyEntityNamePlural          = "ENTITY_NAME_PLURAL"
	KeyEntityNameLowerPlural     = "ENTITY_NAME_LOWER_PLURAL"
	KeyEntityNameLowercasePlural = "ENTITY_NAME_LOWERCASE_PLURAL"
	KeyEntityNameKebabPlural     = "ENTITY_NAME_KEBAB_PLURAL"
	KeyIDType                    = "ID_TYPE"
	KeyDBContextName             = "DB_CONTEXT_NAME"
)

// Keys that only exist when the caller supplies them.
const (
	KeyEventName       = "EVENT_NAME"
	KeyValueObjectName = "VALUE_OBJECT_NAME"
)

// Optional-by-convention prefixes.
const (
	PrefixAdditional = "ADDITIONAL_"
	PrefixCustom     = "CUSTOM_"
)

// optionalBlocks is the catalog of body placeholders used by the template corpus.
var optionalBlocks = map[string]struct{}{
	"PROPERTIES":              {},
	"FILTER_PROPERTIES":       {},
	"FOREIGN_KEY_NAMES":       {},
	"RELATIONSHIPS":           {},
	"VALIDATION_RULES":        {},
	"VALIDATION_LOGIC":        {},
	"VALIDATION_CONSTANTS":    {},
	"REPOSITORY_METHODS":      {},
	"PROPERTY_CONFIGURATIONS": {},
	"INDEXES":                 {},
	"ATOMIC_VALUES":           {},
}

// KindOf returns the kind of key. Derived keys and user extras are Required,
// catalogued blocks and keys with an ADDITIONAL_ or CUSTOM_ prefix are OptionalBlock.
func KindOf(key string) Kind {
	if _, ok := optionalBlocks[key]; ok {
		return OptionalBlock
	}
	if strings.HasPrefix(key, PrefixAdditional) || strings.HasPrefix(key, PrefixCustom) {
		return OptionalBlock
	}
	return Required
}

// OptionalBlocks lists the catalogued optional block keys.
func OptionalBlocks() []string {
	keys := make([]string, 0, len(optionalBlocks))
	for k := range optionalBlocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
