// Package validate cross-checks a generation batch before anything is rendered.
// It reports findings and never changes the batch.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mohamedhabibwork/abp-script/corpus"
	"github.com/mohamedhabibwork/abp-script/naming"
	"github.com/mohamedhabibwork/abp-script/placeholder"
)

// Severity of a finding.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Finding codes.
const (
	CodeMissingPlaceholder = "missing-placeholder"
	CodeIDTypeUnsupported  = "id-type-unsupported"
	CodeIDTypeIncompatible = "id-type-incompatible"
	CodeIDTypeHardcoded    = "id-type-hardcoded"
	CodeReservedIdentifier = "reserved-identifier"
	CodePluralCollision    = "plural-collision"
	CodeNameCollision      = "name-collision"
	CodePluralHeuristic    = "plural-heuristic"
	CodeDuplicateOutput    = "duplicate-output"
)

// Finding is one validation result. Template is empty for findings about the
// batch as a whole.
type Finding struct {
	Severity Severity
	Code     string
	Template string
	Key      string
	Message  string
}

func (f Finding) Error() string {
	where := f.Template
	if where == "" {
		where = "batch"
	}
	return fmt.Sprintf("%s %s [%s]: %s", where, f.Severity, f.Code, f.Message)
}

// Item is one template of a batch with its resolved output path.
type Item struct {
	Template *corpus.Template
	Path     string
}

// Batch is an ordered set of templates sharing one table.
type Batch struct {
	Table *placeholder.Table
	Items []Item
}

// hardcodedGuid spots Guid used as an identifier type: generic arguments and
// typed parameters or fields.
var hardcodedGuid = regexp.MustCompile(`(?:<|,\s*)Guid\??>|\bGuid\??\s+[A-Za-z_]\w*\s*[,)=;]`)

// nameKeys are the keys whose values become identifiers in generated code.
var nameKeys = []string{
	placeholder.KeyModuleName,
	placeholder.KeyModuleNameLower,
	placeholder.KeyEntityName,
	placeholder.KeyEntityNameLower,
	placeholder.KeyEntityNamePlural,
	placeholder.KeyEntityNameLowerPlural,
	placeholder.KeyDBContextName,
	placeholder.KeyEventName,
	placeholder.KeyValueObjectName,
}

type options struct {
	reserved []string
}

// Option configures a Validator.
type Option func(*options)

// WithReserved adds identifiers that generated names must not take, the type
// names of the target solution for example.
func WithReserved(words ...string) Option {
	return func(o *options) {
		o.reserved = append(o.reserved, words...)
	}
}

// Validator checks batches. It is safe for concurrent use.
type Validator struct {
	reserved map[string]string
}

// New returns a validator knowing the C# keywords and common framework type
// names plus any extra reserved words.
func New(opts ...Option) *Validator {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	v := &Validator{reserved: make(map[string]string, len(csharpKeywords)+len(frameworkTypes)+len(o.reserved))}
	for _, w := range csharpKeywords {
		v.reserved[w] = "a C# keyword"
	}
	for _, w := range frameworkTypes {
		v.reserved[w] = "a common framework type"
	}
	for _, w := range o.reserved {
		if w = strings.TrimSpace(w); w != "" {
			v.reserved[w] = "reserved by configuration"
		}
	}
	return v
}

// Validate returns the findings for b in a stable order: batch findings first,
// then per template in batch order.
func (v *Validator) Validate(b Batch) []Finding {
	var out []Finding
	add := func(sev Severity, code, tpl, key, format string, args ...interface{}) {
		out = append(out, Finding{Severity: sev, Code: code, Template: tpl, Key: key, Message: fmt.Sprintf(format, args...)})
	}
	table := b.Table

	used := map[string]bool{}
	for _, it := range b.Items {
		for _, k := range it.Template.Keys() {
			used[k] = true
		}
	}

	rawID, hasID := table.Lookup(placeholder.KeyIDType)
	id := placeholder.IDType(rawID)
	if hasID && !id.Valid() {
		add(SeverityError, CodeIDTypeUnsupported, "", placeholder.KeyIDType,
			"id type %q is not one of %s", rawID, idTypeList())
	}

	v.names(table, used, add)

	paths := map[string]string{}
	for _, it := range b.Items {
		tpl := it.Template
		for _, k := range tpl.Required() {
			if !table.Has(k) {
				add(SeverityError, CodeMissingPlaceholder, tpl.Name, k, "required placeholder %s has no value", k)
			}
		}
		if hasID && id.Valid() {
			switch {
			case !tpl.Supports(id):
				add(SeverityError, CodeIDTypeIncompatible, tpl.Name, placeholder.KeyIDType,
					"template is written for id type %s, not %s", joinIDTypes(tpl.IDTypes), id)
			case len(tpl.IDTypes) == 0 && id != placeholder.IDGuid:
				if loc := hardcodedGuid.FindStringIndex(tpl.Body); loc != nil {
					add(SeverityWarning, CodeIDTypeHardcoded, tpl.Name, placeholder.KeyIDType,
						"template hard-codes Guid (%q) while the id type is %s", tpl.Body[loc[0]:loc[1]], id)
				}
			}
		}
		if it.Path == "" {
			continue
		}
		if first, dup := paths[it.Path]; dup {
			add(SeverityError, CodeDuplicateOutput, tpl.Name, "",
				"output %s is also produced by %s", it.Path, first)
			continue
		}
		paths[it.Path] = tpl.Name
	}
	return out
}

func (v *Validator) names(
	table *placeholder.Table,
	used map[string]bool,
	add func(sev Severity, code, tpl, key, format string, args ...interface{}),
) {
	for _, k := range nameKeys {
		val, ok := table.Lookup(k)
		if !ok || !used[k] {
			continue
		}
		if why, bad := v.reserved[val]; bad {
			add(SeverityWarning, CodeReservedIdentifier, "", k, "%s resolves to %q, which is %s", k, val, why)
		}
	}
	if used[placeholder.KeyNamespace] {
		for _, seg := range strings.Split(table.Get(placeholder.KeyNamespace), ".") {
			if why, bad := v.reserved[seg]; bad {
				add(SeverityWarning, CodeReservedIdentifier, "", placeholder.KeyNamespace,
					"namespace segment %q is %s", seg, why)
			}
		}
	}

	module := table.Get(placeholder.KeyModuleName)
	entity := table.Get(placeholder.KeyEntityName)
	plural := table.Get(placeholder.KeyEntityNamePlural)

	if entity != "" && entity == module {
		add(SeverityWarning, CodeNameCollision, "", placeholder.KeyEntityName,
			"entity and module are both named %s", entity)
	}
	if entity != "" {
		for _, seg := range strings.Split(table.Get(placeholder.KeyNamespace), ".") {
			if seg == entity {
				add(SeverityWarning, CodeNameCollision, "", placeholder.KeyEntityName,
					"entity %s shadows the namespace segment of the same name", entity)
				break
			}
		}
	}

	if entity == "" || plural == "" || !usesPlural(used) {
		return
	}
	switch {
	case plural == entity:
		add(SeverityWarning, CodePluralCollision, "", placeholder.KeyEntityNamePlural,
			"plural and singular are both %s", plural)
	case plural == module:
		add(SeverityWarning, CodePluralCollision, "", placeholder.KeyEntityNamePlural,
			"plural %s equals the module name", plural)
	}
	if !table.PluralOverridden() {
		if dict := naming.DictionaryPlural(entity); dict != plural {
			add(SeverityWarning, CodePluralHeuristic, "", placeholder.KeyEntityNamePlural,
				"plural of %s was derived as %s, a dictionary says %s; pass it explicitly if that is right", entity, plural, dict)
		}
	}
}

func usesPlural(used map[string]bool) bool {
	for k := range used {
		if strings.HasSuffix(k, "_PLURAL") {
			return true
		}
	}
	return false
}

func idTypeList() string {
	return joinIDTypes(placeholder.IDTypes)
}

func joinIDTypes(ids []placeholder.IDType) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ", ")
}

// Errors returns the error findings. With strict set, warnings count as errors.
func Errors(findings []Finding, strict bool) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity == SeverityError || strict {
			out = append(out, f)
		}
	}
	return out
}
