package placeholder

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"github.com/mohamedhabibwork/abp-script/naming"
)

// IDType is the primary key type of the generated entity.
type IDType string

const (
	IDGuid   IDType = "Guid"
	IDInt    IDType = "int"
	IDLong   IDType = "long"
	IDString IDType = "string"
)

// IDTypes lists the supported id types.
var IDTypes = []IDType{IDGuid, IDInt, IDLong, IDString}

// ErrSeedValidation is matched by every SeedValidationError.
var ErrSeedValidation = errors.New("invalid seed")

var keyRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// ParseIDType accepts the supported id types case-insensitively. "integer" is
// read as int.
func ParseIDType(s string) (IDType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "guid", "uuid":
		return IDGuid, nil
	case "int", "integer", "int32":
		return IDInt, nil
	case "long", "int64":
		return IDLong, nil
	case "string":
		return IDString, nil
	}
	return "", errors.Newf("unsupported id type %q", s)
}

// Valid reports whether t is one of IDTypes.
func (t IDType) Valid() bool {
	for _, v := range IDTypes {
		if t == v {
			return true
		}
	}
	return false
}

// SeedValidationError describes one invalid seed field.
type SeedValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *SeedValidationError) Error() string {
	return fmt.Sprintf("seed %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *SeedValidationError) Unwrap() error { return ErrSeedValidation }

// Seed is the small set of values a user supplies. Everything else in a Table is
// derived from it.
type Seed struct {
	Namespace  string
	ModuleName string
	EntityName string
	IDType     string

	// EntityNamePlural overrides the heuristic plural.
	EntityNamePlural string
	// Extras are additional required values, EVENT_NAME or DB_CONTEXT_NAME for example.
	Extras map[string]string
	// Blocks are optional block contents by key.
	Blocks map[string]string
}

// identifierExtras must hold identifiers since they end up in type names.
var identifierExtras = map[string]struct{}{
	KeyEventName:       {},
	KeyValueObjectName: {},
	KeyDBContextName:   {},
}

// Validate reports every invalid field at once. The returned error combines
// *SeedValidationError values; use multierr.Errors to split it.
func (s Seed) Validate() error {
	var errs error
	fail := func(field, value, format string, args ...interface{}) {
		errs = multierr.Append(errs, &SeedValidationError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)})
	}

	switch {
	case s.Namespace == "":
		fail("Namespace", s.Namespace, "must not be empty")
	default:
		for _, seg := range strings.Split(s.Namespace, ".") {
			if !naming.IsIdentifier(seg) {
				fail("Namespace", s.Namespace, "segment %q is not an identifier", seg)
				break
			}
		}
	}
	checkPascal := func(field, value string, required bool) {
		switch {
		case value == "" && required:
			fail(field, value, "must not be empty")
		case value == "":
		case !naming.IsPascal(value):
			if p := naming.Pascal(value); naming.IsPascal(p) {
				fail(field, value, "must be a PascalCase identifier (try %q)", p)
			} else {
				fail(field, value, "must be a PascalCase identifier")
			}
		}
	}
	checkPascal("ModuleName", s.ModuleName, true)
	checkPascal("EntityName", s.EntityName, true)
	checkPascal("EntityNamePlural", s.EntityNamePlural, false)

	if s.IDType == "" {
		fail("IdType", s.IDType, "must not be empty")
	} else if _, err := ParseIDType(s.IDType); err != nil {
		fail("IdType", s.IDType, "must be one of %s", joinIDTypes())
	}

	for _, k := range sortedKeys(s.Extras) {
		v := s.Extras[k]
		field := "Extras." + k
		switch {
		case !keyRe.MatchString(k):
			fail(field, v, "key must be UPPER_SNAKE_CASE")
		case isDerived(k):
			fail(field, v, "%s is derived from the other seed values", k)
		case KindOf(k) == OptionalBlock:
			fail(field, v, "%s is an optional block, pass it as a block", k)
		case v == "":
			fail(field, v, "must not be empty")
		default:
			if _, ok := identifierExtras[k]; ok {
				checkPascal(field, v, true)
			}
		}
	}
	for _, k := range sortedKeys(s.Blocks) {
		field := "Blocks." + k
		switch {
		case !keyRe.MatchString(k):
			fail(field, k, "key must be UPPER_SNAKE_CASE")
		case isDerived(k) || k == KeyDBContextName:
			fail(field, k, "%s is not a block", k)
		}
	}
	return errs
}

func joinIDTypes() string {
	s := make([]string, len(IDTypes))
	for i, t := range IDTypes {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
