package corpus

import (
	"sort"

	"go.uber.org/multierr"

	"github.com/mohamedhabibwork/abp-script/placeholder"
)

// Template is an immutable unit of templated text plus what the manifest says
// about it. It is safe for concurrent use.
type Template struct {
	Name string
	Body string
	// Output is the output path pattern. It uses the same placeholders as Body.
	Output  string
	IDTypes []placeholder.IDType

	Tokens       []Token
	OutputTokens []Token

	optional map[string]struct{}
	keys     []string
}

// NewTemplate scans body and output. Syntax errors in either are reported
// together; the template is not usable then.
func NewTemplate(e Entry, body string) (*Template, error) {
	t := &Template{
		Name:     e.Name,
		Body:     body,
		Output:   e.Output,
		optional: make(map[string]struct{}, len(e.Optional)),
	}
	for _, id := range e.IDTypes {
		v, err := placeholder.ParseIDType(id)
		if err != nil {
			return nil, err
		}
		t.IDTypes = append(t.IDTypes, v)
	}
	for _, k := range e.Optional {
		t.optional[k] = struct{}{}
	}

	var errs, err error
	t.Tokens, err = Scan(e.Name, body)
	errs = multierr.Append(errs, err)
	t.OutputTokens, err = Scan(e.Name+" (output)", e.Output)
	errs = multierr.Append(errs, err)
	if errs != nil {
		return nil, errs
	}

	seen := map[string]struct{}{}
	for _, toks := range [][]Token{t.OutputTokens, t.Tokens} {
		for _, tok := range toks {
			if tok.Escape {
				continue
			}
			if _, ok := seen[tok.Name]; !ok {
				seen[tok.Name] = struct{}{}
				t.keys = append(t.keys, tok.Name)
			}
		}
	}
	return t, nil
}

// Kind resolves the kind of key for this template: the global convention, plus
// keys the manifest marks optional for it.
func (t *Template) Kind(key string) placeholder.Kind {
	if _, ok := t.optional[key]; ok {
		return placeholder.OptionalBlock
	}
	return placeholder.KindOf(key)
}

// IsOptional reports whether key may be left out.
func (t *Template) IsOptional(key string) bool {
	return t.Kind(key) == placeholder.OptionalBlock
}

// Keys returns the distinct placeholder names of the output pattern and the body
// in first-seen order.
func (t *Template) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Required returns the required keys sorted by name.
func (t *Template) Required() []string {
	return t.filter(placeholder.Required)
}

// Optional returns the optional block keys sorted by name.
func (t *Template) Optional() []string {
	return t.filter(placeholder.OptionalBlock)
}

func (t *Template) filter(k placeholder.Kind) []string {
	var out []string
	for _, key := range t.keys {
		if t.Kind(key) == k {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Uses reports whether the template references key.
func (t *Template) Uses(key string) bool {
	for _, k := range t.keys {
		if k == key {
			return true
		}
	}
	return false
}

// Supports reports whether the template body fits id. Templates declaring no id
// types fit every id type.
func (t *Template) Supports(id placeholder.IDType) bool {
	if len(t.IDTypes) == 0 {
		return true
	}
	for _, v := range t.IDTypes {
		if v == id {
			return true
		}
	}
	return false
}
