// Package render substitutes placeholder values into templates.
//
// Substitution is a single pass over the tokens found by corpus.Scan: the full
// name between the braces is the lookup key, and substituted values are never
// scanned again. An optional block that resolves to nothing and stands alone on
// its line removes the whole line. A block with content standing alone on its
// line is indented like the placeholder, line by line.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mohamedhabibwork/abp-script/corpus"
	"github.com/mohamedhabibwork/abp-script/placeholder"
)

// ErrMissingPlaceholder is matched by every MissingPlaceholderError.
var ErrMissingPlaceholder = errors.New("missing placeholder")

// MissingPlaceholderError lists every required key a template needs and the
// table lacks.
type MissingPlaceholderError struct {
	Template string
	Keys     []string
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("template %s: missing required placeholders %s", e.Template, strings.Join(e.Keys, ", "))
}

func (e *MissingPlaceholderError) Unwrap() error { return ErrMissingPlaceholder }

// Result is a rendered template.
type Result struct {
	Template string
	Text     string
	// Omitted are optional blocks that resolved to nothing.
	Omitted []string
}

type options struct {
	keepBlankLines bool
}

// Option configures Render.
type Option func(*options)

// KeepBlankLines keeps the line of an empty optional block instead of dropping it.
func KeepBlankLines() Option {
	return func(o *options) {
		o.keepBlankLines = true
	}
}

// Render substitutes table into tpl.
func Render(tpl *corpus.Template, table *placeholder.Table, opts ...Option) (Result, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	text, omitted, err := substitute(tpl.Name, tpl.Body, tpl.Tokens, tpl.Kind, table, o)
	if err != nil {
		return Result{}, err
	}
	return Result{Template: tpl.Name, Text: text, Omitted: omitted}, nil
}

// String renders free-form text such as an output path pattern. Blank lines are
// kept.
func String(name, text string, table *placeholder.Table) (string, error) {
	tokens, err := corpus.Scan(name, text)
	if err != nil {
		return "", err
	}
	out, _, err := substitute(name, text, tokens, placeholder.KindOf, table, &options{keepBlankLines: true})
	return out, err
}

func substitute(
	name, body string,
	tokens []corpus.Token,
	kind func(string) placeholder.Kind,
	table *placeholder.Table,
	o *options,
) (string, []string, error) {
	var missing []string
	seen := map[string]struct{}{}
	for _, tok := range tokens {
		if tok.Escape || table.Has(tok.Name) || kind(tok.Name) != placeholder.Required {
			continue
		}
		if _, ok := seen[tok.Name]; !ok {
			seen[tok.Name] = struct{}{}
			missing = append(missing, tok.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", nil, &MissingPlaceholderError{Template: name, Keys: missing}
	}

	var (
		bld     strings.Builder
		omitted []string
		pos     int
	)
	bld.Grow(len(body))
	for i, tok := range tokens {
		if tok.Offset < pos {
			// swallowed by a dropped line
			continue
		}
		if tok.Escape {
			bld.WriteString(body[pos:tok.Offset])
			bld.WriteString("${")
			pos = tok.End
			continue
		}
		val := table.Get(tok.Name)
		if kind(tok.Name) != placeholder.OptionalBlock {
			bld.WriteString(body[pos:tok.Offset])
			bld.WriteString(val)
			pos = tok.End
			continue
		}

		empty := strings.TrimSpace(val) == ""
		omit := func(name string) {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				omitted = append(omitted, name)
			}
		}
		if empty {
			omit(tok.Name)
		}
		start, end, alone := lineOf(body, tok, pos)
		if empty && !o.keepBlankLines && start >= pos && isBlank(body[start:tok.Offset]) {
			// a line holding only empty optional blocks goes away as a whole
			if rest, ok := emptyBlocks(body, tokens[i:], end, kind, table); ok {
				for _, name := range rest {
					omit(name)
				}
				bld.WriteString(body[pos:start])
				pos = end
				continue
			}
		}
		switch {
		case alone && empty && !o.keepBlankLines:
			bld.WriteString(body[pos:start])
			pos = end
		case alone && !empty:
			indent := body[start:tok.Offset]
			bld.WriteString(body[pos:tok.Offset])
			bld.WriteString(indentBlock(val, indent))
			pos = tok.End
		default:
			bld.WriteString(body[pos:tok.Offset])
			bld.WriteString(val)
			pos = tok.End
		}
	}
	bld.WriteString(body[pos:])
	return bld.String(), omitted, nil
}

// lineOf returns the line around tok: start is the first byte of the line, end is
// the byte after its newline. alone is set when only blanks surround tok on that
// line and nothing before it on the line was rendered already.
func lineOf(body string, tok corpus.Token, pos int) (start, end int, alone bool) {
	start = strings.LastIndexByte(body[:tok.Offset], '\n') + 1
	end = len(body)
	if nl := strings.IndexByte(body[tok.End:], '\n'); nl >= 0 {
		end = tok.End + nl + 1
	}
	if start < pos {
		return start, end, false
	}
	return start, end, isBlank(body[start:tok.Offset]) && isBlank(body[tok.End:end])
}

// emptyBlocks reports whether the rest of the line up to end holds nothing but
// blanks and optional blocks without a value, tokens[0] being the first of them.
// It returns the names of the blocks after the first.
func emptyBlocks(
	body string,
	tokens []corpus.Token,
	end int,
	kind func(string) placeholder.Kind,
	table *placeholder.Table,
) ([]string, bool) {
	var names []string
	at := tokens[0].End
	for _, tok := range tokens[1:] {
		if tok.Offset >= end {
			break
		}
		if tok.Escape || kind(tok.Name) != placeholder.OptionalBlock ||
			strings.TrimSpace(table.Get(tok.Name)) != "" || !isBlank(body[at:tok.Offset]) {
			return nil, false
		}
		names = append(names, tok.Name)
		at = tok.End
	}
	return names, isBlank(body[at:end])
}

func isBlank(s string) bool {
	return strings.TrimRight(s, " \t\r\n") == ""
}

// indentBlock prefixes every line but the first with indent. A trailing newline
// is dropped since the template line carries its own.
func indentBlock(val, indent string) string {
	val = strings.TrimRight(val, "\r\n")
	if indent == "" || !strings.Contains(val, "\n") {
		return val
	}
	lines := strings.Split(val, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
