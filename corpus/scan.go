package corpus

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var nameRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Token is one placeholder occurrence. Body[Offset:End] is the full "${NAME}"
// text, or "$${" for an escape.
type Token struct {
	Name   string
	Offset int
	End    int
	// Escape marks "$${", which renders as a literal "${".
	Escape bool
}

// TemplateSyntaxError is a malformed placeholder at a byte offset of a template.
type TemplateSyntaxError struct {
	Template string
	Offset   int
	Line     int
	Column   int
	Reason   string
}

func (e *TemplateSyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Template, e.Line, e.Column, e.Reason)
}

// Scan finds every placeholder in body. It never evaluates anything: text that
// looks like a placeholder inside a substituted value is not seen here. All
// syntax errors are reported, combined with multierr.
func Scan(name, body string) ([]Token, error) {
	var (
		tokens []Token
		errs   error
	)
	fail := func(off int, format string, args ...interface{}) {
		line, col := position(body, off)
		errs = multierr.Append(errs, &TemplateSyntaxError{
			Template: name,
			Offset:   off,
			Line:     line,
			Column:   col,
			Reason:   fmt.Sprintf(format, args...),
		})
	}

	for i := 0; i < len(body); {
		j := strings.IndexByte(body[i:], '$')
		if j < 0 {
			break
		}
		i += j
		switch {
		case strings.HasPrefix(body[i:], "$${"):
			tokens = append(tokens, Token{Offset: i, End: i + 3, Escape: true})
			i += 3
		case strings.HasPrefix(body[i:], "${"):
			end := strings.IndexAny(body[i+2:], "}\n")
			if end < 0 || body[i+2+end] == '\n' {
				fail(i, "unterminated placeholder")
				i += 2
				continue
			}
			key := body[i+2 : i+2+end]
			switch {
			case key == "":
				fail(i, "empty placeholder name")
			case !nameRe.MatchString(key):
				fail(i, "invalid placeholder name %q", key)
			default:
				tokens = append(tokens, Token{Name: key, Offset: i, End: i + 3 + end})
			}
			i += 3 + end
		default:
			i++
		}
	}
	return tokens, errs
}

// position turns a byte offset into a 1-based line and column.
func position(body string, off int) (line, col int) {
	line = 1 + strings.Count(body[:off], "\n")
	col = off + 1
	if nl := strings.LastIndexByte(body[:off], '\n'); nl >= 0 {
		col = off - nl
	}
	return line, col
}
