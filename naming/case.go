package naming

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
)

var (
	identRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	pascalRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
)

// Pascal xx_yy to XxYy, xx-yy to XxYy, xxYy to XxYy.
func Pascal(s string) string {
	return strcase.ToCamel(strings.TrimSpace(s))
}

// LowerFirst XxYy to xxYy. Only the first letter changes.
func LowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// Lower XxYy to xxyy.
func Lower(s string) string {
	return strings.ToLower(s)
}

// Snake XxYy to xx_yy.
func Snake(s string) string {
	return strcase.ToSnake(s)
}

// Kebab XxYy to xx-yy.
func Kebab(s string) string {
	return strcase.ToKebab(s)
}

// IsIdentifier reports whether s is a plain identifier: a letter or underscore
// followed by letters, digits or underscores.
func IsIdentifier(s string) bool {
	return identRe.MatchString(s)
}

// IsPascal reports whether s is an identifier starting with an upper case letter
// and containing only letters and digits.
func IsPascal(s string) bool {
	return pascalRe.MatchString(s)
}

// lastWord splits XxYy into Xx and Yy.
func lastWord(s string) (head, tail string) {
	parts := strings.Split(strcase.ToSnake(s), "_")
	n := len(parts[len(parts)-1])
	if n == 0 || n > len(s) {
		return "", s
	}
	return s[:len(s)-n], s[len(s)-n:]
}
