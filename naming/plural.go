package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gertd/go-pluralize"
)

var dictionary = pluralize.NewClient()

// Plural returns the plural of a singular PascalCase word using a fixed suffix
// rule table:
//
//	consonant + y   -> ies   (Category -> Categories)
//	s x z ch sh     -> es    (Box -> Boxes)
//	anything else   -> s     (Product -> Products)
//
// Irregular nouns (Person -> People) are not handled. Callers pass an explicit
// override for those; see DictionaryPlural for detecting them.
func Plural(word string) string {
	if word == "" {
		return ""
	}
	lower := strings.ToLower(word)
	last, _ := utf8.DecodeLastRuneInString(word)
	upper := unicode.IsUpper(last)

	switch {
	case len(lower) > 1 && lower[len(lower)-1] == 'y' && !isVowel(lower[len(lower)-2]):
		return word[:len(word)-1] + suffix("ies", upper)
	case strings.HasSuffix(lower, "s"),
		strings.HasSuffix(lower, "x"),
		strings.HasSuffix(lower, "z"),
		strings.HasSuffix(lower, "ch"),
		strings.HasSuffix(lower, "sh"):
		return word + suffix("es", upper)
	default:
		return word + suffix("s", upper)
	}
}

// DictionaryPlural pluralizes the last word of a PascalCase identifier with an
// English dictionary (ProductPerson -> ProductPeople). It is only used to flag
// words the suffix rules in Plural probably get wrong.
func DictionaryPlural(word string) string {
	if word == "" {
		return ""
	}
	head, tail := lastWord(word)
	return head + dictionary.Plural(tail)
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

func suffix(s string, upper bool) string {
	if upper {
		return strings.ToUpper(s)
	}
	return s
}
