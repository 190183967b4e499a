package lang

import (
	"fmt"
	"strings"

	"github.com/gertd/go-pluralize"
)

const (
	DefaultPattern   = "%s"
	DefaultSeparator = ","
	DefaultOperator  = "and"
)

var client = pluralize.NewClient()

// Singular returns the English singular of word.
func Singular(word string) string {
	return client.Singular(word)
}

// Plural returns the English plural of word.
func Plural(word string) string {
	return client.Plural(word)
}

// IsPlural reports whether word looks like an English plural. Words that are
// their own plural (sheep) count as singular.
func IsPlural(word string) bool {
	return client.IsPlural(word) && !client.IsSingular(word)
}

// Enumerator joins elements into an English list: "a, b and c".
type Enumerator struct {
	Pattern   string
	Separator string
	Operator  string
}

func (e Enumerator) Do(elements ...string) string {
	pattern, separator, operator := DefaultPattern, DefaultSeparator, DefaultOperator
	if e.Pattern != "" {
		pattern = e.Pattern
	}
	if e.Separator != "" {
		separator = e.Separator
	}
	if e.Operator != "" {
		operator = e.Operator
	}
	res := &strings.Builder{}
	for idx, element := range elements {
		fmt.Fprintf(res, pattern, element)
		if idx+2 < len(elements) {
			fmt.Fprintf(res, "%s ", separator)
		} else if idx+1 < len(elements) {
			fmt.Fprintf(res, " %s ", operator)
		}
	}
	return res.String()
}
