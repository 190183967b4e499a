package command

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zond/juicecmd/trigger"
	"github.com/zond/juicecmd/types"
)

// Argument is one typed slot of a compiled command, in slot order.
type Argument struct {
	Index    int
	Name     string
	Type     types.Type
	Optional bool
	Plural   bool
	// Default is the source of the default expression, empty if none.
	Default string

	defaultExpr trigger.Expr
}

func (a *Argument) String() string {
	buf := &strings.Builder{}
	buf.WriteString("<")
	if a.Name != "" {
		fmt.Fprintf(buf, "%s: ", a.Name)
	}
	buf.WriteString(types.CodeName(a.Type, a.Plural))
	if a.Default != "" {
		fmt.Fprintf(buf, " = %s", a.Default)
	}
	buf.WriteString(">")
	return buf.String()
}

// Ref describes the argument to the trigger parser.
func (a *Argument) Ref() trigger.ArgRef {
	return trigger.ArgRef{
		Name:   a.Name,
		Index:  a.Index,
		Type:   a.Type,
		Plural: a.Plural,
	}
}

func (a *Argument) HasDefault() bool {
	return a.defaultExpr != nil
}

var listSeparatorReg = regexp.MustCompile(`(?i)\s*,\s*(?:(?:and|or)\s+)?|\s+(?:and|or)\s+`)

// parse turns the text a slot matched into the values of this argument.
func (a *Argument) parse(text string, pc *types.ParseContext) ([]any, error) {
	parts := []string{text}
	if a.Plural {
		parts = listSeparatorReg.Split(text, -1)
	}
	result := make([]any, 0, len(parts))
	for _, part := range parts {
		v, err := a.Type.Parse(part, pc)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}
