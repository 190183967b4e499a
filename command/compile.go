package command

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/zond/juicecmd/locale"
	"github.com/zond/juicecmd/pattern"
	"github.com/zond/juicecmd/trigger"
	"github.com/zond/juicecmd/types"
)

var (
	ErrUnbalancedBrackets = errors.New("unbalanced optional brackets")
	ErrMalformedSignature = errors.New("malformed command signature")
	ErrInvalidDefault     = errors.New("invalid default value")
	ErrMissingTrigger     = errors.New("command has no trigger")
	ErrConflict           = errors.New("command name already taken")

	ErrUnknownType           = types.ErrUnknownType
	ErrTypeNotCommandCapable = types.ErrTypeNotCommandCapable
)

var (
	signatureReg = regexp.MustCompile(`(?i)^command /?(\S+)(\s+(.+))?$`)
	argumentReg  = regexp.MustCompile(`<\s*(?:([^<>]+?)\s*:\s*)?([^<>]+?)\s*(?:=\s*([^<>]+?))?\s*>`)
)

// Signature is the compiled form of a "command /label ..." line.
type Signature struct {
	Label     string
	Pattern   *pattern.Pattern
	Arguments []*Argument
	Usage     string
}

// checkBrackets only verifies that the bracket count never drops below zero
// and ends at zero.
func checkBrackets(s string) error {
	level := 0
	for _, r := range s {
		switch r {
		case '[':
			level++
		case ']':
			if level == 0 {
				return errors.Wrapf(ErrUnbalancedBrackets, "unexpected ] in %q", s)
			}
			level--
		}
	}
	if level > 0 {
		return errors.Wrapf(ErrUnbalancedBrackets, "%d unclosed [ in %q", level, s)
	}
	return nil
}

// Compile parses a command signature. Usage strings use the type names of
// catalog.
func Compile(signature string, resolver *types.Resolver, catalog *locale.Catalog) (*Signature, error) {
	signature = strings.TrimSpace(signature)
	if err := checkBrackets(signature); err != nil {
		return nil, err
	}
	match := signatureReg.FindStringSubmatch(signature)
	if match == nil {
		return nil, errors.Wrapf(ErrMalformedSignature, "%q", signature)
	}
	result := &Signature{
		Label: strings.ToLower(match[1]),
	}
	rest := match[3]

	buf := &strings.Builder{}
	lastEnd := 0
	optionals := 0
	for _, loc := range argumentReg.FindAllStringSubmatchIndex(rest, -1) {
		before := rest[lastEnd:loc[0]]
		buf.WriteString(pattern.Escape(before))
		optionals += strings.Count(before, "[") - strings.Count(before, "]")
		lastEnd = loc[1]

		group := func(n int) string {
			if loc[2*n] < 0 {
				return ""
			}
			return rest[loc[2*n]:loc[2*n+1]]
		}
		typ, plural, err := resolver.ResolveCommand(group(2))
		if err != nil {
			return nil, errors.Wrapf(err, "in /%s", result.Label)
		}
		arg := &Argument{
			Index:    len(result.Arguments),
			Name:     group(1),
			Type:     typ,
			Plural:   plural,
			Default:  group(3),
			Optional: optionals > 0 || group(3) != "",
		}
		result.Arguments = append(result.Arguments, arg)

		if arg.Optional && optionals == 0 {
			buf.WriteString("[")
			optionals++
		}
		if arg.Optional {
			buf.WriteString("%-" + types.CodeName(typ, plural) + "%")
		} else {
			buf.WriteString("%" + types.CodeName(typ, plural) + "%")
		}
	}
	after := rest[lastEnd:]
	buf.WriteString(pattern.Escape(after))
	optionals += strings.Count(after, "[") - strings.Count(after, "]")
	buf.WriteString(strings.Repeat("]", max(optionals, 0)))

	pat, err := pattern.Parse(buf.String(), resolver)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedSignature, "%q: %v", signature, err)
	}
	if len(pat.Slots) != len(result.Arguments) {
		return nil, errors.Wrapf(ErrMalformedSignature, "%q has %d slots for %d arguments", signature, len(pat.Slots), len(result.Arguments))
	}
	result.Pattern = pat

	if err := result.compileDefaults(catalog); err != nil {
		return nil, err
	}

	result.Usage = strings.TrimSpace("/" + result.Label + " " + pat.Render(func(s *pattern.Slot) string {
		return "<" + catalog.TypeName(s.Type.Name(), s.Plural) + ">"
	}))
	return result, nil
}

// Scope is what the trigger and the defaults of the command may refer to.
func (s *Signature) Scope(catalog *locale.Catalog) *trigger.Scope {
	scope := &trigger.Scope{
		Mode:    types.ModeScript,
		Catalog: catalog,
	}
	for _, arg := range s.Arguments {
		scope.Arguments = append(scope.Arguments, arg.Ref())
	}
	return scope
}

func (s *Signature) compileDefaults(catalog *locale.Catalog) error {
	scope := &trigger.Scope{
		Mode:    types.ModeScript,
		Catalog: catalog,
	}
	for _, arg := range s.Arguments {
		if arg.Default == "" {
			continue
		}
		expr, err := trigger.ParseExpression(arg.Default, arg.Type, arg.Plural, scope)
		if err != nil {
			return errors.Wrapf(ErrInvalidDefault, "%s in /%s: %v", arg, s.Label, err)
		}
		arg.defaultExpr = expr
	}
	return nil
}
