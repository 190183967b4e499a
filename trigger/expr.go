package trigger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/lang"
	"github.com/zond/juicecmd/locale"
	"github.com/zond/juicecmd/types"
)

// Expr produces values of one type when a trigger runs.
type Expr interface {
	Values(ctx *Context) []any
	Type() types.Type
	String() string
}

// ArgRef describes a command argument visible to the expressions of a
// trigger.
type ArgRef struct {
	Name   string
	Index  int
	Type   types.Type
	Plural bool
}

// Scope is what an expression may refer to while being parsed.
type Scope struct {
	Arguments []ArgRef
	Mode      types.Mode
	Catalog   *locale.Catalog
	Sender    host.Sender
	World     host.World
}

func (s *Scope) parseContext() *types.ParseContext {
	return &types.ParseContext{
		Mode:    s.Mode,
		Sender:  s.Sender,
		World:   s.World,
		Catalog: s.Catalog,
	}
}

func (s *Scope) messages() *locale.Catalog {
	return s.parseContext().Messages()
}

func (s *Scope) cannotUnderstand(t types.Type, text string) error {
	return errors.New(s.messages().Loc("cannot_understand", locale.Strmap{
		"Type": s.messages().TypeName(t.Name(), false),
		"Text": text,
	}))
}

var (
	argNumberReg = regexp.MustCompile(`(?i)^(?:arg-|argument )(\d+)$`)
	argNameReg   = regexp.MustCompile(`(?i)^(?:arg-([^\s]+)|<([^>]+)>)$`)
	senderWords  = map[string]bool{
		"player":     true,
		"the player": true,
		"sender":     true,
		"the sender": true,
		"me":         true,
	}
)

func sameType(a, b types.Type) bool {
	return a.Name() == b.Name()
}

// Literal is a constant parsed when the trigger was loaded.
type Literal struct {
	typ  types.Type
	vals []any
	text string
}

func (l *Literal) Values(*Context) []any { return l.vals }

func (l *Literal) Type() types.Type { return l.typ }

func (l *Literal) String() string { return l.text }

// Argument is the value bound to a command argument.
type Argument struct {
	Ref ArgRef
}

func (a *Argument) Values(ctx *Context) []any { return ctx.Argument(a.Ref.Index) }

func (a *Argument) Type() types.Type { return a.Ref.Type }

func (a *Argument) String() string { return fmt.Sprintf("arg-%d", a.Ref.Index+1) }

// Sender is whoever ran the command, as a player or by name.
type Sender struct {
	typ types.Type
}

func (s *Sender) Values(ctx *Context) []any {
	if ctx.Sender == nil {
		return nil
	}
	if _, isString := s.typ.(types.String); isString {
		return []any{ctx.Sender.Name()}
	}
	if p, ok := ctx.Sender.(host.Player); ok {
		return []any{p}
	}
	return nil
}

func (s *Sender) Type() types.Type { return s.typ }

func (s *Sender) String() string { return "player" }

// Formatted renders the values of another expression as text.
type Formatted struct {
	Inner Expr
}

func (f *Formatted) Values(ctx *Context) []any {
	result := []any{}
	for _, v := range f.Inner.Values(ctx) {
		result = append(result, f.Inner.Type().Format(v))
	}
	return result
}

func (f *Formatted) Type() types.Type { return types.String{} }

func (f *Formatted) String() string { return f.Inner.String() }

// List concatenates the values of its items.
type List struct {
	typ   types.Type
	Items []Expr
}

func (l *List) Values(ctx *Context) []any {
	result := []any{}
	for _, item := range l.Items {
		result = append(result, item.Values(ctx)...)
	}
	return result
}

func (l *List) Type() types.Type { return l.typ }

func (l *List) String() string {
	parts := make([]string, len(l.Items))
	for idx, item := range l.Items {
		parts[idx] = item.String()
	}
	return lang.Enumerator{}.Do(parts...)
}

// Template is a quoted string with %expression% parts.
type Template struct {
	parts []Expr
	text  string
}

func (t *Template) Values(ctx *Context) []any {
	buf := &strings.Builder{}
	for _, part := range t.parts {
		if lit, ok := part.(*Literal); ok {
			buf.WriteString(lit.text)
			continue
		}
		strs := []string{}
		for _, v := range part.Values(ctx) {
			strs = append(strs, fmt.Sprint(v))
		}
		buf.WriteString(lang.Enumerator{}.Do(strs...))
	}
	return []any{buf.String()}
}

func (t *Template) Type() types.Type { return types.String{} }

func (t *Template) String() string { return t.text }

// ParseExpression parses text as an expression producing values of want.
func ParseExpression(text string, want types.Type, plural bool, scope *Scope) (Expr, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, scope.cannotUnderstand(want, text)
	}
	if plural {
		parts, err := splitList(text)
		if err != nil {
			return nil, scope.cannotUnderstand(want, text)
		}
		if len(parts) > 1 {
			list := &List{typ: want}
			for _, part := range parts {
				item, err := parseSingle(part, want, scope)
				if err != nil {
					return nil, err
				}
				list.Items = append(list.Items, item)
			}
			return list, nil
		}
	}
	expr, err := parseSingle(text, want, scope)
	if err != nil {
		return nil, err
	}
	if arg, ok := expr.(*Argument); ok && arg.Ref.Plural && !plural {
		return nil, errors.Errorf("%s can hold more than one %s, but only one is allowed here", text, arg.Ref.Type.Name())
	}
	return expr, nil
}

func parseSingle(text string, want types.Type, scope *Scope) (Expr, error) {
	if ref, found := scope.argument(text); found {
		expr := Expr(&Argument{Ref: ref})
		if sameType(ref.Type, want) {
			return expr, nil
		}
		if _, isString := want.(types.String); isString {
			return &Formatted{Inner: expr}, nil
		}
		return nil, errors.Errorf("%s is %s, not %s", text, ref.Type.Name(), want.Name())
	}
	if senderWords[strings.ToLower(text)] {
		switch want.(type) {
		case types.String, types.Player:
			return &Sender{typ: want}, nil
		}
		return nil, scope.cannotUnderstand(want, text)
	}
	if strings.HasPrefix(text, `"`) {
		if _, isString := want.(types.String); !isString {
			return nil, scope.cannotUnderstand(want, text)
		}
		return parseTemplate(text, scope)
	}
	if _, isString := want.(types.String); isString || !want.CanParse(scope.Mode) {
		return nil, scope.cannotUnderstand(want, text)
	}
	v, err := want.Parse(text, scope.parseContext())
	if err != nil {
		return nil, err
	}
	return &Literal{typ: want, vals: []any{v}, text: text}, nil
}

func (s *Scope) argument(text string) (ArgRef, bool) {
	if m := argNumberReg.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= len(s.Arguments) {
			return s.Arguments[n-1], true
		}
		return ArgRef{}, false
	}
	if strings.EqualFold(text, "arg") || strings.EqualFold(text, "argument") {
		if len(s.Arguments) == 1 {
			return s.Arguments[0], true
		}
		return ArgRef{}, false
	}
	if m := argNameReg.FindStringSubmatch(text); m != nil {
		name := m[1] + m[2]
		for _, ref := range s.Arguments {
			if ref.Name != "" && strings.EqualFold(ref.Name, name) {
				return ref, true
			}
		}
	}
	return ArgRef{}, false
}

func parseTemplate(text string, scope *Scope) (Expr, error) {
	if len(text) < 2 || !strings.HasSuffix(text, `"`) {
		return nil, scope.cannotUnderstand(types.String{}, text)
	}
	body := text[1 : len(text)-1]
	result := &Template{text: text}
	lit := &strings.Builder{}
	flush := func() {
		if lit.Len() > 0 {
			result.parts = append(result.parts, &Literal{typ: types.String{}, text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(body); i++ {
		switch c := body[i]; c {
		case '"':
			if i+1 < len(body) && body[i+1] == '"' {
				lit.WriteByte('"')
				i++
				continue
			}
			return nil, scope.cannotUnderstand(types.String{}, text)
		case '%':
			if i+1 < len(body) && body[i+1] == '%' {
				lit.WriteByte('%')
				i++
				continue
			}
			end := strings.IndexByte(body[i+1:], '%')
			if end == -1 {
				return nil, errors.Errorf("missing %% in %s", text)
			}
			flush()
			inner, err := ParseExpression(body[i+1:i+1+end], types.String{}, true, scope)
			if err != nil {
				return nil, err
			}
			result.parts = append(result.parts, inner)
			i += end + 1
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return result, nil
}

// splitList splits text on top level commas and the words "and" and "or".
func splitList(text string) ([]string, error) {
	parts := []string{}
	inQuote := false
	start := 0
	lower := strings.ToLower(text)
	for i := 0; i < len(text); i++ {
		if text[i] == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		sepLen := 0
		switch {
		case text[i] == ',':
			sepLen = 1
			if strings.HasPrefix(lower[i+1:], " and ") {
				sepLen += 5
			} else if strings.HasPrefix(lower[i+1:], " or ") {
				sepLen += 4
			}
		case strings.HasPrefix(lower[i:], " and "):
			sepLen = 5
		case strings.HasPrefix(lower[i:], " or "):
			sepLen = 4
		}
		if sepLen == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(text[start:i]))
		start = i + sepLen
		i = start - 1
	}
	if inQuote {
		return nil, errors.Errorf("unterminated quote in %s", text)
	}
	parts = append(parts, strings.TrimSpace(text[start:]))
	for _, part := range parts {
		if part == "" {
			return nil, errors.Errorf("empty list element in %s", text)
		}
	}
	return parts, nil
}
