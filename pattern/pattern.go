// Package pattern implements the small pattern language both command
// signatures and action syntaxes compile to.
//
//	literal text    matched case insensitively, spaces match any whitespace run
//	%type%          a typed slot, %types% for a list, %-type% if it may be absent
//	[ ... ]         optional group
//	( a | b )       choice group, | at the top level also separates choices
//	\x              x taken literally, for x in ( | ) < > % \ [ ]
package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/zond/juicecmd/types"
)

var (
	ErrSyntax = errors.New("invalid pattern")

	escapeReg   = regexp.MustCompile(`[(|)<>%\\]`)
	unescapeReg = regexp.MustCompile(`\\([(|)<>%\\\[\]])`)
)

// Escape quotes every character of s that would otherwise be pattern syntax,
// except brackets.
func Escape(s string) string {
	return escapeReg.ReplaceAllString(s, `\$0`)
}

func Unescape(s string) string {
	return unescapeReg.ReplaceAllString(s, "$1")
}

// Resolver finds the type a slot names.
type Resolver interface {
	Resolve(token string) (types.Type, bool, error)
}

type Node interface {
	render(buf *strings.Builder, slot func(*Slot) string, escaped bool)
}

type Literal string

func (l Literal) render(buf *strings.Builder, _ func(*Slot) string, escaped bool) {
	if escaped {
		buf.WriteString(strings.NewReplacer("[", `\[`, "]", `\]`).Replace(Escape(string(l))))
	} else {
		buf.WriteString(string(l))
	}
}

// Slot is a typed placeholder. Index is its position among all slots of the
// pattern, in source order.
type Slot struct {
	Index    int
	Type     types.Type
	Plural   bool
	Optional bool
}

func (s *Slot) CodeName() string {
	return types.CodeName(s.Type, s.Plural)
}

func (s *Slot) String() string {
	if s.Optional {
		return "%-" + s.CodeName() + "%"
	}
	return "%" + s.CodeName() + "%"
}

func (s *Slot) render(buf *strings.Builder, slot func(*Slot) string, _ bool) {
	buf.WriteString(slot(s))
}

// Group is an optional group when Optional is set, otherwise a choice
// between its alternatives.
type Group struct {
	Optional bool
	Choices  [][]Node
}

func (g Group) render(buf *strings.Builder, slot func(*Slot) string, escaped bool) {
	open, close := "(", ")"
	if g.Optional {
		open, close = "[", "]"
	}
	buf.WriteString(open)
	for idx, choice := range g.Choices {
		if idx > 0 {
			buf.WriteString("|")
		}
		for _, n := range choice {
			n.render(buf, slot, escaped)
		}
	}
	buf.WriteString(close)
}

type Pattern struct {
	Source string
	Nodes  []Node
	Slots  []*Slot
}

// String renders the pattern back into the pattern language.
func (p *Pattern) String() string {
	return p.render((*Slot).String, true)
}

// Render renders the pattern for humans, with slot supplying the text for
// each slot and literals unescaped.
func (p *Pattern) Render(slot func(*Slot) string) string {
	return p.render(slot, false)
}

func (p *Pattern) render(slot func(*Slot) string, escaped bool) string {
	buf := &strings.Builder{}
	for _, n := range p.Nodes {
		n.render(buf, slot, escaped)
	}
	return buf.String()
}

// OptionalGroups counts the optional groups at any depth.
func (p *Pattern) OptionalGroups() int {
	var count func(nodes []Node) int
	count = func(nodes []Node) int {
		result := 0
		for _, n := range nodes {
			if g, ok := n.(Group); ok {
				if g.Optional {
					result++
				}
				for _, choice := range g.Choices {
					result += count(choice)
				}
			}
		}
		return result
	}
	return count(p.Nodes)
}

type parser struct {
	src      string
	pos      int
	resolver Resolver
	slots    []*Slot
}

// Parse compiles src, resolving slot types with resolver.
func Parse(src string, resolver Resolver) (*Pattern, error) {
	p := &parser{src: src, resolver: resolver}
	choices, err := p.alternatives(0)
	if err != nil {
		return nil, err
	}
	result := &Pattern{
		Source: src,
		Slots:  p.slots,
	}
	if len(choices) == 1 {
		result.Nodes = choices[0]
	} else {
		result.Nodes = []Node{Group{Choices: choices}}
	}
	return result, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.Wrapf(ErrSyntax, "%q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) alternatives(closer rune) ([][]Node, error) {
	choices := [][]Node{}
	current := []Node{}
	lit := &strings.Builder{}
	flush := func() {
		if lit.Len() > 0 {
			current = append(current, Literal(lit.String()))
			lit.Reset()
		}
	}
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		switch r {
		case '\\':
			p.pos += size
			if p.pos >= len(p.src) {
				return nil, p.errorf("escape at end of pattern")
			}
			escaped, escapedSize := utf8.DecodeRuneInString(p.src[p.pos:])
			lit.WriteRune(escaped)
			p.pos += escapedSize
		case '[', '(':
			flush()
			p.pos += size
			groupCloser := ')'
			if r == '[' {
				groupCloser = ']'
			}
			inner, err := p.alternatives(groupCloser)
			if err != nil {
				return nil, err
			}
			current = append(current, Group{Optional: r == '[', Choices: inner})
		case ']', ')':
			if r != closer {
				return nil, p.errorf("unexpected %q", r)
			}
			p.pos += size
			flush()
			return append(choices, current), nil
		case '|':
			flush()
			choices = append(choices, current)
			current = []Node{}
			p.pos += size
		case '%':
			flush()
			slot, err := p.slot()
			if err != nil {
				return nil, err
			}
			current = append(current, slot)
		case '<', '>':
			return nil, p.errorf("unescaped %q", r)
		default:
			lit.WriteRune(r)
			p.pos += size
		}
	}
	if closer != 0 {
		return nil, p.errorf("missing %q", closer)
	}
	flush()
	return append(choices, current), nil
}

func (p *parser) slot() (*Slot, error) {
	start := p.pos
	end := strings.IndexRune(p.src[start+1:], '%')
	if end == -1 {
		return nil, p.errorf("unterminated slot")
	}
	token := p.src[start+1 : start+1+end]
	p.pos = start + 1 + end + 1
	slot := &Slot{Index: len(p.slots)}
	if strings.HasPrefix(token, "-") {
		slot.Optional = true
		token = token[1:]
	}
	if strings.TrimSpace(token) == "" {
		return nil, p.errorf("empty slot")
	}
	t, plural, err := p.resolver.Resolve(token)
	if err != nil {
		return nil, errors.Wrapf(err, "in pattern %q", p.src)
	}
	slot.Type, slot.Plural = t, plural
	p.slots = append(p.slots, slot)
	return slot, nil
}
