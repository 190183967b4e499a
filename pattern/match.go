package pattern

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SlotParser turns the text a slot spans into a value. Errors are user facing
// descriptions of why the text doesn't fit.
type SlotParser func(slot *Slot, text string) (any, error)

// Diagnostic explains why an input didn't match.
type Diagnostic struct {
	Pos     int
	Text    string
	Message string
}

func (d *Diagnostic) Error() string {
	if d.Message == "" {
		return fmt.Sprintf("no match at %d", d.Pos)
	}
	return d.Message
}

// Specific reports whether a slot parser said what went wrong.
func (d *Diagnostic) Specific() bool {
	return d != nil && d.Message != ""
}

type Match struct {
	// Values are indexed by slot index, nil for slots that didn't take part.
	Values []any
}

func (m *Match) Has(index int) bool {
	return index < len(m.Values) && m.Values[index] != nil
}

type matcher struct {
	input  string
	parse  SlotParser
	values []any
	best   *Diagnostic
}

// Match matches input against the pattern. Slots try their shortest
// candidate text first, and the diagnostic returned on failure is the one
// furthest into the input, slot parser complaints winning over plain
// mismatches.
func (p *Pattern) Match(input string, parse SlotParser) (*Match, *Diagnostic) {
	m := &matcher{
		input:  strings.TrimSpace(input),
		parse:  parse,
		values: make([]any, len(p.Slots)),
	}
	if m.seq(p.Nodes, 0, m.end) {
		return &Match{Values: m.values}, nil
	}
	if m.best == nil {
		return nil, &Diagnostic{}
	}
	return nil, m.best
}

func (m *matcher) end(pos int) bool {
	if strings.TrimSpace(m.input[pos:]) != "" {
		m.fail(pos, "", "")
		return false
	}
	return true
}

func (m *matcher) fail(pos int, text string, message string) {
	candidate := &Diagnostic{Pos: pos, Text: text, Message: message}
	switch {
	case m.best == nil:
		m.best = candidate
	case m.best.Specific() != candidate.Specific():
		if candidate.Specific() {
			m.best = candidate
		}
	case candidate.Pos > m.best.Pos:
		m.best = candidate
	}
}

func (m *matcher) seq(nodes []Node, pos int, k func(int) bool) bool {
	if len(nodes) == 0 {
		return k(pos)
	}
	next := func(p int) bool {
		return m.seq(nodes[1:], p, k)
	}
	switch n := nodes[0].(type) {
	case Literal:
		end, ok := m.literal(string(n), pos)
		return ok && next(end)
	case *Slot:
		return m.slot(n, pos, next)
	case Group:
		for _, choice := range n.Choices {
			if m.seq(choice, pos, next) {
				return true
			}
		}
		return n.Optional && next(pos)
	}
	panic(fmt.Errorf("unknown node %T", nodes[0]))
}

func (m *matcher) runeAt(pos int) (rune, int) {
	return utf8.DecodeRuneInString(m.input[pos:])
}

func (m *matcher) runeBefore(pos int) rune {
	r, _ := utf8.DecodeLastRuneInString(m.input[:pos])
	return r
}

func (m *matcher) literal(lit string, pos int) (int, bool) {
	for _, want := range lit {
		if unicode.IsSpace(want) {
			if pos < len(m.input) {
				if r, _ := m.runeAt(pos); unicode.IsSpace(r) {
					for pos < len(m.input) {
						r, size := m.runeAt(pos)
						if !unicode.IsSpace(r) {
							break
						}
						pos += size
					}
					continue
				}
			}
			if pos == 0 || pos == len(m.input) || unicode.IsSpace(m.runeBefore(pos)) {
				continue
			}
			m.fail(pos, "", "")
			return pos, false
		}
		if pos >= len(m.input) {
			m.fail(pos, "", "")
			return pos, false
		}
		got, size := m.runeAt(pos)
		if !strings.EqualFold(string(got), string(want)) {
			m.fail(pos, "", "")
			return pos, false
		}
		pos += size
	}
	return pos, true
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func isBoundary(before, after rune) bool {
	return isSeparator(before) || isSeparator(after) || unicode.IsDigit(before) != unicode.IsDigit(after)
}

// boundaries returns the candidate end positions for a slot starting at
// start, shortest first.
func (m *matcher) boundaries(start int) []int {
	result := []int{}
	for pos := start; pos < len(m.input); {
		_, size := m.runeAt(pos)
		pos += size
		before := m.runeBefore(pos)
		if unicode.IsSpace(before) {
			continue
		}
		if pos == len(m.input) {
			result = append(result, pos)
		} else if after, _ := m.runeAt(pos); isBoundary(before, after) {
			result = append(result, pos)
		}
	}
	return result
}

func (m *matcher) slot(s *Slot, pos int, k func(int) bool) bool {
	for pos < len(m.input) {
		r, size := m.runeAt(pos)
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	for _, end := range m.boundaries(pos) {
		text := m.input[pos:end]
		value, err := m.parse(s, text)
		if err != nil {
			m.fail(pos, text, err.Error())
			continue
		}
		m.values[s.Index] = value
		if k(end) {
			return true
		}
		m.values[s.Index] = nil
	}
	if pos >= len(m.input) {
		m.fail(pos, "", "")
	}
	return false
}
