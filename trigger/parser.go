package trigger

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/zond/juicecmd/pattern"
)

var ErrEmptyTrigger = errors.New("trigger has no actions")

// Effect is one action of a trigger.
type Effect interface {
	Run(ctx *Context) error
	String() string
}

// Factory builds an effect from the expressions of a matched syntax, indexed
// by slot and nil for optional slots that were left out.
type Factory func(exprs []Expr) (Effect, error)

type syntax struct {
	pattern *pattern.Pattern
	factory Factory
}

// Parser knows the syntax of every registered effect.
type Parser struct {
	resolver pattern.Resolver
	syntaxes []syntax
}

func NewParser(resolver pattern.Resolver) *Parser {
	return &Parser{resolver: resolver}
}

// Register adds an effect syntax. Syntaxes are tried in registration order.
func (p *Parser) Register(src string, factory Factory) error {
	pat, err := pattern.Parse(src, p.resolver)
	if err != nil {
		return errors.Wrapf(err, "registering effect %q", src)
	}
	p.syntaxes = append(p.syntaxes, syntax{pattern: pat, factory: factory})
	return nil
}

func (p *Parser) MustRegister(src string, factory Factory) *Parser {
	if err := p.Register(src, factory); err != nil {
		panic(err)
	}
	return p
}

// Syntaxes returns the registered syntaxes in the pattern language.
func (p *Parser) Syntaxes() []string {
	result := make([]string, len(p.syntaxes))
	for idx, syn := range p.syntaxes {
		result[idx] = syn.pattern.String()
	}
	return result
}

type sourced struct {
	Effect
	text string
}

func (s sourced) String() string {
	return s.text
}

func better(current, candidate *pattern.Diagnostic) *pattern.Diagnostic {
	switch {
	case current == nil:
		return candidate
	case current.Specific() != candidate.Specific():
		if candidate.Specific() {
			return candidate
		}
		return current
	case candidate.Pos > current.Pos:
		return candidate
	}
	return current
}

// Parse parses line as one effect. When no syntax matches the returned
// diagnostic is the most specific one any syntax produced.
func (p *Parser) Parse(line string, scope *Scope) (Effect, *pattern.Diagnostic) {
	line = strings.TrimSpace(line)
	parseSlot := func(slot *pattern.Slot, text string) (any, error) {
		return ParseExpression(text, slot.Type, slot.Plural, scope)
	}
	var best *pattern.Diagnostic
	for _, syn := range p.syntaxes {
		m, diag := syn.pattern.Match(line, parseSlot)
		if diag != nil {
			best = better(best, diag)
			continue
		}
		exprs := make([]Expr, len(m.Values))
		for idx, v := range m.Values {
			if v != nil {
				exprs[idx] = v.(Expr)
			}
		}
		effect, err := syn.factory(exprs)
		if err != nil {
			best = better(best, &pattern.Diagnostic{Pos: len(line), Text: line, Message: err.Error()})
			continue
		}
		return sourced{Effect: effect, text: line}, nil
	}
	if best == nil {
		best = &pattern.Diagnostic{}
	}
	return nil, best
}

// LineError is an action line that didn't parse.
type LineError struct {
	Index      int
	Line       string
	Diagnostic *pattern.Diagnostic
}

func (e *LineError) Error() string {
	if e.Diagnostic.Specific() {
		return fmt.Sprintf("line %d: %s: %s", e.Index+1, e.Line, e.Diagnostic.Message)
	}
	return fmt.Sprintf("line %d: can't understand this effect: %s", e.Index+1, e.Line)
}

// TriggerError lists every line of a trigger that didn't parse.
type TriggerError struct {
	Name  string
	Lines []*LineError
}

func (e *TriggerError) Error() string {
	parts := make([]string, len(e.Lines))
	for idx, line := range e.Lines {
		parts[idx] = line.Error()
	}
	return fmt.Sprintf("trigger of %s: %s", e.Name, strings.Join(parts, "; "))
}

// Trigger is the ordered list of effects a command runs.
type Trigger struct {
	Name  string
	Items []Effect
}

// ParseTrigger parses every non blank line, reporting all failures at once.
func (p *Parser) ParseTrigger(name string, lines []string, scope *Scope) (*Trigger, error) {
	result := &Trigger{Name: name}
	failures := &TriggerError{Name: name}
	for idx, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		effect, diag := p.Parse(line, scope)
		if diag != nil {
			failures.Lines = append(failures.Lines, &LineError{Index: idx, Line: strings.TrimSpace(line), Diagnostic: diag})
			continue
		}
		result.Items = append(result.Items, effect)
	}
	if len(failures.Lines) > 0 {
		return nil, failures
	}
	if len(result.Items) == 0 {
		return nil, errors.Wrapf(ErrEmptyTrigger, "%s", name)
	}
	return result, nil
}

// Run runs every effect in order, stopping at the first error.
func (t *Trigger) Run(ctx *Context) error {
	for _, item := range t.Items {
		if err := item.Run(ctx); err != nil {
			return errors.Wrapf(err, "%s", item)
		}
	}
	return nil
}
