// Package types holds the value types command arguments and action slots
// can be declared with, and the resolver that finds them by name.
package types

import (
	"fmt"
	"sync"

	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/lang"
	"github.com/zond/juicecmd/locale"
)

// Mode is where a piece of text is being parsed.
type Mode int

const (
	// ModeScript is literal text inside a script, parsed at load time.
	ModeScript Mode = iota
	// ModeCommand is text typed by a sender as part of a command line.
	ModeCommand
)

func (m Mode) String() string {
	switch m {
	case ModeScript:
		return "script"
	case ModeCommand:
		return "command"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseContext is everything a Type may consult while parsing.
type ParseContext struct {
	Mode    Mode
	Sender  host.Sender
	World   host.World
	Catalog *locale.Catalog
}

var defaultCatalog = sync.OnceValue(func() *locale.Catalog {
	return locale.Must("en")
})

func (pc *ParseContext) Messages() *locale.Catalog {
	if pc == nil || pc.Catalog == nil {
		return defaultCatalog()
	}
	return pc.Catalog
}

// Type is a named value type that can parse itself from text.
type Type interface {
	// Name is the singular code name, e.g. "player".
	Name() string
	CanParse(mode Mode) bool
	// Parse returns a user facing error when text is not a valid value.
	Parse(text string, pc *ParseContext) (any, error)
	Format(v any) string
}

// PluralNamer is implemented by types whose plural isn't regular English.
type PluralNamer interface {
	PluralName() string
}

func PluralName(t Type) string {
	if p, ok := t.(PluralNamer); ok {
		return p.PluralName()
	}
	return lang.Plural(t.Name())
}

// CodeName is the name a slot for t is written with in a pattern.
func CodeName(t Type, plural bool) string {
	if plural {
		return PluralName(t)
	}
	return t.Name()
}

func SupportsCommands(t Type) bool {
	return t.CanParse(ModeCommand)
}

// Format renders values of t as an English list.
func Format(t Type, values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, t.Format(v))
	}
	return lang.Enumerator{}.Do(parts...)
}
