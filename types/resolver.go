package types

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/pkg/errors"
	"github.com/zond/juicecmd/lang"
)

var (
	ErrUnknownType           = errors.New("unknown type")
	ErrTypeNotCommandCapable = errors.New("type can't be used as a command argument")
	ErrDuplicateType         = errors.New("type name already registered")
)

const maxSuggestionDistance = 2

// Resolver maps type names, singular or plural, to registered types.
type Resolver struct {
	byName   map[string]Type
	byPlural map[string]Type
	names    []string
}

func NewResolver() *Resolver {
	return &Resolver{
		byName:   map[string]Type{},
		byPlural: map[string]Type{},
	}
}

// Register adds t under its name and any aliases.
func (r *Resolver) Register(t Type, aliases ...string) error {
	names := append([]string{t.Name()}, aliases...)
	for _, name := range names {
		name = strings.ToLower(name)
		if _, found := r.byName[name]; found {
			return errors.Wrapf(ErrDuplicateType, "%q", name)
		}
	}
	for idx, name := range names {
		name = strings.ToLower(name)
		r.byName[name] = t
		r.names = append(r.names, name)
		plural := lang.Plural(name)
		if idx == 0 {
			plural = strings.ToLower(PluralName(t))
		}
		if _, found := r.byName[plural]; !found && plural != name {
			r.byPlural[plural] = t
		}
	}
	sort.Strings(r.names)
	return nil
}

// MustRegister is Register for init time registration of known types.
func (r *Resolver) MustRegister(t Type, aliases ...string) *Resolver {
	if err := r.Register(t, aliases...); err != nil {
		panic(err)
	}
	return r
}

// Lookup finds a type by its exact singular name or alias.
func (r *Resolver) Lookup(name string) (Type, bool) {
	t, found := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return t, found
}

// Names returns all registered names and aliases, sorted.
func (r *Resolver) Names() []string {
	return append([]string(nil), r.names...)
}

// Resolve finds the type named by token and reports whether token was the
// plural form.
func (r *Resolver) Resolve(token string) (Type, bool, error) {
	name := strings.ToLower(strings.TrimSpace(token))
	if t, found := r.byName[name]; found {
		return t, false, nil
	}
	if t, found := r.byPlural[name]; found {
		return t, true, nil
	}
	if singular := lang.Singular(name); singular != name {
		if t, found := r.byName[singular]; found {
			return t, true, nil
		}
	}
	if suggestion := r.Suggest(name); suggestion != "" {
		return nil, false, errors.Wrapf(ErrUnknownType, "%q (did you mean %q?)", token, suggestion)
	}
	return nil, false, errors.Wrapf(ErrUnknownType, "%q", token)
}

// ResolveCommand is Resolve restricted to types usable in command arguments.
func (r *Resolver) ResolveCommand(token string) (Type, bool, error) {
	t, plural, err := r.Resolve(token)
	if err != nil {
		return nil, false, err
	}
	if !SupportsCommands(t) {
		return nil, false, errors.Wrapf(ErrTypeNotCommandCapable, "%q", token)
	}
	return t, plural, nil
}

// Suggest returns the closest registered name, or "" if nothing is close.
func (r *Resolver) Suggest(token string) string {
	best, bestDistance := "", maxSuggestionDistance+1
	for _, name := range r.names {
		if d := levenshtein.ComputeDistance(token, name); d < bestDistance {
			best, bestDistance = name, d
		}
	}
	return best
}
