package command

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/zond/juicecmd"
)

// ConflictError is a registration refused because a name belongs to a
// command from another origin.
type ConflictError struct {
	Name   string
	Origin string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("/%s is already defined in %s", e.Name, e.Origin)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// AliasAcceptor lets the host veto or rewrite the aliases of a command being
// registered. It returns the aliases the command should be reachable by.
type AliasAcceptor func(cmd *ScriptCommand, aliases []string) []string

// Registry maps labels and aliases, case insensitively, to commands.
// Lookups read a snapshot and never block on registration.
type Registry struct {
	names  *juicecmd.SnapshotMap[string, *ScriptCommand]
	accept AliasAcceptor
}

// NewRegistry creates a registry. A nil acceptor accepts every alias.
func NewRegistry(accept AliasAcceptor) *Registry {
	return &Registry{
		names:  juicecmd.NewSnapshotMap[string, *ScriptCommand](),
		accept: accept,
	}
}

func dedup(names []string) []string {
	result := []string{}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && !slices.Contains(result, name) {
			result = append(result, name)
		}
	}
	return result
}

// Register makes cmd reachable by its label and accepted aliases. Either
// every name is registered or none is. A command from the same origin with
// the same label is replaced.
func (r *Registry) Register(cmd *ScriptCommand) error {
	aliases := dedup(cmd.Aliases)
	if r.accept != nil {
		aliases = dedup(r.accept(cmd, aliases))
	}
	label := strings.ToLower(cmd.Label)
	aliases = slices.DeleteFunc(aliases, func(alias string) bool {
		return alias == label
	})
	names := append([]string{label}, aliases...)
	return r.names.Update(func(m map[string]*ScriptCommand) error {
		replaced := map[*ScriptCommand]bool{}
		for _, name := range names {
			existing, found := m[name]
			if !found {
				continue
			}
			if existing.Origin == cmd.Origin && existing.Label == label {
				replaced[existing] = true
				continue
			}
			return juicecmd.WithStack(&ConflictError{Name: name, Origin: existing.Origin})
		}
		for name, existing := range m {
			if replaced[existing] {
				delete(m, name)
			}
		}
		for _, name := range names {
			m[name] = cmd
		}
		cmd.activeAliases = aliases
		return nil
	})
}

// Unregister removes every command loaded from origin and returns how many
// there were.
func (r *Registry) Unregister(origin string) int {
	removed := map[*ScriptCommand]bool{}
	r.names.Update(func(m map[string]*ScriptCommand) error {
		for name, cmd := range m {
			if cmd.Origin == origin {
				removed[cmd] = true
				delete(m, name)
			}
		}
		return nil
	})
	return len(removed)
}

// Clear removes every command.
func (r *Registry) Clear() {
	r.names.Replace(map[string]*ScriptCommand{})
}

func (r *Registry) Lookup(name string) (*ScriptCommand, bool) {
	return r.names.GetHas(strings.ToLower(name))
}

// Commands returns every registered command once, sorted by label.
func (r *Registry) Commands() []*ScriptCommand {
	seen := map[*ScriptCommand]bool{}
	result := []*ScriptCommand{}
	for cmd := range r.names.Values() {
		if !seen[cmd] {
			seen[cmd] = true
			result = append(result, cmd)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Label < result[j].Label
	})
	return result
}

// Origins returns the distinct origins of registered commands, sorted.
func (r *Registry) Origins() []string {
	result := []string{}
	for _, cmd := range r.Commands() {
		if !slices.Contains(result, cmd.Origin) {
			result = append(result, cmd.Origin)
		}
	}
	sort.Strings(result)
	return result
}
