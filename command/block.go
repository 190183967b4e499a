package command

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/trigger"
	"github.com/zond/juicecmd/types"
)

const defaultExecutableBy = "console,players"

var (
	aliasSplitReg  = regexp.MustCompile(`\s*,\s*/?`)
	callerSplitReg = regexp.MustCompile(`(?i)\s*,\s*|\s+(?:and|or)\s+`)

	knownKeys = map[string]bool{
		"usage":              true,
		"description":        true,
		"permission":         true,
		"permission message": true,
		"aliases":            true,
		"executable by":      true,
	}
)

// Block is one command as written in a script: the signature line, its
// entries and the action lines of its trigger.
type Block struct {
	Origin    string
	Line      int
	Signature string
	Entries   map[string]string
	Trigger   []string
}

func (b *Block) entry(key string) (string, bool) {
	v, found := b.Entries[key]
	return strings.TrimSpace(v), found
}

// Warning is a problem with a block that doesn't stop it from loading.
type Warning struct {
	Origin  string
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s:%d: %s", w.Origin, w.Line, w.Message)
}

// Compiler turns blocks into commands.
type Compiler struct {
	Resolver *types.Resolver
	Effects  *trigger.Parser
	Env      *Env
}

func (c *Compiler) warn(b *Block, warnings *[]Warning, format string, args ...any) {
	*warnings = append(*warnings, Warning{
		Origin:  b.Origin,
		Line:    b.Line,
		Message: fmt.Sprintf(format, args...),
	})
}

// ParseAliases splits an aliases entry. An empty entry means no aliases.
func ParseAliases(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	result := []string{}
	for _, alias := range aliasSplitReg.Split(strings.TrimPrefix(s, "/"), -1) {
		if alias = strings.ToLower(strings.TrimSpace(alias)); alias != "" {
			result = append(result, alias)
		}
	}
	return result
}

// ParseExecutableBy splits an executable by entry, returning the tokens it
// didn't recognize.
func ParseExecutableBy(s string) (host.Kind, []string) {
	kind := host.KindNone
	unknown := []string{}
	for _, token := range callerSplitReg.Split(strings.TrimSpace(s), -1) {
		switch strings.ToLower(token) {
		case "console", "the console":
			kind |= host.KindConsole
		case "players", "player":
			kind |= host.KindPlayer
		default:
			unknown = append(unknown, token)
		}
	}
	return kind, unknown
}

// Compile compiles b. Any error means nothing of b may be registered.
func (c *Compiler) Compile(b *Block) (*ScriptCommand, []Warning, error) {
	warnings := []Warning{}
	catalog := c.Env.catalog()

	sig, err := Compile(b.Signature, c.Resolver, catalog)
	if err != nil {
		return nil, warnings, err
	}

	unknownKeys := []string{}
	for key := range b.Entries {
		if !knownKeys[key] {
			unknownKeys = append(unknownKeys, key)
		}
	}
	sort.Strings(unknownKeys)
	for _, key := range unknownKeys {
		c.warn(b, &warnings, "unknown entry %q in /%s", key, sig.Label)
	}

	if len(b.Trigger) == 0 {
		return nil, warnings, errors.Wrapf(ErrMissingTrigger, "/%s", sig.Label)
	}

	result := &ScriptCommand{
		Label:     sig.Label,
		Usage:     sig.Usage,
		Arguments: sig.Arguments,
		Pattern:   sig.Pattern,
		Origin:    b.Origin,
		env:       c.Env,
	}
	if usage, found := b.entry("usage"); found && usage != "" {
		result.Usage = usage
	}
	result.Description, _ = b.entry("description")
	result.Permission, _ = b.entry("permission")
	result.PermissionMessage, _ = b.entry("permission message")
	if aliases, found := b.entry("aliases"); found {
		result.Aliases = ParseAliases(aliases)
	}
	by, found := b.entry("executable by")
	if !found {
		by = defaultExecutableBy
	}
	kind, unknown := ParseExecutableBy(by)
	for _, token := range unknown {
		c.warn(b, &warnings, "'executable by' should be either be 'players', 'console', or both, but found %q", token)
	}
	result.ExecutableBy = kind

	if result.PermissionMessage != "" && result.Permission == "" {
		c.warn(b, &warnings, "command /%s has a permission message set, but not a permission", sig.Label)
	}

	trig, err := c.Effects.ParseTrigger("/"+sig.Label, b.Trigger, sig.Scope(catalog))
	if err != nil {
		return nil, warnings, err
	}
	result.Trigger = trig
	return result, warnings, nil
}
