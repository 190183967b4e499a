package types

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/locale"
)

// Builtin returns a resolver with the types every installation has.
func Builtin() *Resolver {
	return NewResolver().
		MustRegister(String{}, "text").
		MustRegister(Integer{}, "int").
		MustRegister(Number{}).
		MustRegister(Boolean{}).
		MustRegister(Player{}).
		MustRegister(Timespan{}, "time span")
}

func userError(pc *ParseContext, id string, tmpl locale.Strmap) error {
	return errors.New(pc.Messages().Loc(id, tmpl))
}

// String is raw text. In scripts text must be quoted, so only command lines
// parse it directly.
type String struct{}

func (String) Name() string { return "string" }

func (String) CanParse(mode Mode) bool { return mode == ModeCommand }

func (String) Parse(text string, pc *ParseContext) (any, error) {
	return text, nil
}

func (String) Format(v any) string {
	s, _ := v.(string)
	return s
}

type Integer struct{}

func (Integer) Name() string { return "integer" }

func (Integer) CanParse(mode Mode) bool { return true }

func (Integer) Parse(text string, pc *ParseContext) (any, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return nil, userError(pc, "not_an_integer", locale.Strmap{"Text": text})
	}
	return i, nil
}

func (Integer) Format(v any) string {
	i, _ := v.(int64)
	return strconv.FormatInt(i, 10)
}

type Number struct{}

func (Number) Name() string { return "number" }

func (Number) CanParse(mode Mode) bool { return true }

func (Number) Parse(text string, pc *ParseContext) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil, userError(pc, "not_a_number", locale.Strmap{"Text": text})
	}
	return f, nil
}

func (Number) Format(v any) string {
	f, _ := v.(float64)
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Boolean accepts the yes and no words of the catalog in effect.
type Boolean struct{}

func (Boolean) Name() string { return "boolean" }

func (Boolean) CanParse(mode Mode) bool { return true }

func (Boolean) Parse(text string, pc *ParseContext) (any, error) {
	word := strings.ToLower(strings.TrimSpace(text))
	for _, w := range pc.Messages().Words("boolean_true_words") {
		if w == word {
			return true, nil
		}
	}
	for _, w := range pc.Messages().Words("boolean_false_words") {
		if w == word {
			return false, nil
		}
	}
	return nil, userError(pc, "not_a_boolean", locale.Strmap{"Text": text})
}

func (Boolean) Format(v any) string {
	b, _ := v.(bool)
	return strconv.FormatBool(b)
}

// Player is an online player, found by name or unique name prefix.
type Player struct{}

func (Player) Name() string { return "player" }

func (Player) CanParse(mode Mode) bool { return mode == ModeCommand }

func (Player) Parse(text string, pc *ParseContext) (any, error) {
	name := strings.TrimSpace(text)
	if pc == nil || pc.World == nil || name == "" {
		return nil, userError(pc, "no_such_player", locale.Strmap{"Name": name})
	}
	if p, found := pc.World.Player(name); found {
		return p, nil
	}
	prefix := strings.ToLower(name)
	matches := []host.Player{}
	for _, p := range pc.World.Players() {
		if strings.HasPrefix(strings.ToLower(p.Name()), prefix) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, userError(pc, "no_such_player", locale.Strmap{"Name": name})
	case 1:
		return matches[0], nil
	}
	names := make([]string, 0, len(matches))
	for _, p := range matches {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	return nil, userError(pc, "ambiguous_player", locale.Strmap{"Name": name, "Matches": strings.Join(names, ", ")})
}

func (Player) Format(v any) string {
	if p, ok := v.(host.Player); ok {
		return p.Name()
	}
	return ""
}

var timespanUnits = map[string]time.Duration{
	"tick":        50 * time.Millisecond,
	"millisecond": time.Millisecond,
	"second":      time.Second,
	"minute":      time.Minute,
	"hour":        time.Hour,
	"day":         24 * time.Hour,
}

// Timespan is either a Go duration ("1h30m") or a list of "<n> <unit>" parts
// ("1 hour and 30 minutes").
type Timespan struct{}

func (Timespan) Name() string { return "timespan" }

func (Timespan) CanParse(mode Mode) bool { return true }

func (Timespan) Parse(text string, pc *ParseContext) (any, error) {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if d, err := time.ParseDuration(trimmed); err == nil {
		return d, nil
	}
	fail := func() (any, error) {
		return nil, userError(pc, "not_a_timespan", locale.Strmap{"Text": text})
	}
	fields := strings.Fields(strings.NewReplacer(",", " ", " and ", " ").Replace(trimmed))
	if len(fields) == 0 || len(fields)%2 != 0 {
		return fail()
	}
	total := time.Duration(0)
	for i := 0; i < len(fields); i += 2 {
		amount, err := strconv.ParseFloat(fields[i], 64)
		if err != nil || !(amount >= 0) {
			return fail()
		}
		unit, found := timespanUnits[strings.TrimSuffix(fields[i+1], "s")]
		if !found {
			return fail()
		}
		part := amount * float64(unit)
		if part >= math.MaxInt64 || time.Duration(part) > math.MaxInt64-total {
			return fail()
		}
		total += time.Duration(part)
	}
	return total, nil
}

func (Timespan) Format(v any) string {
	d, _ := v.(time.Duration)
	return d.String()
}
