package types

import (
	"testing"

	"github.com/pkg/errors"
)

func TestResolve(t *testing.T) {
	r := Builtin()
	for _, tc := range []struct {
		token      string
		wantName   string
		wantPlural bool
		wantErr    error
	}{
		{"player", "player", false, nil},
		{"players", "player", true, nil},
		{"PLAYERS", "player", true, nil},
		{" integer ", "integer", false, nil},
		{"integers", "integer", true, nil},
		{"text", "string", false, nil},
		{"texts", "string", true, nil},
		{"strings", "string", true, nil},
		{"time span", "timespan", false, nil},
		{"timespans", "timespan", true, nil},
		{"entity", "", false, ErrUnknownType},
		{"playr", "", false, ErrUnknownType},
	} {
		t.Run(tc.token, func(t *testing.T) {
			typ, plural, err := r.Resolve(tc.token)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr != nil {
				return
			}
			if typ.Name() != tc.wantName {
				t.Errorf("got %q, want %q", typ.Name(), tc.wantName)
			}
			if plural != tc.wantPlural {
				t.Errorf("got plural %v, want %v", plural, tc.wantPlural)
			}
		})
	}
}

func TestResolveSuggests(t *testing.T) {
	_, _, err := Builtin().Resolve("playr")
	if err == nil || err.Error() != `"playr" (did you mean "player"?): unknown type` {
		t.Errorf("got %v", err)
	}
}

type scriptOnly struct{ Integer }

func (scriptOnly) Name() string { return "location" }

func (scriptOnly) CanParse(mode Mode) bool { return mode == ModeScript }

func TestResolveCommand(t *testing.T) {
	r := Builtin().MustRegister(scriptOnly{})
	if _, _, err := r.ResolveCommand("locations"); !errors.Is(err, ErrTypeNotCommandCapable) {
		t.Errorf("got %v, want %v", err, ErrTypeNotCommandCapable)
	}
	if _, _, err := r.ResolveCommand("location"); !errors.Is(err, ErrTypeNotCommandCapable) {
		t.Errorf("got %v, want %v", err, ErrTypeNotCommandCapable)
	}
	if typ, _, err := r.ResolveCommand("player"); err != nil || typ.Name() != "player" {
		t.Errorf("got %v, %v", typ, err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := Builtin()
	if err := r.Register(scriptOnly{}, "int"); !errors.Is(err, ErrDuplicateType) {
		t.Errorf("got %v, want %v", err, ErrDuplicateType)
	}
	if _, found := r.Lookup("location"); found {
		t.Errorf("failed registration left location behind")
	}
}

func TestCodeName(t *testing.T) {
	if got := CodeName(Player{}, true); got != "players" {
		t.Errorf("got %q, want players", got)
	}
	if got := CodeName(Timespan{}, false); got != "timespan" {
		t.Errorf("got %q, want timespan", got)
	}
}
