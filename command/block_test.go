package command

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/trigger"
)

func TestParseAliases(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"/tele", []string{"tele"}},
		{"/tele, /TPA,warp", []string{"tele", "tpa", "warp"}},
		{"tele ,  go", []string{"tele", "go"}},
	} {
		t.Run(tc.in, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ParseAliases(tc.in)); diff != "" {
				t.Errorf("-want +got:\n%s", diff)
			}
		})
	}
}

func TestParseExecutableBy(t *testing.T) {
	for _, tc := range []struct {
		in          string
		want        host.Kind
		wantUnknown []string
	}{
		{"console,players", host.KindAll, []string{}},
		{"the console", host.KindConsole, []string{}},
		{"players", host.KindPlayer, []string{}},
		{"Player and Console", host.KindAll, []string{}},
		{"console or ops", host.KindConsole, []string{"ops"}},
		{"admins", host.KindNone, []string{"admins"}},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, unknown := ParseExecutableBy(tc.in)
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
			if diff := cmp.Diff(tc.wantUnknown, unknown); diff != "" {
				t.Errorf("-want +got:\n%s", diff)
			}
		})
	}
}

func TestCompileBlock(t *testing.T) {
	h := newHarness(t)
	cmd, warnings, err := h.compiler.Compile(&Block{
		Origin:    "admin.yml",
		Line:      3,
		Signature: "command /tp <target: player>",
		Entries: map[string]string{
			"aliases":            "/tele, tpa",
			"description":        "Teleport",
			"usage":              "/tp <someone>",
			"permission message": "nope",
			"executable by":      "players and ops",
			"colour":             "blue",
		},
		Trigger: []string{`record "tp"`},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Label != "tp" || cmd.Usage != "/tp <someone>" || cmd.Description != "Teleport" || cmd.Origin != "admin.yml" {
		t.Errorf("got %+v", cmd)
	}
	if diff := cmp.Diff([]string{"tele", "tpa"}, cmd.Aliases); diff != "" {
		t.Errorf("-want +got:\n%s", diff)
	}
	if cmd.ExecutableBy != host.KindPlayer {
		t.Errorf("got %v, want players", cmd.ExecutableBy)
	}
	got := []string{}
	for _, w := range warnings {
		got = append(got, w.String())
	}
	want := []string{
		`admin.yml:3: unknown entry "colour" in /tp`,
		`admin.yml:3: 'executable by' should be either be 'players', 'console', or both, but found "ops"`,
		"admin.yml:3: command /tp has a permission message set, but not a permission",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("-want +got:\n%s", diff)
	}
}

func TestCompileBlockDefaults(t *testing.T) {
	h := newHarness(t)
	cmd := h.compile(t, &Block{
		Signature: "command /tp <target: player>",
		Trigger:   []string{`record "tp"`},
	})
	if cmd.ExecutableBy != host.KindAll {
		t.Errorf("got %v, want everyone", cmd.ExecutableBy)
	}
	if cmd.Usage != "/tp <player>" || len(cmd.Aliases) != 0 || cmd.Permission != "" {
		t.Errorf("got %+v", cmd)
	}
}

func TestCompileBlockErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		block   *Block
		wantErr func(error) bool
	}{
		{
			name:    "missing trigger",
			block:   &Block{Signature: "command /x"},
			wantErr: func(err error) bool { return errors.Is(err, ErrMissingTrigger) },
		},
		{
			name:    "bad signature",
			block:   &Block{Signature: "command /x [", Trigger: []string{`record "x"`}},
			wantErr: func(err error) bool { return errors.Is(err, ErrUnbalancedBrackets) },
		},
		{
			name:  "bad trigger line",
			block: &Block{Signature: "command /x <player>", Trigger: []string{`record "x"`, "dance with arg-1"}},
			wantErr: func(err error) bool {
				te := &trigger.TriggerError{}
				return errors.As(err, &te) && len(te.Lines) == 1 && strings.Contains(te.Error(), "dance with arg-1")
			},
		},
		{
			name:  "argument of the wrong type",
			block: &Block{Signature: "command /x <text>", Trigger: []string{"kill arg-1"}},
			wantErr: func(err error) bool {
				te := &trigger.TriggerError{}
				return errors.As(err, &te) && strings.Contains(te.Error(), "is string, not player")
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			cmd, _, err := h.compiler.Compile(tc.block)
			if cmd != nil || !tc.wantErr(err) {
				t.Errorf("got %v, %v", cmd, err)
			}
		})
	}
}
