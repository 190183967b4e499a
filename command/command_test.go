package command

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd/host"
)

func tpBlock() *Block {
	return &Block{
		Signature: "command /tp <target: player> [<reason: string>]",
		Trigger:   []string{`record "%arg-1%/%arg-2%"`},
	}
}

func TestExecute(t *testing.T) {
	for _, tc := range []struct {
		name        string
		block       *Block
		sender      func(h *harness) host.Sender
		rest        string
		wantOutcome Outcome
		wantRuns    []string
		wantMessage string
	}{
		{
			name:        "binds mandatory and leaves optional absent",
			block:       tpBlock(),
			rest:        "Bob",
			wantOutcome: Complete,
			wantRuns:    []string{"Bob/"},
		},
		{
			name:        "binds both",
			block:       tpBlock(),
			rest:        "bob  for being late",
			wantOutcome: Complete,
			wantRuns:    []string{"Bob/for being late"},
		},
		{
			name: "uses default",
			block: &Block{
				Signature: `command /tp <target: player> [<reason: string = "no reason">]`,
				Trigger:   []string{`record "%arg-1%/%arg-2%"`},
			},
			rest:        "Bob",
			wantOutcome: Complete,
			wantRuns:    []string{"Bob/no reason"},
		},
		{
			name: "sender default",
			block: &Block{
				Signature: "command /heal [<target: player = player>]",
				Trigger:   []string{`record "healing %arg-target%"`},
			},
			rest:        "",
			wantOutcome: Complete,
			wantRuns:    []string{"healing Steve"},
		},
		{
			name:        "no match reports diagnostic and usage",
			block:       tpBlock(),
			rest:        "Notch",
			wantOutcome: NoMatch,
			wantMessage: "Correct usage: /tp <player> [<text>]",
		},
		{
			name:        "no match with specific diagnostic",
			block:       tpBlock(),
			rest:        "Notch",
			wantOutcome: NoMatch,
			wantMessage: "There's no player named 'Notch' online",
		},
		{
			name: "console only rejects players",
			block: &Block{
				Signature: "command /stop",
				Entries:   map[string]string{"executable by": "the console"},
				Trigger:   []string{`record "stopping"`},
			},
			wantOutcome: CallerRejected,
			wantMessage: "This command can only be used by the console",
		},
		{
			name: "players only rejects console",
			block: &Block{
				Signature: "command /home",
				Entries:   map[string]string{"executable by": "players"},
				Trigger:   []string{`record "home"`},
			},
			sender:      func(h *harness) host.Sender { return h.world.Console() },
			wantOutcome: CallerRejected,
			wantMessage: "This command can only be used by players",
		},
		{
			name: "permission denied with default message",
			block: &Block{
				Signature: "command /fly",
				Entries:   map[string]string{"permission": "fly.use"},
				Trigger:   []string{`record "flying"`},
			},
			wantOutcome: PermissionDenied,
			wantMessage: "You don't have the required permission to use this command",
		},
		{
			name: "permission denied with custom message",
			block: &Block{
				Signature: "command /fly",
				Entries:   map[string]string{"permission": "fly.use", "permission message": "No wings for you"},
				Trigger:   []string{`record "flying"`},
			},
			wantOutcome: PermissionDenied,
			wantMessage: "No wings for you",
		},
		{
			name: "permission granted",
			block: &Block{
				Signature: "command /fly",
				Entries:   map[string]string{"permission": "fly.use"},
				Trigger:   []string{`record "flying"`},
			},
			sender:      func(h *harness) host.Sender { h.steve.Permissions["fly.use"] = true; return h.steve },
			wantOutcome: Complete,
			wantRuns:    []string{"flying"},
		},
		{
			name: "fault is caught",
			block: &Block{
				Signature: "command /boom",
				Trigger:   []string{`record "before"`, "explode", `record "after"`},
			},
			wantOutcome: Fault,
			wantRuns:    []string{"before"},
			wantMessage: "An internal error occurred while attempting to perform this command",
		},
		{
			name: "plural argument",
			block: &Block{
				Signature: "command /sum <numbers: integers>",
				Trigger:   []string{`record "%arg%"`},
			},
			rest:        "1, 2 and 3",
			wantOutcome: Complete,
			wantRuns:    []string{"1, 2 and 3"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			cmd := h.compile(t, tc.block)
			var sender host.Sender = h.steve
			if tc.sender != nil {
				sender = tc.sender(h)
			}
			if got := cmd.Execute(sender, cmd.Label, tc.rest); got != tc.wantOutcome {
				t.Errorf("got %v, want %v", got, tc.wantOutcome)
			}
			if diff := cmp.Diff(tc.wantRuns, h.runs); diff != "" {
				t.Errorf("runs -want +got:\n%s", diff)
			}
			if tc.wantMessage != "" {
				inbox := h.steve.Received
				if sender == h.world.Console() {
					inbox = h.console().Received
				}
				if !inbox(tc.wantMessage) {
					t.Errorf("sender didn't get %q", tc.wantMessage)
				}
			}
		})
	}
}

func TestExecuteLogsFaults(t *testing.T) {
	h := newHarness(t)
	cmd := h.compile(t, &Block{
		Signature: "command /boom [<text>]",
		Trigger:   []string{"explode"},
	})
	if got := cmd.Execute(h.steve, "boom", "now"); got != Fault {
		t.Fatalf("got %v, want %v", got, Fault)
	}
	entry := h.hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("got %+v, want an error entry", entry)
	}
	if entry.Data["command"] != "/boom now" || entry.Data["sender"] != "Steve" {
		t.Errorf("got fields %v", entry.Data)
	}
	if entry.Data["uuid"] != h.steve.UUID().String() {
		t.Errorf("got uuid %v, want %v", entry.Data["uuid"], h.steve.UUID())
	}
	if stack, _ := entry.Data["stack"].(string); stack == "" {
		t.Errorf("no stack logged")
	}
}

func TestExecuteRecoversBindFaults(t *testing.T) {
	h := newHarness(t)
	cmd := h.compile(t, &Block{
		Signature: "command /risky <v: volatile>",
		Trigger:   []string{`record "ran"`},
	})
	if got := cmd.Execute(h.steve, "risky", "1"); got != Fault {
		t.Fatalf("got %v, want %v", got, Fault)
	}
	if len(h.runs) != 0 {
		t.Errorf("trigger ran: %v", h.runs)
	}
	if !h.steve.Received("An internal error occurred") {
		t.Errorf("got %q, want an internal error message", h.steve.Messages())
	}
	entry := h.hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel || entry.Data["command"] != "/risky 1" {
		t.Errorf("got %+v, want an error entry", entry)
	}
}

func TestExecuteQuietUnlessVerbose(t *testing.T) {
	h := newHarness(t)
	cmd := h.compile(t, tpBlock())
	cmd.Execute(h.steve, "tp", "Notch")
	if n := len(h.hook.AllEntries()); n != 0 {
		t.Errorf("got %v log entries, want none", n)
	}
	h.env.Verbose = true
	cmd.Execute(h.steve, "tp", "Notch")
	if entry := h.hook.LastEntry(); entry == nil || entry.Level != logrus.DebugLevel {
		t.Errorf("got %+v, want a debug entry", entry)
	}
	h.hook.Reset()
	cmd.Execute(h.steve, "tp", "Bob")
	if n := len(h.hook.AllEntries()); n != 2 {
		t.Errorf("got %v timing entries, want 2", n)
	}
}

func TestSendHelp(t *testing.T) {
	h := newHarness(t)
	cmd := h.compile(t, &Block{
		Signature: "command /tp <target: player> [<reason: string>]",
		Entries:   map[string]string{"description": "Teleports you to someone"},
		Trigger:   []string{`record "tp"`},
	})
	cmd.SendHelp(h.steve)
	if !h.steve.Received("Teleports you to someone") {
		t.Errorf("no description in %v", h.steve.Messages())
	}
	if !h.steve.Received(": /tp <player> [<text>]") {
		t.Errorf("no usage in %v", h.steve.Messages())
	}
	if len(h.runs) != 0 {
		t.Errorf("help ran the trigger")
	}
}

func TestOutcome(t *testing.T) {
	for _, o := range []Outcome{CallerRejected, PermissionDenied, NoMatch, Fault} {
		if !o.Failed() {
			t.Errorf("%v should be a failure", o)
		}
	}
	if Complete.Failed() {
		t.Errorf("complete is not a failure")
	}
}
