package command

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/zond/juicecmd/effects"
	"github.com/zond/juicecmd/host/hosttest"
	"github.com/zond/juicecmd/locale"
	"github.com/zond/juicecmd/trigger"
)

// record appends its rendered arguments to a run log, so tests can count
// trigger executions and see what was bound.
type record struct {
	values trigger.Expr
	runs   *[]string
}

func (r *record) Run(ctx *trigger.Context) error {
	parts := []string{}
	for _, v := range r.values.Values(ctx) {
		parts = append(parts, fmt.Sprint(v))
	}
	*r.runs = append(*r.runs, strings.Join(parts, "|"))
	return nil
}

func (r *record) String() string { return "record" }

type explode struct{}

func (explode) Run(*trigger.Context) error { panic("kaboom") }

func (explode) String() string { return "explode" }

type harness struct {
	world      *hosttest.World
	steve      *hosttest.Player
	bob        *hosttest.Player
	hook       *test.Hook
	env        *Env
	compiler   *Compiler
	registry   *Registry
	dispatcher *Dispatcher
	runs       []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		steve: hosttest.NewPlayer("Steve"),
		bob:   hosttest.NewPlayer("Bob"),
	}
	h.world = hosttest.NewWorld(h.steve, h.bob)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h.hook = hook
	h.env = &Env{
		Catalog: locale.Must("en"),
		World:   h.world,
		Log:     logger,
	}
	resolver := testResolver()
	parser := effects.NewParser(resolver).
		MustRegister("record %strings%", func(exprs []trigger.Expr) (trigger.Effect, error) {
			return &record{values: exprs[0], runs: &h.runs}, nil
		}).
		MustRegister("explode", func([]trigger.Expr) (trigger.Effect, error) {
			return explode{}, nil
		})
	h.compiler = &Compiler{
		Resolver: resolver,
		Effects:  parser,
		Env:      h.env,
	}
	h.registry = NewRegistry(nil)
	h.dispatcher = &Dispatcher{
		Registry: h.registry,
		Effects: &EffectCommands{
			Token:   DefaultEffectToken,
			Effects: parser,
			Env:     h.env,
		},
		Log: logger,
	}
	return h
}

func (h *harness) compile(t *testing.T, b *Block) *ScriptCommand {
	t.Helper()
	if b.Origin == "" {
		b.Origin = "test.yml"
	}
	cmd, _, err := h.compiler.Compile(b)
	if err != nil {
		t.Fatal(err)
	}
	return cmd
}

func (h *harness) register(t *testing.T, b *Block) *ScriptCommand {
	t.Helper()
	cmd := h.compile(t, b)
	if err := h.registry.Register(cmd); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func (h *harness) console() *hosttest.Console {
	return h.world.ConsoleInbox()
}
