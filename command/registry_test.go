package command

import (
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func healBlock(origin string, aliases string) *Block {
	return &Block{
		Origin:    origin,
		Signature: "command /heal",
		Entries:   map[string]string{"aliases": aliases},
		Trigger:   []string{`record "heal"`},
	}
}

func TestRegisterConflict(t *testing.T) {
	h := newHarness(t)
	original := h.register(t, healBlock("a.yml", "/cure"))

	err := h.registry.Register(h.compile(t, healBlock("b.yml", "")))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v, want %v", err, ErrConflict)
	}
	conflict := &ConflictError{}
	if !errors.As(err, &conflict) || conflict.Name != "heal" || conflict.Origin != "a.yml" {
		t.Errorf("got %+v", conflict)
	}
	if got, found := h.registry.Lookup("heal"); !found || got != original {
		t.Errorf("original /heal was disturbed")
	}
	if got, found := h.registry.Lookup("cure"); !found || got != original {
		t.Errorf("original /cure was disturbed")
	}
}

func TestRegisterIsAtomic(t *testing.T) {
	h := newHarness(t)
	h.register(t, healBlock("a.yml", ""))
	cmd := h.compile(t, &Block{
		Origin:    "b.yml",
		Signature: "command /mend",
		Entries:   map[string]string{"aliases": "fix, heal"},
		Trigger:   []string{`record "mend"`},
	})
	if err := h.registry.Register(cmd); !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v, want %v", err, ErrConflict)
	}
	for _, name := range []string{"mend", "fix"} {
		if _, found := h.registry.Lookup(name); found {
			t.Errorf("%s was registered by a failed registration", name)
		}
	}
}

func TestRegisterSameOriginReplaces(t *testing.T) {
	h := newHarness(t)
	h.register(t, healBlock("a.yml", "cure"))
	replacement := h.register(t, healBlock("a.yml", "mend"))
	if got, _ := h.registry.Lookup("heal"); got != replacement {
		t.Errorf("heal not replaced")
	}
	if _, found := h.registry.Lookup("cure"); found {
		t.Errorf("old alias survived")
	}
	if n := len(h.registry.Commands()); n != 1 {
		t.Errorf("got %v commands, want 1", n)
	}
}

func TestRegisterCaseInsensitive(t *testing.T) {
	h := newHarness(t)
	cmd := h.register(t, healBlock("a.yml", "Cure"))
	for _, name := range []string{"HEAL", "heal", "cure", "CuRe"} {
		if got, found := h.registry.Lookup(name); !found || got != cmd {
			t.Errorf("%s not found", name)
		}
	}
}

func TestAliasAcceptor(t *testing.T) {
	h := newHarness(t)
	h.registry = NewRegistry(func(cmd *ScriptCommand, aliases []string) []string {
		aliases = slices.DeleteFunc(aliases, func(a string) bool { return a == "reload" })
		return append(aliases, "juicecmd:"+cmd.Label)
	})
	cmd := h.register(t, healBlock("a.yml", "cure, reload, heal"))
	if diff := cmp.Diff([]string{"cure", "juicecmd:heal"}, cmd.ActiveAliases()); diff != "" {
		t.Errorf("-want +got:\n%s", diff)
	}
	if _, found := h.registry.Lookup("reload"); found {
		t.Errorf("rejected alias registered")
	}
	if _, found := h.registry.Lookup("juicecmd:heal"); !found {
		t.Errorf("added alias not registered")
	}
}

func TestUnregister(t *testing.T) {
	h := newHarness(t)
	for _, b := range []*Block{
		{Origin: "a.yml", Signature: "command /one", Entries: map[string]string{"aliases": "uno, eins"}, Trigger: []string{`record "1"`}},
		{Origin: "a.yml", Signature: "command /two", Trigger: []string{`record "2"`}},
		{Origin: "b.yml", Signature: "command /three", Entries: map[string]string{"aliases": "drei"}, Trigger: []string{`record "3"`}},
	} {
		h.register(t, b)
	}
	if diff := cmp.Diff([]string{"a.yml", "b.yml"}, h.registry.Origins()); diff != "" {
		t.Errorf("-want +got:\n%s", diff)
	}
	if got := h.registry.Unregister("a.yml"); got != 2 {
		t.Errorf("got %v, want 2", got)
	}
	for _, name := range []string{"one", "uno", "eins", "two"} {
		if _, found := h.registry.Lookup(name); found {
			t.Errorf("%s survived", name)
		}
	}
	for _, name := range []string{"three", "drei"} {
		if _, found := h.registry.Lookup(name); !found {
			t.Errorf("%s was removed", name)
		}
	}
	if got := h.registry.Unregister("a.yml"); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
	h.registry.Clear()
	if n := len(h.registry.Commands()); n != 0 {
		t.Errorf("got %v commands after clear", n)
	}
}

func TestLookupDuringRegistration(t *testing.T) {
	h := newHarness(t)
	h.register(t, healBlock("a.yml", ""))
	wg := sync.WaitGroup{}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, found := h.registry.Lookup("heal"); !found {
					t.Errorf("heal missing")
					return
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		h.register(t, healBlock("a.yml", ""))
	}
	wg.Wait()
}
