package server

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/zond/juicecmd/storage"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

const testScript = `
"command /greet <target: player>":
  permission: greet.use
  aliases: reload, hello
  trigger:
    - send "hello there" to arg-1

"command /punish <target: player>":
  executable by: console
  trigger:
    - ban arg-1 due to "griefing"

command /commands:
  trigger:
    - send "script commands"
`

type fixture struct {
	server  *Server
	console *syncBuffer
	hook    *test.Hook
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	config := DefaultConfig()
	config.Dir = t.TempDir()
	config.Language = "en"
	config.Console = false
	if mutate != nil {
		mutate(config)
	}
	if err := os.MkdirAll(config.scriptsDir(), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(config.scriptsDir(), "test.yml"), []byte(testScript), 0600); err != nil {
		t.Fatal(err)
	}
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	console := &syncBuffer{}
	s, err := New(context.Background(), config, log, console)
	if err != nil {
		t.Fatal(err)
	}
	s.limiter.sleep = func(time.Duration) {}
	t.Cleanup(func() { s.Close() })
	return &fixture{server: s, console: console, hook: hook}
}

type online struct {
	*Player
	buf          *syncBuffer
	disconnected bool
}

func (f *fixture) join(t *testing.T, name string, permissions ...string) *online {
	t.Helper()
	ctx := context.Background()
	user := &storage.User{Name: name, PasswordHash: "unused"}
	if err := f.server.store.StoreUser(ctx, user, false, "test"); err != nil {
		t.Fatal(err)
	}
	for _, perm := range permissions {
		if _, err := f.server.store.Grant(ctx, name, perm, "test"); err != nil {
			t.Fatal(err)
		}
	}
	o := &online{buf: &syncBuffer{}}
	o.Player = &Player{
		server: f.server,
		user:   user,
		out:    o.buf,
		disconnect: func() error {
			o.disconnected = true
			return nil
		},
	}
	if err := o.refreshPermissions(ctx); err != nil {
		t.Fatal(err)
	}
	if !f.server.world.join(o.Player) {
		t.Fatalf("%s already online", name)
	}
	return o
}

func TestAcceptAliases(t *testing.T) {
	f := newFixture(t, nil)
	greet, found := f.server.registry.Lookup("hello")
	if !found || greet.Label != "greet" {
		t.Fatalf("got %v, %v", greet, found)
	}
	if _, found := f.server.registry.Lookup("reload"); found {
		t.Errorf("admin name accepted as alias")
	}
	if cmd, found := f.server.registry.Lookup("juicecmd:greet"); !found || cmd != greet {
		t.Errorf("namespaced alias missing")
	}
	if got := strings.Join(greet.ActiveAliases(), ","); got != "hello,juicecmd:greet" {
		t.Errorf("got %q", got)
	}
	found = false
	for _, entry := range f.hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "alias /reload is taken") {
			found = true
		}
	}
	if !found {
		t.Errorf("no warning about the reload alias")
	}
}

func TestHandleLine(t *testing.T) {
	f := newFixture(t, nil)
	steve := f.join(t, "Steve", "greet.*")
	alex := f.join(t, "Alex")

	f.server.HandleLine(steve, "/greet alex")
	if !strings.Contains(alex.buf.String(), "hello there") {
		t.Errorf("got %q", alex.buf.String())
	}

	f.server.HandleLine(alex, "/greet steve")
	if !strings.Contains(alex.buf.String(), "You don't have the required permission") {
		t.Errorf("got %q", alex.buf.String())
	}
	if strings.Contains(steve.buf.String(), "hello there") {
		t.Errorf("steve was greeted without permission")
	}

	f.server.HandleLine(alex, "/nothing here")
	if !strings.Contains(alex.buf.String(), `Unknown command: "/nothing"`) {
		t.Errorf("got %q", alex.buf.String())
	}

	alex.buf.Reset()
	f.server.HandleLine(alex, "/commands")
	if !strings.Contains(alex.buf.String(), "script commands") {
		t.Errorf("got %q, want the script command for non admins", alex.buf.String())
	}

	f.server.HandleLine(f.server.Console(), "/commands")
	if out := f.console.String(); !strings.Contains(out, "Label") || !strings.Contains(out, "juicecmd:greet") {
		t.Errorf("got %q, want the admin table", out)
	}
	f.console.Reset()
	f.server.HandleLine(f.server.Console(), "/juicecmd:commands")
	if !strings.Contains(f.console.String(), "script commands") {
		t.Errorf("got %q", f.console.String())
	}

	f.server.HandleLine(alex, "   ")
	f.server.HandleLine(steve, "/punish alex")
	if !strings.Contains(steve.buf.String(), "This command can only be used by the console") {
		t.Errorf("got %q", steve.buf.String())
	}
}

func TestBan(t *testing.T) {
	f := newFixture(t, nil)
	alex := f.join(t, "Alex")

	f.server.HandleLine(f.server.Console(), "/punish alex")
	if !alex.disconnected {
		t.Errorf("alex wasn't kicked")
	}
	if !strings.Contains(alex.buf.String(), "You are banned from this server: griefing") {
		t.Errorf("got %q", alex.buf.String())
	}
	ban, err := f.server.store.LoadBan(context.Background(), "alex")
	if err != nil {
		t.Fatal(err)
	}
	if ban.Reason != "griefing" || ban.BannedBy != "CONSOLE" {
		t.Errorf("got %+v", ban)
	}

	f.server.HandleLine(f.server.Console(), "/bans")
	if !strings.Contains(f.console.String(), "griefing") {
		t.Errorf("got %q", f.console.String())
	}
	f.server.HandleLine(f.server.Console(), "/unban Alex")
	if !strings.Contains(f.console.String(), `Unbanned "Alex"`) {
		t.Errorf("got %q", f.console.String())
	}
	if _, err := f.server.store.LoadBan(context.Background(), "alex"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want %v", err, os.ErrNotExist)
	}
}

func TestGrantRevoke(t *testing.T) {
	f := newFixture(t, nil)
	alex := f.join(t, "Alex")
	steve := f.join(t, "Steve", AdminPermission)

	f.server.HandleLine(alex, "/grant alex greet.use")
	if alex.HasPermission("greet.use") {
		t.Fatalf("non admin granted a permission")
	}

	f.server.HandleLine(steve, "/grant alex greet.use")
	if !alex.HasPermission("greet.use") {
		t.Errorf("grant didn't reach the online player")
	}
	if !strings.Contains(steve.buf.String(), `Granted "greet.use" to "alex"`) {
		t.Errorf("got %q", steve.buf.String())
	}
	f.server.HandleLine(steve, "/grant alex greet.use")
	if !strings.Contains(steve.buf.String(), `"alex" already has "greet.use"`) {
		t.Errorf("got %q", steve.buf.String())
	}
	f.server.HandleLine(alex, "/greet steve")
	if !strings.Contains(steve.buf.String(), "hello there") {
		t.Errorf("got %q", steve.buf.String())
	}

	f.server.HandleLine(f.server.Console(), "/revoke alex greet.use")
	if alex.HasPermission("greet.use") {
		t.Errorf("revoke didn't reach the online player")
	}
	f.server.HandleLine(f.server.Console(), "/revoke alex")
	if !strings.Contains(f.console.String(), "usage: /revoke <player> <permission>") {
		t.Errorf("got %q", f.console.String())
	}

	f.server.HandleLine(f.server.Console(), "/audit permission_grant")
	if out := f.console.String(); !strings.Contains(out, "PERMISSION_GRANT") || strings.Contains(out, "PERMISSION_REVOKE") {
		t.Errorf("got %q", out)
	}
}

func TestReloadUnload(t *testing.T) {
	f := newFixture(t, nil)
	console := f.server.Console()
	extra := "command /extra:\n  trigger:\n    - broadcast \"extra\"\n"
	if err := os.WriteFile(filepath.Join(f.server.config.scriptsDir(), "extra.yml"), []byte(extra), 0600); err != nil {
		t.Fatal(err)
	}

	f.server.HandleLine(console, "/reload extra.yml")
	if !strings.Contains(f.console.String(), "extra.yml: 1 commands") {
		t.Errorf("got %q", f.console.String())
	}
	f.server.HandleLine(console, "/extra")
	if !strings.Contains(f.console.String(), "extra") {
		t.Errorf("got %q", f.console.String())
	}

	f.server.HandleLine(console, "/unload extra.yml")
	if _, found := f.server.registry.Lookup("extra"); found {
		t.Errorf("extra survived unload")
	}
	if !strings.Contains(f.console.String(), `Unloaded 1 commands from "extra.yml"`) {
		t.Errorf("got %q", f.console.String())
	}

	f.console.Reset()
	f.server.HandleLine(console, "/reload ../outside.yml")
	if !strings.Contains(f.console.String(), "invalid script name") {
		t.Errorf("got %q", f.console.String())
	}
	f.server.HandleLine(console, "/reload missing.yml")
	if !strings.Contains(f.console.String(), "no such file") {
		t.Errorf("got %q", f.console.String())
	}

	f.server.HandleLine(console, "/reload")
	if !strings.Contains(f.console.String(), "Reloaded 2 scripts") {
		t.Errorf("got %q", f.console.String())
	}
	if _, found := f.server.registry.Lookup("extra"); !found {
		t.Errorf("extra not reloaded")
	}
}

func TestDescribe(t *testing.T) {
	f := newFixture(t, nil)
	f.server.HandleLine(f.server.Console(), "/describe /hello")
	out := f.console.String()
	for _, want := range []string{`"label": "greet"`, `"permission": "greet.use"`, `"send \"hello there\" to arg-1"`, `"origin": "test.yml"`} {
		if !strings.Contains(out, want) {
			t.Errorf("got %q, want it to contain %q", out, want)
		}
	}
	f.server.HandleLine(f.server.Console(), "/describe nope")
	if !strings.Contains(f.console.String(), `Unknown command: "nope"`) {
		t.Errorf("got %q", f.console.String())
	}
}

func TestEffectCommands(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.EnableEffectCommands = true
	})
	alex := f.join(t, "Alex")
	steve := f.join(t, "Steve", "juicecmd.effectcommands")

	f.server.HandleLine(steve, `!broadcast "boo"`)
	if !strings.Contains(alex.buf.String(), "boo") || !strings.Contains(steve.buf.String(), `executing 'broadcast "boo"'`) {
		t.Errorf("got %q and %q", alex.buf.String(), steve.buf.String())
	}

	f.server.HandleLine(alex, `!broadcast "boo"`)
	if !strings.Contains(alex.buf.String(), `Unknown command: "!broadcast"`) {
		t.Errorf("got %q", alex.buf.String())
	}

	f.server.HandleLine(f.server.Console(), "!kill alex")
	if !strings.Contains(alex.buf.String(), "You died!") {
		t.Errorf("got %q", alex.buf.String())
	}
}

func TestPlayers(t *testing.T) {
	f := newFixture(t, nil)
	f.server.HandleLine(f.server.Console(), "/players")
	if !strings.Contains(f.console.String(), "Nobody is online.") {
		t.Errorf("got %q", f.console.String())
	}
	steve := f.join(t, "Steve")
	f.join(t, "Alex")
	if dup := (&Player{server: f.server, user: &storage.User{Name: "steve"}}); f.server.world.join(dup) {
		t.Errorf("joined the same name twice")
	}
	f.server.HandleLine(f.server.Console(), "/players")
	out := f.console.String()
	if strings.Index(out, "Alex") > strings.Index(out, "Steve") || !strings.Contains(out, steve.UUID().String()) {
		t.Errorf("got %q", out)
	}
	f.server.world.leave(steve.Player)
	if _, found := f.server.world.Player("steve"); found {
		t.Errorf("steve still online")
	}
}

func TestUnknownCommandLocalized(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.Language = "de"
	})
	steve := f.join(t, "Steve")
	f.server.HandleLine(steve, "/nirgendwo hin")
	if !strings.Contains(steve.buf.String(), `Unbekannter Befehl: "/nirgendwo"`) {
		t.Errorf("got %q", steve.buf.String())
	}
	f.server.HandleLine(f.server.Console(), "/describe nirgendwo")
	if !strings.Contains(f.console.String(), `Unbekannter Befehl: "nirgendwo"`) {
		t.Errorf("got %q", f.console.String())
	}
}
