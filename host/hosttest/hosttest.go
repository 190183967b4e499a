// Package hosttest provides recording implementations of the host
// capabilities for use in tests.
package hosttest

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/zond/juicecmd/host"
)

// Inbox records messages sent to a sender.
type Inbox struct {
	mu       sync.Mutex
	messages []string
}

func (i *Inbox) SendMessage(message string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.messages = append(i.messages, message)
}

// Messages returns a copy of everything received so far.
func (i *Inbox) Messages() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.messages...)
}

// Received reports whether any message contains substr.
func (i *Inbox) Received(substr string) bool {
	for _, m := range i.Messages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func (i *Inbox) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.messages = nil
}

type Console struct {
	Inbox
}

func (c *Console) Name() string {
	return "CONSOLE"
}

func (c *Console) Kind() host.Kind {
	return host.KindConsole
}

func (c *Console) HasPermission(string) bool {
	return true
}

type Player struct {
	Inbox
	PlayerName  string
	Permissions map[string]bool

	mu     sync.Mutex
	Kills  int
	Kicks  []string
	Bans   []string
	Online bool
}

func NewPlayer(name string, permissions ...string) *Player {
	p := &Player{
		PlayerName:  name,
		Permissions: map[string]bool{},
		Online:      true,
	}
	for _, perm := range permissions {
		p.Permissions[perm] = true
	}
	return p
}

func (p *Player) Name() string {
	return p.PlayerName
}

func (p *Player) Kind() host.Kind {
	return host.KindPlayer
}

func (p *Player) HasPermission(permission string) bool {
	return p.Permissions[permission] || p.Permissions["*"]
}

func (p *Player) UUID() uuid.UUID {
	return host.OfflineUUID(p.PlayerName)
}

func (p *Player) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Kills++
	return nil
}

func (p *Player) Kick(reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Kicks = append(p.Kicks, reason)
	p.Online = false
	return nil
}

func (p *Player) Ban(reason string, by string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Bans = append(p.Bans, reason)
	p.Online = false
	return nil
}

// World is a fixed set of online players plus a console.
type World struct {
	Inbox
	console *Console

	mu      sync.Mutex
	players map[string]*Player
}

func NewWorld(players ...*Player) *World {
	w := &World{
		console: &Console{},
		players: map[string]*Player{},
	}
	for _, p := range players {
		w.Add(p)
	}
	return w
}

func (w *World) Add(p *Player) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.players[strings.ToLower(p.PlayerName)] = p
}

func (w *World) Player(name string) (host.Player, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, found := w.players[strings.ToLower(name)]
	if !found || !p.Online {
		return nil, false
	}
	return p, true
}

func (w *World) Players() []host.Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.players))
	for name, p := range w.players {
		if p.Online {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	result := make([]host.Player, 0, len(names))
	for _, name := range names {
		result = append(result, w.players[name])
	}
	return result
}

// Broadcast records the message on the world inbox and every online player.
func (w *World) Broadcast(message string) {
	w.SendMessage(message)
	for _, p := range w.Players() {
		p.SendMessage(message)
	}
}

func (w *World) Console() host.Sender {
	return w.console
}

// ConsoleInbox returns the console as its concrete type.
func (w *World) ConsoleInbox() *Console {
	return w.console
}
