package server

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd"
	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/storage"
)

// Console is the operator typing at the server process.
type Console struct {
	mu  sync.Mutex
	out io.Writer
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

func (c *Console) SendMessage(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, message)
}

// Player is a logged in SSH session.
type Player struct {
	server      *Server
	user        *storage.User
	mu          sync.Mutex
	out         io.Writer
	disconnect  func() error
	permissions atomic.Pointer[storage.Permissions]
}

func (p *Player) Name() string {
	return p.user.Name
}

func (p *Player) Kind() host.Kind {
	return host.KindPlayer
}

func (p *Player) UUID() uuid.UUID {
	return p.user.PlayerUUID()
}

func (p *Player) HasPermission(permission string) bool {
	perms := p.permissions.Load()
	return perms != nil && perms.Allows(permission)
}

func (p *Player) SendMessage(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, message)
}

// refreshPermissions reloads what has been granted to the player.
func (p *Player) refreshPermissions(ctx context.Context) error {
	perms, err := p.server.store.Permissions(ctx, p.user.Name)
	if err != nil {
		return err
	}
	p.permissions.Store(&perms)
	return nil
}

func (p *Player) Kill() error {
	p.SendMessage("You died!")
	p.server.world.Broadcast(fmt.Sprintf("%s died", p.Name()))
	return nil
}

func (p *Player) Kick(reason string) error {
	if reason == "" {
		reason = "Kicked from the server"
	}
	p.SendMessage(reason)
	p.server.log.WithFields(logrus.Fields{
		"player": p.Name(),
		"reason": reason,
	}).Info("kicked")
	if p.disconnect == nil {
		return nil
	}
	return juicecmd.WithStack(p.disconnect())
}

func (p *Player) Ban(reason string, by string) error {
	if err := p.server.store.Ban(context.Background(), &storage.Ban{
		Player:   p.Name(),
		Reason:   reason,
		BannedBy: by,
	}); err != nil {
		return err
	}
	message := "You are banned from this server"
	if reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	return p.Kick(message)
}

// World is everyone connected to the server.
type World struct {
	console *Console
	players *juicecmd.SnapshotMap[string, *Player]
}

func newWorld(console *Console) *World {
	return &World{
		console: console,
		players: juicecmd.NewSnapshotMap[string, *Player](),
	}
}

// join adds p, returning false if a player with the same name is online.
func (w *World) join(p *Player) bool {
	key := strings.ToLower(p.Name())
	joined := false
	w.players.Update(func(m map[string]*Player) error {
		if _, found := m[key]; !found {
			m[key] = p
			joined = true
		}
		return nil
	})
	return joined
}

func (w *World) leave(p *Player) {
	key := strings.ToLower(p.Name())
	w.players.Update(func(m map[string]*Player) error {
		if m[key] == p {
			delete(m, key)
		}
		return nil
	})
}

func (w *World) online(name string) (*Player, bool) {
	return w.players.GetHas(strings.ToLower(name))
}

func (w *World) Player(name string) (host.Player, bool) {
	p, found := w.online(name)
	if !found {
		return nil, false
	}
	return p, true
}

func (w *World) Players() []host.Player {
	sorted := []*Player{}
	for p := range w.players.Values() {
		sorted = append(sorted, p)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name() < sorted[j].Name()
	})
	result := make([]host.Player, len(sorted))
	for i, p := range sorted {
		result[i] = p
	}
	return result
}

func (w *World) Broadcast(message string) {
	for _, p := range w.Players() {
		p.SendMessage(message)
	}
	w.console.SendMessage(message)
}

func (w *World) Console() host.Sender {
	return w.console
}
