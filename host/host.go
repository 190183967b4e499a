// Package host describes the narrow capabilities the command system needs
// from the process hosting it: who is talking, what they may do, and the
// world they act on.
package host

import (
	"strings"

	"github.com/google/uuid"
)

// Kind is a bitset of caller kinds.
type Kind int

const (
	KindPlayer Kind = 1 << iota
	KindConsole

	KindNone Kind = 0
	KindAll       = KindPlayer | KindConsole
)

func (k Kind) Has(other Kind) bool {
	return k&other != 0
}

func (k Kind) String() string {
	parts := []string{}
	if k.Has(KindPlayer) {
		parts = append(parts, "players")
	}
	if k.Has(KindConsole) {
		parts = append(parts, "console")
	}
	if len(parts) == 0 {
		return "nobody"
	}
	return strings.Join(parts, ",")
}

// Sender is anybody that can type a command line and receive messages back.
type Sender interface {
	Name() string
	Kind() Kind
	HasPermission(permission string) bool
	SendMessage(message string)
}

// Player is a Sender with an identity in the world.
type Player interface {
	Sender
	UUID() uuid.UUID
	Kill() error
	Kick(reason string) error
	Ban(reason string, by string) error
}

// World is the host's view of everyone currently present.
type World interface {
	Player(name string) (Player, bool)
	Players() []Player
	Broadcast(message string)
	Console() Sender
}

// OfflineUUID returns the stable name based UUID used for players that were
// not assigned one by an authentication service.
func OfflineUUID(name string) uuid.UUID {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte("OfflinePlayer:"+name))
}

// IsConsole reports whether s is the console.
func IsConsole(s Sender) bool {
	return s != nil && s.Kind().Has(KindConsole)
}
