// Package effects contains the built in actions a trigger can run.
package effects

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/trigger"
	"github.com/zond/juicecmd/types"
)

var ErrNoWorld = errors.New("no world to act on")

// NewParser returns an action parser knowing every built in effect.
func NewParser(resolver *types.Resolver) *trigger.Parser {
	return Register(trigger.NewParser(resolver))
}

// Register adds the built in effects to p.
func Register(p *trigger.Parser) *trigger.Parser {
	return p.
		MustRegister("broadcast %strings%", newBroadcast).
		MustRegister("(send|message) %strings% [to %-players%]", newSend).
		MustRegister("kill %players%", newKill).
		MustRegister("kick %players% [(because [of]|due to) %-string%]", newKick).
		MustRegister("ban %players% [(because [of]|due to) %-string%]", newBan).
		MustRegister("log %strings%", newLog)
}

func stringsOf(ctx *trigger.Context, e trigger.Expr) []string {
	if e == nil {
		return nil
	}
	result := []string{}
	for _, v := range e.Values(ctx) {
		result = append(result, fmt.Sprint(v))
	}
	return result
}

func playersOf(ctx *trigger.Context, e trigger.Expr) []host.Player {
	if e == nil {
		return nil
	}
	result := []host.Player{}
	for _, v := range e.Values(ctx) {
		if p, ok := v.(host.Player); ok {
			result = append(result, p)
		}
	}
	return result
}

func reasonOf(ctx *trigger.Context, e trigger.Expr) string {
	if reasons := stringsOf(ctx, e); len(reasons) > 0 {
		return reasons[0]
	}
	return ""
}

type broadcast struct {
	messages trigger.Expr
}

func newBroadcast(exprs []trigger.Expr) (trigger.Effect, error) {
	return &broadcast{messages: exprs[0]}, nil
}

func (b *broadcast) Run(ctx *trigger.Context) error {
	if ctx.World == nil {
		return errors.WithStack(ErrNoWorld)
	}
	for _, msg := range stringsOf(ctx, b.messages) {
		ctx.World.Broadcast(msg)
	}
	return nil
}

func (b *broadcast) String() string {
	return fmt.Sprintf("broadcast %s", b.messages)
}

type send struct {
	messages   trigger.Expr
	recipients trigger.Expr
}

func newSend(exprs []trigger.Expr) (trigger.Effect, error) {
	return &send{messages: exprs[0], recipients: exprs[1]}, nil
}

func (s *send) Run(ctx *trigger.Context) error {
	messages := stringsOf(ctx, s.messages)
	if s.recipients == nil {
		if ctx.Sender != nil {
			for _, msg := range messages {
				ctx.Sender.SendMessage(msg)
			}
		}
		return nil
	}
	for _, p := range playersOf(ctx, s.recipients) {
		for _, msg := range messages {
			p.SendMessage(msg)
		}
	}
	return nil
}

func (s *send) String() string {
	if s.recipients == nil {
		return fmt.Sprintf("send %s", s.messages)
	}
	return fmt.Sprintf("send %s to %s", s.messages, s.recipients)
}

type kill struct {
	victims trigger.Expr
}

func newKill(exprs []trigger.Expr) (trigger.Effect, error) {
	return &kill{victims: exprs[0]}, nil
}

func (k *kill) Run(ctx *trigger.Context) error {
	for _, p := range playersOf(ctx, k.victims) {
		if err := p.Kill(); err != nil {
			return errors.Wrapf(err, "killing %s", p.Name())
		}
	}
	return nil
}

func (k *kill) String() string {
	return fmt.Sprintf("kill %s", k.victims)
}

type kick struct {
	players trigger.Expr
	reason  trigger.Expr
}

func newKick(exprs []trigger.Expr) (trigger.Effect, error) {
	return &kick{players: exprs[0], reason: exprs[1]}, nil
}

func (k *kick) Run(ctx *trigger.Context) error {
	reason := reasonOf(ctx, k.reason)
	for _, p := range playersOf(ctx, k.players) {
		if err := p.Kick(reason); err != nil {
			return errors.Wrapf(err, "kicking %s", p.Name())
		}
	}
	return nil
}

func (k *kick) String() string {
	if k.reason == nil {
		return fmt.Sprintf("kick %s", k.players)
	}
	return fmt.Sprintf("kick %s due to %s", k.players, k.reason)
}

type ban struct {
	players trigger.Expr
	reason  trigger.Expr
}

func newBan(exprs []trigger.Expr) (trigger.Effect, error) {
	return &ban{players: exprs[0], reason: exprs[1]}, nil
}

func (b *ban) Run(ctx *trigger.Context) error {
	reason := reasonOf(ctx, b.reason)
	by := ""
	if ctx.Sender != nil {
		by = ctx.Sender.Name()
	}
	for _, p := range playersOf(ctx, b.players) {
		if err := p.Ban(reason, by); err != nil {
			return errors.Wrapf(err, "banning %s", p.Name())
		}
	}
	return nil
}

func (b *ban) String() string {
	if b.reason == nil {
		return fmt.Sprintf("ban %s", b.players)
	}
	return fmt.Sprintf("ban %s due to %s", b.players, b.reason)
}

type log struct {
	messages trigger.Expr
}

func newLog(exprs []trigger.Expr) (trigger.Effect, error) {
	return &log{messages: exprs[0]}, nil
}

func (l *log) Run(ctx *trigger.Context) error {
	logger := ctx.Logger().WithField("command", ctx.Label)
	if ctx.Sender != nil {
		logger = logger.WithField("sender", ctx.Sender.Name())
	}
	for _, msg := range stringsOf(ctx, l.messages) {
		logger.Info(msg)
	}
	return nil
}

func (l *log) String() string {
	return fmt.Sprintf("log %s", l.messages)
}
