package command

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd"
	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/locale"
	"github.com/zond/juicecmd/trigger"
	"github.com/zond/juicecmd/types"
)

const (
	EffectPermission   = "juicecmd.effectcommands"
	DefaultEffectToken = "!"
)

// EffectCommands runs single actions typed after a token, without any
// command being declared.
type EffectCommands struct {
	Token   string
	Effects *trigger.Parser
	Env     *Env
	// LogCommands logs effect commands run by players.
	LogCommands bool
}

func (e *EffectCommands) Matches(line string) bool {
	return e.Token != "" && strings.HasPrefix(strings.TrimSpace(line), e.Token)
}

// Handle returns false, doing nothing, if sender may not run effect
// commands.
func (e *EffectCommands) Handle(sender host.Sender, line string) bool {
	console := host.IsConsole(sender)
	if !console && !sender.HasPermission(EffectPermission) {
		return false
	}
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), e.Token))
	log := e.Env.logger().WithFields(logrus.Fields{
		"effect": text,
		"sender": sender.Name(),
	})
	catalog := e.Env.catalog()
	canonical := catalog.Canonical()

	if err := juicecmd.Recover(func() error {
		return e.run(sender, text, canonical, log)
	}); err != nil {
		log.WithField("stack", juicecmd.StackTrace(err)).WithError(err).Error("effect command failed")
		sender.SendMessage(errorStyle.Sprint(catalog.Loc("effect_internal_error", nil)))
	}
	return true
}

func (e *EffectCommands) run(sender host.Sender, text string, canonical *locale.Catalog, log logrus.FieldLogger) error {
	catalog := e.Env.catalog()
	scope := &trigger.Scope{
		Mode:    types.ModeCommand,
		Catalog: canonical,
		Sender:  sender,
		World:   e.Env.World,
	}
	effect, diag := e.Effects.Parse(text, scope)
	if diag != nil {
		errorIn := catalog.Loc("error_in", locale.Strmap{"Effect": text})
		if host.IsConsole(sender) {
			log.Error(errorIn)
		} else {
			sender.SendMessage(errorStyle.Sprint(errorIn))
		}
		if diag.Specific() {
			sender.SendMessage(errorStyle.Sprint(diag.Message))
		} else {
			sender.SendMessage(errorStyle.Sprint(catalog.Loc("no_information", nil)))
		}
		return nil
	}

	sender.SendMessage(echoStyle.Sprint(catalog.Loc("executing_effect", locale.Strmap{"Effect": text})))
	if e.LogCommands && !host.IsConsole(sender) {
		log.Infof("%s issued effect command: %s", sender.Name(), text)
	}
	ctx := &trigger.Context{
		Sender:  sender,
		World:   e.Env.World,
		Label:   "effect",
		Catalog: canonical,
		Log:     e.Env.logger(),
	}
	return juicecmd.WithStack(effect.Run(ctx))
}
