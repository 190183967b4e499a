package command

import (
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd"
	"github.com/zond/juicecmd/host"
)

// Dispatcher routes raw command lines from the host to commands.
type Dispatcher struct {
	Registry *Registry
	// Effects handles lines starting with the effect token, if set.
	Effects           *EffectCommands
	Log               logrus.FieldLogger
	LogPlayerCommands bool
}

func (d *Dispatcher) logger() logrus.FieldLogger {
	if d.Log == nil {
		return logrus.StandardLogger()
	}
	return d.Log
}

// SplitLine splits a command line into its lower cased label and the rest.
func SplitLine(line string) (string, string) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	idx := strings.IndexFunc(line, unicode.IsSpace)
	if idx == -1 {
		return strings.ToLower(line), ""
	}
	return strings.ToLower(line[:idx]), strings.TrimLeftFunc(line[idx:], unicode.IsSpace)
}

// Handle reports whether line was handled. Unhandled lines are left for the
// host to complain about.
func (d *Dispatcher) Handle(sender host.Sender, line string) bool {
	if d.Effects != nil && d.Effects.Matches(line) {
		if d.Effects.Handle(sender, line) {
			return true
		}
	}

	label, rest := SplitLine(line)
	if label == "" {
		return false
	}
	if base, isHelp := strings.CutSuffix(label, "?"); isHelp {
		if cmd, found := d.Registry.Lookup(base); found {
			cmd.SendHelp(sender)
			return true
		}
	}
	cmd, found := d.Registry.Lookup(label)
	if !found {
		return false
	}
	if d.LogPlayerCommands {
		if p, ok := sender.(host.Player); ok {
			d.logger().Infof("%s [%s]: %s", p.Name(), p.UUID(), commandLine(label, rest))
		}
	}
	if err := juicecmd.Recover(func() error {
		cmd.Execute(sender, label, rest)
		return nil
	}); err != nil {
		d.logger().WithFields(logrus.Fields{
			"command": commandLine(label, rest),
			"sender":  sender.Name(),
			"stack":   juicecmd.StackTrace(err),
		}).WithError(err).Error("dispatching")
	}
	return true
}
