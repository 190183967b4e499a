// Package command compiles script declared commands and runs them.
package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd"
	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/locale"
	"github.com/zond/juicecmd/pattern"
	"github.com/zond/juicecmd/trigger"
	"github.com/zond/juicecmd/types"
)

var (
	errorStyle = color.New(color.FgRed)
	usageStyle = color.New(color.FgYellow, color.Bold)
	echoStyle  = color.New(color.Faint)
)

// Env is what commands need from the process running them.
type Env struct {
	Catalog *locale.Catalog
	World   host.World
	Log     logrus.FieldLogger
	// Verbose logs timings and every rejected invocation.
	Verbose bool
}

func (e *Env) logger() logrus.FieldLogger {
	if e == nil || e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}

func (e *Env) catalog() *locale.Catalog {
	if e == nil || e.Catalog == nil {
		return locale.Must("en")
	}
	return e.Catalog
}

// Outcome is how an invocation ended.
type Outcome int

const (
	Complete Outcome = iota
	CallerRejected
	PermissionDenied
	NoMatch
	Fault
)

func (o Outcome) Failed() bool {
	return o != Complete
}

func (o Outcome) String() string {
	switch o {
	case Complete:
		return "complete"
	case CallerRejected:
		return "caller rejected"
	case PermissionDenied:
		return "permission denied"
	case NoMatch:
		return "no match"
	case Fault:
		return "fault"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// ScriptCommand is a command declared in a script.
type ScriptCommand struct {
	Label             string
	Aliases           []string
	Permission        string
	PermissionMessage string
	Usage             string
	Description       string
	ExecutableBy      host.Kind
	Arguments         []*Argument
	Pattern           *pattern.Pattern
	Trigger           *trigger.Trigger
	Origin            string

	env           *Env
	activeAliases []string
}

// ActiveAliases are the aliases the command is reachable by, as accepted
// when it was registered.
func (c *ScriptCommand) ActiveAliases() []string {
	return append([]string(nil), c.activeAliases...)
}

func (c *ScriptCommand) permissionMessage() string {
	if c.PermissionMessage != "" {
		return c.PermissionMessage
	}
	return c.environment().catalog().Loc("no_permission_message", nil)
}

func commandLine(label, rest string) string {
	return strings.TrimSpace("/" + label + " " + rest)
}

// Execute runs the command for sender. It never panics and never runs the
// trigger more than once.
func (c *ScriptCommand) Execute(sender host.Sender, label, rest string) Outcome {
	log := c.environment().logger().WithFields(logrus.Fields{
		"command": commandLine(label, rest),
		"sender":  sender.Name(),
	})
	catalog := c.environment().catalog()

	if sender.Kind()&c.ExecutableBy == 0 {
		if sender.Kind().Has(host.KindConsole) {
			sender.SendMessage(catalog.Loc("executable_by_players", nil))
		} else {
			sender.SendMessage(catalog.Loc("executable_by_console", nil))
		}
		if c.environment().Verbose {
			log.Debug("rejected caller")
		}
		return CallerRejected
	}

	if c.Permission != "" && !sender.HasPermission(c.Permission) {
		sender.SendMessage(c.permissionMessage())
		if c.environment().Verbose {
			log.WithField("permission", c.Permission).Debug("permission denied")
		}
		return PermissionDenied
	}

	fault := func(err error) Outcome {
		fields := logrus.Fields{"stack": juicecmd.StackTrace(err)}
		if p, ok := sender.(host.Player); ok {
			fields["uuid"] = p.UUID().String()
		}
		log.WithFields(fields).WithError(err).Error("command failed")
		sender.SendMessage(errorStyle.Sprint(catalog.Loc("internal_error", nil)))
		return Fault
	}

	var ctx *trigger.Context
	var diag *pattern.Diagnostic
	if err := juicecmd.Recover(func() error {
		ctx, diag = c.bind(sender, label, rest)
		return nil
	}); err != nil {
		return fault(err)
	}
	if diag != nil {
		if diag.Specific() {
			sender.SendMessage(errorStyle.Sprint(diag.Message))
		}
		sender.SendMessage(fmt.Sprintf("%s %s", catalog.Loc("correct_usage", nil), c.Usage))
		if c.environment().Verbose {
			log.WithField("diagnostic", diag.Error()).Debug("no match")
		}
		return NoMatch
	}

	start := time.Now()
	if c.environment().Verbose {
		log.Infof("# %s", commandLine(label, rest))
	}
	if err := juicecmd.Recover(func() error { return c.Trigger.Run(ctx) }); err != nil {
		return fault(err)
	}
	if c.environment().Verbose {
		log.Infof("# %s took %v", label, time.Since(start))
	}
	return Complete
}

func (c *ScriptCommand) bind(sender host.Sender, label, rest string) (*trigger.Context, *pattern.Diagnostic) {
	pc := &types.ParseContext{
		Mode:    types.ModeCommand,
		Sender:  sender,
		World:   c.environment().World,
		Catalog: c.environment().Catalog,
	}
	m, diag := c.Pattern.Match(rest, func(slot *pattern.Slot, text string) (any, error) {
		return c.Arguments[slot.Index].parse(text, pc)
	})
	if diag != nil {
		return nil, diag
	}
	ctx := &trigger.Context{
		Sender:    sender,
		World:     c.environment().World,
		Label:     label,
		Catalog:   c.environment().Catalog,
		Log:       c.environment().logger(),
		Arguments: make([][]any, len(c.Arguments)),
	}
	for idx, arg := range c.Arguments {
		if m.Has(idx) {
			ctx.Arguments[idx] = m.Values[idx].([]any)
		} else if arg.defaultExpr != nil {
			ctx.Arguments[idx] = arg.defaultExpr.Values(ctx)
		}
	}
	return ctx, nil
}

// SendHelp sends the description and usage without running anything.
func (c *ScriptCommand) SendHelp(sender host.Sender) {
	if c.Description != "" {
		sender.SendMessage(c.Description)
	}
	sender.SendMessage(fmt.Sprintf("%s: %s", usageStyle.Sprint(c.environment().catalog().Loc("help_usage", nil)), c.Usage))
}

func (c *ScriptCommand) environment() *Env {
	if c.env == nil {
		return &Env{}
	}
	return c.env
}
