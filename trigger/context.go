// Package trigger holds the action lines a command runs, the expressions
// those actions take, and the syntax registry that parses them.
package trigger

import (
	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/locale"
)

// Context is the state of one invocation. It is created when arguments are
// bound and must not be kept after the trigger returns.
type Context struct {
	Sender  host.Sender
	World   host.World
	Label   string
	Catalog *locale.Catalog
	Log     logrus.FieldLogger
	// Arguments are indexed by argument index, nil for absent arguments.
	Arguments [][]any
}

func (c *Context) Logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

func (c *Context) Argument(index int) []any {
	if index < 0 || index >= len(c.Arguments) {
		return nil
	}
	return c.Arguments[index]
}
