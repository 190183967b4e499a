package server

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/buildkite/shellwords"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/rodaine/table"
	"github.com/zond/juicecmd"
	"github.com/zond/juicecmd/command"
	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/locale"
	"github.com/zond/juicecmd/script"

	goccy "github.com/goccy/go-json"
)

const (
	AdminPermission = "juicecmd.admin"
	// Namespace prefixes the extra alias every script command gets.
	Namespace = "juicecmd"
)

var (
	warningStyle = color.New(color.FgYellow)
	failureStyle = color.New(color.FgRed)
)

type adminCommand struct {
	names map[string]bool
	usage string
	f     func(s *Server, sender host.Sender, args []string) error
}

type adminCommands []adminCommand

func (c adminCommands) attempt(s *Server, sender host.Sender, name string, line string) (bool, error) {
	for _, cmd := range c {
		if cmd.names[name] {
			args, err := shellwords.SplitPosix(line)
			if err != nil {
				sender.SendMessage(failureStyle.Sprint(err.Error()))
				return true, nil
			}
			if err := cmd.f(s, sender, args[1:]); err != nil {
				return true, juicecmd.WithStack(err)
			}
			return true, nil
		}
	}
	return false, nil
}

// reserves reports whether a command name, without the leading slash, is
// taken by an admin command.
func (c adminCommands) reserves(name string) bool {
	for _, cmd := range c {
		if cmd.names["/"+name] {
			return true
		}
	}
	return false
}

func m(s ...string) map[string]bool {
	res := map[string]bool{}
	for _, p := range s {
		res[p] = true
	}
	return res
}

// render sends whatever f prints as one message.
func render(sender host.Sender, f func(w io.Writer)) {
	buf := &bytes.Buffer{}
	f(buf)
	sender.SendMessage(strings.TrimRight(buf.String(), "\n"))
}

func (s *Server) report(sender host.Sender, results ...*script.Result) {
	for _, result := range results {
		sender.SendMessage(fmt.Sprintf("%s: %d commands", result.Origin, len(result.Commands)))
		for _, w := range result.Warnings {
			sender.SendMessage(warningStyle.Sprint(w.String()))
		}
		for _, err := range result.Errors {
			sender.SendMessage(failureStyle.Sprint(err.Error()))
		}
	}
}

func newAdminCommands() adminCommands {
	return adminCommands{
		{
			names: m("/reload"),
			usage: "/reload [script]",
			f: func(s *Server, sender host.Sender, args []string) error {
				switch len(args) {
				case 0:
					results, err := s.loader.ReloadAll()
					if err != nil {
						return err
					}
					s.report(sender, results...)
					sender.SendMessage(fmt.Sprintf("Reloaded %d scripts", len(results)))
				case 1:
					result, err := s.loader.Reload(args[0])
					if errors.Is(err, os.ErrNotExist) || errors.Is(err, script.ErrInvalidName) || errors.Is(err, script.ErrInvalidScript) {
						sender.SendMessage(failureStyle.Sprint(err.Error()))
						return nil
					} else if err != nil {
						return err
					}
					s.report(sender, result)
				default:
					sender.SendMessage("usage: /reload [script]")
				}
				return nil
			},
		},
		{
			names: m("/unload"),
			usage: "/unload <script>",
			f: func(s *Server, sender host.Sender, args []string) error {
				if len(args) != 1 {
					sender.SendMessage("usage: /unload <script>")
					return nil
				}
				sender.SendMessage(fmt.Sprintf("Unloaded %d commands from %q", s.loader.Unload(args[0]), args[0]))
				return nil
			},
		},
		{
			names: m("/commands"),
			usage: "/commands",
			f: func(s *Server, sender host.Sender, args []string) error {
				cmds := s.registry.Commands()
				if len(cmds) == 0 {
					sender.SendMessage("No commands loaded.")
					return nil
				}
				render(sender, func(w io.Writer) {
					t := table.New("Label", "Aliases", "Usage", "Permission", "Executable by", "Origin").WithWriter(w)
					for _, cmd := range cmds {
						t.AddRow(cmd.Label, strings.Join(cmd.ActiveAliases(), ", "), cmd.Usage, cmd.Permission, cmd.ExecutableBy, cmd.Origin)
					}
					t.Print()
				})
				return nil
			},
		},
		{
			names: m("/describe"),
			usage: "/describe <command>",
			f: func(s *Server, sender host.Sender, args []string) error {
				if len(args) != 1 {
					sender.SendMessage("usage: /describe <command>")
					return nil
				}
				cmd, found := s.registry.Lookup(strings.TrimPrefix(args[0], "/"))
				if !found {
					sender.SendMessage(s.catalog.Loc("unknown_command", locale.Strmap{"Command": args[0]}))
					return nil
				}
				js, err := goccy.MarshalIndent(describe(cmd), "", "  ")
				if err != nil {
					return juicecmd.WithStack(err)
				}
				sender.SendMessage(string(js))
				return nil
			},
		},
		{
			names: m("/grant"),
			usage: "/grant <player> <permission>",
			f: func(s *Server, sender host.Sender, args []string) error {
				return s.changePermission(sender, "grant", args)
			},
		},
		{
			names: m("/revoke"),
			usage: "/revoke <player> <permission>",
			f: func(s *Server, sender host.Sender, args []string) error {
				return s.changePermission(sender, "revoke", args)
			},
		},
		{
			names: m("/unban"),
			usage: "/unban <player>",
			f: func(s *Server, sender host.Sender, args []string) error {
				if len(args) != 1 {
					sender.SendMessage("usage: /unban <player>")
					return nil
				}
				unbanned, err := s.store.Unban(s.ctx, args[0], sender.Name())
				if err != nil {
					return err
				}
				if unbanned {
					sender.SendMessage(fmt.Sprintf("Unbanned %q", args[0]))
				} else {
					sender.SendMessage(fmt.Sprintf("%q is not banned", args[0]))
				}
				return nil
			},
		},
		{
			names: m("/bans"),
			usage: "/bans",
			f: func(s *Server, sender host.Sender, args []string) error {
				bans, err := s.store.Bans(s.ctx)
				if err != nil {
					return err
				}
				if len(bans) == 0 {
					sender.SendMessage("Nobody is banned.")
					return nil
				}
				render(sender, func(w io.Writer) {
					t := table.New("Player", "Reason", "By", "At").WithWriter(w)
					for _, ban := range bans {
						t.AddRow(ban.Player, ban.Reason, ban.BannedBy, ban.At().Format(time.RFC3339))
					}
					t.Print()
				})
				return nil
			},
		},
		{
			names: m("/players"),
			usage: "/players",
			f: func(s *Server, sender host.Sender, args []string) error {
				players := s.world.Players()
				if len(players) == 0 {
					sender.SendMessage("Nobody is online.")
					return nil
				}
				render(sender, func(w io.Writer) {
					t := table.New("Name", "UUID").WithWriter(w)
					for _, p := range players {
						t.AddRow(p.Name(), p.UUID())
					}
					t.Print()
				})
				return nil
			},
		},
		{
			names: m("/audit"),
			usage: "/audit [event] [count]",
			f: func(s *Server, sender host.Sender, args []string) error {
				event, count := "", 20
				for _, arg := range args {
					if n, err := strconv.Atoi(arg); err == nil {
						count = n
					} else {
						event = strings.ToUpper(arg)
					}
				}
				entries, err := s.store.Audit(s.ctx, event, count)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					sender.SendMessage("No audit events recorded.")
					return nil
				}
				render(sender, func(w io.Writer) {
					t := table.New("Time", "Session", "Event", "Data").WithWriter(w)
					for _, e := range entries {
						t.AddRow(e.At().Format(time.RFC3339), e.SessionID, e.Event, e.Data)
					}
					t.Print()
				})
				return nil
			},
		},
	}
}

func (s *Server) changePermission(sender host.Sender, verb string, args []string) error {
	if len(args) != 2 {
		sender.SendMessage(fmt.Sprintf("usage: /%s <player> <permission>", verb))
		return nil
	}
	player, permission := args[0], args[1]
	var changed bool
	var err error
	if verb == "grant" {
		changed, err = s.store.Grant(s.ctx, player, permission, sender.Name())
	} else {
		changed, err = s.store.Revoke(s.ctx, player, permission, sender.Name())
	}
	if err != nil {
		return err
	}
	if p, found := s.world.online(player); found {
		if err := p.refreshPermissions(s.ctx); err != nil {
			return err
		}
	}
	switch {
	case !changed && verb == "grant":
		sender.SendMessage(fmt.Sprintf("%q already has %q", player, permission))
	case !changed:
		sender.SendMessage(fmt.Sprintf("%q doesn't have %q", player, permission))
	case verb == "grant":
		sender.SendMessage(fmt.Sprintf("Granted %q to %q", permission, player))
	default:
		sender.SendMessage(fmt.Sprintf("Revoked %q from %q", permission, player))
	}
	return nil
}

type description struct {
	Label        string   `json:"label"`
	Aliases      []string `json:"aliases,omitempty"`
	Usage        string   `json:"usage"`
	Description  string   `json:"description,omitempty"`
	Permission   string   `json:"permission,omitempty"`
	ExecutableBy string   `json:"executable_by"`
	Arguments    []string `json:"arguments,omitempty"`
	Trigger      []string `json:"trigger"`
	Origin       string   `json:"origin"`
}

func describe(cmd *command.ScriptCommand) description {
	result := description{
		Label:        cmd.Label,
		Aliases:      cmd.ActiveAliases(),
		Usage:        cmd.Usage,
		Description:  cmd.Description,
		Permission:   cmd.Permission,
		ExecutableBy: cmd.ExecutableBy.String(),
		Origin:       cmd.Origin,
		Trigger:      []string{},
	}
	for _, arg := range cmd.Arguments {
		result.Arguments = append(result.Arguments, arg.String())
	}
	if cmd.Trigger != nil {
		for _, item := range cmd.Trigger.Items {
			result.Trigger = append(result.Trigger, item.String())
		}
	}
	return result
}
