package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd"
	"github.com/zond/juicecmd/lang"
	"github.com/zond/juicecmd/storage"
	"golang.org/x/term"
)

var (
	ErrOperationAborted = fmt.Errorf("operation aborted")
)

// Connection is one SSH session, from login until it ends.
type Connection struct {
	server     *Server
	term       *term.Terminal
	remote     string
	ctx        context.Context
	disconnect func() error
	user       *storage.User
	player     *Player
}

func (s *Server) newConnection(ctx context.Context, rw io.ReadWriter, remote string, disconnect func() error) *Connection {
	return &Connection{
		server:     s,
		term:       term.NewTerminal(rw, "> "),
		remote:     remote,
		ctx:        storage.SetSessionID(ctx, storage.NewSessionID()),
		disconnect: disconnect,
	}
}

func (c *Connection) log() logrus.FieldLogger {
	return c.server.log.WithField("remote", c.remote)
}

func (c *Connection) SelectExec(options map[string]func() error) error {
	commandNames := make(sort.StringSlice, 0, len(options))
	for name := range options {
		commandNames = append(commandNames, name)
	}
	sort.Sort(commandNames)
	prompt := fmt.Sprintf("%s\n", lang.Enumerator{Pattern: "[%s]", Operator: "or"}.Do(commandNames...))
	for {
		fmt.Fprint(c.term, prompt)
		line, err := c.term.ReadLine()
		if err != nil {
			return juicecmd.WithStack(err)
		}
		if cmd, found := options[strings.TrimSpace(line)]; found {
			if err := cmd(); err != nil {
				return juicecmd.WithStack(err)
			}
			break
		}
	}
	return nil
}

func (c *Connection) SelectReturn(prompt string, options []string) (string, error) {
	for {
		fmt.Fprintf(c.term, "%s [%s]\n", prompt, strings.Join(options, "/"))
		line, err := c.term.ReadLine()
		if err != nil {
			return "", juicecmd.WithStack(err)
		}
		for _, option := range options {
			if strings.EqualFold(strings.TrimSpace(line), option) {
				return option, nil
			}
		}
	}
}

// Connect logs the user in, or creates a new user, and then processes
// command lines until the session ends.
func (c *Connection) Connect() error {
	fmt.Fprint(c.term, "Welcome!\n\n")
	sel := func() error {
		return c.SelectExec(map[string]func() error{
			"login user":  c.loginUser,
			"create user": c.createUser,
		})
	}
	var err error
	for err = sel(); errors.Is(err, ErrOperationAborted); err = sel() {
	}
	if err != nil {
		return juicecmd.WithStack(err)
	}
	if banned, err := c.banned(); err != nil || banned {
		return err
	}
	return c.Process()
}

func (c *Connection) banned() (bool, error) {
	ban, err := c.server.store.LoadBan(c.ctx, c.user.Name)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	message := "You are banned from this server"
	if ban.Reason != "" {
		message = fmt.Sprintf("%s: %s", message, ban.Reason)
	}
	fmt.Fprintln(c.term, message)
	c.server.store.AuditLog(c.ctx, "LOGIN_FAILED", storage.AuditLoginFailed{
		User:   storage.Ref(c.user.Id, c.user.Name),
		Remote: c.remote,
		Reason: "banned",
	})
	return true, nil
}

func (c *Connection) loginUser() error {
	fmt.Fprint(c.term, "** Login user **\n\n")
	for c.user == nil {
		fmt.Fprintln(c.term, "Enter username or [abort]:")
		username, err := c.term.ReadLine()
		if err != nil {
			return err
		}
		username = strings.TrimSpace(username)
		if username == "abort" {
			return juicecmd.WithStack(ErrOperationAborted)
		}

		c.server.limiter.waitIfNeeded(username, c.term)

		fmt.Fprint(c.term, "Enter password or [abort]:\n")
		password, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password == "abort" {
			return juicecmd.WithStack(ErrOperationAborted)
		}

		user, err := c.server.store.LoadUser(c.ctx, username)
		if errors.Is(err, os.ErrNotExist) {
			c.server.limiter.recordFailure(username)
			c.server.store.AuditLog(c.ctx, "LOGIN_FAILED", storage.AuditLoginFailed{
				User:   storage.AuditRef{Name: username},
				Remote: c.remote,
			})
			fmt.Fprintln(c.term, "Invalid credentials!")
			continue
		} else if err != nil {
			return juicecmd.WithStack(err)
		}

		if !storage.VerifyPassword(password, user.PasswordHash) {
			c.server.limiter.recordFailure(user.Name)
			c.server.store.AuditLog(c.ctx, "LOGIN_FAILED", storage.AuditLoginFailed{
				User:   storage.Ref(user.Id, user.Name),
				Remote: c.remote,
			})
			fmt.Fprintln(c.term, "Invalid credentials!")
		} else {
			c.server.limiter.clearFailure(user.Name)
			user.SetLastLogin(time.Now().UTC())
			if err := c.server.store.StoreUser(c.ctx, user, true, c.remote); err != nil {
				c.log().WithError(err).Warnf("failed to update last login for %s", user.Name)
			}
			c.user = user
		}
	}
	c.server.store.AuditLog(c.ctx, "USER_LOGIN", storage.AuditUserLogin{
		User:   storage.Ref(c.user.Id, c.user.Name),
		Remote: c.remote,
	})
	fmt.Fprintf(c.term, "Welcome back, %v!\n\n", c.user.Name)
	return nil
}

func (c *Connection) createUser() error {
	fmt.Fprint(c.term, "** Create user **\n\n")
	var user *storage.User
	for user == nil {
		fmt.Fprint(c.term, "Enter new username or [abort]:\n")
		username, err := c.term.ReadLine()
		if err != nil {
			return err
		}
		username = strings.TrimSpace(username)
		if username == "abort" {
			return juicecmd.WithStack(ErrOperationAborted)
		}
		if err := storage.ValidateName(username); err != nil {
			fmt.Fprintln(c.term, err.Error())
			continue
		}
		if _, err = c.server.store.LoadUser(c.ctx, username); errors.Is(err, os.ErrNotExist) {
			user = &storage.User{
				Name: username,
			}
		} else if err == nil {
			fmt.Fprintln(c.term, "Username already exists!")
		} else {
			return juicecmd.WithStack(err)
		}
	}
	for c.user == nil {
		fmt.Fprintln(c.term, "Enter new password:")
		password, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password == "abort" {
			fmt.Fprintln(c.term, "Password cannot be 'abort' (reserved keyword).")
			continue
		}
		fmt.Fprintln(c.term, "Repeat new password:")
		verification, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password != verification {
			fmt.Fprintln(c.term, "Passwords don't match!")
			continue
		}
		selection, err := c.SelectReturn(fmt.Sprintf("Create user %q with provided password?", user.Name), []string{"y", "n", "abort"})
		if err != nil {
			return err
		}
		switch selection {
		case "abort":
			return juicecmd.WithStack(ErrOperationAborted)
		case "y":
			hash, err := storage.HashPassword(password)
			if err != nil {
				return juicecmd.WithStack(err)
			}
			user.PasswordHash = hash
			c.user = user
		}
	}
	c.user.SetLastLogin(time.Now().UTC())
	if err := c.server.store.StoreUser(c.ctx, c.user, false, c.remote); errors.Is(err, os.ErrExist) {
		fmt.Fprintln(c.term, "Username already exists!")
		c.user = nil
		return juicecmd.WithStack(ErrOperationAborted)
	} else if err != nil {
		return juicecmd.WithStack(err)
	}
	c.server.store.AuditLog(c.ctx, "USER_LOGIN", storage.AuditUserLogin{
		User:   storage.Ref(c.user.Id, c.user.Name),
		Remote: c.remote,
	})
	fmt.Fprintf(c.term, "Welcome %s!\n\n", c.user.Name)
	return nil
}

// Process joins the world and hands every line typed to the server.
func (c *Connection) Process() error {
	if c.user == nil {
		return errors.New("can't process without user")
	}
	c.player = &Player{
		server:     c.server,
		user:       c.user,
		out:        c.term,
		disconnect: c.disconnect,
	}
	if err := c.player.refreshPermissions(c.ctx); err != nil {
		return err
	}
	if !c.server.world.join(c.player) {
		fmt.Fprintf(c.term, "%s is already connected.\n", c.user.Name)
		return nil
	}
	defer func() {
		c.server.world.leave(c.player)
		c.server.world.Broadcast(fmt.Sprintf("%s left", c.user.Name))
		c.server.store.AuditLog(c.ctx, "SESSION_END", storage.AuditSessionEnd{
			User: storage.Ref(c.user.Id, c.user.Name),
		})
	}()
	c.server.world.Broadcast(fmt.Sprintf("%s joined", c.user.Name))

	for {
		line, err := c.term.ReadLine()
		if err != nil {
			return juicecmd.WithStack(err)
		}
		c.server.HandleLine(c.player, line)
	}
}
