// Package server hosts script commands over SSH: every session is a player
// whose lines are dispatched to the loaded commands, and the process's
// stdin is the console.
package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gliderlabs/ssh"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd"
	"github.com/zond/juicecmd/command"
	"github.com/zond/juicecmd/effects"
	"github.com/zond/juicecmd/host"
	"github.com/zond/juicecmd/locale"
	"github.com/zond/juicecmd/pemfile"
	"github.com/zond/juicecmd/script"
	"github.com/zond/juicecmd/storage"
	"github.com/zond/juicecmd/types"

	gossh "golang.org/x/crypto/ssh"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
)

type Server struct {
	ctx        context.Context
	config     *Config
	log        logrus.FieldLogger
	store      *storage.Store
	catalog    *locale.Catalog
	world      *World
	registry   *command.Registry
	dispatcher *command.Dispatcher
	loader     *script.Loader
	limiter    *loginLimiter
	admin      adminCommands
}

// New opens the store, loads every script and prepares the server. Console
// output goes to consoleOut.
func New(ctx context.Context, config *Config, log logrus.FieldLogger, consoleOut io.Writer) (*Server, error) {
	for _, dir := range []string{config.Dir, config.scriptsDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, juicecmd.WithStack(err)
		}
	}
	catalog, err := locale.New(config.Language)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, config.Dir)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ctx:     ctx,
		config:  config,
		log:     log,
		store:   store,
		catalog: catalog,
		world:   newWorld(&Console{out: consoleOut}),
		limiter: newLoginLimiter(),
	}
	s.admin = newAdminCommands()

	resolver := types.Builtin()
	parser := effects.NewParser(resolver)
	env := &command.Env{
		Catalog: catalog,
		World:   s.world,
		Log:     log,
		Verbose: config.Verbose,
	}
	s.registry = command.NewRegistry(aliasAcceptor(s.admin, log))
	s.dispatcher = &command.Dispatcher{
		Registry:          s.registry,
		Log:               log,
		LogPlayerCommands: config.LogPlayerCommands,
	}
	if config.EnableEffectCommands {
		s.dispatcher.Effects = &command.EffectCommands{
			Token:       config.EffectCommandToken,
			Effects:     parser,
			Env:         env,
			LogCommands: config.LogPlayerCommands,
		}
	}
	s.loader = &script.Loader{
		Dir: config.scriptsDir(),
		Compiler: &command.Compiler{
			Resolver: resolver,
			Effects:  parser,
			Env:      env,
		},
		Registry: s.registry,
		Log:      log,
	}
	if _, err := s.loader.LoadAll(); err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) Close() error {
	return s.store.Close()
}

func (s *Server) Registry() *command.Registry {
	return s.registry
}

func (s *Server) Console() *Console {
	return s.world.console
}

// aliasAcceptor keeps admin command names for the admin commands and adds
// the namespaced alias.
func aliasAcceptor(admin adminCommands, log logrus.FieldLogger) command.AliasAcceptor {
	return func(cmd *command.ScriptCommand, aliases []string) []string {
		log := log.WithFields(logrus.Fields{
			"script":  cmd.Origin,
			"command": cmd.Label,
		})
		if admin.reserves(cmd.Label) {
			log.Warnf("/%s is shadowed by the admin command, use /%s:%s", cmd.Label, Namespace, cmd.Label)
		}
		result := []string{}
		for _, alias := range aliases {
			if admin.reserves(alias) {
				log.Warnf("alias /%s is taken by an admin command", alias)
				continue
			}
			result = append(result, alias)
		}
		return append(result, fmt.Sprintf("%s:%s", Namespace, cmd.Label))
	}
}

// HandleLine runs one line typed by sender. Admin commands take precedence
// over script commands.
func (s *Server) HandleLine(sender host.Sender, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	words := whitespacePattern.Split(line, -1)
	name := "/" + strings.ToLower(strings.TrimPrefix(words[0], "/"))
	if host.IsConsole(sender) || sender.HasPermission(AdminPermission) {
		if found, err := s.admin.attempt(s, sender, name, line); err != nil {
			s.log.WithFields(logrus.Fields{
				"command": line,
				"sender":  sender.Name(),
				"stack":   juicecmd.StackTrace(err),
			}).WithError(err).Error("admin command failed")
			sender.SendMessage(failureStyle.Sprint(err.Error()))
			return
		} else if found {
			return
		}
	}
	if !s.dispatcher.Handle(sender, line) {
		sender.SendMessage(s.catalog.Loc("unknown_command", locale.Strmap{"Command": words[0]}))
	}
}

// RunConsole handles console lines read from in until it ends or ctx is
// done.
func (s *Server) RunConsole(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		s.HandleLine(s.world.console, scanner.Text())
	}
	return juicecmd.WithStack(scanner.Err())
}

func (s *Server) HandleSession(sess ssh.Session) {
	c := s.newConnection(sess.Context(), sess, sess.RemoteAddr().String(), sess.Close)
	if pty, winCh, isPTY := sess.Pty(); isPTY {
		c.term.SetSize(pty.Window.Width, pty.Window.Height)
		go func() {
			for ev := range winCh {
				c.term.SetSize(ev.Width, ev.Height)
			}
		}()
	}
	if err := c.Connect(); err != nil {
		if !errors.Is(err, io.EOF) {
			fmt.Fprintf(c.term, "InternalServerError: %v\n", err)
			c.log().WithField("stack", juicecmd.StackTrace(err)).WithError(err).Error("session failed")
		}
	}
}

// Start listens for SSH sessions, and reads the console from stdin if
// configured to, until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.SSHAddr)
	if err != nil {
		return juicecmd.WithStack(err)
	}
	if s.config.Console {
		go func() {
			if err := s.RunConsole(ctx, os.Stdin); err != nil {
				s.log.WithError(err).Error("console failed")
			}
		}()
	}
	return s.Serve(ctx, ln)
}

// Serve accepts SSH sessions on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	keyPath := filepath.Join(s.config.Dir, pemfile.HostKeyName)
	pemBytes, created, err := pemfile.EnsureHostKey(keyPath)
	if err != nil {
		ln.Close()
		return err
	}
	if created {
		s.log.Infof("generated host key in %q", keyPath)
	}
	signer, err := gossh.ParsePrivateKey(pemBytes)
	if err != nil {
		ln.Close()
		return juicecmd.WithStack(err)
	}
	srv := &ssh.Server{
		Handler: s.HandleSession,
	}
	srv.AddHostKey(signer)
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	s.log.Infof("listening on %q with public key %q", ln.Addr().String(), gossh.FingerprintSHA256(signer.PublicKey()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return juicecmd.WithStack(err)
	}
	return nil
}
