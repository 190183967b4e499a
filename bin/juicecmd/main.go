package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd"
	"github.com/zond/juicecmd/server"
	"github.com/zond/juicecmd/storage"

	goccy "github.com/goccy/go-json"
)

// loadConfig reads the configuration for the directory given with -dir, if
// any, and lets the flags set on f override it.
func loadConfig(f *flag.FlagSet) (*server.Config, error) {
	dir := ""
	f.Visit(func(fl *flag.Flag) {
		if fl.Name == "dir" {
			dir = fl.Value.String()
		}
	})
	config, err := server.LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	if err := config.Override(f); err != nil {
		return nil, err
	}
	return config, nil
}

type serveCmd struct{}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the SSH server" }
func (c *serveCmd) Usage() string {
	return c.Name() + ": " + c.Synopsis() + "\n"
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	server.DefaultConfig().RegisterFlags(f)
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	config, err := loadConfig(f)
	if err != nil {
		logrus.Error(err)
		return subcommands.ExitFailure
	}
	log, closer, err := server.NewLogger(config)
	if err != nil {
		logrus.Error(err)
		return subcommands.ExitFailure
	}
	defer closer.Close()
	srv, err := server.New(ctx, config, log, os.Stdout)
	if err != nil {
		log.WithField("stack", juicecmd.StackTrace(err)).Error(err)
		return subcommands.ExitFailure
	}
	defer srv.Close()
	if err := srv.Start(ctx); err != nil {
		log.WithField("stack", juicecmd.StackTrace(err)).Error(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type checkCmd struct{}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "compile every script and list the commands or the errors" }
func (c *checkCmd) Usage() string {
	return c.Name() + ": " + c.Synopsis() + "\n"
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {
	server.DefaultConfig().RegisterFlags(f)
}

func (c *checkCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	config, err := loadConfig(f)
	if err != nil {
		logrus.Error(err)
		return subcommands.ExitFailure
	}
	errs, err := server.Check(config, os.Stdout)
	if err != nil {
		logrus.Error(err)
		return subcommands.ExitFailure
	}
	if errs > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type dumpCmd struct {
	dir     string
	data    string
	restore bool
}

func (c *dumpCmd) Name() string {
	if c.restore {
		return "restore"
	}
	return "backup"
}

func (c *dumpCmd) Synopsis() string {
	if c.restore {
		return "replace users, permissions and bans with the contents of a JSON file"
	}
	return "write users, permissions and bans to a JSON file"
}

func (c *dumpCmd) Usage() string {
	return c.Name() + ": " + c.Synopsis() + "\n"
}

func (c *dumpCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", server.DefaultDir(), "Where the database is.")
	f.StringVar(&c.data, "data", "", "Path of the JSON file.")
}

func (c *dumpCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.data == "" {
		fmt.Fprint(os.Stderr, c.Usage())
		f.PrintDefaults()
		return subcommands.ExitUsageError
	}
	var err error
	if c.restore {
		err = restore(ctx, c.dir, c.data)
	} else {
		err = backup(ctx, c.dir, c.data)
	}
	if err != nil {
		logrus.Error(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func backup(ctx context.Context, dir, path string) error {
	store, err := storage.Open(ctx, dir)
	if err != nil {
		return err
	}
	defer store.Close()
	dump, err := store.Dump(ctx)
	if err != nil {
		return err
	}
	js, err := goccy.MarshalIndent(dump, "", "  ")
	if err != nil {
		return juicecmd.WithStack(err)
	}
	return juicecmd.WithStack(os.WriteFile(path, js, 0600))
}

func restore(ctx context.Context, dir, path string) error {
	js, err := os.ReadFile(path)
	if err != nil {
		return juicecmd.WithStack(err)
	}
	dump := &storage.Dump{}
	if err := goccy.Unmarshal(js, dump); err != nil {
		return juicecmd.WithStack(err)
	}
	store, err := storage.Open(ctx, dir)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Restore(ctx, dump)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&serveCmd{}, "")
	subcommands.Register(&checkCmd{}, "")
	subcommands.Register(&dumpCmd{}, "storage")
	subcommands.Register(&dumpCmd{restore: true}, "storage")

	flag.Parse()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	os.Exit(int(subcommands.Execute(ctx)))
}
