package server

import (
	"fmt"
	"io"
	"strings"

	"github.com/rodaine/table"
	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd/command"
	"github.com/zond/juicecmd/effects"
	"github.com/zond/juicecmd/locale"
	"github.com/zond/juicecmd/script"
	"github.com/zond/juicecmd/types"
)

// Check compiles every script of config the way the server would, without
// opening the store or listening, and prints the commands and every problem
// to w. It returns the number of errors found.
func Check(config *Config, w io.Writer) (int, error) {
	catalog, err := locale.New(config.Language)
	if err != nil {
		return 0, err
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	resolver := types.Builtin()
	parser := effects.NewParser(resolver)
	registry := command.NewRegistry(aliasAcceptor(newAdminCommands(), log))
	loader := &script.Loader{
		Dir: config.scriptsDir(),
		Compiler: &command.Compiler{
			Resolver: resolver,
			Effects:  parser,
			Env: &command.Env{
				Catalog: catalog,
				Log:     log,
			},
		},
		Registry: registry,
		Log:      log,
	}
	results, err := loader.LoadAll()
	if err != nil {
		return 0, err
	}
	if cmds := registry.Commands(); len(cmds) > 0 {
		t := table.New("Script", "Label", "Usage", "Aliases", "Permission").WithWriter(w)
		for _, cmd := range cmds {
			t.AddRow(cmd.Origin, cmd.Label, cmd.Usage, strings.Join(cmd.ActiveAliases(), ", "), cmd.Permission)
		}
		t.Print()
	}
	errs := 0
	for _, result := range results {
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warning)
		}
		for _, err := range result.Errors {
			fmt.Fprintf(w, "error: %v\n", err)
			errs++
		}
	}
	fmt.Fprintf(w, "%d scripts, %d commands, %d errors\n", len(results), len(registry.Commands()), errs)
	return errs, nil
}
