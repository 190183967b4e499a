package server

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/zond/juicecmd"
	"github.com/zond/juicecmd/command"
)

const (
	EnvPrefix   = "JUICECMD_"
	DotEnvFile  = ".env"
	scriptsName = "scripts"
	logName     = "juicecmd.log"
)

// Config is read from defaults, then a .env file in Dir, then the process
// environment (all prefixed with EnvPrefix), then command line flags.
type Config struct {
	SSHAddr              string `env:"SSH_ADDR"`
	Dir                  string `env:"DIR"`
	ScriptsDir           string `env:"SCRIPTS_DIR"`
	Language             string `env:"LANGUAGE"`
	EnableEffectCommands bool   `env:"EFFECT_COMMANDS"`
	EffectCommandToken   string `env:"EFFECT_COMMAND_TOKEN"`
	LogPlayerCommands    bool   `env:"LOG_PLAYER_COMMANDS"`
	Verbose              bool   `env:"VERBOSE"`
	LogFile              string `env:"LOG_FILE"`
	LogMaxSizeMB         int    `env:"LOG_MAX_SIZE_MB"`
	Console              bool   `env:"CONSOLE"`
}

func DefaultDir() string {
	return filepath.Join(os.Getenv("HOME"), ".juicecmd")
}

func DefaultConfig() *Config {
	return &Config{
		SSHAddr:            "127.0.0.1:15000",
		Dir:                DefaultDir(),
		EffectCommandToken: command.DefaultEffectToken,
		LogPlayerCommands:  true,
		LogMaxSizeMB:       10,
		Console:            true,
	}
}

// RegisterFlags binds f to the fields of c.
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.SSHAddr, "ssh", c.SSHAddr, "Where to listen to SSH connections.")
	f.StringVar(&c.Dir, "dir", c.Dir, "Where to save database and settings.")
	f.StringVar(&c.ScriptsDir, "scripts", c.ScriptsDir, "Where to load command scripts from. Defaults to <dir>/scripts.")
	f.StringVar(&c.Language, "language", c.Language, "Language of messages. Defaults to the language of the system.")
	f.BoolVar(&c.EnableEffectCommands, "effect_commands", c.EnableEffectCommands, "Whether lines starting with the effect token run a single effect.")
	f.StringVar(&c.EffectCommandToken, "effect_token", c.EffectCommandToken, "What effect command lines start with.")
	f.BoolVar(&c.LogPlayerCommands, "log_player_commands", c.LogPlayerCommands, "Whether to log every command players run.")
	f.BoolVar(&c.Verbose, "verbose", c.Verbose, "Whether to log timings and rejected commands.")
	f.StringVar(&c.LogFile, "log", c.LogFile, "Log file, rotated by size. Defaults to <dir>/juicecmd.log.")
	f.IntVar(&c.LogMaxSizeMB, "log_max_size", c.LogMaxSizeMB, "Size in megabytes a log file may reach before rotation.")
	f.BoolVar(&c.Console, "console", c.Console, "Whether to read console commands from stdin.")
}

// Override sets every field whose flag was given on the command line of f.
func (c *Config) Override(f *flag.FlagSet) error {
	own := flag.NewFlagSet("override", flag.ContinueOnError)
	c.RegisterFlags(own)
	var err error
	f.Visit(func(fl *flag.Flag) {
		if own.Lookup(fl.Name) == nil || err != nil {
			return
		}
		err = own.Set(fl.Name, fl.Value.String())
	})
	return juicecmd.WithStack(err)
}

// LoadConfig reads the configuration for dir. An empty dir is taken from
// the environment, falling back to DefaultDir.
func LoadConfig(dir string) (*Config, error) {
	environment := env.ToMap(os.Environ())
	if dir == "" {
		dir = environment[EnvPrefix+"DIR"]
	}
	if dir == "" {
		dir = DefaultDir()
	}
	merged, err := godotenv.Read(filepath.Join(dir, DotEnvFile))
	if errors.Is(err, os.ErrNotExist) {
		merged = map[string]string{}
	} else if err != nil {
		return nil, juicecmd.WithStack(err)
	}
	for k, v := range environment {
		merged[k] = v
	}
	config := DefaultConfig()
	if err := env.ParseWithOptions(config, env.Options{
		Prefix:      EnvPrefix,
		Environment: merged,
	}); err != nil {
		return nil, juicecmd.WithStack(err)
	}
	config.Dir = dir
	return config, nil
}

func (c *Config) scriptsDir() string {
	if c.ScriptsDir != "" {
		return c.ScriptsDir
	}
	return filepath.Join(c.Dir, scriptsName)
}

func (c *Config) logFile() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.Dir, logName)
}
