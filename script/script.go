// Package script reads command declarations from YAML files and keeps the
// registry in step with them.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd/command"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidScript = errors.New("invalid script")
	ErrInvalidName   = errors.New("invalid script name")
)

// Extensions are the file extensions scripts are loaded from.
var Extensions = []string{".yml", ".yaml"}

// Error is a problem at a specific line of a script.
type Error struct {
	Origin string
	Line   int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Origin, e.Line, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func nodeString(n *yaml.Node) string {
	if n.Kind == yaml.ScalarNode {
		return n.Value
	}
	return ""
}

func triggerLines(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		result := []string{}
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, errors.Wrapf(ErrInvalidScript, "trigger line at %d is not text", item.Line)
			}
			result = append(result, item.Value)
		}
		return result, nil
	case yaml.ScalarNode:
		return strings.Split(n.Value, "\n"), nil
	}
	return nil, errors.Wrapf(ErrInvalidScript, "trigger at %d must be a list of actions", n.Line)
}

// Parse reads the command blocks of one script. Top level keys that don't
// start with "command" produce warnings.
func Parse(origin string, data []byte) ([]*command.Block, []command.Warning, error) {
	doc := &yaml.Node{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidScript, "%s: %v", origin, err)
	}
	blocks := []*command.Block{}
	warnings := []command.Warning{}
	if len(doc.Content) == 0 {
		return blocks, warnings, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil, errors.Wrapf(ErrInvalidScript, "%s: expected a mapping of commands", origin)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(key.Value)), "command") {
			warnings = append(warnings, command.Warning{
				Origin:  origin,
				Line:    key.Line,
				Message: fmt.Sprintf("unknown top level entry %q", key.Value),
			})
			continue
		}
		block := &command.Block{
			Origin:    origin,
			Line:      key.Line,
			Signature: key.Value,
			Entries:   map[string]string{},
		}
		if value.Kind != yaml.MappingNode {
			return nil, nil, &Error{Origin: origin, Line: value.Line, Err: errors.Wrapf(ErrInvalidScript, "%q must be a mapping", key.Value)}
		}
		for j := 0; j+1 < len(value.Content); j += 2 {
			entryKey := strings.ToLower(strings.TrimSpace(value.Content[j].Value))
			entryValue := value.Content[j+1]
			if entryKey == "trigger" {
				lines, err := triggerLines(entryValue)
				if err != nil {
					return nil, nil, &Error{Origin: origin, Line: entryValue.Line, Err: err}
				}
				block.Trigger = lines
				continue
			}
			block.Entries[entryKey] = nodeString(entryValue)
		}
		blocks = append(blocks, block)
	}
	return blocks, warnings, nil
}

// Result is what loading one script did.
type Result struct {
	Origin   string
	Commands []*command.ScriptCommand
	Warnings []command.Warning
	Errors   []error
}

// Loader loads scripts from Dir. Origins are script names relative to Dir.
type Loader struct {
	Dir      string
	Compiler *command.Compiler
	Registry *command.Registry
	Log      logrus.FieldLogger
}

func (l *Loader) logger() logrus.FieldLogger {
	if l.Log == nil {
		return logrus.StandardLogger()
	}
	return l.Log
}

func (l *Loader) path(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return filepath.Join(l.Dir, name), nil
}

// Scripts lists the script names in Dir, sorted.
func (l *Loader) Scripts() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	result := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, ext := range Extensions {
			if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
				result = append(result, entry.Name())
				break
			}
		}
	}
	sort.Strings(result)
	return result, nil
}

// Load compiles and registers every command in the named script. A command
// that fails doesn't stop the others.
func (l *Loader) Load(name string) (*Result, error) {
	path, err := l.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	log := l.logger().WithField("script", name)
	blocks, warnings, err := Parse(name, data)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Origin:   name,
		Warnings: warnings,
	}
	for _, block := range blocks {
		cmd, blockWarnings, err := l.Compiler.Compile(block)
		result.Warnings = append(result.Warnings, blockWarnings...)
		if err == nil {
			err = l.Registry.Register(cmd)
		}
		if err != nil {
			scriptErr := &Error{Origin: name, Line: block.Line, Err: err}
			result.Errors = append(result.Errors, scriptErr)
			log.WithField("line", block.Line).Error(err)
			continue
		}
		result.Commands = append(result.Commands, cmd)
	}
	for _, w := range result.Warnings {
		log.WithField("line", w.Line).Warn(w.Message)
	}
	log.Infof("loaded %d commands", len(result.Commands))
	return result, nil
}

// LoadAll loads every script in Dir.
func (l *Loader) LoadAll() ([]*Result, error) {
	names, err := l.Scripts()
	if err != nil {
		return nil, err
	}
	results := []*Result{}
	for _, name := range names {
		result, err := l.Load(name)
		if err != nil {
			l.logger().WithField("script", name).Error(err)
			results = append(results, &Result{Origin: name, Errors: []error{err}})
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// Unload removes every command the named script registered.
func (l *Loader) Unload(name string) int {
	count := l.Registry.Unregister(name)
	l.logger().WithField("script", name).Infof("unloaded %d commands", count)
	return count
}

// Reload unloads and loads the named script.
func (l *Loader) Reload(name string) (*Result, error) {
	if _, err := l.path(name); err != nil {
		return nil, err
	}
	l.Unload(name)
	return l.Load(name)
}

// ReloadAll unloads every script and loads all of Dir again.
func (l *Loader) ReloadAll() ([]*Result, error) {
	l.Registry.Clear()
	return l.LoadAll()
}
