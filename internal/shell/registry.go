package shell

import (
	"context"
	"errors"
	"sort"
)

// errExit is returned by the exit command to end the loop.
var errExit = errors.New("exit")

// command is a shell command.
type command struct {
	name        string
	usage       string
	description string
	aliases     []string
	// complete returns argument completions, if any.
	complete func() []string
	run      func(ctx context.Context, args []string) error
}

// registry resolves command names and aliases.
type registry struct {
	commands map[string]*command
	aliases  map[string]string
}

func newRegistry() *registry {
	return &registry{
		commands: make(map[string]*command),
		aliases:  make(map[string]string),
	}
}

func (r *registry) register(cmd *command) {
	r.commands[cmd.name] = cmd
	for _, alias := range cmd.aliases {
		r.aliases[alias] = cmd.name
	}
}

func (r *registry) get(name string) (*command, bool) {
	if cmd, ok := r.commands[name]; ok {
		return cmd, true
	}
	if primary, ok := r.aliases[name]; ok {
		cmd, ok := r.commands[primary]
		return cmd, ok
	}
	return nil, false
}

// list returns the commands ordered by name.
func (r *registry) list() []*command {
	out := make([]*command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
