package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultCommand runs when no command is named.
const DefaultCommand = "list"

// ErrUnknownCommand is returned by Resolve for names nobody registered.
var ErrUnknownCommand = errors.New("unknown command")

// Registry holds registered commands.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]Command // name and aliases map to command
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		cmds: make(map[string]Command),
	}
}

// Register adds a command to the registry.
// Returns an error if the name or any alias is already registered.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{c.Name()}, c.Aliases()...)
	for i, name := range names {
		if _, exists := r.cmds[name]; exists {
			if i == 0 {
				return fmt.Errorf("command already registered: %s", name)
			}
			return fmt.Errorf("command alias already registered: %s", name)
		}
	}
	for _, name := range names {
		r.cmds[name] = c
	}
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.cmds[name]
	return cmd, ok
}

// Resolve picks the command for a full argument list and returns it with
// the arguments that follow its name. An empty list selects
// DefaultCommand. A leading flag is never taken as a command.
func (r *Registry) Resolve(args []string) (Command, []string, error) {
	if len(args) == 0 {
		cmd, ok := r.Find(DefaultCommand)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownCommand, DefaultCommand)
		}
		return cmd, nil, nil
	}
	if strings.HasPrefix(args[0], "-") {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	cmd, ok := r.Find(args[0])
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	return cmd, args[1:], nil
}

// All returns all unique commands sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]Command)
	for _, cmd := range r.cmds {
		seen[cmd.Name()] = cmd
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Command, len(names))
	for i, name := range names {
		result[i] = seen[name]
	}
	return result
}

// DefaultRegistry is the global command registry.
var DefaultRegistry = NewRegistry()

// Register adds a command to the default registry.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
