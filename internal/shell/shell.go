package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"indiestream/internal/catalog"
	"indiestream/internal/gateway"
	"indiestream/internal/session"
	"indiestream/pkg/logging"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"
)

// commandTimeout bounds a single command.
const commandTimeout = 5 * time.Minute

// StateAuthRequired is shown in the prompt without a valid session.
const StateAuthRequired = "[AUTH REQUIRED]"

// Catalog is the part of the sync engine the shell uses.
type Catalog interface {
	ListEntries(ctx context.Context) error
	RefreshEntry(ctx context.Context, id string) error
	DeleteEntry(ctx context.Context, id string) error
	UploadEntry(ctx context.Context, req catalog.UploadRequest) (*catalog.Upload, error)
	Snapshot() []catalog.Entry
	Entry(id string) (catalog.Entry, bool)
}

// Account is the part of the session manager the shell uses.
type Account interface {
	IsAuthenticated() bool
	Snapshot() (session.Session, bool)
	Name() string
	Email() string
	Logout(ctx context.Context) error
}

// Deps are the collaborators of a Shell.
type Deps struct {
	Router  *gateway.Router
	Catalog Catalog
	Account Account
	// Out defaults to stdout.
	Out io.Writer
	// HistoryFile defaults to a file in the temp directory.
	HistoryFile string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Shell is the interactive console.
type Shell struct {
	deps     Deps
	out      io.Writer
	registry *registry
	rl       *readline.Instance

	mu      sync.RWMutex
	current gateway.Route
}

// New creates a Shell positioned on the landing route.
func New(deps Deps) *Shell {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.HistoryFile == "" {
		deps.HistoryFile = filepath.Join(os.TempDir(), ".indiestream_history")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Shell{
		deps:     deps,
		out:      deps.Out,
		registry: newRegistry(),
		current:  deps.Router.Resolve(gateway.RouteLanding),
	}
	s.registerCommands()
	return s
}

// Current returns the route the shell is on.
func (s *Shell) Current() gateway.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Shell) setCurrent(route gateway.Route) {
	s.mu.Lock()
	s.current = route
	s.mu.Unlock()
	s.updatePrompt()
}

// buildPrompt renders "indiestream[/route] [AUTH REQUIRED] > ".
func (s *Shell) buildPrompt() string {
	parts := []string{"indiestream"}
	if path := s.Current().Path; path != "" {
		parts[0] += "/" + path
	}
	if !s.deps.Account.IsAuthenticated() {
		parts = append(parts, StateAuthRequired)
	}
	parts = append(parts, ">")
	return strings.Join(parts, " ") + " "
}

func (s *Shell) updatePrompt() {
	if s.rl != nil {
		s.rl.SetPrompt(s.buildPrompt())
	}
}

// Execute parses and runs one line of input.
func (s *Shell) Execute(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	name := strings.ToLower(parts[0])
	if name == "?" {
		name = "help"
	}
	cmd, ok := s.registry.get(name)
	if !ok {
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", parts[0])
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return cmd.run(ctx, parts[1:])
}

// Run starts the read-eval-print loop. It returns nil on exit, EOF or
// context cancellation.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            s.buildPrompt(),
		HistoryFile:       s.deps.HistoryFile,
		AutoComplete:      s.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            s.out,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()
	s.rl = rl

	fmt.Fprintln(s.out, "IndieGameStream shell. Type 'help' for available commands. Use TAB for completion.")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				continue
			}
		} else if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if err := s.Execute(ctx, input); err != nil {
			if errors.Is(err, errExit) {
				fmt.Fprintln(s.out, "Goodbye!")
				return nil
			}
			logging.Debug("Shell", "Command %q failed: %v", input, err)
			fmt.Fprintf(s.out, "%s %v\n", text.FgRed.Sprint("Error:"), err)
		}
		s.updatePrompt()
	}
}

// completer builds tab completion from the registry and route table.
func (s *Shell) completer() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, cmd := range s.registry.list() {
		names := append([]string{cmd.name}, cmd.aliases...)
		for _, name := range names {
			if cmd.complete == nil {
				items = append(items, readline.PcItem(name))
				continue
			}
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(func(string) []string {
				return cmd.complete()
			})))
		}
	}
	return readline.NewPrefixCompleter(items...)
}
