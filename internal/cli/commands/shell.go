package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sluice/internal/plan"
	"github.com/leapstack-labs/sluice/internal/state"
	"github.com/leapstack-labs/sluice/pkg/engine"
	"github.com/leapstack-labs/sluice/pkg/resolve"
)

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive statement shell",
		Long: `An interactive shell over the compiled project and the target engine.

Dot-commands inspect the project (.list, .show, .plan). Anything else is
accumulated until a terminating semicolon and submitted to the engine
verbatim; the connection is opened lazily on the first statement.`,
		Example: `  # Start the shell against the default target
  sluice shell

  # Start against a named profile
  sluice shell --target staging`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd)
		},
	}
}

func runShell(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	catalog, _, err := cc.loadCatalog()
	if err != nil {
		return err
	}

	// Shell history lives next to the run-history database.
	historyFile := filepath.Join(filepath.Dir(cc.Cfg.StatePath), "shell_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sluice> ",
		HistoryFile:     historyFile,
		AutoComplete:    newShellCompleter(catalog),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Sluice shell (target: %s)\n", cc.Cfg.TargetName)
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	sh := &shellSession{
		cc:      cc,
		catalog: catalog,
		planner: plan.New(catalog, cc.Logger),
		cmd:     cmd,
	}
	defer sh.close()

	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			rl.SetPrompt("sluice> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Dot-commands, but not in the middle of a multi-line statement.
		if strings.HasPrefix(line, ".") && buffer.Len() == 0 {
			if sh.handleDotCommand(line) {
				if line == ".quit" || line == ".exit" {
					break
				}
				continue
			}
		}

		// Accumulate multi-line statements until a semicolon.
		buffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buffer.WriteString(" ")
			rl.SetPrompt("   ...> ")
			continue
		}
		rl.SetPrompt("sluice> ")

		statement := strings.TrimSpace(buffer.String())
		buffer.Reset()
		sh.submit(statement)
		_, _ = fmt.Fprintln(out)
	}

	return nil
}

// shellSession holds the state of one interactive session.
type shellSession struct {
	cc      *CommandContext
	catalog *resolve.Catalog
	planner *plan.Planner
	cmd     *cobra.Command

	client  engine.Client
	closeFn func()

	store      *state.Store
	closeStore func()
}

func (s *shellSession) out() io.Writer    { return s.cmd.OutOrStdout() }
func (s *shellSession) errOut() io.Writer { return s.cmd.ErrOrStderr() }

func (s *shellSession) close() {
	if s.closeFn != nil {
		s.closeFn()
	}
	if s.closeStore != nil {
		s.closeStore()
	}
}

// ensureClient connects the engine on first use.
func (s *shellSession) ensureClient() (engine.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	client, closeFn, err := s.cc.connectEngine(s.cmd.Context())
	if err != nil {
		return nil, err
	}
	s.client, s.closeFn = client, closeFn
	_, _ = fmt.Fprintf(s.out(), "Connected to %s\n", client.Name())
	return client, nil
}

// ensureStore opens the run-history store on first use.
func (s *shellSession) ensureStore() (*state.Store, error) {
	if s.store != nil {
		return s.store, nil
	}
	store, closeStore, err := s.cc.openState()
	if err != nil {
		return nil, err
	}
	s.store, s.closeStore = store, closeStore
	return store, nil
}

func (s *shellSession) submit(statement string) {
	client, err := s.ensureClient()
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut(), "Error: %v\n", err)
		return
	}
	start := time.Now()
	if err := client.Submit(s.cmd.Context(), statement); err != nil {
		_, _ = fmt.Fprintf(s.errOut(), "Error: %v\n", err)
		return
	}
	_, _ = fmt.Fprintf(s.out(), "OK (%s)\n", time.Since(start).Round(time.Millisecond))
}

func (s *shellSession) handleDotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printShellHelp(s.out())
		return true

	case ".list":
		s.listResources()
		return true

	case ".show":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(s.errOut(), "Usage: .show <resource>")
			return true
		}
		s.showResource(parts[1])
		return true

	case ".plan":
		s.showPlan()
		return true

	case ".history":
		s.showHistory()
		return true

	case ".clear":
		fmt.Print("\033[H\033[2J")
		return true

	default:
		_, _ = fmt.Fprintf(s.errOut(), "Unknown command: %s (type .help for commands)\n", command)
		return true
	}
}

func (s *shellSession) listResources() {
	for _, r := range s.catalog.Resources() {
		class := "managed"
		if !r.IsManaged() {
			class = "source"
		}
		_, _ = fmt.Fprintf(s.out(), "  %-40s %-18s %s\n", r.Key(), r.Kind, class)
	}
}

func (s *shellSession) showResource(name string) {
	statements, err := s.renderResource(name)
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut(), "Error: %v\n", err)
		return
	}
	for _, stmt := range statements {
		_, _ = fmt.Fprintln(s.out(), stmt)
	}
}

// renderResource renders one resource's statements with references resolved.
// Managed resources render through the full plan so substitution matches an
// apply; sources render on their own.
func (s *shellSession) renderResource(name string) ([]string, error) {
	if r, ok := s.catalog.Get(name); ok && r.IsManaged() {
		pl, err := s.planner.Plan()
		if err != nil {
			return nil, err
		}
		for _, step := range pl.Steps {
			if step.Key == r.Key() {
				return step.Statements, nil
			}
		}
		return nil, fmt.Errorf("resource not in plan: %s", name)
	}

	pl, err := s.planner.CreateUnmanaged(name)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, step := range pl.Steps {
		out = append(out, step.Statements...)
	}
	return out, nil
}

func (s *shellSession) showPlan() {
	pl, err := s.planner.Plan()
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut(), "Error: %v\n", err)
		return
	}
	for i, step := range pl.Steps {
		_, _ = fmt.Fprintf(s.out(), "-- %d. %s\n", i+1, step.Key)
		for _, stmt := range step.Statements {
			_, _ = fmt.Fprintln(s.out(), stmt)
		}
	}
}

// showHistory lists the most recent runs from the state store.
func (s *shellSession) showHistory() {
	store, err := s.ensureStore()
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut(), "Error: %v\n", err)
		return
	}
	runs, err := store.ListRuns(10)
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut(), "Error: %v\n", err)
		return
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(s.out(), "No runs recorded yet.")
		return
	}
	for _, run := range runs {
		_, _ = fmt.Fprintf(s.out(), "  %s  %-10s %-14s %-9s %s\n",
			run.ID, run.Target, run.Command, run.Status,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .list            List all resources
  .show <name>     Show the rendered statements for one resource
  .plan            Show the full compiled plan
  .history         List recent runs
  .clear           Clear the screen
  .quit / .exit    Exit the shell

Tips:
  - Statements must end with a semicolon (;)
  - The engine connection opens on the first submitted statement
  - Tab completion works for resource names
`
	_, _ = fmt.Fprintln(w, help)
}

// newShellCompleter builds completion over resource keys and dot-commands.
func newShellCompleter(catalog *resolve.Catalog) *readline.PrefixCompleter {
	var keys []readline.PrefixCompleterInterface
	for _, r := range catalog.Resources() {
		keys = append(keys, readline.PcItem(r.Key()))
	}

	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".list"),
		readline.PcItem(".show", keys...),
		readline.PcItem(".plan"),
		readline.PcItem(".history"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}
	return readline.NewPrefixCompleter(items...)
}
