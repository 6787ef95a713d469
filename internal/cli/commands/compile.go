package commands

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sluice/internal/cli/output"
	"github.com/leapstack-labs/sluice/internal/plan"
)

// CompileOptions holds options for the compile command.
type CompileOptions struct {
	JSON  bool
	Watch bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	opts := &CompileOptions{}
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the project into an ordered statement plan",
		Long: `Load every model and source definition, resolve references, and render
the full CREATE statement plan in dependency order.

Nothing is sent to the engine; compile is a pure, repeatable build. The same
project always compiles to the same plan.`,
		Example: `  # Compile and print the plan
  sluice compile

  # Machine-readable plan
  sluice compile --json

  # Recompile whenever model or source files change
  sluice compile --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompile(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output the plan as JSON")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Recompile on file changes")

	return cmd
}

func runCompile(cmd *cobra.Command, opts *CompileOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if opts.Watch {
		return watchCompile(cmd, cc, opts)
	}
	return compileOnce(cc, opts)
}

func compileOnce(cc *CommandContext, opts *CompileOptions) error {
	pl, _, err := cc.buildPlan()
	if err != nil {
		return err
	}
	if opts.JSON {
		return cc.Renderer.JSON(newPlanDoc(pl))
	}
	printPlan(cc.Renderer, pl)
	return nil
}

// planDoc is the JSON shape of a compiled plan.
type planDoc struct {
	Steps []planStep `json:"steps"`
	Waves [][]string `json:"waves"`
	Edges []planEdge `json:"edges"`
}

type planStep struct {
	Key        string   `json:"key"`
	Kind       string   `json:"kind"`
	Statements []string `json:"statements"`
}

type planEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func newPlanDoc(pl *plan.Plan) *planDoc {
	doc := &planDoc{Waves: pl.Waves}
	for _, s := range pl.Steps {
		doc.Steps = append(doc.Steps, planStep{Key: s.Key, Kind: s.Kind.String(), Statements: s.Statements})
	}
	for _, e := range pl.Edges {
		doc.Edges = append(doc.Edges, planEdge{From: e.From, To: e.To})
	}
	return doc
}

// printPlan writes the rendered statements with one comment line per
// resource, so the output pastes cleanly into an engine console.
func printPlan(r *output.Renderer, pl *plan.Plan) {
	r.Header(fmt.Sprintf("Plan: %d resources in %d waves", len(pl.Steps), len(pl.Waves)))
	r.Println()
	for i, step := range pl.Steps {
		r.Mutedf("-- %d. %s (%s)", i+1, step.Key, output.TitleCase(step.Kind.String()))
		for _, stmt := range step.Statements {
			r.Println(stmt)
		}
		r.Println()
	}
}

func watchCompile(cmd *cobra.Command, cc *CommandContext, opts *CompileOptions) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	recompile := func() {
		if err := compileOnce(cc, opts); err != nil {
			cc.Renderer.Errorf("compile failed: %v", err)
		}
	}
	recompile()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range []string{cc.Cfg.ModelsDir, cc.Cfg.SourcesDir} {
		if err := watchDirRecursive(watcher, dir); err != nil {
			// Continue without watching a missing directory.
			cc.Logger.Warn("cannot watch directory", "dir", dir, "error", err)
		}
	}

	cc.Renderer.Mutedf("Watching for changes (Ctrl+C to stop)")

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isProjectFile(event.Name) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				cc.Renderer.Println()
				cc.Renderer.Mutedf("-- %s changed at %s", filepath.Base(event.Name), time.Now().Format("15:04:05"))
				recompile()
			})

		case err := <-watcher.Errors:
			cc.Logger.Error("watcher error", "error", err)
		}
	}
}

func isProjectFile(name string) bool {
	switch filepath.Ext(name) {
	case ".sql", ".yaml", ".yml":
		return true
	}
	return false
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
