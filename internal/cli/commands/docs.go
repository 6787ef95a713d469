package commands

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sluice/internal/docs"
	"github.com/leapstack-labs/sluice/internal/plan"
)

// NewDocsCommand creates the docs command group.
func NewDocsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Generate and serve project documentation",
		Long: `Render the compiled project into a static documentation site: one HTML
page plus a manifest.json with every resource, its dependencies, and the
exact statements an apply would submit.`,
	}
	cmd.AddCommand(newDocsBuildCommand())
	cmd.AddCommand(newDocsServeCommand())
	return cmd
}

func newDocsBuildCommand() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write the documentation site to a directory",
		Example: `  # Write the site to ./docs
  sluice docs build

  # Write somewhere else
  sluice docs build --out site`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			manifest, err := buildManifest(cc)
			if err != nil {
				return err
			}
			if err := manifest.WriteFiles(outDir); err != nil {
				return err
			}
			cc.Renderer.Successf("Documentation written to %s", outDir)
			cc.Renderer.Mutedf("%d resources, %d statements", len(manifest.Resources), manifest.Stats.Statements)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "docs", "output directory")
	return cmd
}

func newDocsServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the documentation site locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			manifest, err := buildManifest(cc)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cc.Renderer.Printf("Serving docs at http://localhost:%d (Ctrl+C to stop)\n", port)
			return docs.NewServer(manifest, port, cc.Logger).Serve(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8585, "port to listen on")
	return cmd
}

// buildManifest compiles the project and assembles the docs payload.
func buildManifest(cc *CommandContext) (*docs.Manifest, error) {
	catalog, _, err := cc.loadCatalog()
	if err != nil {
		return nil, err
	}

	planner := plan.New(catalog, cc.Logger)
	managed, err := planner.Plan()
	if err != nil {
		return nil, err
	}
	sources, err := planner.CreateAllUnmanaged()
	if err != nil {
		return nil, err
	}

	project := cc.Cfg.Name
	if project == "" {
		project = filepath.Base(cc.Cfg.ProjectRoot)
	}
	return docs.Build(project, cc.Cfg.TargetName, cc.Cfg.Scope(), catalog, managed, sources), nil
}
