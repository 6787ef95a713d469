// Package commands implements the sluice subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sluice/internal/cli/output"
	"github.com/leapstack-labs/sluice/internal/config"
	"github.com/leapstack-labs/sluice/internal/loader"
	"github.com/leapstack-labs/sluice/internal/plan"
	"github.com/leapstack-labs/sluice/internal/state"
	"github.com/leapstack-labs/sluice/pkg/engine"
	"github.com/leapstack-labs/sluice/pkg/resolve"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext assembles the shared dependencies of a command. It fails
// when no configuration is present, which only happens if a command runs
// outside the root command.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}, nil
}

// loadCatalog reads the project from disk and resolves it into a catalog.
func (c *CommandContext) loadCatalog() (*resolve.Catalog, *loader.Result, error) {
	l := loader.New(loader.Options{
		ProjectDir: c.Cfg.ProjectRoot,
		ModelsDir:  c.Cfg.ModelsDir,
		SourcesDir: c.Cfg.SourcesDir,
		Scope:      c.Cfg.Scope(),
		Vars:       c.Cfg.Vars,
		Env:        c.Cfg.TargetName,
		Target:     c.Cfg.TemplateTarget(),
		Logger:     c.Logger,
	})
	result, err := l.Load()
	if err != nil {
		return nil, nil, err
	}
	catalog, err := resolve.NewCatalog(result.Resources, c.Cfg.Scope())
	if err != nil {
		return nil, nil, err
	}
	return catalog, result, nil
}

// buildPlan compiles the whole project into an executable plan.
func (c *CommandContext) buildPlan() (*plan.Plan, *resolve.Catalog, error) {
	catalog, _, err := c.loadCatalog()
	if err != nil {
		return nil, nil, err
	}
	pl, err := plan.New(catalog, c.Logger).Plan()
	if err != nil {
		return nil, nil, err
	}
	return pl, catalog, nil
}

// connectEngine creates the configured engine client and connects it. The
// returned cleanup closes the connection and must be called.
func (c *CommandContext) connectEngine(ctx context.Context) (engine.Client, func(), error) {
	client, err := engine.New(*c.Cfg.Active, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Connect(ctx, *c.Cfg.Active); err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// openState opens the run-history store and applies migrations.
func (c *CommandContext) openState() (*state.Store, func(), error) {
	store := state.New(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}
