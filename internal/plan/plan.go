// Package plan turns a resolved catalog into executable statement plans.
// Planning is all-or-nothing: every resource must resolve, validate, and
// render before a plan exists, so a returned plan never carries half a
// project. The same catalog always produces byte-identical plans.
package plan

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/sluice/internal/dag"
	"github.com/leapstack-labs/sluice/internal/template"
	"github.com/leapstack-labs/sluice/pkg/core"
	"github.com/leapstack-labs/sluice/pkg/materialize"
	"github.com/leapstack-labs/sluice/pkg/resolve"
)

// Step is one resource of a plan, fully rendered.
type Step struct {
	// Key is the catalog key of the resource.
	Key string
	// Kind is the resource kind, for display and records.
	Kind core.Kind
	// Statements are the DDL statements that create the resource, in order,
	// with every reference substituted.
	Statements []string
}

// Plan is an ordered set of steps plus the dependency structure they came
// from.
type Plan struct {
	// Steps lists every resource in creation order: dependencies always
	// precede their dependents.
	Steps []Step
	// Edges holds every resolved dependency, including references to
	// on-demand resources, which constrain existence but not order.
	Edges []core.Edge
	// Waves groups step keys into stages. Everything in a wave depends only
	// on earlier waves, so a wave's steps can run concurrently.
	Waves [][]string
}

// Keys returns the step keys in creation order.
func (p *Plan) Keys() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Key
	}
	return out
}

// Planner builds plans from a catalog.
type Planner struct {
	catalog *resolve.Catalog
	logger  *slog.Logger
}

// New creates a planner. A nil logger discards.
func New(catalog *resolve.Catalog, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Planner{catalog: catalog, logger: logger}
}

// Plan compiles every managed resource into an ordered plan. References to
// managed resources become ordering edges; references to on-demand resources
// are checked for existence only. Any resolution, validation, or cycle
// failure fails the whole plan.
func (p *Planner) Plan() (*Plan, error) {
	managed := p.catalog.Managed()

	g := dag.NewGraph()
	for _, r := range managed {
		g.AddNode(r.Name)
	}

	var (
		errs     []error
		edges    []core.Edge
		resolved = make(map[string][]core.ResolvedReference, len(managed))
	)
	for _, r := range managed {
		refs, err := p.catalog.ResolveAll(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		resolved[r.Name] = refs
		for _, rr := range refs {
			edges = append(edges, core.Edge{From: rr.Key, To: r.Name})
			if rr.IsSource {
				continue
			}
			if rr.Key == r.Name {
				errs = append(errs, &CycleError{Cycle: []string{r.Name}})
				continue
			}
			if err := g.AddEdge(rr.Key, r.Name); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	order, err := g.TopoSort()
	if err != nil {
		var cycErr *dag.CycleError
		if errors.As(err, &cycErr) {
			return nil, &CycleError{Cycle: cycErr.Cycle}
		}
		return nil, err
	}
	waves, err := g.Levels()
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, len(order))
	for _, key := range order {
		r, _ := p.catalog.Get(key)
		stmts, err := p.render(r, resolved[key])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		steps = append(steps, Step{Key: key, Kind: r.Kind, Statements: stmts})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	p.logger.Debug("plan built",
		"steps", len(steps),
		"edges", len(edges),
		"waves", len(waves))
	return &Plan{Steps: steps, Edges: dedupeEdges(edges), Waves: waves}, nil
}

// CreateUnmanaged plans the creation of a single on-demand resource. The name
// may be bare or namespace-qualified; a bare name matching several namespaces
// is rejected rather than guessed at.
func (p *Planner) CreateUnmanaged(name string) (*Plan, error) {
	candidates := p.catalog.LookupSource(name)
	switch len(candidates) {
	case 0:
		if _, managed := p.catalog.Get(name); managed {
			return nil, &NotFoundError{Name: name, Managed: true}
		}
		return nil, &NotFoundError{Name: name}
	case 1:
		return p.planSources(candidates)
	default:
		keys := make([]string, len(candidates))
		for i, r := range candidates {
			keys[i] = r.Key()
		}
		sort.Strings(keys)
		return nil, &resolve.AmbiguousReferenceError{Symbol: name, Candidates: keys}
	}
}

// CreateAllUnmanaged plans the creation of every on-demand resource, in
// declaration order. An empty project yields an empty plan, not an error.
func (p *Planner) CreateAllUnmanaged() (*Plan, error) {
	return p.planSources(p.catalog.Sources())
}

// planSources renders on-demand resources in the given order. Sources never
// depend on each other, so the order is by declaration, one wave per step.
func (p *Planner) planSources(sources []*core.Resource) (*Plan, error) {
	var (
		errs  []error
		edges []core.Edge
		steps = make([]Step, 0, len(sources))
		waves = make([][]string, 0, len(sources))
	)
	for _, r := range sources {
		refs, err := p.catalog.ResolveAll(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, rr := range refs {
			edges = append(edges, core.Edge{From: rr.Key, To: r.Key()})
		}
		stmts, err := p.render(r, refs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		steps = append(steps, Step{Key: r.Key(), Kind: r.Kind, Statements: stmts})
		waves = append(waves, []string{r.Key()})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &Plan{Steps: steps, Edges: dedupeEdges(edges), Waves: waves}, nil
}

// render substitutes resolved references into the query body and hands the
// resource to its builder. The catalog's resource is never mutated.
func (p *Planner) render(r *core.Resource, refs []core.ResolvedReference) ([]string, error) {
	unit := *r
	if r.HasQuery() {
		repl := make(map[string]string, len(refs))
		for _, rr := range refs {
			// Store bindings occupy no position in the query body.
			if rr.Token == "" {
				continue
			}
			repl[rr.Token] = rr.Target
		}
		unit.SQL = template.Substitute(r.SQL, repl)
	}
	return materialize.Render(&unit, p.catalog.Scope())
}

func dedupeEdges(edges []core.Edge) []core.Edge {
	seen := make(map[core.Edge]struct{}, len(edges))
	out := make([]core.Edge, 0, len(edges))
	for _, e := range edges {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
