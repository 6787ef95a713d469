// Package resolve binds symbolic references to catalog entries. It indexes a
// normalized resource set by the names references can use and answers lookups
// with the exact engine-side name to substitute, or a typed error that says
// what went wrong. Resolution never guesses: a name that matches nothing
// fails, and a bare name that matches several source namespaces fails instead
// of picking one.
package resolve

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/sluice/pkg/core"
	"github.com/leapstack-labs/sluice/pkg/normalize"
)

// Catalog indexes a resource set for reference resolution. It is built once
// from normalized resources, immutable afterwards, and safe for concurrent
// use.
type Catalog struct {
	scope core.Scope

	// managed maps bare names to managed resources. Managed resources all
	// live in the target scope, so bare names are unique here.
	managed map[string]*core.Resource

	// sources maps namespace -> bare name -> source resource.
	sources map[string]map[string]*core.Resource

	// sourcesByName maps bare names to every source that answers to them,
	// across namespaces. More than one entry makes a bare reference ambiguous.
	sourcesByName map[string][]*core.Resource

	// stores maps bare store names to store resources, managed and source
	// alike. Store names are engine-global, so they share one namespace.
	stores map[string]*core.Resource

	// ordered holds every resource in declaration order.
	ordered []*core.Resource
}

// NewCatalog indexes the given resources. It rejects duplicate managed names,
// duplicate source names within a namespace, and duplicate store names
// anywhere, since store references carry no namespace to disambiguate with.
func NewCatalog(resources []*core.Resource, scope core.Scope) (*Catalog, error) {
	c := &Catalog{
		scope:         scope,
		managed:       make(map[string]*core.Resource),
		sources:       make(map[string]map[string]*core.Resource),
		sourcesByName: make(map[string][]*core.Resource),
		stores:        make(map[string]*core.Resource),
		ordered:       make([]*core.Resource, len(resources)),
	}
	copy(c.ordered, resources)
	sort.SliceStable(c.ordered, func(i, j int) bool {
		if c.ordered[i].Position != c.ordered[j].Position {
			return c.ordered[i].Position < c.ordered[j].Position
		}
		return c.ordered[i].Key() < c.ordered[j].Key()
	})

	for _, r := range c.ordered {
		if r.IsManaged() {
			if prev, dup := c.managed[r.Name]; dup {
				return nil, &normalize.ConfigError{
					Resource: r.Name,
					Field:    "name",
					Message:  fmt.Sprintf("duplicate resource name; already declared in %s", locate(prev)),
				}
			}
			c.managed[r.Name] = r
		} else {
			ns := c.sources[r.Namespace]
			if ns == nil {
				ns = make(map[string]*core.Resource)
				c.sources[r.Namespace] = ns
			}
			if prev, dup := ns[r.Name]; dup {
				return nil, &normalize.ConfigError{
					Resource: r.Key(),
					Field:    "name",
					Message:  fmt.Sprintf("duplicate source name in namespace %q; already declared in %s", r.Namespace, locate(prev)),
				}
			}
			ns[r.Name] = r
			c.sourcesByName[r.Name] = append(c.sourcesByName[r.Name], r)
		}

		if r.Kind == core.KindStore {
			if prev, dup := c.stores[r.Name]; dup {
				return nil, &normalize.ConfigError{
					Resource: r.Key(),
					Field:    "name",
					Message:  fmt.Sprintf("store names are engine-global; %q is already declared in %s", r.Name, locate(prev)),
				}
			}
			c.stores[r.Name] = r
		}
	}
	return c, nil
}

// Scope returns the naming scope the catalog resolves against.
func (c *Catalog) Scope() core.Scope { return c.scope }

// Len returns the number of indexed resources.
func (c *Catalog) Len() int { return len(c.ordered) }

// Resources returns every resource in declaration order.
func (c *Catalog) Resources() []*core.Resource { return c.ordered }

// Managed returns the managed resources in declaration order.
func (c *Catalog) Managed() []*core.Resource {
	out := make([]*core.Resource, 0, len(c.managed))
	for _, r := range c.ordered {
		if r.IsManaged() {
			out = append(out, r)
		}
	}
	return out
}

// Sources returns the on-demand resources in declaration order.
func (c *Catalog) Sources() []*core.Resource {
	out := make([]*core.Resource, 0, len(c.ordered)-len(c.managed))
	for _, r := range c.ordered {
		if !r.IsManaged() {
			out = append(out, r)
		}
	}
	return out
}

// Get looks a resource up by its catalog key: a bare name for managed
// resources, "namespace.name" for sources.
func (c *Catalog) Get(key string) (*core.Resource, bool) {
	if ns, name, qualified := strings.Cut(key, "."); qualified {
		r, ok := c.sources[ns][name]
		return r, ok
	}
	r, ok := c.managed[key]
	return r, ok
}

// LookupSource returns the source resources a name can mean. A qualified
// "namespace.name" matches at most one; a bare name matches every namespace
// that declares it.
func (c *Catalog) LookupSource(name string) []*core.Resource {
	if ns, bare, qualified := strings.Cut(name, "."); qualified {
		if r, ok := c.sources[ns][bare]; ok {
			return []*core.Resource{r}
		}
		return nil
	}
	return c.sourcesByName[name]
}

// Resolve binds one reference. Namespace-qualified references only match
// sources in that namespace. Bare references match a managed resource first;
// failing that, a source by that name in exactly one namespace.
func (c *Catalog) Resolve(from *core.Resource, ref core.Reference) (core.ResolvedReference, error) {
	if ref.Namespace != "" {
		target, ok := c.sources[ref.Namespace][ref.Name]
		if !ok {
			return core.ResolvedReference{}, &UnresolvedReferenceError{
				Referrer: referrer(from),
				Symbol:   ref.Namespace + "." + ref.Name,
			}
		}
		return c.bind(from, ref, target)
	}

	if target, ok := c.managed[ref.Name]; ok {
		return c.bind(from, ref, target)
	}

	candidates := c.sourcesByName[ref.Name]
	switch len(candidates) {
	case 0:
		return core.ResolvedReference{}, &UnresolvedReferenceError{
			Referrer: referrer(from),
			Symbol:   ref.Name,
		}
	case 1:
		return c.bind(from, ref, candidates[0])
	default:
		keys := make([]string, len(candidates))
		for i, r := range candidates {
			keys[i] = r.Key()
		}
		sort.Strings(keys)
		return core.ResolvedReference{}, &AmbiguousReferenceError{
			Referrer:   referrer(from),
			Symbol:     ref.Name,
			Candidates: keys,
		}
	}
}

// ResolveStore binds the store binding of a resource. Only store resources
// answer; a stream that happens to share the name does not.
func (c *Catalog) ResolveStore(from *core.Resource) (core.ResolvedReference, error) {
	target, ok := c.stores[from.Store]
	if !ok {
		return core.ResolvedReference{}, &UnresolvedReferenceError{
			Referrer: referrer(from),
			Symbol:   from.Store,
			Expected: "store",
		}
	}
	return c.bind(from, core.Reference{Name: from.Store}, target)
}

// ResolveAll binds every reference a resource makes: the query body references
// in order, then the store binding. All failures are reported, joined.
func (c *Catalog) ResolveAll(r *core.Resource) ([]core.ResolvedReference, error) {
	var (
		resolved []core.ResolvedReference
		errs     []error
	)
	for _, ref := range r.Refs {
		rr, err := c.Resolve(r, ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		resolved = append(resolved, rr)
	}
	if r.Store != "" {
		rr, err := c.ResolveStore(r)
		if err != nil {
			errs = append(errs, err)
		} else {
			resolved = append(resolved, rr)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return resolved, nil
}

// bind produces the resolved form of a reference, enforcing that on-demand
// resources never depend on other on-demand resources: nothing orders their
// creation, so such an edge could only fail at apply time.
func (c *Catalog) bind(from *core.Resource, ref core.Reference, target *core.Resource) (core.ResolvedReference, error) {
	if from != nil && !from.IsManaged() && !target.IsManaged() {
		return core.ResolvedReference{}, &normalize.ConfigError{
			Resource: from.Key(),
			Message:  fmt.Sprintf("on-demand resources cannot depend on other on-demand resources (%s); manage the dependency or create it out of band", target.Key()),
		}
	}
	return core.ResolvedReference{
		Reference: ref,
		Key:       target.Key(),
		Target:    target.EngineName(c.scope),
		IsSource:  !target.IsManaged(),
	}, nil
}

func referrer(from *core.Resource) string {
	if from == nil {
		return ""
	}
	return from.Key()
}

func locate(r *core.Resource) string {
	if r.Path != "" {
		return r.Path
	}
	return "this project"
}
