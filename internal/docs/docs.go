// Package docs renders a compiled project into a browsable documentation
// site: a JSON manifest plus a single self-contained HTML page. The site is
// static and can be hosted anywhere, or served locally with Server.
package docs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/sluice/internal/plan"
	"github.com/leapstack-labs/sluice/pkg/core"
	"github.com/leapstack-labs/sluice/pkg/resolve"
)

// Manifest is the full documentation payload for one project and target.
type Manifest struct {
	Project     string        `json:"project"`
	Target      string        `json:"target"`
	GeneratedAt time.Time     `json:"generated_at"`
	Stats       Stats         `json:"stats"`
	Resources   []ResourceDoc `json:"resources"`
	Waves       [][]string    `json:"waves"`
	Edges       []Edge        `json:"edges"`
}

// Stats carries counts for the overview header.
type Stats struct {
	Managed    int            `json:"managed"`
	Sources    int            `json:"sources"`
	Statements int            `json:"statements"`
	Kinds      map[string]int `json:"kinds"`
}

// ResourceDoc is one resource as presented in the documentation.
type ResourceDoc struct {
	Key          string      `json:"key"`
	Name         string      `json:"name"`
	Kind         string      `json:"kind"`
	Namespace    string      `json:"namespace,omitempty"`
	Class        string      `json:"class"`
	EngineName   string      `json:"engine_name"`
	Path         string      `json:"path,omitempty"`
	DependsOn    []string    `json:"depends_on"`
	ReferencedBy []string    `json:"referenced_by"`
	Columns      []ColumnDoc `json:"columns,omitempty"`
	SQL          string      `json:"sql,omitempty"`
	Statements   []string    `json:"statements"`
}

// ColumnDoc is one declared column.
type ColumnDoc struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"not_null,omitempty"`
}

// Edge is one dependency: From must exist before To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Build assembles the manifest from a resolved catalog and the two compiled
// plans. The managed plan supplies ordering and statements for build
// resources; the source plan supplies statements for on-demand resources.
func Build(project, target string, scope core.Scope, catalog *resolve.Catalog, managed, sources *plan.Plan) *Manifest {
	statements := make(map[string][]string)
	for _, p := range []*plan.Plan{managed, sources} {
		if p == nil {
			continue
		}
		for _, step := range p.Steps {
			statements[step.Key] = step.Statements
		}
	}

	dependsOn := make(map[string][]string)
	referencedBy := make(map[string][]string)
	var edges []Edge
	if managed != nil {
		for _, e := range managed.Edges {
			dependsOn[e.To] = append(dependsOn[e.To], e.From)
			referencedBy[e.From] = append(referencedBy[e.From], e.To)
			edges = append(edges, Edge{From: e.From, To: e.To})
		}
	}

	m := &Manifest{
		Project:     project,
		Target:      target,
		GeneratedAt: time.Now().UTC(),
		Stats:       Stats{Kinds: make(map[string]int)},
		Edges:       edges,
	}
	if managed != nil {
		m.Waves = managed.Waves
	}

	for _, r := range catalog.Resources() {
		key := r.Key()
		doc := ResourceDoc{
			Key:          key,
			Name:         r.Name,
			Kind:         r.Kind.String(),
			Namespace:    r.Namespace,
			Class:        "managed",
			EngineName:   r.EngineName(scope),
			Path:         r.Path,
			DependsOn:    dependsOn[key],
			ReferencedBy: referencedBy[key],
			Columns:      convertColumns(r.Columns),
			SQL:          r.SQL,
			Statements:   statements[key],
		}
		if !r.IsManaged() {
			doc.Class = "source"
			m.Stats.Sources++
		} else {
			m.Stats.Managed++
		}
		m.Stats.Kinds[doc.Kind]++
		m.Stats.Statements += len(doc.Statements)
		m.Resources = append(m.Resources, doc)
	}

	return m
}

func convertColumns(columns []core.Column) []ColumnDoc {
	if len(columns) == 0 {
		return nil
	}
	out := make([]ColumnDoc, 0, len(columns))
	for _, c := range columns {
		out = append(out, ColumnDoc{Name: c.Name, Type: c.Type, NotNull: c.NotNull})
	}
	return out
}

// WriteFiles writes the site to dir: manifest.json and index.html.
func (m *Manifest) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o600); err != nil {
		return fmt.Errorf("failed to write manifest.json: %w", err)
	}

	html, err := m.renderHTML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), html, 0o600); err != nil {
		return fmt.Errorf("failed to write index.html: %w", err)
	}
	return nil
}
