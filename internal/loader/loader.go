// Package loader discovers resource definitions on disk. It reads SQL model
// files with YAML frontmatter, YAML resource files, and source declaration
// files, renders template expressions in query bodies, and hands everything
// through the normalizer. Loading is all-or-nothing: any file that fails to
// parse or validate fails the load, with every failure reported.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sluice/internal/template"
	"github.com/leapstack-labs/sluice/pkg/core"
	"github.com/leapstack-labs/sluice/pkg/normalize"
)

// Options configures a Loader.
type Options struct {
	// ProjectDir is the project root; the models and sources directories
	// resolve against it.
	ProjectDir string
	// ModelsDir and SourcesDir are relative to ProjectDir and default to
	// "models" and "sources". Either directory may be absent.
	ModelsDir  string
	SourcesDir string
	// Scope is the target naming scope, used to compute each resource's own
	// qualified name for the "this" template global.
	Scope core.Scope
	// Vars are project variables exposed to template expressions as "config".
	Vars map[string]any
	// Env is the active target name, exposed to expressions as "env".
	Env string
	// Target describes the engine target for template expressions.
	Target *template.TargetInfo
	Logger *slog.Logger
}

// Result is the outcome of one load.
type Result struct {
	// Resources holds every normalized resource in declaration order: model
	// files first, then source files, lexically by path within each group.
	Resources []*core.Resource
	// Files counts the definition files read.
	Files int
}

// Loader reads a project from disk.
type Loader struct {
	opts   Options
	logger *slog.Logger
}

// New creates a loader. A nil logger discards.
func New(opts Options) *Loader {
	if opts.ModelsDir == "" {
		opts.ModelsDir = "models"
	}
	if opts.SourcesDir == "" {
		opts.SourcesDir = "sources"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{opts: opts, logger: logger}
}

// resourceDoc is the YAML shape of one resource definition. Unknown fields
// are rejected; the With node keeps parameter order as written.
type resourceDoc struct {
	Name       string                `yaml:"name"`
	Kind       string                `yaml:"kind"`
	Database   string                `yaml:"database"`
	Schema     string                `yaml:"schema"`
	Store      string                `yaml:"store"`
	Columns    []normalize.RawColumn `yaml:"columns"`
	PrimaryKey []string              `yaml:"primary_key"`
	With       *yaml.Node            `yaml:"with"`
	SQL        string                `yaml:"sql"`
}

// modelsDoc is the shape of a models/*.yaml file.
type modelsDoc struct {
	Resources []resourceDoc `yaml:"resources"`
}

// sourcesDoc is the shape of a sources/*.yaml file: a namespace of on-demand
// resources with optional shared defaults.
type sourcesDoc struct {
	Namespace string         `yaml:"namespace"`
	Defaults  sourceDefaults `yaml:"defaults"`
	Resources []resourceDoc  `yaml:"resources"`
}

type sourceDefaults struct {
	Database string     `yaml:"database"`
	Schema   string     `yaml:"schema"`
	Store    string     `yaml:"store"`
	With     *yaml.Node `yaml:"with"`
}

// Load reads the project. Model files load before source files, and every
// resource gets a declaration position in that order.
func (l *Loader) Load() (*Result, error) {
	result := &Result{}
	var errs []error
	pos := 0

	collect := func(rs []*core.Resource, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		result.Resources = append(result.Resources, rs...)
	}

	err := walkFiles(l.dir(l.opts.ModelsDir), func(path string) {
		switch {
		case strings.HasSuffix(path, ".sql"):
			result.Files++
			collect(l.loadSQLModel(path, &pos))
		case isYAML(path):
			result.Files++
			collect(l.loadModelFile(path, &pos))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", l.opts.ModelsDir, err)
	}

	err = walkFiles(l.dir(l.opts.SourcesDir), func(path string) {
		if !isYAML(path) {
			return
		}
		result.Files++
		collect(l.loadSourceFile(path, &pos))
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", l.opts.SourcesDir, err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	l.logger.Info("project loaded",
		"files", result.Files,
		"resources", len(result.Resources))
	return result, nil
}

func (l *Loader) dir(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.opts.ProjectDir, name)
}

// walkFiles visits every regular file under root in lexical order. A missing
// root is an empty project half, not an error.
func walkFiles(root string, visit func(path string)) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		visit(path)
		return nil
	})
}

func isYAML(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}

// loadSQLModel reads one .sql model: frontmatter for configuration, the rest
// of the file as the query body.
func (l *Loader) loadSQLModel(path string, pos *int) ([]*core.Resource, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from WalkDir under the project root
	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error()}
	}

	meta, body, _ := splitFrontmatter(string(content))
	var doc resourceDoc
	if err := decodeStrict([]byte(meta), &doc, path); err != nil {
		return nil, err
	}
	if doc.SQL != "" {
		return nil, &ParseError{Path: path, Message: "the query body is the file itself; remove the 'sql' field"}
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), ".sql")
	}

	raw, err := l.toRaw(&doc, path, pos)
	if err != nil {
		return nil, err
	}
	if body != "" {
		if err := l.renderSQL(raw, body, path); err != nil {
			return nil, err
		}
	}
	r, err := l.finish(raw, path)
	if err != nil {
		return nil, err
	}
	return []*core.Resource{r}, nil
}

// loadModelFile reads a models/*.yaml file holding managed resources that
// have no query body of their own, stores and entities mostly.
func (l *Loader) loadModelFile(path string, pos *int) ([]*core.Resource, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from WalkDir under the project root
	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error()}
	}

	var doc modelsDoc
	if err := decodeStrict(content, &doc, path); err != nil {
		return nil, err
	}

	out := make([]*core.Resource, 0, len(doc.Resources))
	for i := range doc.Resources {
		raw, err := l.toRaw(&doc.Resources[i], path, pos)
		if err != nil {
			return nil, err
		}
		if raw.SQL != "" {
			if err := l.renderSQL(raw, raw.SQL, path); err != nil {
				return nil, err
			}
		}
		r, err := l.finish(raw, path)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// loadSourceFile reads a sources/*.yaml namespace file. The namespace
// defaults to the file name; file-level defaults fill in what individual
// declarations leave unset.
func (l *Loader) loadSourceFile(path string, pos *int) ([]*core.Resource, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from WalkDir under the project root
	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error()}
	}

	var doc sourcesDoc
	if err := decodeStrict(content, &doc, path); err != nil {
		return nil, err
	}
	ns := doc.Namespace
	if ns == "" {
		base := filepath.Base(path)
		ns = strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")
	}
	defaultParams, err := paramsFromNode(doc.Defaults.With, path)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Resource, 0, len(doc.Resources))
	for i := range doc.Resources {
		raw, err := l.toRaw(&doc.Resources[i], path, pos)
		if err != nil {
			return nil, err
		}
		applyDefaults(raw, doc.Defaults, defaultParams)
		raw.Namespace = ns
		raw.OnDemand = true
		if raw.SQL != "" {
			if err := l.renderSQL(raw, raw.SQL, path); err != nil {
				return nil, err
			}
		}
		r, err := l.finish(raw, path)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// applyDefaults fills unset declaration fields from the file defaults.
// Default parameters come first; a declaration that repeats a key overrides
// the value but keeps the default's position.
func applyDefaults(raw *normalize.RawResource, d sourceDefaults, defaultParams *core.Params) {
	if raw.Database == "" {
		raw.Database = d.Database
	}
	if raw.Schema == "" {
		raw.Schema = d.Schema
	}
	if raw.Store == "" {
		raw.Store = d.Store
	}
	if defaultParams.Len() == 0 {
		return
	}
	merged := defaultParams.Clone()
	if raw.Params != nil {
		for _, k := range raw.Params.Keys() {
			v, _ := raw.Params.Get(k)
			merged.Set(k, v)
		}
	}
	raw.Params = merged
}

// toRaw converts a decoded document into the normalizer's input shape and
// assigns the next declaration position.
func (l *Loader) toRaw(doc *resourceDoc, path string, pos *int) (*normalize.RawResource, error) {
	params, err := paramsFromNode(doc.With, path)
	if err != nil {
		return nil, err
	}
	raw := &normalize.RawResource{
		Name:       doc.Name,
		Kind:       doc.Kind,
		Database:   doc.Database,
		Schema:     doc.Schema,
		Columns:    doc.Columns,
		PrimaryKey: doc.PrimaryKey,
		Store:      doc.Store,
		SQL:        doc.SQL,
		Params:     params,
		Path:       path,
		Position:   *pos,
	}
	*pos++
	return raw, nil
}

// renderSQL expands template expressions in the query body and records the
// references they declared.
func (l *Loader) renderSQL(raw *normalize.RawResource, body, path string) error {
	ctx := &template.Context{
		Vars:   l.opts.Vars,
		Env:    l.opts.Env,
		Target: l.opts.Target,
		This:   thisName(raw, l.opts.Scope),
	}
	rendered, err := template.Extract(body, path, ctx)
	if err != nil {
		return err
	}
	raw.SQL = rendered.SQL
	raw.Refs = rendered.Refs
	return nil
}

func (l *Loader) finish(raw *normalize.RawResource, path string) (*core.Resource, error) {
	r, err := normalize.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.logger.Debug("loaded resource", "key", r.Key(), "kind", r.Kind, "path", path)
	return r, nil
}

// thisName computes the engine-side name a query can use to refer to the
// resource it defines. The kind may still be invalid here; relations are the
// only kinds with queries, so their naming is the fallback.
func thisName(raw *normalize.RawResource, scope core.Scope) string {
	if kind, ok := core.ParseKind(raw.Kind); ok && !kind.IsRelation() {
		return core.QuoteIdent(raw.Name)
	}
	db, schema := raw.Database, raw.Schema
	if db == "" {
		db = scope.Database
	}
	if schema == "" {
		schema = scope.Schema
	}
	return core.QualifiedName(db, schema, raw.Name)
}

// decodeStrict decodes YAML, rejecting unknown fields. An empty document
// decodes to the zero value.
func decodeStrict(src []byte, out any, path string) error {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &ParseError{Path: path, Message: strings.TrimPrefix(err.Error(), "yaml: ")}
	}
	return nil
}

// paramsFromNode converts a 'with' mapping into ordered parameters. The node
// form keeps document order, which plain map decoding would lose.
func paramsFromNode(n *yaml.Node, path string) (*core.Params, error) {
	if n == nil || n.IsZero() {
		return nil, nil
	}
	node := n
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Path: path, Line: n.Line, Message: "'with' must be a mapping of parameter names to values"}
	}
	params := core.NewParams()
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		if params.Has(keyNode.Value) {
			return nil, &ParseError{Path: path, Line: keyNode.Line, Message: fmt.Sprintf("duplicate parameter %q", keyNode.Value)}
		}
		var value any
		if err := valNode.Decode(&value); err != nil {
			return nil, &ParseError{Path: path, Line: valNode.Line, Message: fmt.Sprintf("parameter %q: %v", keyNode.Value, err)}
		}
		params.Set(keyNode.Value, value)
	}
	return params, nil
}
