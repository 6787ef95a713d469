package docs

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed index.html.tmpl
var indexTemplate string

var siteFuncs = template.FuncMap{
	// Resource keys contain dots; fragment ids must not.
	"anchor": func(key string) string { return strings.ReplaceAll(key, ".", "-") },
}

func (m *Manifest) renderHTML() ([]byte, error) {
	tmpl, err := template.New("index").Funcs(siteFuncs).Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse site template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, m); err != nil {
		return nil, fmt.Errorf("failed to render site: %w", err)
	}
	return buf.Bytes(), nil
}
