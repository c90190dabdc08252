package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

//go:embed dashboard.gohtml
var templateFS embed.FS

var dashboardTmpl = template.Must(
	template.New("dashboard.gohtml").Funcs(template.FuncMap{
		"chartJSON": chartJSON,
	}).ParseFS(templateFS, "dashboard.gohtml"),
)

// chartJSON serializes section data for the inline chart scripts.
func chartJSON(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", eris.Wrap(err, "report: marshal chart data")
	}
	return template.JS(b), nil
}

// RenderHTML renders the document to a standalone HTML page.
func RenderHTML(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, doc); err != nil {
		return nil, eris.Wrap(err, "report: execute dashboard template")
	}
	return buf.Bytes(), nil
}

// WriteHTML renders the document and atomically replaces the file at path,
// so concurrent readers never observe a partial page.
func WriteHTML(doc *Document, path string) error {
	b, err := RenderHTML(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dashboard-*.html")
	if err != nil {
		return eris.Wrap(err, "report: create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return eris.Wrap(err, "report: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "report: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "report: replace dashboard file")
	}
	return nil
}
