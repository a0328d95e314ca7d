package render

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed templates/html/*.tmpl
var builtinTemplatesFS embed.FS

// templateFiles a package must provide.
const (
	indexTemplateName = "index.html.tmpl"
	fileTemplateName  = "file.html.tmpl"
)

// TemplateNotFoundError reports a missing or incomplete template package.
type TemplateNotFoundError struct {
	Name   string
	Root   string
	Reason string
}

func (e *TemplateNotFoundError) Error() string {
	where := "built-in templates"
	if e.Root != "" {
		where = fmt.Sprintf("templates root %q", e.Root)
	}
	return fmt.Sprintf("template package %q not found in %s: %s", e.Name, where, e.Reason)
}

type templatePackage struct {
	index *template.Template
	file  *template.Template
}

// loadTemplates resolves a named template package: a directory of that name
// under the templates root, falling back to the embedded "html" package.
func loadTemplates(root, name string) (*templatePackage, error) {
	if root != "" {
		dir := filepath.Join(root, name)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return parsePackage(os.DirFS(dir), root, name)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %q: %w", dir, err)
		}
	}
	if name != "html" {
		return nil, &TemplateNotFoundError{Name: name, Root: root, Reason: "no such directory"}
	}
	sub, err := fs.Sub(builtinTemplatesFS, "templates/html")
	if err != nil {
		return nil, fmt.Errorf("failed to open built-in templates: %w", err)
	}
	return parsePackage(sub, "", name)
}

func parsePackage(fsys fs.FS, root, name string) (*templatePackage, error) {
	var pkg templatePackage
	for _, tf := range []struct {
		file string
		dst  **template.Template
	}{
		{indexTemplateName, &pkg.index},
		{fileTemplateName, &pkg.file},
	} {
		t, err := template.New(tf.file).Funcs(templateFuncs).ParseFS(fsys, tf.file)
		if err != nil {
			return nil, &TemplateNotFoundError{Name: name, Root: root, Reason: fmt.Sprintf("missing or invalid %s: %v", tf.file, err)}
		}
		*tf.dst = t
	}
	return &pkg, nil
}

var templateFuncs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
}
