package prompts

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	errs "vibelymap/pkg/errors"
)

// Manager loads, compiles and renders prompt templates.
// Templates are compiled once at startup for performance. An optional
// override directory lets operators swap prompt wording without a rebuild;
// external files shadow embedded ones by name.
type Manager struct {
	mu   sync.RWMutex
	tpls map[string]*template.Template
}

// NewManager parses all embedded templates, then any *.txt.tmpl files found
// in overrideDir (empty = embedded only).
func NewManager(overrideDir string) (*Manager, error) {
	m := &Manager{tpls: make(map[string]*template.Template)}

	err := fs.WalkDir(FS(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".txt.tmpl") {
			return nil
		}
		b, rerr := fs.ReadFile(FS(), p)
		if rerr != nil {
			return fmt.Errorf("read template %s: %w", p, rerr)
		}
		return m.add(filepath.Base(p), string(b))
	})
	if err != nil {
		return nil, errs.NewBiz("prompts.NewManager", "failed to load embedded prompts", err)
	}

	if overrideDir != "" {
		entries, err := os.ReadDir(overrideDir)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt.tmpl") {
					continue
				}
				b, rerr := os.ReadFile(filepath.Join(overrideDir, e.Name()))
				if rerr != nil {
					continue
				}
				// Overrides replace embedded templates of the same name.
				if aerr := m.add(e.Name(), string(b)); aerr != nil {
					return nil, errs.NewValidation("prompts.NewManager",
						fmt.Sprintf("bad override template %s", e.Name()), aerr)
				}
			}
		}
	}

	return m, nil
}

func (m *Manager) add(filename, body string) error {
	name := strings.TrimSuffix(filename, ".txt.tmpl")
	tpl, err := template.New(name).Parse(body)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", filename, err)
	}
	m.mu.Lock()
	m.tpls[name] = tpl
	m.mu.Unlock()
	return nil
}

// Render executes a named template with data and returns the result string.
func (m *Manager) Render(name string, data any) (string, error) {
	m.mu.RLock()
	tpl, ok := m.tpls[name]
	m.mu.RUnlock()
	if !ok {
		return "", errs.NewValidation("prompts.Render", fmt.Sprintf("prompt template not found: %s", name), nil)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", errs.NewBiz("prompts.Render", fmt.Sprintf("execute template %s", name), err)
	}
	return sb.String(), nil
}
