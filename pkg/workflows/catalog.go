// Package workflows holds the catalog of benchmark workflows the dashboard can
// query, one per input/output sequence-length scenario.
package workflows

import (
	"fmt"
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultWorkflow is queried when a request names no workflow.
const DefaultWorkflow = "full-sweep-1k1k-scheduler.yml"

// validFile matches workflow identifiers safe to place in an API path.
var validFile = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Workflow describes one benchmark workflow.
type Workflow struct {
	File  string `yaml:"file" json:"file"`
	Label string `yaml:"label" json:"label"`
	ISL   int    `yaml:"isl" json:"isl"`
	OSL   int    `yaml:"osl" json:"osl"`
}

type catalogFile struct {
	Default   string     `yaml:"default"`
	Workflows []Workflow `yaml:"workflows"`
}

// Builtin lists the scheduled full-sweep workflows.
func Builtin() []Workflow {
	return []Workflow{
		{File: "full-sweep-1k1k-scheduler.yml", Label: "1k/1k", ISL: 1024, OSL: 1024},
		{File: "full-sweep-1k8k-scheduler.yml", Label: "1k/8k", ISL: 1024, OSL: 8192},
		{File: "full-sweep-8k1k-scheduler.yml", Label: "8k/1k", ISL: 8192, OSL: 1024},
	}
}

// ValidFile reports whether name is a usable workflow identifier.
func ValidFile(name string) bool {
	return validFile.MatchString(name)
}

// Catalog is the current set of workflows. It is safe for concurrent use and
// may be reloaded from its file while in use.
type Catalog struct {
	mu        sync.RWMutex
	path      string
	workflows []Workflow
	def       string

	watcher  *watcher
	onReload func()
}

// NewCatalog returns a catalog holding the built-in workflows.
func NewCatalog() *Catalog {
	return &Catalog{workflows: Builtin(), def: DefaultWorkflow}
}

// LoadCatalog reads a catalog from a YAML file. An empty path returns the
// built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := NewCatalog()
	if path == "" {
		return c, nil
	}
	c.path = path
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the file the catalog was loaded from, if any.
func (c *Catalog) Path() string {
	return c.path
}

// Reload re-reads the catalog file. On error the current contents are kept.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read workflow catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse workflow catalog: %w", err)
	}
	if err := validate(&file); err != nil {
		return fmt.Errorf("invalid workflow catalog %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.workflows = file.Workflows
	c.def = file.Default
	callback := c.onReload
	c.mu.Unlock()

	if callback != nil {
		callback()
	}
	return nil
}

func validate(file *catalogFile) error {
	if len(file.Workflows) == 0 {
		return fmt.Errorf("no workflows defined")
	}
	seen := make(map[string]bool, len(file.Workflows))
	for i := range file.Workflows {
		w := &file.Workflows[i]
		if !ValidFile(w.File) {
			return fmt.Errorf("workflow %d: invalid file %q", i, w.File)
		}
		if seen[w.File] {
			return fmt.Errorf("workflow %q listed twice", w.File)
		}
		seen[w.File] = true
		if w.Label == "" {
			w.Label = w.File
		}
	}
	if file.Default == "" {
		file.Default = file.Workflows[0].File
	}
	if !seen[file.Default] {
		return fmt.Errorf("default workflow %q is not listed", file.Default)
	}
	return nil
}

// List returns a copy of the workflows in catalog order.
func (c *Catalog) List() []Workflow {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Workflow(nil), c.workflows...)
}

// Default returns the default workflow file.
func (c *Catalog) Default() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.def
}

// Lookup returns the catalog entry for file.
func (c *Catalog) Lookup(file string) (Workflow, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, w := range c.workflows {
		if w.File == file {
			return w, true
		}
	}
	return Workflow{}, false
}

// SetOnReload sets a callback run after every successful reload.
func (c *Catalog) SetOnReload(callback func()) {
	c.mu.Lock()
	c.onReload = callback
	c.mu.Unlock()
}
