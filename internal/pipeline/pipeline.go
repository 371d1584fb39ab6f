// Package pipeline loads a declarative, YAML-encoded pass list and
// resolves it against a registry of named passes, normalizing each
// document name (snake_case or any other casing) to the registry's
// canonical CamelCase identifier before lookup.
package pipeline

import (
	"sort"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"

	"ssacore/internal/errs"
	"ssacore/internal/pass"
)

// Factory builds a fresh pass.Pass instance, given the per-pass option
// map from the document (nil if the document entry had no options).
type Factory func(options map[string]interface{}) (pass.Pass, error)

// Registry maps a canonical CamelCase pass name to its Factory.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs factory under name, normalized to the registry's
// canonical CamelCase form (e.g. "dead_code_elimination" becomes
// "DeadCodeElimination").
func (r *Registry) Register(name string, factory Factory) {
	r.factories[strcase.ToCamel(name)] = factory
}

// Names returns every registered pass name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// entry is one line of the YAML pass-list document: a pass name plus
// an optional free-form option map (e.g.
// `{name: internalize, options: {keep: [main]}}`).
type entry struct {
	Name    string                 `yaml:"name"`
	Options map[string]interface{} `yaml:"options"`
}

// document is the top-level YAML shape: an ordered list of entries.
type document struct {
	Passes []entry `yaml:"passes"`
}

// Load parses a YAML pass-list document and resolves every entry
// against reg, normalizing each document name via strcase before
// lookup so `dead_code_elimination` and `DeadCodeElimination` both
// resolve to the registry's `DeadCodeElimination` factory.
func Load(yamlDoc []byte, reg *Registry) ([]pass.Pass, error) {
	var doc document
	if err := yaml.Unmarshal(yamlDoc, &doc); err != nil {
		return nil, errs.Wrap(errs.PassFatal, err, "parsing pipeline document")
	}

	passes := make([]pass.Pass, 0, len(doc.Passes))
	for _, e := range doc.Passes {
		canonical := strcase.ToCamel(e.Name)
		factory, ok := reg.factories[canonical]
		if !ok {
			return nil, errs.New(errs.PassFatal, "unknown pass %q (normalized %q)", e.Name, canonical)
		}
		p, err := factory(e.Options)
		if err != nil {
			return nil, errs.Wrap(errs.PassFatal, err, "constructing pass %q", canonical)
		}
		passes = append(passes, p)
	}
	return passes, nil
}
