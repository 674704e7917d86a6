// Package project persists a whole modeling session — one kinetic model
// plus its stimulus protocols — as a JSON tree mirroring the entity
// hierarchy. Every entity is a map from property name to value; children
// are grouped under their type name, as a single object or an array.
// The property "objectName" names an instance; expression fields are
// preserved verbatim as strings. Loading dispatches through a factory
// keyed by type name and skips unknown types, so newer files open in
// older builds.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kinetigo/kinetiq/model"
	"github.com/kinetigo/kinetiq/protocol"
)

// ErrPersistence wraps I/O and JSON failures at the persistence boundary.
var ErrPersistence = errors.New("project: persistence failed")

// Project aggregates a model and the protocols that drive it.
type Project struct {
	Name      string
	Model     *model.Model
	Protocols []*protocol.Protocol
}

// New returns a project seeded with a default model and one protocol.
func New(name string) *Project {
	return &Project{
		Name:      name,
		Model:     model.New("model"),
		Protocols: []*protocol.Protocol{protocol.New("protocol")},
	}
}

// Save writes the project tree as indented JSON.
func Save(w io.Writer, p *Project) error {
	tree := map[string]any{
		"objectName": p.Name,
		"Model":      modelToTree(p.Model),
		"Protocol":   childList(protocolsToTrees(p.Protocols)),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("Save: %w: %w", err, ErrPersistence)
	}

	return nil
}

// Load reads a project tree written by Save. Unknown child types are
// skipped; malformed JSON fails with ErrPersistence.
func Load(r io.Reader) (*Project, error) {
	var tree map[string]any
	if err := json.NewDecoder(r).Decode(&tree); err != nil {
		return nil, fmt.Errorf("Load: %w: %w", err, ErrPersistence)
	}
	p := &Project{Name: str(tree["objectName"])}
	for key, raw := range tree {
		create, ok := factory[key]
		if !ok {
			continue // unknown type
		}
		for _, childTree := range asList(raw) {
			create(p, childTree)
		}
	}

	return p, nil
}

// factory maps child type names to constructors attaching into a project.
var factory = map[string]func(*Project, map[string]any){
	"Model": func(p *Project, tree map[string]any) {
		p.Model = modelFromTree(tree)
	},
	"Protocol": func(p *Project, tree map[string]any) {
		p.Protocols = append(p.Protocols, protocolFromTree(tree))
	},
}

// childList collapses a single-element list to its lone object, matching
// the single-child-as-object convention.
func childList(trees []map[string]any) any {
	if len(trees) == 1 {
		return trees[0]
	}

	return trees
}

// asList accepts either a single object or an array of objects.
func asList(raw any) []map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		var out []map[string]any
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}

		return out
	default:
		return nil
	}
}

func str(v any) string {
	s, _ := v.(string)

	return s
}

func num(v any) float64 {
	f, _ := v.(float64)

	return f
}

func boolean(v any) bool {
	b, _ := v.(bool)

	return b
}

func position(v any) [3]float64 {
	var out [3]float64
	if list, ok := v.([]any); ok {
		for i := 0; i < len(list) && i < 3; i++ {
			out[i] = num(list[i])
		}
	}

	return out
}
