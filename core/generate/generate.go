// Package generate turns validated resource descriptions into named files.
package generate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/artpar/readerspec/core/spec"
)

// File is one generated artifact. Name is a slash-separated path relative
// to the output directory.
type File struct {
	Name    string
	Content []byte
}

// Generator produces files from every valid description of a build.
type Generator interface {
	Name() string
	Generate(rds []spec.ResourceDescription) ([]File, error)
}

// Builtin returns the generators shipped with readerspec, in run order.
func Builtin() []Generator {
	return []Generator{
		NewOpenAPI(),
		NewMarkdown(),
		NewYAML(),
	}
}

// Select returns the builtin generators named in names. An empty list
// selects all of them.
func Select(names []string) ([]Generator, error) {
	all := Builtin()
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]Generator, len(all))
	for _, g := range all {
		byName[g.Name()] = g
	}

	out := make([]Generator, 0, len(names))
	for _, n := range names {
		g, ok := byName[strings.TrimSpace(n)]
		if !ok {
			return nil, fmt.Errorf("unknown generator %q (available: %s)", n, strings.Join(Names(), ", "))
		}
		out = append(out, g)
	}
	return out, nil
}

// Names lists the builtin generator names.
func Names() []string {
	var names []string
	for _, g := range Builtin() {
		names = append(names, g.Name())
	}
	return names
}

// Run runs every generator and concatenates their files. Two files with
// the same name are an error, whichever generators produced them.
func Run(generators []Generator, rds []spec.ResourceDescription) ([]File, error) {
	var files []File
	owner := make(map[string]string)

	for _, g := range generators {
		out, err := g.Generate(rds)
		if err != nil {
			return nil, fmt.Errorf("%s generator: %w", g.Name(), err)
		}
		for _, f := range out {
			if prev, ok := owner[f.Name]; ok {
				return nil, fmt.Errorf("duplicate file %q from %s and %s generators", f.Name, prev, g.Name())
			}
			owner[f.Name] = g.Name()
			files = append(files, f)
		}
	}
	return files, nil
}

// sortedByResource returns rds ordered by resource name so output does not
// depend on document discovery order.
func sortedByResource(rds []spec.ResourceDescription) []spec.ResourceDescription {
	out := append([]spec.ResourceDescription(nil), rds...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Resource < out[j].Resource
	})
	return out
}
