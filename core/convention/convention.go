// Package convention derives names and query parameters from a resource
// description. Generators share it so every artifact agrees on paths and
// parameter names.
package convention

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/artpar/readerspec/core/spec"
)

// Derived contains everything derived from one resource description.
type Derived struct {
	// Source is the original description.
	Source spec.ResourceDescription

	// Plural is the resource name as written; resources are named in the
	// plural by convention.
	Plural string

	// Singular is the singular form of the resource name.
	Singular string

	// Title is the singular name in title case, used for schema names.
	Title string

	// BasePath is the collection path, e.g. "/todos".
	BasePath string

	// HasID reports whether the resource declares an "id" field, which
	// enables the single-record path.
	HasID bool

	// Params are the list endpoint query parameters, in declaration order.
	Params []QueryParam

	// SortKeys are the accepted values of the sort parameter.
	SortKeys []string

	// Returned are the fields present in list responses.
	Returned []spec.Field
}

// ParamKind describes how a query parameter is matched.
type ParamKind string

const (
	ParamEquals   ParamKind = "equals"
	ParamIn       ParamKind = "in"
	ParamRangeMin ParamKind = "range_min"
	ParamRangeMax ParamKind = "range_max"
	ParamSearch   ParamKind = "search"
	ParamContains ParamKind = "contains"
)

// QueryParam is one list endpoint filter parameter.
type QueryParam struct {
	Name   string
	Field  string
	Kind   ParamKind
	Values []string
	Target string
}

// Pagination parameter names.
const (
	PageParam    = "page"
	PerPageParam = "per_page"
	SortParam    = "sort"
)

// Derive computes the derived form of rd.
func Derive(rd spec.ResourceDescription) Derived {
	singular := Singularize(rd.Resource)
	d := Derived{
		Source:   rd,
		Plural:   rd.Resource,
		Singular: singular,
		Title:    TitleCase(singular),
		BasePath: "/" + rd.Resource,
		HasID:    rd.HasAnyField("id"),
		Params:   deriveParams(rd.Filters),
		SortKeys: deriveSortKeys(rd.Sort),
		Returned: deriveReturned(rd),
	}
	return d
}

// DeriveAll derives every description, keeping order.
func DeriveAll(rds []spec.ResourceDescription) []Derived {
	out := make([]Derived, 0, len(rds))
	for _, rd := range rds {
		out = append(out, Derive(rd))
	}
	return out
}

// TitleCase upper-cases the first letter of each word and leaves the rest
// alone, so "todoItem" becomes "TodoItem".
func TitleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}

func deriveParams(filters []spec.Filter) []QueryParam {
	var params []QueryParam
	for _, f := range filters {
		base := QueryParam{Field: f.Field, Values: f.Values, Target: f.Target}
		switch f.Op {
		case spec.OpEquals:
			base.Name, base.Kind = f.Field, ParamEquals
			params = append(params, base)
		case spec.OpIn:
			base.Name, base.Kind = f.Field, ParamIn
			params = append(params, base)
		case spec.OpRange:
			lo, hi := base, base
			lo.Name, lo.Kind = f.Field+"_min", ParamRangeMin
			hi.Name, hi.Kind = f.Field+"_max", ParamRangeMax
			params = append(params, lo, hi)
		case spec.OpSearch:
			base.Name, base.Kind = f.Field, ParamSearch
			params = append(params, base)
		case spec.OpContains:
			base.Name, base.Kind = f.Field, ParamContains
			params = append(params, base)
		}
	}
	return params
}

// deriveSortKeys returns "field:dir" for every declared direction.
func deriveSortKeys(opts []spec.SortOption) []string {
	var keys []string
	for _, o := range opts {
		for _, dir := range o.Dir {
			keys = append(keys, o.Field+":"+strings.ToLower(dir))
		}
	}
	return keys
}

// deriveReturned resolves the returns list against the declared fields.
// Names with no declaration are treated as strings. An empty returns list
// returns every field.
func deriveReturned(rd spec.ResourceDescription) []spec.Field {
	if len(rd.Returns) == 0 {
		return append([]spec.Field(nil), rd.Fields...)
	}
	out := make([]spec.Field, 0, len(rd.Returns))
	for _, name := range rd.Returns {
		if f, ok := rd.Field(name); ok {
			out = append(out, f)
			continue
		}
		out = append(out, spec.Field{Name: name, Type: spec.TypeString})
	}
	return out
}
