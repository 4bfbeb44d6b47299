package generate

import (
	"fmt"
	"strings"

	"github.com/artpar/readerspec/core/convention"
	"github.com/artpar/readerspec/core/spec"
)

// Markdown writes a reference page per resource under docs/ plus an index.
type Markdown struct{}

// NewMarkdown creates the markdown generator.
func NewMarkdown() *Markdown {
	return &Markdown{}
}

// Name returns the generator name.
func (g *Markdown) Name() string { return "markdown" }

// Generate renders the reference pages.
func (g *Markdown) Generate(rds []spec.ResourceDescription) ([]File, error) {
	rds = sortedByResource(rds)
	files := make([]File, 0, len(rds)+1)

	var index strings.Builder
	index.WriteString("# API Reference\n\n")
	if len(rds) == 0 {
		index.WriteString("No resources.\n")
	}

	for _, rd := range rds {
		d := convention.Derive(rd)
		fmt.Fprintf(&index, "- [%s](%s.md): `GET %s`\n", convention.TitleCase(d.Plural), rd.Resource, d.BasePath)
		files = append(files, File{
			Name:    "docs/" + rd.Resource + ".md",
			Content: []byte(RenderMarkdown(d)),
		})
	}

	files = append(files, File{Name: "docs/README.md", Content: []byte(index.String())})
	return files, nil
}

// RenderMarkdown renders the reference page of one resource.
func RenderMarkdown(d convention.Derived) string {
	var b strings.Builder
	rd := d.Source

	fmt.Fprintf(&b, "# %s\n\n", convention.TitleCase(d.Plural))
	fmt.Fprintf(&b, "`GET %s` returns a page of %s.\n", d.BasePath, d.Plural)
	if d.HasID {
		fmt.Fprintf(&b, "`GET %s/{id}` returns one %s.\n", d.BasePath, d.Singular)
	}
	if rd.Ownership.By != "" {
		fmt.Fprintf(&b, "\nRecords belong to a %s; only the requesting %s's records are returned.\n", rd.Ownership.By, rd.Ownership.By)
	}

	b.WriteString("\n## Fields\n\n")
	b.WriteString("| Name | Type | Description |\n|---|---|---|\n")
	for _, f := range rd.Fields {
		desc := f.Desc
		if f.Relation != "" {
			desc = strings.TrimSpace(desc + " (references " + f.Relation + ")")
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", f.Name, f.Type, escapeCell(desc))
	}

	if len(d.Params) > 0 {
		b.WriteString("\n## Filters\n\n")
		b.WriteString("| Parameter | Match | Values |\n|---|---|---|\n")
		for _, p := range d.Params {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", p.Name, describeParam(p), escapeCell(strings.Join(p.Values, ", ")))
		}
	}

	if len(d.SortKeys) > 0 {
		b.WriteString("\n## Sorting\n\n")
		fmt.Fprintf(&b, "Pass `%s` as one of:\n\n", convention.SortParam)
		for _, k := range d.SortKeys {
			fmt.Fprintf(&b, "- `%s`\n", k)
		}
	}

	b.WriteString("\n## Pagination\n\n")
	fmt.Fprintf(&b, "- `%s` starts at %d\n", convention.PageParam, rd.Paginate.StartPage)
	fmt.Fprintf(&b, "- `%s` defaults to %d, at most %d\n", convention.PerPageParam, rd.Paginate.DefaultPer, rd.Paginate.MaxPer)

	if len(d.Returned) > 0 {
		b.WriteString("\n## Response\n\nEach item in `data` has:\n\n")
		for _, f := range d.Returned {
			fmt.Fprintf(&b, "- `%s` (%s)\n", f.Name, f.Type)
		}
	}

	return b.String()
}

func describeParam(p convention.QueryParam) string {
	switch p.Kind {
	case convention.ParamEquals:
		return "exact match on " + p.Field
	case convention.ParamIn:
		return "any of, comma-separated, on " + p.Field
	case convention.ParamRangeMin:
		return "lower bound on " + p.Field
	case convention.ParamRangeMax:
		return "upper bound on " + p.Field
	case convention.ParamSearch:
		return "full-text search on " + p.Target
	case convention.ParamContains:
		return "substring match on " + p.Target
	}
	return string(p.Kind)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
