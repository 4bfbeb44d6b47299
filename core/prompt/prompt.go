// Package prompt renders document sections into the instruction sent to the
// completion service.
package prompt

import (
	"fmt"
	"strings"

	"github.com/artpar/readerspec/core/document"
	"github.com/artpar/readerspec/core/spec"
)

const header = "Based on the following human-readable API specification sections, generate a valid JSON block for the ReaderSpec format:\n\n"

var typeHints = map[spec.FieldType]string{
	spec.TypeString:  "for text content, IDs, dates, and any text-based data",
	spec.TypeBoolean: `for yes/no values (use "yes"/"no" strings)`,
	spec.TypeNumber:  "for numeric values",
	spec.TypeArray:   "for lists",
}

var opHints = map[spec.Operator]string{
	spec.OpEquals:   "for exact matches",
	spec.OpSearch:   "for text search",
	spec.OpContains: `for text search, same as "search"`,
	spec.OpIn:       "for matching any value in a list",
	spec.OpRange:    "for numeric/date ranges",
}

// Format renders sections, in order, followed by the schema footer.
// The output depends only on its input.
func Format(sections []document.Section) string {
	var b strings.Builder
	b.WriteString(header)
	for _, s := range sections {
		fmt.Fprintf(&b, "## %s\n%s\n\n", s.Title, s.Content)
	}
	b.WriteString("\n")
	b.WriteString(Footer())
	return b.String()
}

// Footer describes the block schema. Its vocabularies come from package spec,
// the same lists the validator checks against.
func Footer() string {
	var b strings.Builder

	b.WriteString("Generate a JSON block that follows this schema:\n\n")

	b.WriteString("## Required Fields:\n")
	b.WriteString(`- "resource": string (lowercase, plural, e.g., "todos", "blog_posts")` + "\n")
	b.WriteString(`- "fields": array of field objects with name, type, and desc` + "\n")
	b.WriteString(`- "filters": array of filter objects` + "\n")
	b.WriteString(`- "sort": array of sort objects` + "\n")
	b.WriteString(`- "paginate": object with maxPer, defaultPer, startPage` + "\n")
	b.WriteString(`- "ownership": object with "by" field` + "\n")
	b.WriteString(`- "returns": array of strings describing what's returned` + "\n\n")

	b.WriteString("## Field Types (use exactly these):\n")
	for _, t := range spec.FieldTypes {
		fmt.Fprintf(&b, "- %q %s\n", string(t), typeHints[t])
	}
	b.WriteString("\n")

	b.WriteString("## Filter Operations (use exactly these):\n")
	for _, op := range spec.Operators {
		fmt.Fprintf(&b, "- %q: %s, %s\n", string(op), opHints[op], companion(op))
	}
	b.WriteString("\n")

	b.WriteString("## Pagination:\n")
	b.WriteString(`- "maxPer" and "defaultPer" are positive whole numbers, "defaultPer" no greater than "maxPer"` + "\n")
	b.WriteString(`- "startPage" is a whole number of at least 1` + "\n\n")

	b.WriteString("## Common Patterns:\n")
	b.WriteString(`- Use "q" as field name for general search filters` + "\n")
	b.WriteString(`- Use "id" for the unique identifier` + "\n")
	b.WriteString(`- Use "createdAt" for creation timestamps` + "\n")
	b.WriteString(`- Use "updatedAt" for modification timestamps` + "\n")
	b.WriteString(`- Use "status" for state fields (draft, published, etc.)` + "\n\n")

	b.WriteString("## Important Notes:\n")
	b.WriteString(`- Use "string" for IDs, dates, and timestamps (not "id" or "datetime")` + "\n")
	b.WriteString("- Each filter must have a unique field name; avoid duplicate filter definitions\n")
	b.WriteString("- Each sort option must have a unique field name\n")
	fmt.Fprintf(&b, "- Sort objects must use %q (not %q) for direction field\n", "dir", "order")
	fmt.Fprintf(&b, "- Sort directions must be full words: %s (not \"asc\", \"desc\")\n", quoteAll(spec.SortDirections))
	b.WriteString("- Search filters must reference actual field names that exist in the fields array\n")
	b.WriteString("- All filter values arrays must contain actual values, not empty arrays\n")
	fmt.Fprintf(&b, "- For %s operations, provide meaningful example values\n", quoteOps(spec.ValueOperators()))
	b.WriteString(`- Use "string" as a placeholder for generic string values` + "\n\n")

	b.WriteString("## Example Filter:\n")
	b.WriteString(`{"field": "q", "op": "search", "target": "text"}` + "\n\n")

	b.WriteString("## Example Sort:\n")
	fmt.Fprintf(&b, "{\"field\": \"createdAt\", \"dir\": [%s]}\n\n", quoteAll(spec.SortDirections))

	b.WriteString("Only return the JSON block, no additional text.")

	return b.String()
}

func companion(op spec.Operator) string {
	switch {
	case op.RequiresValues():
		return `requires "values" array`
	case op.RequiresTarget():
		return `requires "target" field (not "values")`
	default:
		return "takes no companion attributes"
	}
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}

func quoteOps(ops []spec.Operator) string {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	return quoteAll(names)
}
