package document

import "strings"

// SectionType is the semantic category of a prose section.
type SectionType string

// Section types.
const (
	SectionWhat    SectionType = "what"
	SectionHow     SectionType = "how"
	SectionReturns SectionType = "returns"
	SectionExample SectionType = "example"
	SectionBelongs SectionType = "belongs"
	SectionNotes   SectionType = "notes"
	SectionCombine SectionType = "combine"
)

// classifyRules are evaluated in order; the first match wins.
var classifyRules = []struct {
	keywords []string
	typ      SectionType
}{
	{[]string{"what", "ask"}, SectionWhat},
	{[]string{"how", "narrow"}, SectionHow},
	{[]string{"return", "get back"}, SectionReturns},
	{[]string{"example", "looks like"}, SectionExample},
	{[]string{"belong", "ownership"}, SectionBelongs},
	{[]string{"combine", "mix"}, SectionCombine},
	{[]string{"note"}, SectionNotes},
}

// Classify infers a section's type from its heading text.
// Headings that match no rule are treated as SectionWhat.
func Classify(title string) SectionType {
	lower := strings.ToLower(title)
	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.typ
			}
		}
	}
	return SectionWhat
}
