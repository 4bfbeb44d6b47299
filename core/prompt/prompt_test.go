package prompt_test

import (
	"strings"
	"testing"

	"github.com/artpar/readerspec/core/document"
	"github.com/artpar/readerspec/core/prompt"
	"github.com/artpar/readerspec/core/spec"
)

func TestFormat_SectionsInOrder(t *testing.T) {
	sections := []document.Section{
		{Type: document.SectionWhat, Title: "What", Content: "All todos\n"},
		{Type: document.SectionHow, Title: "How to narrow", Content: "By status\n"},
	}

	out := prompt.Format(sections)

	first := strings.Index(out, "## What\nAll todos\n")
	second := strings.Index(out, "## How to narrow\nBy status\n")
	if first < 0 || second < 0 {
		t.Fatalf("sections missing from prompt:\n%s", out)
	}
	if first > second {
		t.Error("sections out of order")
	}
	if !strings.HasPrefix(out, "Based on the following human-readable API specification sections") {
		t.Error("prompt header missing")
	}
	if !strings.HasSuffix(out, "Only return the JSON block, no additional text.") {
		t.Error("prompt must end with the output instruction")
	}
}

func TestFormat_Deterministic(t *testing.T) {
	sections := []document.Section{{Title: "What", Content: "x\n"}}
	if prompt.Format(sections) != prompt.Format(sections) {
		t.Error("Format is not deterministic")
	}
}

func TestFooter_EnumeratesVocabulary(t *testing.T) {
	footer := prompt.Footer()

	for _, ft := range spec.FieldTypes {
		if !strings.Contains(footer, `- "`+string(ft)+`" `) {
			t.Errorf("footer missing field type %s", ft)
		}
	}

	for _, op := range spec.Operators {
		line := ""
		for _, l := range strings.Split(footer, "\n") {
			if strings.HasPrefix(l, `- "`+string(op)+`":`) {
				line = l
				break
			}
		}
		if line == "" {
			t.Errorf("footer missing operator %s", op)
			continue
		}
		if op.RequiresValues() && !strings.Contains(line, `requires "values" array`) {
			t.Errorf("operator %s line lacks values requirement: %s", op, line)
		}
		if op.RequiresTarget() && !strings.Contains(line, `requires "target" field`) {
			t.Errorf("operator %s line lacks target requirement: %s", op, line)
		}
	}

	for _, dir := range spec.SortDirections {
		if !strings.Contains(footer, `"`+dir+`"`) {
			t.Errorf("footer missing sort direction %s", dir)
		}
	}
}
