package validation_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/artpar/readerspec/core/spec"
	"github.com/artpar/readerspec/core/validation"
)

func decode(t *testing.T, text string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func validBlock() map[string]any {
	return map[string]any{
		"resource": "todos",
		"fields": []any{
			map[string]any{"name": "id", "type": "string"},
			map[string]any{"name": "createdAt", "type": "string"},
		},
		"filters":   []any{},
		"sort":      []any{},
		"paginate":  map[string]any{"maxPer": 100.0, "defaultPer": 10.0, "startPage": 1.0},
		"ownership": map[string]any{"by": "user"},
		"returns":   []any{"id"},
	}
}

func hasMessage(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestValidate_TodosScenario(t *testing.T) {
	block := decode(t, `{"resource":"todos","fields":[{"name":"id","type":"string"}],"filters":[],"sort":[],"paginate":{"maxPer":100,"defaultPer":10,"startPage":1},"ownership":{"by":"user"},"returns":["id"]}`)

	result := validation.Validate(block)

	if !result.Valid {
		t.Fatalf("Valid = false, errors: %v", result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v", result.Errors)
	}
	if !hasMessage(result.Suggestions, `"createdAt"`) {
		t.Errorf("Suggestions = %v, want createdAt suggestion", result.Suggestions)
	}
	if hasMessage(result.Suggestions, `"id" field`) {
		t.Errorf("unexpected id suggestion: %v", result.Suggestions)
	}
}

func TestValidate_NotAnObject(t *testing.T) {
	for _, in := range []any{nil, "todos", 42.0, []any{}} {
		result := validation.Validate(in)
		if result.Valid {
			t.Errorf("Validate(%v).Valid = true", in)
		}
		if len(result.Errors) != 1 || result.Errors[0] != "Data must be an object" {
			t.Errorf("Validate(%v).Errors = %v", in, result.Errors)
		}
	}
}

func TestValidate_EmptyObjectCollectsEverything(t *testing.T) {
	result := validation.Validate(map[string]any{})

	want := []string{
		"resource must be a string",
		"fields must be an array",
		"filters must be an array",
		"sort must be an array",
		"paginate must be an object",
		"ownership must be an object",
		"returns must be an array",
	}
	if !reflect.DeepEqual(result.Errors, want) {
		t.Errorf("Errors =\n%v\nwant\n%v", result.Errors, want)
	}
}

func TestValidate_DuplicateFilterField(t *testing.T) {
	block := validBlock()
	block["filters"] = []any{
		map[string]any{"field": "status", "op": "equals", "values": []any{"open"}},
		map[string]any{"field": "status", "op": "in", "values": []any{"open", "closed"}},
	}

	result := validation.Validate(block)

	if result.Valid {
		t.Fatal("Valid = true for duplicate filter field")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", result.Errors)
	}
	if !strings.Contains(result.Errors[0], `"status"`) || !strings.HasPrefix(result.Errors[0], "filters[1]: Duplicate filter field") {
		t.Errorf("Errors[0] = %q", result.Errors[0])
	}
	if !hasMessage(result.Suggestions, "Consider combining filters") {
		t.Errorf("Suggestions = %v", result.Suggestions)
	}
}

func TestValidate_DuplicateAmongOtherErrors(t *testing.T) {
	block := validBlock()
	block["resource"] = 7.0
	block["filters"] = []any{
		map[string]any{"field": "q", "op": "like"},
		map[string]any{"field": "q", "op": "search"},
	}

	result := validation.Validate(block)

	if !hasMessage(result.Errors, `Duplicate filter field "q"`) {
		t.Errorf("Errors = %v, want duplicate field error", result.Errors)
	}
	if len(result.Errors) != 4 {
		t.Errorf("len(Errors) = %d, want 4: %v", len(result.Errors), result.Errors)
	}
}

func TestValidate_FieldRules(t *testing.T) {
	block := validBlock()
	block["fields"] = []any{
		map[string]any{"name": "id", "type": "uuid"},
		map[string]any{"type": "string"},
		map[string]any{"name": "title"},
		map[string]any{"name": "body", "type": "string", "desc": 5.0, "relation": true},
		"nope",
	}

	result := validation.Validate(block)

	want := []string{
		`fields[0].type must be one of: string, boolean, number, array. Got "uuid". Use "string" for IDs, dates, and text content.`,
		"fields[1].name must be a string",
		"fields[2].type must be a string",
		"fields[3].desc must be a string if provided",
		"fields[3].relation must be a string if provided",
		"fields[4] must be an object",
	}
	if !reflect.DeepEqual(result.Errors, want) {
		t.Errorf("Errors =\n%v\nwant\n%v", result.Errors, want)
	}
}

func TestValidate_FilterRules(t *testing.T) {
	tests := []struct {
		name   string
		filter map[string]any
		want   string
	}{
		{"unknown op", map[string]any{"field": "a", "op": "like"},
			`filters[0].op must be one of: equals, search, contains, in, range. Got "like". Did you mean "search" or "contains"?`},
		{"missing op", map[string]any{"field": "a"}, "filters[0].op must be a string"},
		{"missing field", map[string]any{"op": "search", "target": "title"}, "filters[0].field must be a string"},
		{"equals without values", map[string]any{"field": "a", "op": "equals"},
			"filters[0].values must be a non-empty array of strings for equals operation"},
		{"in with empty values", map[string]any{"field": "a", "op": "in", "values": []any{}},
			"filters[0].values must be a non-empty array of strings for in operation"},
		{"range with numbers", map[string]any{"field": "a", "op": "range", "values": []any{1.0, 2.0}},
			"filters[0].values must be a non-empty array of strings for range operation"},
		{"search without target", map[string]any{"field": "q", "op": "search"},
			"filters[0].target must be a string for search operation"},
		{"contains with empty target", map[string]any{"field": "q", "op": "contains", "target": ""},
			"filters[0].target must be a string for contains operation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := validBlock()
			block["filters"] = []any{tt.filter}

			result := validation.Validate(block)

			if result.Valid {
				t.Fatal("Valid = true")
			}
			if len(result.Errors) != 1 || result.Errors[0] != tt.want {
				t.Errorf("Errors = %v, want [%s]", result.Errors, tt.want)
			}
		})
	}
}

func TestValidate_ValidFilters(t *testing.T) {
	block := validBlock()
	block["filters"] = []any{
		map[string]any{"field": "status", "op": "equals", "values": []any{"draft"}},
		map[string]any{"field": "q", "op": "search", "target": "title"},
		map[string]any{"field": "tags", "op": "in", "values": []any{"a", "b"}},
		map[string]any{"field": "createdAt", "op": "range", "values": []any{"string"}},
	}

	result := validation.Validate(block)

	if !result.Valid {
		t.Errorf("Errors = %v", result.Errors)
	}
}

func TestValidate_SortRules(t *testing.T) {
	block := validBlock()
	block["sort"] = []any{
		map[string]any{"field": "createdAt", "dir": []any{"ascending", "descending"}},
		map[string]any{"field": "createdAt", "dir": []any{"descending"}},
		map[string]any{"field": "title", "dir": "asc"},
		map[string]any{"dir": []any{1.0}},
	}

	result := validation.Validate(block)

	want := []string{
		`sort[1]: Duplicate sort field "createdAt". Each sort option must have a unique field name.`,
		"sort[2].dir must be an array of strings",
		"sort[3].field must be a string",
		"sort[3].dir must be an array of strings",
	}
	if !reflect.DeepEqual(result.Errors, want) {
		t.Errorf("Errors =\n%v\nwant\n%v", result.Errors, want)
	}
}

func TestValidate_PaginationRules(t *testing.T) {
	tests := []struct {
		name     string
		paginate map[string]any
		want     []string
	}{
		{"valid", map[string]any{"maxPer": 50.0, "defaultPer": 50.0, "startPage": 1.0}, nil},
		{"zero maxPer", map[string]any{"maxPer": 0.0, "defaultPer": 0.5, "startPage": 1.0},
			[]string{"paginate.maxPer must be a positive number", "paginate.defaultPer cannot be greater than paginate.maxPer"}},
		{"string values", map[string]any{"maxPer": "100", "defaultPer": "10", "startPage": "1"},
			[]string{"paginate.maxPer must be a positive number", "paginate.defaultPer must be a positive number", "paginate.startPage must be a number >= 1"}},
		{"defaultPer above maxPer", map[string]any{"maxPer": 10.0, "defaultPer": 20.0, "startPage": 1.0},
			[]string{"paginate.defaultPer cannot be greater than paginate.maxPer"}},
		{"startPage zero", map[string]any{"maxPer": 10.0, "defaultPer": 5.0, "startPage": 0.0},
			[]string{"paginate.startPage must be a number >= 1"}},
		{"mixed types skip comparison", map[string]any{"maxPer": "10", "defaultPer": 20.0, "startPage": 1.0},
			[]string{"paginate.maxPer must be a positive number"}},
		{"int values", map[string]any{"maxPer": 10, "defaultPer": 5, "startPage": 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := validBlock()
			block["paginate"] = tt.paginate

			result := validation.Validate(block)

			if len(tt.want) == 0 {
				if !result.Valid {
					t.Errorf("Errors = %v", result.Errors)
				}
				return
			}
			if !reflect.DeepEqual(result.Errors, tt.want) {
				t.Errorf("Errors = %v, want %v", result.Errors, tt.want)
			}
		})
	}
}

func TestValidate_OwnershipAndReturns(t *testing.T) {
	block := validBlock()
	block["ownership"] = map[string]any{"by": ""}
	block["returns"] = []any{"id", 3.0}

	result := validation.Validate(block)

	want := []string{"ownership.by must be a string", "returns[1] must be a string"}
	if !reflect.DeepEqual(result.Errors, want) {
		t.Errorf("Errors = %v, want %v", result.Errors, want)
	}
}

func TestValidate_Warnings(t *testing.T) {
	block := validBlock()
	block["filters"] = []any{
		map[string]any{"field": "a", "op": "search", "target": "a"},
		map[string]any{"field": "b", "op": "contains", "target": "b"},
		map[string]any{"field": "c", "op": "search", "target": "c"},
	}
	block["paginate"] = map[string]any{"maxPer": 5000.0, "defaultPer": 10.0, "startPage": 1.0}

	result := validation.Validate(block)

	if !result.Valid {
		t.Fatalf("Errors = %v", result.Errors)
	}
	if !hasMessage(result.Warnings, "Multiple search filters") {
		t.Errorf("Warnings = %v", result.Warnings)
	}
	if !hasMessage(result.Warnings, "Very high maxPer") {
		t.Errorf("Warnings = %v", result.Warnings)
	}
}

func TestValidate_FractionalPaginationWarns(t *testing.T) {
	block := validBlock()
	block["paginate"] = map[string]any{"maxPer": 100.0, "defaultPer": 10.5, "startPage": 1.0}

	result := validation.Validate(block)

	if !result.Valid {
		t.Fatalf("Errors = %v", result.Errors)
	}
	if !hasMessage(result.Warnings, "paginate.defaultPer should be a whole number") {
		t.Errorf("Warnings = %v", result.Warnings)
	}
}

func TestValidate_Suggestions(t *testing.T) {
	block := validBlock()
	block["fields"] = []any{map[string]any{"name": "title", "type": "string"}}
	block["filters"] = []any{
		map[string]any{"field": "q", "op": "contains", "values": []any{"x"}},
		map[string]any{"field": "status", "op": "equals", "values": []any{}},
	}

	result := validation.Validate(block)

	for _, want := range []string{
		`filters[0]: Consider using "search" with "target"`,
		"filters[1]: Empty values array not allowed",
		`Consider adding an "id" field`,
		`Consider adding a "createdAt" field`,
	} {
		if !hasMessage(result.Suggestions, want) {
			t.Errorf("Suggestions = %v, missing %q", result.Suggestions, want)
		}
	}
}

func TestValidate_Deterministic(t *testing.T) {
	block := map[string]any{
		"resource": "",
		"fields":   []any{map[string]any{"name": "id", "type": "date"}},
		"filters": []any{
			map[string]any{"field": "a", "op": "x"},
			map[string]any{"field": "a", "op": "equals"},
		},
		"sort":     "nope",
		"paginate": map[string]any{"maxPer": -1.0},
	}

	first := validation.Validate(block)
	for i := 0; i < 10; i++ {
		again := validation.Validate(block)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%v\n%v", i, first.Errors, again.Errors)
		}
	}
}

func TestValidateDescription_RoundTrip(t *testing.T) {
	rd := spec.ResourceDescription{
		Resource: "posts",
		Fields: []spec.Field{
			{Name: "id", Type: spec.TypeString},
			{Name: "createdAt", Type: spec.TypeString},
		},
		Filters:   []spec.Filter{{Field: "q", Op: spec.OpSearch, Target: "title"}},
		Sort:      []spec.SortOption{{Field: "createdAt", Dir: []string{"descending"}}},
		Paginate:  spec.Pagination{MaxPer: 50, DefaultPer: 10, StartPage: 1},
		Ownership: spec.Ownership{By: "authorId"},
		Returns:   []string{"id"},
	}

	direct := validation.ValidateDescription(rd)
	if !direct.Valid {
		t.Fatalf("Errors = %v", direct.Errors)
	}

	text, err := spec.Format(rd)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	roundTrip := validation.Validate(decode(t, text))
	if !reflect.DeepEqual(direct, roundTrip) {
		t.Errorf("round trip result differs:\n%+v\n%+v", direct, roundTrip)
	}
}

func TestCheck(t *testing.T) {
	rd, result := validation.Check(validBlock())
	if !result.Valid {
		t.Fatalf("Errors = %v", result.Errors)
	}
	if rd.Resource != "todos" || rd.Paginate.MaxPer != 100 {
		t.Errorf("Check decoded %+v", rd)
	}

	block := validBlock()
	delete(block, "resource")
	rd, result = validation.Check(block)
	if result.Valid || rd.Resource != "" {
		t.Errorf("Check on invalid block = %+v, %+v", rd, result)
	}
}

func TestCheck_FractionTruncatedToZero(t *testing.T) {
	block := validBlock()
	block["paginate"] = map[string]any{"maxPer": 100.0, "defaultPer": 0.5, "startPage": 1.0}

	if result := validation.Validate(block); !result.Valid {
		t.Fatalf("Validate Errors = %v, want only a warning", result.Errors)
	}

	rd, result := validation.Check(block)
	if result.Valid {
		t.Fatalf("Check accepted %+v", rd)
	}
	if !hasMessage(result.Errors, "paginate.defaultPer must be a positive number after truncating") {
		t.Errorf("Errors = %v", result.Errors)
	}
	if rd.Resource != "" {
		t.Errorf("Check returned description %+v for invalid block", rd)
	}
}

func TestCheck_FractionTruncatedStaysValid(t *testing.T) {
	block := validBlock()
	block["paginate"] = map[string]any{"maxPer": 100.0, "defaultPer": 10.5, "startPage": 1.0}

	rd, result := validation.Check(block)
	if !result.Valid {
		t.Fatalf("Errors = %v", result.Errors)
	}
	if rd.Paginate.DefaultPer != 10 {
		t.Errorf("DefaultPer = %d, want 10", rd.Paginate.DefaultPer)
	}
	if again := validation.ValidateDescription(rd); !again.Valid {
		t.Errorf("decoded description invalid: %v", again.Errors)
	}
}
