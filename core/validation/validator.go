// Package validation checks resource descriptions against the block schema.
// Validation never fails: every violation is collected into a Result in one
// pass, and warnings and suggestions never affect validity.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"

	"github.com/artpar/readerspec/core/spec"
)

// Limits that trigger warnings.
const (
	MaxSearchFilters = 2
	MaxPerLimit      = 1000
)

// Result holds every finding for one candidate block.
type Result struct {
	Valid       bool     `json:"isValid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// AddError records a violation and marks the result invalid.
func (r *Result) AddError(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AddWarning records a risk advisory.
func (r *Result) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// AddSuggestion records an improvement hint.
func (r *Result) AddSuggestion(format string, args ...any) {
	r.Suggestions = append(r.Suggestions, fmt.Sprintf(format, args...))
}

// Error returns the errors joined, or "" for a valid result.
func (r Result) Error() string {
	if r.Valid {
		return ""
	}
	return strings.Join(r.Errors, "; ")
}

func newResult() Result {
	return Result{
		Valid:       true,
		Errors:      []string{},
		Warnings:    []string{},
		Suggestions: []string{},
	}
}

// Validate checks a generically decoded block.
// The error list is deterministic for a given input.
func Validate(candidate any) Result {
	result := newResult()

	data, ok := candidate.(map[string]any)
	if !ok || data == nil {
		result.AddError("Data must be an object")
		return result
	}

	if !isNonEmptyString(data["resource"]) {
		result.AddError("resource must be a string")
	}

	validateFields(&result, data["fields"])
	validateFilters(&result, data["filters"])
	validateSort(&result, data["sort"])
	validatePagination(&result, data["paginate"])
	validateOwnership(&result, data["ownership"])
	validateReturns(&result, data["returns"])

	suggest(&result, data)
	warn(&result, data)

	return result
}

// ValidateDescription checks a typed resource description.
func ValidateDescription(rd spec.ResourceDescription) Result {
	m, err := spec.ToMap(rd)
	if err != nil {
		result := newResult()
		result.AddError("Data must be an object")
		return result
	}
	return Validate(m)
}

// Check validates candidate and, when valid, decodes it into a typed
// description. Decoding truncates fractional pagination values, so the
// decoded description is validated again and any rule it breaks makes the
// result invalid.
func Check(candidate any) (spec.ResourceDescription, Result) {
	result := Validate(candidate)
	if !result.Valid {
		return spec.ResourceDescription{}, result
	}
	rd, err := spec.Decode(candidate)
	if err != nil {
		result.AddError("Data could not be decoded: %v", err)
		return spec.ResourceDescription{}, result
	}
	if decoded := ValidateDescription(rd); !decoded.Valid {
		for _, msg := range decoded.Errors {
			result.AddError("%s after truncating to whole numbers", msg)
		}
		return spec.ResourceDescription{}, result
	}
	return rd, result
}

// -----------------------------------------------------------------------------
// Per-property rules
// -----------------------------------------------------------------------------

func validateFields(result *Result, v any) {
	fields, ok := v.([]any)
	if !ok {
		result.AddError("fields must be an array")
		return
	}

	for i, item := range fields {
		f, ok := item.(map[string]any)
		if !ok {
			result.AddError("fields[%d] must be an object", i)
			continue
		}

		if !isNonEmptyString(f["name"]) {
			result.AddError("fields[%d].name must be a string", i)
		}

		if !isNonEmptyString(f["type"]) {
			result.AddError("fields[%d].type must be a string", i)
		} else if typ := f["type"].(string); !spec.FieldType(typ).Valid() {
			result.AddError("fields[%d].type must be one of: %s. Got %q. Use \"string\" for IDs, dates, and text content.",
				i, strings.Join(spec.FieldTypeNames(), ", "), typ)
		}

		if desc, present := f["desc"]; present && !isString(desc) {
			result.AddError("fields[%d].desc must be a string if provided", i)
		}
		if rel, present := f["relation"]; present && !isString(rel) {
			result.AddError("fields[%d].relation must be a string if provided", i)
		}
	}
}

func validateFilters(result *Result, v any) {
	filters, ok := v.([]any)
	if !ok {
		result.AddError("filters must be an array")
		return
	}

	seen := make(map[string]bool)
	for i, item := range filters {
		f, ok := item.(map[string]any)
		if ok && isNonEmptyString(f["field"]) {
			name := f["field"].(string)
			if seen[name] {
				result.AddError("filters[%d]: Duplicate filter field %q. Each filter must have a unique field name.", i, name)
			}
			seen[name] = true
		}

		validateFilter(result, item, i)
	}
}

func validateFilter(result *Result, item any, i int) {
	f, ok := item.(map[string]any)
	if !ok {
		result.AddError("filters[%d] must be an object", i)
		return
	}

	if !isNonEmptyString(f["field"]) {
		result.AddError("filters[%d].field must be a string", i)
	}

	if !isNonEmptyString(f["op"]) {
		result.AddError("filters[%d].op must be a string", i)
		return
	}

	op := spec.Operator(f["op"].(string))
	if !op.Valid() {
		result.AddError("filters[%d].op must be one of: %s. Got %q. Did you mean \"search\" or \"contains\"?",
			i, strings.Join(spec.OperatorNames(), ", "), string(op))
		return
	}

	if op.RequiresValues() && !isNonEmptyStringArray(f["values"]) {
		result.AddError("filters[%d].values must be a non-empty array of strings for %s operation", i, op)
	}
	if op.RequiresTarget() && !isNonEmptyString(f["target"]) {
		result.AddError("filters[%d].target must be a string for %s operation", i, op)
	}
}

func validateSort(result *Result, v any) {
	sorts, ok := v.([]any)
	if !ok {
		result.AddError("sort must be an array")
		return
	}

	seen := make(map[string]bool)
	for i, item := range sorts {
		s, ok := item.(map[string]any)
		if !ok {
			result.AddError("sort[%d] must be an object", i)
			continue
		}

		if isNonEmptyString(s["field"]) {
			name := s["field"].(string)
			if seen[name] {
				result.AddError("sort[%d]: Duplicate sort field %q. Each sort option must have a unique field name.", i, name)
			}
			seen[name] = true
		} else {
			result.AddError("sort[%d].field must be a string", i)
		}

		if !isStringArray(s["dir"]) {
			result.AddError("sort[%d].dir must be an array of strings", i)
		}
	}
}

func validatePagination(result *Result, v any) {
	p, ok := v.(map[string]any)
	if !ok {
		result.AddError("paginate must be an object")
		return
	}

	maxPer, maxOK := toNumber(p["maxPer"])
	defaultPer, defaultOK := toNumber(p["defaultPer"])
	startPage, startOK := toNumber(p["startPage"])

	if !maxOK || maxPer <= 0 {
		result.AddError("paginate.maxPer must be a positive number")
	}
	if !defaultOK || defaultPer <= 0 {
		result.AddError("paginate.defaultPer must be a positive number")
	}
	if !startOK || startPage < 1 {
		result.AddError("paginate.startPage must be a number >= 1")
	}

	// Compared only once both are known to be numbers.
	if maxOK && defaultOK && defaultPer > maxPer {
		result.AddError("paginate.defaultPer cannot be greater than paginate.maxPer")
	}

	for _, n := range []struct {
		key string
		val float64
		ok  bool
	}{
		{"maxPer", maxPer, maxOK},
		{"defaultPer", defaultPer, defaultOK},
		{"startPage", startPage, startOK},
	} {
		if n.ok && n.val != math.Trunc(n.val) {
			result.AddWarning("paginate.%s should be a whole number. %v will be truncated to %d.", n.key, n.val, int(n.val))
		}
	}
}

func validateOwnership(result *Result, v any) {
	o, ok := v.(map[string]any)
	if !ok {
		result.AddError("ownership must be an object")
		return
	}
	if !isNonEmptyString(o["by"]) {
		result.AddError("ownership.by must be a string")
	}
}

func validateReturns(result *Result, v any) {
	returns, ok := v.([]any)
	if !ok {
		result.AddError("returns must be an array")
		return
	}
	for i, r := range returns {
		if !isString(r) {
			result.AddError("returns[%d] must be a string", i)
		}
	}
}

// -----------------------------------------------------------------------------
// Suggestions and warnings
// -----------------------------------------------------------------------------

func suggest(result *Result, data map[string]any) {
	if filters, ok := data["filters"].([]any); ok {
		seen := make(map[string]bool)
		for i, item := range filters {
			f, ok := item.(map[string]any)
			if !ok {
				continue
			}

			if isNonEmptyString(f["field"]) {
				name := f["field"].(string)
				if seen[name] {
					result.AddSuggestion("filters[%d]: Duplicate filter field %q. Consider combining filters or using different field names.", i, name)
				}
				seen[name] = true
			}

			op, _ := f["op"].(string)
			if spec.Operator(op) == spec.OpContains && f["values"] != nil && !isNonEmptyString(f["target"]) {
				result.AddSuggestion("filters[%d]: Consider using \"search\" with \"target\" field instead of \"contains\" with \"values\" for better clarity", i)
			}

			if values, ok := f["values"].([]any); ok && len(values) == 0 && spec.Operator(op).RequiresValues() {
				result.AddSuggestion("filters[%d]: Empty values array not allowed. Use [\"string\"] for generic values or provide specific examples.", i)
			}
		}
	}

	if fields, ok := data["fields"].([]any); ok {
		names := make(map[string]bool)
		for _, item := range fields {
			if f, ok := item.(map[string]any); ok {
				if name, ok := f["name"].(string); ok {
					names[name] = true
				}
			}
		}
		if !names["id"] && !names["_id"] {
			result.AddSuggestion("Consider adding an \"id\" field for unique identification")
		}
		if !names["createdAt"] && !names["created_at"] {
			result.AddSuggestion("Consider adding a \"createdAt\" field for tracking creation time")
		}
	}
}

func warn(result *Result, data map[string]any) {
	if filters, ok := data["filters"].([]any); ok {
		searches := 0
		for _, item := range filters {
			f, _ := item.(map[string]any)
			op, _ := f["op"].(string)
			if spec.Operator(op).RequiresTarget() {
				searches++
			}
		}
		if searches > MaxSearchFilters {
			result.AddWarning("Multiple search filters may impact performance. Consider consolidating search operations.")
		}
	}

	if p, ok := data["paginate"].(map[string]any); ok {
		if maxPer, ok := toNumber(p["maxPer"]); ok && maxPer > MaxPerLimit {
			result.AddWarning("Very high maxPer values may impact performance. Consider limiting to %d or less.", MaxPerLimit)
		}
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// isNonEmptyString treats "" like a missing value.
func isNonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}

func isStringArray(v any) bool {
	switch arr := v.(type) {
	case []string:
		return true
	case []any:
		for _, item := range arr {
			if !isString(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isNonEmptyStringArray(v any) bool {
	switch arr := v.(type) {
	case []string:
		return len(arr) > 0
	case []any:
		return len(arr) > 0 && isStringArray(arr)
	default:
		return false
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
