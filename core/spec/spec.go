// Package spec defines the resource description: the structured block
// embedded in every spec document and the unit handed to generators.
//
// The vocabularies declared here (field types, filter operators, sort
// directions) are shared by the prompt footer and the validation rules so
// the two cannot drift apart.
package spec

import (
	"strings"

	"github.com/goccy/go-json"
)

// FieldType is the declared type of a resource field.
type FieldType string

// Field types.
const (
	TypeString  FieldType = "string"
	TypeBoolean FieldType = "boolean"
	TypeNumber  FieldType = "number"
	TypeArray   FieldType = "array"
)

// FieldTypes lists every accepted field type, in canonical order.
var FieldTypes = []FieldType{TypeString, TypeBoolean, TypeNumber, TypeArray}

// Valid reports whether t is part of the field type vocabulary.
func (t FieldType) Valid() bool {
	for _, ft := range FieldTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// Operator is a filter operator.
type Operator string

// Filter operators.
const (
	OpEquals   Operator = "equals"
	OpSearch   Operator = "search"
	OpContains Operator = "contains"
	OpIn       Operator = "in"
	OpRange    Operator = "range"
)

// Operators lists every accepted filter operator, in canonical order.
var Operators = []Operator{OpEquals, OpSearch, OpContains, OpIn, OpRange}

// Valid reports whether op is part of the operator vocabulary.
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if op == o {
			return true
		}
	}
	return false
}

// RequiresValues reports whether the operator needs a non-empty values list.
func (op Operator) RequiresValues() bool {
	return op == OpEquals || op == OpIn || op == OpRange
}

// RequiresTarget reports whether the operator needs a target field.
func (op Operator) RequiresTarget() bool {
	return op == OpSearch || op == OpContains
}

// SortDirections lists the sort direction values generated documents use.
var SortDirections = []string{"ascending", "descending"}

// FieldTypeNames returns the field type vocabulary as strings.
func FieldTypeNames() []string {
	out := make([]string, len(FieldTypes))
	for i, t := range FieldTypes {
		out[i] = string(t)
	}
	return out
}

// OperatorNames returns the operator vocabulary as strings.
func OperatorNames() []string {
	out := make([]string, len(Operators))
	for i, op := range Operators {
		out[i] = string(op)
	}
	return out
}

// ValueOperators returns the operators that require values.
func ValueOperators() []Operator {
	var out []Operator
	for _, op := range Operators {
		if op.RequiresValues() {
			out = append(out, op)
		}
	}
	return out
}

// TargetOperators returns the operators that require a target.
func TargetOperators() []Operator {
	var out []Operator
	for _, op := range Operators {
		if op.RequiresTarget() {
			out = append(out, op)
		}
	}
	return out
}

// Field is one attribute of a resource.
type Field struct {
	Name     string    `json:"name" yaml:"name"`
	Type     FieldType `json:"type" yaml:"type"`
	Desc     string    `json:"desc,omitempty" yaml:"desc,omitempty"`
	Relation string    `json:"relation,omitempty" yaml:"relation,omitempty"`
}

// Filter is one query filter exposed by the list endpoint.
type Filter struct {
	Field  string   `json:"field" yaml:"field"`
	Op     Operator `json:"op" yaml:"op"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
	Target string   `json:"target,omitempty" yaml:"target,omitempty"`
}

// SortOption is one sortable field and its allowed directions.
type SortOption struct {
	Field string   `json:"field" yaml:"field"`
	Dir   []string `json:"dir" yaml:"dir"`
}

// Pagination bounds for the list endpoint.
type Pagination struct {
	MaxPer     int `json:"maxPer" yaml:"maxPer"`
	DefaultPer int `json:"defaultPer" yaml:"defaultPer"`
	StartPage  int `json:"startPage" yaml:"startPage"`
}

// UnmarshalJSON accepts any JSON number and truncates it toward zero.
// Fractional values are reported as warnings by validation.
func (p *Pagination) UnmarshalJSON(data []byte) error {
	var raw struct {
		MaxPer     float64 `json:"maxPer"`
		DefaultPer float64 `json:"defaultPer"`
		StartPage  float64 `json:"startPage"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.MaxPer = int(raw.MaxPer)
	p.DefaultPer = int(raw.DefaultPer)
	p.StartPage = int(raw.StartPage)
	return nil
}

// Ownership names the field that ties a record to its owner.
type Ownership struct {
	By string `json:"by" yaml:"by"`
}

// ResourceDescription is the canonical description of one API resource.
type ResourceDescription struct {
	Resource  string       `json:"resource" yaml:"resource"`
	Fields    []Field      `json:"fields" yaml:"fields"`
	Filters   []Filter     `json:"filters" yaml:"filters"`
	Sort      []SortOption `json:"sort" yaml:"sort"`
	Paginate  Pagination   `json:"paginate" yaml:"paginate"`
	Ownership Ownership    `json:"ownership" yaml:"ownership"`
	Returns   []string     `json:"returns" yaml:"returns"`
}

// Field returns the field with the given name.
func (rd ResourceDescription) Field(name string) (Field, bool) {
	for _, f := range rd.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasAnyField reports whether any of the names is declared as a field.
func (rd ResourceDescription) HasAnyField(names ...string) bool {
	for _, n := range names {
		if _, ok := rd.Field(n); ok {
			return true
		}
	}
	return false
}

// normalized returns a copy whose nil slices are empty, so encoding always
// emits every key.
func (rd ResourceDescription) normalized() ResourceDescription {
	if rd.Fields == nil {
		rd.Fields = []Field{}
	}
	if rd.Filters == nil {
		rd.Filters = []Filter{}
	}
	if rd.Sort == nil {
		rd.Sort = []SortOption{}
	} else {
		sorts := make([]SortOption, len(rd.Sort))
		for i, s := range rd.Sort {
			if s.Dir == nil {
				s.Dir = []string{}
			}
			sorts[i] = s
		}
		rd.Sort = sorts
	}
	if rd.Returns == nil {
		rd.Returns = []string{}
	}
	return rd
}

// Format renders rd as the indented block text stored in documents.
func Format(rd ResourceDescription) (string, error) {
	data, err := json.MarshalIndent(rd.normalized(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Parse decodes block text into a resource description.
func Parse(text string) (ResourceDescription, error) {
	var rd ResourceDescription
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &rd); err != nil {
		return ResourceDescription{}, err
	}
	return rd, nil
}

// Decode converts a loosely typed value, as produced by a generic JSON
// decode, into a resource description.
func Decode(v any) (ResourceDescription, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return ResourceDescription{}, err
	}
	var rd ResourceDescription
	if err := json.Unmarshal(data, &rd); err != nil {
		return ResourceDescription{}, err
	}
	return rd, nil
}

// ToMap converts rd into the generic form accepted by validation.
func ToMap(rd ResourceDescription) (map[string]any, error) {
	data, err := json.Marshal(rd.normalized())
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
