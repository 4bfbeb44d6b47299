// Package openapi generates OpenAPI 3.0 specifications from resource
// descriptions. Each resource gets a list endpoint whose query parameters
// follow its filters, sort options and pagination bounds.
package openapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/artpar/readerspec/core/convention"
	"github.com/artpar/readerspec/core/spec"
)

// Spec represents an OpenAPI 3.0 specification.
type Spec struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
	Tags       []Tag               `json:"tags,omitempty"`
}

// Info provides API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Server represents a server URL.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem contains operations for a path.
type PathItem struct {
	Get *Operation `json:"get,omitempty"`
}

// Operation represents an API operation.
type Operation struct {
	Tags        []string              `json:"tags,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Description string                `json:"description,omitempty"`
	OperationID string                `json:"operationId,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty"`
	Responses   map[string]Response   `json:"responses"`
	Security    []SecurityRequirement `json:"security,omitempty"`
}

// Parameter represents an API parameter.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"` // path, query
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Style       string  `json:"style,omitempty"`
	Explode     *bool   `json:"explode,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// Response represents an API response.
type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// MediaType represents a media type.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Schema represents a JSON Schema.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Format      string             `json:"format,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Default     any                `json:"default,omitempty"`
	Example     any                `json:"example,omitempty"`
}

// Components contains reusable schemas.
type Components struct {
	Schemas         map[string]*Schema        `json:"schemas,omitempty"`
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes,omitempty"`
}

// SecurityScheme defines an authentication method.
type SecurityScheme struct {
	Type         string `json:"type"`
	Scheme       string `json:"scheme,omitempty"`
	BearerFormat string `json:"bearerFormat,omitempty"`
	Description  string `json:"description,omitempty"`
}

// SecurityRequirement specifies required security schemes.
type SecurityRequirement map[string][]string

// Tag provides metadata for a group of operations.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Generator generates OpenAPI specs from resources.
type Generator struct {
	resources []convention.Derived
	info      Info
	servers   []Server
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(resources []convention.Derived) *Generator {
	return &Generator{
		resources: resources,
		info: Info{
			Title:       "API",
			Version:     "1.0.0",
			Description: "Generated from readerspec documents",
		},
	}
}

// ForResource creates a generator for a single resource, titled after it.
func ForResource(rd spec.ResourceDescription) *Generator {
	d := convention.Derive(rd)
	g := NewGenerator([]convention.Derived{d})
	g.info.Title = convention.TitleCase(d.Plural) + " API"
	return g
}

// SetInfo sets the API info.
func (g *Generator) SetInfo(info Info) {
	g.info = info
}

// AddServer adds a server URL.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{
		URL:         url,
		Description: description,
	})
}

// Generate creates the OpenAPI specification. Resources appear in the
// order they were given.
func (g *Generator) Generate() *Spec {
	s := &Spec{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Servers: g.servers,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: make(map[string]*Schema),
		},
		Tags: make([]Tag, 0, len(g.resources)),
	}

	for _, d := range g.resources {
		g.generateResource(s, d)
	}

	return s
}

func (g *Generator) generateResource(s *Spec, d convention.Derived) {
	s.Tags = append(s.Tags, Tag{
		Name:        d.Plural,
		Description: fmt.Sprintf("%s resource", d.Title),
	})

	g.generateSchemas(s, d)

	if owner := d.Source.Ownership.By; owner != "" {
		if s.Components.SecuritySchemes == nil {
			s.Components.SecuritySchemes = make(map[string]SecurityScheme)
		}
		s.Components.SecuritySchemes["bearerAuth"] = SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "Identifies the requesting owner",
		}
	}

	g.addListPath(s, d)
	if d.HasID {
		g.addGetPath(s, d)
	}
}

// generateSchemas creates the record, summary and list schemas.
func (g *Generator) generateSchemas(s *Spec, d convention.Derived) {
	s.Components.Schemas[d.Title] = objectSchema(d.Source.Fields)
	s.Components.Schemas[d.Title+"Summary"] = objectSchema(d.Returned)

	s.Components.Schemas[d.Title+"List"] = &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"data": {
				Type:  "array",
				Items: &Schema{Ref: "#/components/schemas/" + d.Title + "Summary"},
			},
			"meta": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":    {Type: "integer"},
					"perPage": {Type: "integer"},
					"total":   {Type: "integer", Description: "Total count of matching records"},
				},
			},
		},
		Required: []string{"data", "meta"},
	}
}

func objectSchema(fields []spec.Field) *Schema {
	obj := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema, len(fields)),
	}
	for _, f := range fields {
		obj.Properties[f.Name] = fieldToSchema(f)
	}
	return obj
}

// fieldToSchema converts a field to OpenAPI schema.
func fieldToSchema(f spec.Field) *Schema {
	s := &Schema{Description: f.Desc}

	switch f.Type {
	case spec.TypeBoolean:
		s.Type = "boolean"
	case spec.TypeNumber:
		s.Type = "number"
	case spec.TypeArray:
		s.Type = "array"
		s.Items = &Schema{Type: "string"}
	default:
		s.Type = "string"
	}

	if f.Relation != "" {
		ref := fmt.Sprintf("References %s", f.Relation)
		if s.Description == "" {
			s.Description = ref
		} else {
			s.Description += ". " + ref
		}
	}
	return s
}

// addListPath adds the list operation.
func (g *Generator) addListPath(s *Spec, d convention.Derived) {
	path := s.Paths[d.BasePath]

	params := g.filterParams(d)
	params = append(params, g.sortParam(d)...)
	params = append(params, g.pageParams(d)...)

	description := fmt.Sprintf("Retrieve a page of %s.", d.Plural)
	if len(d.Params) > 0 {
		var names []string
		for _, p := range d.Params {
			names = append(names, p.Name)
		}
		description += fmt.Sprintf("\n\n**Filters:** %s", strings.Join(names, ", "))
	}
	if len(d.SortKeys) > 0 {
		description += fmt.Sprintf("\n\n**Sort keys:** %s", strings.Join(d.SortKeys, ", "))
	}
	if owner := d.Source.Ownership.By; owner != "" {
		description += fmt.Sprintf("\n\nOnly records owned by the requesting %s are returned.", owner)
	}

	op := &Operation{
		Tags:        []string{d.Plural},
		Summary:     fmt.Sprintf("List %s", d.Plural),
		Description: description,
		OperationID: "list" + convention.TitleCase(d.Plural),
		Parameters:  params,
		Responses: map[string]Response{
			"200": {
				Description: "Successful response",
				Content: map[string]MediaType{
					"application/json": {Schema: &Schema{Ref: "#/components/schemas/" + d.Title + "List"}},
				},
			},
			"400": {Description: "Invalid query parameters"},
			"500": {Description: "Internal server error"},
		},
	}
	g.secure(op, d)

	path.Get = op
	s.Paths[d.BasePath] = path
}

func (g *Generator) filterParams(d convention.Derived) []Parameter {
	var params []Parameter
	for _, p := range d.Params {
		field, _ := d.Source.Field(p.Field)
		base := fieldToSchema(field)
		if field.Name == "" {
			base = &Schema{Type: "string"}
		}

		param := Parameter{Name: p.Name, In: "query"}
		switch p.Kind {
		case convention.ParamEquals:
			param.Description = fmt.Sprintf("Return only %s whose %s equals this value", d.Plural, p.Field)
			param.Schema = enumSchema(base, p.Values)
		case convention.ParamIn:
			explode := false
			param.Description = fmt.Sprintf("Return only %s whose %s is one of these comma-separated values", d.Plural, p.Field)
			param.Style = "form"
			param.Explode = &explode
			param.Schema = &Schema{Type: "array", Items: enumSchema(base, p.Values)}
		case convention.ParamRangeMin:
			param.Description = fmt.Sprintf("Lower bound for %s, inclusive", p.Field)
			param.Schema = rangeSchema(base, p.Values, 0)
		case convention.ParamRangeMax:
			param.Description = fmt.Sprintf("Upper bound for %s, inclusive", p.Field)
			param.Schema = rangeSchema(base, p.Values, len(p.Values)-1)
		case convention.ParamSearch:
			param.Description = fmt.Sprintf("Full-text search on %s", p.Target)
			param.Schema = &Schema{Type: "string"}
		case convention.ParamContains:
			param.Description = fmt.Sprintf("Substring match on %s", p.Target)
			param.Schema = &Schema{Type: "string"}
		}
		params = append(params, param)
	}
	return params
}

func (g *Generator) sortParam(d convention.Derived) []Parameter {
	if len(d.SortKeys) == 0 {
		return nil
	}
	return []Parameter{{
		Name:        convention.SortParam,
		In:          "query",
		Description: "Sort key as field:direction",
		Schema:      &Schema{Type: "string", Enum: d.SortKeys},
	}}
}

func (g *Generator) pageParams(d convention.Derived) []Parameter {
	p := d.Source.Paginate
	start := float64(p.StartPage)
	one := 1.0
	maxPer := float64(p.MaxPer)

	return []Parameter{
		{
			Name:        convention.PageParam,
			In:          "query",
			Description: fmt.Sprintf("Page number, starting at %d", p.StartPage),
			Schema:      &Schema{Type: "integer", Minimum: &start, Default: p.StartPage},
		},
		{
			Name:        convention.PerPageParam,
			In:          "query",
			Description: fmt.Sprintf("Records per page, at most %d", p.MaxPer),
			Schema:      &Schema{Type: "integer", Minimum: &one, Maximum: &maxPer, Default: p.DefaultPer},
		},
	}
}

// addGetPath adds the single-record operation.
func (g *Generator) addGetPath(s *Spec, d convention.Derived) {
	pathWithID := d.BasePath + "/{id}"
	path := s.Paths[pathWithID]

	op := &Operation{
		Tags:        []string{d.Plural},
		Summary:     fmt.Sprintf("Get %s by ID", d.Singular),
		Description: fmt.Sprintf("Retrieve a single %s record by ID", d.Singular),
		OperationID: "get" + d.Title,
		Parameters: []Parameter{
			{Name: "id", In: "path", Required: true, Description: "Record ID", Schema: &Schema{Type: "string"}},
		},
		Responses: map[string]Response{
			"200": {
				Description: "Successful response",
				Content: map[string]MediaType{
					"application/json": {Schema: &Schema{
						Type: "object",
						Properties: map[string]*Schema{
							"data": {Ref: "#/components/schemas/" + d.Title},
						},
					}},
				},
			},
			"404": {Description: "Record not found"},
		},
	}
	g.secure(op, d)

	path.Get = op
	s.Paths[pathWithID] = path
}

func (g *Generator) secure(op *Operation, d convention.Derived) {
	if d.Source.Ownership.By == "" {
		return
	}
	op.Security = []SecurityRequirement{{"bearerAuth": {}}}
	op.Responses["401"] = Response{Description: "Unauthorized"}
}

func scalarType(s *Schema) string {
	if s.Type == "array" {
		return "string"
	}
	return s.Type
}

// enumSchema restricts string parameters to the declared values. Other
// types only use the first value as an example.
func enumSchema(base *Schema, values []string) *Schema {
	s := &Schema{Type: scalarType(base)}
	if s.Type == "string" {
		s.Enum = values
		return s
	}
	return withExample(s, values, 0)
}

// rangeSchema types a range bound after its field and uses the declared
// value at idx as the example.
func rangeSchema(base *Schema, values []string, idx int) *Schema {
	return withExample(&Schema{Type: scalarType(base)}, values, idx)
}

func withExample(s *Schema, values []string, idx int) *Schema {
	if idx < 0 || idx >= len(values) {
		return s
	}
	switch s.Type {
	case "number":
		if n, err := strconv.ParseFloat(values[idx], 64); err == nil {
			s.Example = n
			return s
		}
	case "boolean":
		if b, err := strconv.ParseBool(values[idx]); err == nil {
			s.Example = b
			return s
		}
	}
	s.Example = values[idx]
	return s
}

// ToJSON converts the spec to indented JSON.
func (s *Spec) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ToJSONCompact converts the spec to compact JSON.
func (s *Spec) ToJSONCompact() ([]byte, error) {
	return json.Marshal(s)
}
