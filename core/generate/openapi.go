package generate

import (
	"fmt"

	"github.com/artpar/readerspec/core/convention"
	"github.com/artpar/readerspec/core/openapi"
	"github.com/artpar/readerspec/core/spec"
)

// OpenAPI writes openapi/<resource>.json per resource and a combined
// openapi/openapi.json.
type OpenAPI struct {
	Info openapi.Info
}

// NewOpenAPI creates the OpenAPI generator.
func NewOpenAPI() *OpenAPI {
	return &OpenAPI{Info: openapi.Info{
		Title:       "API",
		Description: "Generated from readerspec documents",
		Version:     "1.0.0",
	}}
}

// Name returns the generator name.
func (g *OpenAPI) Name() string { return "openapi" }

// Generate creates the OpenAPI documents.
func (g *OpenAPI) Generate(rds []spec.ResourceDescription) ([]File, error) {
	rds = sortedByResource(rds)
	files := make([]File, 0, len(rds)+1)

	for _, rd := range rds {
		data, err := openapi.ForResource(rd).Generate().ToJSON()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", rd.Resource, err)
		}
		files = append(files, File{Name: "openapi/" + rd.Resource + ".json", Content: data})
	}

	combined := openapi.NewGenerator(convention.DeriveAll(rds))
	combined.SetInfo(g.Info)
	data, err := combined.Generate().ToJSON()
	if err != nil {
		return nil, fmt.Errorf("encode combined spec: %w", err)
	}
	files = append(files, File{Name: "openapi/openapi.json", Content: data})

	return files, nil
}
