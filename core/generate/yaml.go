package generate

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/artpar/readerspec/core/spec"
)

// YAML exports every description as resources/<resource>.yaml.
type YAML struct{}

// NewYAML creates the YAML generator.
func NewYAML() *YAML {
	return &YAML{}
}

// Name returns the generator name.
func (g *YAML) Name() string { return "yaml" }

// Generate encodes each description.
func (g *YAML) Generate(rds []spec.ResourceDescription) ([]File, error) {
	files := make([]File, 0, len(rds))
	for _, rd := range sortedByResource(rds) {
		data, err := encodeYAML(rd)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", rd.Resource, err)
		}
		files = append(files, File{Name: "resources/" + rd.Resource + ".yaml", Content: data})
	}
	return files, nil
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
