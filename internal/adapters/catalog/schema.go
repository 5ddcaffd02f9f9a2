package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	packageSchema = "schemas/package.schema.json"
	worldSchema   = "schemas/world.schema.json"
)

var compileSchemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	out := make(map[string]*jsonschema.Schema, 2)
	for _, name := range []string{packageSchema, worldSchema} {
		f, err := schemaFS.Open(name)
		if err != nil {
			return nil, err
		}
		err = c.AddResource(name, f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		s, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
})

// validate checks a YAML document against an embedded schema. The document is
// round-tripped through JSON so the validator sees JSON-native types.
func validate(name string, raw []byte) error {
	schemas, err := compileSchemas()
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := schemas[name].Validate(generic); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
