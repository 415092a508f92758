// Package rules loads the optional YAML file that extends the built-in
// normalizer corrections, validator keywords and extraction patterns.
package rules

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// Correction replaces a known misrecognized word with its correct form.
type Correction struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Pattern is an extra extraction expression. It must name a "procedure"
// capture group and may name a "code" group.
type Pattern struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// Rules is the decoded rules file.
type Rules struct {
	Corrections []Correction `yaml:"corrections"`
	Keywords    []string     `yaml:"keywords"`
	Patterns    []Pattern    `yaml:"patterns"`
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("rules.json")
})

// Load reads and validates a rules file. An empty path yields empty rules.
func Load(path string) (*Rules, error) {
	if path == "" {
		return &Rules{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return r, nil
}

// Parse validates YAML data against the rules schema and decodes it.
func Parse(data []byte) (*Rules, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc == nil {
		return &Rules{}, nil
	}

	// round-trip through JSON so the validator sees plain JSON values
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode as json: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("rules do not match schema: %w", err)
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return &r, nil
}
