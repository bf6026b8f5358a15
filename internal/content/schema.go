package content

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/naeap/journal/internal/store"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrMalformed marks a stored document that does not match its
// collection schema.
var ErrMalformed = errors.New("malformed document")

// schemaSet holds one compiled schema per collection.
type schemaSet map[store.Collection]*jsonschema.Schema

func compileSchemas() (schemaSet, error) {
	set := make(schemaSet, len(store.Collections))
	for _, c := range store.Collections {
		name := string(c) + ".json"
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}

		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("load schema %s: %w", name, err)
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		set[c] = schema
	}
	return set, nil
}

// check validates the fields of a stored document against its collection
// schema.
func (s schemaSet) check(c store.Collection, data json.RawMessage) error {
	schema, ok := s[c]
	if !ok {
		return fmt.Errorf("%w: no schema for %s", ErrMalformed, c)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := schema.Validate(v); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(issues(verr), "; "))
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// issues flattens a validation error tree into its leaf messages.
func issues(err *jsonschema.ValidationError) []string {
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			loc := node.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+strings.TrimSpace(node.Message))
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return out
}
