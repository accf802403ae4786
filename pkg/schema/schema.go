// Package schema declares the row shape of each stream and validates
// emitted rows against it. A stream's schema is a JSON-schema document
// built from typed properties; every field is nullable, every declared
// field is required and no extra keys are allowed, so a valid row's key
// set equals the declaration exactly.
package schema

import (
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/xeipuuv/gojsonschema"

	"github.com/tapstack/tap-tableau/internal/errors"
)

// Row is the flat, schema-conformant mapping emitted per entity.
type Row map[string]interface{}

// Type is a JSON-schema fragment describing one property.
type Type map[string]interface{}

type Property struct {
	Name string
	Type Type
}

func Prop(name string, t Type) Property {
	return Property{Name: name, Type: t}
}

func String() Type {
	return Type{"type": []string{"string", "null"}}
}

func Boolean() Type {
	return Type{"type": []string{"boolean", "null"}}
}

func Number() Type {
	return Type{"type": []string{"number", "null"}}
}

func Timestamp() Type {
	return Type{"type": []string{"string", "null"}, "format": "date-time"}
}

func Array(items Type) Type {
	return Type{"type": []string{"array", "null"}, "items": items}
}

// Object declares a nested object. Nested objects are typed but lenient:
// only top-level rows enforce the exact key set.
func Object(props ...Property) Type {
	properties := map[string]interface{}{}
	for _, p := range props {
		properties[p.Name] = map[string]interface{}(p.Type)
	}
	return Type{"type": []string{"object", "null"}, "properties": properties}
}

// Schema is one stream's declared row shape.
type Schema struct {
	fields   []string
	doc      map[string]interface{}
	compiled *gojsonschema.Schema
}

func New(props ...Property) (*Schema, error) {
	var op errors.Op = "schema.New"
	properties := map[string]interface{}{}
	fields := make([]string, 0, len(props))
	for _, p := range props {
		if _, dup := properties[p.Name]; dup {
			return nil, errors.E(op, errors.KindInternal, fmt.Errorf("duplicate property %q", p.Name))
		}
		properties[p.Name] = map[string]interface{}(p.Type)
		fields = append(fields, p.Name)
	}
	doc := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"required":             fields,
		"additionalProperties": false,
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, errors.E(op, errors.KindInternal, err)
	}
	return &Schema{fields: fields, doc: doc, compiled: compiled}, nil
}

// MustNew is New for the static stream declarations.
func MustNew(props ...Property) *Schema {
	s, err := New(props...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the declared field names in declaration order.
func (s *Schema) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Document returns the JSON-schema document, for catalog output and
// SCHEMA messages.
func (s *Schema) Document() map[string]interface{} {
	return s.doc
}

// Validate checks the row against the declaration. Any mismatch is a
// schema-kind error carrying every violation.
func (s *Schema) Validate(row Row) error {
	var op errors.Op = "schema.Schema.Validate"
	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(map[string]interface{}(row)))
	if err != nil {
		return errors.E(op, errors.KindInternal, err)
	}
	if result.Valid() {
		return nil
	}
	var merr *multierror.Error
	for _, desc := range result.Errors() {
		merr = multierror.Append(merr, fmt.Errorf("%s", desc.String()))
	}
	return errors.E(op, errors.KindSchema, merr.ErrorOrNil())
}
