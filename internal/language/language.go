package language

import (
	"bytes"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParsePrelude returns the built-in scalars, directives and introspection
// types every executable schema starts from.
func ParsePrelude() (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(validator.Prelude)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// BuildSchema validates a complete schema document (prelude included) and
// returns the resolved schema.
func BuildSchema(doc *SchemaDocument) (*Schema, error) {
	s, err := validator.ValidateSchemaDocument(doc)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LoadQuery parses source and validates it against schema. Validated
// documents carry field and type definitions on every selection.
func LoadQuery(schema *Schema, source string) (*QueryDocument, ErrorList) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, ErrorList{ToError(err)}
	}
	if errs := validator.ValidateWithRules(schema, doc, nil); len(errs) > 0 {
		return nil, errs
	}
	return doc, nil
}

// FormatSchema prints doc as SDL.
func FormatSchema(doc *SchemaDocument) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	return buf.String()
}

// ToError converts err into a GraphQL error, keeping location data when err
// already is one.
func ToError(err error) *Error {
	return gqlerror.WrapIfUnwrapped(err)
}

// CoerceVariables validates raw request variables against the variable
// definitions of a validated operation.
func CoerceVariables(schema *Schema, op *OperationDefinition, vars map[string]any) (map[string]any, *Error) {
	for _, v := range op.VariableDefinitions {
		if v.Definition == nil {
			return nil, gqlerror.Errorf("variable $%s has no type definition; the document was not validated", v.Variable)
		}
	}
	coerced, err := validator.VariableValues(schema, op, vars)
	if err != nil {
		return nil, ToError(err)
	}
	return coerced, nil
}
