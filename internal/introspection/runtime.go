package introspection

import (
	"context"
	"sort"
	"strings"

	executor "github.com/hanpama/graphgate/internal/executor"
	language "github.com/hanpama/graphgate/internal/language"
	"github.com/pkg/errors"
)

// ErrDisabled is returned for __schema and __type when introspection is
// turned off.
var ErrDisabled = errors.New("GraphQL introspection is not allowed")

// Wrap returns a Runtime that answers __schema and __type from sch and
// delegates every other field to base. With enabled unset, both fields fail
// with ErrDisabled.
func Wrap(base executor.Runtime, sch *language.Schema, enabled bool) executor.Runtime {
	return &runtime{base: base, schema: sch, enabled: enabled}
}

type runtime struct {
	base    executor.Runtime
	schema  *language.Schema
	enabled bool
}

// typeRef is a LIST or NON_NULL wrapper. Named type references resolve to
// the *language.Definition itself.
type typeRef struct {
	kind   string
	ofType any
}

// inputValue unifies arguments and input object fields.
type inputValue struct {
	name         string
	description  string
	typ          *language.Type
	defaultValue *language.Value
	directives   language.DirectiveList
}

func (r *runtime) isMetaField(objectType, field string) bool {
	if strings.HasPrefix(objectType, "__") {
		return true
	}
	return r.schema.Query != nil && objectType == r.schema.Query.Name && (field == "__schema" || field == "__type")
}

func (r *runtime) IsAsync(objectType, field string) bool {
	if r.isMetaField(objectType, field) {
		return false
	}
	return r.base.IsAsync(objectType, field)
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if !r.isMetaField(objectType, field) {
		return r.base.ResolveSync(ctx, objectType, field, source, args)
	}
	if !r.enabled {
		return nil, ErrDisabled
	}

	switch objectType {
	case "__Schema":
		return r.resolveSchemaField(field), nil
	case "__Type":
		switch src := source.(type) {
		case *language.Definition:
			return r.resolveTypeField(src, field, args), nil
		case *typeRef:
			return resolveTypeRefField(src, field), nil
		}
	case "__Field":
		if f, ok := source.(*language.FieldDefinition); ok {
			return r.resolveFieldField(f, field, args), nil
		}
	case "__InputValue":
		if iv, ok := source.(*inputValue); ok {
			return r.resolveInputValueField(iv, field), nil
		}
	case "__EnumValue":
		if ev, ok := source.(*language.EnumValueDefinition); ok {
			return resolveEnumValueField(ev, field), nil
		}
	case "__Directive":
		if d, ok := source.(*language.DirectiveDefinition); ok {
			return r.resolveDirectiveField(d, field, args), nil
		}
	default:
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if def := r.schema.Types[name]; def != nil {
				return def, nil
			}
			return nil, nil
		}
	}
	return nil, errors.Errorf("unexpected introspection source %T for %s.%s", source, objectType, field)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	if typ == "__TypeKind" || typ == "__DirectiveLocation" {
		return value, nil
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}

// --- helpers ---

func (r *runtime) resolveSchemaField(field string) any {
	switch field {
	case "description":
		return nullableString(r.schema.Description)
	case "types":
		out := make([]*language.Definition, 0, len(r.schema.Types))
		for _, t := range r.schema.Types {
			out = append(out, t)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	case "queryType":
		return definitionOrNil(r.schema.Query)
	case "mutationType":
		return definitionOrNil(r.schema.Mutation)
	case "subscriptionType":
		return definitionOrNil(r.schema.Subscription)
	case "directives":
		out := make([]*language.DirectiveDefinition, 0, len(r.schema.Directives))
		for _, d := range r.schema.Directives {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	}
	return nil
}

func (r *runtime) resolveTypeField(t *language.Definition, field string, args map[string]any) any {
	switch field {
	case "kind":
		return string(t.Kind)
	case "name":
		return t.Name
	case "description":
		return nullableString(t.Description)
	case "specifiedByURL":
		if d := t.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil {
				return arg.Value.Raw
			}
		}
		return nil
	case "fields":
		if t.Kind != language.Object && t.Kind != language.Interface {
			return nil
		}
		includeDeprecated := boolArg(args, "includeDeprecated")
		out := []*language.FieldDefinition{}
		for _, f := range t.Fields {
			if strings.HasPrefix(f.Name, "__") {
				continue
			}
			if !includeDeprecated && isDeprecated(f.Directives) {
				continue
			}
			out = append(out, f)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	case "interfaces":
		if t.Kind != language.Object && t.Kind != language.Interface {
			return nil
		}
		out := []*language.Definition{}
		for _, name := range t.Interfaces {
			if def := r.schema.Types[name]; def != nil {
				out = append(out, def)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	case "possibleTypes":
		if !t.IsAbstractType() {
			return nil
		}
		out := append([]*language.Definition{}, r.schema.GetPossibleTypes(t)...)
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	case "enumValues":
		if t.Kind != language.Enum {
			return nil
		}
		includeDeprecated := boolArg(args, "includeDeprecated")
		out := []*language.EnumValueDefinition{}
		for _, ev := range t.EnumValues {
			if !includeDeprecated && isDeprecated(ev.Directives) {
				continue
			}
			out = append(out, ev)
		}
		return out
	case "inputFields":
		if t.Kind != language.InputObject {
			return nil
		}
		includeDeprecated := boolArg(args, "includeDeprecated")
		out := []*inputValue{}
		for _, f := range t.Fields {
			if !includeDeprecated && isDeprecated(f.Directives) {
				continue
			}
			out = append(out, &inputValue{
				name:         f.Name,
				description:  f.Description,
				typ:          f.Type,
				defaultValue: f.DefaultValue,
				directives:   f.Directives,
			})
		}
		return out
	case "ofType":
		return nil
	case "isOneOf":
		if t.Kind != language.InputObject {
			return nil
		}
		return t.Directives.ForName("oneOf") != nil
	}
	return nil
}

func resolveTypeRefField(tr *typeRef, field string) any {
	switch field {
	case "kind":
		return tr.kind
	case "ofType":
		return tr.ofType
	}
	// name, description, fields, ... are null on wrapper types
	return nil
}

func (r *runtime) resolveFieldField(f *language.FieldDefinition, field string, args map[string]any) any {
	switch field {
	case "name":
		return f.Name
	case "description":
		return nullableString(f.Description)
	case "args":
		return argumentValues(f.Arguments, boolArg(args, "includeDeprecated"))
	case "type":
		return r.typeOf(f.Type)
	case "isDeprecated":
		return isDeprecated(f.Directives)
	case "deprecationReason":
		return deprecationReason(f.Directives)
	}
	return nil
}

func (r *runtime) resolveInputValueField(iv *inputValue, field string) any {
	switch field {
	case "name":
		return iv.name
	case "description":
		return nullableString(iv.description)
	case "type":
		return r.typeOf(iv.typ)
	case "defaultValue":
		if iv.defaultValue == nil {
			return nil
		}
		return iv.defaultValue.String()
	case "isDeprecated":
		return isDeprecated(iv.directives)
	case "deprecationReason":
		return deprecationReason(iv.directives)
	}
	return nil
}

func resolveEnumValueField(ev *language.EnumValueDefinition, field string) any {
	switch field {
	case "name":
		return ev.Name
	case "description":
		return nullableString(ev.Description)
	case "isDeprecated":
		return isDeprecated(ev.Directives)
	case "deprecationReason":
		return deprecationReason(ev.Directives)
	}
	return nil
}

func (r *runtime) resolveDirectiveField(d *language.DirectiveDefinition, field string, args map[string]any) any {
	switch field {
	case "name":
		return d.Name
	case "description":
		return nullableString(d.Description)
	case "isRepeatable":
		return d.IsRepeatable
	case "locations":
		locs := make([]string, len(d.Locations))
		for i, l := range d.Locations {
			locs[i] = string(l)
		}
		return locs
	case "args":
		return argumentValues(d.Arguments, boolArg(args, "includeDeprecated"))
	}
	return nil
}

// typeOf turns a type reference into a __Type source value.
func (r *runtime) typeOf(t *language.Type) any {
	if t.NonNull {
		inner := *t
		inner.NonNull = false
		return &typeRef{kind: "NON_NULL", ofType: r.typeOf(&inner)}
	}
	if t.Elem != nil {
		return &typeRef{kind: "LIST", ofType: r.typeOf(t.Elem)}
	}
	return definitionOrNil(r.schema.Types[t.NamedType])
}

func argumentValues(defs language.ArgumentDefList, includeDeprecated bool) []*inputValue {
	out := []*inputValue{}
	for _, a := range defs {
		if !includeDeprecated && isDeprecated(a.Directives) {
			continue
		}
		out = append(out, &inputValue{
			name:         a.Name,
			description:  a.Description,
			typ:          a.Type,
			defaultValue: a.DefaultValue,
			directives:   a.Directives,
		})
	}
	return out
}

func isDeprecated(directives language.DirectiveList) bool {
	return directives.ForName("deprecated") != nil
}

func deprecationReason(directives language.DirectiveList) any {
	d := directives.ForName("deprecated")
	if d == nil {
		return nil
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw
	}
	return "No longer supported"
}

// definitionOrNil avoids handing the executor a typed nil pointer.
func definitionOrNil(def *language.Definition) any {
	if def == nil {
		return nil
	}
	return def
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolArg(args map[string]any, name string) bool {
	v, _ := args[name].(bool)
	return v
}
