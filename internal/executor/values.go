package executor

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	language "github.com/hanpama/graphgate/internal/language"
)

// coerceArgumentValues computes the argument map for one field. Literal
// values, variables and schema defaults are coerced to the argument type.
func coerceArgumentValues(
	schema *language.Schema,
	fieldDef *language.FieldDefinition,
	field *language.Field,
	variableValues map[string]any,
) (map[string]any, error) {
	coerced := make(map[string]any, len(fieldDef.Arguments))
	for _, argDef := range fieldDef.Arguments {
		name := argDef.Name
		var (
			value    any
			hasValue bool
		)
		if arg := field.Arguments.ForName(name); arg != nil {
			if arg.Value.Kind == language.Variable {
				value, hasValue = variableValues[arg.Value.Raw]
			} else {
				v, err := arg.Value.Value(variableValues)
				if err != nil {
					return nil, fmt.Errorf("argument %q is invalid: %v", name, err)
				}
				value, hasValue = v, true
			}
		}
		if !hasValue && argDef.DefaultValue != nil {
			v, err := argDef.DefaultValue.Value(nil)
			if err != nil {
				return nil, fmt.Errorf("default value of argument %q is invalid: %v", name, err)
			}
			value, hasValue = v, true
		}
		if !hasValue {
			if argDef.Type.NonNull {
				return nil, fmt.Errorf("argument %q of required type %s was not provided", name, argDef.Type.String())
			}
			continue
		}
		cv, err := coerceValue(schema, value, argDef.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %q cannot be coerced: %v", name, err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceValue coerces a value to the specified GraphQL input type
func coerceValue(schema *language.Schema, value any, targetType *language.Type) (any, error) {
	if value == nil {
		if targetType.NonNull {
			return nil, fmt.Errorf("cannot provide null for non-null type %s", targetType.String())
		}
		return nil, nil
	}

	if targetType.Elem != nil {
		return coerceListValue(schema, value, targetType.Elem)
	}

	switch targetType.NamedType {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	}

	def := schema.Types[targetType.NamedType]
	if def != nil && def.Kind == language.InputObject {
		return coerceInputObject(schema, value, def)
	}
	// enums and custom scalars pass through
	return value, nil
}

// coerceListValue coerces a value to a list
func coerceListValue(schema *language.Schema, value any, innerType *language.Type) (any, error) {
	if slice, ok := value.([]any); ok {
		coercedSlice := make([]any, len(slice))
		for i, item := range slice {
			coercedItem, err := coerceValue(schema, item, innerType)
			if err != nil {
				return nil, err
			}
			coercedSlice[i] = coercedItem
		}
		return coercedSlice, nil
	}

	// Single value becomes a list of one
	coercedItem, err := coerceValue(schema, value, innerType)
	if err != nil {
		return nil, err
	}
	return []any{coercedItem}, nil
}

func coerceInputObject(schema *language.Schema, value any, def *language.Definition) (any, error) {
	in, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %T to input object %s", value, def.Name)
	}
	out := make(map[string]any, len(in))
	for _, f := range def.Fields {
		v, ok := in[f.Name]
		if !ok {
			if f.DefaultValue == nil {
				if f.Type.NonNull {
					return nil, fmt.Errorf("field %s.%s of required type %s was not provided", def.Name, f.Name, f.Type.String())
				}
				continue
			}
			dv, err := f.DefaultValue.Value(nil)
			if err != nil {
				return nil, err
			}
			v = dv
		}
		cv, err := coerceValue(schema, v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %v", def.Name, f.Name, err)
		}
		out[f.Name] = cv
	}
	return out, nil
}

func coerceToInt(value any) (any, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v <= math.MaxInt64 {
			return int64(v), nil
		}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Int", value, value)
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return fmt.Sprintf("%v", value), nil
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	default:
		rv := reflect.ValueOf(value)
		if rv.CanInt() {
			return strconv.FormatInt(rv.Int(), 10), nil
		}
		return fmt.Sprintf("%v", value), nil
	}
}
