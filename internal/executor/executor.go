package executor

import (
	"context"
	"fmt"
	"reflect"

	language "github.com/hanpama/graphgate/internal/language"
	"github.com/pkg/errors"
)

type Executor struct {
	runtime Runtime
	schema  *language.Schema
}

func NewExecutor(runtime Runtime, schema *language.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// executionState holds the state of one operation.
type executionState struct {
	runtime        Runtime
	schema         *language.Schema
	document       *language.QueryDocument
	variableValues map[string]any
	context        context.Context
	pending        []*asyncTask
	errors         language.ErrorList
}

// asyncTask is a queued field resolution waiting for the next batch.
type asyncTask struct {
	task      AsyncResolveTask
	slot      *slot
	fieldType *language.Type
	fields    []*language.Field
	path      language.Path
}

// ExecuteRequest executes a validated document. Documents must come from
// language.LoadQuery or an equivalent parse and validate step.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation := document.Operations.ForName(operationName)
	if operation == nil {
		if operationName == "" {
			return ErrorResult(&language.Error{Message: "operation name is required when the document has several operations"})
		}
		return ErrorResult(&language.Error{Message: fmt.Sprintf("operation %q not found", operationName)})
	}

	coerced, gerr := language.CoerceVariables(e.schema, operation, variableValues)
	if gerr != nil {
		return ErrorResult(gerr)
	}

	var rootType *language.Definition
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.Query
	case language.Mutation:
		rootType = e.schema.Mutation
	case language.Subscription:
		return ErrorResult(&language.Error{Message: "subscriptions are not supported"})
	default:
		return ErrorResult(&language.Error{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)})
	}
	if rootType == nil {
		return ErrorResult(&language.Error{Message: fmt.Sprintf("root type not found for %s operation", operation.Operation)})
	}

	state := &executionState{
		runtime:        e.runtime,
		schema:         e.schema,
		document:       document,
		variableValues: coerced,
		context:        ctx,
	}

	root := &slot{}
	serial := operation.Operation == language.Mutation
	state.executeSelectionSet(rootType, operation.SelectionSet, initialValue, nil, root, serial)
	state.drain()

	return &ExecutionResult{Data: root.materialize(), Errors: state.errors}
}

// executeSelectionSet writes an object result into target. Sync fields are
// resolved and completed immediately; async fields are queued for the next
// batch. With serial set, each field and everything queued under it is
// drained before the next field starts.
func (s *executionState) executeSelectionSet(
	objectType *language.Definition,
	selectionSet language.SelectionSet,
	objectValue any,
	path language.Path,
	target *slot,
	serial bool,
) {
	grouped := collectFields(s, objectType, selectionSet)
	obj := &objectResult{fields: make(map[string]*slot, len(grouped.fields))}
	target.value = obj

	for _, cf := range grouped.orderedFields() {
		if target.dead() {
			return
		}
		fields := cf.Fields
		fieldName := fields[0].Name
		fieldPath := appendPath(path, language.PathName(cf.ResponseName))

		if fieldName == "__typename" {
			obj.set(cf.ResponseName, &slot{parent: target, value: objectType.Name})
			continue
		}

		fieldDef := objectType.Fields.ForName(fieldName)
		if fieldDef == nil {
			s.addError(fieldPath, fields, fmt.Errorf("Cannot query field %q on type %q", fieldName, objectType.Name))
			continue
		}

		child := &slot{parent: target, nonNull: fieldDef.Type.NonNull}
		obj.set(cf.ResponseName, child)

		args, err := coerceArgumentValues(s.schema, fieldDef, fields[0], s.variableValues)
		if err != nil {
			s.fail(child, fieldPath, fields, err)
			continue
		}

		if s.runtime.IsAsync(objectType.Name, fieldName) {
			s.pending = append(s.pending, &asyncTask{
				task: AsyncResolveTask{
					ObjectType: objectType.Name,
					Field:      fieldName,
					Source:     objectValue,
					Args:       args,
				},
				slot:      child,
				fieldType: fieldDef.Type,
				fields:    fields,
				path:      fieldPath,
			})
		} else {
			value, err := s.runtime.ResolveSync(s.context, objectType.Name, fieldName, objectValue, args)
			if err != nil {
				s.fail(child, fieldPath, fields, err)
			} else {
				s.completeValue(child, fieldDef.Type, fields, value, fieldPath)
			}
		}

		if serial {
			s.drain()
		}
	}
}

// drain runs one BatchResolveAsync call per depth until no async work is
// left. Tasks under a nullified path are dropped before and after the call.
func (s *executionState) drain() {
	for len(s.pending) > 0 {
		queued := s.pending
		s.pending = nil

		live := make([]*asyncTask, 0, len(queued))
		for _, t := range queued {
			if !t.slot.dead() {
				live = append(live, t)
			}
		}
		if len(live) == 0 {
			continue
		}

		tasks := make([]AsyncResolveTask, len(live))
		for i, t := range live {
			tasks[i] = t.task
		}
		results := s.runtime.BatchResolveAsync(s.context, tasks)
		if len(results) != len(live) {
			err := errors.Errorf("runtime returned %d results for %d tasks", len(results), len(live))
			for _, t := range live {
				if !t.slot.dead() {
					s.fail(t.slot, t.path, t.fields, err)
				}
			}
			continue
		}

		for i, t := range live {
			if t.slot.dead() {
				continue
			}
			if results[i].Error != nil {
				s.fail(t.slot, t.path, t.fields, results[i].Error)
				continue
			}
			s.completeValue(t.slot, t.fieldType, t.fields, results[i].Value, t.path)
		}
	}
}

func (s *executionState) completeValue(target *slot, fieldType *language.Type, fields []*language.Field, result any, path language.Path) {
	if isNullish(result) {
		if fieldType.NonNull {
			s.addError(path, fields, fmt.Errorf("Cannot return null for non-nullable field %s", path.String()))
		}
		target.nullify()
		return
	}

	if fieldType.Elem != nil {
		s.completeListValue(target, fieldType, fields, result, path)
		return
	}

	namedType := fieldType.NamedType
	def := s.schema.Types[namedType]
	if def == nil {
		s.fail(target, path, fields, fmt.Errorf("Unknown type: %s", namedType))
		return
	}

	switch def.Kind {
	case language.Scalar, language.Enum:
		serialized, err := s.runtime.SerializeLeafValue(s.context, namedType, result)
		if err != nil {
			s.fail(target, path, fields, err)
			return
		}
		if isNullish(serialized) {
			s.completeValue(target, fieldType, fields, nil, path)
			return
		}
		target.value = serialized
	case language.Object:
		s.executeSelectionSet(def, mergeSelectionSets(fields), result, path, target, false)
	case language.Interface, language.Union:
		s.completeAbstractValue(target, def, fields, result, path)
	default:
		s.fail(target, path, fields, fmt.Errorf("Cannot complete value of unexpected type: %s", def.Kind))
	}
}

func (s *executionState) completeListValue(target *slot, listType *language.Type, fields []*language.Field, result any, path language.Path) {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			s.fail(target, path, fields, fmt.Errorf("Expected list value, got %T", result))
			return
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := listType.Elem
	elems := make([]*slot, len(items))
	target.value = elems
	for i, item := range items {
		if target.dead() {
			return
		}
		elem := &slot{parent: target, nonNull: inner.NonNull}
		elems[i] = elem
		s.completeValue(elem, inner, fields, item, appendPath(path, language.PathIndex(i)))
	}
}

func (s *executionState) completeAbstractValue(target *slot, abstractType *language.Definition, fields []*language.Field, result any, path language.Path) {
	typeName, err := s.runtime.ResolveType(s.context, abstractType.Name, result)
	if err != nil {
		s.fail(target, path, fields, err)
		return
	}
	objectType := s.schema.Types[typeName]
	if objectType == nil || objectType.Kind != language.Object {
		s.fail(target, path, fields, fmt.Errorf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractType.Name, typeName))
		return
	}
	if !isPossibleType(s.schema, abstractType.Name, typeName) {
		s.fail(target, path, fields, fmt.Errorf("Runtime Object type %q is not a possible type for %q", typeName, abstractType.Name))
		return
	}
	s.executeSelectionSet(objectType, mergeSelectionSets(fields), result, path, target, false)
}

// fail records err at path and nullifies target.
func (s *executionState) fail(target *slot, path language.Path, fields []*language.Field, err error) {
	s.addError(path, fields, err)
	target.nullify()
}

func (s *executionState) addError(path language.Path, fields []*language.Field, err error) {
	var gerr *language.Error
	if errors.As(err, &gerr) {
		cp := *gerr
		gerr = &cp
	} else {
		gerr = &language.Error{Err: err, Message: err.Error()}
	}
	if gerr.Path == nil {
		gerr.Path = path
	}
	if len(gerr.Locations) == 0 && len(fields) > 0 && fields[0].Position != nil {
		gerr.Locations = []language.Location{{Line: fields[0].Position.Line, Column: fields[0].Position.Column}}
	}
	s.errors = append(s.errors, gerr)
}

func appendPath(path language.Path, elem language.PathElement) language.Path {
	newPath := make(language.Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

func isPossibleType(schema *language.Schema, abstractType, objectType string) bool {
	for _, def := range schema.PossibleTypes[abstractType] {
		if def.Name == objectType {
			return true
		}
	}
	return false
}

// mergeSelectionSets merges selection sets from multiple fields
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
