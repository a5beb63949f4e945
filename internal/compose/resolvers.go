package compose

import (
	"context"
	"fmt"
	"sort"

	fragment "github.com/hanpama/graphgate/internal/fragment"
	language "github.com/hanpama/graphgate/internal/language"
	"github.com/pkg/errors"
)

// Override records a handler replaced by a later fragment.
type Override struct {
	Type     string
	Field    string // empty for type resolvers and scalar serializers
	Previous string
	Winner   string
}

// ResolverMap is the merged view of all resolver fragments.
type ResolverMap struct {
	fields        map[string]map[string]entry[fragment.FieldResolver]
	typeResolvers map[string]entry[fragment.TypeResolver]
	scalars       map[string]entry[fragment.ScalarSerializer]
	inits         []namedInit

	// Overrides lists every replacement, in merge order.
	Overrides []Override
}

type entry[T any] struct {
	fn     T
	origin string
}

type namedInit struct {
	name string
	fn   func(context.Context) error
}

// ComposeResolvers merges fragments in discovery order. When two fragments
// provide a handler for the same type and field, the later fragment wins.
// This is intentional: a fragment registered after another can override its
// handlers, so callers depending on it must keep the discovery order stable.
func ComposeResolvers(fragments []fragment.ResolverFragment) *ResolverMap {
	m := &ResolverMap{
		fields:        map[string]map[string]entry[fragment.FieldResolver]{},
		typeResolvers: map[string]entry[fragment.TypeResolver]{},
		scalars:       map[string]entry[fragment.ScalarSerializer]{},
	}
	for _, f := range fragments {
		for _, typeName := range sortedKeys(f.Fields) {
			fields := m.fields[typeName]
			if fields == nil {
				fields = map[string]entry[fragment.FieldResolver]{}
				m.fields[typeName] = fields
			}
			for _, fieldName := range sortedKeys(f.Fields[typeName]) {
				if prev, ok := fields[fieldName]; ok {
					m.Overrides = append(m.Overrides, Override{Type: typeName, Field: fieldName, Previous: prev.origin, Winner: f.Name})
				}
				fields[fieldName] = entry[fragment.FieldResolver]{fn: f.Fields[typeName][fieldName], origin: f.Name}
			}
		}
		for _, typeName := range sortedKeys(f.TypeResolvers) {
			if prev, ok := m.typeResolvers[typeName]; ok {
				m.Overrides = append(m.Overrides, Override{Type: typeName, Previous: prev.origin, Winner: f.Name})
			}
			m.typeResolvers[typeName] = entry[fragment.TypeResolver]{fn: f.TypeResolvers[typeName], origin: f.Name}
		}
		for _, scalar := range sortedKeys(f.Scalars) {
			if prev, ok := m.scalars[scalar]; ok {
				m.Overrides = append(m.Overrides, Override{Type: scalar, Previous: prev.origin, Winner: f.Name})
			}
			m.scalars[scalar] = entry[fragment.ScalarSerializer]{fn: f.Scalars[scalar], origin: f.Name}
		}
		if f.Init != nil {
			m.inits = append(m.inits, namedInit{name: f.Name, fn: f.Init})
		}
	}
	return m
}

// Lookup returns the handler for typeName.fieldName.
func (m *ResolverMap) Lookup(typeName, fieldName string) (fragment.FieldResolver, bool) {
	e, ok := m.fields[typeName][fieldName]
	return e.fn, ok
}

// Origin returns the name of the fragment whose handler serves
// typeName.fieldName.
func (m *ResolverMap) Origin(typeName, fieldName string) string {
	return m.fields[typeName][fieldName].origin
}

// Has reports whether any fragment provides a handler for typeName.fieldName.
func (m *ResolverMap) Has(typeName, fieldName string) bool {
	_, ok := m.fields[typeName][fieldName]
	return ok
}

func (m *ResolverMap) TypeResolver(abstractType string) (fragment.TypeResolver, bool) {
	e, ok := m.typeResolvers[abstractType]
	return e.fn, ok
}

func (m *ResolverMap) Scalar(name string) (fragment.ScalarSerializer, bool) {
	e, ok := m.scalars[name]
	return e.fn, ok
}

// Len returns the number of field handlers.
func (m *ResolverMap) Len() int {
	n := 0
	for _, fields := range m.fields {
		n += len(fields)
	}
	return n
}

// Init runs the fragments' Init hooks in merge order and stops at the first
// failure.
func (m *ResolverMap) Init(ctx context.Context) error {
	for _, in := range m.inits {
		if err := in.fn(ctx); err != nil {
			return errors.Wrapf(err, "resolver fragment %q failed to initialize", in.name)
		}
	}
	return nil
}

// CheckResolvers reports handlers that do not match the schema: resolvers
// for unknown types or fields, type resolvers for non-abstract types and
// serializers for types that are not scalars.
func CheckResolvers(sch *language.Schema, m *ResolverMap) error {
	var violations CompositionError
	for _, typeName := range sortedKeys(m.fields) {
		def := sch.Types[typeName]
		if def == nil || (def.Kind != language.Object && def.Kind != language.Interface) {
			for _, fieldName := range sortedKeys(m.fields[typeName]) {
				violations = append(violations, &Violation{
					Message:  fmt.Sprintf("Resolver for %s.%s targets unknown object type %s", typeName, fieldName, typeName),
					Fragment: m.fields[typeName][fieldName].origin,
				})
			}
			continue
		}
		for _, fieldName := range sortedKeys(m.fields[typeName]) {
			if def.Fields.ForName(fieldName) == nil {
				violations = append(violations, &Violation{
					Message:  fmt.Sprintf("Resolver for %s.%s targets a field that is not declared", typeName, fieldName),
					Fragment: m.fields[typeName][fieldName].origin,
				})
			}
		}
	}
	for _, typeName := range sortedKeys(m.typeResolvers) {
		if def := sch.Types[typeName]; def == nil || !def.IsAbstractType() {
			violations = append(violations, &Violation{
				Message:  fmt.Sprintf("Type resolver for %s targets a type that is not an interface or union", typeName),
				Fragment: m.typeResolvers[typeName].origin,
			})
		}
	}
	for _, name := range sortedKeys(m.scalars) {
		if def := sch.Types[name]; def == nil || def.Kind != language.Scalar {
			violations = append(violations, &Violation{
				Message:  fmt.Sprintf("Serializer for %s targets a type that is not a scalar", name),
				Fragment: m.scalars[name].origin,
			})
		}
	}
	if len(violations) > 0 {
		return violations
	}
	return nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
