package compose

import (
	"sort"
	"strings"

	fragment "github.com/hanpama/graphgate/internal/fragment"
	language "github.com/hanpama/graphgate/internal/language"
	"github.com/pkg/errors"
)

// ComposedSchema is the result of merging every schema fragment. It is built
// once per process and must be treated as read-only.
type ComposedSchema struct {
	// Document holds the merged definitions, without the prelude.
	Document *language.SchemaDocument
	// Schema is the validated executable schema, prelude included.
	Schema *language.Schema
	// Fragments lists the fragment names in merge order.
	Fragments []string

	sdl string
}

// SDL returns the merged schema printed as SDL.
func (c *ComposedSchema) SDL() string { return c.sdl }

// Compose merges fragments in the given order.
//
// Types declared by several fragments get the union of their fields. A field
// declared with the same signature more than once is kept once; differing
// signatures are a CompositionError. The output only depends on the fragment
// contents and their order.
func Compose(fragments []fragment.SchemaFragment) (*ComposedSchema, error) {
	m := newMerger()
	var violations CompositionError
	names := make([]string, 0, len(fragments))
	for _, f := range fragments {
		names = append(names, f.Name)
		doc, err := language.ParseSchema(f.Name, f.Source)
		if err != nil {
			violations = append(violations, violationFromError(err, f.Name))
			continue
		}
		m.add(doc)
	}
	violations = append(violations, m.violations...)
	if len(violations) > 0 {
		return nil, violations
	}

	merged := m.document()
	sdl := language.FormatSchema(merged)

	prelude, err := language.ParsePrelude()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse prelude")
	}
	full := &language.SchemaDocument{}
	full.Merge(prelude)
	full.Merge(cloneDocument(merged))
	sch, err := language.BuildSchema(full)
	if err != nil {
		return nil, CompositionError{violationFromError(err, "")}
	}
	if sch.Query == nil {
		return nil, CompositionError{{Message: "no fragment declares a Query root type"}}
	}

	return &ComposedSchema{
		Document:  merged,
		Schema:    sch,
		Fragments: names,
		sdl:       sdl,
	}, nil
}

type merger struct {
	types          []*language.Definition
	typeIndex      map[string]*language.Definition
	directives     []*language.DirectiveDefinition
	directiveIndex map[string]*language.DirectiveDefinition
	schema         *language.SchemaDefinition
	violations     CompositionError
}

func newMerger() *merger {
	return &merger{
		typeIndex:      map[string]*language.Definition{},
		directiveIndex: map[string]*language.DirectiveDefinition{},
	}
}

func (m *merger) add(doc *language.SchemaDocument) {
	for _, d := range doc.Directives {
		m.addDirective(d)
	}
	for _, def := range doc.Definitions {
		m.addDefinition(def)
	}
	for _, def := range doc.Extensions {
		m.addDefinition(def)
	}
	for _, s := range doc.Schema {
		m.addSchema(s)
	}
	for _, s := range doc.SchemaExtension {
		m.addSchema(s)
	}
}

func (m *merger) document() *language.SchemaDocument {
	doc := &language.SchemaDocument{
		Definitions: m.types,
		Directives:  m.directives,
	}
	if m.schema != nil {
		doc.Schema = language.SchemaDefList{m.schema}
	}
	return doc
}

func (m *merger) addDefinition(def *language.Definition) {
	cur := m.typeIndex[def.Name]
	if cur == nil {
		cur = &language.Definition{
			Kind:     def.Kind,
			Name:     def.Name,
			Position: def.Position,
		}
		m.typeIndex[def.Name] = cur
		m.types = append(m.types, cur)
	} else if cur.Kind != def.Kind {
		m.violations = append(m.violations, violationKindMismatch(def.Name, cur, def))
		return
	}

	if cur.Description == "" {
		cur.Description = def.Description
	}
	cur.Directives = mergeDirectiveUses(cur.Directives, def.Directives)
	cur.Interfaces = unionStrings(cur.Interfaces, def.Interfaces)
	cur.Types = unionStrings(cur.Types, def.Types)
	for _, ev := range def.EnumValues {
		cur.EnumValues = mergeEnumValue(cur.EnumValues, ev)
	}
	for _, f := range def.Fields {
		m.addField(cur, f)
	}
}

func (m *merger) addField(def *language.Definition, f *language.FieldDefinition) {
	for i, existing := range def.Fields {
		if existing.Name != f.Name {
			continue
		}
		want, got := fieldSignature(def.Kind, existing), fieldSignature(def.Kind, f)
		if want != got {
			m.violations = append(m.violations,
				violationFieldConflict(def.Name, f.Name, want, sourceName(existing.Position), got, f.Position))
			return
		}
		merged := *existing
		if merged.Description == "" {
			merged.Description = f.Description
		}
		merged.Directives = mergeDirectiveUses(existing.Directives, f.Directives)
		def.Fields[i] = &merged
		return
	}
	def.Fields = append(def.Fields, f)
}

func (m *merger) addDirective(d *language.DirectiveDefinition) {
	cur := m.directiveIndex[d.Name]
	if cur == nil {
		m.directiveIndex[d.Name] = d
		m.directives = append(m.directives, d)
		return
	}
	if directiveSignature(cur) != directiveSignature(d) {
		m.violations = append(m.violations, violationDirectiveConflict(d.Name, sourceName(cur.Position), d.Position))
	}
}

func (m *merger) addSchema(s *language.SchemaDefinition) {
	if m.schema == nil {
		m.schema = &language.SchemaDefinition{Position: s.Position}
	}
	if m.schema.Description == "" {
		m.schema.Description = s.Description
	}
	m.schema.Directives = mergeDirectiveUses(m.schema.Directives, s.Directives)
	for _, op := range s.OperationTypes {
		var found bool
		for _, cur := range m.schema.OperationTypes {
			if cur.Operation != op.Operation {
				continue
			}
			found = true
			if cur.Type != op.Type {
				m.violations = append(m.violations,
					violationRootConflict(op.Operation, cur.Type, op.Type, sourceName(cur.Position), op.Position))
			}
		}
		if !found {
			m.schema.OperationTypes = append(m.schema.OperationTypes, op)
		}
	}
}

func fieldSignature(kind language.DefinitionKind, f *language.FieldDefinition) string {
	var b strings.Builder
	b.WriteString(f.Type.String())
	if kind == language.InputObject {
		if f.DefaultValue != nil {
			b.WriteString(" = ")
			b.WriteString(f.DefaultValue.String())
		}
		return b.String()
	}
	if len(f.Arguments) > 0 {
		b.WriteString(" (")
		b.WriteString(argumentsSignature(f.Arguments))
		b.WriteString(")")
	}
	return b.String()
}

func argumentsSignature(args language.ArgumentDefList) string {
	parts := make([]string, len(args))
	for i, a := range args {
		p := a.Name + ": " + a.Type.String()
		if a.DefaultValue != nil {
			p += " = " + a.DefaultValue.String()
		}
		parts[i] = p
	}
	return strings.Join(parts, ", ")
}

func directiveSignature(d *language.DirectiveDefinition) string {
	locs := make([]string, len(d.Locations))
	for i, l := range d.Locations {
		locs[i] = string(l)
	}
	sort.Strings(locs)
	sig := "(" + argumentsSignature(d.Arguments) + ") on " + strings.Join(locs, "|")
	if d.IsRepeatable {
		sig = "repeatable " + sig
	}
	return sig
}

func directiveUseKey(d *language.Directive) string {
	var b strings.Builder
	b.WriteString(d.Name)
	for _, a := range d.Arguments {
		b.WriteString(" ")
		b.WriteString(a.Name)
		b.WriteString(":")
		b.WriteString(a.Value.String())
	}
	return b.String()
}

func mergeDirectiveUses(have, add language.DirectiveList) language.DirectiveList {
	if len(add) == 0 {
		return have
	}
	seen := make(map[string]bool, len(have))
	for _, d := range have {
		seen[directiveUseKey(d)] = true
	}
	out := append(language.DirectiveList(nil), have...)
	for _, d := range add {
		key := directiveUseKey(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

func mergeEnumValue(have language.EnumValueList, ev *language.EnumValueDefinition) language.EnumValueList {
	for i, cur := range have {
		if cur.Name != ev.Name {
			continue
		}
		merged := *cur
		if merged.Description == "" {
			merged.Description = ev.Description
		}
		merged.Directives = mergeDirectiveUses(cur.Directives, ev.Directives)
		have[i] = &merged
		return have
	}
	return append(have, ev)
}

func unionStrings(have, add []string) []string {
	for _, s := range add {
		var found bool
		for _, h := range have {
			if h == s {
				found = true
				break
			}
		}
		if !found {
			have = append(have, s)
		}
	}
	return have
}

// cloneDocument copies the definitions of doc so that schema validation,
// which appends introspection fields to the query type, leaves doc intact.
func cloneDocument(doc *language.SchemaDocument) *language.SchemaDocument {
	out := &language.SchemaDocument{
		Schema:     doc.Schema,
		Directives: doc.Directives,
	}
	for _, def := range doc.Definitions {
		cp := *def
		cp.Fields = append(language.FieldList(nil), def.Fields...)
		out.Definitions = append(out.Definitions, &cp)
	}
	return out
}
