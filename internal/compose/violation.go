package compose

import (
	"fmt"
	"strings"

	language "github.com/hanpama/graphgate/internal/language"
)

// Violation is one problem found while composing fragments.
type Violation struct {
	Message  string `json:"message"`
	Fragment string `json:"fragment,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// CompositionError lists every violation of a failed composition. It is
// fatal: the process should not start serving.
type CompositionError []*Violation

func (e CompositionError) Error() string {
	var b strings.Builder
	b.WriteString("schema composition failed:\n")
	for _, v := range e {
		b.WriteString("- ")
		b.WriteString(v.Message)
		if v.Fragment != "" {
			fmt.Fprintf(&b, " %s:%d:%d", v.Fragment, v.Line, v.Column)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func violationAt(message string, pos *language.Position) *Violation {
	v := &Violation{Message: message}
	if pos != nil {
		if pos.Src != nil {
			v.Fragment = pos.Src.Name
		}
		v.Line = pos.Line
		v.Column = pos.Column
	}
	return v
}

func violationFromError(err error, fragmentName string) *Violation {
	ge := language.ToError(err)
	v := &Violation{Message: ge.Message, Fragment: fragmentName}
	if file, ok := ge.Extensions["file"].(string); ok && file != "" {
		v.Fragment = file
	}
	if len(ge.Locations) > 0 && ge.Locations[0].Line > 0 {
		v.Line = ge.Locations[0].Line
		v.Column = ge.Locations[0].Column
	}
	return v
}

func violationKindMismatch(name string, first, second *language.Definition) *Violation {
	return violationAt(
		fmt.Sprintf("Type %q is declared as %s in %s and as %s here", name, first.Kind, sourceName(first.Position), second.Kind),
		second.Position,
	)
}

func violationFieldConflict(typeName, fieldName, firstSig, firstSrc, secondSig string, pos *language.Position) *Violation {
	return violationAt(
		fmt.Sprintf("Field %s.%s is declared as %q in %s and as %q here", typeName, fieldName, firstSig, firstSrc, secondSig),
		pos,
	)
}

func violationDirectiveConflict(name, firstSrc string, pos *language.Position) *Violation {
	return violationAt(
		fmt.Sprintf("Directive @%s is declared differently in %s", name, firstSrc),
		pos,
	)
}

func violationRootConflict(op language.Operation, first, second, firstSrc string, pos *language.Position) *Violation {
	return violationAt(
		fmt.Sprintf("Schema %s type is %s in %s but %s here", op, first, firstSrc, second),
		pos,
	)
}

func sourceName(pos *language.Position) string {
	if pos == nil || pos.Src == nil || pos.Src.Name == "" {
		return "another fragment"
	}
	return fmt.Sprintf("%q", pos.Src.Name)
}
