package executor

// slot is one position in the response tree. A slot holds a leaf value, an
// *objectResult or a []*slot. Null propagation walks parent links: nullifying
// a Non-Null slot nullifies its parent as well.
type slot struct {
	parent  *slot
	nonNull bool
	null    bool
	value   any
}

type objectResult struct {
	keys   []string
	fields map[string]*slot
}

func (o *objectResult) set(key string, s *slot) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = s
}

func (s *slot) nullify() {
	for cur := s; cur != nil; cur = cur.parent {
		cur.null = true
		cur.value = nil
		if !cur.nonNull {
			return
		}
	}
}

// dead reports whether s or any ancestor has been nullified. Work queued
// under a dead slot is discarded.
func (s *slot) dead() bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.null {
			return true
		}
	}
	return false
}

func (s *slot) materialize() any {
	if s.null {
		return nil
	}
	switch v := s.value.(type) {
	case *objectResult:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.fields[k].materialize()
		}
		return out
	case []*slot:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e.materialize()
		}
		return out
	default:
		return v
	}
}
