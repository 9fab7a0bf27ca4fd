package raw

import "fmt"

// Registry owns the indirect objects of a document. Numbers are assigned
// monotonically starting at 1 in the order objects are first reserved or
// added; number 0 is the reserved free-list head. A reservation may be filled
// later, which is how forward references are built.
type Registry struct {
	objs []Object // objs[i] holds object number i+1; nil while reserved
}

func NewRegistry() *Registry { return &Registry{} }

// Reserve allocates the next object number with no body yet.
func (r *Registry) Reserve() ObjectRef {
	r.objs = append(r.objs, nil)
	return ObjectRef{Num: len(r.objs)}
}

// Fill sets the body of a previously reserved number.
func (r *Registry) Fill(ref ObjectRef, obj Object) error {
	if ref.Num < 1 || ref.Num > len(r.objs) {
		return fmt.Errorf("fill object %d: number never reserved", ref.Num)
	}
	if r.objs[ref.Num-1] != nil {
		return fmt.Errorf("fill object %d: already filled", ref.Num)
	}
	if obj == nil {
		return fmt.Errorf("fill object %d: nil object", ref.Num)
	}
	r.objs[ref.Num-1] = obj
	return nil
}

// Add reserves a number and fills it in one step.
func (r *Registry) Add(obj Object) ObjectRef {
	ref := r.Reserve()
	r.objs[ref.Num-1] = obj
	return ref
}

// Get returns the body registered under ref.
func (r *Registry) Get(ref ObjectRef) (Object, bool) {
	if ref.Num < 1 || ref.Num > len(r.objs) {
		return nil, false
	}
	obj := r.objs[ref.Num-1]
	return obj, obj != nil
}

// Len reports the number of assigned object numbers, filled or not.
func (r *Registry) Len() int { return len(r.objs) }

// Objects returns every registered object in ascending number order. The
// slice index i corresponds to object number i+1; unfilled reservations show
// as nil and must be caught with Unresolved before serialization.
func (r *Registry) Objects() []Object { return r.objs }

// Unresolved returns every reference that cannot be satisfied: reserved
// numbers never filled, and RefObj values pointing outside the registry.
func (r *Registry) Unresolved() []ObjectRef {
	var out []ObjectRef
	seen := make(map[ObjectRef]bool)
	report := func(ref ObjectRef) {
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	for i, obj := range r.objs {
		if obj == nil {
			report(ObjectRef{Num: i + 1})
			continue
		}
		r.walkRefs(obj, report)
	}
	return out
}

func (r *Registry) walkRefs(obj Object, report func(ObjectRef)) {
	switch o := obj.(type) {
	case RefObj:
		if o.R.Num < 1 || o.R.Num > len(r.objs) || r.objs[o.R.Num-1] == nil {
			report(o.R)
		}
	case *ArrayObj:
		for _, it := range o.Items {
			r.walkRefs(it, report)
		}
	case *DictObj:
		for _, v := range o.KV {
			r.walkRefs(v, report)
		}
	case *StreamObj:
		r.walkRefs(o.Dict, report)
	}
}
