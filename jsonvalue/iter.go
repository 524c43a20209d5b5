package jsonvalue

import "iter"

// All returns a restartable sequence over v. An Array yields its elements, an
// Object yields one single-member Object per key (in key order) so callers
// can recover key/value pairs, any other scalar yields itself once, and Null
// yields nothing.
func (v Value) All() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		switch v.kind {
		case KindNull:
			return
		case KindArray:
			for _, e := range v.arr {
				if !yield(e.clone()) {
					return
				}
			}
		case KindObject:
			for _, k := range v.sortedKeys() {
				single := Value{kind: KindObject, obj: map[string]Value{k: v.obj[k].clone()}}
				if !yield(single) {
					return
				}
			}
		default:
			yield(v)
		}
	}
}

// Entries yields the members of an Object in key order. Other variants yield
// nothing.
func (v Value) Entries() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if v.kind != KindObject {
			return
		}
		for _, k := range v.sortedKeys() {
			if !yield(k, v.obj[k].clone()) {
				return
			}
		}
	}
}
