package jsonvalue

// Merge combines other into a copy of v and returns it.
//
//   - An Array other is appended to v's elements; a v that is not an Array
//     contributes none.
//   - Two Objects take the key union; members present on both sides are
//     merged recursively, so other wins on conflicting scalars.
//   - Any other pairing is an overwrite by other.
//
// Only the outermost call checks types, and only when other is not an Array:
// it fails with a *MergeTypeError unless both sides hold the same variant or
// other is Null. Inside the tree a mismatch simply overwrites.
func (v Value) Merge(other Value) (Value, error) {
	if other.kind == KindArray {
		return concat(v.ArrayValue(), other.arr), nil
	}
	if v.kind != other.kind && other.kind != KindNull {
		return v.clone(), &MergeTypeError{Self: v.kind, Other: other.kind}
	}
	return v.merge(other), nil
}

func (v Value) merge(other Value) Value {
	if v.kind != other.kind {
		return other.clone()
	}
	switch other.kind {
	case KindArray:
		return concat(v.arr, other.arr)
	case KindObject:
		out := v.clone()
		for k, theirs := range other.obj {
			if mine, ok := out.obj[k]; ok {
				out.obj[k] = mine.merge(theirs)
				continue
			}
			out.obj[k] = theirs.clone()
		}
		return out
	default:
		return other.clone()
	}
}

func concat(a, b []Value) Value {
	arr := make([]Value, 0, len(a)+len(b))
	for _, e := range a {
		arr = append(arr, e.clone())
	}
	for _, e := range b {
		arr = append(arr, e.clone())
	}
	return Value{kind: KindArray, arr: arr}
}
