package jsonvalue

// Equal reports full structural equality. Int and Double are distinct
// variants, so Int(1) is not equal to Double(1). Object member order is
// irrelevant.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindDouble:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, a := range v.obj {
			b, ok := other.obj[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Less is defined only between two Strings, two Ints or two Doubles. Every
// other pairing, containers included, is false.
func (v Value) Less(other Value) bool {
	switch {
	case v.kind == KindString && other.kind == KindString:
		return v.s < other.s
	case v.kind == KindInt && other.kind == KindInt:
		return v.i < other.i
	case v.kind == KindDouble && other.kind == KindDouble:
		return v.f < other.f
	}
	return false
}

// Greater mirrors Less.
func (v Value) Greater(other Value) bool {
	switch {
	case v.kind == KindString && other.kind == KindString:
		return v.s > other.s
	case v.kind == KindInt && other.kind == KindInt:
		return v.i > other.i
	case v.kind == KindDouble && other.kind == KindDouble:
		return v.f > other.f
	}
	return false
}

// LessOrEqual orders same-variant scalars like Less and falls back to Equal
// for two Arrays, two Objects, two Bools or two Nulls. So for containers
// LessOrEqual can be true while Less is false; this is intentional.
func (v Value) LessOrEqual(other Value) bool {
	switch {
	case v.kind == KindString && other.kind == KindString:
		return v.s <= other.s
	case v.kind == KindInt && other.kind == KindInt:
		return v.i <= other.i
	case v.kind == KindDouble && other.kind == KindDouble:
		return v.f <= other.f
	case v.kind == other.kind:
		return v.Equal(other)
	}
	return false
}

// GreaterOrEqual mirrors LessOrEqual.
func (v Value) GreaterOrEqual(other Value) bool {
	switch {
	case v.kind == KindString && other.kind == KindString:
		return v.s >= other.s
	case v.kind == KindInt && other.kind == KindInt:
		return v.i >= other.i
	case v.kind == KindDouble && other.kind == KindDouble:
		return v.f >= other.f
	case v.kind == other.kind:
		return v.Equal(other)
	}
	return false
}
