package value

// Retain increments a heap-payload Value's refcount. Number/Bool/Nil are
// no-ops (they are not heap-allocated).
func Retain(v Value) {
	switch v.Kind {
	case KindString:
		v.obj.(*StringObj).Retain()
	case KindBytes:
		v.obj.(*BytesObj).Retain()
	case KindList:
		v.obj.(*ListObj).Retain()
	case KindDict:
		v.obj.(*DictObj).Retain()
	case KindSlice:
		v.obj.(*SliceObj).Retain()
	case KindFn:
		v.obj.(*FnObj).Retain()
	case KindClass:
		v.obj.(*ClassObj).Retain()
	case KindObject:
		v.obj.(*ObjectObj).Retain()
	case KindNative:
		v.obj.(*NativeObj).Retain()
	}
}

// Release decrements a heap-payload Value's refcount, per spec.md's
// Lifecycles: "Values are released through reference-counting decrements as
// they fall off the activation-record vector at frame return ... or are
// overwritten in a register." This module accepts the documented leak on
// cyclic object graphs (spec.md §9) rather than layering a mark-and-sweep
// pass: Release only ever decrements the immediate object, never recurses
// into its children, so a List holding itself (or mutually-referencing
// closures sharing upvalue cells) simply never reaches refcount zero.
func Release(v Value) {
	switch v.Kind {
	case KindString:
		v.obj.(*StringObj).Release()
	case KindBytes:
		v.obj.(*BytesObj).Release()
	case KindList:
		v.obj.(*ListObj).Release()
	case KindDict:
		v.obj.(*DictObj).Release()
	case KindSlice:
		v.obj.(*SliceObj).Release()
	case KindFn:
		v.obj.(*FnObj).Release()
	case KindClass:
		v.obj.(*ClassObj).Release()
	case KindObject:
		v.obj.(*ObjectObj).Release()
	case KindNative:
		n := v.obj.(*NativeObj)
		n.Release()
		n.release()
	}
}
