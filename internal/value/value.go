// Package value implements grotsky's tagged-union Value model (spec.md §3).
// Grounded on the teacher's vmregister/value.go object taxonomy
// (ClosureObj/UpvalueObj/ClassObj/InstanceObj/ModuleObj shapes, FNV-1a
// HashString, IsTruthy/ValuesEqual/ToString helper style) but deliberately
// NOT NaN-boxed: the teacher boxes a Value as a uint64 with a side
// "globalObjectCache", which has no way to express the reference-counted
// release discipline spec.md's Lifecycles section requires. Here a Value is
// a small tagged struct, and every heap-payload kind carries its own
// refcount (see refcount.go).
package value

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
)

type Kind uint8

const (
	KindNil Kind = iota
	KindNumber
	KindBool
	KindString
	KindBytes
	KindList
	KindDict
	KindSlice
	KindFn
	KindClass
	KindObject
	KindNative
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindSlice:
		return "slice"
	case KindFn:
		return "function"
	case KindClass:
		return "class"
	case KindObject:
		return "object"
	case KindNative:
		return "native"
	}
	return "unknown"
}

// Value is the tagged union. Only one of the payload fields is live,
// selected by Kind. Heap-payload kinds (String/List/Dict/Fn/Class/Object/
// Native) store a pointer to a ref-counted object; Number/Bool/Nil are
// plain inline data.
type Value struct {
	Kind Kind
	num  float64
	b    bool
	obj  interface{} // *StringObj | *BytesObj | *ListObj | *DictObj | *SliceObj | *FnObj | *ClassObj | *ObjectObj | *NativeObj
}

func Nil() Value                 { return Value{Kind: KindNil} }
func Number(n float64) Value     { return Value{Kind: KindNumber, num: n} }
func Bool(b bool) Value          { return Value{Kind: KindBool, b: b} }

func String(s string) Value {
	return Value{Kind: KindString, obj: &StringObj{refcounted: refcounted{rc: 1}, Value: s}}
}

func Bytes(b []byte) Value {
	return Value{Kind: KindBytes, obj: &BytesObj{refcounted: refcounted{rc: 1}, Value: b}}
}

func NewList(elems []Value) Value {
	return Value{Kind: KindList, obj: &ListObj{refcounted: refcounted{rc: 1}, Elements: elems}}
}

func NewDict() Value {
	return Value{Kind: KindDict, obj: &DictObj{refcounted: refcounted{rc: 1}, Items: map[string]DictEntry{}, Order: nil}}
}

func NewSlice(first, second, third Value) Value {
	return Value{Kind: KindSlice, obj: &SliceObj{refcounted: refcounted{rc: 1}, First: first, Second: second, Third: third}}
}

func NewFn(fn *FnObj) Value {
	fn.rc = 1
	return Value{Kind: KindFn, obj: fn}
}

// WrapFn wraps an already-live FnObj (one that already has its own refcount,
// e.g. the enclosing frame's own closure) without resetting rc. Callers that
// duplicate the result into a new binding must Retain it themselves, same as
// any other borrowed-then-stored value.
func WrapFn(fn *FnObj) Value {
	return Value{Kind: KindFn, obj: fn}
}

func NewClass(c *ClassObj) Value {
	c.rc = 1
	return Value{Kind: KindClass, obj: c}
}

func NewObject(o *ObjectObj) Value {
	o.rc = 1
	return Value{Kind: KindObject, obj: o}
}

func NewNative(n *NativeObj) Value {
	n.rc = 1
	return Value{Kind: KindNative, obj: n}
}

// --- payload object types ---

type refcounted struct{ rc int32 }

func (r *refcounted) Retain()     { r.rc++ }
func (r *refcounted) Release() int32 {
	r.rc--
	return r.rc
}
func (r *refcounted) RefCount() int32 { return r.rc }

type StringObj struct {
	refcounted
	Value string
}

type BytesObj struct {
	refcounted
	Value []byte
}

type ListObj struct {
	refcounted
	Elements []Value
}

// DictEntry pairs a dict value with its insertion index, so iteration can
// be replayed in deterministic insertion order (spec.md §4.3 "Iteration
// ordering") without relying on Go map ranging order.
type DictEntry struct {
	Key   Value
	Value Value
	Order int
}

type DictObj struct {
	refcounted
	Items    map[string]DictEntry
	Order    []string // keys in insertion order; appended to, never reordered
	nextSeq  int
}

type SliceObj struct {
	refcounted
	First, Second, Third Value
}

// UpvalueCell is the shared, ref-counted mutable cell a captured local is
// promoted into (spec.md's Record: Val -> Ref on first capture). Every
// reader/writer of the captured slot — the defining frame and every
// closure that captured it — holds a pointer to the same cell.
type UpvalueCell struct {
	refcounted
	V Value
}

type FnObj struct {
	refcounted
	ProtoIndex int // index into the owning Program.Prototypes
	Upvalues   []*UpvalueCell
	Bound      *Value // optional bound receiver (method value), nil if none
	Name       string
	Native     *NativeFn // non-nil for a host-implemented callable
}

// NativeFn is the Native Binding Contract's callable shape: a host function
// taking already-evaluated argument Values (with the receiver prepended
// when Bind is set) and returning a Value or an error, which the VM turns
// into a catchable exception.
type NativeFn struct {
	Name string
	Fn   func(args []Value) (Value, error)
	Bind bool
	// Baggage is opaque per-value payload for resource handles (sockets,
	// file handles, db connections, ...); ref-counted by the enclosing
	// NativeObj, not here.
}

type ClassObj struct {
	refcounted
	Name       string
	Superclass *ClassObj // nil if none
	Methods    map[string]Value
	StaticMeth map[string]Value
}

// FindMethod walks the superclass chain C0<C1<...<Cn and returns the
// method defined by the smallest i such that Ci defines it (spec.md §8).
func (c *ClassObj) FindMethod(name string) (Value, bool) {
	for cur := c; cur != nil; cur = cur.Superclass {
		if m, ok := cur.Methods[name]; ok {
			return m, true
		}
	}
	return Value{}, false
}

type ObjectObj struct {
	refcounted
	Class  *ClassObj
	Fields map[string]Value
}

// NativeObj is a host-provided value: a property map plus an optional
// callable and "bind" flag (methods on sockets and similar handles) and
// optional opaque baggage (a resource handle). Baggage close funcs run
// when the refcount drops to zero, matching spec.md §5's "the VM holds the
// handle for exactly as long as any Value references it."
type NativeObj struct {
	refcounted
	Properties map[string]Value
	Callable   *NativeFn
	Baggage    interface{}
	OnRelease  func(baggage interface{})
}

func (n *NativeObj) release() {
	if n.RefCount() == 0 && n.OnRelease != nil && n.Baggage != nil {
		n.OnRelease(n.Baggage)
	}
}

// --- universal operations ---

func IsTruthy(v Value) bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	case KindString:
		return v.obj.(*StringObj).Value != ""
	case KindBytes:
		return len(v.obj.(*BytesObj).Value) > 0
	default:
		return true
	}
}

func AsNumber(v Value) float64    { return v.num }
func AsBool(v Value) bool         { return v.b }
func AsString(v Value) string     { return v.obj.(*StringObj).Value }
func AsBytes(v Value) []byte      { return v.obj.(*BytesObj).Value }
func AsList(v Value) *ListObj     { return v.obj.(*ListObj) }
func AsDict(v Value) *DictObj     { return v.obj.(*DictObj) }
func AsSlice(v Value) *SliceObj   { return v.obj.(*SliceObj) }
func AsFn(v Value) *FnObj         { return v.obj.(*FnObj) }
func AsClass(v Value) *ClassObj   { return v.obj.(*ClassObj) }
func AsObject(v Value) *ObjectObj { return v.obj.(*ObjectObj) }
func AsNative(v Value) *NativeObj { return v.obj.(*NativeObj) }

// Equals implements spec.md's per-variant equality table: numeric for
// Number, identity for Bool, content for String, reference (pointer
// identity) for List/Dict, nil==nil, reference for everything else.
func Equals(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindNumber:
		return a.num == b.num
	case KindBool:
		return a.b == b.b
	case KindString:
		return AsString(a) == AsString(b)
	case KindList:
		return a.obj.(*ListObj) == b.obj.(*ListObj)
	case KindDict:
		return a.obj.(*DictObj) == b.obj.(*DictObj)
	default:
		return a.obj == b.obj
	}
}

// HashKey returns a comparable Go key for using v as a dict key. Hashing is
// only defined for Number, String, Bool (spec.md §3); anything else is a
// runtime error the caller must raise.
func HashKey(v Value) (string, bool) {
	switch v.Kind {
	case KindNumber:
		return fmt.Sprintf("n:%v", v.num), true
	case KindString:
		return "s:" + AsString(v), true
	case KindBool:
		return fmt.Sprintf("b:%v", v.b), true
	default:
		return "", false
	}
}

// SetHashed stores val under the dict-key string produced by HashKey,
// recording insertion order on first write.
func (d *DictObj) SetHashed(hashKey string, displayKey, val Value) {
	if e, ok := d.Items[hashKey]; ok {
		Release(e.Value)
		e.Value = val
		d.Items[hashKey] = e
		return
	}
	d.Items[hashKey] = DictEntry{Key: displayKey, Value: val, Order: d.nextSeq}
	d.nextSeq++
	d.Order = append(d.Order, hashKey)
}

// OrderedKeys returns the dict's hash-keys in insertion order, snapshotted
// once (per spec.md §4.3, iteration must be deterministic within a run).
func (d *DictObj) OrderedKeys() []string {
	keys := maps.Keys(d.Items)
	sort.Slice(keys, func(i, j int) bool { return d.Items[keys[i]].Order < d.Items[keys[j]].Order })
	return keys
}

func ToDisplayString(v Value) string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindNumber:
		if v.num == float64(int64(v.num)) {
			return fmt.Sprintf("%d", int64(v.num))
		}
		return fmt.Sprintf("%g", v.num)
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindString:
		return AsString(v)
	case KindBytes:
		return fmt.Sprintf("%v", AsBytes(v))
	case KindList:
		l := AsList(v)
		s := "["
		for i, e := range l.Elements {
			if i > 0 {
				s += ", "
			}
			s += ToDisplayString(e)
		}
		return s + "]"
	case KindDict:
		d := AsDict(v)
		s := "{"
		for i, k := range d.OrderedKeys() {
			if i > 0 {
				s += ", "
			}
			s += k + ": " + ToDisplayString(d.Items[k].Value)
		}
		return s + "}"
	case KindFn:
		return "<fn " + AsFn(v).Name + ">"
	case KindClass:
		return "<class " + AsClass(v).Name + ">"
	case KindObject:
		return "<object " + AsObject(v).Class.Name + ">"
	case KindNative:
		return "<native>"
	}
	return "?"
}

// FNV-1a, matching the teacher's HashString style, used internally where a
// stable non-dict-key hash is useful (debug identifiers, handle tags).
func FNV1a(s string) uint64 {
	var h uint64 = 0xcbf29ce484222325
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 0x100000001b3
	}
	return h
}
