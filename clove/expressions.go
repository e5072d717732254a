package clove

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Sexp is the universal value interface. Everything the evaluator
// touches, from integers to namespaces to error values, satisfies it.
type Sexp interface {
	// SexpString: produce a string from our value.
	// Single-line strings can ignore ps.
	SexpString(ps *PrintState) string

	// Type returns the type of the value.
	Type() *RegisteredType
}

// SexpSentinel values are the unique markers SexpNull, SexpEnd,
// SexpMarker and SexpUnbound. Compare against them with ==.
type SexpSentinel struct {
	Val int
}

// these are values now so that they also have addresses.
var SexpNull = &SexpSentinel{Val: 0}
var SexpEnd = &SexpSentinel{Val: 1}
var SexpMarker = &SexpSentinel{Val: 2}

// SexpUnbound is the root of a var that was declared but never given
// a value.
var SexpUnbound = &SexpSentinel{Val: 3}

func (sent *SexpSentinel) SexpString(ps *PrintState) string {
	if sent == SexpNull {
		return "nil"
	}
	if sent == SexpEnd {
		return "End"
	}
	if sent == SexpMarker {
		return "Marker"
	}
	if sent == SexpUnbound {
		return "Unbound"
	}
	return ""
}

func (sent *SexpSentinel) Type() *RegisteredType {
	if sent == SexpNull {
		return NullRT
	}
	return SentinelRT
}

// SexpPair is a cons cell; proper lists end in SexpNull.
type SexpPair struct {
	Head Sexp
	Tail Sexp
	meta *NodeMeta
}

func Cons(a Sexp, b Sexp) *SexpPair {
	return &SexpPair{Head: a, Tail: b}
}

func (pair *SexpPair) SexpString(ps *PrintState) string {
	str := "("

	for {
		switch pair.Tail.(type) {
		case *SexpPair:
			str += pair.Head.SexpString(ps) + " "
			pair = pair.Tail.(*SexpPair)
			continue
		}
		break
	}

	str += pair.Head.SexpString(ps)

	if pair.Tail == SexpNull {
		str += ")"
	} else {
		str += " \\ " + pair.Tail.SexpString(ps) + ")"
	}

	return str
}

func (pair *SexpPair) Type() *RegisteredType {
	return PairRT
}

func (pair *SexpPair) NodeMeta() *NodeMeta {
	return pair.meta
}

func (pair *SexpPair) WithNodeMeta(m *NodeMeta) Sexp {
	cp := *pair
	cp.meta = m
	return &cp
}

type SexpInt struct {
	Val int64
}

func (i *SexpInt) SexpString(ps *PrintState) string {
	return strconv.FormatInt(i.Val, 10)
}

func (i *SexpInt) Type() *RegisteredType {
	return Int64RT
}

type SexpFloat struct {
	Val float64
}

var SexpFloatSize = reflect.TypeOf(float64(0)).Bits()

func (f *SexpFloat) SexpString(ps *PrintState) string {
	return strconv.FormatFloat(f.Val, 'g', 5, SexpFloatSize)
}

func (f *SexpFloat) Type() *RegisteredType {
	return Float64RT
}

type SexpChar struct {
	Val rune
}

func (c *SexpChar) SexpString(ps *PrintState) string {
	return "#" + strings.Trim(strconv.QuoteRune(c.Val), "'")
}

func (c *SexpChar) Type() *RegisteredType {
	return RuneRT
}

type SexpStr struct {
	S string
}

func (s *SexpStr) SexpString(ps *PrintState) string {
	return strconv.Quote(s.S)
}

func (s *SexpStr) Type() *RegisteredType {
	return StringRT
}

type SexpBool struct {
	Val bool
}

func (b *SexpBool) SexpString(ps *PrintState) string {
	if b.Val {
		return "true"
	}
	return "false"
}

func (b *SexpBool) Type() *RegisteredType {
	return BoolRT
}

// SexpRaw is a byte slice value, as produced by the msgpack codec.
type SexpRaw struct {
	Val []byte
}

func (r *SexpRaw) SexpString(ps *PrintState) string {
	return fmt.Sprintf("%#v", r.Val)
}

func (r *SexpRaw) Type() *RegisteredType {
	return RawRT
}

// SexpReflect wraps a native Go value handed across the interop
// boundary.
type SexpReflect struct {
	Val reflect.Value
}

func NewSexpReflect(v interface{}) *SexpReflect {
	return &SexpReflect{Val: reflect.ValueOf(v)}
}

func (r *SexpReflect) SexpString(ps *PrintState) string {
	return fmt.Sprintf("(go %T %v)", r.Val.Interface(), r.Val.Interface())
}

func (r *SexpReflect) Type() *RegisteredType {
	rt := GoStructRegistry.Lookup(ifaceName(r.Val.Interface()))
	if rt != nil {
		return rt
	}
	return ReflectRT
}

// SexpError wraps a Go error as a value, so raised engine errors can
// flow through catch clauses like any other thrown value.
type SexpError struct {
	error
}

func (e *SexpError) SexpString(ps *PrintState) string {
	return e.error.Error()
}

func (e *SexpError) Type() *RegisteredType {
	return ErrorRT
}

func (e *SexpError) Cause() error {
	return e.error
}

type SexpArray struct {
	Val  []Sexp
	meta *NodeMeta
}

func (arr *SexpArray) SexpString(ps *PrintState) string {
	if len(arr.Val) == 0 {
		return "[]"
	}

	str := "[" + arr.Val[0].SexpString(ps)
	for _, sexp := range arr.Val[1:] {
		str += " " + sexp.SexpString(ps)
	}
	str += "]"
	return str
}

func (arr *SexpArray) Type() *RegisteredType {
	return ArrayRT
}

func (arr *SexpArray) NodeMeta() *NodeMeta {
	return arr.meta
}

func (arr *SexpArray) WithNodeMeta(m *NodeMeta) Sexp {
	cp := SexpArray{Val: arr.Val, meta: m}
	return &cp
}

// SexpSymbol is an interned symbol. The number is assigned by the env
// that interned it and keys the lexical scope maps.
type SexpSymbol struct {
	name   string
	number int
	meta   *NodeMeta
}

func (sym *SexpSymbol) SexpString(ps *PrintState) string {
	return sym.name
}

func (sym *SexpSymbol) Type() *RegisteredType {
	return SymbolRT
}

func (sym *SexpSymbol) Name() string {
	return sym.name
}

func (sym *SexpSymbol) Number() int {
	return sym.number
}

func (sym *SexpSymbol) NodeMeta() *NodeMeta {
	return sym.meta
}

func (sym *SexpSymbol) WithNodeMeta(m *NodeMeta) Sexp {
	cp := *sym
	cp.meta = m
	return &cp
}

// Callable is anything the call dispatcher can invoke with already
// evaluated arguments.
type Callable interface {
	Sexp
	Call(args []Sexp) (Sexp, error)
}

// UserFunction is the signature of a host function reachable from
// evaluated code.
type UserFunction func(name string, args []Sexp) (Sexp, error)

// CtxFunction is a host function that additionally needs the live
// evaluation context. Values of this shape are stamped OpNeedsContext
// and Eval binds the context before they become callable.
type CtxFunction func(ctx *Context, name string, args []Sexp) (Sexp, error)

type SexpFunction struct {
	name    string
	userfun UserFunction
	nargs   int
	varargs bool
	meta    *NodeMeta
}

func MakeUserFunction(name string, ufun UserFunction) *SexpFunction {
	var sfun SexpFunction
	sfun.name = name
	sfun.userfun = ufun
	return &sfun
}

func (sf *SexpFunction) Name() string {
	return sf.name
}

func (sf *SexpFunction) Call(args []Sexp) (Sexp, error) {
	if sf.userfun == nil {
		return SexpNull, fmt.Errorf("function '%s' has no implementation", sf.name)
	}
	return sf.userfun(sf.name, args)
}

func (sf *SexpFunction) SexpString(ps *PrintState) string {
	return "fn [" + sf.name + "]"
}

func (sf *SexpFunction) Type() *RegisteredType {
	return FuncRT
}

func (sf *SexpFunction) NodeMeta() *NodeMeta {
	return sf.meta
}

func (sf *SexpFunction) WithNodeMeta(m *NodeMeta) Sexp {
	cp := *sf
	cp.meta = m
	return &cp
}

// SexpCtxFunction wraps a CtxFunction until Eval binds a context to
// it. It deliberately does not satisfy Callable; calling before the
// bind is a bug.
type SexpCtxFunction struct {
	name string
	fn   CtxFunction
	meta *NodeMeta
}

func MakeCtxFunction(name string, fn CtxFunction) *SexpCtxFunction {
	cf := &SexpCtxFunction{name: name, fn: fn}
	return WithEvalOp(cf, OpNeedsContext).(*SexpCtxFunction)
}

// Bind partially applies ctx, yielding an ordinary callable.
func (cf *SexpCtxFunction) Bind(ctx *Context) *SexpFunction {
	fn := cf.fn
	return MakeUserFunction(cf.name, func(name string, args []Sexp) (Sexp, error) {
		return fn(ctx, name, args)
	})
}

func (cf *SexpCtxFunction) Name() string {
	return cf.name
}

func (cf *SexpCtxFunction) SexpString(ps *PrintState) string {
	return "ctxfn [" + cf.name + "]"
}

func (cf *SexpCtxFunction) Type() *RegisteredType {
	return FuncRT
}

func (cf *SexpCtxFunction) NodeMeta() *NodeMeta {
	return cf.meta
}

func (cf *SexpCtxFunction) WithNodeMeta(m *NodeMeta) Sexp {
	cp := *cf
	cp.meta = m
	return &cp
}

// SexpDelay is a memoized thunk. Force runs the thunk at most once,
// even under concurrent deref.
type SexpDelay struct {
	name string
	fn   Callable
	once sync.Once
	val  Sexp
	err  error
}

func NewDelay(name string, fn Callable) *SexpDelay {
	return &SexpDelay{name: name, fn: fn}
}

func (d *SexpDelay) Force() (Sexp, error) {
	d.once.Do(func() {
		d.val, d.err = d.fn.Call(nil)
	})
	return d.val, d.err
}

func (d *SexpDelay) SexpString(ps *PrintState) string {
	return "delay [" + d.name + "]"
}

func (d *SexpDelay) Type() *RegisteredType {
	return DelayRT
}

// IsTruthy: only nil and false are false; everything else,
// the number zero included, is true.
func IsTruthy(expr Sexp) bool {
	switch e := expr.(type) {
	case *SexpBool:
		return e.Val
	case *SexpSentinel:
		return e != SexpNull
	}
	return true
}

// CallableName reports a display name for f.
func CallableName(f Callable) string {
	switch fn := f.(type) {
	case *SexpFunction:
		return fn.name
	}
	return f.SexpString(nil)
}
