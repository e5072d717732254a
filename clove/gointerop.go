package clove

import (
	"fmt"
	"reflect"
	"runtime"
)

// GoInterop is the engine's reference InteropResolver. Classes are
// entries in the Go type registry, instances are *SexpReflect values,
// and methods are found with the reflect package at call time. Static
// members live in two tables keyed "Class/member", filled at setup
// time before any evaluation runs.
type GoInterop struct {
	env *Env

	statics     map[string]Sexp
	staticFuncs map[string]reflect.Value
}

func NewGoInterop() *GoInterop {
	return &GoInterop{
		statics:     make(map[string]Sexp),
		staticFuncs: make(map[string]reflect.Value),
	}
}

// SetEnv hands the resolver its env once construction order allows.
// Factories registered for user types receive it.
func (g *GoInterop) SetEnv(env *Env) {
	g.env = env
}

// RegisterStatic exposes val as a static member, e.g.
// RegisterStatic("Math/Pi", &SexpFloat{Val: math.Pi}).
func (g *GoInterop) RegisterStatic(name string, val Sexp) {
	g.statics[name] = val
}

// RegisterStaticFunc exposes a Go function as a static method.
func (g *GoInterop) RegisterStaticFunc(name string, fn interface{}) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("RegisterStaticFunc: '%s' is %T, not a func", name, fn)
	}
	g.staticFuncs[name] = v
	return nil
}

// ResolveClass answers for non-record registry entries; record names
// belong to the record resolver.
func (g *GoInterop) ResolveClass(ctx *Context, qualified string) (Sexp, bool) {
	rt := GoStructRegistry.Lookup(qualified)
	if rt == nil || rt.IsRecord {
		return nil, false
	}
	return rt, true
}

// InvokeConstructor builds an instance of classRef. With no arguments
// the registered factory's zero value comes back; with a single hash
// argument the exported fields named by the hash are filled in.
func (g *GoInterop) InvokeConstructor(classRef Sexp, args []Sexp) (Sexp, error) {
	rt, ok := classRef.(*RegisteredType)
	if !ok {
		return SexpNull, fmt.Errorf("cannot construct from %T, want a registered type", classRef)
	}
	if rt.Factory == nil {
		return SexpNull, fmt.Errorf("type '%s' has no factory", rt.RegisteredName)
	}

	var h *SexpHash
	switch len(args) {
	case 0:
	case 1:
		h, ok = args[0].(*SexpHash)
		if !ok {
			return SexpNull, fmt.Errorf("constructor for '%s' wants a field hash, got %T",
				rt.RegisteredName, args[0])
		}
	default:
		return SexpNull, WrongNargs
	}

	Q("InvokeConstructor: building '%s' from %d args", rt.RegisteredName, len(args))
	val, err := rt.Factory(g.env, h)
	if err != nil {
		return SexpNull, err
	}
	rv := reflect.ValueOf(val)
	if h != nil {
		if err := fillStructFromHash(rv, h); err != nil {
			return SexpNull, err
		}
	}
	return &SexpReflect{Val: rv}, nil
}

// fillStructFromHash copies hash entries onto same-named exported
// struct fields.
func fillStructFromHash(rv reflect.Value, h *SexpHash) error {
	sv := rv
	for sv.Kind() == reflect.Ptr {
		sv = sv.Elem()
	}
	if sv.Kind() != reflect.Struct {
		return fmt.Errorf("cannot fill fields of %s", rv.Type())
	}
	for _, key := range h.KeyOrder {
		name := ""
		switch k := key.(type) {
		case *SexpSymbol:
			name = k.name
		case *SexpStr:
			name = k.S
		default:
			return fmt.Errorf("field key '%s' should have been a symbol or string", key.SexpString(nil))
		}
		fld := sv.FieldByName(name)
		if !fld.IsValid() || !fld.CanSet() {
			return fmt.Errorf("%s has no settable field '%s'", sv.Type(), name)
		}
		val, err := h.HashGet(key)
		if err != nil {
			return err
		}
		Q("fillStructFromHash: setting field '%s' on %v", name, sv.Type())
		conv, err := sexpToReflect(val, fld.Type())
		if err != nil {
			return err
		}
		fld.Set(conv)
	}
	return nil
}

// InvokeInstanceMethod calls method on recv with args. When no method
// matches and args is empty, an exported field of the same name
// answers instead.
func (g *GoInterop) InvokeInstanceMethod(recv Sexp, classRef Sexp, method string, args []Sexp) (res Sexp, err error) {
	sr, ok := recv.(*SexpReflect)
	if !ok {
		return SexpNull, fmt.Errorf("receiver %T is not a native value", recv)
	}
	rv := sr.Val

	m := rv.MethodByName(method)
	if !m.IsValid() && rv.Kind() != reflect.Ptr {
		pv := reflect.New(rv.Type())
		pv.Elem().Set(rv)
		m = pv.MethodByName(method)
	}
	if !m.IsValid() {
		fv := rv
		for fv.Kind() == reflect.Ptr {
			fv = fv.Elem()
		}
		if fv.Kind() == reflect.Struct {
			fld := fv.FieldByName(method)
			if fld.IsValid() && len(args) == 0 {
				return goToSexp(fld.Interface()), nil
			}
		}
		return SexpNull, fmt.Errorf("class '%s' has no method '%s'",
			classNameOf(classRef, ifaceName(rv.Interface())), method)
	}

	defer func() {
		if r := recover(); r != nil {
			trace := make([]byte, 16384)
			nbyte := runtime.Stack(trace, false)
			trace = trace[:nbyte]
			err = fmt.Errorf("caught panic during call of '%s': '%v'\n stack trace:\n%v\n",
				method, r, string(trace))
			res = SexpNull
		}
	}()
	return callReflected(m, args)
}

// InvokeStaticMethod calls a registered static function. The target
// node names it, usually a symbol like Math/Abs.
func (g *GoInterop) InvokeStaticMethod(target Sexp, args []Sexp) (res Sexp, err error) {
	name, err := staticName(target)
	if err != nil {
		return SexpNull, err
	}
	fn, ok := g.staticFuncs[name]
	if !ok {
		if v, found := g.statics[name]; found {
			if c, isCallable := v.(Callable); isCallable {
				return c.Call(args)
			}
		}
		return SexpNull, fmt.Errorf("unknown static method '%s'", name)
	}

	defer func() {
		if r := recover(); r != nil {
			trace := make([]byte, 16384)
			nbyte := runtime.Stack(trace, false)
			trace = trace[:nbyte]
			err = fmt.Errorf("caught panic during call of '%s': '%v'\n stack trace:\n%v\n",
				name, r, string(trace))
			res = SexpNull
		}
	}()
	return callReflected(fn, args)
}

// GetStaticField reads a registered static member.
func (g *GoInterop) GetStaticField(target Sexp) (Sexp, error) {
	name, err := staticName(target)
	if err != nil {
		return SexpNull, err
	}
	if v, ok := g.statics[name]; ok {
		return v, nil
	}
	if fn, ok := g.staticFuncs[name]; ok {
		fnv := fn
		nm := name
		return MakeUserFunction(nm, func(_ string, args []Sexp) (Sexp, error) {
			return callReflected(fnv, args)
		}), nil
	}
	return SexpNull, fmt.Errorf("unknown static member '%s'", name)
}

func staticName(target Sexp) (string, error) {
	switch t := target.(type) {
	case *SexpSymbol:
		return t.name, nil
	case *SexpStr:
		return t.S, nil
	}
	return "", fmt.Errorf("static member reference must be a symbol, got %T", target)
}

// callReflected converts args to fn's parameter types, calls it, and
// converts the results back. A trailing error return becomes the
// error result; two-value returns otherwise come back as an array.
func callReflected(fn reflect.Value, args []Sexp) (Sexp, error) {
	ft := fn.Type()
	nfixed := ft.NumIn()
	if ft.IsVariadic() {
		nfixed--
		if len(args) < nfixed {
			return SexpNull, WrongNargs
		}
	} else if len(args) != nfixed {
		return SexpNull, WrongNargs
	}

	in := make([]reflect.Value, 0, len(args))
	for i, a := range args {
		var want reflect.Type
		if i < nfixed {
			want = ft.In(i)
		} else {
			want = ft.In(ft.NumIn() - 1).Elem()
		}
		v, err := sexpToReflect(a, want)
		if err != nil {
			return SexpNull, err
		}
		in = append(in, v)
	}

	out := fn.Call(in)

	if n := len(out); n > 0 {
		last := out[n-1]
		if last.Type() == errType {
			if !last.IsNil() {
				return SexpNull, last.Interface().(error)
			}
			out = out[:n-1]
		}
	}
	switch len(out) {
	case 0:
		return SexpNull, nil
	case 1:
		return goToSexp(out[0].Interface()), nil
	}
	arr := &SexpArray{}
	for _, o := range out {
		arr.Val = append(arr.Val, goToSexp(o.Interface()))
	}
	return arr, nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// sexpToReflect converts a value to the reflect.Value a Go parameter
// or field wants.
func sexpToReflect(arg Sexp, want reflect.Type) (reflect.Value, error) {
	if sr, ok := arg.(*SexpReflect); ok {
		v := sr.Val
		if v.Type().AssignableTo(want) {
			return v, nil
		}
		if v.Kind() == reflect.Ptr && v.Elem().Type().AssignableTo(want) {
			return v.Elem(), nil
		}
		if v.Type().ConvertibleTo(want) {
			return v.Convert(want), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), want)
	}

	if want.Kind() == reflect.Interface && want.NumMethod() == 0 {
		return reflect.ValueOf(sexpToGoIface(arg)), nil
	}

	switch e := arg.(type) {
	case *SexpSentinel:
		if e == SexpNull {
			switch want.Kind() {
			case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
				return reflect.Zero(want), nil
			}
		}
	case *SexpInt:
		switch want.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return reflect.ValueOf(e.Val).Convert(want), nil
		}
	case *SexpFloat:
		switch want.Kind() {
		case reflect.Float32, reflect.Float64,
			reflect.Int, reflect.Int32, reflect.Int64:
			return reflect.ValueOf(e.Val).Convert(want), nil
		}
	case *SexpChar:
		switch want.Kind() {
		case reflect.Int32, reflect.Int, reflect.Int64, reflect.Uint8:
			return reflect.ValueOf(e.Val).Convert(want), nil
		}
	case *SexpStr:
		if want.Kind() == reflect.String {
			return reflect.ValueOf(e.S).Convert(want), nil
		}
		if want == reflect.TypeOf([]byte(nil)) {
			return reflect.ValueOf([]byte(e.S)), nil
		}
	case *SexpBool:
		if want.Kind() == reflect.Bool {
			return reflect.ValueOf(e.Val).Convert(want), nil
		}
	case *SexpRaw:
		if want == reflect.TypeOf([]byte(nil)) {
			return reflect.ValueOf(e.Val), nil
		}
	case *SexpArray:
		if want.Kind() == reflect.Slice {
			sl := reflect.MakeSlice(want, 0, len(e.Val))
			for _, ele := range e.Val {
				cv, err := sexpToReflect(ele, want.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				sl = reflect.Append(sl, cv)
			}
			return sl, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", arg.Type().ShortName(), want)
}

// sexpToGoIface is the loose conversion for interface{} parameters.
func sexpToGoIface(arg Sexp) interface{} {
	switch e := arg.(type) {
	case *SexpSentinel:
		if e == SexpNull {
			return nil
		}
		return e.SexpString(nil)
	case *SexpInt:
		return e.Val
	case *SexpFloat:
		return e.Val
	case *SexpChar:
		return e.Val
	case *SexpStr:
		return e.S
	case *SexpBool:
		return e.Val
	case *SexpRaw:
		return []byte(e.Val)
	case *SexpSymbol:
		return e.name
	case *SexpArray:
		ar := make([]interface{}, len(e.Val))
		for i, ele := range e.Val {
			ar[i] = sexpToGoIface(ele)
		}
		return ar
	case *SexpHash:
		m := make(map[string]interface{})
		for _, arr := range e.Map {
			for _, pair := range arr {
				m[keyString(pair.Head)] = sexpToGoIface(pair.Tail)
			}
		}
		return m
	case *SexpReflect:
		return e.Val.Interface()
	}
	vv("sexpToGoIface: don't know what to do with %T, passing through", arg)
	return arg
}

func keyString(key Sexp) string {
	switch k := key.(type) {
	case *SexpSymbol:
		return k.name
	case *SexpStr:
		return k.S
	}
	return key.SexpString(nil)
}

// goToSexp wraps a Go value for the interpreter. Scalars become
// native values, everything else rides in a *SexpReflect.
func goToSexp(v interface{}) Sexp {
	switch t := v.(type) {
	case nil:
		return SexpNull
	case Sexp:
		return t
	case bool:
		return &SexpBool{Val: t}
	case int:
		return &SexpInt{Val: int64(t)}
	case int8:
		return &SexpInt{Val: int64(t)}
	case int16:
		return &SexpInt{Val: int64(t)}
	case int32:
		return &SexpInt{Val: int64(t)}
	case int64:
		return &SexpInt{Val: t}
	case uint8:
		return &SexpInt{Val: int64(t)}
	case uint16:
		return &SexpInt{Val: int64(t)}
	case uint32:
		return &SexpInt{Val: int64(t)}
	case uint64:
		return &SexpInt{Val: int64(t)}
	case float32:
		return &SexpFloat{Val: float64(t)}
	case float64:
		return &SexpFloat{Val: t}
	case string:
		return &SexpStr{S: t}
	case []byte:
		return &SexpRaw{Val: t}
	case error:
		return &SexpError{error: t}
	}
	return &SexpReflect{Val: reflect.ValueOf(v)}
}
