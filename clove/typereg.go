package clove

import (
	"fmt"
	"reflect"
	"time"
)

// The Type Registry
// =================
//
// Every value kind the engine knows about, every record the host
// declares, and every native Go type admitted through interop gets a
// RegisteredType here. Catch clauses and the interop allowlist both
// speak in registered type names.
//
// The env parameter to a Factory is there in case construction
// depends on the environment; it must tolerate env == nil, since
// factories run with nil env during init().
var GoStructRegistry GoStructRegistryType

// the registry type
type GoStructRegistryType struct {
	// comprehensive
	Registry map[string]*RegisteredType

	// only init-time builtins
	Builtin map[string]*RegisteredType

	// later, user-defined types
	Userdef map[string]*RegisteredType
}

// consistently ordered list of all registered types (created at init time).
var ListRegisteredTypes = []string{}

func (r *GoStructRegistryType) RegisterBuiltin(name string, e *RegisteredType) {
	r.register(name, e, false)
	e.IsUser = false
}

func (r *GoStructRegistryType) register(name string, e *RegisteredType, isUser bool) {
	if !e.initDone {
		e.Init()
	}
	e.RegisteredName = name
	e.Aliases[name] = true
	e.Aliases[e.ReflectName] = true

	_, found := r.Registry[name]
	if !found {
		ListRegisteredTypes = append(ListRegisteredTypes, name)
	}
	_, found2 := r.Registry[e.ReflectName]
	if !found2 {
		ListRegisteredTypes = append(ListRegisteredTypes, e.ReflectName)
	}

	if isUser {
		r.Userdef[name] = e
	} else {
		r.Builtin[name] = e
	}
	r.Registry[name] = e
	r.Registry[e.ReflectName] = e
}

func (e *RegisteredType) Init() {
	e.Aliases = make(map[string]bool)
	if e.Factory != nil {
		val, err := e.Factory(nil, nil)
		panicOn(err)
		if val != nil {
			e.ValueCache = reflect.ValueOf(val)
			e.TypeCache = e.ValueCache.Type()
			e.PointerName = fmt.Sprintf("%T", val)
			if len(e.PointerName) > 1 && e.PointerName[0] == '*' {
				e.ReflectName = e.PointerName[1:]
			} else {
				e.ReflectName = e.PointerName
			}
			e.DisplayAs = e.ReflectName
		}
	}
	e.initDone = true
}

func reflectName(val reflect.Value) string {
	return ifaceName(val.Interface())
}

func ifaceName(val interface{}) string {
	pointerName := fmt.Sprintf("%T", val)
	if len(pointerName) > 1 && pointerName[0] == '*' {
		return pointerName[1:]
	}
	return pointerName
}

func (r *GoStructRegistryType) RegisterUserdef(
	e *RegisteredType,
	names ...string) {

	for i, name := range names {
		e0 := e
		if i > 0 {
			// make a copy of the RegisteredType for each name, so all names are kept.
			// Otherwise we overwrite the DisplayAs below.
			rt := *e
			e0 = &rt
		}
		r.register(name, e0, true)
		e0.IsUser = true
		if e0.DisplayAs == "" {
			e0.DisplayAs = name
		}
	}
}

func (r *GoStructRegistryType) Lookup(name string) *RegisteredType {
	return r.Registry[name]
}

// the type of all maker functions
type MakeValueFunc func(env *Env, h *SexpHash) (interface{}, error)

var NullRT *RegisteredType
var SentinelRT *RegisteredType
var PairRT *RegisteredType
var Int64RT *RegisteredType
var BoolRT *RegisteredType
var RuneRT *RegisteredType
var Float64RT *RegisteredType
var StringRT *RegisteredType
var RawRT *RegisteredType
var ReflectRT *RegisteredType
var ErrorRT *RegisteredType
var ArrayRT *RegisteredType
var HashRT *RegisteredType
var SymbolRT *RegisteredType
var FuncRT *RegisteredType
var VarRT *RegisteredType
var DelayRT *RegisteredType
var TryRT *RegisteredType
var ScopeRT *RegisteredType
var RegTypeRT *RegisteredType
var AnyRT *RegisteredType

type RegisteredType struct {
	initDone bool

	Constructor    *SexpFunction
	RegisteredName string
	Factory        MakeValueFunc
	ValueCache     reflect.Value
	TypeCache      reflect.Type
	PointerName    string
	ReflectName    string
	IsUser         bool
	Aliases        map[string]bool
	DisplayAs      string

	// IsRecord marks interpreter-level records; RecordFields lists
	// their declared field names in declaration order.
	IsRecord     bool
	RecordFields []string

	// MatchAny makes InstanceOf accept every value. Only the "any"
	// builtin sets it.
	MatchAny bool
}

func (p *RegisteredType) SexpString(ps *PrintState) string {
	if p == nil {
		return "nil RegisteredType"
	}
	return p.DisplayAs
}

func (p *RegisteredType) Type() *RegisteredType {
	return RegTypeRT
}

func (p *RegisteredType) ShortName() string {
	return p.DisplayAs
}

// TypeRef is the face a catch clause or an import table sees: a name
// plus an instance test. RegisteredType is the canonical
// implementation; interop resolvers may supply their own.
type TypeRef interface {
	Sexp
	TypeName() string
	InstanceOf(v Sexp) bool
}

func (p *RegisteredType) TypeName() string {
	return p.RegisteredName
}

// InstanceOf reports whether v belongs to this type. Registered
// values match their own registry entry and its aliases; native Go
// values match by reflection assignability.
func (p *RegisteredType) InstanceOf(v Sexp) bool {
	if p == nil || v == nil {
		return false
	}
	if p.MatchAny {
		return true
	}
	if vt := v.Type(); vt != nil {
		if vt == p {
			return true
		}
		if p.Aliases[vt.RegisteredName] {
			return true
		}
	}
	if sr, ok := v.(*SexpReflect); ok && p.TypeCache != nil {
		t := sr.Val.Type()
		if t.AssignableTo(p.TypeCache) {
			return true
		}
		if p.TypeCache.Kind() == reflect.Interface && t.Implements(p.TypeCache) {
			return true
		}
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
			if t.AssignableTo(p.TypeCache) {
				return true
			}
		}
	}
	return false
}

func NewRegisteredType(f MakeValueFunc) *RegisteredType {
	rt := &RegisteredType{Factory: f}
	rt.Init()
	return rt
}

// builtin types
func init() {
	GoStructRegistry = GoStructRegistryType{
		Registry: make(map[string]*RegisteredType),
		Builtin:  make(map[string]*RegisteredType),
		Userdef:  make(map[string]*RegisteredType),
	}

	gsr := &GoStructRegistry

	reg := func(name string, f MakeValueFunc) *RegisteredType {
		rt := &RegisteredType{Factory: f}
		gsr.RegisterBuiltin(name, rt)
		return rt
	}

	NullRT = reg("nil", func(env *Env, h *SexpHash) (interface{}, error) {
		return SexpNull, nil
	})
	SentinelRT = reg("sentinel", func(env *Env, h *SexpHash) (interface{}, error) {
		return SexpMarker, nil
	})
	PairRT = reg("pair", func(env *Env, h *SexpHash) (interface{}, error) {
		return &SexpPair{}, nil
	})
	Int64RT = reg("int64", func(env *Env, h *SexpHash) (interface{}, error) {
		return new(int64), nil
	})
	BoolRT = reg("bool", func(env *Env, h *SexpHash) (interface{}, error) {
		return new(bool), nil
	})
	RuneRT = reg("rune", func(env *Env, h *SexpHash) (interface{}, error) {
		return new(int32), nil
	})
	Float64RT = reg("float64", func(env *Env, h *SexpHash) (interface{}, error) {
		return new(float64), nil
	})
	StringRT = reg("string", func(env *Env, h *SexpHash) (interface{}, error) {
		return new(string), nil
	})
	RawRT = reg("raw", func(env *Env, h *SexpHash) (interface{}, error) {
		return &SexpRaw{}, nil
	})
	ReflectRT = reg("goValue", func(env *Env, h *SexpHash) (interface{}, error) {
		return &SexpReflect{}, nil
	})
	ErrorRT = reg("error", func(env *Env, h *SexpHash) (interface{}, error) {
		var err error
		return &err, nil
	})
	ArrayRT = reg("[]", func(env *Env, h *SexpHash) (interface{}, error) {
		return &SexpArray{}, nil
	})
	HashRT = reg("hash", func(env *Env, h *SexpHash) (interface{}, error) {
		return NewHash(), nil
	})
	SymbolRT = reg("symbol", func(env *Env, h *SexpHash) (interface{}, error) {
		return &SexpSymbol{}, nil
	})
	FuncRT = reg("func", func(env *Env, h *SexpHash) (interface{}, error) {
		return &SexpFunction{}, nil
	})
	VarRT = reg("var", func(env *Env, h *SexpHash) (interface{}, error) {
		return &Var{}, nil
	})
	DelayRT = reg("delay", func(env *Env, h *SexpHash) (interface{}, error) {
		return &SexpDelay{}, nil
	})
	TryRT = reg("try", func(env *Env, h *SexpHash) (interface{}, error) {
		return &SexpTry{}, nil
	})
	ScopeRT = reg("scope", func(env *Env, h *SexpHash) (interface{}, error) {
		return &Scope{Map: make(map[int]Sexp)}, nil
	})
	RegTypeRT = reg("type", func(env *Env, h *SexpHash) (interface{}, error) {
		return &RegisteredType{}, nil
	})

	AnyRT = &RegisteredType{MatchAny: true, Factory: func(env *Env, h *SexpHash) (interface{}, error) {
		return SexpNull, nil
	}}
	gsr.RegisterBuiltin("any", AnyRT)

	reg("time.Time", func(env *Env, h *SexpHash) (interface{}, error) {
		return new(time.Time), nil
	})
}

func compareRegisteredTypes(a *RegisteredType, bs Sexp) (int, error) {
	var b *RegisteredType
	switch bt := bs.(type) {
	case *RegisteredType:
		b = bt
	default:
		return 0, fmt.Errorf("cannot compare %T to %T", a, bs)
	}

	if a == b {
		// equal for sure
		return 0, nil
	}
	return 1, nil
}
