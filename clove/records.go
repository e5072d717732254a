package clove

import (
	"fmt"
	"strings"
	"sync"
)

// Records are hash values stamped with their defining type, so field
// access and catch-clause matching can tell them apart from plain
// hashes. The type lives in the engine registry like any other.

// RegisterRecord defines a record type with the given fields and
// enters it into the engine type registry under name.
func RegisterRecord(name string, fields ...string) *RegisteredType {
	rt := NewRegisteredType(nil)
	rt.ReflectName = name
	rt.PointerName = "*" + name
	rt.DisplayAs = name
	rt.IsRecord = true
	rt.RecordFields = append([]string{}, fields...)
	GoStructRegistry.RegisterUserdef(rt, name)
	return rt
}

// buildRecordInstance is the positional constructor used by (new R a b c).
func buildRecordInstance(env *Env, rt *RegisteredType, args []Sexp) (Sexp, error) {
	if len(args) != len(rt.RecordFields) {
		return SexpNull, fmt.Errorf("record %s wants %d fields, got %d args",
			rt.RegisteredName, len(rt.RecordFields), len(args))
	}
	pairs := make([]Sexp, 0, 2*len(args))
	for i, fld := range rt.RecordFields {
		pairs = append(pairs, env.MakeSymbol(fld), args[i])
	}
	return MakeHash(pairs, rt.RegisteredName)
}

// RecordRegistry is the engine's own RecordResolver. It indexes
// record and protocol types by package-qualified and short name.
type RecordRegistry struct {
	mut    sync.Mutex
	byName map[string]*RegisteredType
}

func NewRecordRegistry() *RecordRegistry {
	return &RecordRegistry{
		byName: make(map[string]*RegisteredType),
	}
}

// Define creates a record type and indexes it. Name may be package
// qualified ("mylib.Point"); the short name is indexed too.
func (r *RecordRegistry) Define(name string, fields ...string) *RegisteredType {
	rt := RegisterRecord(name, fields...)
	r.index(name, rt)
	return rt
}

// DefineProtocol creates a fieldless marker type. Records implement
// it via Implement, after which catch clauses and instance checks on
// the protocol match those records.
func (r *RecordRegistry) DefineProtocol(name string) *RegisteredType {
	rt := NewRegisteredType(nil)
	rt.ReflectName = name
	rt.PointerName = "*" + name
	rt.DisplayAs = name
	GoStructRegistry.RegisterUserdef(rt, name)
	r.index(name, rt)
	return rt
}

// Implement records that rec satisfies proto.
func (r *RecordRegistry) Implement(proto, rec *RegisteredType) {
	r.mut.Lock()
	proto.Aliases[rec.RegisteredName] = true
	r.mut.Unlock()
}

func (r *RecordRegistry) index(name string, rt *RegisteredType) {
	r.mut.Lock()
	r.byName[name] = rt
	if i := strings.LastIndex(name, "."); i >= 0 {
		r.byName[name[i+1:]] = rt
	}
	r.mut.Unlock()
}

// ResolveRecordOrProtocol implements RecordResolver.
func (r *RecordRegistry) ResolveRecordOrProtocol(ctx *Context, pkg, name string) (Sexp, bool) {
	r.mut.Lock()
	defer r.mut.Unlock()
	if pkg != "" {
		if rt, ok := r.byName[pkg+"."+name]; ok {
			return rt, true
		}
	}
	if rt, ok := r.byName[name]; ok {
		return rt, true
	}
	return nil, false
}
