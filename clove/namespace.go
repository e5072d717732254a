package clove

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultNamespace is where evaluation starts before any in-ns.
const DefaultNamespace = "user"

// Namespace is one published generation of a namespace: its interned
// vars and its class import table. Published namespaces are never
// mutated; writers clone, edit the clone, and swap the env state.
type Namespace struct {
	Name    string
	Vars    map[string]*Var
	Imports map[string]Sexp
}

func newNamespace(name string) *Namespace {
	return &Namespace{
		Name:    name,
		Vars:    make(map[string]*Var),
		Imports: make(map[string]Sexp),
	}
}

// clone copies the namespace so the copy can be edited while readers
// keep the published original. Var cells are shared, not copied;
// their identity must survive republication.
func (ns *Namespace) clone() *Namespace {
	cp := newNamespace(ns.Name)
	for k, v := range ns.Vars {
		cp.Vars[k] = v
	}
	for k, v := range ns.Imports {
		cp.Imports[k] = v
	}
	return cp
}

// envState is one immutable generation of the whole namespace store.
type envState struct {
	Current    string
	Namespaces map[string]*Namespace
}

func (st *envState) clone() *envState {
	cp := &envState{
		Current:    st.Current,
		Namespaces: make(map[string]*Namespace, len(st.Namespaces)),
	}
	for k, v := range st.Namespaces {
		cp.Namespaces[k] = v
	}
	return cp
}

// Env owns the namespace store, the symbol table, and the global
// scope of builtins. Namespace state is read and replaced through an
// atomic pointer, so concurrent defs race safely: losers retry
// against the winner's published state and var cells keep their
// identity across generations.
type Env struct {
	state atomic.Pointer[envState]

	mut         sync.Mutex
	symtable    map[string]int
	revsymtable map[int]string
	nextsymbol  int

	globalScope *Scope

	interop     InteropResolver
	records     RecordResolver
	loader      ModuleLoader
	closures    ClosureBuilder
	classes     *ClassAllowlist
	publicClass PublicClassFn
}

// MakeSymbol interns name, assigning a stable number the scope maps
// key on.
func (env *Env) MakeSymbol(name string) *SexpSymbol {
	if env == nil {
		panic("internal problem: env.MakeSymbol called with nil env")
	}
	env.mut.Lock()
	defer env.mut.Unlock()
	symnum, ok := env.symtable[name]
	if ok {
		return &SexpSymbol{name: name, number: symnum}
	}
	symbol := &SexpSymbol{name: name, number: env.nextsymbol}
	env.symtable[name] = symbol.number
	env.revsymtable[symbol.number] = name

	env.nextsymbol++
	return symbol
}

func (env *Env) GenSymbol(prefix string) *SexpSymbol {
	env.mut.Lock()
	n := env.nextsymbol
	env.mut.Unlock()
	return env.MakeSymbol(prefix + strconv.Itoa(n))
}

// SymbolName reverses a symbol number back to its name.
func (env *Env) SymbolName(num int) string {
	env.mut.Lock()
	defer env.mut.Unlock()
	return env.revsymtable[num]
}

// AddGlobal binds a builtin into the root scope. Call during setup,
// before handing the env to concurrent evaluators.
func (env *Env) AddGlobal(name string, val Sexp) {
	env.globalScope.BindSymbol(env.MakeSymbol(name), val)
}

// GlobalScope exposes the root frame, for building evaluation
// contexts and closure captures.
func (env *Env) GlobalScope() *Scope {
	return env.globalScope
}

// CurrentNamespaceName reports which namespace def and import target.
func (env *Env) CurrentNamespaceName() string {
	return env.state.Load().Current
}

// SetCurrentNamespace switches the store's current namespace,
// creating it on first mention.
func (env *Env) SetCurrentNamespace(name string) {
	for {
		old := env.state.Load()
		next := old.clone()
		if _, ok := next.Namespaces[name]; !ok {
			next.Namespaces[name] = newNamespace(name)
		}
		next.Current = name
		if env.state.CompareAndSwap(old, next) {
			return
		}
	}
}

// FindNamespace returns the published generation of a namespace.
// Treat the result as read-only.
func (env *Env) FindNamespace(name string) (*Namespace, bool) {
	ns, ok := env.state.Load().Namespaces[name]
	return ns, ok
}

// NamespaceNames lists the known namespaces, sorted.
func (env *Env) NamespaceNames() []string {
	st := env.state.Load()
	names := make([]string, 0, len(st.Namespaces))
	for k := range st.Namespaces {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// InternVar finds or creates the var cell for nsName/varName. When
// two goroutines race to intern the same name, exactly one cell wins
// and both receive it; the loser's allocation is discarded with its
// unpublished state generation.
func (env *Env) InternVar(nsName, varName string) *Var {
	for {
		old := env.state.Load()
		if ns, ok := old.Namespaces[nsName]; ok {
			if v, ok2 := ns.Vars[varName]; ok2 {
				return v
			}
		}
		next := old.clone()
		ns, ok := next.Namespaces[nsName]
		if ok {
			ns = ns.clone()
		} else {
			ns = newNamespace(nsName)
		}
		v := NewVar(nsName, varName)
		ns.Vars[varName] = v
		next.Namespaces[nsName] = ns
		if env.state.CompareAndSwap(old, next) {
			return v
		}
		//Q("InternVar('%s'/'%s') lost the publish race, retrying", nsName, varName)
	}
}

// LookupVar fetches an existing var cell without creating one.
func (env *Env) LookupVar(nsName, varName string) (*Var, bool) {
	ns, ok := env.state.Load().Namespaces[nsName]
	if !ok {
		return nil, false
	}
	v, ok := ns.Vars[varName]
	return v, ok
}

// AddImport records a resolved class under its short name in the
// given namespace's import table.
func (env *Env) AddImport(nsName, alias string, class Sexp) {
	for {
		old := env.state.Load()
		next := old.clone()
		ns, ok := next.Namespaces[nsName]
		if ok {
			ns = ns.clone()
		} else {
			ns = newNamespace(nsName)
		}
		ns.Imports[alias] = class
		next.Namespaces[nsName] = ns
		if env.state.CompareAndSwap(old, next) {
			return
		}
	}
}

// LookupImport resolves a short class name through a namespace's
// import table.
func (env *Env) LookupImport(nsName, alias string) (Sexp, bool) {
	ns, ok := env.state.Load().Namespaces[nsName]
	if !ok {
		return nil, false
	}
	class, ok := ns.Imports[alias]
	return class, ok
}

// splitQualified splits "ns/name" into its namespace and base parts.
// A bare name belongs to defaultNS. The symbol "/" itself and names
// with a leading or trailing slash stay whole.
func splitQualified(name, defaultNS string) (ns, base string) {
	if i := strings.Index(name, "/"); i > 0 && i < len(name)-1 {
		return name[:i], name[i+1:]
	}
	return defaultNS, name
}

// varState is one immutable generation of a var cell's contents.
type varState struct {
	Root  Sexp
	Bound bool
	Macro bool
	Meta  *SexpHash
}

// Var is the mutable cell a def interns. The cell's identity is
// stable across redefinition; only its state pointer moves. Readers
// holding the var from an earlier generation observe new roots
// immediately.
type Var struct {
	ns    string
	name  string
	state atomic.Pointer[varState]
}

func NewVar(ns, name string) *Var {
	v := &Var{ns: ns, name: name}
	v.state.Store(&varState{Root: SexpUnbound})
	return v
}

func (v *Var) Namespace() string {
	return v.ns
}

func (v *Var) Name() string {
	return v.name
}

// Get returns the current root, or SexpUnbound for a declared but
// never bound var.
func (v *Var) Get() Sexp {
	st := v.state.Load()
	if st == nil || !st.Bound {
		return SexpUnbound
	}
	return st.Root
}

func (v *Var) IsBound() bool {
	st := v.state.Load()
	return st != nil && st.Bound
}

// SetRoot replaces the var's root value.
func (v *Var) SetRoot(x Sexp) {
	for {
		old := v.state.Load()
		next := &varState{Root: x, Bound: true}
		if old != nil {
			next.Meta = old.Meta
			next.Macro = old.Macro
		}
		if v.state.CompareAndSwap(old, next) {
			return
		}
	}
}

// IsMacro reports whether the cell is flagged as holding a macro.
// The flag is written by the expander collaborator; the engine only
// stores it.
func (v *Var) IsMacro() bool {
	st := v.state.Load()
	return st != nil && st.Macro
}

func (v *Var) SetMacro(on bool) {
	for {
		old := v.state.Load()
		next := &varState{Macro: on}
		if old != nil {
			next.Root = old.Root
			next.Bound = old.Bound
			next.Meta = old.Meta
		} else {
			next.Root = SexpUnbound
		}
		if v.state.CompareAndSwap(old, next) {
			return
		}
	}
}

// Meta returns the var's metadata hash, or nil.
func (v *Var) Meta() *SexpHash {
	st := v.state.Load()
	if st == nil {
		return nil
	}
	return st.Meta
}

// MergeMeta overlays h onto the var's metadata, leaving the root
// untouched. A declare-only def with metadata lands here.
func (v *Var) MergeMeta(h *SexpHash) {
	for {
		old := v.state.Load()
		var merged *SexpHash
		var err error
		if old == nil || old.Meta == nil {
			merged, err = h.CopyHash()
			panicOn(err)
		} else {
			merged, err = old.Meta.CopyHash()
			panicOn(err)
			for _, key := range h.KeyOrder {
				val, err := h.HashGet(key)
				if err == nil {
					merged.HashSet(key, val)
				}
			}
		}
		next := &varState{Meta: merged}
		if old != nil {
			next.Root = old.Root
			next.Bound = old.Bound
			next.Macro = old.Macro
		} else {
			next.Root = SexpUnbound
		}
		if v.state.CompareAndSwap(old, next) {
			return
		}
	}
}

func (v *Var) SexpString(ps *PrintState) string {
	return "#'" + v.ns + "/" + v.name
}

func (v *Var) Type() *RegisteredType {
	return VarRT
}

// VarRef is a prebuilt read of an already located var cell. A
// producer that resolved a symbol once can emit this in place of the
// symbol node, turning every later read into a single atomic load.
// Dispatch runs it on the Evaluable fast path.
type VarRef struct {
	V *Var
}

func (r *VarRef) Eval(ctx *Context) (Sexp, error) {
	return r.V.Get(), nil
}

func (r *VarRef) SexpString(ps *PrintState) string {
	return r.V.SexpString(ps)
}

func (r *VarRef) Type() *RegisteredType {
	return VarRT
}
