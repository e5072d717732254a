package clove

// ClosureBuilder turns a function node into a callable closure over
// the building context's scope. The engine does not parse parameter
// lists itself; the host's analysis pass owns that shape.
type ClosureBuilder interface {
	BuildClosure(ctx *Context, fnNode Sexp) (Callable, error)
}

// InteropResolver is the boundary to native Go objects: class
// resolution for import, constructor and method invocation, and
// static field reads. GoInterop is the in-tree implementation;
// embedders may bring their own.
type InteropResolver interface {
	ResolveClass(ctx *Context, qualified string) (Sexp, bool)
	InvokeConstructor(classRef Sexp, args []Sexp) (Sexp, error)
	InvokeStaticMethod(target Sexp, args []Sexp) (Sexp, error)
	InvokeInstanceMethod(recv Sexp, classRef Sexp, method string, args []Sexp) (Sexp, error)
	GetStaticField(target Sexp) (Sexp, error)
}

// RecordResolver answers import requests for interpreter-level
// records and protocols, tried after native class resolution fails.
type RecordResolver interface {
	ResolveRecordOrProtocol(ctx *Context, pkg, name string) (Sexp, bool)
}

// ModuleLoader receives require, use and refer forms whole. Loading
// source from disk or elsewhere is the host's business; the engine
// only routes the call.
type ModuleLoader interface {
	EvalRequire(ctx *Context, specs []Sexp) (Sexp, error)
	EvalUse(ctx *Context, specs []Sexp) (Sexp, error)
	EvalRefer(ctx *Context, specs []Sexp) (Sexp, error)
}

// PublicClassFn maps a receiver to the nearest class that IS on the
// allowlist, for hosts whose concrete classes are private subtypes of
// public ones. Returns the replacement class ref and name.
type PublicClassFn func(recv Sexp) (classRef Sexp, className string, ok bool)

// ClassAllowlist is the interop sandbox: method calls are only
// permitted on classes it names. A nil allowlist denies everything.
type ClassAllowlist struct {
	AllowAll bool
	Classes  map[string]bool
}

func NewClassAllowlist(classes ...string) *ClassAllowlist {
	m := make(map[string]bool)
	for _, c := range classes {
		m[c] = true
	}
	return &ClassAllowlist{Classes: m}
}

func AllowAllClasses() *ClassAllowlist {
	return &ClassAllowlist{AllowAll: true}
}

func (w *ClassAllowlist) Allowed(class string) bool {
	if w == nil {
		return false
	}
	if w.AllowAll {
		return true
	}
	return w.Classes[class]
}

// Add admits another class. Setup-time only.
func (w *ClassAllowlist) Add(class string) {
	if w.Classes == nil {
		w.Classes = make(map[string]bool)
	}
	w.Classes[class] = true
}

// Context carries everything one evaluation thread needs: the
// lexical scope chain, the env handle, the collaborator interfaces,
// and whether we are inside a try body. Contexts are cheap value
// copies; derived contexts share the env and collaborators.
type Context struct {
	scope *Scope
	env   *Env

	Interop     InteropResolver
	Records     RecordResolver
	Loader      ModuleLoader
	Closures    ClosureBuilder
	Classes     *ClassAllowlist
	PublicClass PublicClassFn

	inTry bool
}

// NewContext starts an evaluation context rooted at the global scope,
// wired to the env's configured collaborators.
func (env *Env) NewContext() *Context {
	return &Context{
		scope:       env.globalScope,
		env:         env,
		Interop:     env.interop,
		Records:     env.records,
		Loader:      env.loader,
		Closures:    env.closures,
		Classes:     env.classes,
		PublicClass: env.publicClass,
	}
}

func (ctx *Context) Env() *Env {
	return ctx.env
}

func (ctx *Context) Scope() *Scope {
	return ctx.scope
}

// WithScope derives a context evaluating under s.
func (ctx *Context) WithScope(s *Scope) *Context {
	cp := *ctx
	cp.scope = s
	return &cp
}

func (ctx *Context) withInTry() *Context {
	if ctx.inTry {
		return ctx
	}
	cp := *ctx
	cp.inTry = true
	return &cp
}

// InTry reports whether this context is evaluating a try body.
func (ctx *Context) InTry() bool {
	return ctx.inTry
}
