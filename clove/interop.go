package clove

import (
	"fmt"
	"strings"
)

func (ctx *Context) interopResolver() (InteropResolver, error) {
	if ctx.Interop == nil {
		return nil, fmt.Errorf("interop is not configured")
	}
	return ctx.Interop, nil
}

// maybeUnquote strips a (quote x) wrapper, as import specs often
// arrive quoted.
func maybeUnquote(x Sexp) Sexp {
	if p, ok := x.(*SexpPair); ok {
		if s, ok := p.Head.(*SexpSymbol); ok && s.name == "quote" {
			if q, ok := p.Tail.(*SexpPair); ok {
				return q.Head
			}
		}
	}
	return x
}

// evalImport resolves each named class and records it in the current
// namespace's import table under its short name. Specs are either a
// fully qualified symbol or a prefix form (pkg Cls1 Cls2 ...).
// Resolution tries the host interop surface first, then the record
// registry, then the engine's own type registry.
func (ctx *Context) evalImport(args Sexp) (Sexp, error) {
	specs, err := ListToArray(args)
	if err != nil {
		return SexpNull, err
	}
	for _, spec := range specs {
		spec = maybeUnquote(spec)
		switch t := spec.(type) {
		case *SexpSymbol:
			if err := ctx.importOne(t.name); err != nil {
				return SexpNull, err
			}
		case *SexpPair:
			if err := ctx.importPrefixList(t); err != nil {
				return SexpNull, err
			}
		case *SexpArray:
			if err := ctx.importPrefixArray(t); err != nil {
				return SexpNull, err
			}
		default:
			return SexpNull, fmt.Errorf("import wants a symbol or prefix list, got %T", spec)
		}
	}
	return SexpNull, nil
}

func (ctx *Context) importPrefixList(form *SexpPair) error {
	elems, err := ListToArray(form)
	if err != nil {
		return err
	}
	return ctx.importPrefix(elems)
}

func (ctx *Context) importPrefixArray(form *SexpArray) error {
	return ctx.importPrefix(form.Val)
}

func (ctx *Context) importPrefix(elems []Sexp) error {
	if len(elems) < 2 {
		return fmt.Errorf("import prefix form needs a package and at least one class")
	}
	pkg, ok := elems[0].(*SexpSymbol)
	if !ok {
		return fmt.Errorf("import package must be a symbol, got %T", elems[0])
	}
	for _, e := range elems[1:] {
		cls, ok := maybeUnquote(e).(*SexpSymbol)
		if !ok {
			return fmt.Errorf("import class must be a symbol, got %T", e)
		}
		if err := ctx.importOne(pkg.name + "." + cls.name); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *Context) importOne(full string) error {
	short := full
	if i := strings.LastIndex(full, "."); i >= 0 {
		short = full[i+1:]
	}

	ref, ok := ctx.lookupClass(full, short)
	if !ok {
		return &UnresolvableClassError{Name: full}
	}

	ctx.env.AddImport(ctx.env.CurrentNamespaceName(), short, ref)
	return nil
}

// lookupClass is the import resolution order: interop, record
// registry, engine type registry.
func (ctx *Context) lookupClass(full, short string) (Sexp, bool) {
	if ctx.Interop != nil {
		if ref, ok := ctx.Interop.ResolveClass(ctx, full); ok {
			return ref, true
		}
	}
	if ctx.Records != nil {
		pkg := ""
		if i := strings.LastIndex(full, "."); i >= 0 {
			pkg = full[:i]
		}
		if ref, ok := ctx.Records.ResolveRecordOrProtocol(ctx, pkg, short); ok {
			return ref, true
		}
	}
	if rt := GoStructRegistry.Lookup(full); rt != nil {
		return rt, true
	}
	return nil, false
}

// resolveClassNamed resolves a class name as seen from evaluated
// code: the current namespace's import table first, then the engine
// registry, then host interop, then records.
func (ctx *Context) resolveClassNamed(name string) (Sexp, error) {
	if ref, ok := ctx.env.LookupImport(ctx.env.CurrentNamespaceName(), name); ok {
		return ref, nil
	}
	if rt := GoStructRegistry.Lookup(name); rt != nil {
		return rt, nil
	}
	if ctx.Interop != nil {
		if ref, ok := ctx.Interop.ResolveClass(ctx, name); ok {
			return ref, nil
		}
	}
	if ctx.Records != nil {
		pkg, short := "", name
		if i := strings.LastIndex(name, "."); i >= 0 {
			pkg, short = name[:i], name[i+1:]
		}
		if ref, ok := ctx.Records.ResolveRecordOrProtocol(ctx, pkg, short); ok {
			return ref, nil
		}
	}
	return SexpNull, &UnresolvableClassError{Name: name}
}

// evalNew: the class position is not evaluated, only resolved; the
// arguments are evaluated left to right. Records construct natively,
// everything else goes to the interop resolver.
func (ctx *Context) evalNew(args Sexp) (Sexp, error) {
	elems, err := ListToArray(args)
	if err != nil {
		return SexpNull, err
	}
	if len(elems) < 1 {
		return SexpNull, WrongNargs
	}

	classNode := maybeUnquote(elems[0])
	var classRef Sexp
	switch t := classNode.(type) {
	case *SexpSymbol:
		classRef, err = ctx.resolveClassNamed(t.name)
		if err != nil {
			return SexpNull, err
		}
	default:
		classRef = classNode
	}

	ctorArgs, err := ctx.evalArgsSlice(elems[1:])
	if err != nil {
		return SexpNull, err
	}

	if rt, ok := classRef.(*RegisteredType); ok && rt.IsRecord {
		return buildRecordInstance(ctx.env, rt, ctorArgs)
	}

	resolver, err := ctx.interopResolver()
	if err != nil {
		return SexpNull, err
	}
	return resolver.InvokeConstructor(classRef, ctorArgs)
}

// evalDot is the instance side of the interop boundary. The receiver
// and all arguments are evaluated exactly once, left to right, before
// the receiver's kind picks a branch: records answer field lookups
// directly, native objects go through the allowlist and then the
// resolver.
func (ctx *Context) evalDot(args Sexp) (Sexp, error) {
	elems, err := ListToArray(args)
	if err != nil {
		return SexpNull, err
	}
	if len(elems) < 2 {
		return SexpNull, WrongNargs
	}

	methSym, ok := elems[1].(*SexpSymbol)
	if !ok {
		return SexpNull, fmt.Errorf("method name must be a symbol, got %T", elems[1])
	}
	method := strings.TrimPrefix(methSym.name, ".")

	recvExpr := elems[0]
	recv, err := ctx.Eval(recvExpr)
	if err != nil {
		return SexpNull, err
	}
	callArgs, err := ctx.evalArgsSlice(elems[2:])
	if err != nil {
		return SexpNull, err
	}

	if h, isHash := recv.(*SexpHash); isHash && h.RecordType() != nil {
		if len(callArgs) != 0 {
			return SexpNull, fmt.Errorf("field access '.%s' takes no arguments", method)
		}
		return h.HashGet(ctx.env.MakeSymbol(method))
	}

	classRef, className, err := ctx.receiverClass(recvExpr, recv)
	if err != nil {
		return SexpNull, err
	}
	if !ctx.Classes.Allowed(className) {
		allowed := false
		if ctx.PublicClass != nil {
			if ref2, name2, found := ctx.PublicClass(recv); found && ctx.Classes.Allowed(name2) {
				classRef, className = ref2, name2
				allowed = true
			}
		}
		if !allowed {
			return SexpNull, &InteropDeniedError{Class: className, Method: method}
		}
	}

	resolver, err := ctx.interopResolver()
	if err != nil {
		return SexpNull, err
	}
	return resolver.InvokeInstanceMethod(recv, classRef, method, callArgs)
}

// receiverClass figures out which class a method call is charged
// against: the analysis pass's receiver hint when present, otherwise
// the receiver's runtime class.
func (ctx *Context) receiverClass(recvExpr Sexp, recv Sexp) (Sexp, string, error) {
	if m := MetaOf(recvExpr); m != nil && m.TypeHint != nil {
		ref, err := ctx.resolveClassNamed(m.TypeHint.name)
		if err != nil {
			return SexpNull, "", err
		}
		return ref, classNameOf(ref, m.TypeHint.name), nil
	}
	if sr, ok := recv.(*SexpReflect); ok {
		name := ifaceName(sr.Val.Interface())
		if rt := GoStructRegistry.Lookup(name); rt != nil {
			return rt, name, nil
		}
		return SexpNull, name, nil
	}
	rt := recv.Type()
	if rt == nil {
		return SexpNull, fmt.Sprintf("%T", recv), nil
	}
	return rt, rt.RegisteredName, nil
}

func classNameOf(ref Sexp, fallback string) string {
	if tr, ok := ref.(TypeRef); ok {
		return tr.TypeName()
	}
	return fallback
}

// evalStaticField reads a static member through the interop resolver.
func (ctx *Context) evalStaticField(expr Sexp) (Sexp, error) {
	resolver, err := ctx.interopResolver()
	if err != nil {
		return SexpNull, err
	}
	return resolver.GetStaticField(expr)
}

func (ctx *Context) evalArgsSlice(exprs []Sexp) ([]Sexp, error) {
	args := make([]Sexp, 0, len(exprs))
	for _, e := range exprs {
		v, err := ctx.Eval(e)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}
