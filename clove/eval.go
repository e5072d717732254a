package clove

import (
	"errors"
	"fmt"
	"strings"
)

// Evaluable marks a node that was prebuilt by the producer and knows
// how to yield its own value: built closures, variable reads, other
// analyzer specials. Dispatch invokes these directly, before looking
// at any evaluation op.
type Evaluable interface {
	Sexp
	Eval(ctx *Context) (Sexp, error)
}

// Eval is the single entry point for one node. Prebuilt Evaluable
// nodes run directly; otherwise dispatch reads the node's evaluation
// op: nodes without one are inert and come back unchanged, everything
// else routes to the matching evaluator. Failures are annotated with
// the node's source position on the way out, innermost position
// first.
func (ctx *Context) Eval(expr Sexp) (Sexp, error) {
	res, err := ctx.evalNode(expr)
	if err != nil {
		return SexpNull, ctx.annotateError(err, expr)
	}
	return res, nil
}

func (ctx *Context) evalNode(expr Sexp) (Sexp, error) {
	if ev, ok := expr.(Evaluable); ok {
		return ev.Eval(ctx)
	}
	m := MetaOf(expr)
	if m == nil || m.Op == OpNone {
		return expr, nil
	}
	switch m.Op {
	case OpResolveSymbol:
		return ctx.resolveSymbolNode(expr)
	case OpCall:
		return ctx.evalCall(expr)
	case OpTry:
		return ctx.evalTry(expr)
	case OpFn:
		return ctx.evalFn(expr)
	case OpStaticAccess:
		return ctx.evalStaticField(expr)
	case OpDerefNow:
		return ctx.evalDeref(expr)
	case OpNeedsContext:
		return ctx.bindContext(expr)
	}

	// an op we do not know. Hash-shaped nodes evaluate structurally;
	// anything else means the producer and engine disagree.
	if h, isHash := expr.(*SexpHash); isHash {
		Q("unknown op %v on a hash node, evaluating structurally", m.Op)
		return ctx.evalHashStructural(h)
	}
	return SexpNull, &UnexpectedNodeError{Op: m.Op, Node: expr}
}

func (ctx *Context) annotateError(err error, node Sexp) error {
	if ctx.inTry {
		return err
	}
	var ee *EvalError
	if errors.As(err, &ee) {
		return err
	}
	file, line, col, ok := SourceLocOf(node)
	if !ok {
		return err
	}
	return &EvalError{File: file, Line: line, Col: col, Err: err}
}

// resolveSymbolNode looks a symbol up lexically first, then through
// the namespace store, then through the current namespace's import
// table.
func (ctx *Context) resolveSymbolNode(expr Sexp) (Sexp, error) {
	sym, ok := expr.(*SexpSymbol)
	if !ok {
		return SexpNull, &UnexpectedNodeError{Op: OpResolveSymbol, Node: expr}
	}
	if val, found := ctx.scope.LookupSymbol(sym); found {
		return val, nil
	}
	return ctx.resolveInNamespaces(sym)
}

func (ctx *Context) resolveInNamespaces(sym *SexpSymbol) (Sexp, error) {
	curNS := ctx.env.CurrentNamespaceName()
	nsName, varName := splitQualified(sym.name, curNS)
	//Q("resolveInNamespaces: trying '%s'/'%s'", nsName, varName)
	if v, ok := ctx.env.LookupVar(nsName, varName); ok {
		return v.Get(), nil
	}
	if class, ok := ctx.env.LookupImport(curNS, sym.name); ok {
		return class, nil
	}
	return SexpNull, fmt.Errorf("symbol `%s` not found", sym.name)
}

// evalCall evaluates one call node. Unmarked symbol heads route to
// the special forms before ordinary call evaluation; static-access
// heads go to interop; everything else evaluates the head and
// dispatches on argument count.
func (ctx *Context) evalCall(expr Sexp) (Sexp, error) {
	pair, ok := expr.(*SexpPair)
	if !ok {
		return SexpNull, &UnexpectedNodeError{Op: OpCall, Node: expr}
	}

	if sym, isSym := pair.Head.(*SexpSymbol); isSym && OpOf(sym) == OpNone {
		return ctx.evalSpecialForm(sym, pair.Tail)
	}

	if OpOf(pair.Head) == OpStaticAccess {
		args, err := ctx.evalArgs(pair.Tail)
		if err != nil {
			return SexpNull, err
		}
		resolver, err := ctx.interopResolver()
		if err != nil {
			return SexpNull, err
		}
		return resolver.InvokeStaticMethod(pair.Head, args)
	}

	head, err := ctx.Eval(pair.Head)
	if err != nil {
		return SexpNull, err
	}
	return ctx.applyArgList(head, pair.Tail)
}

func (ctx *Context) evalSpecialForm(head *SexpSymbol, args Sexp) (Sexp, error) {
	switch head.name {
	case "do":
		return ctx.evalDo(args)
	case "and":
		return ctx.evalAnd(args)
	case "or":
		return ctx.evalOr(args)
	case "let":
		return ctx.evalLet(args)
	case "case":
		return ctx.evalCase(args)
	case "throw":
		return ctx.evalThrow(args)
	case "def":
		return ctx.evalDef(args)
	case "set!":
		return ctx.evalSet(args)
	case "var":
		return ctx.evalVarForm(args)
	case "in-ns":
		return ctx.evalInNS(args)
	case "import":
		return ctx.evalImport(args)
	case "new":
		return ctx.evalNew(args)
	case ".":
		return ctx.evalDot(args)
	case "quote":
		return ctx.evalQuote(args)
	case "require":
		return ctx.moduleCall(head.name, args)
	case "use":
		return ctx.moduleCall(head.name, args)
	case "refer":
		return ctx.moduleCall(head.name, args)
	}

	// not a special form; treat the bare symbol as a variable
	// reference in call position.
	Q("'%s' is not a special form, resolving as a callable", head.name)
	f, err := ctx.resolveSymbolNode(head)
	if err != nil {
		return SexpNull, err
	}
	return ctx.applyArgList(f, args)
}

// evalDo: each expression in order, value of the last; empty body is
// nil.
func (ctx *Context) evalDo(body Sexp) (Sexp, error) {
	var res Sexp = SexpNull
	for body != SexpNull {
		pair, ok := body.(*SexpPair)
		if !ok {
			return SexpNull, NotAList
		}
		var err error
		res, err = ctx.Eval(pair.Head)
		if err != nil {
			return SexpNull, err
		}
		body = pair.Tail
	}
	return res, nil
}

// evalAnd: first falsy value wins, otherwise the last value; (and)
// is true.
func (ctx *Context) evalAnd(args Sexp) (Sexp, error) {
	var res Sexp = &SexpBool{Val: true}
	for args != SexpNull {
		pair, ok := args.(*SexpPair)
		if !ok {
			return SexpNull, NotAList
		}
		var err error
		res, err = ctx.Eval(pair.Head)
		if err != nil {
			return SexpNull, err
		}
		if !IsTruthy(res) {
			return res, nil
		}
		args = pair.Tail
	}
	return res, nil
}

// evalOr: first truthy value wins, otherwise the last value; (or)
// is nil.
func (ctx *Context) evalOr(args Sexp) (Sexp, error) {
	var res Sexp = SexpNull
	for args != SexpNull {
		pair, ok := args.(*SexpPair)
		if !ok {
			return SexpNull, NotAList
		}
		var err error
		res, err = ctx.Eval(pair.Head)
		if err != nil {
			return SexpNull, err
		}
		if IsTruthy(res) {
			return res, nil
		}
		args = pair.Tail
	}
	return res, nil
}

// evalLet: each binding pair extends the scope chain by one frame, so
// later inits see earlier names and the body sees them all. The
// caller's scope is never touched.
func (ctx *Context) evalLet(args Sexp) (Sexp, error) {
	pair, ok := args.(*SexpPair)
	if !ok {
		return SexpNull, WrongNargs
	}
	arr, ok := pair.Head.(*SexpArray)
	if !ok {
		return SexpNull, fmt.Errorf("let requires a binding vector, got %T", pair.Head)
	}
	if len(arr.Val)%2 != 0 {
		return SexpNull, fmt.Errorf("let binding vector needs an even number of forms")
	}

	cur := ctx
	for i := 0; i < len(arr.Val); i += 2 {
		sym, ok := arr.Val[i].(*SexpSymbol)
		if !ok {
			return SexpNull, fmt.Errorf("let binding name must be a symbol, got %T", arr.Val[i])
		}
		val, err := cur.Eval(arr.Val[i+1])
		if err != nil {
			return SexpNull, err
		}
		cur = cur.WithScope(cur.scope.Extend(sym, val))
	}
	return cur.evalDo(pair.Tail)
}

// evalCase: the dispatch value is evaluated once and looked up in a
// precomputed constant table; exactly one branch body runs. A value
// that cannot be hashed can never equal a constant key, so it falls
// to the default.
func (ctx *Context) evalCase(args Sexp) (Sexp, error) {
	elems, err := ListToArray(args)
	if err != nil {
		return SexpNull, err
	}
	if len(elems) < 2 || len(elems) > 3 {
		return SexpNull, WrongNargs
	}
	table, ok := elems[1].(*SexpHash)
	if !ok {
		return SexpNull, fmt.Errorf("case requires a clause table, got %T", elems[1])
	}

	v, err := ctx.Eval(elems[0])
	if err != nil {
		return SexpNull, err
	}

	// SexpEnd can't be produced by evaluation, so it is a safe miss
	// marker here just as it is inside HashGet.
	body, gerr := table.HashGetDefault(v, SexpEnd)
	if gerr != nil || body == SexpEnd {
		if len(elems) == 3 {
			return ctx.Eval(elems[2])
		}
		return SexpNull, &NoMatchingClauseError{Val: v}
	}
	return ctx.Eval(body)
}

// evalThrow raises the evaluated value to the nearest matching catch.
func (ctx *Context) evalThrow(args Sexp) (Sexp, error) {
	elems, err := ListToArray(args)
	if err != nil {
		return SexpNull, err
	}
	if len(elems) != 1 {
		return SexpNull, WrongNargs
	}
	v, err := ctx.Eval(elems[0])
	if err != nil {
		return SexpNull, err
	}
	return SexpNull, &UserRaisedError{Val: v}
}

// evalDef interns a var in the current namespace and binds its root.
// The name must be unqualified. The init expression, if any, is
// evaluated before the metadata expression. Without an init, or with
// the Unbound placeholder standing in for one, the var is only
// declared: an existing root stays untouched, a fresh var reads as
// Unbound. Returns the var cell itself, whose identity is stable
// across redefinition.
func (ctx *Context) evalDef(args Sexp) (Sexp, error) {
	elems, err := ListToArray(args)
	if err != nil {
		return SexpNull, err
	}
	if len(elems) < 1 || len(elems) > 2 {
		return SexpNull, WrongNargs
	}
	sym, ok := elems[0].(*SexpSymbol)
	if !ok {
		return SexpNull, fmt.Errorf("def requires a symbol, got %T", elems[0])
	}
	if i := strings.Index(sym.name, "/"); i > 0 && i < len(sym.name)-1 {
		return SexpNull, fmt.Errorf("def wants an unqualified symbol, got `%s`", sym.name)
	}

	curNS := ctx.env.CurrentNamespaceName()
	v := ctx.env.InternVar(curNS, sym.name)

	if len(elems) == 2 && elems[1] != SexpUnbound {
		val, err := ctx.Eval(elems[1])
		if err != nil {
			return SexpNull, err
		}
		v.SetRoot(val)
	}

	if m := MetaOf(sym); m != nil && m.UserMeta != nil {
		mv, err := ctx.Eval(m.UserMeta)
		if err != nil {
			return SexpNull, err
		}
		mh, ok := mv.(*SexpHash)
		if !ok {
			return SexpNull, fmt.Errorf("var metadata must evaluate to a hash, got %T", mv)
		}
		v.MergeMeta(mh)
	}
	return v, nil
}

// evalSet rebinds the root of an existing var. The target expression
// must evaluate to a var cell.
func (ctx *Context) evalSet(args Sexp) (Sexp, error) {
	elems, err := ListToArray(args)
	if err != nil {
		return SexpNull, err
	}
	if len(elems) != 2 {
		return SexpNull, WrongNargs
	}
	target, err := ctx.Eval(elems[0])
	if err != nil {
		return SexpNull, err
	}
	v, ok := target.(*Var)
	if !ok {
		return SexpNull, fmt.Errorf("set! target must evaluate to a var, got %T", target)
	}
	val, err := ctx.Eval(elems[1])
	if err != nil {
		return SexpNull, err
	}
	v.SetRoot(val)
	return val, nil
}

// evalVarForm returns the var cell itself rather than its value, for
// set! targets and deref.
func (ctx *Context) evalVarForm(args Sexp) (Sexp, error) {
	elems, err := ListToArray(args)
	if err != nil {
		return SexpNull, err
	}
	if len(elems) != 1 {
		return SexpNull, WrongNargs
	}
	sym, ok := elems[0].(*SexpSymbol)
	if !ok {
		return SexpNull, fmt.Errorf("var wants a symbol, got %T", elems[0])
	}
	curNS := ctx.env.CurrentNamespaceName()
	nsName, varName := splitQualified(sym.name, curNS)
	if v, found := ctx.env.LookupVar(nsName, varName); found {
		return v, nil
	}
	return SexpNull, fmt.Errorf("var `%s` not found", sym.name)
}

// evalInNS switches the store's current namespace, creating it on
// first use.
func (ctx *Context) evalInNS(args Sexp) (Sexp, error) {
	elems, err := ListToArray(args)
	if err != nil {
		return SexpNull, err
	}
	if len(elems) != 1 {
		return SexpNull, WrongNargs
	}
	v, err := ctx.Eval(elems[0])
	if err != nil {
		return SexpNull, err
	}
	var name string
	switch t := v.(type) {
	case *SexpSymbol:
		name = t.name
	case *SexpStr:
		name = t.S
	default:
		return SexpNull, fmt.Errorf("in-ns wants a symbol or string, got %T", v)
	}
	ctx.env.SetCurrentNamespace(name)
	return SexpNull, nil
}

// evalQuote returns its argument without evaluation.
func (ctx *Context) evalQuote(args Sexp) (Sexp, error) {
	elems, err := ListToArray(args)
	if err != nil {
		return SexpNull, err
	}
	if len(elems) != 1 {
		return SexpNull, WrongNargs
	}
	return elems[0], nil
}

// evalFn delegates closure construction, then merges any metadata
// expression onto the built closure.
func (ctx *Context) evalFn(expr Sexp) (Sexp, error) {
	if ctx.Closures == nil {
		return SexpNull, fmt.Errorf("no closure builder configured")
	}
	f, err := ctx.Closures.BuildClosure(ctx, expr)
	if err != nil {
		return SexpNull, err
	}
	m := MetaOf(expr)
	if m == nil || m.UserMeta == nil {
		return f, nil
	}
	mv, err := ctx.Eval(m.UserMeta)
	if err != nil {
		return SexpNull, err
	}
	mh, ok := mv.(*SexpHash)
	if !ok {
		return SexpNull, fmt.Errorf("fn metadata must evaluate to a hash, got %T", mv)
	}
	if hm, ok := Sexp(f).(HasNodeMeta); ok {
		fm := hm.NodeMeta().Clone()
		if fm == nil {
			fm = &NodeMeta{}
		}
		fm.UserMeta = mh
		return hm.WithNodeMeta(fm), nil
	}
	return f, nil
}

// bindContext turns a context-needing host function into an ordinary
// callable by closing over the live context. Any other node under
// this op is a producer bug.
func (ctx *Context) bindContext(expr Sexp) (Sexp, error) {
	cf, ok := expr.(*SexpCtxFunction)
	if !ok {
		return SexpNull, &UnexpectedNodeError{Op: OpNeedsContext, Node: expr}
	}
	return cf.Bind(ctx), nil
}

// evalDeref forces a derefable. The node wraps an expression whose
// value must be a var or a delay; vars answer their current root,
// delays memoize their first forcing.
func (ctx *Context) evalDeref(expr Sexp) (Sexp, error) {
	pair, ok := expr.(*SexpPair)
	if !ok {
		return SexpNull, &UnexpectedNodeError{Op: OpDerefNow, Node: expr}
	}
	inner, err := ctx.Eval(pair.Head)
	if err != nil {
		return SexpNull, err
	}
	switch t := inner.(type) {
	case *Var:
		return t.Get(), nil
	case *SexpDelay:
		return t.Force()
	}
	return SexpNull, fmt.Errorf("cannot deref %T", inner)
}

// evalHashStructural rebuilds a hash with every key and value
// evaluated, left to right in insertion order, each exactly once.
// The result keeps the node's annotations minus the evaluation op,
// so it is inert afterwards.
func (ctx *Context) evalHashStructural(h *SexpHash) (Sexp, error) {
	out := &SexpHash{
		TypeName: h.TypeName,
		Map:      make(map[int][]*SexpPair),
		KeyOrder: []Sexp{},
	}
	for _, key := range h.KeyOrder {
		val, err := h.HashGet(key)
		if err != nil {
			// ignore deleted keys
			continue
		}
		ek, err := ctx.Eval(key)
		if err != nil {
			return SexpNull, err
		}
		ev, err := ctx.Eval(val)
		if err != nil {
			return SexpNull, err
		}
		if err := out.HashSet(ek, ev); err != nil {
			return SexpNull, err
		}
	}
	if m := h.NodeMeta(); m != nil {
		m2 := m.Clone()
		m2.Op = OpNone
		out.meta = m2
	}
	return out, nil
}

func (ctx *Context) moduleCall(name string, args Sexp) (Sexp, error) {
	if ctx.Loader == nil {
		return SexpNull, fmt.Errorf("no module loader configured for '%s'", name)
	}
	specs, err := ListToArray(args)
	if err != nil {
		return SexpNull, err
	}
	switch name {
	case "require":
		return ctx.Loader.EvalRequire(ctx, specs)
	case "use":
		return ctx.Loader.EvalUse(ctx, specs)
	}
	return ctx.Loader.EvalRefer(ctx, specs)
}
