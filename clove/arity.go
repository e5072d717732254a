package clove

import (
	"fmt"
	"runtime"
)

// applyArgList invokes head on the still-unevaluated argument list.
// A context-needing host function arriving here unbound (a lookup
// hands back the stored value as-is) gets its context bound first.
// Small argument counts get dedicated paths that evaluate each
// argument into its own slot, left to right; longer calls fall back
// to the generic loop. Either way every argument is evaluated exactly
// once, in order, before the callee runs.
func (ctx *Context) applyArgList(head Sexp, argExprs Sexp) (Sexp, error) {
	if cf, isCtx := head.(*SexpCtxFunction); isCtx {
		head = cf.Bind(ctx)
	}
	f, ok := head.(Callable)
	if !ok {
		return SexpNull, &NotCallableError{Val: head}
	}

	nargs, err := ListLen(argExprs)
	if err != nil {
		return SexpNull, err
	}

	switch nargs {
	case 0:
		return ctx.Apply(f, nil)

	case 1:
		p0 := argExprs.(*SexpPair)
		a0, err := ctx.Eval(p0.Head)
		if err != nil {
			return SexpNull, err
		}
		return ctx.Apply(f, []Sexp{a0})

	case 2:
		p0 := argExprs.(*SexpPair)
		a0, err := ctx.Eval(p0.Head)
		if err != nil {
			return SexpNull, err
		}
		p1 := p0.Tail.(*SexpPair)
		a1, err := ctx.Eval(p1.Head)
		if err != nil {
			return SexpNull, err
		}
		return ctx.Apply(f, []Sexp{a0, a1})

	case 3:
		p0 := argExprs.(*SexpPair)
		a0, err := ctx.Eval(p0.Head)
		if err != nil {
			return SexpNull, err
		}
		p1 := p0.Tail.(*SexpPair)
		a1, err := ctx.Eval(p1.Head)
		if err != nil {
			return SexpNull, err
		}
		p2 := p1.Tail.(*SexpPair)
		a2, err := ctx.Eval(p2.Head)
		if err != nil {
			return SexpNull, err
		}
		return ctx.Apply(f, []Sexp{a0, a1, a2})

	case 4:
		p0 := argExprs.(*SexpPair)
		a0, err := ctx.Eval(p0.Head)
		if err != nil {
			return SexpNull, err
		}
		p1 := p0.Tail.(*SexpPair)
		a1, err := ctx.Eval(p1.Head)
		if err != nil {
			return SexpNull, err
		}
		p2 := p1.Tail.(*SexpPair)
		a2, err := ctx.Eval(p2.Head)
		if err != nil {
			return SexpNull, err
		}
		p3 := p2.Tail.(*SexpPair)
		a3, err := ctx.Eval(p3.Head)
		if err != nil {
			return SexpNull, err
		}
		return ctx.Apply(f, []Sexp{a0, a1, a2, a3})

	case 5:
		p0 := argExprs.(*SexpPair)
		a0, err := ctx.Eval(p0.Head)
		if err != nil {
			return SexpNull, err
		}
		p1 := p0.Tail.(*SexpPair)
		a1, err := ctx.Eval(p1.Head)
		if err != nil {
			return SexpNull, err
		}
		p2 := p1.Tail.(*SexpPair)
		a2, err := ctx.Eval(p2.Head)
		if err != nil {
			return SexpNull, err
		}
		p3 := p2.Tail.(*SexpPair)
		a3, err := ctx.Eval(p3.Head)
		if err != nil {
			return SexpNull, err
		}
		p4 := p3.Tail.(*SexpPair)
		a4, err := ctx.Eval(p4.Head)
		if err != nil {
			return SexpNull, err
		}
		return ctx.Apply(f, []Sexp{a0, a1, a2, a3, a4})

	case 6:
		p0 := argExprs.(*SexpPair)
		a0, err := ctx.Eval(p0.Head)
		if err != nil {
			return SexpNull, err
		}
		p1 := p0.Tail.(*SexpPair)
		a1, err := ctx.Eval(p1.Head)
		if err != nil {
			return SexpNull, err
		}
		p2 := p1.Tail.(*SexpPair)
		a2, err := ctx.Eval(p2.Head)
		if err != nil {
			return SexpNull, err
		}
		p3 := p2.Tail.(*SexpPair)
		a3, err := ctx.Eval(p3.Head)
		if err != nil {
			return SexpNull, err
		}
		p4 := p3.Tail.(*SexpPair)
		a4, err := ctx.Eval(p4.Head)
		if err != nil {
			return SexpNull, err
		}
		p5 := p4.Tail.(*SexpPair)
		a5, err := ctx.Eval(p5.Head)
		if err != nil {
			return SexpNull, err
		}
		return ctx.Apply(f, []Sexp{a0, a1, a2, a3, a4, a5})

	case 7:
		p0 := argExprs.(*SexpPair)
		a0, err := ctx.Eval(p0.Head)
		if err != nil {
			return SexpNull, err
		}
		p1 := p0.Tail.(*SexpPair)
		a1, err := ctx.Eval(p1.Head)
		if err != nil {
			return SexpNull, err
		}
		p2 := p1.Tail.(*SexpPair)
		a2, err := ctx.Eval(p2.Head)
		if err != nil {
			return SexpNull, err
		}
		p3 := p2.Tail.(*SexpPair)
		a3, err := ctx.Eval(p3.Head)
		if err != nil {
			return SexpNull, err
		}
		p4 := p3.Tail.(*SexpPair)
		a4, err := ctx.Eval(p4.Head)
		if err != nil {
			return SexpNull, err
		}
		p5 := p4.Tail.(*SexpPair)
		a5, err := ctx.Eval(p5.Head)
		if err != nil {
			return SexpNull, err
		}
		p6 := p5.Tail.(*SexpPair)
		a6, err := ctx.Eval(p6.Head)
		if err != nil {
			return SexpNull, err
		}
		return ctx.Apply(f, []Sexp{a0, a1, a2, a3, a4, a5, a6})

	case 8:
		p0 := argExprs.(*SexpPair)
		a0, err := ctx.Eval(p0.Head)
		if err != nil {
			return SexpNull, err
		}
		p1 := p0.Tail.(*SexpPair)
		a1, err := ctx.Eval(p1.Head)
		if err != nil {
			return SexpNull, err
		}
		p2 := p1.Tail.(*SexpPair)
		a2, err := ctx.Eval(p2.Head)
		if err != nil {
			return SexpNull, err
		}
		p3 := p2.Tail.(*SexpPair)
		a3, err := ctx.Eval(p3.Head)
		if err != nil {
			return SexpNull, err
		}
		p4 := p3.Tail.(*SexpPair)
		a4, err := ctx.Eval(p4.Head)
		if err != nil {
			return SexpNull, err
		}
		p5 := p4.Tail.(*SexpPair)
		a5, err := ctx.Eval(p5.Head)
		if err != nil {
			return SexpNull, err
		}
		p6 := p5.Tail.(*SexpPair)
		a6, err := ctx.Eval(p6.Head)
		if err != nil {
			return SexpNull, err
		}
		p7 := p6.Tail.(*SexpPair)
		a7, err := ctx.Eval(p7.Head)
		if err != nil {
			return SexpNull, err
		}
		return ctx.Apply(f, []Sexp{a0, a1, a2, a3, a4, a5, a6, a7})
	}

	args, err := ctx.evalArgs(argExprs)
	if err != nil {
		return SexpNull, err
	}
	return ctx.Apply(f, args)
}

// evalArgs is the generic argument walk for long calls.
func (ctx *Context) evalArgs(argExprs Sexp) ([]Sexp, error) {
	args := []Sexp{}
	for argExprs != SexpNull {
		pair, ok := argExprs.(*SexpPair)
		if !ok {
			return nil, NotAList
		}
		v, err := ctx.Eval(pair.Head)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		argExprs = pair.Tail
	}
	return args, nil
}

// Apply invokes f on already evaluated arguments.
// A panic inside a host function must not take the embedding process
// down with it, so we recover and surface it as an error.
func (ctx *Context) Apply(f Callable, args []Sexp) (Sexp, error) {
	//P("Apply calling '%s' with %d args", CallableName(f), len(args))
	var wasPanic bool
	var recovered interface{}
	var trace []byte
	res, err := func() (Sexp, error) {
		defer func() {
			recovered = recover()
			if recovered != nil {
				wasPanic = true
				trace = make([]byte, 16384)
				nbyte := runtime.Stack(trace, false)
				trace = trace[:nbyte]
			}
		}()

		return f.Call(args)
	}()

	if wasPanic {
		W("Apply recovered a panic in '%s': '%v'", CallableName(f), recovered)
		err = fmt.Errorf("Apply caught panic during call of "+
			"'%s': '%v'\n stack trace:\n%v\n",
			CallableName(f), recovered, string(trace))
	}
	if err != nil {
		return SexpNull, err
	}
	return res, nil
}
