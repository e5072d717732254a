package clove

// CatchClause matches raised values by class and binds the match for
// its body. Clauses are tried in source order; the first whose class
// accepts the raised value wins.
type CatchClause struct {
	Class   TypeRef
	Binding *SexpSymbol
	Body    Sexp
}

// SexpTry is a fully analyzed try form: body, ordered catch clauses,
// optional finally.
type SexpTry struct {
	Body    Sexp
	Catches []CatchClause
	Finally Sexp
	meta    *NodeMeta
}

// NewSexpTry builds a try node already stamped for dispatch.
func NewSexpTry(body Sexp, catches []CatchClause, finally Sexp) *SexpTry {
	t := &SexpTry{Body: body, Catches: catches, Finally: finally}
	return WithEvalOp(t, OpTry).(*SexpTry)
}

func (t *SexpTry) SexpString(ps *PrintState) string {
	str := "(try"
	if t.Body != nil {
		str += " " + t.Body.SexpString(ps)
	}
	for _, c := range t.Catches {
		str += " (catch " + c.Class.TypeName()
		if c.Binding != nil {
			str += " " + c.Binding.name
		}
		if c.Body != nil {
			str += " " + c.Body.SexpString(ps)
		}
		str += ")"
	}
	if t.Finally != nil {
		str += " (finally " + t.Finally.SexpString(ps) + ")"
	}
	return str + ")"
}

func (t *SexpTry) Type() *RegisteredType {
	return TryRT
}

func (t *SexpTry) NodeMeta() *NodeMeta {
	return t.meta
}

func (t *SexpTry) WithNodeMeta(m *NodeMeta) Sexp {
	cp := *t
	cp.meta = m
	return &cp
}

// evalTry runs the try state machine. The body evaluates with the
// in-try flag raised; on failure the raised value is recovered and
// matched against the catch clauses in order. The finally expression
// runs exactly once on every exit path, via defer, and its own
// failure replaces whatever was propagating.
func (ctx *Context) evalTry(expr Sexp) (res Sexp, err error) {
	t, ok := expr.(*SexpTry)
	if !ok {
		return SexpNull, &UnexpectedNodeError{Op: OpTry, Node: expr}
	}

	if t.Finally != nil {
		defer func() {
			if _, ferr := ctx.Eval(t.Finally); ferr != nil {
				res, err = SexpNull, ferr
			}
		}()
	}

	res, err = ctx.withInTry().Eval(t.Body)
	if err == nil {
		return res, nil
	}

	raised := RaisedValue(err)
	for _, clause := range t.Catches {
		if clause.Class == nil || !clause.Class.InstanceOf(raised) {
			continue
		}
		// catch bodies run outside the protection of this try
		cctx := ctx
		if clause.Binding != nil {
			cctx = ctx.WithScope(ctx.scope.Extend(clause.Binding, raised))
		}
		res, err = cctx.Eval(clause.Body)
		return res, err
	}

	// no clause matched; keep propagating
	return SexpNull, err
}
