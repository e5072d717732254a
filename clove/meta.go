package clove

import (
	"fmt"
)

// EvalOp tells Eval how to treat a node. The analysis pass that
// produces expression trees stamps one of these onto each node that
// needs active evaluation; a node without an op is inert data and
// evaluates to itself.
type EvalOp int

const (
	OpNone EvalOp = iota
	OpResolveSymbol
	OpCall
	OpTry
	OpFn
	OpStaticAccess
	OpDerefNow
	OpNeedsContext

	// OpEvalMap has no dedicated dispatch arm. Eval sends any op it
	// does not recognize on a hash-shaped node down the structural
	// evaluation path, and this is the name producers use for that.
	OpEvalMap
)

var evalOpNames = map[EvalOp]string{
	OpNone:          "none",
	OpResolveSymbol: "resolveSymbol",
	OpCall:          "call",
	OpTry:           "try",
	OpFn:            "fn",
	OpStaticAccess:  "staticAccess",
	OpDerefNow:      "derefNow",
	OpNeedsContext:  "needsContext",
	OpEvalMap:       "evalMap",
}

func (op EvalOp) String() string {
	s, ok := evalOpNames[op]
	if !ok {
		return fmt.Sprintf("evalOp(%d)", int(op))
	}
	return s
}

// NodeMeta carries the annotations the analysis pass leaves on a node:
// the evaluation op, the source position the node came from, an
// optional metadata expression, an optional receiver class hint for
// interop calls, and the record marker for record instances.
type NodeMeta struct {
	Op   EvalOp
	File string
	Line int
	Col  int

	// UserMeta holds the unevaluated metadata expression on def and fn
	// nodes. After def or fn runs it has been evaluated into a hash
	// and merged onto the var or closure.
	UserMeta Sexp

	// TypeHint names the receiver class the analysis pass inferred
	// for an interop method call.
	TypeHint *SexpSymbol

	// Record marks a hash as an instance of a registered record.
	Record *RegisteredType
}

func (m *NodeMeta) Clone() *NodeMeta {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}

// HasNodeMeta is satisfied by the node kinds that can carry
// analysis annotations.
type HasNodeMeta interface {
	Sexp
	NodeMeta() *NodeMeta
	WithNodeMeta(m *NodeMeta) Sexp
}

// MetaOf returns the annotations on x, or nil when x cannot
// carry any.
func MetaOf(x Sexp) *NodeMeta {
	if h, ok := x.(HasNodeMeta); ok {
		return h.NodeMeta()
	}
	return nil
}

// OpOf returns the evaluation op stamped on x. Nodes without
// annotations report OpNone and so evaluate to themselves.
func OpOf(x Sexp) EvalOp {
	m := MetaOf(x)
	if m == nil {
		return OpNone
	}
	return m.Op
}

// WithEvalOp returns a copy of x stamped with op. Panics if x is a
// node kind that cannot carry annotations; producers should only tag
// pairs, symbols, arrays, hashes, functions and try nodes.
func WithEvalOp(x Sexp, op EvalOp) Sexp {
	h, ok := x.(HasNodeMeta)
	if !ok {
		panic(fmt.Sprintf("cannot stamp an evaluation op onto %T", x))
	}
	m := h.NodeMeta().Clone()
	if m == nil {
		m = &NodeMeta{}
	}
	m.Op = op
	return h.WithNodeMeta(m)
}

// WithSourceLoc returns a copy of x annotated with a source position.
func WithSourceLoc(x Sexp, file string, line, col int) Sexp {
	h, ok := x.(HasNodeMeta)
	if !ok {
		panic(fmt.Sprintf("cannot stamp a source location onto %T", x))
	}
	m := h.NodeMeta().Clone()
	if m == nil {
		m = &NodeMeta{}
	}
	m.File = file
	m.Line = line
	m.Col = col
	return h.WithNodeMeta(m)
}

// WithUserMeta returns a copy of x carrying metaExpr as its
// unevaluated metadata expression.
func WithUserMeta(x Sexp, metaExpr Sexp) Sexp {
	h, ok := x.(HasNodeMeta)
	if !ok {
		panic(fmt.Sprintf("cannot attach metadata to %T", x))
	}
	m := h.NodeMeta().Clone()
	if m == nil {
		m = &NodeMeta{}
	}
	m.UserMeta = metaExpr
	return h.WithNodeMeta(m)
}

// WithTypeHint returns a copy of x carrying a receiver class hint.
func WithTypeHint(x Sexp, className *SexpSymbol) Sexp {
	h, ok := x.(HasNodeMeta)
	if !ok {
		panic(fmt.Sprintf("cannot attach a type hint to %T", x))
	}
	m := h.NodeMeta().Clone()
	if m == nil {
		m = &NodeMeta{}
	}
	m.TypeHint = className
	return h.WithNodeMeta(m)
}

// SourceLocOf reports the source position annotated on x, if any.
func SourceLocOf(x Sexp) (file string, line, col int, ok bool) {
	m := MetaOf(x)
	if m == nil || (m.File == "" && m.Line == 0) {
		return "", 0, 0, false
	}
	return m.File, m.Line, m.Col, true
}
