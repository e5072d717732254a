package clove

import (
	"errors"
	"fmt"
)

var WrongNargs error = fmt.Errorf("wrong number of arguments")
var WrongType error = errors.New("operands have invalid type")

// EvalError annotates a failure with the source position of the node
// whose evaluation raised it. Inner frames annotate first, so the
// position is the most specific one available; outer frames leave an
// existing EvalError alone.
type EvalError struct {
	File string
	Line int
	Col  int
	Err  error
}

func (e *EvalError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d col %d: %s", e.Line, e.Col, e.Err)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// NotCallableError: the head of a call evaluated to something that
// cannot be invoked.
type NotCallableError struct {
	Val Sexp
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("cannot call '%s' of type %T", e.Val.SexpString(nil), e.Val)
}

// NoMatchingClauseError: a case dispatch value matched no clause and
// no default was supplied.
type NoMatchingClauseError struct {
	Val Sexp
}

func (e *NoMatchingClauseError) Error() string {
	return fmt.Sprintf("no matching clause for '%s'", e.Val.SexpString(nil))
}

// UnresolvableClassError: an import named a class that neither the
// interop layer nor the record registry could resolve.
type UnresolvableClassError struct {
	Name string
}

func (e *UnresolvableClassError) Error() string {
	return fmt.Sprintf("unable to resolve class '%s'", e.Name)
}

// InteropDeniedError: a method call on a native object whose class is
// not on the allowlist.
type InteropDeniedError struct {
	Class  string
	Method string
}

func (e *InteropDeniedError) Error() string {
	return fmt.Sprintf("method '%s' on class '%s' is not allowed", e.Method, e.Class)
}

// UnexpectedNodeError: the dispatcher met a node whose shape does not
// agree with its evaluation op. These indicate a defective producer,
// not a user mistake.
type UnexpectedNodeError struct {
	Op   EvalOp
	Node Sexp
}

func (e *UnexpectedNodeError) Error() string {
	return fmt.Sprintf("unexpected node type %T under op '%s'", e.Node, e.Op)
}

// UserRaisedError carries a thrown value out through Go error
// returns, so it survives the trip to the nearest matching catch.
type UserRaisedError struct {
	Val Sexp
}

func (e *UserRaisedError) Error() string {
	return fmt.Sprintf("thrown: %s", e.Val.SexpString(nil))
}

// RaisedValue recovers the value a catch clause should bind: the
// thrown value itself for throw, or the engine error wrapped as a
// value for everything else.
func RaisedValue(err error) Sexp {
	var ur *UserRaisedError
	if errors.As(err, &ur) {
		return ur.Val
	}
	var ee *EvalError
	if errors.As(err, &ee) {
		return &SexpError{error: ee.Err}
	}
	return &SexpError{error: err}
}
