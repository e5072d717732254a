package clove

import (
	"errors"
)

var NotAList = errors.New("not a list")

func IsList(expr Sexp) bool {
	if expr == SexpNull {
		return true
	}
	switch list := expr.(type) {
	case *SexpPair:
		return IsList(list.Tail)
	}
	return false
}

func ListToArray(expr Sexp) ([]Sexp, error) {
	if !IsList(expr) {
		return nil, NotAList
	}
	arr := make([]Sexp, 0)

	for expr != SexpNull {
		list := expr.(*SexpPair)
		arr = append(arr, list.Head)
		expr = list.Tail
	}

	return arr, nil
}

func MakeList(expressions []Sexp) Sexp {
	if len(expressions) == 0 {
		return SexpNull
	}

	return Cons(expressions[0], MakeList(expressions[1:]))
}

// ListLen counts the elements of a proper list.
func ListLen(expr Sexp) (int, error) {
	n := 0
	for expr != SexpNull {
		list, ok := expr.(*SexpPair)
		if !ok {
			return 0, NotAList
		}
		n++
		expr = list.Tail
	}
	return n, nil
}
