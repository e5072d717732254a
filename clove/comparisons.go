package clove

import (
	"bytes"
	"errors"
	"fmt"
	"math"
)

func signumFloat(f float64) int {
	if f > 0 {
		return 1
	}
	if f < 0 {
		return -1
	}
	return 0
}

func signumInt(i int64) int {
	if i > 0 {
		return 1
	}
	if i < 0 {
		return -1
	}
	return 0
}

func compareFloat(f *SexpFloat, expr Sexp) (int, error) {
	switch e := expr.(type) {
	case *SexpInt:
		return signumFloat(f.Val - float64(e.Val)), nil
	case *SexpFloat:
		nanCount := 0
		if math.IsNaN(f.Val) {
			nanCount++
		}
		if math.IsNaN(e.Val) {
			nanCount++
		}
		if nanCount > 0 {
			// NaN != NaN, so return impossible compares: 2 or 3.
			return 1 + nanCount, nil
		}
		return signumFloat(f.Val - e.Val), nil
	case *SexpChar:
		return signumFloat(f.Val - float64(e.Val)), nil
	}
	errmsg := fmt.Sprintf("err 91: cannot compare %T to %T", f, expr)
	return 0, errors.New(errmsg)
}

func compareInt(i *SexpInt, expr Sexp) (int, error) {
	switch e := expr.(type) {
	case *SexpInt:
		return signumInt(i.Val - e.Val), nil
	case *SexpFloat:
		return signumFloat(float64(i.Val) - e.Val), nil
	case *SexpChar:
		return signumInt(i.Val - int64(e.Val)), nil
	case *SexpReflect:
		ifa := e.Val.Interface()
		switch z := ifa.(type) {
		case *int64:
			return signumInt(i.Val - *z), nil
		case int64:
			return signumInt(i.Val - z), nil
		case int:
			return signumInt(i.Val - int64(z)), nil
		}
		P("compareInt(): ifa = %v/%T", ifa, ifa)
	}
	errmsg := fmt.Sprintf("err 92: cannot compare %T to %T", i, expr)
	return 0, errors.New(errmsg)
}

func compareChar(c *SexpChar, expr Sexp) (int, error) {
	switch e := expr.(type) {
	case *SexpInt:
		return signumInt(int64(c.Val) - e.Val), nil
	case *SexpFloat:
		return signumFloat(float64(c.Val) - e.Val), nil
	case *SexpChar:
		return signumInt(int64(c.Val) - int64(e.Val)), nil
	}
	errmsg := fmt.Sprintf("err 93: cannot compare %T to %T", c, expr)
	return 0, errors.New(errmsg)
}

func compareString(s *SexpStr, expr Sexp) (int, error) {
	switch e := expr.(type) {
	case *SexpStr:
		return bytes.Compare([]byte(s.S), []byte(e.S)), nil
	}
	errmsg := fmt.Sprintf("err 94: cannot compare %T to %T", s, expr)
	return 0, errors.New(errmsg)
}

func compareSymbol(sym *SexpSymbol, expr Sexp) (int, error) {
	switch e := expr.(type) {
	case *SexpSymbol:
		return signumInt(int64(sym.number - e.number)), nil
	}
	errmsg := fmt.Sprintf("err 95: cannot compare %T to %T", sym, expr)
	return 0, errors.New(errmsg)
}

func comparePair(a *SexpPair, b Sexp) (int, error) {
	var bp *SexpPair
	switch t := b.(type) {
	case *SexpPair:
		bp = t
	default:
		errmsg := fmt.Sprintf("err 96: cannot compare %T to %T", a, b)
		return 0, errors.New(errmsg)
	}
	res, err := Compare(a.Head, bp.Head)
	if err != nil {
		return 0, err
	}
	if res != 0 {
		return res, nil
	}
	return Compare(a.Tail, bp.Tail)
}

func compareArray(a *SexpArray, b Sexp) (int, error) {
	var ba *SexpArray
	switch t := b.(type) {
	case *SexpArray:
		ba = t
	default:
		errmsg := fmt.Sprintf("err 97: cannot compare %T to %T", a, b)
		return 0, errors.New(errmsg)
	}
	var length int
	if len(a.Val) < len(ba.Val) {
		length = len(a.Val)
	} else {
		length = len(ba.Val)
	}

	for i := 0; i < length; i++ {
		res, err := Compare(a.Val[i], ba.Val[i])
		if err != nil {
			return 0, err
		}
		if res != 0 {
			return res, nil
		}
	}

	return signumInt(int64(len(a.Val) - len(ba.Val))), nil
}

func compareBool(a *SexpBool, b Sexp) (int, error) {
	var bb *SexpBool
	switch bt := b.(type) {
	case *SexpBool:
		bb = bt
	default:
		errmsg := fmt.Sprintf("err 98: cannot compare %T to %T", a, b)
		return 0, errors.New(errmsg)
	}

	// true > false
	if a.Val && bb.Val {
		return 0, nil
	}
	if a.Val {
		return 1, nil
	}
	if bb.Val {
		return -1, nil
	}
	return 0, nil
}

func compareRaw(a *SexpRaw, b Sexp) (int, error) {
	switch e := b.(type) {
	case *SexpRaw:
		return bytes.Compare(a.Val, e.Val), nil
	}
	errmsg := fmt.Sprintf("err 99: cannot compare %T to %T", a, b)
	return 0, errors.New(errmsg)
}

func compareVars(a *Var, bs Sexp) (int, error) {
	var b *Var
	switch bt := bs.(type) {
	case *Var:
		b = bt
	default:
		return 0, fmt.Errorf("err 102: cannot compare %T to %T", a, bs)
	}

	// vars compare by cell identity, not by current root value
	if a == b {
		return 0, nil
	}
	return 1, nil
}

// Compare orders two values, returning -1, 0, or 1. Values of
// unrelated kinds do not compare and return an error; hash probing
// relies on that to treat them as unequal.
func Compare(a Sexp, b Sexp) (int, error) {
	switch at := a.(type) {
	case *SexpInt:
		return compareInt(at, b)
	case *SexpChar:
		return compareChar(at, b)
	case *SexpFloat:
		return compareFloat(at, b)
	case *SexpBool:
		return compareBool(at, b)
	case *SexpStr:
		return compareString(at, b)
	case *SexpSymbol:
		return compareSymbol(at, b)
	case *SexpPair:
		return comparePair(at, b)
	case *SexpArray:
		return compareArray(at, b)
	case *SexpHash:
		return compareHash(at, b)
	case *SexpRaw:
		return compareRaw(at, b)
	case *RegisteredType:
		return compareRegisteredTypes(at, b)
	case *Var:
		return compareVars(at, b)
	case *SexpSentinel:
		if bt, ok := b.(*SexpSentinel); ok && at == bt {
			return 0, nil
		}
		return -1, nil
	}
	errmsg := fmt.Sprintf("err 100: cannot compare %T to %T", a, b)
	return 0, errors.New(errmsg)
}
