package clove

import (
	"fmt"
	"sort"
	"strings"
)

// Scopes map symbol numbers to values. Each let binding pair and each
// catch binding extends the chain with a child frame, so inner frames
// shadow outer ones and sibling branches never see each other's
// bindings. The root frame is the env's global scope.
type Scope struct {
	Map      map[int]Sexp
	IsGlobal bool
	Name     string
	Parent   *Scope
	env      *Env
}

func (env *Env) NewScope() *Scope {
	return &Scope{
		Map: make(map[int]Sexp),
		env: env,
	}
}

func (env *Env) NewNamedScope(name string) *Scope {
	s := env.NewScope()
	s.Name = name
	return s
}

// SexpString satisfies the Sexp interface, producing a string presentation of the value.
func (s *Scope) SexpString(ps *PrintState) string {
	label := "scope " + s.Name
	if s.IsGlobal {
		label += " (global)"
	}

	str, err := s.Show(s.env, ps, s.Name)
	if err != nil {
		return "(" + label + ")"
	}

	return "(" + label + " " + str + ")"
}

// Type() satisfies the Sexp interface, returning the type of the value.
func (s *Scope) Type() *RegisteredType {
	return ScopeRT
}

// BindSymbol adds a binding to this frame.
func (s *Scope) BindSymbol(sym *SexpSymbol, val Sexp) {
	s.Map[sym.number] = val
}

// Extend returns a child frame holding a single new binding.
func (s *Scope) Extend(sym *SexpSymbol, val Sexp) *Scope {
	child := &Scope{
		Map:    map[int]Sexp{sym.number: val},
		Parent: s,
		env:    s.env,
	}
	return child
}

// LookupSymbol walks the chain innermost first.
func (s *Scope) LookupSymbol(sym *SexpSymbol) (Sexp, bool) {
	for scope := s; scope != nil; scope = scope.Parent {
		expr, ok := scope.Map[sym.number]
		if ok {
			return expr, true
		}
	}
	return SexpNull, false
}

type SymtabE struct {
	Key string
	Val string
}

type SymtabSorter []*SymtabE

func (a SymtabSorter) Len() int           { return len(a) }
func (a SymtabSorter) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a SymtabSorter) Less(i, j int) bool { return a[i].Key < a[j].Key }

func (scop *Scope) Show(env *Env, ps *PrintState, label string) (s string, err error) {
	if ps == nil {
		ps = NewPrintState()
	}
	if ps.GetSeen(scop) {
		// This check is critical to prevent infinite looping in a cycle.
		return "", nil
	} else {
		ps.SetSeen(scop, "Scope")
	}
	indent := ps.GetIndent()
	rep := strings.Repeat(" ", indent)
	rep4 := strings.Repeat(" ", indent+4)
	s += fmt.Sprintf("%s %s  %s (%p)\n", rep, label, scop.Name, scop)
	if len(scop.Map) == 0 {
		s += fmt.Sprintf("%s empty-scope: no symbols\n", rep4)
	} else {
		sortme := []*SymtabE{}
		for symbolNumber, val := range scop.Map {
			symbolName := env.SymbolName(symbolNumber)
			sortme = append(sortme, &SymtabE{Key: symbolName, Val: val.SexpString(ps)})
		}
		sort.Sort(SymtabSorter(sortme))
		for i := range sortme {
			s += fmt.Sprintf("%s %s -> %s\n", rep4,
				sortme[i].Key, sortme[i].Val)
		}
	}
	// enclosing frames display too, each one deeper.
	if scop.Parent != nil {
		r, err := scop.Parent.Show(env, ps.AddIndent(4), "parent of "+label)
		if err != nil {
			return "", err
		}
		s += r
	}
	return
}

type Showable interface {
	Show(env *Env, ps *PrintState, label string) (string, error)
}
