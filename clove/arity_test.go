package clove

import (
	"errors"
	"fmt"
	"testing"

	cv "github.com/glycerine/goconvey/convey"
)

func Test020CallDispatchAcrossArities(t *testing.T) {

	cv.Convey(`the call dispatcher should deliver 0 through 8 arguments through the unrolled paths and 9+ through the generic path, all left to right`, t, func() {
		ctx := newTestContext()
		env := ctx.Env()

		var got []Sexp
		env.AddGlobal("collect", MakeUserFunction("collect", func(name string, args []Sexp) (Sexp, error) {
			got = append([]Sexp{}, args...)
			return &SexpInt{Val: int64(len(args))}, nil
		}))

		for n := 0; n <= 10; n++ {
			got = nil
			elems := []Sexp{ref(env, "collect")}
			for i := 0; i < n; i++ {
				elems = append(elems, &SexpInt{Val: int64(i)})
			}
			res, err := ctx.Eval(form(elems...))
			cv.So(err, cv.ShouldBeNil)
			cv.So(res, cv.ShouldResemble, &SexpInt{Val: int64(n)})
			cv.So(len(got), cv.ShouldEqual, n)
			for i := 0; i < n; i++ {
				cv.So(got[i], cv.ShouldResemble, &SexpInt{Val: int64(i)})
			}
		}
	})

	cv.Convey(`argument expressions should be evaluated exactly once each, in order`, t, func() {
		ctx := newTestContext()
		env := ctx.Env()

		var order []string
		mk := func(tag string) Sexp {
			env.AddGlobal(tag, MakeUserFunction(tag, func(name string, args []Sexp) (Sexp, error) {
				order = append(order, tag)
				return &SexpStr{S: tag}, nil
			}))
			return form(ref(env, tag))
		}
		env.AddGlobal("sink", MakeUserFunction("sink", func(name string, args []Sexp) (Sexp, error) {
			return SexpNull, nil
		}))

		_, err := ctx.Eval(form(ref(env, "sink"), mk("a"), mk("b"), mk("c")))
		cv.So(err, cv.ShouldBeNil)
		cv.So(order, cv.ShouldResemble, []string{"a", "b", "c"})
	})

	cv.Convey(`an argument error should stop the call before the callee runs`, t, func() {
		ctx := newTestContext()
		env := ctx.Env()

		called := false
		env.AddGlobal("nope", MakeUserFunction("nope", func(name string, args []Sexp) (Sexp, error) {
			called = true
			return SexpNull, nil
		}))

		_, err := ctx.Eval(form(ref(env, "nope"), ref(env, "missing-arg")))
		cv.So(err, cv.ShouldNotBeNil)
		cv.So(called, cv.ShouldBeFalse)
	})
}

func Test021CallingNonCallablesFails(t *testing.T) {

	cv.Convey(`calling a value that is not callable should raise NotCallableError naming the value`, t, func() {
		ctx := newTestContext()
		env := ctx.Env()

		ctx.Eval(form(env.MakeSymbol("def"), env.MakeSymbol("five"), &SexpInt{Val: 5}))

		_, err := ctx.Eval(form(ref(env, "five"), &SexpInt{Val: 1}))
		cv.So(err, cv.ShouldNotBeNil)
		var nce *NotCallableError
		cv.So(errors.As(err, &nce), cv.ShouldBeTrue)
		cv.So(err.Error(), cv.ShouldContainSubstring, "cannot call")
	})
}

func Test022PanicsAreContained(t *testing.T) {

	cv.Convey(`a panic inside a host function should come back as an error carrying a stack trace, and the env should stay usable`, t, func() {
		ctx := newTestContext()
		env := ctx.Env()

		env.AddGlobal("kaboom", MakeUserFunction("kaboom", func(name string, args []Sexp) (Sexp, error) {
			panic(fmt.Errorf("blew up"))
		}))

		_, err := ctx.Eval(form(ref(env, "kaboom")))
		cv.So(err, cv.ShouldNotBeNil)
		cv.So(err.Error(), cv.ShouldContainSubstring, "caught panic during call of 'kaboom'")
		cv.So(err.Error(), cv.ShouldContainSubstring, "stack trace")

		// still alive afterwards.
		res, err := ctx.Eval(form(env.MakeSymbol("do"), &SexpInt{Val: 11}))
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldResemble, &SexpInt{Val: 11})
	})
}

func Test023ApplyCallsDirectly(t *testing.T) {

	cv.Convey(`Apply should invoke a callable on already evaluated arguments, no node tree involved`, t, func() {
		ctx := newTestContext()

		add := MakeUserFunction("add", func(name string, args []Sexp) (Sexp, error) {
			sum := int64(0)
			for _, a := range args {
				n, ok := a.(*SexpInt)
				if !ok {
					return SexpNull, WrongType
				}
				sum += n.Val
			}
			return &SexpInt{Val: sum}, nil
		})

		res, err := ctx.Apply(add, []Sexp{&SexpInt{Val: 4}, &SexpInt{Val: 5}})
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldResemble, &SexpInt{Val: 9})
	})

	cv.Convey(`a bare symbol in call position that names no special form should resolve as a variable reference`, t, func() {
		ctx := newTestContext()
		env := ctx.Env()

		env.AddGlobal("twice", MakeUserFunction("twice", func(name string, args []Sexp) (Sexp, error) {
			n := args[0].(*SexpInt)
			return &SexpInt{Val: 2 * n.Val}, nil
		}))

		// head symbol carries no op at all; the dispatcher still finds it.
		res, err := ctx.Eval(form(env.MakeSymbol("twice"), &SexpInt{Val: 21}))
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldResemble, &SexpInt{Val: 42})
	})
}
