package clove_test

import (
	"testing"

	"github.com/clove-lang/clove/clove"
	cv "github.com/glycerine/goconvey/convey"
)

// Embedders drive the engine entirely through its exported surface:
// define records, evaluate call nodes, and move values across the
// interop boundary into plain Go structs. These tests stay outside
// the package to prove the surface is sufficient.

func call(elems ...clove.Sexp) clove.Sexp {
	return clove.WithEvalOp(clove.MakeList(elems), clove.OpCall)
}

func Test120EmbeddingSurface(t *testing.T) {

	cv.Convey(`from the host we should be able to define a record type, build an instance, and read it back in both print and json form`, t, func() {
		records := clove.NewRecordRegistry()
		records.Define("guest120", "name", "seat")

		env := clove.NewEnvWithOptions(&clove.Options{Records: records})
		ctx := env.NewContext()

		inst, err := ctx.Eval(call(
			env.MakeSymbol("new"),
			env.MakeSymbol("guest120"),
			&clove.SexpStr{S: "Liz"},
			&clove.SexpInt{Val: 12},
		))
		cv.So(err, cv.ShouldBeNil)

		cv.So(inst.SexpString(nil), cv.ShouldEqual, ` (guest120 name:"Liz" seat:12)`)

		json := clove.SexpToJson(inst)
		cv.So(json, cv.ShouldEqual,
			`{"Atype":"guest120", "name":"Liz", "seat":12, "zKeyOrder":["name", "seat"]}`)
	})

	cv.Convey(`a field hash should create a known Go struct,

type booking120 struct {
	Flight string
	Pilots []string
}

 and fill in its fields`, t, func() {
		type booking120 struct {
			Flight string
			Pilots []string
		}
		rt := clove.NewRegisteredType(func(env *clove.Env, h *clove.SexpHash) (interface{}, error) {
			return &booking120{}, nil
		})
		clove.GoStructRegistry.RegisterUserdef(rt, "booking120")

		gi := clove.NewGoInterop()
		env := clove.NewEnvWithOptions(&clove.Options{Interop: gi, Classes: clove.AllowAllClasses()})
		gi.SetEnv(env)
		ctx := env.NewContext()

		fields, err := clove.MakeHash([]clove.Sexp{
			env.MakeSymbol("Flight"), &clove.SexpStr{S: "AZD234"},
			env.MakeSymbol("Pilots"), &clove.SexpArray{Val: []clove.Sexp{
				&clove.SexpStr{S: "Roger"}, &clove.SexpStr{S: "Ernie"},
			}},
		}, "hash")
		cv.So(err, cv.ShouldBeNil)

		inst, err := ctx.Eval(call(env.MakeSymbol("new"), env.MakeSymbol("booking120"), fields))
		cv.So(err, cv.ShouldBeNil)

		b := inst.(*clove.SexpReflect).Val.Interface().(*booking120)
		cv.So(b.Flight, cv.ShouldEqual, "AZD234")
		cv.So(len(b.Pilots), cv.ShouldEqual, 2)
		cv.So(b.Pilots[0], cv.ShouldEqual, "Roger")
		cv.So(b.Pilots[1], cv.ShouldEqual, "Ernie")
	})

	cv.Convey(`vars defined by evaluated code are visible to the host through the store`, t, func() {
		env := clove.NewEnv()
		ctx := env.NewContext()

		_, err := ctx.Eval(call(env.MakeSymbol("def"), env.MakeSymbol("answer120"), &clove.SexpInt{Val: 42}))
		cv.So(err, cv.ShouldBeNil)

		v, ok := env.LookupVar("user", "answer120")
		cv.So(ok, cv.ShouldBeTrue)
		cv.So(v.Get().(*clove.SexpInt).Val, cv.ShouldEqual, 42)
		cv.So(v.SexpString(nil), cv.ShouldEqual, "#'user/answer120")
	})
}
