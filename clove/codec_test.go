package clove

import (
	"testing"

	cv "github.com/glycerine/goconvey/convey"
)

func Test100JsonRoundTrip(t *testing.T) {

	cv.Convey(`a hash survives the json trip with its type name and key order intact`, t, func() {
		env := NewEnv()
		h, err := MakeHash([]Sexp{
			env.MakeSymbol("b"), &SexpInt{Val: 2},
			env.MakeSymbol("a"), &SexpInt{Val: 1},
			env.MakeSymbol("nest"), &SexpArray{Val: []Sexp{
				&SexpFloat{Val: 2.5}, &SexpStr{S: "s"}, &SexpBool{Val: true},
			}},
		}, "hash")
		cv.So(err, cv.ShouldBeNil)

		json := SexpToJson(h)
		cv.So(json, cv.ShouldContainSubstring, `"Atype":"hash"`)
		cv.So(json, cv.ShouldContainSubstring, `"zKeyOrder":["b", "a", "nest"]`)

		back, err := JsonToSexp([]byte(json), env)
		cv.So(err, cv.ShouldBeNil)
		round, isHash := back.(*SexpHash)
		cv.So(isHash, cv.ShouldBeTrue)
		cv.So(round.TypeName, cv.ShouldEqual, "hash")

		cv.So(len(round.KeyOrder), cv.ShouldEqual, 3)
		cv.So(round.KeyOrder[0].(*SexpSymbol).name, cv.ShouldEqual, "b")
		cv.So(round.KeyOrder[1].(*SexpSymbol).name, cv.ShouldEqual, "a")

		bv, err := round.HashGet(env.MakeSymbol("b"))
		cv.So(err, cv.ShouldBeNil)
		cv.So(bv.(*SexpInt).Val, cv.ShouldEqual, 2)

		nv, err := round.HashGet(env.MakeSymbol("nest"))
		cv.So(err, cv.ShouldBeNil)
		arr := nv.(*SexpArray)
		cv.So(arr.Val[0].(*SexpFloat).Val, cv.ShouldEqual, 2.5)
		cv.So(arr.Val[1].(*SexpStr).S, cv.ShouldEqual, "s")
		cv.So(arr.Val[2].(*SexpBool).Val, cv.ShouldBeTrue)
	})

	cv.Convey(`a registered record comes back from json as an instance of its type`, t, func() {
		env := NewEnv()
		pt := RegisterRecord("pt100", "x", "y")
		inst, err := buildRecordInstance(env, pt, []Sexp{&SexpInt{Val: 4}, &SexpInt{Val: 5}})
		cv.So(err, cv.ShouldBeNil)

		json := SexpToJson(inst)
		cv.So(json, cv.ShouldContainSubstring, `"Atype":"pt100"`)

		back, err := JsonToSexp([]byte(json), env)
		cv.So(err, cv.ShouldBeNil)
		round := back.(*SexpHash)
		cv.So(round.TypeName, cv.ShouldEqual, "pt100")
		cv.So(round.RecordType(), cv.ShouldEqual, pt)

		x, err := round.HashGet(env.MakeSymbol("x"))
		cv.So(err, cv.ShouldBeNil)
		cv.So(x.(*SexpInt).Val, cv.ShouldEqual, 4)
	})

	cv.Convey(`the codec builtin wraps json and unjson over raw bytes`, t, func() {
		ctx := newTestContext()
		env := ctx.Env()
		h, err := MakeHash([]Sexp{env.MakeSymbol("k"), &SexpInt{Val: 7}}, "hash")
		cv.So(err, cv.ShouldBeNil)

		raw, err := CodecFunction(ctx, "json", []Sexp{h})
		cv.So(err, cv.ShouldBeNil)
		cv.So(raw.(*SexpRaw), cv.ShouldNotBeNil)

		back, err := CodecFunction(ctx, "unjson", []Sexp{raw})
		cv.So(err, cv.ShouldBeNil)
		kv, err := back.(*SexpHash).HashGet(env.MakeSymbol("k"))
		cv.So(err, cv.ShouldBeNil)
		cv.So(kv.(*SexpInt).Val, cv.ShouldEqual, 7)

		_, err = CodecFunction(ctx, "unjson", []Sexp{&SexpInt{Val: 1}})
		cv.So(err, cv.ShouldNotBeNil)
		cv.So(err.Error(), cv.ShouldContainSubstring, "SexpRaw required")

		_, err = CodecFunction(ctx, "frobnicate", []Sexp{h})
		cv.So(err, cv.ShouldNotBeNil)
		cv.So(err.Error(), cv.ShouldContainSubstring, "unrecognized function name")
	})
}

func Test101MsgpackRoundTripAndDedup(t *testing.T) {

	cv.Convey(`a hash survives the msgpack trip`, t, func() {
		env := NewEnv()
		h, err := MakeHash([]Sexp{
			env.MakeSymbol("name"), &SexpStr{S: "ten"},
			env.MakeSymbol("n"), &SexpInt{Val: 10},
		}, "hash")
		cv.So(err, cv.ShouldBeNil)

		by, iface := SexpToMsgpack(h)
		cv.So(len(by), cv.ShouldBeGreaterThan, 0)
		cv.So(iface, cv.ShouldNotBeNil)

		back, err := MsgpackToSexp(by, env)
		cv.So(err, cv.ShouldBeNil)
		round := back.(*SexpHash)
		cv.So(round.TypeName, cv.ShouldEqual, "hash")
		cv.So(round.KeyOrder[0].(*SexpSymbol).name, cv.ShouldEqual, "name")

		nv, err := round.HashGet(env.MakeSymbol("n"))
		cv.So(err, cv.ShouldBeNil)
		cv.So(nv.(*SexpInt).Val, cv.ShouldEqual, 10)

		sv, err := round.HashGet(env.MakeSymbol("name"))
		cv.So(err, cv.ShouldBeNil)
		cv.So(sv.(*SexpStr).S, cv.ShouldEqual, "ten")
	})

	cv.Convey(`the codec builtin wraps msgpack and unmsgpack symmetrically`, t, func() {
		ctx := newTestContext()
		env := ctx.Env()
		h, err := MakeHash([]Sexp{env.MakeSymbol("z"), &SexpFloat{Val: 1.25}}, "hash")
		cv.So(err, cv.ShouldBeNil)

		raw, err := CodecFunction(ctx, "msgpack", []Sexp{h})
		cv.So(err, cv.ShouldBeNil)
		back, err := CodecFunction(ctx, "unmsgpack", []Sexp{raw})
		cv.So(err, cv.ShouldBeNil)
		zv, err := back.(*SexpHash).HashGet(env.MakeSymbol("z"))
		cv.So(err, cv.ShouldBeNil)
		cv.So(zv.(*SexpFloat).Val, cv.ShouldEqual, 1.25)
	})

	cv.Convey(`scalar conversions to and from plain Go values agree`, t, func() {
		env := NewEnv()

		cv.So(SexpToGo(&SexpInt{Val: 7}, env, nil), cv.ShouldEqual, int64(7))
		cv.So(SexpToGo(&SexpStr{S: "hi"}, env, nil), cv.ShouldEqual, "hi")
		cv.So(SexpToGo(&SexpBool{Val: true}, env, nil), cv.ShouldEqual, true)
		cv.So(SexpToGo(&SexpChar{Val: 'A'}, env, nil), cv.ShouldEqual, rune('A'))
		cv.So(SexpToGo(env.MakeSymbol("sym101"), env, nil), cv.ShouldEqual, "sym101")
		cv.So(SexpToGo(SexpNull, env, nil), cv.ShouldBeNil)

		s, err := GoToSexp(int64(9), env)
		cv.So(err, cv.ShouldBeNil)
		cv.So(s.(*SexpInt).Val, cv.ShouldEqual, 9)

		s, err = GoToSexp(nil, env)
		cv.So(err, cv.ShouldBeNil)
		cv.So(s, cv.ShouldEqual, SexpNull)

		s, err = GoToSexp([]byte{1, 2}, env)
		cv.So(err, cv.ShouldBeNil)
		cv.So(len(s.(*SexpRaw).Val), cv.ShouldEqual, 2)

		type opaque101 struct{ N int }
		s, err = GoToSexp(opaque101{N: 3}, env)
		cv.So(err, cv.ShouldBeNil)
		cv.So(s.(*SexpReflect), cv.ShouldNotBeNil)
	})

	cv.Convey(`a hash used in two places converts to the same Go map`, t, func() {
		env := NewEnv()
		shared, err := MakeHash([]Sexp{env.MakeSymbol("k"), &SexpInt{Val: 1}}, "hash")
		cv.So(err, cv.ShouldBeNil)
		arr := &SexpArray{Val: []Sexp{shared, shared}}

		g := SexpToGo(arr, env, nil)
		slice := g.([]interface{})
		m0 := slice[0].(map[string]interface{})
		m1 := slice[1].(map[string]interface{})

		m0["extra"] = int64(99)
		cv.So(m1["extra"], cv.ShouldEqual, int64(99))
	})
}
