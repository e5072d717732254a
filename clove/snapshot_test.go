package clove

import (
	"path/filepath"
	"testing"

	cv "github.com/glycerine/goconvey/convey"
)

func Test110FileSnapshotRoundTrip(t *testing.T) {

	cv.Convey(`saving and loading a snapshot restores vars, metadata, imports and the current namespace`, t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "world.snap")

		env := NewEnv()
		env.InternVar("user", "greeting").SetRoot(&SexpStr{S: "hello"})
		env.InternVar("user", "count").SetRoot(&SexpInt{Val: 42})
		env.InternVar("user", "nothing").SetRoot(SexpNull)
		env.InternVar("lib", "ratio").SetRoot(&SexpFloat{Val: 0.5})

		cfg, err := MakeHash([]Sexp{env.MakeSymbol("a"), &SexpInt{Val: 1}}, "hash")
		cv.So(err, cv.ShouldBeNil)
		env.InternVar("lib", "cfg").SetRoot(cfg)

		doc, err := MakeHash([]Sexp{env.MakeSymbol("doc"), &SexpStr{S: "says hello"}}, "hash")
		cv.So(err, cv.ShouldBeNil)
		env.InternVar("user", "greeting").MergeMeta(doc)

		env.InternVar("user", "helper").SetRoot(MakeUserFunction("helper",
			func(name string, args []Sexp) (Sexp, error) {
				return SexpNull, nil
			}))

		env.AddImport("user", "Time", GoStructRegistry.Lookup("time.Time"))
		env.SetCurrentNamespace("lib")

		skipped, err := SaveSnapshot(env, path)
		cv.So(err, cv.ShouldBeNil)
		cv.So(skipped, cv.ShouldContain, "user/helper")

		env2 := NewEnv()
		err = LoadSnapshot(env2, path)
		cv.So(err, cv.ShouldBeNil)

		cv.So(env2.CurrentNamespaceName(), cv.ShouldEqual, "lib")

		v, ok := env2.LookupVar("user", "greeting")
		cv.So(ok, cv.ShouldBeTrue)
		cv.So(v.Get().(*SexpStr).S, cv.ShouldEqual, "hello")
		meta := v.Meta()
		cv.So(meta, cv.ShouldNotBeNil)
		dv, err := meta.HashGet(env2.MakeSymbol("doc"))
		cv.So(err, cv.ShouldBeNil)
		cv.So(dv.(*SexpStr).S, cv.ShouldEqual, "says hello")

		v, ok = env2.LookupVar("user", "count")
		cv.So(ok, cv.ShouldBeTrue)
		cv.So(v.Get().(*SexpInt).Val, cv.ShouldEqual, 42)

		v, ok = env2.LookupVar("user", "nothing")
		cv.So(ok, cv.ShouldBeTrue)
		cv.So(v.Get(), cv.ShouldEqual, SexpNull)

		v, ok = env2.LookupVar("lib", "ratio")
		cv.So(ok, cv.ShouldBeTrue)
		cv.So(v.Get().(*SexpFloat).Val, cv.ShouldEqual, 0.5)

		v, ok = env2.LookupVar("lib", "cfg")
		cv.So(ok, cv.ShouldBeTrue)
		av, err := v.Get().(*SexpHash).HashGet(env2.MakeSymbol("a"))
		cv.So(err, cv.ShouldBeNil)
		cv.So(av.(*SexpInt).Val, cv.ShouldEqual, 1)

		// the function-valued var was skipped, not persisted
		_, ok = env2.LookupVar("user", "helper")
		cv.So(ok, cv.ShouldBeFalse)

		imp, ok := env2.LookupImport("user", "Time")
		cv.So(ok, cv.ShouldBeTrue)
		cv.So(imp, cv.ShouldEqual, GoStructRegistry.Lookup("time.Time"))
	})

	cv.Convey(`save refuses to overwrite, load refuses a missing file`, t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "once.snap")

		env := NewEnv()
		env.InternVar("user", "x").SetRoot(&SexpInt{Val: 1})

		_, err := SaveSnapshot(env, path)
		cv.So(err, cv.ShouldBeNil)

		_, err = SaveSnapshot(env, path)
		cv.So(err, cv.ShouldNotBeNil)
		cv.So(err.Error(), cv.ShouldContainSubstring, "refusing to write to existing file")

		err = LoadSnapshot(env, filepath.Join(dir, "absent.snap"))
		cv.So(err, cv.ShouldNotBeNil)
		cv.So(err.Error(), cv.ShouldContainSubstring, "does not exist")
	})
}

func Test111RawSnapshotRoundTrip(t *testing.T) {

	cv.Convey(`the in-memory snapshot round trips through raw msgpack bytes`, t, func() {
		env := NewEnv()
		env.InternVar("user", "xs").SetRoot(&SexpArray{Val: []Sexp{
			&SexpInt{Val: 1}, SexpNull, &SexpStr{S: "two"},
		}})
		env.InternVar("user", "blob").SetRoot(&SexpRaw{Val: []byte{7, 8, 9}})

		raw, skipped, err := SnapshotToRaw(env)
		cv.So(err, cv.ShouldBeNil)
		cv.So(len(skipped), cv.ShouldEqual, 0)
		cv.So(len(raw.Val), cv.ShouldBeGreaterThan, 0)

		env2 := NewEnv()
		cv.So(RawToSnapshot(env2, raw), cv.ShouldBeNil)

		v, ok := env2.LookupVar("user", "xs")
		cv.So(ok, cv.ShouldBeTrue)
		arr := v.Get().(*SexpArray)
		cv.So(len(arr.Val), cv.ShouldEqual, 3)
		cv.So(arr.Val[0].(*SexpInt).Val, cv.ShouldEqual, 1)
		cv.So(arr.Val[1], cv.ShouldEqual, SexpNull)
		cv.So(arr.Val[2].(*SexpStr).S, cv.ShouldEqual, "two")

		v, ok = env2.LookupVar("user", "blob")
		cv.So(ok, cv.ShouldBeTrue)
		cv.So(len(v.Get().(*SexpRaw).Val), cv.ShouldEqual, 3)
	})

	cv.Convey(`values that cannot survive the trip land in the skipped list`, t, func() {
		env := NewEnv()
		env.InternVar("user", "tag").SetRoot(env.MakeSymbol("blue"))
		env.InternVar("user", "ch").SetRoot(&SexpChar{Val: 'A'})
		env.InternVar("user", "ok").SetRoot(&SexpBool{Val: true})
		env.AddImport("user", "Calc", &SexpStr{S: "jt.Calc"})

		// declared but never bound: not part of the snapshot either way
		env.InternVar("user", "someday")

		raw, skipped, err := SnapshotToRaw(env)
		cv.So(err, cv.ShouldBeNil)
		cv.So(skipped, cv.ShouldContain, "user/tag")
		cv.So(skipped, cv.ShouldContain, "user/ch")
		cv.So(skipped, cv.ShouldContain, "user import Calc")

		env2 := NewEnv()
		cv.So(RawToSnapshot(env2, raw), cv.ShouldBeNil)

		_, ok := env2.LookupVar("user", "tag")
		cv.So(ok, cv.ShouldBeFalse)
		_, ok = env2.LookupVar("user", "someday")
		cv.So(ok, cv.ShouldBeFalse)

		v, ok := env2.LookupVar("user", "ok")
		cv.So(ok, cv.ShouldBeTrue)
		cv.So(v.Get().(*SexpBool).Val, cv.ShouldBeTrue)
	})
}
