package clove

import (
	"testing"

	cv "github.com/glycerine/goconvey/convey"
)

type gadget080 struct {
	Label string
}

func Test080RegistryLookupAndInstanceOf(t *testing.T) {

	cv.Convey(`builtin types resolve by name and recognize their values`, t, func() {
		cv.So(GoStructRegistry.Lookup("int64"), cv.ShouldEqual, Int64RT)
		cv.So(GoStructRegistry.Lookup("string"), cv.ShouldEqual, StringRT)
		cv.So(GoStructRegistry.Lookup("no-such-type"), cv.ShouldBeNil)

		cv.So(Int64RT.InstanceOf(&SexpInt{Val: 5}), cv.ShouldBeTrue)
		cv.So(Int64RT.InstanceOf(&SexpStr{S: "5"}), cv.ShouldBeFalse)
		cv.So(StringRT.InstanceOf(&SexpStr{S: "hi"}), cv.ShouldBeTrue)
		cv.So(FuncRT.InstanceOf(MakeUserFunction("f", func(name string, args []Sexp) (Sexp, error) {
			return SexpNull, nil
		})), cv.ShouldBeTrue)
		cv.So(ErrorRT.InstanceOf(&SexpError{}), cv.ShouldBeTrue)
	})

	cv.Convey(`the any type matches every value`, t, func() {
		env := NewEnv()
		cv.So(AnyRT.InstanceOf(SexpNull), cv.ShouldBeTrue)
		cv.So(AnyRT.InstanceOf(&SexpInt{Val: 0}), cv.ShouldBeTrue)
		cv.So(AnyRT.InstanceOf(&SexpBool{Val: false}), cv.ShouldBeTrue)
		cv.So(AnyRT.InstanceOf(env.MakeSymbol("sym")), cv.ShouldBeTrue)
		cv.So(GoStructRegistry.Lookup("any"), cv.ShouldEqual, AnyRT)
	})

	cv.Convey(`type values compare by identity`, t, func() {
		res, err := Compare(Int64RT, Int64RT)
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, 0)

		res, err = Compare(Int64RT, StringRT)
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldNotEqual, 0)
	})
}

func Test081RecordsAndProtocols(t *testing.T) {

	cv.Convey(`record instances belong to their record type, not to plain hash`, t, func() {
		env := NewEnv()
		point := RegisterRecord("point081", "x", "y")
		inst, err := buildRecordInstance(env, point, []Sexp{&SexpInt{Val: 1}, &SexpInt{Val: 2}})
		cv.So(err, cv.ShouldBeNil)

		cv.So(point.InstanceOf(inst), cv.ShouldBeTrue)
		cv.So(HashRT.InstanceOf(inst), cv.ShouldBeFalse)

		plain, err := MakeHash([]Sexp{&SexpStr{S: "k"}, &SexpInt{Val: 9}}, "hash")
		cv.So(err, cv.ShouldBeNil)
		cv.So(HashRT.InstanceOf(plain), cv.ShouldBeTrue)
		cv.So(point.InstanceOf(plain), cv.ShouldBeFalse)
	})

	cv.Convey(`protocols match a record only after Implement links them`, t, func() {
		env := NewEnv()
		records := NewRecordRegistry()
		shape := records.DefineProtocol("shape081")
		circle := records.Define("circle081", "radius")

		inst, err := buildRecordInstance(env, circle, []Sexp{&SexpFloat{Val: 2.0}})
		cv.So(err, cv.ShouldBeNil)
		cv.So(shape.InstanceOf(inst), cv.ShouldBeFalse)

		records.Implement(shape, circle)
		cv.So(shape.InstanceOf(inst), cv.ShouldBeTrue)
		cv.So(circle.InstanceOf(inst), cv.ShouldBeTrue)
	})

	cv.Convey(`the record resolver finds types by qualified and short name`, t, func() {
		records := NewRecordRegistry()
		rt := records.Define("geo081.Segment", "a", "b")

		got, ok := records.ResolveRecordOrProtocol(nil, "geo081", "Segment")
		cv.So(ok, cv.ShouldBeTrue)
		cv.So(got, cv.ShouldEqual, rt)

		got, ok = records.ResolveRecordOrProtocol(nil, "", "Segment")
		cv.So(ok, cv.ShouldBeTrue)
		cv.So(got, cv.ShouldEqual, rt)

		_, ok = records.ResolveRecordOrProtocol(nil, "", "Missing")
		cv.So(ok, cv.ShouldBeFalse)
	})

	cv.Convey(`positional construction demands the exact field count`, t, func() {
		env := NewEnv()
		pair := RegisterRecord("pair081", "left", "right")
		_, err := buildRecordInstance(env, pair, []Sexp{&SexpInt{Val: 1}})
		cv.So(err, cv.ShouldNotBeNil)
		cv.So(err.Error(), cv.ShouldContainSubstring, "wants 2 fields, got 1 args")
	})
}

func Test082NativeTypesMatchByReflection(t *testing.T) {

	cv.Convey(`registered Go types recognize wrapped native values`, t, func() {
		rt := NewRegisteredType(func(env *Env, h *SexpHash) (interface{}, error) {
			return &gadget080{}, nil
		})
		GoStructRegistry.RegisterUserdef(rt, "gadget080")

		wrapped := NewSexpReflect(&gadget080{Label: "w"})
		cv.So(rt.InstanceOf(wrapped), cv.ShouldBeTrue)

		other := NewSexpReflect(&struct{ N int }{N: 3})
		cv.So(rt.InstanceOf(other), cv.ShouldBeFalse)

		cv.So(GoStructRegistry.Lookup("gadget080"), cv.ShouldEqual, rt)
		cv.So(GoStructRegistry.Lookup("clove.gadget080"), cv.ShouldEqual, rt)
	})
}
