package clove

import (
	"math"
	"testing"

	cv "github.com/glycerine/goconvey/convey"
)

func Test070CompareOrdersValues(t *testing.T) {

	cv.Convey(`numbers compare across int and float; strings, chars and bools order as expected`, t, func() {
		res, err := Compare(&SexpInt{Val: 3}, &SexpInt{Val: 7})
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, -1)

		res, err = Compare(&SexpInt{Val: 3}, &SexpFloat{Val: 3.0})
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, 0)

		res, err = Compare(&SexpFloat{Val: 2.5}, &SexpInt{Val: 2})
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, 1)

		res, err = Compare(&SexpStr{S: "apple"}, &SexpStr{S: "banana"})
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, -1)

		res, err = Compare(&SexpChar{Val: 'a'}, &SexpChar{Val: 'a'})
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, 0)

		res, err = Compare(&SexpBool{Val: true}, &SexpBool{Val: false})
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, 1)
	})

	cv.Convey(`NaN is unequal to everything, itself included`, t, func() {
		nan := &SexpFloat{Val: math.NaN()}
		res, err := Compare(nan, nan)
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldNotEqual, 0)

		res, err = Compare(nan, &SexpFloat{Val: 1.0})
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldNotEqual, 0)
	})

	cv.Convey(`lists and arrays compare elementwise, then by length`, t, func() {
		a := MakeList([]Sexp{&SexpInt{Val: 1}, &SexpInt{Val: 2}})
		b := MakeList([]Sexp{&SexpInt{Val: 1}, &SexpInt{Val: 2}})
		c := MakeList([]Sexp{&SexpInt{Val: 1}, &SexpInt{Val: 3}})

		res, err := Compare(a, b)
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, 0)

		res, err = Compare(a, c)
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, -1)

		short := &SexpArray{Val: []Sexp{&SexpInt{Val: 1}}}
		long := &SexpArray{Val: []Sexp{&SexpInt{Val: 1}, &SexpInt{Val: 2}}}
		res, err = Compare(short, long)
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, -1)
	})

	cv.Convey(`symbols compare by interned identity`, t, func() {
		env := NewEnv()
		a := env.MakeSymbol("aaa")
		b := env.MakeSymbol("bbb")

		res, err := Compare(a, env.MakeSymbol("aaa"))
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, 0)

		res, err = Compare(a, b)
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldNotEqual, 0)
	})

	cv.Convey(`sentinels equal only themselves; incomparable kinds report an error`, t, func() {
		res, err := Compare(SexpNull, SexpNull)
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, 0)

		res, err = Compare(SexpNull, &SexpInt{Val: 0})
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldNotEqual, 0)

		_, err = Compare(&SexpStr{S: "x"}, &SexpInt{Val: 1})
		cv.So(err, cv.ShouldNotBeNil)
		cv.So(err.Error(), cv.ShouldContainSubstring, "cannot compare")
	})

	cv.Convey(`ints compare against reflected go integers coming back from host calls`, t, func() {
		res, err := Compare(&SexpInt{Val: 5}, NewSexpReflect(int64(5)))
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, 0)

		res, err = Compare(&SexpInt{Val: 5}, NewSexpReflect(int(3)))
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, 1)

		seven := int64(7)
		res, err = Compare(&SexpInt{Val: 5}, NewSexpReflect(&seven))
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, -1)
	})

	cv.Convey(`var cells compare by identity`, t, func() {
		env := NewEnv()
		v1 := env.InternVar("user", "cv1")
		v2 := env.InternVar("user", "cv2")

		res, err := Compare(v1, v1)
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldEqual, 0)

		res, err = Compare(v1, v2)
		cv.So(err, cv.ShouldBeNil)
		cv.So(res, cv.ShouldNotEqual, 0)
	})
}
