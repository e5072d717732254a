package clove

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"

	"github.com/shurcooL/go-goon"
	"github.com/ugorji/go/codec"
)

// TypeCheckable values verify themselves after conversion from the
// interpreter side.
type TypeCheckable interface {
	TypeCheck() error
}

/*
 Conversion map

 Go map[string]interface{}  <--(1)--> interpreter values
   ^                                  ^ |
   |                                 /  |
  (2)   ------------ (4) -----------/  (5)
   |   /                                |
   V  V                                 V
 msgpack <--(3)--> go struct, strongly typed

(1) SexpToGo() / GoToSexp()
(2) ugorji/go/codec: MsgpackToGo()/JsonToGo(), GoToMsgpack()/GoToJson()
(3) tinylib/msgp and ugorji/go/codec, decoding into registered structs
(4) SexpToMsgpack()/SexpToJson() and MsgpackToSexp()/JsonToSexp()
(5) the registered-type factories in typereg.go
*/

// CodecFunction backs json/unjson/msgpack/unmsgpack builtins for
// hosts that expose them.
func CodecFunction(ctx *Context, name string, args []Sexp) (Sexp, error) {
	if len(args) != 1 {
		return SexpNull, WrongNargs
	}

	switch name {
	case "json":
		str := SexpToJson(args[0])
		return &SexpRaw{Val: []byte(str)}, nil
	case "unjson":
		raw, isRaw := args[0].(*SexpRaw)
		if !isRaw {
			return SexpNull, fmt.Errorf("unjson error: SexpRaw required, but we got %T instead.", args[0])
		}
		return JsonToSexp([]byte(raw.Val), ctx.Env())
	case "msgpack":
		by, _ := SexpToMsgpack(args[0])
		return &SexpRaw{Val: []byte(by)}, nil
	case "unmsgpack":
		raw, isRaw := args[0].(*SexpRaw)
		if !isRaw {
			return SexpNull, fmt.Errorf("unmsgpack error: SexpRaw required, but we got %T instead.", args[0])
		}
		return MsgpackToSexp([]byte(raw.Val), ctx.Env())
	default:
		return SexpNull, fmt.Errorf("CodecFunction error: unrecognized function name: '%s'", name)
	}
}

// DumpFunction prints a value's full Go structure, for inspecting
// codec round trips.
func DumpFunction(name string, args []Sexp) (Sexp, error) {
	if len(args) != 1 {
		return SexpNull, WrongNargs
	}
	fmt.Printf("\n")
	goon.Dump(args[0])
	return SexpNull, nil
}

// json -> sexp. env is needed to handle symbols correctly
func JsonToSexp(json []byte, env *Env) (Sexp, error) {
	iface, err := JsonToGo(json)
	if err != nil {
		return nil, err
	}
	return GoToSexp(iface, env)
}

// sexp -> json
func SexpToJson(exp Sexp) string {
	switch e := exp.(type) {
	case *SexpHash:
		return e.jsonHashHelper()
	case *SexpArray:
		return e.jsonArrayHelper()
	case *SexpSymbol:
		return `"` + e.name + `"`
	default:
		return exp.SexpString(nil)
	}
}

func (hash *SexpHash) jsonHashHelper() string {
	str := fmt.Sprintf(`{"Atype":"%s", `, hash.TypeName)

	ko := []string{}
	n := len(hash.KeyOrder)
	if n == 0 {
		return str[:len(str)-2] + "}"
	}

	for _, key := range hash.KeyOrder {
		keyst := key.SexpString(nil)
		ko = append(ko, keyst)
		val, err := hash.HashGet(key)
		if err == nil {
			str += `"` + keyst + `":`
			str += string(SexpToJson(val)) + `, `
		} else {
			panic(err)
		}
	}

	str += `"zKeyOrder":[`
	for _, key := range ko {
		str += `"` + key + `", `
	}
	if n > 0 {
		str = str[:len(str)-2]
	}
	str += "]}"

	return str
}

func (arr *SexpArray) jsonArrayHelper() string {
	if len(arr.Val) == 0 {
		return "[]"
	}

	str := "[" + SexpToJson(arr.Val[0])
	for _, sexp := range arr.Val[1:] {
		str += ", " + SexpToJson(sexp)
	}
	return str + "]"
}

type msgpackHelper struct {
	initialized bool
	mh          codec.MsgpackHandle
	jh          codec.JsonHandle
}

func (m *msgpackHelper) init() {
	if m.initialized {
		return
	}

	m.mh.MapType = reflect.TypeOf(map[string]interface{}(nil))

	m.mh.RawToString = true
	m.mh.WriteExt = true
	m.mh.SignedInteger = true
	m.mh.Canonical = true // sort maps before writing them

	// JSON
	m.jh.MapType = reflect.TypeOf(map[string]interface{}(nil))
	m.jh.SignedInteger = true
	m.jh.Canonical = true // sort maps before writing them

	m.initialized = true
}

var msgpHelper msgpackHelper

func init() {
	msgpHelper.init()
}

// translate to sexp -> json -> go -> msgpack
// returns both the msgpack []bytes and the go intermediary
func SexpToMsgpack(exp Sexp) ([]byte, interface{}) {

	json := []byte(SexpToJson(exp))
	Q("SexpToMsgpack: json = '%s'", string(json))
	iface, err := JsonToGo(json)
	panicOn(err)
	by, err := GoToMsgpack(iface)
	panicOn(err)
	return by, iface
}

// json -> go
func JsonToGo(json []byte) (interface{}, error) {
	var iface interface{}

	decoder := codec.NewDecoderBytes(json, &msgpHelper.jh)
	err := decoder.Decode(&iface)
	if err != nil {
		return nil, err
	}
	return iface, nil
}

func GoToMsgpack(iface interface{}) ([]byte, error) {
	var w bytes.Buffer
	enc := codec.NewEncoder(&w, &msgpHelper.mh)
	err := enc.Encode(&iface)
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// go -> json
func GoToJson(iface interface{}) []byte {
	var w bytes.Buffer
	encoder := codec.NewEncoder(&w, &msgpHelper.jh)
	err := encoder.Encode(&iface)
	if err != nil {
		panic(err)
	}
	return w.Bytes()
}

// msgpack -> sexp
func MsgpackToSexp(msgp []byte, env *Env) (Sexp, error) {
	iface, err := MsgpackToGo(msgp)
	if err != nil {
		return nil, fmt.Errorf("MsgpackToSexp failed at MsgpackToGo step: '%s", err)
	}
	sexp, err := GoToSexp(iface, env)
	if err != nil {
		return nil, fmt.Errorf("MsgpackToSexp failed at GoToSexp step: '%s", err)
	}
	return sexp, nil
}

// msgpack -> go
func MsgpackToGo(msgp []byte) (interface{}, error) {
	var iface interface{}
	dec := codec.NewDecoderBytes(msgp, &msgpHelper.mh)
	err := dec.Decode(&iface)
	if err != nil {
		return nil, err
	}
	return iface, nil
}

// convert iface, which will typically be map[string]interface{},
// into an s-expression
func GoToSexp(iface interface{}, env *Env) (Sexp, error) {
	return decodeGoToSexpHelper(iface, 0, env, false), nil
}

func decodeGoToSexpHelper(r interface{}, depth int, env *Env, preferSym bool) (s Sexp) {
	Q("decodeGoToSexpHelper() at depth %d, decoded type is %T\n", depth, r)

	switch val := r.(type) {
	case string:
		Q("depth %d found string case: val = %#v\n", depth, val)
		if preferSym {
			return env.MakeSymbol(val)
		}
		return &SexpStr{S: val}

	case int:
		return &SexpInt{Val: int64(val)}

	case int32:
		return &SexpInt{Val: int64(val)}

	case int64:
		Q("depth %d found int64 case: val = %#v\n", depth, val)
		return &SexpInt{Val: val}

	case float64:
		Q("depth %d found float64 case: val = %#v\n", depth, val)
		return &SexpFloat{Val: val}

	case []interface{}:
		Q("depth %d found []interface{} case: val = %#v\n", depth, val)
		slice := []Sexp{}
		for i := range val {
			slice = append(slice, decodeGoToSexpHelper(val[i], depth+1, env, preferSym))
		}
		return &SexpArray{Val: slice}

	case map[string]interface{}:
		Q("depth %d found map[string]interface case: val = %#v\n", depth, val)
		sortedMapKey, sortedMapVal := makeSortedSlicesFromMap(val)

		pairs := make([]Sexp, 0)

		typeName := "hash"
		var keyOrd Sexp
		foundzKeyOrder := false
		for i := range sortedMapKey {
			// special field storing the name of the record type.
			if sortedMapKey[i] == "zKeyOrder" {
				keyOrd = decodeGoToSexpHelper(sortedMapVal[i], depth+1, env, true)
				foundzKeyOrder = true
			} else if sortedMapKey[i] == "Atype" {
				tn, isString := sortedMapVal[i].(string)
				if isString {
					typeName = string(tn)
				}
			} else {
				sym := env.MakeSymbol(sortedMapKey[i])
				pairs = append(pairs, sym)
				ele := decodeGoToSexpHelper(sortedMapVal[i], depth+1, env, preferSym)
				pairs = append(pairs, ele)
			}
		}
		hash, err := MakeHash(pairs, typeName)
		if foundzKeyOrder {
			err = SetHashKeyOrder(hash, keyOrd)
			panicOn(err)
		}
		panicOn(err)
		return hash

	case []byte:
		Q("depth %d found []byte case: val = %#v\n", depth, val)
		return &SexpRaw{Val: val}

	case nil:
		return SexpNull

	case bool:
		return &SexpBool{Val: val}

	case *SexpReflect:
		return decodeGoToSexpHelper(val.Val.Interface(), depth+1, env, preferSym)

	default:
		Q("unknown type in type switch, val = %#v.  type = %T.\n", val, val)
		return NewSexpReflect(val)
	}
}

//msgp:ignore mapsorter KiSlice

type mapsorter struct {
	key   string
	iface interface{}
}

type KiSlice []*mapsorter

func (a KiSlice) Len() int           { return len(a) }
func (a KiSlice) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a KiSlice) Less(i, j int) bool { return a[i].key < a[j].key }

func makeSortedSlicesFromMap(m map[string]interface{}) ([]string, []interface{}) {
	key := make([]string, len(m))
	val := make([]interface{}, len(m))
	so := make(KiSlice, 0)
	for k, i := range m {
		so = append(so, &mapsorter{key: k, iface: i})
	}
	sort.Sort(so)
	for i := range so {
		key[i] = so[i].key
		val[i] = so[i].iface
	}
	return key, val
}

// translate an Sexp to a go value that doesn't depend on any
// interpreter types. Hashes become map[string]interface{}.
//
// on first entry, dedup can be nil. We use it to write the
// same pointer for a SexpHash used in more than one place.
func SexpToGo(sexp Sexp, env *Env, dedup map[*SexpHash]interface{}) (result interface{}) {
	Q("top of SexpToGo, sexp is %T", sexp)

	cacheHit := false
	if dedup == nil {
		dedup = make(map[*SexpHash]interface{})
	}

	defer func() {
		recov := recover()
		if !cacheHit && recov == nil {
			asHash, ok := sexp.(*SexpHash)
			if ok {
				// cache it. we might be overwriting with
				// ourselves, but faster to just write again
				// than to read and compare then write.
				dedup[asHash] = result
			}
		}
		if recov != nil {
			panic(recov)
		} else {
			tc, ok := result.(TypeCheckable)
			if ok {
				err := tc.TypeCheck()
				if err != nil {
					panic(fmt.Errorf("TypeCheck() error in SexpToGo for '%T': '%v'", result, err))
				}
			}
		}
	}()

	switch e := sexp.(type) {
	case *SexpRaw:
		return []byte(e.Val)
	case *SexpArray:
		ar := make([]interface{}, len(e.Val))
		for i, ele := range e.Val {
			ar[i] = SexpToGo(ele, env, dedup)
		}
		return ar
	case *SexpInt:
		// ugorji msgpack will give us int64 not int,
		// so match that to make the decodings comparable.
		return int64(e.Val)
	case *SexpStr:
		return e.S
	case *SexpChar:
		return rune(e.Val)
	case *SexpFloat:
		return float64(e.Val)
	case *SexpHash:
		// check dedup cache to see if we already generated a Go
		// map for this *SexpHash.
		if alreadyGo, already := dedup[e]; already {
			cacheHit = true
			Q("SexpToGo dedup cache HIT for TypeName='%v'", e.TypeName)
			return alreadyGo
		}

		m := make(map[string]interface{})
		for _, arr := range e.Map {
			for _, pair := range arr {
				key := SexpToGo(pair.Head, env, dedup)
				val := SexpToGo(pair.Tail, env, dedup)
				keyString, isStringKey := key.(string)
				if !isStringKey {
					panic(fmt.Errorf("key '%v' should have been a string, but was not.", key))
				}
				m[keyString] = val
			}
		}
		m["Atype"] = e.TypeName
		ko := make([]interface{}, 0)
		for _, k := range e.KeyOrder {
			ko = append(ko, SexpToGo(k, env, dedup))
		}
		m["zKeyOrder"] = ko
		return m
	case *SexpPair:
		// no conversion
		return e
	case *SexpSymbol:
		return e.name
	case *SexpFunction:
		// no conversion done
		return e
	case *SexpSentinel:
		if e == SexpNull {
			// nil must survive the msgpack trip
			return nil
		}
		// no conversion done
		return e
	case *SexpBool:
		return e.Val
	case *SexpReflect:
		return e.Val.Interface()
	case *Var:
		return SexpToGo(e.Get(), env, dedup)
	default:
		panic(fmt.Errorf("unknown type %T in SexpToGo", e))
	}
}
