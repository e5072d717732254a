package clove

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
)

// HashExpression hashes a key value to a bucket number. Keys must be
// constants: integers, chars, symbols, strings, bools, floats, the
// nil sentinel, raw bytes, or arrays of those.
func HashExpression(expr Sexp) (int, error) {
	hashcode, err := hashHelper(expr)
	if err != nil {
		return 0, err
	}
	return hashcode, nil
}

func hashHelper(expr Sexp) (hashcode int, err error) {
	switch e := expr.(type) {
	case *SexpInt:
		return int(e.Val), nil
	case *SexpChar:
		return int(e.Val), nil
	case *SexpSymbol:
		return e.number, nil
	case *SexpStr:
		hasher := fnv.New32()
		_, err := hasher.Write([]byte(e.S))
		if err != nil {
			return 0, err
		}
		return int(hasher.Sum32()), nil
	case *SexpBool:
		if e.Val {
			return 1, nil
		}
		return 0, nil
	case *SexpFloat:
		return int(math.Float64bits(e.Val)), nil
	case *SexpSentinel:
		return e.Val, nil
	case *SexpRaw:
		return int(Blake2bUint64(e.Val)), nil
	case *SexpArray:
		return int(Blake2bUint64([]byte(e.SexpString(nil)))), nil
	}
	return 0, fmt.Errorf("cannot hash type %T", expr)
}

// SexpHash is a bucketed hash table. Equal hash codes land in the
// same bucket; Compare disambiguates collisions. KeyOrder remembers
// insertion order for display and codec round trips.
type SexpHash struct {
	TypeName string
	Map      map[int][]*SexpPair
	KeyOrder []Sexp
	NumKeys  int
	meta     *NodeMeta
}

func NewHash() *SexpHash {
	return &SexpHash{
		TypeName: "hash",
		Map:      make(map[int][]*SexpPair),
		KeyOrder: []Sexp{},
	}
}

func MakeHash(args []Sexp, typename string) (*SexpHash, error) {
	//Q("MakeHash called with typename: '%s'", typename)
	if len(args)%2 != 0 {
		return NewHash(),
			errors.New("hash requires even number of arguments")
	}

	hash := &SexpHash{
		TypeName: typename,
		Map:      make(map[int][]*SexpPair),
		KeyOrder: []Sexp{},
	}

	for i := 0; i < len(args); i += 2 {
		key := args[i]
		val := args[i+1]
		err := hash.HashSet(key, val)
		if err != nil {
			return hash, err
		}
	}

	if rt := GoStructRegistry.Lookup(typename); rt != nil && rt.IsRecord {
		m := hash.meta.Clone()
		if m == nil {
			m = &NodeMeta{}
		}
		m.Record = rt
		hash.meta = m
	}

	return hash, nil
}

func (hash *SexpHash) HashGet(key Sexp) (Sexp, error) {
	// this is kind of a hack
	// SexpEnd can't be created by user
	// so there is no way it would actually show up in the map
	val, err := hash.HashGetDefault(key, SexpEnd)

	if err != nil {
		return SexpNull, err
	}

	if val == SexpEnd {
		return SexpNull, fmt.Errorf("%s has no field '%s' [err 1]", hash.TypeName, key.SexpString(nil))
	}
	return val, nil
}

func (hash *SexpHash) HashGetDefault(key Sexp, defaultval Sexp) (Sexp, error) {
	hashval, err := HashExpression(key)
	if err != nil {
		return SexpNull, err
	}
	//P("HashGetDefault, hashval='%#v', key='%s'", hashval, key.SexpString(nil))
	arr, ok := hash.Map[hashval]
	if !ok {
		return defaultval, nil
	}

	for _, pair := range arr {
		res, err := Compare(pair.Head, key)
		if err == nil && res == 0 {
			return pair.Tail, nil
		}
	}
	return defaultval, nil
}

func (hash *SexpHash) HashSet(key Sexp, val Sexp) error {
	//vv("in HashSet, key='%v' val='%v'", key.SexpString(nil), val.SexpString(nil))
	hashval, err := HashExpression(key)
	if err != nil {
		return err
	}
	arr, ok := hash.Map[hashval]

	if !ok {
		hash.Map[hashval] = []*SexpPair{Cons(key, val)}
		hash.KeyOrder = append(hash.KeyOrder, key)
		hash.NumKeys++
		Q("in HashSet, added key to KeyOrder: '%v'", key)
		return nil
	}

	found := false
	for i, pair := range arr {
		res, err := Compare(pair.Head, key)
		if err == nil && res == 0 {
			arr[i] = Cons(key, val)
			found = true
			break
		}
	}

	if !found {
		arr = append(arr, Cons(key, val))
		hash.KeyOrder = append(hash.KeyOrder, key)
		hash.NumKeys++
		Q("in HashSet, bucket %v collision, appended key '%v'", hashval, key)
	}

	hash.Map[hashval] = arr
	return nil
}

func SetHashKeyOrder(hash *SexpHash, keyOrd Sexp) error {
	// truncate down to zero, then build back up correctly.
	hash.KeyOrder = hash.KeyOrder[:0]

	keys, isArr := keyOrd.(*SexpArray)
	if !isArr {
		return fmt.Errorf("must have SexpArray for keyOrd, but instead we have: %T with value='%#v'", keyOrd, keyOrd)
	}
	for _, key := range keys.Val {
		hash.KeyOrder = append(hash.KeyOrder, key)
	}

	return nil
}

func (hash *SexpHash) HashDelete(key Sexp) error {
	hashval, err := HashExpression(key)
	if err != nil {
		return err
	}
	arr, ok := hash.Map[hashval]

	// if it doesn't exist, no need to delete it
	if !ok {
		return nil
	}
	Q("HashDelete, key '%v' hashed to occupied bucket %v", key, hashval)

	for i, pair := range arr {
		res, err := Compare(pair.Head, key)
		if err == nil && res == 0 {
			hash.Map[hashval] = append(arr[0:i], arr[i+1:]...)
			hash.NumKeys--
			break
		}
	}

	return nil
}

func (hash *SexpHash) SexpString(ps *PrintState) string {
	str := " (" + hash.TypeName + " "

	displayHashInCurly := false
	if hash.TypeName == "hash" {
		displayHashInCurly = true
		str = "{"
	}

	for _, key := range hash.KeyOrder {
		val, err := hash.HashGet(key)
		if err == nil {
			switch s := key.(type) {
			case *SexpStr:
				str += `"` + s.S + `":`
			case *SexpSymbol:
				str += s.name + ":"
			default:
				str += key.SexpString(ps) + ":"
			}
			str += val.SexpString(ps) + " "
		} else {
			// ignore deleted keys
		}
	}
	if displayHashInCurly {
		if len(str) > 1 {
			return str[:len(str)-1] + "}"
		}
		return str + "}"
	}
	if len(str) > 1 {
		return str[:len(str)-1] + ")"
	}
	return str + ")"
}

func (hash *SexpHash) Type() *RegisteredType {
	rt := GoStructRegistry.Lookup(hash.TypeName)
	if rt != nil {
		return rt
	}
	return HashRT
}

func (hash *SexpHash) NodeMeta() *NodeMeta {
	return hash.meta
}

func (hash *SexpHash) WithNodeMeta(m *NodeMeta) Sexp {
	cp := *hash
	cp.meta = m
	return &cp
}

// RecordType reports the registered record this hash is an instance
// of, or nil for a plain hash.
func (hash *SexpHash) RecordType() *RegisteredType {
	if hash.meta == nil {
		return nil
	}
	return hash.meta.Record
}

// CopyHash returns a new hash with the same pairs, order and type.
// The copy shares no buckets with the original, so writing to one
// never disturbs the other.
func (hash *SexpHash) CopyHash() (*SexpHash, error) {
	cp := &SexpHash{
		TypeName: hash.TypeName,
		Map:      make(map[int][]*SexpPair),
		KeyOrder: []Sexp{},
		meta:     hash.meta.Clone(),
	}
	for _, key := range hash.KeyOrder {
		val, err := hash.HashGet(key)
		if err != nil {
			// deleted key, skip it.
			continue
		}
		err = cp.HashSet(key, val)
		if err != nil {
			return nil, err
		}
	}
	return cp, nil
}

func compareHash(a *SexpHash, bs Sexp) (int, error) {
	var b *SexpHash
	switch bt := bs.(type) {
	case *SexpHash:
		b = bt
	default:
		return 0, fmt.Errorf("cannot compare %T to %T", a, bs)
	}

	if a.TypeName != b.TypeName {
		return 1, nil
	}

	return 0, nil
}
