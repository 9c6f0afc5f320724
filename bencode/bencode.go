// Package bencode implements a zero-copy decoder for bencoded data as defined
// in BEP 3.
//
// Decoding never copies byte strings out of the input: every ByteString, and
// every Dict key, is a view into the buffer handed to Decode. The buffer must
// therefore stay alive and unmodified for as long as any decoded Value is in
// use.
package bencode

import (
	"bytes"
	"sort"
)

// Kind identifies which of the four bencode types a Value holds.
type Kind uint8

// The bencode value kinds.
const (
	KindByteString Kind = iota
	KindInteger
	KindList
	KindDict
)

// String implements fmt.Stringer for Kind.
func (k Kind) String() string {
	switch k {
	case KindByteString:
		return "byte string"
	case KindInteger:
		return "integer"
	case KindList:
		return "list"
	case KindDict:
		return "dictionary"
	default:
		return "unknown"
	}
}

// Value is a decoded bencode value. It is implemented by ByteString, Integer,
// List and Dict only.
type Value interface {
	Kind() Kind
	bencodeValue()
}

// ByteString represents a bencode byte string.
//
// It aliases the decoded input and must be treated as read-only.
type ByteString []byte

// Integer represents a bencode integer.
type Integer int64

// List represents a bencode list.
type List []Value

// Dict represents a bencode dictionary.
//
// Keys alias the decoded input the same way ByteString does.
type Dict map[string]Value

func (ByteString) bencodeValue() {}
func (Integer) bencodeValue()    {}
func (List) bencodeValue()       {}
func (Dict) bencodeValue()       {}

// Kind returns KindByteString.
func (ByteString) Kind() Kind { return KindByteString }

// Kind returns KindInteger.
func (Integer) Kind() Kind { return KindInteger }

// Kind returns KindList.
func (List) Kind() Kind { return KindList }

// Kind returns KindDict.
func (Dict) Kind() Kind { return KindDict }

// String returns a copy of the byte string as a Go string.
func (b ByteString) String() string {
	return string(b)
}

// Get returns the value stored under key.
func (d Dict) Get(key string) (Value, bool) {
	v, ok := d[key]
	return v, ok
}

// ByteString returns the value stored under key if it is a ByteString.
func (d Dict) ByteString(key string) (ByteString, bool) {
	v, ok := d[key].(ByteString)
	return v, ok
}

// Integer returns the value stored under key if it is an Integer.
func (d Dict) Integer(key string) (Integer, bool) {
	v, ok := d[key].(Integer)
	return v, ok
}

// List returns the value stored under key if it is a List.
func (d Dict) List(key string) (List, bool) {
	v, ok := d[key].(List)
	return v, ok
}

// Dict returns the value stored under key if it is a Dict.
func (d Dict) Dict(key string) (Dict, bool) {
	v, ok := d[key].(Dict)
	return v, ok
}

// Keys returns the keys of d sorted by their raw byte values.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KindOf returns the kind of v. It reports false for a nil Value.
func KindOf(v Value) (Kind, bool) {
	if v == nil {
		return 0, false
	}
	return v.Kind(), true
}

// Depth returns the number of nested containers on the deepest path of v.
// Scalars have depth 0 and an empty list has depth 1.
func Depth(v Value) int {
	type entry struct {
		v     Value
		depth int
	}

	var max int
	stack := []entry{{v, 0}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch tv := e.v.(type) {
		case List:
			if e.depth+1 > max {
				max = e.depth + 1
			}
			for _, item := range tv {
				stack = append(stack, entry{item, e.depth + 1})
			}
		case Dict:
			if e.depth+1 > max {
				max = e.depth + 1
			}
			for _, item := range tv {
				stack = append(stack, entry{item, e.depth + 1})
			}
		}
	}
	return max
}

// Equal reports whether a and b are structurally identical trees.
func Equal(a, b Value) bool {
	type pair struct{ a, b Value }

	stack := []pair{{a, b}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch av := p.a.(type) {
		case ByteString:
			bv, ok := p.b.(ByteString)
			if !ok || !bytes.Equal(av, bv) {
				return false
			}
		case Integer:
			bv, ok := p.b.(Integer)
			if !ok || av != bv {
				return false
			}
		case List:
			bv, ok := p.b.(List)
			if !ok || len(av) != len(bv) {
				return false
			}
			for i := range av {
				stack = append(stack, pair{av[i], bv[i]})
			}
		case Dict:
			bv, ok := p.b.(Dict)
			if !ok || len(av) != len(bv) {
				return false
			}
			for k, v := range av {
				w, ok := bv[k]
				if !ok {
					return false
				}
				stack = append(stack, pair{v, w})
			}
		default:
			if p.a != nil || p.b != nil {
				return false
			}
		}
	}
	return true
}
