// Package render converts decoded bencode values into plain Go values and
// writes them as JSON or YAML.
package render

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	yaml "gopkg.in/yaml.v2"

	"github.com/chihaya/bdecode/bencode"
)

// hexKeyPrefix marks dictionary keys that are rendered as hex digits.
const hexKeyPrefix = "hex:"

// MaxDepth is the deepest nesting of lists and dictionaries that is
// rendered. Decoding has no such limit.
const MaxDepth = 1024

// ErrTooDeep is returned for values nested deeper than MaxDepth.
var ErrTooDeep = errors.New("render: value nested too deeply")

// Tree converts v into a tree of strings, int64s, slices and maps.
//
// Byte strings holding printable UTF-8 become strings; any other byte string
// becomes a map with a single "hex" entry. Dictionary keys that are not
// printable, or that begin with "hex:" themselves, are rendered as "hex:"
// followed by their hex digits.
func Tree(v bencode.Value) (interface{}, error) {
	if bencode.Depth(v) > MaxDepth {
		return nil, ErrTooDeep
	}
	return tree(v), nil
}

func tree(v bencode.Value) interface{} {
	switch v := v.(type) {
	case bencode.ByteString:
		if printable(v) {
			return string(v)
		}
		return map[string]interface{}{"hex": hex.EncodeToString(v)}
	case bencode.Integer:
		return int64(v)
	case bencode.List:
		items := make([]interface{}, len(v))
		for i, item := range v {
			items[i] = tree(item)
		}
		return items
	case bencode.Dict:
		entries := make(map[string]interface{}, len(v))
		for k, item := range v {
			if !printable([]byte(k)) || strings.HasPrefix(k, hexKeyPrefix) {
				k = hexKeyPrefix + hex.EncodeToString([]byte(k))
			}
			entries[k] = tree(item)
		}
		return entries
	default:
		return nil
	}
}

// Trees converts every value in vs.
func Trees(vs []bencode.Value) ([]interface{}, error) {
	trees := make([]interface{}, len(vs))
	for i, v := range vs {
		t, err := Tree(v)
		if err != nil {
			return nil, err
		}
		trees[i] = t
	}
	return trees, nil
}

// JSON writes vs to w as an indented JSON array.
func JSON(w io.Writer, vs []bencode.Value) error {
	trees, err := Trees(vs)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(trees)
}

// YAML writes vs to w as a YAML sequence.
func YAML(w io.Writer, vs []bencode.Value) error {
	trees, err := Trees(vs)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(trees)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if !unicode.IsPrint(r) && r != '\n' && r != '\t' && r != '\r' {
			return false
		}
		b = b[size:]
	}
	return true
}
