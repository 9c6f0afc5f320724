package bencode

import (
	"errors"
	"fmt"
	"strconv"
	"unsafe"
)

// ErrNotSingleValue is returned by DecodeSingle when the input does not hold
// exactly one top-level value.
var ErrNotSingleValue = errors.New("bencode: expected exactly one top-level value")

// A rule attempts to decode one scalar value of a single kind at buf[off:].
// On success it returns the value and the offset just past it.
type rule func(buf []byte, off int) (Value, int, *Error)

// scalarRules is the order in which a value position that does not open a
// container is tried.
var scalarRules = []rule{
	decodeByteString,
	decodeInteger,
}

// Decode decodes every top-level value in buf.
//
// Decoding stops at the first position where no value can be recognized;
// buf must be fully consumed at that point or the whole decode fails. An
// empty buf yields an empty slice.
func Decode(buf []byte) ([]Value, error) {
	values := make([]Value, 0, 1)
	off := 0
	for off < len(buf) {
		v, next, err := decodeValue(buf, off)
		if err != nil {
			// Whether fatal or not, a value that cannot be decoded at
			// off leaves unconsumed input behind.
			return nil, atCursor(err, off)
		}
		values = append(values, v)
		off = next
	}
	return values, nil
}

// DecodeSingle decodes buf and requires it to hold exactly one top-level
// value.
func DecodeSingle(buf []byte) (Value, error) {
	values, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: found %d", ErrNotSingleValue, len(values))
	}
	return values[0], nil
}

// DecodeValue decodes exactly one value starting at buf[off] and returns it
// together with the offset of the first byte after it.
func DecodeValue(buf []byte, off int) (Value, int, error) {
	if off < 0 || off > len(buf) {
		return nil, off, mismatch(off, "offset outside of input")
	}
	v, next, err := decodeValue(buf, off)
	if err != nil {
		return nil, off, atCursor(err, off)
	}
	return v, next, nil
}

// atCursor reports a structural mismatch at the offset of the value that
// failed to decode. The position of the missing token is kept in the reason.
// Fatal errors keep their own offset.
func atCursor(err *Error, off int) *Error {
	if err.Fatal() || err.Offset == off {
		return err
	}
	return mismatch(off, fmt.Sprintf("%s at offset %d", err.Reason, err.Offset))
}

// A frame is an open list or dictionary. Its items live on the shared value
// and key stacks from the recorded indexes up.
type frame struct {
	dict   bool
	values int
	keys   int
}

// decodeValue decodes one value at off. Lists and dictionaries are tracked
// on an explicit stack, so nesting depth is bounded by memory only.
//
// A fatal error is returned as soon as it occurs. Otherwise the first
// mismatch of the value position that failed is returned.
func decodeValue(buf []byte, off int) (Value, int, *Error) {
	var (
		frames []frame
		values []Value
		keys   []string
	)

	pos := off
	for {
		if n := len(frames); n > 0 {
			f := frames[n-1]
			pendingKey := f.dict && len(keys)-f.keys > len(values)-f.values
			if !pendingKey {
				if hasByte(buf, pos, 'e') {
					v := closeFrame(f, keys, values)
					clear(values[f.values:])
					values = values[:f.values]
					keys = keys[:f.keys]
					frames = frames[:n-1]
					pos++

					if len(frames) == 0 {
						return v, pos, nil
					}
					values = append(values, v)
					continue
				}

				if f.dict {
					k, next, err := decodeByteString(buf, pos)
					if err != nil {
						return nil, off, err
					}
					keys = append(keys, keyString(k.(ByteString)))
					pos = next
				}
			}
		}

		switch {
		case hasByte(buf, pos, 'l'):
			frames = append(frames, frame{values: len(values), keys: len(keys)})
			pos++
			continue
		case hasByte(buf, pos, 'd'):
			frames = append(frames, frame{dict: true, values: len(values), keys: len(keys)})
			pos++
			continue
		}

		v, next, err := decodeScalar(buf, pos)
		if err != nil {
			return nil, off, err
		}
		pos = next

		if len(frames) == 0 {
			return v, pos, nil
		}
		values = append(values, v)
	}
}

// closeFrame builds the container f from its items.
func closeFrame(f frame, keys []string, values []Value) Value {
	items := values[f.values:]
	if !f.dict {
		list := make(List, len(items))
		copy(list, items)
		return list
	}

	dict := make(Dict, len(items))
	for i, k := range keys[f.keys:] {
		dict[k] = items[i]
	}
	return dict
}

// decodeScalar tries every rule in scalarRules at off. A fatal error is
// returned as soon as it occurs; if every rule mismatches, the first
// mismatch is returned.
func decodeScalar(buf []byte, off int) (Value, int, *Error) {
	var first *Error
	for _, r := range scalarRules {
		v, next, err := r(buf, off)
		if err == nil {
			return v, next, nil
		}
		if err.Fatal() {
			return nil, off, err
		}
		if first == nil {
			first = err
		}
	}
	return nil, off, first
}

func decodeInteger(buf []byte, off int) (Value, int, *Error) {
	if !hasByte(buf, off, 'i') {
		return nil, off, mismatch(off, "expected 'i'")
	}

	start := off + 1
	pos := start
	if pos < len(buf) && (buf[pos] == '-' || buf[pos] == '+') {
		pos++
	}
	end := scanDigits(buf, pos)
	if end == pos {
		return nil, off, mismatch(pos, "expected digit")
	}
	if !hasByte(buf, end, 'e') {
		return nil, off, mismatch(end, "expected 'e'")
	}

	text := buf[start:end]
	if !canonicalInteger(text) {
		return nil, off, failure(InvalidInteger, off, text, "negative zero or leading zero")
	}

	n, err := strconv.ParseInt(string(text), 10, 64)
	if err != nil {
		return nil, off, failure(IntegerOverflow, off, text, "value out of int64 range")
	}

	return Integer(n), end + 1, nil
}

// canonicalInteger reports whether a signed digit run neither begins with
// "-0" nor begins with "0" followed by more digits. A "+" sign is not
// checked further.
func canonicalInteger(text []byte) bool {
	if text[0] == '-' {
		return text[1] != '0'
	}
	return text[0] != '0' || len(text) == 1
}

func decodeByteString(buf []byte, off int) (Value, int, *Error) {
	end := scanDigits(buf, off)
	if end == off {
		return nil, off, mismatch(off, "expected length digit")
	}
	if !hasByte(buf, end, ':') {
		return nil, off, mismatch(end, "expected ':'")
	}

	digits := buf[off:end]
	n, err := strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		return nil, off, failure(IntegerOverflow, off, digits, "length out of range")
	}
	if n == 0 {
		return nil, off, failure(InvalidByteStringLength, off, digits, "zero length")
	}

	start := end + 1
	if n > uint64(len(buf)-start) {
		return nil, off, mismatch(len(buf), "byte string truncated")
	}
	stop := start + int(n)

	// Cap the view so appending to it can never write into the input.
	return ByteString(buf[start:stop:stop]), stop, nil
}

// keyString returns a string sharing memory with b. b is never empty.
func keyString(b ByteString) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

func hasByte(buf []byte, off int, c byte) bool {
	return off < len(buf) && buf[off] == c
}

func scanDigits(buf []byte, off int) int {
	for off < len(buf) && buf[off] >= '0' && buf[off] <= '9' {
		off++
	}
	return off
}
