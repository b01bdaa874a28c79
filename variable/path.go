package variable

import (
	"reflect"
	"strconv"
	"strings"
)

// Lookup returns the value at path within root, or nil if any segment is
// missing.
//
// Segments are separated by '.', and may also be given in brackets:
// a[0] indexes a slice and a["k.j"] selects a key containing dots.
// Maps with string keys, slices, arrays and structs (by exported field name
// or json tag) are traversed. A path that is itself a key of root is looked
// up directly.
func Lookup(root any, path string) any {
	if m, ok := root.(ResolveDictionary); ok {
		if v, ok := m[path]; ok {
			return v
		}
	} else if m, ok := root.(map[string]any); ok {
		if v, ok := m[path]; ok {
			return v
		}
	}

	cur := reflect.ValueOf(root)

	for _, seg := range splitPath(path) {
		next, ok := step(cur, seg)
		if !ok {
			return nil
		}

		cur = next
	}

	if !cur.IsValid() || !cur.CanInterface() {
		return nil
	}

	return cur.Interface()
}

// step descends from v into its member named key.
func step(v reflect.Value, key string) (reflect.Value, bool) {
	v = indirect(v)
	if !v.IsValid() {
		return reflect.Value{}, false
	}

	switch v.Kind() {
	case reflect.Map:
		kt := v.Type().Key()
		if kt.Kind() != reflect.String {
			return reflect.Value{}, false
		}

		e := v.MapIndex(reflect.ValueOf(key).Convert(kt))
		if !e.IsValid() {
			return reflect.Value{}, false
		}

		return e, !isNil(e)

	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= v.Len() {
			return reflect.Value{}, false
		}

		e := v.Index(i)

		return e, !isNil(e)

	case reflect.Struct:
		return field(v, key)

	default:
		return reflect.Value{}, false
	}
}

// field returns the exported field of struct v named key, matching either
// the Go field name or the name in its json tag.
func field(v reflect.Value, key string) (reflect.Value, bool) {
	t := v.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			if n, _, _ := strings.Cut(tag, ","); n != "" && n != "-" {
				name = n
			}
		}

		if name == key || f.Name == key {
			e := v.Field(i)

			return e, !isNil(e)
		}
	}

	return reflect.Value{}, false
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() &&
		(v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}

		v = v.Elem()
	}

	return v
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan:
		return v.IsNil()

	default:
		return false
	}
}

// splitPath splits a property path into its segments.
func splitPath(path string) []string {
	var (
		segs []string
		sb   strings.Builder
	)

	// closed is set after a bracket segment so that a following '.' does not
	// produce an empty segment.
	closed := false

	for i := 0; i < len(path); i++ {
		c := path[i]

		switch c {
		case '.':
			if !closed {
				segs = append(segs, sb.String())
			}

			sb.Reset()

			closed = false

		case '[':
			if sb.Len() > 0 || (!closed && i > 0 && path[i-1] != '.') {
				segs = append(segs, sb.String())
				sb.Reset()
			}

			seg, n := bracket(path[i+1:])
			segs = append(segs, seg)
			i += n
			closed = true

		default:
			sb.WriteByte(c)

			closed = false
		}
	}

	if !closed || sb.Len() > 0 {
		segs = append(segs, sb.String())
	}

	return segs
}

// bracket parses the contents of a bracketed segment from s, which begins
// just after the '['. It returns the segment and the number of bytes
// consumed, including the closing ']'.
func bracket(s string) (string, int) {
	if len(s) > 0 && (s[0] == '"' || s[0] == '\'') {
		quote := s[0]

		var sb strings.Builder

		for i := 1; i < len(s); i++ {
			switch s[i] {
			case '\\':
				if i+1 < len(s) {
					i++
					sb.WriteByte(s[i])
				}

			case quote:
				n := i + 1
				if n < len(s) && s[n] == ']' {
					n++
				}

				return sb.String(), n

			default:
				sb.WriteByte(s[i])
			}
		}

		return sb.String(), len(s)
	}

	if end := strings.IndexByte(s, ']'); end >= 0 {
		return strings.TrimSpace(s[:end]), end + 1
	}

	return s, len(s)
}
