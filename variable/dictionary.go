package variable

import "slices"

// Value is a variable defined in one scope. Its reference set holds every
// [Reference] whose last evaluation used the variable.
type Value struct {
	Key     string
	Current any

	refs []*Reference
}

func newValue(key string, current any) *Value {
	return &Value{Key: key, Current: current}
}

// References returns the dependent references in insertion order.
func (v *Value) References() []*Reference { return slices.Clone(v.refs) }

func (v *Value) hasRef(r *Reference) bool { return slices.Contains(v.refs, r) }

func (v *Value) addRef(r *Reference) {
	if !v.hasRef(r) {
		v.refs = append(v.refs, r)
	}
}

func (v *Value) removeRef(r *Reference) {
	v.refs = slices.DeleteFunc(v.refs, func(e *Reference) bool { return e == r })
}

// Dictionary holds the variables defined in one scope, in definition order.
type Dictionary struct {
	values map[string]*Value
	keys   []string
}

func newDictionary() *Dictionary {
	return &Dictionary{values: make(map[string]*Value)}
}

// Get returns the variable named key.
func (d *Dictionary) Get(key string) (*Value, bool) {
	v, ok := d.values[key]

	return v, ok
}

// Keys returns the variable names in definition order.
func (d *Dictionary) Keys() []string { return slices.Clone(d.keys) }

// Len returns the number of variables.
func (d *Dictionary) Len() int { return len(d.keys) }

func (d *Dictionary) put(v *Value) {
	if _, ok := d.values[v.Key]; !ok {
		d.keys = append(d.keys, v.Key)
	}

	d.values[v.Key] = v
}
