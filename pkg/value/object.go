package value

// Object is an ordered collection of unique string keys. Insertion
// order is preserved and lookups are a linear scan, which is the right
// trade for the handful of fields a typical binding expression touches.
// Entries are exclusively owned: Set deep-copies its argument and Get
// deep-copies the stored value.
type Object struct {
	entries []entry
}

type entry struct {
	key string
	val Value
}

// NewObject returns an empty object.
func NewObject() *Object { return &Object{} }

// Len returns the number of entries.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.entries)
}

// Set stores a deep copy of v under key, replacing any existing entry
// without disturbing insertion order.
func (o *Object) Set(key string, v Value) {
	for i := range o.entries {
		if o.entries[i].key == key {
			o.entries[i].val = v.Copy()
			return
		}
	}
	o.entries = append(o.entries, entry{key: key, val: v.Copy()})
}

// Get returns a deep copy of the value under key, or null when the key
// is absent.
func (o *Object) Get(key string) Value {
	if o == nil {
		return Null()
	}
	for i := range o.entries {
		if o.entries[i].key == key {
			return o.entries[i].val.Copy()
		}
	}
	return Null()
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	if o == nil {
		return false
	}
	for i := range o.entries {
		if o.entries[i].key == key {
			return true
		}
	}
	return false
}

// Delete removes the entry under key, preserving the order of the
// remaining entries.
func (o *Object) Delete(key string) {
	for i := range o.entries {
		if o.entries[i].key == key {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return
		}
	}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.entries))
	for i := range o.entries {
		keys[i] = o.entries[i].key
	}
	return keys
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	if o == nil {
		return NewObject()
	}
	out := &Object{entries: make([]entry, len(o.entries))}
	for i, e := range o.entries {
		out.entries[i] = entry{key: e.key, val: e.val.Copy()}
	}
	return out
}

func (o *Object) equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for i := range o.entries {
		found := false
		for j := range other.entries {
			if other.entries[j].key == o.entries[i].key {
				if !other.entries[j].val.Equal(o.entries[i].val) {
					return false
				}
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
