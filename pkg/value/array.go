package value

// Array is a growable sequence of values. Every element is exclusively
// owned by the array: setters deep-copy their argument and getters
// deep-copy the stored element.
type Array struct {
	items []Value
}

// NewArray returns an empty array.
func NewArray() *Array { return &Array{} }

// Len returns the number of elements.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

// Push appends a deep copy of v.
func (a *Array) Push(v Value) {
	a.items = append(a.items, v.Copy())
}

// Pop removes and returns the last element, or null if the array is
// empty.
func (a *Array) Pop() Value {
	if len(a.items) == 0 {
		return Null()
	}
	last := a.items[len(a.items)-1]
	a.items = a.items[:len(a.items)-1]
	return last
}

// At returns a deep copy of the element at index i, or null when i is
// out of range.
func (a *Array) At(i int) Value {
	if a == nil || i < 0 || i >= len(a.items) {
		return Null()
	}
	return a.items[i].Copy()
}

// Set stores a deep copy of v at index i. Out-of-range indices are
// ignored.
func (a *Array) Set(i int, v Value) {
	if i < 0 || i >= len(a.items) {
		return
	}
	a.items[i] = v.Copy()
}

// Reverse reverses the elements in place.
func (a *Array) Reverse() {
	for i, j := 0, len(a.items)-1; i < j; i, j = i+1, j-1 {
		a.items[i], a.items[j] = a.items[j], a.items[i]
	}
}

// Clone returns a deep copy of the array.
func (a *Array) Clone() *Array {
	if a == nil {
		return NewArray()
	}
	out := &Array{items: make([]Value, len(a.items))}
	for i, v := range a.items {
		out.items[i] = v.Copy()
	}
	return out
}

func (a *Array) equal(other *Array) bool {
	if a.Len() != other.Len() {
		return false
	}
	for i := range a.items {
		if !a.items[i].Equal(other.items[i]) {
			return false
		}
	}
	return true
}
