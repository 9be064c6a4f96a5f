package ddl

import (
	"iter"
	"slices"
)

// Object is one node of the level graph: a leaf holding a scalar Value, or
// an object map of named (and anonymous) children.
//
// Objects are shared by pointer. A field assigned from another object's
// name points at the same Object; the store, the scope stack and field maps
// all hold plain pointers and the garbage collector reclaims what none of
// them reach.
type Object struct {
	typ    Type
	val    Value
	name   string
	parent *Object

	index   int
	indexed bool

	breaked    bool
	continued  bool
	returned   bool
	compounded bool

	file string
	line int
}

// NewMapObject returns an empty object map of type t.
func NewMapObject(t Type) *Object {
	return &Object{typ: t, val: NewMap(NewObjectMap()), index: -1}
}

// NewLeaf returns a leaf object of type t holding v.
func NewLeaf(t Type, v Value) *Object {
	return &Object{typ: t, val: v, index: -1}
}

func (o *Object) Type() Type      { return o.typ }
func (o *Object) Value() Value    { return o.val }
func (o *Object) Name() string    { return o.name }
func (o *Object) IsMap() bool     { return o.val.IsMap() }
func (o *Object) Indexed() bool   { return o.indexed }
func (o *Object) Parent() *Object { return o.parent }

// Pos is where the object was first defined.
func (o *Object) Pos() (string, int) { return o.file, o.line }

// Index is the object's position in its type's store list, or -1.
func (o *Object) Index() int {
	if !o.indexed {
		return -1
	}
	return o.index
}

// Map returns the object's field map, or nil for leaves.
func (o *Object) Map() *ObjectMap {
	if o.val.kind != KindObjectMap {
		return nil
	}
	return o.val.m
}

// Field returns the direct child stored under key.
func (o *Object) Field(key string) (*Object, bool) {
	m := o.Map()
	if m == nil {
		return nil, false
	}
	return m.Get(key)
}

// SetValue replaces a leaf payload. It is a no-op on map objects.
func (o *Object) SetValue(v Value) {
	if o.IsMap() && !v.IsMap() {
		return
	}
	o.val = v
}

func (o *Object) Compounded() bool { return o.compounded }

// Clone copies o deeply. Maps are copied entry by entry, object references
// keep pointing at the same target. The copy is not indexed.
func (o *Object) Clone() *Object {
	c := &Object{typ: o.typ, val: o.val, name: o.name, index: -1, compounded: o.compounded, file: o.file, line: o.line}
	if m := o.Map(); m != nil {
		cm := NewObjectMap()
		for k, child := range m.All() {
			cc := child
			if child.parent == o {
				cc = child.Clone()
				cc.parent = c
			}
			cm.Set(k, cc)
		}
		c.val = NewMap(cm)
	}
	return c
}

type mapEntry struct {
	key string
	obj *Object
}

// ObjectMap is an insertion-ordered map from field name to Object. Entries
// with an empty key are anonymous positional entries.
type ObjectMap struct {
	entries []mapEntry
	index   map[string]int
}

func NewObjectMap() *ObjectMap {
	return &ObjectMap{index: make(map[string]int)}
}

// Len counts named and anonymous entries.
func (m *ObjectMap) Len() int { return len(m.entries) }

func (m *ObjectMap) Get(key string) (*Object, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.entries[i].obj, true
}

func (m *ObjectMap) Has(key string) bool {
	_, ok := m.index[key]
	return ok
}

// Set stores o under key, replacing an existing entry in place. An empty
// key appends an anonymous entry.
func (m *ObjectMap) Set(key string, o *Object) {
	if key == "" {
		m.Append(o)
		return
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].obj = o
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, mapEntry{key: key, obj: o})
}

// Append adds an anonymous positional entry.
func (m *ObjectMap) Append(o *Object) {
	m.entries = append(m.entries, mapEntry{obj: o})
}

// Delete removes the entry under key and returns it.
func (m *ObjectMap) Delete(key string) (*Object, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	o := m.entries[i].obj
	m.entries = slices.Delete(m.entries, i, i+1)
	m.reindex()
	return o, true
}

// DeleteFunc removes every named entry for which del returns true and
// returns the removed objects in map order.
func (m *ObjectMap) DeleteFunc(del func(key string, o *Object) bool) []*Object {
	var removed []*Object
	m.entries = slices.DeleteFunc(m.entries, func(e mapEntry) bool {
		if e.key != "" && del(e.key, e.obj) {
			removed = append(removed, e.obj)
			return true
		}
		return false
	})
	if len(removed) > 0 {
		m.reindex()
	}
	return removed
}

func (m *ObjectMap) reindex() {
	clear(m.index)
	for i, e := range m.entries {
		if e.key != "" {
			m.index[e.key] = i
		}
	}
}

// Keys returns the named keys in insertion order.
func (m *ObjectMap) Keys() []string {
	out := make([]string, 0, len(m.index))
	for _, e := range m.entries {
		if e.key != "" {
			out = append(out, e.key)
		}
	}
	return out
}

// All yields every entry in insertion order; anonymous entries have an
// empty key.
func (m *ObjectMap) All() iter.Seq2[string, *Object] {
	return func(yield func(string, *Object) bool) {
		for _, e := range m.entries {
			if !yield(e.key, e.obj) {
				return
			}
		}
	}
}

// Merge inserts src's named entries that m does not have yet, and appends
// src's anonymous entries. copyObj decides what is stored for each entry.
func (m *ObjectMap) Merge(src *ObjectMap, copyObj func(*Object) *Object) {
	for _, e := range src.entries {
		if e.key != "" && m.Has(e.key) {
			continue
		}
		m.Set(e.key, copyObj(e.obj))
	}
}

// Store is the global object store: per type, the ordered list of indexed
// objects. An object's index is its position in its type's list.
type Store struct {
	lists map[Type][]*Object
}

func NewStore() *Store {
	return &Store{lists: make(map[Type][]*Object)}
}

// Add appends o to its type's list unless it is already indexed.
func (s *Store) Add(o *Object) bool {
	if o.indexed {
		return false
	}
	l := s.lists[o.typ]
	o.index, o.indexed = len(l), true
	s.lists[o.typ] = append(l, o)
	return true
}

// Remove drops o from its type's list and renumbers the objects after it.
func (s *Store) Remove(o *Object) bool {
	if !o.indexed {
		return false
	}
	l := s.lists[o.typ]
	i := o.index
	if i < 0 || i >= len(l) || l[i] != o {
		i = slices.Index(l, o)
		if i < 0 {
			o.indexed = false
			return false
		}
	}
	l = slices.Delete(l, i, i+1)
	for j := i; j < len(l); j++ {
		l[j].index = j
	}
	s.lists[o.typ] = l
	o.index, o.indexed = -1, false
	return true
}

// List returns the objects of type t in index order. The slice must not be
// modified.
func (s *Store) List(t Type) []*Object { return s.lists[t] }

func (s *Store) At(t Type, i int) (*Object, bool) {
	l := s.lists[t]
	if i < 0 || i >= len(l) {
		return nil, false
	}
	return l[i], true
}

// Types returns the types that have at least one indexed object.
func (s *Store) Types() []Type {
	out := make([]Type, 0, len(s.lists))
	for t, l := range s.lists {
		if len(l) > 0 {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// Len is the total number of indexed objects.
func (s *Store) Len() int {
	n := 0
	for _, l := range s.lists {
		n += len(l)
	}
	return n
}
