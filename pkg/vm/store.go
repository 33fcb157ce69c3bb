package vm

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// propertyStore is the ordered map from interned name to Property owned by
// one object. Traversal yields names in sorted order, which is what keeps
// enumeration deterministic.
type propertyStore struct {
	tree *redblacktree.Tree
}

func newPropertyStore() *propertyStore {
	return &propertyStore{tree: redblacktree.NewWithStringComparator()}
}

func (s *propertyStore) lookup(name string) *Property {
	if v, found := s.tree.Get(name); found {
		return v.(*Property)
	}
	return nil
}

// insert returns the property stored under name, creating an empty one if
// there is none.
func (s *propertyStore) insert(name string) *Property {
	if ref := s.lookup(name); ref != nil {
		return ref
	}
	ref := &Property{Name: name, Value: Undefined}
	s.tree.Put(name, ref)
	return ref
}

func (s *propertyStore) remove(name string) {
	s.tree.Remove(name)
}

func (s *propertyStore) len() int {
	return s.tree.Size()
}

// each visits properties in name order until fn returns false.
func (s *propertyStore) each(fn func(ref *Property) bool) {
	it := s.tree.Iterator()
	for it.Next() {
		if !fn(it.Value().(*Property)) {
			return
		}
	}
}

// names returns a snapshot of the stored names in order.
func (s *propertyStore) names() []string {
	names := make([]string, 0, s.tree.Size())
	s.each(func(ref *Property) bool {
		names = append(names, ref.Name)
		return true
	})
	return names
}
