package types

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Set keeps insertion order so that serialized output is stable
type Set[T comparable] struct {
	hash  map[T]struct{}
	items []T
}

func NewSet[T comparable](values ...T) *Set[T] {
	set := &Set[T]{hash: make(map[T]struct{})}
	set.Insert(values...)
	return set
}

func (st *Set[T]) Insert(values ...T) {
	if st.hash == nil {
		st.hash = make(map[T]struct{})
	}

	for _, value := range values {
		if _, found := st.hash[value]; found {
			continue
		}
		st.hash[value] = struct{}{}
		st.items = append(st.items, value)
	}
}

func (st *Set[T]) Exists(value T) bool {
	if st == nil {
		return false
	}
	_, found := st.hash[value]
	return found
}

func (st *Set[T]) Len() int {
	if st == nil {
		return 0
	}
	return len(st.items)
}

// Array returns the elements in insertion order
func (st *Set[T]) Array() []T {
	if st == nil {
		return nil
	}
	return append([]T(nil), st.items...)
}

func (st *Set[T]) String() string {
	return fmt.Sprintf("%v", st.Array())
}

func (st *Set[T]) MarshalJSON() ([]byte, error) {
	items := st.Array()
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func (st *Set[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}

	*st = Set[T]{hash: make(map[T]struct{})}
	st.Insert(items...)
	return nil
}
