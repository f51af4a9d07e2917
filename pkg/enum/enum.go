package enum

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var (
	mutex  sync.RWMutex
	values = map[reflect.Type]map[string]any{}
)

// New registers value as a member of its type and returns it unchanged, so
// enums are declared as package variables.
func New[T comparable](value T) T {
	mutex.Lock()
	defer mutex.Unlock()

	t := reflect.TypeOf(value)
	if _, ok := values[t]; !ok {
		values[t] = map[string]any{}
	}

	values[t][fmt.Sprint(value)] = value
	return value
}

// ToEnum parses s into a registered member of T.
func ToEnum[T comparable](s string) (T, error) {
	var zero T

	mutex.RLock()
	defer mutex.RUnlock()

	members, ok := values[reflect.TypeOf(zero)]
	if !ok {
		return zero, fmt.Errorf("not found enum type %T", zero)
	}

	v, ok := members[s]
	if !ok {
		return zero, fmt.Errorf("not found value %s in enum %T", s, zero)
	}

	return v.(T), nil
}

// Values returns the names of all registered members of T in sorted order.
func Values[T comparable]() []string {
	var zero T

	mutex.RLock()
	defer mutex.RUnlock()

	members := values[reflect.TypeOf(zero)]
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
