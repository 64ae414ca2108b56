package registry

import "reflect"

// Key names a registered Value and carries its type.
// The type parameter T is recorded alongside the name so a lookup with the
// wrong type is reported instead of silently missing.
type Key[T any] struct {
	name     string
	typeName string
}

// NewKey creates a new typed registry key.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name, typeName: reflect.TypeFor[T]().String()}
}

// Name returns the name the key was created with.
func (k Key[T]) Name() string {
	return k.name
}

// String returns the key as "name (type)".
func (k Key[T]) String() string {
	return k.name + " (" + k.typeName + ")"
}
