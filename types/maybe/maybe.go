package maybe

// Maybe holds an optional value. The zero value is None.
type Maybe[T any] struct {
	value T
	valid bool
}

func Some[T any](value T) Maybe[T] {
	return Maybe[T]{
		value: value,
		valid: true,
	}
}

func None[T any]() Maybe[T] {
	return Maybe[T]{}
}

// Get returns the value and whether it is set, comma-ok style.
func (m Maybe[T]) Get() (T, bool) {
	return m.value, m.valid
}
