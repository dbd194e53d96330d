package profile

/**
 * @brief An optional override value. A Tunable that was never assigned leaves
 * the target field untouched during apply; assigning it arms the override.
 * This replaces the usual apply-bit plus raw-value pair so that a zero value
 * with a forgotten apply bit can never clobber a caller's state.
 */
type Tunable[T any] struct {
	value   T
	present bool
}

func (t *Tunable[T]) Assign(v T) {
	t.value = v
	t.present = true
}

func (t Tunable[T]) Get() (T, bool) {
	return t.value, t.present
}

func (t Tunable[T]) Present() bool {
	return t.present
}
