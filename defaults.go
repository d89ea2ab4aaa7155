package shuffleio

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// positive returns def when v <= 0.
func positive[T int | int64](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
