package fixture

// Equal reports whether a and b hold the same values in the same order.
func Equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Head returns at most the first n elements of values.
func Head(values []int64, n int) []int64 {
	if n < 0 {
		n = 0
	}
	if len(values) < n {
		n = len(values)
	}
	return append([]int64(nil), values[:n]...)
}
