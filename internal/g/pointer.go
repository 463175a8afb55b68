package g

// Pointer returns pointer to copy of object
func Pointer[T any](o T) *T {
	return &o
}

// NilIfZero returns nil for the zero value of T, and a pointer to a copy otherwise.
// Used for optional fields in API responses.
func NilIfZero[T comparable](o T) *T {
	var zero T
	if o == zero {
		return nil
	}
	return &o
}
