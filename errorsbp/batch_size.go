package errorsbp

// BatchSize returns the number of errors contained in err.
//
// A nil error has size 0. An error that wraps multiple errors (a Batch, or
// anything implementing Unwrap() []error) has the sum of the batch sizes of
// the wrapped errors. An error wrapping a single error has the batch size of
// the wrapped error. Every other non-nil error has size 1.
func BatchSize(err error) int {
	if err == nil {
		return 0
	}
	switch v := err.(type) {
	case interface{ Unwrap() []error }:
		var size int
		for _, e := range v.Unwrap() {
			size += BatchSize(e)
		}
		return size
	case interface{ GetErrors() []error }:
		var size int
		for _, e := range v.GetErrors() {
			size += BatchSize(e)
		}
		return size
	case interface{ Unwrap() error }:
		if wrapped := v.Unwrap(); wrapped != nil {
			return BatchSize(wrapped)
		}
		return 1
	}
	return 1
}
