package repository

// CancelFunc detaches a listener. It is safe to call more than once.
type CancelFunc func()

// ChangeFunc receives the current state of a watched value each time it changes.
// A nil value with a nil error means the watched document does not exist.
type ChangeFunc[T any] func(value T, err error)
