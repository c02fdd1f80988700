package concurrency

// AsyncResult carries one element of a live stream, or the error that ended it.
type AsyncResult[T any] struct {
	Value T
	Err   error
}

// NewAsyncValue wraps a value produced by a stream.
func NewAsyncValue[T any](value T) *AsyncResult[T] {
	return &AsyncResult[T]{Value: value}
}

// NewAsyncError wraps the terminal error of a stream.
func NewAsyncError[T any](err error) *AsyncResult[T] {
	return &AsyncResult[T]{Err: err}
}
