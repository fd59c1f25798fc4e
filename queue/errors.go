package queue

import "errors"

// ErrQueueFull indicates the work buffer is at capacity and the item was
// marked failed instead of being dispatched.
var ErrQueueFull = errors.New("analysis queue full")
