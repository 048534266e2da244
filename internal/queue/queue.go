package queue

import (
	"github.com/pkg/errors"
)

var ErrZeroCapacity = errors.New("queue capacity must be positive")

// Client is the operation surface shared by the in-process queue and the
// remote client, so a worker never needs to know which side of a socket
// its queue lives on.
type Client[I any] interface {
	Put(item I) error
	Get() (I, error)
}
