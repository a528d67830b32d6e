package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

// Handler registers one domain's routes on the shared router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Closer is a dependency stopped after the HTTP server has drained, such as
// the event dispatcher or a Kafka producer.
type Closer interface {
	Close(ctx context.Context) error
}

type CloserFunc func(ctx context.Context) error

func (f CloserFunc) Close(ctx context.Context) error {
	return f(ctx)
}
