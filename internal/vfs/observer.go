package vfs

import "context"

// Event reports one completed backend step of a tree operation.
type Event struct {
	Op   string `json:"op"`
	Step string `json:"step"`
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// Observer receives progress events. It is called synchronously from the
// operation's goroutine, in order.
type Observer func(Event)

type observerKey struct{}

// WithObserver attaches an observer to ctx for the operations that receive it.
func WithObserver(ctx context.Context, o Observer) context.Context {
	return context.WithValue(ctx, observerKey{}, o)
}

func observerFrom(ctx context.Context) Observer {
	o, _ := ctx.Value(observerKey{}).(Observer)
	return o
}
