// Package inject provides test doubles whose methods can be swapped out per test.
package inject

import (
	"context"

	"go.viam.com/localizer/transport"
)

// PoseTransport is an injected pose transport.
type PoseTransport struct {
	transport.PoseTransport
	SubscribeFunc func(ctx context.Context, uri string) error
	ReceiveFunc   func(ctx context.Context, uri string) (transport.RawPoseSample, error)
	CloseFunc     func(ctx context.Context) error
}

// Subscribe calls the injected Subscribe or the real version.
func (t *PoseTransport) Subscribe(ctx context.Context, uri string) error {
	if t.SubscribeFunc == nil {
		return t.PoseTransport.Subscribe(ctx, uri)
	}
	return t.SubscribeFunc(ctx, uri)
}

// Receive calls the injected Receive or the real version.
func (t *PoseTransport) Receive(ctx context.Context, uri string) (transport.RawPoseSample, error) {
	if t.ReceiveFunc == nil {
		return t.PoseTransport.Receive(ctx, uri)
	}
	return t.ReceiveFunc(ctx, uri)
}

// Close calls the injected Close or closes the real transport if it can be closed.
func (t *PoseTransport) Close(ctx context.Context) error {
	if t.CloseFunc != nil {
		return t.CloseFunc(ctx)
	}
	if closer, ok := t.PoseTransport.(interface{ Close(context.Context) error }); ok {
		return closer.Close(ctx)
	}
	return nil
}
