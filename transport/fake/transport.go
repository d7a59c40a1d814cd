// Package fake implements an in-memory pose transport for tests and simulations.
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/localizer/transport"
)

// Transport is an in-memory transport. Published samples queue per uri in FIFO order, so every
// published sample is handed out once.
type Transport struct {
	mu            sync.Mutex
	queues        map[string][]transport.RawPoseSample
	subscribed    map[string]bool
	failSubscribe map[string]bool
	subscribes    map[string]int
	receives      map[string]int
	closed        bool
}

var _ transport.PoseTransport = (*Transport)(nil)

// New returns an empty fake transport.
func New() *Transport {
	return &Transport{
		queues:        map[string][]transport.RawPoseSample{},
		subscribed:    map[string]bool{},
		failSubscribe: map[string]bool{},
		subscribes:    map[string]int{},
		receives:      map[string]int{},
	}
}

// Publish queues a sample for the uri.
func (t *Transport) Publish(uri string, sample transport.RawPoseSample) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queues[uri] = append(t.queues[uri], sample)
}

// FailSubscribe makes every subsequent Subscribe to uri fail (or succeed again when fail is false).
// A failing uri is also treated as no longer subscribed.
func (t *Transport) FailSubscribe(uri string, fail bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failSubscribe[uri] = fail
	if fail {
		delete(t.subscribed, uri)
	}
}

// Pending returns how many samples are queued for uri.
func (t *Transport) Pending(uri string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queues[uri])
}

// SubscribeCount returns how many times Subscribe was called for uri.
func (t *Transport) SubscribeCount(uri string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subscribes[uri]
}

// ReceiveCount returns how many times Receive was called for uri.
func (t *Transport) ReceiveCount(uri string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.receives[uri]
}

// Subscribe marks the uri as subscribed unless it was set to fail.
func (t *Transport) Subscribe(ctx context.Context, uri string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribes[uri]++
	if t.closed {
		return errors.New("transport closed")
	}
	if t.failSubscribe[uri] {
		return errors.Wrap(transport.ErrSubscribeFailed, uri)
	}
	t.subscribed[uri] = true
	return nil
}

// Receive pops the oldest queued sample of a subscribed uri.
func (t *Transport) Receive(ctx context.Context, uri string) (transport.RawPoseSample, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.receives[uri]++
	if t.closed {
		return transport.RawPoseSample{}, errors.New("transport closed")
	}
	queue := t.queues[uri]
	if !t.subscribed[uri] || len(queue) == 0 {
		return transport.RawPoseSample{}, transport.ErrNoSample
	}
	sample := queue[0]
	t.queues[uri] = queue[1:]
	return sample, nil
}

// Close makes every further call fail.
func (t *Transport) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
