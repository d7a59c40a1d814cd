package utils

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.viam.com/test"
	"go.viam.com/utils/testutils"
)

func TestStoppableWorkers(t *testing.T) {
	t.Run("stop waits for workers", func(t *testing.T) {
		var running, exited atomic.Int32
		sw := NewStoppableWorkers(func(ctx context.Context) {
			running.Add(1)
			<-ctx.Done()
			exited.Add(1)
		})
		sw.AddWorkers(func(ctx context.Context) {
			running.Add(1)
			<-ctx.Done()
			exited.Add(1)
		})

		testutils.WaitForAssertion(t, func(tb testing.TB) {
			tb.Helper()
			test.That(tb, running.Load(), test.ShouldEqual, int32(2))
		})
		sw.Stop()
		test.That(t, exited.Load(), test.ShouldEqual, int32(2))
		test.That(t, sw.Context().Err(), test.ShouldNotBeNil)
	})

	t.Run("no workers start after stop", func(t *testing.T) {
		sw := NewStoppableWorkers()
		sw.Stop()

		var started atomic.Bool
		sw.AddWorkers(func(ctx context.Context) { started.Store(true) })
		time.Sleep(10 * time.Millisecond)
		test.That(t, started.Load(), test.ShouldBeFalse)
	})

	t.Run("parent context cancels workers", func(t *testing.T) {
		parent, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		sw := NewStoppableWorkersWithContext(parent, func(ctx context.Context) {
			<-ctx.Done()
			close(done)
		})
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker was not cancelled by the parent context")
		}
		sw.Stop()
	})
}
