package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/armory-backend/pkg/config"
	"github.com/angelmondragon/armory-backend/pkg/logger"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeRunner struct {
	err     error
	blocked bool
	started atomic.Bool
}

func (f *fakeRunner) Run(ctx context.Context) error {
	f.started.Store(true)
	if f.blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

type fakeDrainer struct{ waited atomic.Bool }

func (f *fakeDrainer) Wait() { f.waited.Store(true) }

// slowRunner keeps handling a callback for a while after cancellation and
// records whether the inline sends were already drained when it finished.
type slowRunner struct {
	drain         *fakeDrainer
	drainedBefore atomic.Bool
	finished      atomic.Bool
}

func (s *slowRunner) Run(ctx context.Context) error {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	s.drainedBefore.Store(s.drain.waited.Load())
	s.finished.Store(true)
	return ctx.Err()
}

func testParams(alert, notification runner) ServiceParams {
	return ServiceParams{
		Config:               &config.Config{},
		Logger:               logger.Nop(),
		DB:                   fakePinger{},
		Redis:                fakePinger{},
		PubSub:               fakePinger{},
		AlertConsumer:        alert,
		NotificationConsumer: notification,
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	params := testParams(&fakeRunner{}, &fakeRunner{})
	params.Redis = nil
	_, err := NewService(params)
	require.Error(t, err)

	params = testParams(nil, &fakeRunner{})
	_, err = NewService(params)
	require.Error(t, err)
}

func TestRunStopsWhenAConsumerFails(t *testing.T) {
	boom := errors.New("subscription deleted")
	blocked := &fakeRunner{blocked: true}
	drain := &fakeDrainer{}
	params := testParams(&fakeRunner{err: boom}, blocked)
	params.Inline = drain

	service, err := NewService(params)
	require.NoError(t, err)

	err = service.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, drain.waited.Load())
}

func TestRunReturnsOnCancel(t *testing.T) {
	service, err := NewService(testParams(&fakeRunner{blocked: true}, &fakeRunner{blocked: true}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = service.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunFailsWhenDependencyIsDown(t *testing.T) {
	alert := &fakeRunner{}
	params := testParams(alert, &fakeRunner{})
	params.PubSub = fakePinger{err: errors.New("unreachable")}

	service, err := NewService(params)
	require.NoError(t, err)

	err = service.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pubsub ping failed")
	assert.False(t, alert.started.Load())
}

func TestRunDrainsInlineSendsAfterConsumersReturn(t *testing.T) {
	boom := errors.New("subscription deleted")
	drain := &fakeDrainer{}
	slow := &slowRunner{drain: drain}
	params := testParams(&fakeRunner{err: boom}, slow)
	params.Inline = drain

	service, err := NewService(params)
	require.NoError(t, err)

	err = service.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, slow.finished.Load(), "run returned before the slow consumer stopped")
	assert.False(t, slow.drainedBefore.Load(), "inline sends drained while a consumer was still running")
	assert.True(t, drain.waited.Load())
}
