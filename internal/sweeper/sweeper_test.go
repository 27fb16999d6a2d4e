package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockEngine struct {
	ProcessExpiredSellOrdersFunc func(ctx context.Context, now int64) (int64, error)
}

func (m *mockEngine) ProcessExpiredSellOrders(ctx context.Context, now int64) (int64, error) {
	return m.ProcessExpiredSellOrdersFunc(ctx, now)
}

func TestRun_SweepsUntilCanceled(t *testing.T) {
	var calls atomic.Int64
	done := make(chan struct{})
	engine := &mockEngine{
		ProcessExpiredSellOrdersFunc: func(ctx context.Context, now int64) (int64, error) {
			assert.Greater(t, now, int64(0))
			if calls.Add(1) == 3 {
				close(done)
			}
			return 1, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- New(engine, time.Millisecond).Run(ctx) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper never ticked three times")
	}
	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)
}

func TestRun_ContinuesAfterError(t *testing.T) {
	var calls atomic.Int64
	done := make(chan struct{})
	engine := &mockEngine{
		ProcessExpiredSellOrdersFunc: func(ctx context.Context, now int64) (int64, error) {
			if calls.Add(1) == 1 {
				return 0, errors.New("database is locked")
			}
			close(done)
			return 0, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = New(engine, time.Millisecond).Run(ctx) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper stopped after an error")
	}
}
