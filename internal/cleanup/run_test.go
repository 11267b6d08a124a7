package cleanup

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls  atomic.Int32
	cancel context.CancelFunc
	stopAt int32
}

func (r *countingRunner) Run(ctx context.Context, _ time.Time) (Summary, error) {
	if r.calls.Add(1) >= r.stopAt {
		r.cancel()
	}
	return Summary{}, nil
}

func TestRunLoopsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &countingRunner{cancel: cancel, stopAt: 3}

	done := make(chan error, 1)
	go func() { done <- Run(ctx, zerolog.Nop(), r, time.Millisecond, time.Second) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper loop did not stop")
	}
	assert.GreaterOrEqual(t, r.calls.Load(), int32(3))
}
