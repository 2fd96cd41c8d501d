package debounce

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) fn(v string) Func {
	return func(ctx context.Context) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.got = append(r.got, v)
	}
}

func (r *recorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestTrigger_OnlyLastRuns(t *testing.T) {
	d := New(50 * time.Millisecond)
	r := &recorder{}

	d.Trigger(context.Background(), r.fn("f"))
	d.Trigger(context.Background(), r.fn("fo"))
	d.Trigger(context.Background(), r.fn("foo"))

	require.Eventually(t, func() bool { return len(r.values()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"foo"}, r.values())
}

func TestTrigger_WaitsForQuietPeriod(t *testing.T) {
	d := New(200 * time.Millisecond)
	r := &recorder{}

	d.Trigger(context.Background(), r.fn("x"))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.values())

	d.Flush()
	assert.Equal(t, []string{"x"}, r.values())
}

func TestFlush_NothingPending(t *testing.T) {
	d := New(time.Millisecond)
	d.Flush()
}

func TestFlush_RunsOnce(t *testing.T) {
	d := New(30 * time.Millisecond)
	r := &recorder{}

	d.Trigger(context.Background(), r.fn("a"))
	d.Flush()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"a"}, r.values())
}

func TestTrigger_CancelsInFlightRun(t *testing.T) {
	d := New(time.Millisecond)
	started := make(chan struct{})
	cancelled := make(chan struct{})

	d.Trigger(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	})
	<-started

	r := &recorder{}
	d.Trigger(context.Background(), r.fn("next"))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight run was not cancelled")
	}
	d.Flush()
	assert.Equal(t, []string{"next"}, r.values())
}

func TestStop_DropsPending(t *testing.T) {
	d := New(20 * time.Millisecond)
	r := &recorder{}

	d.Trigger(context.Background(), r.fn("dropped"))
	d.Stop()
	time.Sleep(50 * time.Millisecond)
	d.Flush()
	assert.Empty(t, r.values())
}
