package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/storechat/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// seqRand returns the queued values in order, then zeros.
type seqRand struct {
	vals []int
	args []int
}

func (r *seqRand) IntN(n int) int {
	r.args = append(r.args, n)
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[0]
	r.vals = r.vals[1:]
	return v % n
}

type delivery struct {
	roomID string
	text   string
	at     time.Time
}

type recorder struct {
	mu  sync.Mutex
	got []delivery
	clk clock.Clock
}

func (r *recorder) deliver(roomID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, delivery{roomID: roomID, text: text, at: r.clk.Now()})
}

func (r *recorder) deliveries() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.got...)
}

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestDelayDrawnFromConfiguredWindow(t *testing.T) {
	clk := clock.NewFake(epoch)
	rng := &seqRand{vals: []int{1500, 2}}
	d := New(DefaultConfig(), clk, rng, zap.NewNop())
	rec := &recorder{clk: clk}

	d.ScheduleReply("1", rec.deliver)

	require.Equal(t, []int{2000}, rng.args, "delay span should be max-min in ms")

	clk.Advance(2499 * time.Millisecond)
	assert.Empty(t, rec.deliveries(), "reply fired before its delay")

	clk.Advance(time.Millisecond)
	got := rec.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].roomID)
	assert.Equal(t, DefaultReplies[2], got[0].text)
	assert.Equal(t, epoch.Add(2500*time.Millisecond), got[0].at)
	assert.Equal(t, 0, d.Pending())
}

func TestReplyAlwaysWithinWindow(t *testing.T) {
	for _, v := range []int{0, 1999} {
		clk := clock.NewFake(epoch)
		d := New(DefaultConfig(), clk, &seqRand{vals: []int{v}}, zap.NewNop())
		rec := &recorder{clk: clk}
		d.ScheduleReply("1", rec.deliver)

		clk.Advance(3 * time.Second)
		got := rec.deliveries()
		require.Len(t, got, 1)
		elapsed := got[0].at.Sub(epoch)
		assert.GreaterOrEqual(t, elapsed, time.Second)
		assert.Less(t, elapsed, 3*time.Second)
	}
}

func TestIndependentTimersPerSend(t *testing.T) {
	clk := clock.NewFake(epoch)
	// Room A draws a long delay, room B a short one.
	rng := &seqRand{vals: []int{1800, 100, 0, 1}}
	d := New(DefaultConfig(), clk, rng, zap.NewNop())
	rec := &recorder{clk: clk}

	d.ScheduleReply("A", rec.deliver)
	d.ScheduleReply("B", rec.deliver)
	assert.Equal(t, 2, d.Pending())

	clk.Advance(3 * time.Second)
	got := rec.deliveries()
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].roomID)
	assert.Equal(t, "A", got[1].roomID)
}

func TestCancelRoom(t *testing.T) {
	clk := clock.NewFake(epoch)
	d := New(DefaultConfig(), clk, &seqRand{}, zap.NewNop())
	rec := &recorder{clk: clk}

	d.ScheduleReply("1", rec.deliver)
	d.ScheduleReply("1", rec.deliver)
	d.ScheduleReply("2", rec.deliver)

	assert.Equal(t, 2, d.CancelRoom("1"))
	assert.Equal(t, 0, d.CancelRoom("missing"))

	clk.Advance(5 * time.Second)
	got := rec.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].roomID)
}

func TestStopRejectsNewReplies(t *testing.T) {
	clk := clock.NewFake(epoch)
	d := New(DefaultConfig(), clk, &seqRand{}, zap.NewNop())
	rec := &recorder{clk: clk}

	assert.True(t, d.ScheduleReply("1", rec.deliver))
	d.Stop()
	assert.False(t, d.ScheduleReply("1", rec.deliver))

	assert.Equal(t, 0, d.Pending())
	assert.Equal(t, 0, clk.Pending())
	clk.Advance(5 * time.Second)
	assert.Empty(t, rec.deliveries())
}

func TestCustomReplies(t *testing.T) {
	clk := clock.NewFake(epoch)
	cfg := Config{MinDelay: 10 * time.Millisecond, MaxDelay: 10 * time.Millisecond, Replies: []string{"only"}}
	rng := &seqRand{}
	d := New(cfg, clk, rng, zap.NewNop())
	rec := &recorder{clk: clk}

	d.ScheduleReply("1", rec.deliver)
	// Zero-width window draws no delay.
	assert.Empty(t, rng.args)

	clk.Advance(10 * time.Millisecond)
	got := rec.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0].text)
}

func TestStopLeavesNoTimerGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := Config{MinDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	d := New(cfg, clock.Real{}, SystemRand{}, zap.NewNop())
	done := make(chan struct{}, 1)
	d.ScheduleReply("1", func(string, string) { done <- struct{}{} })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for real-clock reply")
	}

	d.ScheduleReply("2", func(string, string) {})
	d.Stop()
	assert.Equal(t, 0, d.Pending())
}
